package main

import (
	"errors"
	"flag"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/viper"

	"github.com/tinytelemetry/metricbridge/internal/model"
)

// Build variables - set by ldflags during build.
var (
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"
)

func main() {
	var configPath string
	var showVersion bool

	flag.StringVar(&configPath, "config", "", "config file (default is $HOME/.config/metricbridge/config.yml)")
	flag.BoolVar(&showVersion, "version", false, "print version information")
	flag.Parse()

	if showVersion {
		fmt.Printf("Metricbridge - Telemetry Sample Router\n")
		fmt.Printf("  Version: %s\n", version)
		fmt.Printf("  Commit:  %s\n", commit)
		fmt.Printf("  Built:   %s\n", buildTime)
		return
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	if err := runServer(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig(configPath string) (appConfig, error) {
	var cfg appConfig

	home, err := os.UserHomeDir()
	if err != nil {
		return cfg, fmt.Errorf("finding home directory: %w", err)
	}

	v := viper.New()
	v.SetEnvPrefix("METRICBRIDGE")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	v.SetDefault("store-url", model.DefaultStoreURL)
	v.SetDefault("archive-policy", model.DefaultArchivePolicy)
	v.SetDefault("resources-file", filepath.Join(home, ".config", "metricbridge", "resources.yaml"))
	v.SetDefault("archive-policy-file", filepath.Join(home, ".config", "metricbridge", "archive_policy_map.yaml"))
	v.SetDefault("filter-service-activity", true)
	v.SetDefault("filter-project", model.DefaultFilterProject)
	v.SetDefault("self-storage-resource-type", model.DefaultSelfStorageResourceType)
	v.SetDefault("pool-size", defaultPoolSize)
	v.SetDefault("api-enabled", true)
	v.SetDefault("api-port", defaultAPIPort)
	v.SetDefault("feed-enabled", true)
	v.SetDefault("feed-port", defaultFeedPort)
	v.SetDefault("batch-size", defaultBatchSize)
	v.SetDefault("flush-interval", defaultFlushInterval)
	v.SetDefault("flush-queue-size", defaultFlushQueue)
	v.SetDefault("dev-logging", false)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigFile(filepath.Join(home, ".config", "metricbridge", "config.yml"))
	}

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFound) && !os.IsNotExist(err) {
			return cfg, err
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, err
	}
	cfg.ConfigPath = v.ConfigFileUsed()

	if cfg.APIPort <= 0 || cfg.APIPort > 65535 {
		return cfg, fmt.Errorf("invalid api-port: %d", cfg.APIPort)
	}
	if cfg.FeedPort <= 0 || cfg.FeedPort > 65535 {
		return cfg, fmt.Errorf("invalid feed-port: %d", cfg.FeedPort)
	}

	if cfg.APIAddr == "" {
		cfg.APIAddr = net.JoinHostPort(defaultBindHost, strconv.Itoa(cfg.APIPort))
	}
	if cfg.FeedAddr == "" {
		cfg.FeedAddr = net.JoinHostPort(defaultBindHost, strconv.Itoa(cfg.FeedPort))
	}

	return cfg, nil
}
