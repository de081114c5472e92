package main

import (
	"time"

	"github.com/tinytelemetry/metricbridge/internal/model"
)

const (
	defaultBindHost      = "127.0.0.1"
	defaultAPIPort       = 8042
	defaultFeedPort      = 4005
	defaultPoolSize      = 16
	defaultBatchSize     = model.DefaultBatchSize
	defaultFlushInterval = model.DefaultFlushInterval
	defaultFlushQueue    = 64
)

// appConfig is internal runtime configuration.
// It is package-private to keep defaults and shape local to the CLI entrypoint.
type appConfig struct {
	StoreURL       string            `mapstructure:"store-url"`
	ArchivePolicy  string            `mapstructure:"archive-policy"`
	ResourcesFile  string            `mapstructure:"resources-file"`
	PolicyMapFile  string            `mapstructure:"archive-policy-file"`
	FilterSelf     bool              `mapstructure:"filter-service-activity"`
	FilterProject  string            `mapstructure:"filter-project"`
	SelfStorage    string            `mapstructure:"self-storage-resource-type"`
	AuthToken      string            `mapstructure:"auth-token"`
	OwnerIDs       map[string]string `mapstructure:"owner-ids"`
	PoolSize       int               `mapstructure:"pool-size"`
	APIEnabled     bool              `mapstructure:"api-enabled"`
	APIPort        int               `mapstructure:"api-port"`
	APIAddr        string            `mapstructure:"api-addr"`
	FeedEnabled    bool              `mapstructure:"feed-enabled"`
	FeedPort       int               `mapstructure:"feed-port"`
	FeedAddr       string            `mapstructure:"feed-addr"`
	BatchSize      int               `mapstructure:"batch-size"`
	FlushInterval  time.Duration     `mapstructure:"flush-interval"`
	FlushQueueSize int               `mapstructure:"flush-queue-size"`
	DevLogging     bool              `mapstructure:"dev-logging"`
	ConfigPath     string            `mapstructure:"-"` // not from config file
}
