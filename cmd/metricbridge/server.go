package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/tinytelemetry/metricbridge/internal/batcher"
	"github.com/tinytelemetry/metricbridge/internal/feed"
	"github.com/tinytelemetry/metricbridge/internal/identity"
	"github.com/tinytelemetry/metricbridge/internal/ingest"
	"github.com/tinytelemetry/metricbridge/internal/resource"
	"github.com/tinytelemetry/metricbridge/internal/router"
	"github.com/tinytelemetry/metricbridge/internal/tsdb"
)

// runServer wires the registry, store client, and delivery surfaces
// together and serves until a signal arrives.
func runServer(cfg appConfig) error {
	logger, err := buildLogger(cfg.DevLogging)
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	defer logger.Sync()

	// Routing configuration is the only fatal surface: a broken
	// registry must keep the process from starting.
	definitions, err := resource.LoadDefinitions(cfg.ResourcesFile)
	if err != nil {
		return err
	}
	policyMap, err := resource.LoadPolicyMap(cfg.PolicyMapFile)
	if err != nil {
		return err
	}
	registry, err := resource.NewRegistry(definitions, cfg.ArchivePolicy, policyMap)
	if err != nil {
		return err
	}
	if len(definitions) == 0 {
		logger.Warn("no resource definitions loaded, all metrics will be unhandled",
			zap.String("resources_file", cfg.ResourcesFile))
	}

	provider := &identity.StaticProvider{
		Token:  cfg.AuthToken,
		Owners: cfg.OwnerIDs,
	}
	conn := tsdb.NewConnManager(provider, cfg.FilterProject, tsdb.ConnConfig{PoolSize: cfg.PoolSize}, logger)
	store := tsdb.NewClient(cfg.StoreURL, conn, provider, logger)

	dispatcher := router.New(store, conn, registry, router.Config{
		FilterSelf:              cfg.FilterSelf,
		SelfStorageResourceType: cfg.SelfStorage,
	}, logger)

	// Resolve the owner id up front when filtering is on: without it
	// self-traffic filtering is unsafe, so refusing to start beats
	// rejecting every batch later.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if cfg.FilterSelf {
		if _, err := conn.OwnerID(ctx); err != nil {
			return err
		}
	}

	if cfg.APIEnabled {
		apiServer := ingest.NewServer(cfg.APIAddr, dispatcher, logger)
		if err := apiServer.Start(); err != nil {
			return fmt.Errorf("failed to start API server: %w", err)
		}
		defer apiServer.Stop()
		logger.Info("batch API listening", zap.String("addr", cfg.APIAddr))
	}

	var feedServer *feed.Server
	var samples *batcher.Batcher
	if cfg.FeedEnabled {
		samples = batcher.New(dispatcher, logger, batcher.Config{
			BatchSize:      cfg.BatchSize,
			FlushInterval:  cfg.FlushInterval,
			FlushQueueSize: cfg.FlushQueueSize,
		})
		feedServer = feed.NewServer(cfg.FeedAddr, logger)
		if err := feedServer.Start(); err != nil {
			samples.Stop()
			return fmt.Errorf("failed to start sample feed: %w", err)
		}
		logger.Info("sample feed listening", zap.String("addr", cfg.FeedAddr))
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigCh
		fmt.Println("\nShutting down gracefully... (press Ctrl+C again to force)")
		cancel()

		// Shutdown deadline starts now — not at boot.
		deadline := time.NewTimer(10 * time.Second)
		defer deadline.Stop()

		select {
		case <-sigCh:
			fmt.Println("\nForce shutdown.")
		case <-deadline.C:
			fmt.Println("Shutdown timed out, forcing exit.")
		}
		os.Exit(1)
	}()

	logger.Info("metricbridge started",
		zap.String("store_url", cfg.StoreURL),
		zap.String("default_policy", cfg.ArchivePolicy),
		zap.Int("resource_definitions", len(definitions)),
		zap.Bool("filter_service_activity", cfg.FilterSelf))

	// Use errgroup for concurrent goroutine lifecycle management.
	g, gctx := errgroup.WithContext(ctx)

	if feedServer != nil {
		g.Go(func() error {
			for sample := range feedServer.Samples() {
				samples.Add(sample)
			}
			return nil
		})
	}

	// Wait for context cancellation (from signal handler) in the
	// errgroup. Stopping the feed closes its sample channel, which in
	// turn ends the ingestion loop above.
	g.Go(func() error {
		<-gctx.Done()
		if feedServer != nil {
			feedServer.Stop()
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Warn("server: errgroup exited with error", zap.Error(err))
	}

	cancel()
	if feedServer != nil {
		feedServer.Stop()
	}
	if samples != nil {
		samples.Stop()
	}

	signal.Stop(sigCh)
	return nil
}

func buildLogger(dev bool) (*zap.Logger, error) {
	if dev {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
