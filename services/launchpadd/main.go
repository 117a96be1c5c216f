package launchpadd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"launchpad/config"
	"launchpad/core"
	"launchpad/indexer"
	"launchpad/observability/logging"
	telemetry "launchpad/observability/otel"
	"launchpad/storage"
)

// Main runs the daemon until SIGINT or SIGTERM.
func Main() error {
	var cfgPath string
	flag.StringVar(&cfgPath, "config", "launchpad.toml", "path to launchpadd configuration")
	flag.Parse()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := logging.SetupWithOptions(logging.Options{
		Service:    "launchpadd",
		Env:        cfg.Logging.Env,
		Level:      logging.ParseLevel(cfg.Logging.Level),
		File:       cfg.Logging.File,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
	})

	if cfg.Telemetry.Metrics || cfg.Telemetry.Traces {
		shutdownTelemetry, err := telemetry.Init(context.Background(), telemetry.Config{
			ServiceName: "launchpadd",
			Environment: cfg.Logging.Env,
			Endpoint:    cfg.Telemetry.Endpoint,
			Insecure:    cfg.Telemetry.Insecure,
			Headers:     cfg.Telemetry.Headers,
			Metrics:     cfg.Telemetry.Metrics,
			Traces:      cfg.Telemetry.Traces,
		})
		if err != nil {
			return fmt.Errorf("init telemetry: %w", err)
		}
		defer func() { _ = shutdownTelemetry(context.Background()) }()
	}

	genesis, err := cfg.Genesis.Parse()
	if err != nil {
		return err
	}
	db, err := storage.Open(cfg.StorageBackend, cfg.DataDir)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}

	opts := []core.Option{core.WithLogger(logger)}
	var index *indexer.Store
	if cfg.Index.Driver != "" {
		index, err = indexer.Open(cfg.Index.Driver, cfg.Index.DSN)
		if err != nil {
			db.Close()
			return err
		}
		defer func() { _ = index.Close() }()
		index.SetLogger(logger)
		opts = append(opts, core.WithSink(index))
	}

	node, err := core.NewNode(db, genesis, opts...)
	if err != nil {
		db.Close()
		return err
	}
	defer node.Close()

	auth, err := NewAuthenticator(AuthConfig{
		HMACSecret: cfg.Auth.Secret(),
		Issuer:     cfg.Auth.Issuer,
		Audience:   cfg.Auth.Audience,
		ClockSkew:  time.Duration(cfg.Auth.ClockSkewSeconds) * time.Second,
	}, logger)
	if err != nil {
		return err
	}
	srv, err := New(Config{
		Node:      node,
		Index:     index,
		Auth:      auth,
		RateLimit: RateLimit{RequestsPerMinute: cfg.RateLimit.BuyPerMinute, Burst: cfg.RateLimit.Burst},
		Logger:    logger,
	})
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:              cfg.ListenAddress,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	stopCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errs := make(chan error, 1)
	go func() {
		logger.Info("launchpadd listening", slog.String("addr", cfg.ListenAddress))
		errs <- httpServer.ListenAndServe()
	}()

	select {
	case <-stopCtx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			_ = httpServer.Close()
			return err
		}
		return nil
	case err := <-errs:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}
