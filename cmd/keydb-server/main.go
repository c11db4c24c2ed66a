// Command keydb-server runs the in-memory key/value store described in
// SPEC_FULL.md: a RESP-style TCP frontend over a sharded, concurrent
// keyspace, with a background expiry reaper and an optional Prometheus
// metrics endpoint.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/keydb/keydb/internal/config"
	"github.com/keydb/keydb/internal/keyspace"
	"github.com/keydb/keydb/internal/logging"
	"github.com/keydb/keydb/internal/metrics"
	"github.com/keydb/keydb/internal/server"
	"github.com/keydb/keydb/internal/shutdown"
)

var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configFile  = flag.String("config", "", "path to configuration file")
		showVersion = flag.Bool("version", false, "show version information")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("keydb-server %s (commit: %s)\n", version, commit)
		return nil
	}

	cfg, err := loadConfig(*configFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// A bare port on the command line overrides the config file, mirroring
	// the port argument accepted by the original redis_clone server.
	if args := flag.Args(); len(args) > 0 {
		cfg.Server.Addr = "127.0.0.1:" + args[0]
	}

	log := logging.New(logging.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: os.Stdout,
	})
	logging.SetDefault(log)

	log.Info("starting keydb-server", "version", version, "commit", commit, "config", *configFile)

	store := keyspace.New()
	m := metrics.New()

	srv := server.New(server.Config{
		Addr:              cfg.Server.Addr,
		MaxConnections:    cfg.Server.MaxConnections,
		ReadChunkBytes:    cfg.Server.ReadChunkBytes,
		CommandsPerSecond: cfg.Server.CommandsPerSecond,
	}, store, m)

	reaper := server.NewReaper(store, cfg.Reaper.Interval, m, srv.ConnectedClients)

	shutdownHandler := shutdown.NewHandler(10*time.Second, log)

	reaperCtx, cancelReaper := context.WithCancel(context.Background())
	shutdownHandler.OnShutdown("reaper", func(ctx context.Context) error {
		cancelReaper()
		return nil
	})

	var metricsServer *metrics.Server
	if cfg.Metrics.Addr != "" {
		metricsServer = metrics.NewServer(cfg.Metrics.Addr, m)
		shutdownHandler.OnShutdown("metrics server", func(ctx context.Context) error {
			return metricsServer.Shutdown(ctx)
		})
	}

	shutdownHandler.OnShutdown("RESP server", func(ctx context.Context) error {
		return srv.Shutdown(ctx)
	})

	watcher, err := startConfigWatcher(*configFile, log)
	if err != nil {
		log.Warn("config hot-reload disabled", "error", err)
	}
	if watcher != nil {
		shutdownHandler.OnShutdown("config watcher", func(ctx context.Context) error {
			return watcher.Stop()
		})
	}

	go reaper.Run(reaperCtx)

	if metricsServer != nil {
		metricsServer.Start()
		log.Info("metrics server listening", "addr", cfg.Metrics.Addr)
	}

	if err := srv.Start(); err != nil {
		return fmt.Errorf("start server: %w", err)
	}

	log.Info("server started, press Ctrl+C to stop", "addr", cfg.Server.Addr)
	if err := shutdownHandler.Wait(); err != nil {
		log.Error("shutdown error", "error", err)
		return err
	}

	log.Info("server stopped gracefully")
	return nil
}

func loadConfig(configFile string) (*config.Spec, error) {
	cfg := config.Default()

	opts := []config.Option{}
	if configFile != "" {
		opts = append(opts, config.WithConfigFile(configFile))
	}
	loader := config.NewLoader(opts...)

	if err := loader.Load(cfg); err != nil {
		return nil, err
	}
	if err := config.Verify(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// startConfigWatcher hot-reloads the log level when the config file
// changes, per SPEC_FULL.md §3.2. It is a no-op if no file was given.
func startConfigWatcher(configFile string, log logging.Logger) (*config.Watcher, error) {
	if configFile == "" {
		return nil, nil
	}

	w, err := config.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.Watch(configFile); err != nil {
		return nil, err
	}

	w.OnChange(func(path string) {
		cfg := config.Default()
		loader := config.NewLoader(config.WithConfigFile(path))
		if err := loader.Load(cfg); err != nil {
			log.Error("config reload failed", "error", err)
			return
		}
		logging.SetLevel(cfg.Log.Level)
		log.Info("config reloaded", "log_level", cfg.Log.Level)
	})

	go w.Start()
	return w, nil
}
