package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"automiles/config"
	ahttp "automiles/http"
	"automiles/logging"
	"automiles/ml"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	// 1. Load config
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 2. Logger
	logger, err := logging.New(logging.Options{
		Level:      cfg.Log.Level,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
		Compress:   cfg.Log.Compress,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 3. Model: read once, the result is shared by every request
	loader := ml.NewLoader(cfg.Model.Path,
		ml.WithModelType(cfg.Model.Type),
		ml.WithLogger(logger.Named("model")))
	if res := loader.Load(); res.OK() && cfg.Model.Watch {
		startArtifactWatcher(ctx, cfg.Model.Path, logger.Named("watcher"))
	}

	handlers, err := ahttp.NewHandlers(loader, ahttp.HandlersConfig{
		ModelPath:     cfg.Model.Path,
		DefaultWeight: cfg.Input.Default,
		Step:          cfg.Input.Step,
		CacheSize:     cfg.Cache.Size,
	}, logger.Named("http"))
	if err != nil {
		logger.Fatal("failed to build handlers", zap.Error(err))
	}

	// 4. Start HTTP server
	server := ahttp.NewServer(ahttp.ServerConfig{
		Port:           cfg.Http.Port,
		Timeout:        cfg.Http.Timeout,
		MaxBodyBytes:   cfg.Http.MaxBodyBytes,
		AllowedOrigins: cfg.Http.AllowedOrigins,
	}, handlers, logger.Named("http"))

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	// 5. Graceful shutdown
	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			logger.Fatal("HTTP server failed", zap.Error(err))
		}
	}
	logger.Info("shutting down")

	if err := server.Stop(); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}
	logger.Info("exiting")
}

func startArtifactWatcher(ctx context.Context, path string, logger *zap.Logger) {
	watcher, err := ml.NewArtifactWatcher(path, logger, nil)
	if err != nil {
		logger.Warn("artifact watcher disabled", zap.Error(err))
		return
	}
	go watcher.Run(ctx)
}
