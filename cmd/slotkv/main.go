package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/0xRadioAc7iv/go-slotkv/core"
	"github.com/0xRadioAc7iv/go-slotkv/internal/config"
	"github.com/0xRadioAc7iv/go-slotkv/internal/logging"
	"github.com/0xRadioAc7iv/go-slotkv/internal/utils"
)

const defaultConfigFile = "slotkv.yaml"

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "Error while starting:", err)
		os.Exit(1)
	}
}

func run() error {
	inputs, err := utils.HandleCLIInputs(os.Args[1:])
	if err != nil {
		return err
	}

	if inputs.ConfigPath == "" && utils.PathExists(defaultConfigFile) {
		inputs.ConfigPath = defaultConfigFile
	}

	loader, err := config.NewLoader(inputs.ConfigPath)
	if err != nil {
		return err
	}
	for key, value := range inputs.Overrides {
		loader.Set(key, value)
	}

	cfg, err := loader.Config()
	if err != nil {
		return err
	}

	logger, level, err := logging.New(cfg.Log.Level)
	if err != nil {
		return err
	}
	defer logger.Sync()

	loader.Watch(func(c *config.Config) {
		if err := logging.SetLevel(level, c.Log.Level); err != nil {
			logger.Warn("ignoring log level from reloaded config", zap.Error(err))
			return
		}
		logger.Info("config reloaded", zap.String("log_level", c.Log.Level))
	}, func(err error) {
		logger.Warn("reloaded config is invalid", zap.Error(err))
	})

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	node := &core.Node{
		Store: core.Options{
			Dir:            cfg.Storage.Dir,
			Name:           cfg.Storage.Name,
			ValueSize:      int(cfg.Storage.ValueSize),
			MaxFileSize:    cfg.Storage.MaxFileSize,
			TimeFormat:     cfg.Storage.TimeFormat,
			MetaFormat:     cfg.Storage.MetaFormat,
			SerializeReads: cfg.Storage.SerializeReads,
			Logger:         logger,
			Registerer:     registry,
		},
		Host:         cfg.Server.Host,
		ListenerPort: cfg.Server.Port,
		PortProbes:   cfg.Server.PortProbes,
		SyncInterval: cfg.Server.SyncInterval,
	}

	if err := node.Start(); err != nil {
		return err
	}
	defer node.Stop()

	if cfg.Metrics.Addr != "" {
		srv := serveMetrics(cfg.Metrics.Addr, registry, logger)
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			srv.Shutdown(ctx)
		}()
	}

	logger.Info("press Ctrl+C to exit")
	sig := utils.ListenForProcessInterruptOrKill(context.Background())
	logger.Info("shutting down", zap.Stringer("signal", sig))

	return nil
}

func serveMetrics(addr string, registry *prometheus.Registry, logger *zap.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		logger.Info("metrics listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server stopped", zap.Error(err))
		}
	}()
	return srv
}
