package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/probeforge/metricgen/internal/config"
	"github.com/probeforge/metricgen/internal/history"
	"github.com/probeforge/metricgen/internal/logfields"
	"github.com/probeforge/metricgen/internal/schema"
	"github.com/probeforge/metricgen/internal/telemetry"
	"github.com/probeforge/metricgen/internal/watch"
)

// WatchCmd implements the 'watch' command.
type WatchCmd struct {
	HistoryDB string `name:"history-db" help:"Override the run history database path"`
	Listen    string `help:"Override the HTTP listen address"`
}

func (w *WatchCmd) Run(_ *Global, root *CLI) error {
	cfg, err := config.Load(root.Config)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if w.HistoryDB != "" {
		cfg.Watch.HistoryDB = w.HistoryDB
	}
	if w.Listen != "" {
		cfg.Watch.Listen = w.Listen
	}
	return RunWatch(cfg)
}

// RunWatch starts the continuous generation daemon and blocks until a
// shutdown signal arrives.
func RunWatch(cfg *config.Config) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	schemas, err := schema.Load()
	if err != nil {
		return fmt.Errorf("load schemas: %w", err)
	}

	store, err := history.Open(cfg.Watch.HistoryDB)
	if err != nil {
		return fmt.Errorf("open run history: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			slog.Warn("Failed to close run history", logfields.Error(err))
		}
	}()

	registry := prometheus.NewRegistry()
	recorder := telemetry.NewPrometheusRecorder(registry)

	publisher, err := watch.NewPublisher(cfg.Watch.NATS)
	if err != nil {
		return fmt.Errorf("connect build event publisher: %w", err)
	}
	defer publisher.Close()

	daemon, err := watch.New(watch.Options{
		Config:    cfg,
		Schemas:   schemas,
		History:   store,
		Recorder:  recorder,
		Publisher: publisher,
		Metrics:   telemetry.HTTPHandler(registry),
	})
	if err != nil {
		return fmt.Errorf("create watch daemon: %w", err)
	}

	slog.Info("Watch mode started, waiting for shutdown signal...")
	if err := daemon.Run(ctx); err != nil {
		return fmt.Errorf("watch daemon: %w", err)
	}
	slog.Info("Watch mode stopped")
	return nil
}
