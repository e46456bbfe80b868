package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ent0n29/tasklist/internal/config"
	"github.com/ent0n29/tasklist/internal/events"
	"github.com/ent0n29/tasklist/internal/httpapi"
	"github.com/ent0n29/tasklist/internal/observability"
	"github.com/ent0n29/tasklist/internal/tasks"
)

type BuildResult struct {
	Config  config.Config
	API     *httpapi.Server
	Tasks   *tasks.Service
	Events  *events.Hub
	Metrics *observability.Metrics

	// Cleanup should be called on shutdown to release the store and
	// disconnect change feed subscribers.
	Cleanup func() error
}

func Build(ctx context.Context, cfg config.Config, logger *slog.Logger) (*BuildResult, error) {
	if logger == nil {
		logger = slog.Default()
	}
	metrics := observability.NewMetrics(cfg.MetricsNamespace)

	store, err := tasks.NewStore(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("task store init failed: %w", err)
	}
	logger.Info("task store ready", "store", store.Kind())

	hub := events.NewHub(0)
	hub.SetDropHook(metrics.EventsDropped.Inc)

	service := tasks.NewService(store, hub, logger)
	api := httpapi.New(cfg, service, hub, metrics, logger)

	cleanup := func() error {
		hub.Close()
		if err := store.Close(); err != nil {
			return fmt.Errorf("close %s store: %w", store.Kind(), err)
		}
		return nil
	}

	return &BuildResult{
		Config:  cfg,
		API:     api,
		Tasks:   service,
		Events:  hub,
		Metrics: metrics,
		Cleanup: cleanup,
	}, nil
}
