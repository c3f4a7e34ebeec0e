package main

import (
	"context"
	"errors"

	"github.com/steveyegge/contentfactory/internal/cache"
	"github.com/steveyegge/contentfactory/internal/logging"
	"github.com/steveyegge/contentfactory/internal/manager"
	"github.com/steveyegge/contentfactory/internal/pipeline"
)

// app is a discovered, initialized module set.
type app struct {
	manager *manager.Manager
	report  manager.DiscoveryReport
	store   *cache.Store
	svc     *pipeline.Service
}

// openApp discovers modules under the configured root, initializes them with
// the configured settings and opens the cache when enabled. Initialization
// failures are logged; the modules that did initialize stay usable.
func openApp(ctx context.Context) (*app, error) {
	ctx = logging.WithLogger(ctx, logger)
	m := manager.New(manager.WithLogger(logger))
	a := &app{manager: m}
	a.report = m.DiscoverAll(ctx, cfg.ModulesPath)

	if err := m.InitializeAll(ctx, manager.Settings(cfg.ModuleSettings())); err != nil {
		logger.Warn("some modules failed to initialize", "err", err)
	}

	opts := []pipeline.Option{pipeline.WithLogger(logger), pipeline.WithPreviewSize(cfg.PreviewSize)}
	if cfg.Cache.Enabled {
		store, err := cache.Open(cfg.Cache.Path)
		if err != nil {
			_ = m.Cleanup(ctx)
			return nil, err
		}
		a.store = store
		opts = append(opts, pipeline.WithCache(store))
	}
	a.svc = pipeline.New(m, opts...)
	return a, nil
}

func (a *app) Close(ctx context.Context) error {
	var errs []error
	errs = append(errs, a.manager.Cleanup(ctx))
	if a.store != nil {
		errs = append(errs, a.store.Close())
	}
	return errors.Join(errs...)
}
