// Package app wires configuration into a ready-to-use service graph shared by
// the server and the CLI.
package app

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"metalprice/internal/config"
	"metalprice/internal/fetcher"
	"metalprice/internal/httpx"
	"metalprice/internal/metrics"
	"metalprice/internal/provider/cache"
	"metalprice/internal/provider/ratelimit"
	"metalprice/internal/service"
	"metalprice/internal/store"
)

type App struct {
	Config   *config.Config
	Store    store.Store
	Fetcher  *fetcher.Fetcher
	Service  *service.Service
	Metrics  *metrics.Metrics
	Registry *prometheus.Registry

	client fetcher.HTTPClient
}

// New opens the store, warms the cache from it and builds the fetcher and service.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	st, err := store.Open(ctx, store.Options{
		Driver:        cfg.Store.Driver,
		RedisAddr:     cfg.Store.Redis.Addr,
		RedisPassword: cfg.Store.Redis.Password,
		RedisDB:       cfg.Store.Redis.DB,
		SQLitePath:    cfg.Store.SQLitePath,
		DatabaseURL:   cfg.Store.DatabaseURL,
		SnapshotTTL:   cfg.Upstream.CacheTTL(),
	})
	if err != nil {
		return nil, err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	hc := httpx.New(cfg.Upstream.Timeout())
	if cfg.Upstream.UserAgent != "" {
		hc.UserAgent = cfg.Upstream.UserAgent
	}
	client := ratelimit.PerMinute(hc, cfg.Upstream.MaxRequestsPerMinute, cfg.Upstream.Burst)

	slot := cache.New(cfg.Upstream.CacheTTL(), cache.WithBacking(st))
	if ok, err := slot.Warm(ctx); err != nil {
		zap.L().Warn("app: could not load cached prices", zap.Error(err))
	} else if ok {
		zap.L().Info("app: restored cached prices")
	}

	f := fetcher.New(client, slot,
		fetcher.WithTimeout(cfg.Upstream.Timeout()),
		fetcher.WithMetrics(m),
	)

	return &App{
		Config:   cfg,
		Store:    st,
		Fetcher:  f,
		Service:  service.New(f, st, cfg.Upstream.Endpoint),
		Metrics:  m,
		Registry: reg,
		client:   client,
	}, nil
}

// Detached returns a fetcher with its own unpersisted cache slot, for
// endpoints that must not touch the shared cache or the store.
func (a *App) Detached() *fetcher.Fetcher {
	return fetcher.New(a.client, cache.New(a.Config.Upstream.CacheTTL()),
		fetcher.WithTimeout(a.Config.Upstream.Timeout()),
	)
}

// Scheduler builds the background refresher from the refresh settings.
func (a *App) Scheduler() *fetcher.Scheduler {
	return fetcher.NewScheduler(a.Fetcher, a.Service.Endpoint,
		a.Config.Refresh.Interval(), a.Config.Refresh.MaxElapsed())
}

func (a *App) Close() error {
	return a.Store.Close()
}
