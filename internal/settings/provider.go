// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package settings keeps the operator-configured settings snapshot and the
// historical acceptance stats fresh. Readers always see a whole snapshot;
// a refresh swaps it atomically and a failed refresh keeps the last one.
package settings

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/pdiddy/acceptance-predictor/internal/logging"
	"github.com/pdiddy/acceptance-predictor/pkg/types"
)

const (
	defaultRefreshInterval    = 30 * time.Second
	defaultDataStatusInterval = 60 * time.Second
)

// Fetcher loads settings and historical stats from the backend.
type Fetcher interface {
	FetchSettings(ctx context.Context, prev types.Settings) (types.Settings, error)
	FetchDataStatus(ctx context.Context) (types.HistoricalStats, error)
}

// Metrics counts refreshes.
type Metrics interface {
	RefreshDone(kind string, err error)
}

// Provider serves the current snapshots. It is safe for concurrent use.
type Provider struct {
	fetcher            Fetcher
	refreshInterval    time.Duration
	dataStatusInterval time.Duration
	metrics            Metrics
	log                *slog.Logger

	settings   atomic.Pointer[types.Settings]
	historical atomic.Pointer[types.HistoricalStats]
	fetched    atomic.Bool
}

// Option customizes a Provider.
type Option func(*Provider)

// WithMetrics attaches a refresh counter.
func WithMetrics(m Metrics) Option {
	return func(p *Provider) { p.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Provider) { p.log = l }
}

// WithInitial seeds the snapshot used before the first successful fetch.
func WithInitial(s types.Settings) Option {
	return func(p *Provider) {
		c := s.Clone()
		p.settings.Store(&c)
	}
}

// NewProvider returns a provider seeded with types.DefaultSettings.
func NewProvider(f Fetcher, cfg types.SettingsConfig, opts ...Option) *Provider {
	p := &Provider{
		fetcher:            f,
		refreshInterval:    cfg.RefreshInterval,
		dataStatusInterval: cfg.DataStatusInterval,
		log:                logging.Discard(),
	}
	if p.refreshInterval <= 0 {
		p.refreshInterval = defaultRefreshInterval
	}
	if p.dataStatusInterval <= 0 {
		p.dataStatusInterval = defaultDataStatusInterval
	}
	defaults := types.DefaultSettings()
	p.settings.Store(&defaults)
	hist := types.DefaultHistoricalStats()
	p.historical.Store(&hist)

	for _, o := range opts {
		o(p)
	}
	return p
}

// Snapshot returns a copy of the current settings.
func (p *Provider) Snapshot() types.Settings {
	return p.settings.Load().Clone()
}

// Historical returns the current historical stats.
func (p *Provider) Historical() types.HistoricalStats {
	return *p.historical.Load()
}

// Fetched reports whether at least one settings fetch succeeded.
func (p *Provider) Fetched() bool { return p.fetched.Load() }

// Refresh fetches settings once. On error the previous snapshot stays.
func (p *Provider) Refresh(ctx context.Context) error {
	next, err := p.fetcher.FetchSettings(ctx, p.Snapshot())
	p.done("settings", err)
	if err != nil {
		p.log.Warn("settings refresh failed, keeping last snapshot", "error", err)
		return err
	}
	p.settings.Store(&next)
	p.fetched.Store(true)
	p.log.Debug("settings refreshed",
		"conference", next.Conference, "price", next.Price, "wait", next.PaymentWaitTime)
	return nil
}

// RefreshHistorical fetches historical stats once. On error the previous
// value stays.
func (p *Provider) RefreshHistorical(ctx context.Context) error {
	next, err := p.fetcher.FetchDataStatus(ctx)
	p.done("data_status", err)
	if err != nil {
		p.log.Warn("data status refresh failed, keeping last stats", "error", err)
		return err
	}
	p.historical.Store(&next)
	p.log.Debug("historical stats refreshed", "year", next.Year, "total", next.TotalPapers)
	return nil
}

// Run refreshes both snapshots on their intervals until ctx ends. Call
// Refresh and RefreshHistorical first for an immediate fetch. Refresh
// errors are logged, never returned.
func (p *Provider) Run(ctx context.Context) error {
	settingsTick := time.NewTicker(p.refreshInterval)
	defer settingsTick.Stop()
	dataTick := time.NewTicker(p.dataStatusInterval)
	defer dataTick.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-settingsTick.C:
			_ = p.Refresh(ctx)
		case <-dataTick.C:
			_ = p.RefreshHistorical(ctx)
		}
	}
}

func (p *Provider) done(kind string, err error) {
	if p.metrics != nil {
		p.metrics.RefreshDone(kind, err)
	}
}
