package fetcher

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

// EndpointFunc returns the currently configured endpoint URL.
type EndpointFunc func(ctx context.Context) (string, error)

// Scheduler force-refreshes prices on a fixed interval. Failed refreshes are
// retried with exponential backoff; a missing endpoint is not retried.
type Scheduler struct {
	fetcher    *Fetcher
	endpoint   EndpointFunc
	interval   time.Duration
	newBackOff func() backoff.BackOff
}

// SchedulerOption configures a Scheduler.
type SchedulerOption func(*Scheduler)

// WithBackOff replaces the retry policy used for a failed refresh.
func WithBackOff(fn func() backoff.BackOff) SchedulerOption {
	return func(s *Scheduler) { s.newBackOff = fn }
}

// NewScheduler refreshes every interval, retrying a failed refresh for at most maxElapsed.
func NewScheduler(f *Fetcher, endpoint EndpointFunc, interval, maxElapsed time.Duration, opts ...SchedulerOption) *Scheduler {
	s := &Scheduler{
		fetcher:  f,
		endpoint: endpoint,
		interval: interval,
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 5 * time.Second
			b.MaxInterval = 5 * time.Minute
			b.MaxElapsedTime = maxElapsed
			return b
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run blocks until ctx is cancelled. It warms the cache once at start, then
// refreshes on every tick.
func (s *Scheduler) Run(ctx context.Context) {
	if s.interval <= 0 {
		zap.L().Info("scheduler: disabled")
		return
	}
	if err := s.warm(ctx); err != nil && !errors.Is(err, ErrNotConfigured) {
		zap.L().Warn("scheduler: initial fetch failed", zap.Error(err))
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.RefreshOnce(ctx); err != nil {
				zap.L().Warn("scheduler: refresh gave up", zap.Error(err))
			}
		}
	}
}

func (s *Scheduler) warm(ctx context.Context) error {
	ep, err := s.endpoint(ctx)
	if err != nil {
		return err
	}
	_, err = s.fetcher.Fetch(ctx, ep)
	return err
}

// RefreshOnce reloads prices, retrying transient failures. The cached record
// stays servable until a reload succeeds.
func (s *Scheduler) RefreshOnce(ctx context.Context) error {
	attempt := 0
	op := func() error {
		attempt++
		ep, err := s.endpoint(ctx)
		if err != nil {
			return err
		}
		_, err = s.fetcher.Reload(ctx, ep)
		if errors.Is(err, ErrNotConfigured) {
			return backoff.Permanent(err)
		}
		return err
	}
	notify := func(err error, wait time.Duration) {
		zap.L().Info("scheduler: retrying refresh",
			zap.Int("attempt", attempt), zap.Duration("wait", wait), zap.Error(err))
	}
	return backoff.RetryNotify(op, backoff.WithContext(s.newBackOff(), ctx), notify)
}
