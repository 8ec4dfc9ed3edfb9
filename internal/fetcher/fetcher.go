// Package fetcher retrieves spot prices from the configured upstream endpoint,
// serving from the shared cache slot while it is fresh.
package fetcher

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"metalprice/internal/metrics"
	"metalprice/internal/provider"
	"metalprice/internal/provider/cache"
)

var (
	// ErrNotConfigured is returned when no endpoint URL is set.
	ErrNotConfigured = eris.New("fetcher: endpoint not configured")
	// ErrFetchFailed covers transport errors, non-2xx responses and bodies
	// that are not a usable JSON object.
	ErrFetchFailed = eris.New("fetcher: unable to fetch current prices")
)

const (
	DefaultTimeout = 15 * time.Second
	maxBodyBytes   = 1 << 20
)

// Fetcher orchestrates cache lookup, one upstream GET on a miss, provider
// detection and normalization. It never retries on its own.
type Fetcher struct {
	client  HTTPClient
	slot    *cache.Slot
	now     func() time.Time
	timeout time.Duration
	metrics *metrics.Metrics

	group singleflight.Group
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithClock sets the time source used for default record timestamps.
func WithClock(now func() time.Time) Option {
	return func(f *Fetcher) { f.now = now }
}

// WithTimeout bounds a single upstream request.
func WithTimeout(d time.Duration) Option {
	return func(f *Fetcher) {
		if d > 0 {
			f.timeout = d
		}
	}
}

// WithMetrics records fetch and cache outcomes.
func WithMetrics(m *metrics.Metrics) Option {
	return func(f *Fetcher) { f.metrics = m }
}

func New(client HTTPClient, slot *cache.Slot, opts ...Option) *Fetcher {
	f := &Fetcher{
		client:  client,
		slot:    slot,
		now:     time.Now,
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Slot exposes the cache the fetcher reads and writes.
func (f *Fetcher) Slot() *cache.Slot { return f.slot }

// Fetch returns the cached record when valid, otherwise performs exactly one
// upstream request. Zero-valued records are cached like any other.
func (f *Fetcher) Fetch(ctx context.Context, endpoint string) (provider.PriceRecord, error) {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		f.metrics.ObserveFetch(string(provider.Unknown), metrics.ResultNotConfigured)
		return provider.PriceRecord{}, ErrNotConfigured
	}
	if rec, ok := f.slot.Get(); ok {
		f.metrics.ObserveCache(true)
		return rec, nil
	}
	f.metrics.ObserveCache(false)

	// Shared by every waiter; only the request timeout bounds it.
	shared := context.WithoutCancel(ctx)
	v, err, _ := f.group.Do(endpoint, func() (any, error) {
		// Another caller may have filled the slot while we queued.
		if rec, ok := f.slot.Get(); ok {
			return rec, nil
		}
		return f.fetch(shared, endpoint)
	})
	if err != nil {
		return provider.PriceRecord{}, err
	}
	return v.(provider.PriceRecord), nil
}

// Refresh drops the cached record and fetches again.
func (f *Fetcher) Refresh(ctx context.Context, endpoint string) (provider.PriceRecord, error) {
	f.slot.Invalidate(ctx)
	return f.Fetch(ctx, endpoint)
}

// Reload fetches upstream regardless of the cache and replaces the cached
// record only on success. A failure leaves the current entry in place.
func (f *Fetcher) Reload(ctx context.Context, endpoint string) (provider.PriceRecord, error) {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		f.metrics.ObserveFetch(string(provider.Unknown), metrics.ResultNotConfigured)
		return provider.PriceRecord{}, ErrNotConfigured
	}
	shared := context.WithoutCancel(ctx)
	v, err, _ := f.group.Do("reload:"+endpoint, func() (any, error) {
		return f.fetch(shared, endpoint)
	})
	if err != nil {
		return provider.PriceRecord{}, err
	}
	return v.(provider.PriceRecord), nil
}

func (f *Fetcher) fetch(ctx context.Context, endpoint string) (provider.PriceRecord, error) {
	id := provider.Detect(endpoint)
	log := zap.L().With(zap.String("provider", string(id)), zap.String("endpoint", redact(endpoint)))

	raw, err := f.get(ctx, endpoint)
	if err != nil {
		f.metrics.ObserveFetch(string(id), metrics.ResultFailed)
		log.Warn("fetcher: upstream request failed", zap.Error(err))
		return provider.PriceRecord{}, err
	}

	rec := provider.Normalize(raw, id, f.now())
	if rec.Empty() {
		f.metrics.ObserveFetch(string(id), metrics.ResultEmpty)
		log.Warn("fetcher: payload yielded no prices")
	} else {
		f.metrics.ObserveFetch(string(id), metrics.ResultOK)
		f.metrics.MarkSuccess(f.now())
		log.Debug("fetcher: prices updated",
			zap.Float64("gold", rec.GoldPerOunce),
			zap.Float64("silver", rec.SilverPerOunce),
			zap.Float64("platinum", rec.PlatinumPerOunce))
	}

	f.slot.Put(ctx, rec)
	return rec, nil
}

func (f *Fetcher) get(ctx context.Context, endpoint string) (map[string]any, error) {
	reqCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, eris.Wrapf(ErrFetchFailed, "build request: %v", err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := f.client.Do(req)
	f.metrics.ObserveUpstream(time.Since(start))
	if err != nil {
		// *url.Error repeats the full URL, credential included.
		var ue *url.Error
		if errors.As(err, &ue) {
			err = ue.Err
		}
		return nil, eris.Wrapf(ErrFetchFailed, "GET %s: %v", redact(endpoint), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, eris.Wrapf(ErrFetchFailed, "GET %s: status %d", redact(endpoint), resp.StatusCode)
	}

	raw, err := provider.Decode(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, eris.Wrapf(ErrFetchFailed, "GET %s: %v", redact(endpoint), err)
	}
	return raw, nil
}

var secretParams = []string{"api_key", "access_key", "apikey", "key", "token"}

// redact masks credential query parameters before an endpoint is logged.
func redact(endpoint string) string {
	u, err := url.Parse(endpoint)
	if err != nil {
		return "<invalid url>"
	}
	q := u.Query()
	changed := false
	for _, k := range secretParams {
		if q.Has(k) {
			q.Set(k, "REDACTED")
			changed = true
		}
	}
	if changed {
		u.RawQuery = q.Encode()
	}
	return u.String()
}
