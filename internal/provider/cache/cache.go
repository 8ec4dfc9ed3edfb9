package cache

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"metalprice/internal/provider"
	"metalprice/internal/store"
)

// DefaultTTL is how long a fetched record stays servable.
const DefaultTTL = 12 * time.Hour

// Entry stores the cached record with the time it was inserted.
type Entry struct {
	Record     provider.PriceRecord
	InsertedAt time.Time
}

// Backing persists the slot between restarts. store.Store satisfies it.
type Backing interface {
	Snapshot(ctx context.Context) (*store.Snapshot, error)
	PutSnapshot(ctx context.Context, snap store.Snapshot) error
	DeleteSnapshot(ctx context.Context) error
}

// Slot is a single TTL-bound cache entry shared by every caller.
// An entry is valid iff now - InsertedAt < TTL.
type Slot struct {
	ttl     time.Duration
	now     func() time.Time
	backing Backing

	mu    sync.RWMutex
	entry *Entry
}

// Option configures a Slot.
type Option func(*Slot)

// WithClock injects the time source used for insertion and expiry.
func WithClock(now func() time.Time) Option {
	return func(s *Slot) { s.now = now }
}

// WithBacking writes every change through to b.
func WithBacking(b Backing) Option {
	return func(s *Slot) { s.backing = b }
}

func New(ttl time.Duration, opts ...Option) *Slot {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	s := &Slot{ttl: ttl, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Slot) TTL() time.Duration { return s.ttl }

// Get returns the record if it is still within its TTL.
func (s *Slot) Get() (provider.PriceRecord, bool) {
	e, ok := s.Entry()
	if !ok {
		return provider.PriceRecord{}, false
	}
	return e.Record, true
}

// Entry is Get plus the insertion time.
func (s *Slot) Entry() (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.entry == nil || !s.valid(s.entry.InsertedAt) {
		return Entry{}, false
	}
	return *s.entry, true
}

func (s *Slot) valid(insertedAt time.Time) bool {
	return s.now().Sub(insertedAt) < s.ttl
}

// Put stores rec with a fresh insertion time, replacing any previous entry.
func (s *Slot) Put(ctx context.Context, rec provider.PriceRecord) {
	e := Entry{Record: rec, InsertedAt: s.now()}
	s.mu.Lock()
	s.entry = &e
	s.mu.Unlock()

	if s.backing != nil {
		if err := s.backing.PutSnapshot(ctx, store.Snapshot{Record: rec, CachedAt: e.InsertedAt}); err != nil {
			zap.L().Warn("cache: persist snapshot failed", zap.Error(err))
		}
	}
}

// Invalidate clears the slot unconditionally.
func (s *Slot) Invalidate(ctx context.Context) {
	s.mu.Lock()
	s.entry = nil
	s.mu.Unlock()

	if s.backing != nil {
		if err := s.backing.DeleteSnapshot(ctx); err != nil {
			zap.L().Warn("cache: delete snapshot failed", zap.Error(err))
		}
	}
}

// Warm loads a persisted snapshot into the slot if one exists and is still
// within TTL. It reports whether the slot was populated.
func (s *Slot) Warm(ctx context.Context) (bool, error) {
	if s.backing == nil {
		return false, nil
	}
	snap, err := s.backing.Snapshot(ctx)
	if err != nil || snap == nil {
		return false, err
	}
	if !s.valid(snap.CachedAt) {
		return false, nil
	}
	s.mu.Lock()
	s.entry = &Entry{Record: snap.Record, InsertedAt: snap.CachedAt}
	s.mu.Unlock()
	return true, nil
}
