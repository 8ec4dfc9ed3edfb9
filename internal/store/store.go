// Package store persists the configured endpoint and the last price snapshot
// so both survive process restarts.
package store

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"github.com/vmihailenco/msgpack/v5"

	"metalprice/internal/provider"
)

const (
	keyEndpoint = "endpoint"
	keySnapshot = "snapshot"
)

// Snapshot is a cached price record together with the time it was cached.
type Snapshot struct {
	Record   provider.PriceRecord `msgpack:"record"`
	CachedAt time.Time            `msgpack:"cached_at"`
}

// Store defines the persistence interface for metalprice state.
type Store interface {
	// Endpoint returns the persisted endpoint URL, or "" when none is set.
	Endpoint(ctx context.Context) (string, error)
	SetEndpoint(ctx context.Context, url string) error

	// Snapshot returns nil, nil when nothing is stored.
	Snapshot(ctx context.Context) (*Snapshot, error)
	PutSnapshot(ctx context.Context, snap Snapshot) error
	DeleteSnapshot(ctx context.Context) error

	// Purge removes the endpoint and the snapshot together.
	Purge(ctx context.Context) error
	Close() error
}

// Options selects and configures a backend for Open.
type Options struct {
	Driver        string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	SQLitePath    string
	DatabaseURL   string
	// SnapshotTTL bounds how long backends with native expiry keep a snapshot.
	SnapshotTTL time.Duration
}

// Open builds the backend named by opts.Driver and runs its migrations.
func Open(ctx context.Context, opts Options) (Store, error) {
	switch opts.Driver {
	case "", "memory":
		return NewMemory(), nil
	case "redis":
		return NewRedis(ctx, opts.RedisAddr, opts.RedisPassword, opts.RedisDB, opts.SnapshotTTL)
	case "sqlite":
		s, err := NewSQLite(opts.SQLitePath)
		if err != nil {
			return nil, err
		}
		if err := s.Migrate(ctx); err != nil {
			_ = s.Close()
			return nil, err
		}
		return s, nil
	case "postgres":
		s, err := NewPostgres(ctx, opts.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := s.Migrate(ctx); err != nil {
			s.Close()
			return nil, err
		}
		return s, nil
	default:
		return nil, eris.Errorf("store: unknown driver %q", opts.Driver)
	}
}

func encodeSnapshot(snap Snapshot) ([]byte, error) {
	b, err := msgpack.Marshal(snap)
	if err != nil {
		return nil, eris.Wrap(err, "store: encode snapshot")
	}
	return b, nil
}

func decodeSnapshot(b []byte) (*Snapshot, error) {
	var snap Snapshot
	if err := msgpack.Unmarshal(b, &snap); err != nil {
		return nil, eris.Wrap(err, "store: decode snapshot")
	}
	return &snap, nil
}
