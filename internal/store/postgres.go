package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
)

// Pool is the subset of pgxpool.Pool used by Postgres.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// Postgres implements Store on a pgx connection pool.
type Postgres struct {
	pool Pool
}

// NewPostgres creates a Postgres store with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*Postgres, error) {
	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	cfg.MaxConns = 4
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: connect")
	}
	return &Postgres{pool: pool}, nil
}

// NewPostgresWithPool wraps an existing pool.
func NewPostgresWithPool(pool Pool) *Postgres {
	return &Postgres{pool: pool}
}

const postgresMigration = `CREATE TABLE IF NOT EXISTS metalprice_kv (
	key        TEXT PRIMARY KEY,
	value      BYTEA NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

func (p *Postgres) Migrate(ctx context.Context) error {
	_, err := p.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}

func (p *Postgres) get(ctx context.Context, key string) ([]byte, error) {
	var v []byte
	err := p.pool.QueryRow(ctx, `SELECT value FROM metalprice_kv WHERE key = $1`, key).Scan(&v)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get %s", key)
	}
	return v, nil
}

func (p *Postgres) put(ctx context.Context, key string, value []byte) error {
	_, err := p.pool.Exec(ctx,
		`INSERT INTO metalprice_kv (key, value, updated_at) VALUES ($1, $2, now())
		 ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`,
		key, value)
	return eris.Wrapf(err, "postgres: put %s", key)
}

func (p *Postgres) Endpoint(ctx context.Context) (string, error) {
	v, err := p.get(ctx, keyEndpoint)
	if err != nil {
		return "", err
	}
	return string(v), nil
}

func (p *Postgres) SetEndpoint(ctx context.Context, url string) error {
	return p.put(ctx, keyEndpoint, []byte(url))
}

func (p *Postgres) Snapshot(ctx context.Context) (*Snapshot, error) {
	v, err := p.get(ctx, keySnapshot)
	if err != nil || v == nil {
		return nil, err
	}
	return decodeSnapshot(v)
}

func (p *Postgres) PutSnapshot(ctx context.Context, snap Snapshot) error {
	b, err := encodeSnapshot(snap)
	if err != nil {
		return err
	}
	return p.put(ctx, keySnapshot, b)
}

func (p *Postgres) DeleteSnapshot(ctx context.Context) error {
	_, err := p.pool.Exec(ctx, `DELETE FROM metalprice_kv WHERE key = $1`, keySnapshot)
	return eris.Wrap(err, "postgres: delete snapshot")
}

func (p *Postgres) Purge(ctx context.Context) error {
	_, err := p.pool.Exec(ctx, `DELETE FROM metalprice_kv WHERE key = ANY($1)`, []string{keyEndpoint, keySnapshot})
	return eris.Wrap(err, "postgres: purge")
}
