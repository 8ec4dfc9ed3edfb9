package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"
)

// SQLite implements Store using modernc.org/sqlite.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLite, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLite{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS metalprice_kv (
	key        TEXT PRIMARY KEY,
	value      BLOB NOT NULL,
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);
`

func (s *SQLite) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

func (s *SQLite) get(ctx context.Context, key string) ([]byte, error) {
	var v []byte
	err := s.db.QueryRowContext(ctx, `SELECT value FROM metalprice_kv WHERE key = ?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get %s", key)
	}
	return v, nil
}

func (s *SQLite) put(ctx context.Context, key string, value []byte) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO metalprice_kv (key, value, updated_at) VALUES (?, ?, datetime('now'))
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value)
	return eris.Wrapf(err, "sqlite: put %s", key)
}

func (s *SQLite) Endpoint(ctx context.Context) (string, error) {
	v, err := s.get(ctx, keyEndpoint)
	if err != nil {
		return "", err
	}
	return string(v), nil
}

func (s *SQLite) SetEndpoint(ctx context.Context, url string) error {
	return s.put(ctx, keyEndpoint, []byte(url))
}

func (s *SQLite) Snapshot(ctx context.Context) (*Snapshot, error) {
	v, err := s.get(ctx, keySnapshot)
	if err != nil || v == nil {
		return nil, err
	}
	return decodeSnapshot(v)
}

func (s *SQLite) PutSnapshot(ctx context.Context, snap Snapshot) error {
	b, err := encodeSnapshot(snap)
	if err != nil {
		return err
	}
	return s.put(ctx, keySnapshot, b)
}

func (s *SQLite) DeleteSnapshot(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM metalprice_kv WHERE key = ?`, keySnapshot)
	return eris.Wrap(err, "sqlite: delete snapshot")
}

func (s *SQLite) Purge(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM metalprice_kv WHERE key IN (?, ?)`, keyEndpoint, keySnapshot)
	return eris.Wrap(err, "sqlite: purge")
}
