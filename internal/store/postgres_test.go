package store

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newMockPostgres creates a Postgres store backed by pgxmock for unit testing.
func newMockPostgres(t *testing.T) (*Postgres, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	return NewPostgresWithPool(mock), mock
}

func TestPostgres_Migrate(t *testing.T) {
	s, mock := newMockPostgres(t)

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS metalprice_kv`).
		WillReturnResult(pgxmock.NewResult("CREATE TABLE", 0))

	require.NoError(t, s.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_Endpoint_NotFound(t *testing.T) {
	s, mock := newMockPostgres(t)

	mock.ExpectQuery(`SELECT value FROM metalprice_kv WHERE key = \$1`).
		WithArgs("endpoint").
		WillReturnError(pgx.ErrNoRows)

	ep, err := s.Endpoint(context.Background())
	require.NoError(t, err)
	assert.Empty(t, ep)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_SetEndpoint(t *testing.T) {
	s, mock := newMockPostgres(t)

	mock.ExpectExec(`INSERT INTO metalprice_kv`).
		WithArgs("endpoint", []byte("https://metals-api.com/api/latest?base=GBP")).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, s.SetEndpoint(context.Background(), "https://metals-api.com/api/latest?base=GBP"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_Snapshot(t *testing.T) {
	s, mock := newMockPostgres(t)
	encoded, err := encodeSnapshot(sampleSnapshot())
	require.NoError(t, err)

	mock.ExpectQuery(`SELECT value FROM metalprice_kv WHERE key = \$1`).
		WithArgs("snapshot").
		WillReturnRows(pgxmock.NewRows([]string{"value"}).AddRow(encoded))

	snap, err := s.Snapshot(context.Background())
	require.NoError(t, err)
	require.NotNil(t, snap)
	assert.Equal(t, sampleSnapshot().Record, snap.Record)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_PutSnapshot(t *testing.T) {
	s, mock := newMockPostgres(t)

	mock.ExpectExec(`INSERT INTO metalprice_kv`).
		WithArgs("snapshot", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, s.PutSnapshot(context.Background(), sampleSnapshot()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_QueryError(t *testing.T) {
	s, mock := newMockPostgres(t)

	mock.ExpectQuery(`SELECT value FROM metalprice_kv`).
		WithArgs("snapshot").
		WillReturnError(errors.New("connection reset"))

	_, err := s.Snapshot(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "postgres: get snapshot")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_DeleteAndPurge(t *testing.T) {
	s, mock := newMockPostgres(t)

	mock.ExpectExec(`DELETE FROM metalprice_kv WHERE key = \$1`).
		WithArgs("snapshot").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectExec(`DELETE FROM metalprice_kv WHERE key = ANY`).
		WithArgs(pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("DELETE", 2))

	require.NoError(t, s.DeleteSnapshot(context.Background()))
	require.NoError(t, s.Purge(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
