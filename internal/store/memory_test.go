package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"metalprice/internal/provider"
)

func sampleSnapshot() Snapshot {
	return Snapshot{
		Record: provider.PriceRecord{
			GoldPerOunce:     2685.45,
			SilverPerOunce:   31.89,
			PlatinumPerOunce: 967.5,
			TimestampMillis:  1700000000000,
			Provider:         provider.GoldPrice,
		},
		CachedAt: time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

// exerciseStore runs the shared lifecycle against any backend.
func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	ep, err := s.Endpoint(ctx)
	require.NoError(t, err)
	assert.Empty(t, ep)

	snap, err := s.Snapshot(ctx)
	require.NoError(t, err)
	assert.Nil(t, snap)

	require.NoError(t, s.SetEndpoint(ctx, "https://data-asg.goldprice.org/dbXRates/EUR"))
	require.NoError(t, s.PutSnapshot(ctx, sampleSnapshot()))

	ep, err = s.Endpoint(ctx)
	require.NoError(t, err)
	assert.Equal(t, "https://data-asg.goldprice.org/dbXRates/EUR", ep)

	snap, err = s.Snapshot(ctx)
	require.NoError(t, err)
	require.NotNil(t, snap)
	assert.Equal(t, sampleSnapshot().Record, snap.Record)
	assert.True(t, sampleSnapshot().CachedAt.Equal(snap.CachedAt))

	require.NoError(t, s.DeleteSnapshot(ctx))
	snap, err = s.Snapshot(ctx)
	require.NoError(t, err)
	assert.Nil(t, snap)

	require.NoError(t, s.PutSnapshot(ctx, sampleSnapshot()))
	require.NoError(t, s.Purge(ctx))

	ep, err = s.Endpoint(ctx)
	require.NoError(t, err)
	assert.Empty(t, ep)
	snap, err = s.Snapshot(ctx)
	require.NoError(t, err)
	assert.Nil(t, snap)
}

func TestMemory(t *testing.T) {
	exerciseStore(t, NewMemory())
}

func TestOpen_Memory(t *testing.T) {
	s, err := Open(context.Background(), Options{})
	require.NoError(t, err)
	assert.IsType(t, &Memory{}, s)
	assert.NoError(t, s.Close())
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), Options{Driver: "etcd"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown driver")
}

func TestSnapshotCodec(t *testing.T) {
	b, err := encodeSnapshot(sampleSnapshot())
	require.NoError(t, err)

	got, err := decodeSnapshot(b)
	require.NoError(t, err)
	assert.Equal(t, sampleSnapshot().Record, got.Record)

	_, err = decodeSnapshot([]byte{0xc1})
	assert.Error(t, err)
}
