package store

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rotisserie/eris"
)

const redisNamespace = "metalprice"

// Redis stores state under namespaced keys. Snapshots are msgpack encoded and
// expire after the configured TTL.
type Redis struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewRedis connects to addr and verifies the connection with PING.
func NewRedis(ctx context.Context, addr, password string, db int, ttl time.Duration) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, eris.Wrapf(err, "redis: ping %s", addr)
	}
	return NewRedisWithClient(client, ttl), nil
}

// NewRedisWithClient wraps an existing client.
func NewRedisWithClient(client redis.UniversalClient, ttl time.Duration) *Redis {
	return &Redis{client: client, ttl: ttl}
}

func formatKey(name string) string {
	return redisNamespace + ":" + name
}

func (r *Redis) Endpoint(ctx context.Context) (string, error) {
	v, err := r.client.Get(ctx, formatKey(keyEndpoint)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", eris.Wrap(err, "redis: get endpoint")
	}
	return v, nil
}

func (r *Redis) SetEndpoint(ctx context.Context, url string) error {
	return eris.Wrap(r.client.Set(ctx, formatKey(keyEndpoint), url, 0).Err(), "redis: set endpoint")
}

func (r *Redis) Snapshot(ctx context.Context) (*Snapshot, error) {
	b, err := r.client.Get(ctx, formatKey(keySnapshot)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "redis: get snapshot")
	}
	return decodeSnapshot(b)
}

func (r *Redis) PutSnapshot(ctx context.Context, snap Snapshot) error {
	b, err := encodeSnapshot(snap)
	if err != nil {
		return err
	}
	return eris.Wrap(r.client.Set(ctx, formatKey(keySnapshot), b, r.ttl).Err(), "redis: set snapshot")
}

func (r *Redis) DeleteSnapshot(ctx context.Context) error {
	return eris.Wrap(r.client.Del(ctx, formatKey(keySnapshot)).Err(), "redis: delete snapshot")
}

func (r *Redis) Purge(ctx context.Context) error {
	return eris.Wrap(r.client.Del(ctx, formatKey(keyEndpoint), formatKey(keySnapshot)).Err(), "redis: purge")
}

func (r *Redis) Close() error {
	return r.client.Close()
}
