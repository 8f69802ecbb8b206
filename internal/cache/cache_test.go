package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type item struct {
	Level string  `json:"level"`
	Score float64 `json:"score"`
}

func newTestRedis(t *testing.T) (*Redis, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisFromClient(client, time.Minute), mr
}

func TestRedis_TakeIsOneTime(t *testing.T) {
	c, mr := newTestRedis(t)
	ctx := context.Background()

	require.NoError(t, c.Put(ctx, "evaluation_s1", item{Level: "B1", Score: 6.5}))
	assert.Equal(t, time.Minute, mr.TTL("evaluation_s1"))

	var got item
	require.NoError(t, c.Take(ctx, "evaluation_s1", &got))
	assert.Equal(t, item{Level: "B1", Score: 6.5}, got)

	assert.ErrorIs(t, c.Take(ctx, "evaluation_s1", &got), ErrMiss)
	assert.False(t, mr.Exists("evaluation_s1"))
}

func TestRedis_Expiry(t *testing.T) {
	c, mr := newTestRedis(t)
	ctx := context.Background()
	require.NoError(t, c.Put(ctx, "k", item{}))
	mr.FastForward(2 * time.Minute)
	assert.ErrorIs(t, c.Take(ctx, "k", &item{}), ErrMiss)
}

func TestNewRedis_URL(t *testing.T) {
	mr := miniredis.RunT(t)
	c, err := NewRedis(context.Background(), "redis://"+mr.Addr()+"/0", time.Minute)
	require.NoError(t, err)
	defer c.Close()

	_, err = NewRedis(context.Background(), "::not a url", time.Minute)
	assert.Error(t, err)
}

func TestMemory_TakeAndExpiry(t *testing.T) {
	now := time.Unix(0, 0)
	m := NewMemory(time.Minute, 0)
	m.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, m.Put(ctx, "a", item{Level: "C1"}))
	var got item
	require.NoError(t, m.Take(ctx, "a", &got))
	assert.Equal(t, "C1", got.Level)
	assert.ErrorIs(t, m.Take(ctx, "a", &got), ErrMiss)

	require.NoError(t, m.Put(ctx, "b", item{}))
	now = now.Add(2 * time.Minute)
	assert.ErrorIs(t, m.Take(ctx, "b", &got), ErrMiss)
	assert.Zero(t, m.Len())
}

func TestMemory_EvictsOldest(t *testing.T) {
	now := time.Unix(0, 0)
	m := NewMemory(time.Hour, 2)
	m.now = func() time.Time { now = now.Add(time.Second); return now }
	ctx := context.Background()

	require.NoError(t, m.Put(ctx, "first", item{}))
	require.NoError(t, m.Put(ctx, "second", item{}))
	require.NoError(t, m.Put(ctx, "third", item{}))
	assert.Equal(t, 2, m.Len())
	assert.ErrorIs(t, m.Take(ctx, "first", &item{}), ErrMiss)
	assert.NoError(t, m.Take(ctx, "third", &item{}))
}
