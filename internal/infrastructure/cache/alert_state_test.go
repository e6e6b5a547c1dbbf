package cache

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pharmaledger/internal/core/id"
	"pharmaledger/internal/infrastructure/storage/postgres"
)

// fakeRedis implements the few commands used here; other methods panic.
type fakeRedis struct {
	redis.Cmdable
	keys      map[string]time.Duration
	published map[string][]any
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{keys: map[string]time.Duration{}, published: map[string][]any{}}
}

func (f *fakeRedis) SetNX(ctx context.Context, key string, _ any, ttl time.Duration) *redis.BoolCmd {
	cmd := redis.NewBoolCmd(ctx)
	_, exists := f.keys[key]
	if !exists {
		f.keys[key] = ttl
	}
	cmd.SetVal(!exists)
	return cmd
}

func (f *fakeRedis) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	cmd := redis.NewIntCmd(ctx)
	var n int64
	for _, k := range keys {
		if _, ok := f.keys[k]; ok {
			delete(f.keys, k)
			n++
		}
	}
	cmd.SetVal(n)
	return cmd
}

func (f *fakeRedis) Publish(ctx context.Context, channel string, message any) *redis.IntCmd {
	cmd := redis.NewIntCmd(ctx)
	f.published[channel] = append(f.published[channel], message)
	cmd.SetVal(1)
	return cmd
}

func TestAlertState(t *testing.T) {
	ctx := context.Background()
	rdb := newFakeRedis()
	state := NewAlertState(rdb)
	itemID := id.New()

	first, err := state.MarkFlagged(ctx, itemID, time.Hour)
	require.NoError(t, err)
	assert.True(t, first)
	assert.Equal(t, time.Hour, rdb.keys[alertKeyPrefix+itemID.String()])

	again, err := state.MarkFlagged(ctx, itemID, time.Hour)
	require.NoError(t, err)
	assert.False(t, again, "second low reading within the TTL is not new")

	require.NoError(t, state.Clear(ctx, itemID))
	afterClear, err := state.MarkFlagged(ctx, itemID, time.Hour)
	require.NoError(t, err)
	assert.True(t, afterClear)
}

func TestEventPublisher_Handle(t *testing.T) {
	rdb := newFakeRedis()
	pub := NewEventPublisher(rdb)

	msg := &postgres.OutboxMessage{
		ID:        id.New(),
		EventType: "LowStockDetected",
		Payload:   []byte(`{"itemId":"x"}`),
	}
	require.NoError(t, pub.Handle(context.Background(), msg))

	got := rdb.published[EventChannelPrefix+"LowStockDetected"]
	require.Len(t, got, 1)
	assert.Equal(t, msg.Payload, got[0])
}
