package balancer

import (
	"context"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeHash is an in-memory stand-in for the Redis hash commands.
type fakeHash struct {
	data map[string]map[string]string
}

func newFakeHash() *fakeHash {
	return &fakeHash{data: make(map[string]map[string]string)}
}

func (f *fakeHash) hash(key string) map[string]string {
	if f.data[key] == nil {
		f.data[key] = make(map[string]string)
	}
	return f.data[key]
}

func (f *fakeHash) HSetNX(_ context.Context, key, field string, value interface{}) *redis.BoolCmd {
	h := f.hash(key)
	if _, ok := h[field]; ok {
		return redis.NewBoolResult(false, nil)
	}
	h[field] = string(value.([]byte))
	return redis.NewBoolResult(true, nil)
}

func (f *fakeHash) HSet(_ context.Context, key string, values ...interface{}) *redis.IntCmd {
	h := f.hash(key)
	h[values[0].(string)] = string(values[1].([]byte))
	return redis.NewIntResult(1, nil)
}

func (f *fakeHash) HExists(_ context.Context, key, field string) *redis.BoolCmd {
	_, ok := f.hash(key)[field]
	return redis.NewBoolResult(ok, nil)
}

func (f *fakeHash) HDel(_ context.Context, key string, fields ...string) *redis.IntCmd {
	h := f.hash(key)
	var n int64
	for _, field := range fields {
		if _, ok := h[field]; ok {
			delete(h, field)
			n++
		}
	}
	return redis.NewIntResult(n, nil)
}

func (f *fakeHash) HGetAll(_ context.Context, key string) *redis.MapStringStringCmd {
	out := make(map[string]string)
	for k, v := range f.hash(key) {
		out[k] = v
	}
	return redis.NewMapStringStringResult(out, nil)
}

func TestRedisStore(t *testing.T) {
	ctx := context.Background()
	fake := newFakeHash()
	store := NewRedisStore(fake)

	require.NoError(t, store.Add(ctx, ServerInfo{URL: "b:1", GameCount: 2}))
	require.NoError(t, store.Add(ctx, ServerInfo{URL: "a:1", GameCount: 1}))
	assert.ErrorIs(t, store.Add(ctx, ServerInfo{URL: "a:1"}), ErrDuplicateServer)

	require.NoError(t, store.Update(ctx, ServerInfo{URL: "a:1", GameCount: 4, Games: []GameInfo{{ID: "g1", Players: []string{"p1"}}}}))
	assert.ErrorIs(t, store.Update(ctx, ServerInfo{URL: "z:1"}), ErrUnknownServer)

	servers, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, servers, 2)
	assert.Equal(t, "a:1", servers[0].URL)
	assert.Equal(t, 4, servers[0].GameCount)
	assert.Equal(t, []string{"p1"}, servers[0].Games[0].Players)
	assert.Contains(t, fake.data, ServersKey)

	require.NoError(t, store.Remove(ctx, "a:1"))
	assert.ErrorIs(t, store.Remove(ctx, "a:1"), ErrUnknownServer)
}
