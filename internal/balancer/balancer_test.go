package balancer

import (
	"context"
	"io"
	"log"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBalancer(t *testing.T, servers ...ServerInfo) *Balancer {
	t.Helper()
	b := New(NewMemoryStore(), nil, log.New(io.Discard, "", 0))
	for _, s := range servers {
		require.NoError(t, b.Connect(context.Background(), s))
	}
	return b
}

func TestBalancerConnect(t *testing.T) {
	ctx := context.Background()
	b := newTestBalancer(t, ServerInfo{URL: "a:1"})

	t.Run("duplicate", func(t *testing.T) {
		assert.ErrorIs(t, b.Connect(ctx, ServerInfo{URL: "a:1"}), ErrDuplicateServer)
	})

	t.Run("update unknown", func(t *testing.T) {
		assert.ErrorIs(t, b.Update(ctx, ServerInfo{URL: "b:1"}), ErrUnknownServer)
	})

	t.Run("disconnect", func(t *testing.T) {
		require.NoError(t, b.Disconnect(ctx, "a:1"))
		assert.ErrorIs(t, b.Disconnect(ctx, "a:1"), ErrUnknownServer)
	})

	t.Run("observe connects unknown", func(t *testing.T) {
		require.NoError(t, b.Observe(ctx, ServerInfo{URL: "c:1", GameCount: 2}))
		require.NoError(t, b.Observe(ctx, ServerInfo{URL: "c:1", GameCount: 3}))

		servers, err := b.Servers(ctx)
		require.NoError(t, err)
		require.Len(t, servers, 1)
		assert.Equal(t, 3, servers[0].GameCount)
	})
}

func TestJoinGame(t *testing.T) {
	ctx := context.Background()

	t.Run("no servers", func(t *testing.T) {
		b := newTestBalancer(t)
		_, err := b.JoinGame(ctx)
		assert.ErrorIs(t, err, ErrNoServers)
	})

	t.Run("lowest game count", func(t *testing.T) {
		b := newTestBalancer(t,
			ServerInfo{URL: "a:1", GameCount: 3},
			ServerInfo{URL: "b:1", GameCount: 1},
			ServerInfo{URL: "c:1", GameCount: 2},
		)
		url, err := b.JoinGame(ctx)
		require.NoError(t, err)
		assert.Equal(t, "b:1", url)
	})

	t.Run("reservation spreads ties", func(t *testing.T) {
		b := newTestBalancer(t,
			ServerInfo{URL: "a:1", GameCount: 1},
			ServerInfo{URL: "b:1", GameCount: 1},
		)
		first, err := b.JoinGame(ctx)
		require.NoError(t, err)
		second, err := b.JoinGame(ctx)
		require.NoError(t, err)
		assert.NotEqual(t, first, second)
	})

	t.Run("concurrent joins", func(t *testing.T) {
		b := newTestBalancer(t, ServerInfo{URL: "a:1"}, ServerInfo{URL: "b:1"})

		var wg sync.WaitGroup
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := b.JoinGame(ctx)
				assert.NoError(t, err)
			}()
		}
		wg.Wait()

		servers, err := b.Servers(ctx)
		require.NoError(t, err)
		assert.Equal(t, 5, servers[0].PlayerCount)
		assert.Equal(t, 5, servers[1].PlayerCount)
	})
}
