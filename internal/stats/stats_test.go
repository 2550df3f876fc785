package stats

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amalg/dci-bomberman/internal/game"
)

type published struct {
	channel string
	update  Update
}

// fakeRedis records counters and published messages in memory.
type fakeRedis struct {
	hashes    map[string]map[string]int64
	published []published
	failIncr  bool
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{hashes: map[string]map[string]int64{}}
}

func (f *fakeRedis) HIncrBy(_ context.Context, key, field string, incr int64) *redis.IntCmd {
	if f.failIncr {
		return redis.NewIntResult(0, errors.New("connection refused"))
	}
	if f.hashes[key] == nil {
		f.hashes[key] = map[string]int64{}
	}
	f.hashes[key][field] += incr
	return redis.NewIntResult(f.hashes[key][field], nil)
}

func (f *fakeRedis) Publish(_ context.Context, channel string, message interface{}) *redis.IntCmd {
	var u Update
	_ = json.Unmarshal(message.([]byte), &u)
	f.published = append(f.published, published{channel: channel, update: u})
	return redis.NewIntResult(1, nil)
}

func (f *fakeRedis) HGetAll(_ context.Context, key string) *redis.MapStringStringCmd {
	out := map[string]string{}
	for k, v := range f.hashes[key] {
		out[k] = strconv.FormatInt(v, 10)
	}
	return redis.NewMapStringStringResult(out, nil)
}

func quietLogger() *log.Logger { return log.New(io.Discard, "", 0) }

func TestRecordGame(t *testing.T) {
	ctx := context.Background()

	t.Run("winner and kills", func(t *testing.T) {
		fake := newFakeRedis()
		rec := NewRecorder(fake, quietLogger())

		err := rec.RecordGame(ctx, game.Result{
			Winner:  "p1",
			Players: []string{"p1", "p2", "p3"},
			Kills:   map[string]int{"p1": 2},
		})
		require.NoError(t, err)
		require.NoError(t, rec.RecordGame(ctx, game.Result{Winner: "p1", Players: []string{"p1"}}))

		assert.Equal(t, int64(2), fake.hashes[WinnerKey]["p1"])
		assert.Equal(t, int64(2), fake.hashes[KillsKey]["p1"])
		assert.Equal(t, []published{
			{WinnerKey, Update{Player: "p1", Value: 1}},
			{KillsKey, Update{Player: "p1", Value: 2}},
			{WinnerKey, Update{Player: "p1", Value: 2}},
		}, fake.published)
	})

	t.Run("draw records no winner", func(t *testing.T) {
		fake := newFakeRedis()
		rec := NewRecorder(fake, quietLogger())

		require.NoError(t, rec.RecordGame(ctx, game.Result{Players: []string{"p1", "p2"}}))
		assert.Empty(t, fake.hashes[WinnerKey])
		assert.Empty(t, fake.published)
	})

	t.Run("redis failure", func(t *testing.T) {
		fake := newFakeRedis()
		fake.failIncr = true
		rec := NewRecorder(fake, quietLogger())

		err := rec.RecordGame(ctx, game.Result{Winner: "p1"})
		assert.ErrorContains(t, err, WinnerKey)
	})
}

func TestLeaderboard(t *testing.T) {
	fake := newFakeRedis()
	fake.hashes[WinnerKey] = map[string]int64{"alice": 3, "bob": 3, "carol": 1}
	fake.hashes[KillsKey] = map[string]int64{"bob": 5, "dave": 9}

	board := NewLeaderboard(quietLogger())
	require.NoError(t, board.Load(context.Background(), fake))

	top := board.Top(0)
	require.Len(t, top, 4)
	assert.Equal(t, Entry{Player: "bob", Wins: 3, Kills: 5}, top[0])
	assert.Equal(t, "alice", top[1].Player)
	assert.Equal(t, "carol", top[2].Player)
	assert.Equal(t, Entry{Player: "dave", Kills: 9}, top[3])

	board.Apply(WinnerKey, Update{Player: "dave", Value: 4})
	assert.Equal(t, "dave", board.Top(1)[0].Player)
	assert.Len(t, board.Top(2), 2)
}

func TestLeaderboardController(t *testing.T) {
	gin.SetMode(gin.TestMode)
	board := NewLeaderboard(quietLogger())
	board.Apply(WinnerKey, Update{Player: "alice", Value: 2})
	board.Apply(KillsKey, Update{Player: "bob", Value: 7})

	engine := gin.New()
	NewController(board).Register(engine.Group("/api/v1"))

	t.Run("list", func(t *testing.T) {
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/leaderboard?limit=1", nil))
		require.Equal(t, http.StatusOK, w.Code)

		var entries []Entry
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &entries))
		assert.Equal(t, []Entry{{Player: "alice", Wins: 2}}, entries)
	})

	t.Run("bad limit", func(t *testing.T) {
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/leaderboard?limit=x", nil))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
