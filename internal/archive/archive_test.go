package archive

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amalg/dci-bomberman/internal/game"
)

var t0 = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

func TestArchiver(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepo()
	a := NewArchiver(repo)
	a.now = func() time.Time { return t0 }

	t.Run("finished game", func(t *testing.T) {
		err := a.RecordGame(ctx, game.Result{
			GameID:    "g1",
			Winner:    "p1",
			Players:   []string{"p1", "p2"},
			Kills:     map[string]int{"p1": 1},
			StartedAt: t0.Add(-time.Minute),
			EndedAt:   t0.Add(-time.Second),
		})
		require.NoError(t, err)

		recent, err := repo.Recent(ctx, 0)
		require.NoError(t, err)
		require.Len(t, recent, 1)
		assert.Equal(t, "p1", recent[0].Winner)
		assert.Equal(t, 1, recent[0].Kills["p1"])
	})

	t.Run("missing times default to now", func(t *testing.T) {
		require.NoError(t, a.RecordGame(ctx, game.Result{GameID: "g2", Players: []string{"p3"}}))

		recent, err := repo.Recent(ctx, 1)
		require.NoError(t, err)
		require.Len(t, recent, 1)
		assert.Equal(t, "g2", recent[0].ID)
		assert.Equal(t, t0, recent[0].EndedAt)
		assert.Equal(t, t0, recent[0].StartedAt)
	})

	t.Run("save replaces by id", func(t *testing.T) {
		require.NoError(t, repo.Save(ctx, MatchRecord{ID: "g2", Winner: "p3", EndedAt: t0}))
		recent, err := repo.Recent(ctx, 0)
		require.NoError(t, err)
		assert.Len(t, recent, 2)
	})
}

func TestController(t *testing.T) {
	gin.SetMode(gin.TestMode)
	repo := NewMemoryRepo()
	for i, id := range []string{"old", "mid", "new"} {
		require.NoError(t, repo.Save(context.Background(), MatchRecord{ID: id, EndedAt: t0.Add(time.Duration(i) * time.Minute)}))
	}

	engine := gin.New()
	NewController(repo).Register(engine.Group("/api/v1"))

	t.Run("newest first", func(t *testing.T) {
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/matches?limit=2", nil))
		require.Equal(t, http.StatusOK, w.Code)

		var matches []MatchRecord
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &matches))
		require.Len(t, matches, 2)
		assert.Equal(t, "new", matches[0].ID)
		assert.Equal(t, "mid", matches[1].ID)
	})

	t.Run("bad limit", func(t *testing.T) {
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/matches?limit=-1", nil))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
