package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

type pingController struct{}

func (pingController) Register(rg *gin.RouterGroup) {
	rg.GET("/ping", func(ctx *gin.Context) { ctx.String(http.StatusOK, "pong") })
}

func TestRouter(t *testing.T) {
	r := NewRouter(Config{
		BaseURL:     "/api/v1",
		Mode:        gin.TestMode,
		Controllers: []Controller{pingController{}},
	})

	t.Run("controller under base url", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/ping", nil))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "pong", w.Body.String())
	})

	t.Run("health", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("unknown route", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	assert.NoError(t, r.Close())
}
