package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Controller registers a group of routes.
type Controller interface {
	Register(*gin.RouterGroup)
}

// Router manages the HTTP server and its controllers.
type Router struct {
	addr        string
	baseURL     string
	controllers []Controller
	engine      *gin.Engine
	server      *http.Server
}

// Config holds configuration settings for creating a new Router instance.
type Config struct {
	Addr        string // Address to listen on
	BaseURL     string // Base URL for routes, e.g. /api/v1
	Mode        string // gin mode: release, debug or test
	Controllers []Controller
}

// NewRouter creates a Router and registers every controller under the base URL.
func NewRouter(config Config) *Router {
	if config.Mode != "" {
		gin.SetMode(config.Mode)
	}
	engine := gin.New()
	engine.Use(gin.Logger(), gin.Recovery())

	r := &Router{
		addr:        config.Addr,
		baseURL:     config.BaseURL,
		controllers: config.Controllers,
		engine:      engine,
	}

	group := engine.Group(r.baseURL)
	for _, c := range r.controllers {
		c.Register(group)
	}
	engine.GET("/healthz", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	return r
}

// Handler exposes the routes, mostly for tests.
func (r *Router) Handler() http.Handler {
	return r.engine
}

// Run serves HTTP until Shutdown is called.
func (r *Router) Run() error {
	r.server = &http.Server{Addr: r.addr, Handler: r.engine}
	if err := r.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Close stops the HTTP server immediately.
func (r *Router) Close() error {
	if r.server == nil {
		return nil
	}
	return r.server.Close()
}
