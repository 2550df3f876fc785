package balancer

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Controller exposes the Balancer over HTTP.
type Controller struct {
	balancer *Balancer
}

// NewController initializes a Controller.
func NewController(b *Balancer) *Controller {
	return &Controller{balancer: b}
}

// DisconnectRequest names the server leaving the pool.
type DisconnectRequest struct {
	URL string `json:"url" binding:"required"`
}

// JoinResponse carries the server a player should connect to.
type JoinResponse struct {
	URL string `json:"url"`
}

// Register registers the balancer routes.
func (c *Controller) Register(route *gin.RouterGroup) {
	route.POST("/connect", c.connect)
	route.POST("/disconnect", c.disconnect)
	route.POST("/update", c.update)
	route.GET("/join-game", c.joinGame)
	route.GET("/servers", c.servers)
}

func (c *Controller) connect(ctx *gin.Context) {
	var info ServerInfo
	if err := ctx.ShouldBindJSON(&info); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := c.balancer.Connect(ctx, info); err != nil {
		writeError(ctx, err)
		return
	}
	ctx.Status(http.StatusCreated)
}

func (c *Controller) disconnect(ctx *gin.Context) {
	var req DisconnectRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := c.balancer.Disconnect(ctx, req.URL); err != nil {
		writeError(ctx, err)
		return
	}
	ctx.Status(http.StatusOK)
}

func (c *Controller) update(ctx *gin.Context) {
	var info ServerInfo
	if err := ctx.ShouldBindJSON(&info); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := c.balancer.Update(ctx, info); err != nil {
		writeError(ctx, err)
		return
	}
	ctx.Status(http.StatusOK)
}

func (c *Controller) joinGame(ctx *gin.Context) {
	url, err := c.balancer.JoinGame(ctx)
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, JoinResponse{URL: url})
}

func (c *Controller) servers(ctx *gin.Context) {
	servers, err := c.balancer.Servers(ctx)
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, servers)
}

func writeError(ctx *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, ErrDuplicateServer):
		status = http.StatusConflict
	case errors.Is(err, ErrUnknownServer):
		status = http.StatusNotFound
	case errors.Is(err, ErrNoServers):
		status = http.StatusServiceUnavailable
	}
	ctx.JSON(status, gin.H{"error": err.Error()})
}
