package archive

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// Controller serves the match history.
type Controller struct {
	repo Repo
}

// NewController initializes a Controller.
func NewController(repo Repo) *Controller {
	return &Controller{repo: repo}
}

// Register registers the archive routes.
func (c *Controller) Register(route *gin.RouterGroup) {
	route.GET("/matches", c.recent)
}

func (c *Controller) recent(ctx *gin.Context) {
	limit, err := strconv.Atoi(ctx.DefaultQuery("limit", "20"))
	if err != nil || limit < 0 {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a non-negative integer"})
		return
	}

	matches, err := c.repo.Recent(ctx, limit)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "error while loading matches"})
		return
	}
	if matches == nil {
		matches = []MatchRecord{}
	}
	ctx.JSON(http.StatusOK, matches)
}
