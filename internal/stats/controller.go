package stats

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// Controller serves the leaderboard.
type Controller struct {
	board *Leaderboard
}

// NewController initializes a Controller.
func NewController(board *Leaderboard) *Controller {
	return &Controller{board: board}
}

// Register registers the leaderboard routes.
func (c *Controller) Register(route *gin.RouterGroup) {
	route.GET("/leaderboard", c.top)
}

func (c *Controller) top(ctx *gin.Context) {
	limit := 10
	if s := ctx.Query("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a non-negative integer"})
			return
		}
		limit = n
	}
	ctx.JSON(http.StatusOK, c.board.Top(limit))
}
