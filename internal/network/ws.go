package network

import (
	"log"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/amalg/dci-bomberman/internal/room"
)

var upgrader = websocket.Upgrader{
	// Browser clients are served from other origins.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// WSHandler serves game clients over WebSocket and reports the server's
// rooms. It is registered on the HTTP router like any other controller.
type WSHandler struct {
	rooms  *room.Manager
	admin  Authorizer
	url    string
	logger *log.Logger
}

// NewWSHandler creates a handler. url is how this server is reached; it is
// echoed in the info report.
func NewWSHandler(rooms *room.Manager, url string, admin Authorizer, logger *log.Logger) *WSHandler {
	if logger == nil {
		logger = log.New(os.Stderr, "[SERVER] ", log.LstdFlags)
	}
	return &WSHandler{rooms: rooms, admin: admin, url: url, logger: logger}
}

// Register registers the WebSocket and info routes.
func (h *WSHandler) Register(route *gin.RouterGroup) {
	route.GET("/ws", h.serveWS)
	route.GET("/info", h.info)
}

func (h *WSHandler) serveWS(ctx *gin.Context) {
	conn, err := upgrader.Upgrade(ctx.Writer, ctx.Request, nil)
	if err != nil {
		h.logger.Printf("WebSocket upgrade: %v", err)
		return
	}
	serveSession(newWSTransport(conn), h.rooms, h.admin, h.logger)
}

func (h *WSHandler) info(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, h.rooms.Info(h.url))
}
