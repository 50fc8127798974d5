package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"cybershield/internal/hub"
	"cybershield/internal/middleware"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Origin checking is delegated to the reverse proxy.
		return true
	},
}

type WSHandler interface {
	Connect(c *gin.Context)
}

type wsHandler struct {
	hub    *hub.Hub
	logger *zap.Logger
}

func NewWSHandler(h *hub.Hub, logger *zap.Logger) WSHandler {
	return &wsHandler{hub: h, logger: logger}
}

// Connect handles GET /api/ws — upgrades the authenticated request to a
// websocket connection and registers it with the dispatch hub.
func (h *wsHandler) Connect(c *gin.Context) {
	userID := middleware.UserID(c)

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("Failed to upgrade connection to websocket",
			zap.Int64("user_id", userID),
			zap.Error(err))
		return
	}

	client := hub.NewClient(h.hub, conn, userID, h.logger)
	h.hub.Register(userID, client)

	go client.WritePump()
	go client.ReadPump()
}
