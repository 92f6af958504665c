package handlers

import (
	"net/http"

	"taskboard/backend/internal/middleware"
	"taskboard/backend/internal/realtime"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

type WebSocketHandler struct {
	hub      *realtime.Hub
	upgrader websocket.Upgrader
	logger   *log.Logger
}

// NewWebSocketHandler accepts upgrades only from the given origins. An empty
// list or "*" allows any origin.
func NewWebSocketHandler(hub *realtime.Hub, allowedOrigins []string, logger *log.Logger) *WebSocketHandler {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &WebSocketHandler{
		hub:    hub,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
	}
}

func originChecker(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || len(allowed) == 0 {
			return true
		}
		for _, o := range allowed {
			if o == "*" || o == origin {
				return true
			}
		}
		return false
	}
}

// ServeWS streams board events for one workspace. Membership is checked by
// middleware.WorkspaceAccess before the upgrade.
func (h *WebSocketHandler) ServeWS(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}
	workspaceID, ok := pathID(c, "workspace_id", "workspace")
	if !ok {
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.WithError(err).WithField("workspace_id", workspaceID).Warn("websocket upgrade failed")
		return
	}

	realtime.NewClient(h.hub, conn, workspaceID, userID).Serve()
}
