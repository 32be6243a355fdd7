package websocket

import (
	"net/http"

	"fieldserve-service/internal/pkg/response"
	authService "fieldserve-service/internal/service/auth"
	ws "fieldserve-service/internal/websocket"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The dashboard is served from a different origin than the API.
	CheckOrigin: func(r *http.Request) bool { return true },
}

type WebSocketHandler struct {
	hub         *ws.Hub
	authService *authService.AuthService
	logger      *zap.Logger
}

func NewWebSocketHandler(hub *ws.Hub, auth *authService.AuthService, logger *zap.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		hub:         hub,
		authService: auth,
		logger:      logger,
	}
}

// HandleConnection upgrades an authenticated request to a websocket and
// registers it with the hub. Browsers cannot set headers on websocket
// requests, so the token arrives as a query param.
func (h *WebSocketHandler) HandleConnection(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		response.Error(c, http.StatusUnauthorized, "missing token", nil)
		return
	}

	claims, err := h.authService.ValidateToken(c.Request.Context(), token)
	if err != nil {
		response.Error(c, http.StatusUnauthorized, "invalid or expired token", err)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	client := ws.NewClient(h.hub, conn, claims.UserID, h.logger)
	h.hub.Register(client)

	go client.WritePump()
	go client.ReadPump()
}
