package routes

import (
	"github.com/gin-gonic/gin"
	gorilla "github.com/gorilla/websocket"

	"home-services-server/middleware"
	"home-services-server/websocket"
)

type WebSocketHandler struct {
	hub      *websocket.Hub
	upgrader *gorilla.Upgrader
}

func NewWebSocketHandler(hub *websocket.Hub, allowedOrigins []string) *WebSocketHandler {
	return &WebSocketHandler{hub: hub, upgrader: websocket.Upgrader(allowedOrigins)}
}

// RegisterRoutes expects router to authenticate with the token query parameter
func (h *WebSocketHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("", h.connect)
}

func (h *WebSocketHandler) connect(c *gin.Context) {
	account := middleware.CurrentAccount(c)
	websocket.ServeWebSocket(h.hub, h.upgrader, c.Writer, c.Request, account.ID, string(account.Role))
}
