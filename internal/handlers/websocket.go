package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/thereayou/building-chat/internal/config"
	"github.com/thereayou/building-chat/internal/middleware"
	ws "github.com/thereayou/building-chat/internal/websocket"
	pkglog "github.com/thereayou/building-chat/pkg/log"
)

// WebSocketHandler управляет WebSocket соединениями
type WebSocketHandler struct {
	hub            *ws.Hub
	messageHandler *MessageHandler
	upgrader       websocket.Upgrader
	cfg            config.WebSocketConfig
}

func NewWebSocketHandler(hub *ws.Hub, messageHandler *MessageHandler, cfg config.WebSocketConfig) *WebSocketHandler {
	return &WebSocketHandler{
		hub:            hub,
		messageHandler: messageHandler,
		cfg:            cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin(cfg.AllowedOrigins),
		},
	}
}

func checkOrigin(allowed []string) func(*http.Request) bool {
	if len(allowed) == 0 {
		return func(*http.Request) bool { return true }
	}
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		set[o] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := set[origin]
		return ok
	}
}

// HandleWebSocket вызывается после WSAuthMiddleware: личность уже проверена
func (h *WebSocketHandler) HandleWebSocket(c *gin.Context) {
	identity := middleware.Identity(c)

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		pkglog.Ctx(c.Request.Context()).Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := ws.NewClient(h.hub, conn, identity, h.cfg)
	h.hub.Register(client)

	go client.WritePump()
	go client.ReadPump(h.messageHandler)
}
