package main

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/thereayou/building-chat/internal/database"
	"github.com/thereayou/building-chat/internal/handlers"
	"github.com/thereayou/building-chat/internal/middleware"
	"github.com/thereayou/building-chat/internal/services"
)

type routerDeps struct {
	authenticator *services.Authenticator
	authH         *handlers.AuthHandler
	roomH         *handlers.RoomHandler
	messageH      *handlers.HTTPMessageHandler
	wsH           *handlers.WebSocketHandler
	db            *database.Database
}

func APIEndpoints(r *gin.Engine, d routerDeps) {
	r.GET("/health", func(c *gin.Context) {
		if err := d.db.Ping(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/ws", middleware.WSAuthMiddleware(d.authenticator), d.wsH.HandleWebSocket)

	// Auth endpoints
	auth := r.Group("/auth", middleware.AuthMiddleware(d.authenticator))
	{
		auth.POST("/logout", d.authH.Logout)
	}

	api := r.Group("/api/v1", middleware.AuthMiddleware(d.authenticator))
	{
		buildings := api.Group("/buildings/:buildingId/chat/rooms")
		{
			buildings.GET("", d.roomH.ListRooms)
			buildings.POST("", d.roomH.CreateRoom)
			buildings.GET("/general", d.roomH.GetGeneralRoom)
		}

		rooms := api.Group("/chat/rooms/:roomId")
		{
			rooms.GET("", d.roomH.GetRoom)
			rooms.POST("/join", d.roomH.JoinRoom)
			rooms.GET("/messages", d.messageH.GetMessages)
			rooms.POST("/messages", d.messageH.SendMessage)
		}
	}
}
