package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/thereayou/building-chat/internal/handlers/dto"
	"github.com/thereayou/building-chat/internal/middleware"
	"github.com/thereayou/building-chat/internal/models"
	"github.com/thereayou/building-chat/internal/services"
)

type HTTPMessageHandler struct {
	messages *services.MessageService
}

func NewHTTPMessageHandler(messages *services.MessageService) *HTTPMessageHandler {
	return &HTTPMessageHandler{messages: messages}
}

// GetMessages возвращает страницу истории: ?before=<RFC3339Nano>&limit=N
func (h *HTTPMessageHandler) GetMessages(c *gin.Context) {
	user := middleware.Identity(c)

	var before *time.Time
	if raw := c.Query("before"); raw != "" {
		t, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			badRequest(c, "before must be an RFC3339 timestamp")
			return
		}
		t = t.UTC()
		before = &t
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			badRequest(c, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	page, err := h.messages.ListMessages(c.Request.Context(), c.Param("roomId"), user.ID, before, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.OK(dto.NewMessagePage(page)))
}

// SendMessage - REST-вариант send-message; подписчики комнаты получают new-message
func (h *HTTPMessageHandler) SendMessage(c *gin.Context) {
	user := middleware.Identity(c)

	var req dto.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	msg, err := h.messages.SendMessage(c.Request.Context(), user, c.Param("roomId"), services.SendMessageInput{
		Content:     req.Content,
		MessageType: models.MessageType(req.MessageType),
		ImageURL:    req.ImageURL,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.OK(services.NewMessagePayload(msg, user.Nickname)))
}
