package dto

import (
	"github.com/thereayou/building-chat/internal/services"
	ws "github.com/thereayou/building-chat/internal/websocket"
)

// SendMessageRequest - тело POST /chat/rooms/:roomId/messages
type SendMessageRequest struct {
	Content     string  `json:"content"`
	MessageType string  `json:"messageType"`
	ImageURL    *string `json:"imageUrl"`
}

type MessagePageResponse struct {
	Messages []ws.NewMessagePayload `json:"messages"`
	HasMore  bool                   `json:"hasMore"`
}

func NewMessagePage(page *services.MessagePage) MessagePageResponse {
	out := MessagePageResponse{
		Messages: make([]ws.NewMessagePayload, 0, len(page.Messages)),
		HasMore:  page.HasMore,
	}
	for i := range page.Messages {
		m := &page.Messages[i]
		out.Messages = append(out.Messages, services.NewMessagePayload(m, page.Nicknames[m.SenderID]))
	}
	return out
}
