package websocket

import (
	"encoding/json"
	"time"
)

// Event - имя события в конверте {"event", "data"}
type Event string

const (
	// Клиент -> сервер
	EventJoinRoom    Event = "join-room"
	EventLeaveRoom   Event = "leave-room"
	EventSendMessage Event = "send-message"
	EventTypingStart Event = "typing-start"
	EventTypingStop  Event = "typing-stop"

	// Сервер -> клиент
	EventUserJoined   Event = "user-joined"
	EventUserLeft     Event = "user-left"
	EventNewMessage   Event = "new-message"
	EventMessageSent  Event = "message-sent"
	EventMessageError Event = "message-error"
	EventError        Event = "error"
	EventPing         Event = "ping"
	EventPong         Event = "pong"
)

// Envelope - входящий и исходящий кадр
type Envelope struct {
	Event     Event           `json:"event"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp *time.Time      `json:"timestamp,omitempty"`
}

type RoomRequest struct {
	RoomID string `json:"roomId"`
}

type SendMessageRequest struct {
	RoomID      string  `json:"roomId"`
	Content     string  `json:"content"`
	MessageType string  `json:"messageType,omitempty"`
	ImageURL    *string `json:"imageUrl,omitempty"`
}

type JoinRoomAck struct {
	Success bool   `json:"success"`
	RoomID  string `json:"roomId"`
}

type UserJoinedPayload struct {
	RoomID   string    `json:"roomId"`
	UserID   uint64    `json:"userId"`
	Nickname string    `json:"nickname"`
	JoinedAt time.Time `json:"joinedAt"`
}

type UserLeftPayload struct {
	RoomID   string    `json:"roomId"`
	UserID   uint64    `json:"userId"`
	Nickname string    `json:"nickname"`
	LeftAt   time.Time `json:"leftAt"`
}

type NewMessagePayload struct {
	ID             string    `json:"id"`
	RoomID         string    `json:"roomId"`
	Content        string    `json:"content"`
	SenderID       uint64    `json:"senderId"`
	SenderNickname string    `json:"senderNickname"`
	MessageType    string    `json:"messageType"`
	ImageURL       *string   `json:"imageUrl"`
	CreatedAt      time.Time `json:"createdAt"`
}

type MessageSentPayload struct {
	MessageID string    `json:"messageId"`
	RoomID    string    `json:"roomId"`
	CreatedAt time.Time `json:"createdAt"`
}

type TypingStartPayload struct {
	RoomID   string `json:"roomId"`
	UserID   uint64 `json:"userId"`
	Nickname string `json:"nickname"`
}

type TypingStopPayload struct {
	RoomID string `json:"roomId"`
	UserID uint64 `json:"userId"`
}

type ErrorPayload struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// encode собирает исходящий кадр
func encode(event Event, payload interface{}) ([]byte, error) {
	env := Envelope{Event: event}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		env.Data = data
	}
	return json.Marshal(env)
}
