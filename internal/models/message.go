package models

import (
	"time"

	"github.com/oklog/ulid/v2"
	"gorm.io/gorm"
)

type MessageType string

const (
	MessageTypeText   MessageType = "TEXT"
	MessageTypeImage  MessageType = "IMAGE"
	MessageTypeSystem MessageType = "SYSTEM"
)

func (t MessageType) Valid() bool {
	switch t {
	case MessageTypeText, MessageTypeImage, MessageTypeSystem:
		return true
	}
	return false
}

// ChatMessage.ID - ULID: монотонен внутри процесса и
// упорядочивает сообщения с одинаковым created_at.
type ChatMessage struct {
	ID          string      `gorm:"type:varchar(26);primaryKey"`
	RoomID      string      `gorm:"type:varchar(36);not null;index:idx_chat_messages_room_created,priority:1"`
	SenderID    uint64      `gorm:"not null"`
	Content     string      `gorm:"type:text;not null"`
	MessageType MessageType `gorm:"type:varchar(16);not null;default:'TEXT'"`
	ImageURL    *string     `gorm:"type:text"`
	CreatedAt   time.Time   `gorm:"not null;index:idx_chat_messages_room_created,priority:2"`
}

func (ChatMessage) TableName() string { return "chat_messages" }

func (m *ChatMessage) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = ulid.Make().String()
	}
	return nil
}
