package models

import "time"

type ChatRoomMember struct {
	RoomID   string    `gorm:"type:varchar(36);primaryKey"`
	UserID   uint64    `gorm:"primaryKey;autoIncrement:false;index"`
	JoinedAt time.Time `gorm:"not null"`

	// Зарезервировано под отметки о прочтении, не заполняется
	LastReadAt *time.Time
}

func (ChatRoomMember) TableName() string { return "chat_room_members" }
