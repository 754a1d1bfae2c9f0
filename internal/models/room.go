package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type RoomType string

const (
	RoomTypeBuilding RoomType = "BUILDING"
	RoomTypeTopic    RoomType = "TOPIC"
)

func (t RoomType) Valid() bool {
	return t == RoomTypeBuilding || t == RoomTypeTopic
}

type ChatRoom struct {
	ID            string   `gorm:"type:varchar(36);primaryKey"`
	BuildingID    uint64   `gorm:"not null;index:idx_chat_rooms_building_updated,priority:1"`
	RoomType      RoomType `gorm:"type:varchar(16);not null"`
	TopicName     *string  `gorm:"type:varchar(100)"`
	RelatedPostID *uint64
	CreatedBy     uint64 `gorm:"not null"`

	// BuildingSlot = BuildingID у комнаты BUILDING и NULL у остальных;
	// уникальный индекс оставляет одну общую комнату на здание.
	BuildingSlot *uint64 `gorm:"uniqueIndex:ux_chat_rooms_building_slot"`

	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null;index:idx_chat_rooms_building_updated,priority:2"`
}

func (ChatRoom) TableName() string { return "chat_rooms" }

func (r *ChatRoom) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.RoomType == RoomTypeBuilding {
		slot := r.BuildingID
		r.BuildingSlot = &slot
	}
	return nil
}
