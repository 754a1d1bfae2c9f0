package database

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/thereayou/building-chat/internal/models"
)

// AddMember вставляет пару (комната, пользователь), если ее еще нет, и возвращает запись.
// Повторные и параллельные вызовы сходятся к одной строке.
func (d *Database) AddMember(ctx context.Context, roomID string, userID uint64, joinedAt time.Time) (*models.ChatRoomMember, error) {
	return addMember(d.db.WithContext(ctx), roomID, userID, joinedAt)
}

func addMember(tx *gorm.DB, roomID string, userID uint64, joinedAt time.Time) (*models.ChatRoomMember, error) {
	member := models.ChatRoomMember{RoomID: roomID, UserID: userID, JoinedAt: joinedAt}
	if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&member).Error; err != nil {
		return nil, err
	}

	var stored models.ChatRoomMember
	if err := tx.First(&stored, "room_id = ? AND user_id = ?", roomID, userID).Error; err != nil {
		return nil, notFound(err)
	}
	return &stored, nil
}

func (d *Database) GetMember(ctx context.Context, roomID string, userID uint64) (*models.ChatRoomMember, error) {
	var member models.ChatRoomMember
	err := d.db.WithContext(ctx).First(&member, "room_id = ? AND user_id = ?", roomID, userID).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &member, nil
}

func (d *Database) CountMembers(ctx context.Context, roomID string) (int64, error) {
	var n int64
	err := d.db.WithContext(ctx).Model(&models.ChatRoomMember{}).Where("room_id = ?", roomID).Count(&n).Error
	return n, err
}
