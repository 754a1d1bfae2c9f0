package database

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/thereayou/building-chat/internal/models"
)

// SaveMessage в одной транзакции добавляет отправителя в участники,
// сохраняет сообщение и сдвигает updated_at комнаты на его время.
func (d *Database) SaveMessage(ctx context.Context, message *models.ChatMessage) error {
	return d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := addMember(tx, message.RoomID, message.SenderID, message.CreatedAt); err != nil {
			return err
		}
		if err := tx.Create(message).Error; err != nil {
			return err
		}
		return tx.Model(&models.ChatRoom{}).
			Where("id = ?", message.RoomID).
			Update("updated_at", message.CreatedAt).Error
	})
}

func (d *Database) GetMessage(ctx context.Context, id string) (*models.ChatMessage, error) {
	var message models.ChatMessage
	if err := d.db.WithContext(ctx).First(&message, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &message, nil
}

// GetRoomMessages возвращает до limit сообщений строго старше before
// (или самые свежие при before == nil) от старых к новым.
func (d *Database) GetRoomMessages(ctx context.Context, roomID string, before *time.Time, limit int) ([]models.ChatMessage, error) {
	var messages []models.ChatMessage

	query := d.db.WithContext(ctx).Where("room_id = ?", roomID)
	if before != nil {
		query = query.Where("created_at < ?", *before)
	}

	err := query.
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&messages).Error
	if err != nil {
		return nil, err
	}

	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

// LastMessage возвращает последнее сообщение комнаты или ErrNotFound
func (d *Database) LastMessage(ctx context.Context, roomID string) (*models.ChatMessage, error) {
	var message models.ChatMessage
	err := d.db.WithContext(ctx).
		Where("room_id = ?", roomID).
		Order("created_at DESC").
		Order("id DESC").
		First(&message).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &message, nil
}
