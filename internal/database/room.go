package database

import (
	"context"
	"errors"
	"time"

	"github.com/thereayou/building-chat/internal/models"
)

func (d *Database) CreateRoom(ctx context.Context, room *models.ChatRoom) error {
	return d.db.WithContext(ctx).Create(room).Error
}

func (d *Database) GetRoom(ctx context.Context, id string) (*models.ChatRoom, error) {
	var room models.ChatRoom
	if err := d.db.WithContext(ctx).First(&room, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &room, nil
}

func (d *Database) FindBuildingRoom(ctx context.Context, buildingID uint64) (*models.ChatRoom, error) {
	var room models.ChatRoom
	err := d.db.WithContext(ctx).
		Where("building_id = ? AND room_type = ?", buildingID, models.RoomTypeBuilding).
		First(&room).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &room, nil
}

// GetOrCreateBuildingRoom возвращает общую комнату здания, создавая ее при первом вызове.
// При гонке уникальный building_slot пропускает одну вставку, проигравший перечитывает строку.
func (d *Database) GetOrCreateBuildingRoom(ctx context.Context, buildingID, createdBy uint64, now time.Time) (*models.ChatRoom, error) {
	room, err := d.FindBuildingRoom(ctx, buildingID)
	if err == nil {
		return room, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	room = &models.ChatRoom{
		BuildingID: buildingID,
		RoomType:   models.RoomTypeBuilding,
		CreatedBy:  createdBy,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if createErr := d.db.WithContext(ctx).Create(room).Error; createErr != nil {
		existing, findErr := d.FindBuildingRoom(ctx, buildingID)
		if findErr == nil {
			return existing, nil
		}
		return nil, createErr
	}
	return room, nil
}

// ListBuildingRooms возвращает комнаты здания, свежие сверху
func (d *Database) ListBuildingRooms(ctx context.Context, buildingID uint64) ([]models.ChatRoom, error) {
	var rooms []models.ChatRoom
	err := d.db.WithContext(ctx).
		Where("building_id = ?", buildingID).
		Order("updated_at DESC").
		Order("id DESC").
		Find(&rooms).Error
	return rooms, err
}
