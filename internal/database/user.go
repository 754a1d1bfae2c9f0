package database

import (
	"context"

	"gorm.io/gorm/clause"

	"github.com/thereayou/building-chat/internal/models"
)

func (d *Database) SaveUser(ctx context.Context, user *models.User) error {
	return d.db.WithContext(ctx).Save(user).Error
}

func (d *Database) GetUser(ctx context.Context, id uint64) (*models.User, error) {
	var user models.User
	if err := d.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

func (d *Database) GetUsers(ctx context.Context, ids []uint64) ([]models.User, error) {
	var users []models.User
	if len(ids) == 0 {
		return users, nil
	}
	err := d.db.WithContext(ctx).Where("id IN ?", ids).Find(&users).Error
	return users, err
}

// FindActiveMembership ищет ACTIVE-членство пользователя в здании
func (d *Database) FindActiveMembership(ctx context.Context, userID, buildingID uint64) (*models.BuildingMembership, error) {
	var m models.BuildingMembership
	err := d.db.WithContext(ctx).
		Where("user_id = ? AND building_id = ? AND status = ?", userID, buildingID, models.MembershipActive).
		First(&m).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &m, nil
}

// SetMembership создает или обновляет статус членства
func (d *Database) SetMembership(ctx context.Context, userID, buildingID uint64, status models.MembershipStatus) error {
	m := models.BuildingMembership{UserID: userID, BuildingID: buildingID, Status: status}
	return d.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "building_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"status", "updated_at"}),
	}).Create(&m).Error
}
