package services

import (
	"context"

	"github.com/thereayou/building-chat/internal/database"
	"github.com/thereayou/building-chat/internal/models"
)

// DBUserDirectory читает пользователей из локальной таблицы users
type DBUserDirectory struct {
	db *database.Database
}

func NewUserDirectory(db *database.Database) *DBUserDirectory {
	return &DBUserDirectory{db: db}
}

func (d *DBUserDirectory) FindUser(ctx context.Context, id uint64) (models.UserIdentity, error) {
	user, err := d.db.GetUser(ctx, id)
	if err != nil {
		return models.UserIdentity{}, err
	}
	return models.UserIdentity{ID: user.ID, Nickname: user.Nickname}, nil
}
