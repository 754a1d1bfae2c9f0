package database

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/thereayou/building-chat/internal/models"
)

var ErrNotFound = errors.New("record not found")

type Database struct {
	db *gorm.DB
}

func NewDatabase(db *gorm.DB) *Database {
	return &Database{db: db}
}

// Migrate создает или обновляет все таблицы чата
func (d *Database) Migrate() error {
	return d.db.AutoMigrate(
		&models.User{},
		&models.BuildingMembership{},
		&models.ChatRoom{},
		&models.ChatRoomMember{},
		&models.ChatMessage{},
	)
}

func (d *Database) Close() error {
	sqlDB, err := d.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

func (d *Database) Ping(ctx context.Context) error {
	sqlDB, err := d.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
