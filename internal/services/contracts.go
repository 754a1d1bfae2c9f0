package services

import (
	"context"
	"time"

	"github.com/thereayou/building-chat/internal/models"
	ws "github.com/thereayou/building-chat/internal/websocket"
)

// TokenVerifier проверяет подпись и срок действия токена
type TokenVerifier interface {
	Subject(token string) (subject string, expiry time.Time, err error)
}

// RevocationList знает об отозванных до срока токенах
type RevocationList interface {
	IsRevoked(ctx context.Context, token string) (bool, error)
}

// UserDirectory находит пользователя по id; для неизвестного id - database.ErrNotFound
type UserDirectory interface {
	FindUser(ctx context.Context, id uint64) (models.UserIdentity, error)
}

// BuildingMembership возвращает ACTIVE-членство в здании или database.ErrNotFound
type BuildingMembership interface {
	FindActiveMembership(ctx context.Context, userID, buildingID uint64) (*models.BuildingMembership, error)
}

// Broadcaster рассылает события живым соединениям
type Broadcaster interface {
	BroadcastToRoom(roomID string, event ws.Event, payload interface{}, exclude string)
	NotifyConnection(connID string, event ws.Event, payload interface{})
}

// Store - хранилище, которое нужно сервисам чата
type Store interface {
	CreateRoom(ctx context.Context, room *models.ChatRoom) error
	GetRoom(ctx context.Context, id string) (*models.ChatRoom, error)
	GetOrCreateBuildingRoom(ctx context.Context, buildingID, createdBy uint64, now time.Time) (*models.ChatRoom, error)
	ListBuildingRooms(ctx context.Context, buildingID uint64) ([]models.ChatRoom, error)

	AddMember(ctx context.Context, roomID string, userID uint64, joinedAt time.Time) (*models.ChatRoomMember, error)

	SaveMessage(ctx context.Context, message *models.ChatMessage) error
	GetRoomMessages(ctx context.Context, roomID string, before *time.Time, limit int) ([]models.ChatMessage, error)
	LastMessage(ctx context.Context, roomID string) (*models.ChatMessage, error)
}

// Clock выдает серверное время для сохраняемых записей
type Clock func() time.Time

func SystemClock() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}
