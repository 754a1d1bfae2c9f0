package services

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"github.com/thereayou/building-chat/internal/database"
	"github.com/thereayou/building-chat/internal/models"
	pkglog "github.com/thereayou/building-chat/pkg/log"
)

const (
	maxTopicNameLength = 100
	previewConcurrency = 8
)

type CreateRoomInput struct {
	BuildingID    uint64
	RoomType      models.RoomType
	TopicName     *string
	RelatedPostID *uint64
}

type MessagePreview struct {
	SenderID       uint64
	SenderNickname string
	Content        string
	MessageType    models.MessageType
	CreatedAt      time.Time
}

// RoomSummary - комната и ее последнее сообщение (nil для пустой)
type RoomSummary struct {
	Room        models.ChatRoom
	LastMessage *MessagePreview
}

type RoomService struct {
	store         Store
	guard         *MembershipGuard
	users         UserDirectory
	previewLength int
	now           Clock
}

func NewRoomService(store Store, guard *MembershipGuard, users UserDirectory, previewLength int) *RoomService {
	return &RoomService{
		store:         store,
		guard:         guard,
		users:         users,
		previewLength: previewLength,
		now:           SystemClock,
	}
}

// WithClock подменяет источник времени
func (s *RoomService) WithClock(clock Clock) *RoomService {
	s.now = clock
	return s
}

// GetOrCreateBuildingRoom возвращает общую комнату здания, создавая ее при первом обращении
func (s *RoomService) GetOrCreateBuildingRoom(ctx context.Context, buildingID, userID uint64) (*models.ChatRoom, error) {
	if err := s.guard.AssertMember(ctx, userID, buildingID); err != nil {
		return nil, err
	}
	return s.buildingRoom(ctx, buildingID, userID)
}

func (s *RoomService) buildingRoom(ctx context.Context, buildingID, userID uint64) (*models.ChatRoom, error) {
	room, err := s.store.GetOrCreateBuildingRoom(ctx, buildingID, userID, s.now())
	if err != nil {
		return nil, Internal("get or create building room", err)
	}
	return room, nil
}

// CreateRoom создает комнату и добавляет в нее автора.
// Для BUILDING возвращается общая комната здания.
func (s *RoomService) CreateRoom(ctx context.Context, userID uint64, in CreateRoomInput) (*models.ChatRoom, error) {
	if !in.RoomType.Valid() {
		return nil, Validation("roomType must be BUILDING or TOPIC")
	}

	var topic *string
	if in.TopicName != nil {
		name := strings.TrimSpace(*in.TopicName)
		if utf8.RuneCountInString(name) > maxTopicNameLength {
			return nil, Validation("topicName is too long")
		}
		if name != "" {
			topic = &name
		}
	}
	if in.RoomType == models.RoomTypeTopic && topic == nil {
		return nil, Validation("topicName is required for TOPIC rooms")
	}

	if err := s.guard.AssertMember(ctx, userID, in.BuildingID); err != nil {
		return nil, err
	}

	var room *models.ChatRoom
	if in.RoomType == models.RoomTypeBuilding {
		r, err := s.buildingRoom(ctx, in.BuildingID, userID)
		if err != nil {
			return nil, err
		}
		room = r
	} else {
		now := s.now()
		room = &models.ChatRoom{
			BuildingID:    in.BuildingID,
			RoomType:      models.RoomTypeTopic,
			TopicName:     topic,
			RelatedPostID: in.RelatedPostID,
			CreatedBy:     userID,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if err := s.store.CreateRoom(ctx, room); err != nil {
			return nil, Internal("create room", err)
		}
	}

	if _, err := s.store.AddMember(ctx, room.ID, userID, s.now()); err != nil {
		return nil, Internal("join creator", err)
	}

	pkglog.Ctx(ctx).Info().
		Str(pkglog.FieldRoomID, room.ID).
		Uint64("building_id", room.BuildingID).
		Str("room_type", string(room.RoomType)).
		Msg("room created")
	return room, nil
}

// GetRoom возвращает комнату, если пользователь состоит в ее здании
func (s *RoomService) GetRoom(ctx context.Context, roomID string, userID uint64) (*models.ChatRoom, error) {
	room, err := s.store.GetRoom(ctx, roomID)
	if errors.Is(err, database.ErrNotFound) {
		return nil, NotFound("room not found")
	}
	if err != nil {
		return nil, Internal("get room", err)
	}
	if err := s.guard.AssertMember(ctx, userID, room.BuildingID); err != nil {
		return nil, err
	}
	return room, nil
}

// JoinRoom добавляет участника; повторный вход возвращает ту же запись
func (s *RoomService) JoinRoom(ctx context.Context, roomID string, userID uint64) (*models.ChatRoomMember, error) {
	room, err := s.GetRoom(ctx, roomID, userID)
	if err != nil {
		return nil, err
	}
	member, err := s.store.AddMember(ctx, room.ID, userID, s.now())
	if err != nil {
		return nil, Internal("add member", err)
	}
	return member, nil
}

// ListRooms возвращает комнаты здания, свежие сверху, с превью последнего сообщения
func (s *RoomService) ListRooms(ctx context.Context, buildingID, userID uint64) ([]RoomSummary, error) {
	if err := s.guard.AssertMember(ctx, userID, buildingID); err != nil {
		return nil, err
	}

	if _, err := s.buildingRoom(ctx, buildingID, userID); err != nil {
		return nil, err
	}

	rooms, err := s.store.ListBuildingRooms(ctx, buildingID)
	if err != nil {
		return nil, Internal("list rooms", err)
	}

	summaries := make([]RoomSummary, len(rooms))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(previewConcurrency)
	for i := range rooms {
		i := i
		summaries[i].Room = rooms[i]
		g.Go(func() error {
			preview, err := s.preview(gctx, rooms[i].ID)
			if err != nil {
				return err
			}
			summaries[i].LastMessage = preview
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, Internal("room previews", err)
	}
	return summaries, nil
}

func (s *RoomService) preview(ctx context.Context, roomID string) (*MessagePreview, error) {
	msg, err := s.store.LastMessage(ctx, roomID)
	if errors.Is(err, database.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	nickname := ""
	if sender, err := s.users.FindUser(ctx, msg.SenderID); err == nil {
		nickname = sender.Nickname
	} else if !errors.Is(err, database.ErrNotFound) {
		return nil, err
	}

	return &MessagePreview{
		SenderID:       msg.SenderID,
		SenderNickname: nickname,
		Content:        snippet(msg.Content, s.previewLength),
		MessageType:    msg.MessageType,
		CreatedAt:      msg.CreatedAt,
	}, nil
}

func snippet(content string, max int) string {
	if max <= 0 || utf8.RuneCountInString(content) <= max {
		return content
	}
	runes := []rune(content)
	return string(runes[:max]) + "…"
}
