package services

import (
	"context"
	"strings"
	"time"

	"github.com/thereayou/building-chat/internal/models"
	ws "github.com/thereayou/building-chat/internal/websocket"
	pkglog "github.com/thereayou/building-chat/pkg/log"
)

type SendMessageInput struct {
	Content     string
	MessageType models.MessageType
	ImageURL    *string
}

type MessagePage struct {
	Messages  []models.ChatMessage
	Nicknames map[uint64]string
	HasMore   bool
}

type MessageService struct {
	store           Store
	rooms           *RoomService
	users           UserDirectory
	broadcaster     Broadcaster
	defaultPageSize int
	maxPageSize     int
	now             Clock
}

func NewMessageService(store Store, rooms *RoomService, users UserDirectory, broadcaster Broadcaster, defaultPageSize, maxPageSize int) *MessageService {
	return &MessageService{
		store:           store,
		rooms:           rooms,
		users:           users,
		broadcaster:     broadcaster,
		defaultPageSize: defaultPageSize,
		maxPageSize:     maxPageSize,
		now:             SystemClock,
	}
}

func (s *MessageService) WithClock(clock Clock) *MessageService {
	s.now = clock
	return s
}

// SendMessage проверяет и сохраняет сообщение, и только потом рассылает его.
// При любой ошибке рассылки нет.
func (s *MessageService) SendMessage(ctx context.Context, sender models.UserIdentity, roomID string, in SendMessageInput) (*models.ChatMessage, error) {
	msg, err := buildMessage(roomID, in)
	if err != nil {
		return nil, err
	}

	room, err := s.rooms.GetRoom(ctx, roomID, sender.ID)
	if err != nil {
		return nil, err
	}

	msg.RoomID = room.ID
	msg.SenderID = sender.ID
	msg.CreatedAt = s.now()

	if err := s.store.SaveMessage(ctx, msg); err != nil {
		return nil, Internal("save message", err)
	}

	pkglog.Ctx(ctx).Debug().
		Str(pkglog.FieldRoomID, msg.RoomID).
		Str("message_id", msg.ID).
		Uint64(pkglog.FieldUserID, sender.ID).
		Msg("message stored")

	if s.broadcaster != nil {
		s.broadcaster.BroadcastToRoom(msg.RoomID, ws.EventNewMessage, NewMessagePayload(msg, sender.Nickname), "")
	}
	return msg, nil
}

func buildMessage(roomID string, in SendMessageInput) (*models.ChatMessage, error) {
	if strings.TrimSpace(roomID) == "" {
		return nil, Validation("roomId is required")
	}

	msgType := in.MessageType
	if msgType == "" {
		msgType = models.MessageTypeText
	}
	if !msgType.Valid() {
		return nil, Validation("unknown messageType")
	}

	msg := &models.ChatMessage{MessageType: msgType, Content: in.Content}
	switch msgType {
	case models.MessageTypeText:
		if strings.TrimSpace(in.Content) == "" {
			return nil, Validation("content must not be empty")
		}
	case models.MessageTypeImage:
		if in.ImageURL == nil || strings.TrimSpace(*in.ImageURL) == "" {
			return nil, Validation("imageUrl is required for IMAGE messages")
		}
		url := strings.TrimSpace(*in.ImageURL)
		msg.ImageURL = &url
	case models.MessageTypeSystem:
		return nil, Validation("SYSTEM messages cannot be sent by users")
	}
	return msg, nil
}

// NewMessagePayload собирает тело new-message для сохраненного сообщения
func NewMessagePayload(msg *models.ChatMessage, senderNickname string) ws.NewMessagePayload {
	return ws.NewMessagePayload{
		ID:             msg.ID,
		RoomID:         msg.RoomID,
		Content:        msg.Content,
		SenderID:       msg.SenderID,
		SenderNickname: senderNickname,
		MessageType:    string(msg.MessageType),
		ImageURL:       msg.ImageURL,
		CreatedAt:      msg.CreatedAt,
	}
}

// ListMessages возвращает страницу старше before (или самую свежую) от старых к новым.
// HasMore выставляется, если страница заполнена.
func (s *MessageService) ListMessages(ctx context.Context, roomID string, userID uint64, before *time.Time, limit int) (*MessagePage, error) {
	if _, err := s.rooms.GetRoom(ctx, roomID, userID); err != nil {
		return nil, err
	}

	limit = s.clampLimit(limit)
	messages, err := s.store.GetRoomMessages(ctx, roomID, before, limit)
	if err != nil {
		return nil, Internal("list messages", err)
	}

	nicknames := make(map[uint64]string)
	for _, m := range messages {
		if _, ok := nicknames[m.SenderID]; ok {
			continue
		}
		nicknames[m.SenderID] = ""
		if u, err := s.users.FindUser(ctx, m.SenderID); err == nil {
			nicknames[m.SenderID] = u.Nickname
		}
	}

	return &MessagePage{
		Messages:  messages,
		Nicknames: nicknames,
		HasMore:   len(messages) == limit,
	}, nil
}

func (s *MessageService) clampLimit(limit int) int {
	if limit <= 0 {
		return s.defaultPageSize
	}
	if s.maxPageSize > 0 && limit > s.maxPageSize {
		return s.maxPageSize
	}
	return limit
}
