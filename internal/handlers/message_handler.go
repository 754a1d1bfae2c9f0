package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/thereayou/building-chat/internal/models"
	"github.com/thereayou/building-chat/internal/services"
	ws "github.com/thereayou/building-chat/internal/websocket"
	pkglog "github.com/thereayou/building-chat/pkg/log"
)

const eventTimeout = 10 * time.Second

// MessageHandler разбирает события одного соединения. Все ошибки проходят
// через HandleEvent и превращаются в error/message-error только для отправителя.
type MessageHandler struct {
	hub      *ws.Hub
	rooms    *services.RoomService
	messages *services.MessageService
}

func NewMessageHandler(hub *ws.Hub, rooms *services.RoomService, messages *services.MessageService) *MessageHandler {
	return &MessageHandler{hub: hub, rooms: rooms, messages: messages}
}

func (h *MessageHandler) HandleEvent(client *ws.Client, env *ws.Envelope) {
	logger := pkglog.L().With().
		Str(pkglog.FieldConnID, client.ID).
		Str(pkglog.FieldEvent, string(env.Event)).
		Logger()
	ctx, cancel := context.WithTimeout(pkglog.WithLogger(context.Background(), logger), eventTimeout)
	defer cancel()

	identity, ok := h.hub.Lookup(client.ID)
	if !ok {
		h.fail(ctx, client, env.Event, services.ErrUnauthenticated)
		return
	}

	var err error
	switch env.Event {
	case ws.EventJoinRoom:
		err = h.joinRoom(ctx, client, identity, env.Data)
	case ws.EventLeaveRoom:
		err = h.leaveRoom(client, env.Data)
	case ws.EventSendMessage:
		err = h.sendMessage(ctx, client, identity, env.Data)
	case ws.EventTypingStart:
		err = h.typing(ctx, client, identity, env.Data, true)
	case ws.EventTypingStop:
		err = h.typing(ctx, client, identity, env.Data, false)
	default:
		err = services.Validation("unknown event")
	}

	if err != nil {
		h.fail(ctx, client, env.Event, err)
	}
}

func (h *MessageHandler) fail(ctx context.Context, client *ws.Client, event ws.Event, err error) {
	kind := services.KindOf(err)
	if kind == services.KindInternal {
		pkglog.Ctx(ctx).Error().Err(err).Msg("event failed")
	} else {
		pkglog.Ctx(ctx).Debug().Err(err).Msg("event rejected")
	}

	reply := ws.EventError
	if event == ws.EventSendMessage {
		reply = ws.EventMessageError
	}
	client.Emit(reply, ws.ErrorPayload{Error: services.PublicMessage(err), Code: string(kind)})
}

func decodeRoomRequest(data json.RawMessage) (ws.RoomRequest, error) {
	var req ws.RoomRequest
	if len(data) > 0 {
		if err := json.Unmarshal(data, &req); err != nil {
			return req, services.Validation("invalid payload")
		}
	}
	req.RoomID = strings.TrimSpace(req.RoomID)
	if req.RoomID == "" {
		return req, services.Validation("roomId is required")
	}
	return req, nil
}

func (h *MessageHandler) joinRoom(ctx context.Context, client *ws.Client, identity models.UserIdentity, data json.RawMessage) error {
	req, err := decodeRoomRequest(data)
	if err != nil {
		return err
	}

	if _, err := h.rooms.JoinRoom(ctx, req.RoomID, identity.ID); err != nil {
		return err
	}
	if !h.hub.JoinRoom(client.ID, req.RoomID) {
		return services.ErrUnauthenticated
	}
	return client.Emit(ws.EventJoinRoom, ws.JoinRoomAck{Success: true, RoomID: req.RoomID})
}

// leaveRoom снимает только подписку; членство в комнате остается
func (h *MessageHandler) leaveRoom(client *ws.Client, data json.RawMessage) error {
	req, err := decodeRoomRequest(data)
	if err != nil {
		return err
	}
	h.hub.LeaveRoom(client.ID, req.RoomID)
	return nil
}

func (h *MessageHandler) sendMessage(ctx context.Context, client *ws.Client, identity models.UserIdentity, data json.RawMessage) error {
	var req ws.SendMessageRequest
	if len(data) == 0 || json.Unmarshal(data, &req) != nil {
		return services.Validation("invalid payload")
	}

	msg, err := h.messages.SendMessage(ctx, identity, req.RoomID, services.SendMessageInput{
		Content:     req.Content,
		MessageType: models.MessageType(req.MessageType),
		ImageURL:    req.ImageURL,
	})
	if err != nil {
		return err
	}

	h.hub.NotifyConnection(client.ID, ws.EventMessageSent, ws.MessageSentPayload{
		MessageID: msg.ID,
		RoomID:    msg.RoomID,
		CreatedAt: msg.CreatedAt,
	})
	return nil
}

func (h *MessageHandler) typing(ctx context.Context, client *ws.Client, identity models.UserIdentity, data json.RawMessage, start bool) error {
	req, err := decodeRoomRequest(data)
	if err != nil {
		return err
	}
	if _, err := h.rooms.GetRoom(ctx, req.RoomID, identity.ID); err != nil {
		return err
	}
	switch err := h.hub.SetTyping(client.ID, req.RoomID, start); {
	case errors.Is(err, ws.ErrNotSubscribed):
		return services.Validation("join the room first")
	case err != nil:
		return services.ErrUnauthenticated
	}
	return nil
}
