package websocket

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/thereayou/building-chat/internal/models"
	pkglog "github.com/thereayou/building-chat/pkg/log"
)

var (
	ErrUnknownConnection = errors.New("connection is not registered")
	ErrNotSubscribed     = errors.New("connection is not subscribed to room")
)

// Hub держит реестр соединений и подписки на комнаты.
// Реестр меняется только в Register/Unregister; остальные методы его читают.
// Состояние локально для процесса и не отвечает на вопросы о членстве.
type Hub struct {
	clients map[string]*Client

	// Подписки: roomID -> connID -> client
	rooms map[string]map[string]*Client

	// Кто печатает: roomID -> connID
	typing map[string]map[string]struct{}

	mu sync.RWMutex

	pingInterval time.Duration
	logger       zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc
}

// NewHub создает новый Hub
func NewHub(pingInterval time.Duration) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	if pingInterval <= 0 {
		pingInterval = 30 * time.Second
	}
	return &Hub{
		clients:      make(map[string]*Client),
		rooms:        make(map[string]map[string]*Client),
		typing:       make(map[string]map[string]struct{}),
		pingInterval: pingInterval,
		logger:       pkglog.L().With().Str(pkglog.FieldService, "ws-hub").Logger(),
		ctx:          ctx,
		cancel:       cancel,
	}
}

// Run рассылает прикладной ping, пока hub не остановлен
func (h *Hub) Run() {
	ticker := time.NewTicker(h.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-h.ctx.Done():
			return
		case <-ticker.C:
			h.ping()
		}
	}
}

// Stop останавливает hub и закрывает все соединения
func (h *Hub) Stop() {
	h.cancel()

	h.mu.Lock()
	defer h.mu.Unlock()

	for id, client := range h.clients {
		client.closeSend()
		if client.Conn != nil {
			client.Conn.Close()
		}
		delete(h.clients, id)
	}
	h.rooms = make(map[string]map[string]*Client)
	h.typing = make(map[string]map[string]struct{})
}

func (h *Hub) Done() <-chan struct{} {
	return h.ctx.Done()
}

// Register добавляет аутентифицированное соединение в реестр
func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[client.ID] = client

	h.logger.Debug().
		Str(pkglog.FieldConnID, client.ID).
		Uint64(pkglog.FieldUserID, client.Identity.ID).
		Msg("client registered")
}

// Unregister удаляет соединение из реестра и всех комнат.
// Для комнат, где соединение печатало, сначала уходит typing-stop, затем user-left.
func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client.ID]; !ok {
		return
	}

	now := time.Now().UTC()
	for _, roomID := range client.Rooms() {
		h.removeFromRoomLocked(client, roomID, now)
	}

	delete(h.clients, client.ID)
	client.closeSend()

	h.logger.Debug().
		Str(pkglog.FieldConnID, client.ID).
		Uint64(pkglog.FieldUserID, client.Identity.ID).
		Msg("client unregistered")
}

// Lookup возвращает личность по id соединения
func (h *Hub) Lookup(connID string) (models.UserIdentity, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	client, ok := h.clients[connID]
	if !ok {
		return models.UserIdentity{}, false
	}
	return client.Identity, true
}

// JoinRoom подписывает соединение на комнату и оповещает остальных.
// Возвращает false, если соединения нет в реестре.
func (h *Hub) JoinRoom(connID, roomID string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	client, ok := h.clients[connID]
	if !ok {
		return false
	}

	if _, ok := h.rooms[roomID]; !ok {
		h.rooms[roomID] = make(map[string]*Client)
	}
	_, already := h.rooms[roomID][connID]
	h.rooms[roomID][connID] = client
	client.addRoom(roomID)

	if !already {
		h.broadcastLocked(roomID, EventUserJoined, UserJoinedPayload{
			RoomID:   roomID,
			UserID:   client.Identity.ID,
			Nickname: client.Identity.Nickname,
			JoinedAt: time.Now().UTC(),
		}, connID)
	}
	return true
}

// LeaveRoom отписывает соединение от комнаты
func (h *Hub) LeaveRoom(connID, roomID string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	client, ok := h.clients[connID]
	if !ok {
		return false
	}
	return h.removeFromRoomLocked(client, roomID, time.Now().UTC())
}

func (h *Hub) removeFromRoomLocked(client *Client, roomID string, at time.Time) bool {
	room, ok := h.rooms[roomID]
	if !ok {
		return false
	}
	if _, ok := room[client.ID]; !ok {
		return false
	}

	if h.clearTypingLocked(roomID, client.ID) {
		h.broadcastLocked(roomID, EventTypingStop, TypingStopPayload{
			RoomID: roomID,
			UserID: client.Identity.ID,
		}, client.ID)
	}

	delete(room, client.ID)
	client.removeRoom(roomID)

	if len(room) == 0 {
		delete(h.rooms, roomID)
		return true
	}

	h.broadcastLocked(roomID, EventUserLeft, UserLeftPayload{
		RoomID:   roomID,
		UserID:   client.Identity.ID,
		Nickname: client.Identity.Nickname,
		LeftAt:   at,
	}, client.ID)
	return true
}

// SetTyping отмечает состояние набора и рассылает его всем, кроме отправителя.
// Печатать можно только в комнате, на которую соединение подписано.
func (h *Hub) SetTyping(connID, roomID string, typing bool) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	client, ok := h.clients[connID]
	if !ok {
		return ErrUnknownConnection
	}
	if _, ok := h.rooms[roomID][connID]; !ok {
		return ErrNotSubscribed
	}

	if typing {
		if _, ok := h.typing[roomID]; !ok {
			h.typing[roomID] = make(map[string]struct{})
		}
		h.typing[roomID][connID] = struct{}{}
		h.broadcastLocked(roomID, EventTypingStart, TypingStartPayload{
			RoomID:   roomID,
			UserID:   client.Identity.ID,
			Nickname: client.Identity.Nickname,
		}, connID)
		return nil
	}

	h.clearTypingLocked(roomID, connID)
	h.broadcastLocked(roomID, EventTypingStop, TypingStopPayload{
		RoomID: roomID,
		UserID: client.Identity.ID,
	}, connID)
	return nil
}

func (h *Hub) clearTypingLocked(roomID, connID string) bool {
	conns, ok := h.typing[roomID]
	if !ok {
		return false
	}
	if _, ok := conns[connID]; !ok {
		return false
	}
	delete(conns, connID)
	if len(conns) == 0 {
		delete(h.typing, roomID)
	}
	return true
}

// BroadcastToRoom отправляет событие всем подписчикам комнаты, кроме exclude
func (h *Hub) BroadcastToRoom(roomID string, event Event, payload interface{}, exclude string) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	h.broadcastLocked(roomID, event, payload, exclude)
}

// NotifyConnection отправляет событие одному соединению
func (h *Hub) NotifyConnection(connID string, event Event, payload interface{}) {
	h.mu.RLock()
	client, ok := h.clients[connID]
	h.mu.RUnlock()

	if !ok {
		return
	}
	if err := client.Emit(event, payload); err != nil {
		h.logger.Warn().Err(err).Str(pkglog.FieldConnID, connID).Str(pkglog.FieldEvent, string(event)).Msg("notify failed")
	}
}

func (h *Hub) broadcastLocked(roomID string, event Event, payload interface{}, exclude string) {
	room, ok := h.rooms[roomID]
	if !ok {
		return
	}

	data, err := encode(event, payload)
	if err != nil {
		h.logger.Error().Err(err).Str(pkglog.FieldEvent, string(event)).Msg("encode broadcast")
		return
	}

	for id, client := range room {
		if id == exclude {
			continue
		}
		if !client.enqueue(data) {
			h.logger.Warn().Str(pkglog.FieldConnID, id).Str(pkglog.FieldRoomID, roomID).Msg("client send channel full")
		}
	}
}

func (h *Hub) ping() {
	data, err := encode(EventPing, nil)
	if err != nil {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, client := range h.clients {
		client.enqueue(data)
	}
}

// RoomConnections возвращает число подписанных соединений
func (h *Hub) RoomConnections(roomID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[roomID])
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
