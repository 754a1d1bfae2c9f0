package websocket

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/thereayou/building-chat/internal/config"
	"github.com/thereayou/building-chat/internal/models"
	pkglog "github.com/thereayou/building-chat/pkg/log"
)

var ErrClientQueueFull = errors.New("client message queue is full")

// EventHandler обрабатывает входящие кадры одного соединения
type EventHandler interface {
	HandleEvent(client *Client, env *Envelope)
}

type Client struct {
	ID       string
	Identity models.UserIdentity
	Conn     *websocket.Conn
	Hub      *Hub

	send   chan []byte
	closed bool
	sendMu sync.Mutex

	rooms map[string]struct{}
	mu    sync.RWMutex

	cfg config.WebSocketConfig
}

func NewClient(hub *Hub, conn *websocket.Conn, identity models.UserIdentity, cfg config.WebSocketConfig) *Client {
	if cfg.SendBuffer <= 0 {
		cfg.SendBuffer = 256
	}
	if cfg.WriteWait <= 0 {
		cfg.WriteWait = 10 * time.Second
	}
	if cfg.PongWait <= 0 {
		cfg.PongWait = 60 * time.Second
	}
	if cfg.PingInterval <= 0 || cfg.PingInterval >= cfg.PongWait {
		cfg.PingInterval = cfg.PongWait * 9 / 10
	}
	return &Client{
		ID:       uuid.NewString(),
		Identity: identity,
		Conn:     conn,
		Hub:      hub,
		send:     make(chan []byte, cfg.SendBuffer),
		rooms:    make(map[string]struct{}),
		cfg:      cfg,
	}
}

// ReadPump читает кадры клиента; запросы одного соединения обрабатываются по порядку
func (c *Client) ReadPump(handler EventHandler) {
	defer func() {
		c.Hub.Unregister(c)
		c.Conn.Close()
	}()

	logger := pkglog.L().With().Str(pkglog.FieldConnID, c.ID).Uint64(pkglog.FieldUserID, c.Identity.ID).Logger()

	if c.cfg.MaxMessageSize > 0 {
		c.Conn.SetReadLimit(c.cfg.MaxMessageSize)
	}
	c.Conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
		return nil
	})

	for {
		_, data, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Warn().Err(err).Msg("websocket read error")
			}
			return
		}

		// битый кадр отклоняется, соединение остается открытым
		var env Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			logger.Debug().Err(err).Msg("malformed frame")
			c.Emit(EventError, ErrorPayload{Error: "invalid message format", Code: "VALIDATION"})
			continue
		}

		if env.Event == EventPong {
			continue
		}

		handler.HandleEvent(c, &env)
	}
}

// WritePump пишет исходящие кадры и шлет протокольный ping
func (c *Client) WritePump() {
	ticker := time.NewTicker(c.cfg.PingInterval)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.Conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait))
			if !ok {
				// Hub закрыл канал
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Emit ставит событие в очередь только этому соединению
func (c *Client) Emit(event Event, payload interface{}) error {
	data, err := encode(event, payload)
	if err != nil {
		return err
	}
	if !c.enqueue(data) {
		return ErrClientQueueFull
	}
	return nil
}

func (c *Client) enqueue(data []byte) bool {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	if c.closed {
		return false
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

func (c *Client) closeSend() {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

func (c *Client) addRoom(roomID string) {
	c.mu.Lock()
	c.rooms[roomID] = struct{}{}
	c.mu.Unlock()
}

func (c *Client) removeRoom(roomID string) {
	c.mu.Lock()
	delete(c.rooms, roomID)
	c.mu.Unlock()
}

func (c *Client) IsInRoom(roomID string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.rooms[roomID]
	return ok
}

func (c *Client) Rooms() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	rooms := make([]string, 0, len(c.rooms))
	for roomID := range c.rooms {
		rooms = append(rooms, roomID)
	}
	return rooms
}
