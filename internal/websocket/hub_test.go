package websocket

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thereayou/building-chat/internal/config"
	"github.com/thereayou/building-chat/internal/models"
)

func newTestClient(h *Hub, id uint64, nickname string) *Client {
	c := NewClient(h, nil, models.UserIdentity{ID: id, Nickname: nickname}, config.WebSocketConfig{SendBuffer: 16})
	h.Register(c)
	return c
}

func recv(t *testing.T, c *Client) Envelope {
	t.Helper()
	select {
	case data, ok := <-c.send:
		require.True(t, ok, "send channel closed")
		var env Envelope
		require.NoError(t, json.Unmarshal(data, &env))
		return env
	case <-time.After(time.Second):
		t.Fatalf("no event for %s", c.ID)
		return Envelope{}
	}
}

func assertSilent(t *testing.T, c *Client) {
	t.Helper()
	select {
	case data := <-c.send:
		t.Fatalf("unexpected event for %s: %s", c.ID, data)
	default:
	}
}

func TestHub_LookupMissAfterUnregister(t *testing.T) {
	h := NewHub(time.Minute)
	c := newTestClient(h, 1, "a")

	identity, ok := h.Lookup(c.ID)
	require.True(t, ok)
	assert.Equal(t, uint64(1), identity.ID)

	_, ok = h.Lookup("unknown")
	assert.False(t, ok)

	h.Unregister(c)
	_, ok = h.Lookup(c.ID)
	assert.False(t, ok)

	// repeated unregister and late operations are no-ops
	h.Unregister(c)
	assert.False(t, h.JoinRoom(c.ID, "r1"))
	assert.ErrorIs(t, h.SetTyping(c.ID, "r1", true), ErrUnknownConnection)
	assert.False(t, c.enqueue([]byte("{}")))
}

func TestHub_JoinNotifiesOthersOnly(t *testing.T) {
	h := NewHub(time.Minute)
	a := newTestClient(h, 1, "a")
	b := newTestClient(h, 2, "b")

	require.True(t, h.JoinRoom(a.ID, "r1"))
	assertSilent(t, a)

	require.True(t, h.JoinRoom(b.ID, "r1"))
	env := recv(t, a)
	assert.Equal(t, EventUserJoined, env.Event)

	var p UserJoinedPayload
	require.NoError(t, json.Unmarshal(env.Data, &p))
	assert.Equal(t, "r1", p.RoomID)
	assert.Equal(t, uint64(2), p.UserID)
	assert.Equal(t, "b", p.Nickname)
	assertSilent(t, b)

	// re-subscribing is silent
	require.True(t, h.JoinRoom(b.ID, "r1"))
	assertSilent(t, a)
	assert.Equal(t, 2, h.RoomConnections("r1"))
}

func TestHub_BroadcastIsolation(t *testing.T) {
	h := NewHub(time.Minute)
	a := newTestClient(h, 1, "a")
	b := newTestClient(h, 2, "b")

	h.JoinRoom(a.ID, "r1")
	h.JoinRoom(b.ID, "r2")

	h.BroadcastToRoom("r1", EventNewMessage, NewMessagePayload{ID: "m1", RoomID: "r1", Content: "hi"}, "")

	env := recv(t, a)
	assert.Equal(t, EventNewMessage, env.Event)
	assertSilent(t, b)
}

func TestHub_TypingExcludesOriginator(t *testing.T) {
	h := NewHub(time.Minute)
	a := newTestClient(h, 1, "a")
	b := newTestClient(h, 2, "b")
	c := newTestClient(h, 3, "c")

	h.JoinRoom(a.ID, "r1")
	h.JoinRoom(b.ID, "r1")
	h.JoinRoom(c.ID, "r1")
	for len(a.send) > 0 {
		<-a.send
	}
	for len(b.send) > 0 {
		<-b.send
	}

	require.NoError(t, h.SetTyping(a.ID, "r1", true))
	for _, other := range []*Client{b, c} {
		env := recv(t, other)
		assert.Equal(t, EventTypingStart, env.Event)
		var p TypingStartPayload
		require.NoError(t, json.Unmarshal(env.Data, &p))
		assert.Equal(t, uint64(1), p.UserID)
		assert.Equal(t, "a", p.Nickname)
	}
	assertSilent(t, a)

	require.NoError(t, h.SetTyping(a.ID, "r1", false))
	assert.Equal(t, EventTypingStop, recv(t, b).Event)
	assert.Equal(t, EventTypingStop, recv(t, c).Event)
	assertSilent(t, a)
}

func TestHub_DisconnectStopsTypingBeforeLeaving(t *testing.T) {
	h := NewHub(time.Minute)
	a := newTestClient(h, 1, "a")
	b := newTestClient(h, 2, "b")

	h.JoinRoom(a.ID, "r1")
	h.JoinRoom(b.ID, "r1")
	recv(t, a) // user-joined for b

	require.NoError(t, h.SetTyping(a.ID, "r1", true))
	assert.Equal(t, EventTypingStart, recv(t, b).Event)

	h.Unregister(a)

	stop := recv(t, b)
	assert.Equal(t, EventTypingStop, stop.Event)
	left := recv(t, b)
	assert.Equal(t, EventUserLeft, left.Event)

	var p UserLeftPayload
	require.NoError(t, json.Unmarshal(left.Data, &p))
	assert.Equal(t, uint64(1), p.UserID)
	assert.Equal(t, "a", p.Nickname)
	assert.Equal(t, 1, h.RoomConnections("r1"))
}

func TestHub_TypingRequiresSubscription(t *testing.T) {
	h := NewHub(time.Minute)
	a := newTestClient(h, 1, "a")
	b := newTestClient(h, 2, "b")

	h.JoinRoom(b.ID, "r1")

	assert.ErrorIs(t, h.SetTyping(a.ID, "r1", true), ErrNotSubscribed)
	assertSilent(t, b)

	h.mu.RLock()
	_, recorded := h.typing["r1"][a.ID]
	h.mu.RUnlock()
	assert.False(t, recorded)

	h.Unregister(a)
	assertSilent(t, b)

	// after leaving, typing in the room is rejected again
	c := newTestClient(h, 3, "c")
	require.True(t, h.JoinRoom(c.ID, "r1"))
	recv(t, b)
	require.True(t, h.LeaveRoom(c.ID, "r1"))
	recv(t, b)
	assert.ErrorIs(t, h.SetTyping(c.ID, "r1", true), ErrNotSubscribed)
	assertSilent(t, b)
}

func TestHub_LeaveRoom(t *testing.T) {
	h := NewHub(time.Minute)
	a := newTestClient(h, 1, "a")
	b := newTestClient(h, 2, "b")

	h.JoinRoom(a.ID, "r1")
	h.JoinRoom(b.ID, "r1")
	recv(t, a)

	assert.True(t, h.LeaveRoom(b.ID, "r1"))
	assert.Equal(t, EventUserLeft, recv(t, a).Event)
	assertSilent(t, b)
	assert.False(t, b.IsInRoom("r1"))

	assert.False(t, h.LeaveRoom(b.ID, "r1"))

	h.BroadcastToRoom("r1", EventNewMessage, nil, "")
	recv(t, a)
	assertSilent(t, b)
}

func TestHub_NotifyConnection(t *testing.T) {
	h := NewHub(time.Minute)
	a := newTestClient(h, 1, "a")
	b := newTestClient(h, 2, "b")

	h.NotifyConnection(a.ID, EventMessageSent, MessageSentPayload{MessageID: "m1", RoomID: "r1"})
	env := recv(t, a)
	assert.Equal(t, EventMessageSent, env.Event)
	assertSilent(t, b)

	h.NotifyConnection("missing", EventMessageSent, nil)
}

func TestHub_Stop(t *testing.T) {
	h := NewHub(time.Minute)
	a := newTestClient(h, 1, "a")

	h.Stop()

	_, ok := <-a.send
	assert.False(t, ok)
	assert.Equal(t, 0, h.ClientCount())

	select {
	case <-h.Done():
	default:
		t.Fatal("hub context not cancelled")
	}
}
