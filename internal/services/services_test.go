package services

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/thereayou/building-chat/internal/config"
	"github.com/thereayou/building-chat/internal/database"
	"github.com/thereayou/building-chat/internal/models"
	ws "github.com/thereayou/building-chat/internal/websocket"
)

type mockBroadcaster struct {
	mock.Mock
}

func (m *mockBroadcaster) BroadcastToRoom(roomID string, event ws.Event, payload interface{}, exclude string) {
	m.Called(roomID, event, payload, exclude)
}

func (m *mockBroadcaster) NotifyConnection(connID string, event ws.Event, payload interface{}) {
	m.Called(connID, event, payload)
}

// stepClock advances one millisecond per call so consecutive rows get distinct timestamps.
func stepClock(start time.Time) Clock {
	var mu sync.Mutex
	now := start
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now = now.Add(time.Millisecond)
		return now
	}
}

var (
	alice = models.UserIdentity{ID: 1, Nickname: "alice"}
	bob   = models.UserIdentity{ID: 2, Nickname: "bob"}
	carol = models.UserIdentity{ID: 3, Nickname: "carol"}
)

type fixture struct {
	db          *database.Database
	broadcaster *mockBroadcaster
	rooms       *RoomService
	messages    *MessageService
}

// newFixture: alice and bob are ACTIVE in building 7, carol only in building 9.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	db, err := database.Connect(config.DatabaseConfig{
		Driver:       "sqlite",
		DSN:          "file:" + uuid.NewString() + "?mode=memory&cache=shared",
		MaxOpenConns: 1,
	})
	require.NoError(t, err)
	require.NoError(t, db.Migrate())
	t.Cleanup(func() { db.Close() })

	for _, u := range []models.UserIdentity{alice, bob, carol} {
		require.NoError(t, db.SaveUser(ctx, &models.User{ID: u.ID, Nickname: u.Nickname}))
	}
	require.NoError(t, db.SetMembership(ctx, alice.ID, 7, models.MembershipActive))
	require.NoError(t, db.SetMembership(ctx, bob.ID, 7, models.MembershipActive))
	require.NoError(t, db.SetMembership(ctx, carol.ID, 9, models.MembershipActive))

	clock := stepClock(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC))
	users := NewUserDirectory(db)
	guard := NewMembershipGuard(db)
	b := &mockBroadcaster{}
	rooms := NewRoomService(db, guard, users, 10).WithClock(clock)
	messages := NewMessageService(db, rooms, users, b, 30, 100).WithClock(clock)

	return &fixture{db: db, broadcaster: b, rooms: rooms, messages: messages}
}

func (f *fixture) topicRoom(t *testing.T, owner models.UserIdentity, buildingID uint64) *models.ChatRoom {
	t.Helper()
	name := "모임"
	room, err := f.rooms.CreateRoom(context.Background(), owner.ID, CreateRoomInput{
		BuildingID: buildingID,
		RoomType:   models.RoomTypeTopic,
		TopicName:  &name,
	})
	require.NoError(t, err)
	return room
}

func (f *fixture) send(t *testing.T, sender models.UserIdentity, roomID, content string) *models.ChatMessage {
	t.Helper()
	f.broadcaster.On("BroadcastToRoom", roomID, ws.EventNewMessage, mock.Anything, "").Once()
	msg, err := f.messages.SendMessage(context.Background(), sender, roomID, SendMessageInput{Content: content})
	require.NoError(t, err)
	return msg
}

func messageIDs(messages []models.ChatMessage) []string {
	out := make([]string, len(messages))
	for i, m := range messages {
		out[i] = m.ID
	}
	return out
}

func TestMembershipGuard(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	guard := NewMembershipGuard(f.db)

	assert.NoError(t, guard.AssertMember(ctx, alice.ID, 7))
	assert.ErrorIs(t, guard.AssertMember(ctx, carol.ID, 7), ErrForbidden)

	require.NoError(t, f.db.SetMembership(ctx, alice.ID, 7, models.MembershipRevoked))
	err := guard.AssertMember(ctx, alice.ID, 7)
	assert.ErrorIs(t, err, ErrForbidden)
	assert.Equal(t, KindForbidden, KindOf(err))
}

func TestCreateRoom_JoinsCreator(t *testing.T) {
	f := newFixture(t)
	room := f.topicRoom(t, alice, 7)

	assert.Equal(t, models.RoomTypeTopic, room.RoomType)
	assert.Equal(t, "모임", *room.TopicName)

	_, err := f.db.GetMember(context.Background(), room.ID, alice.ID)
	assert.NoError(t, err)
}

func TestCreateRoom_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.rooms.CreateRoom(ctx, alice.ID, CreateRoomInput{BuildingID: 7, RoomType: "PRIVATE"})
	assert.Equal(t, KindValidation, KindOf(err))

	blank := "   "
	_, err = f.rooms.CreateRoom(ctx, alice.ID, CreateRoomInput{BuildingID: 7, RoomType: models.RoomTypeTopic, TopicName: &blank})
	assert.Equal(t, KindValidation, KindOf(err))

	long := strings.Repeat("가", maxTopicNameLength+1)
	_, err = f.rooms.CreateRoom(ctx, alice.ID, CreateRoomInput{BuildingID: 7, RoomType: models.RoomTypeTopic, TopicName: &long})
	assert.Equal(t, KindValidation, KindOf(err))

	name := "x"
	_, err = f.rooms.CreateRoom(ctx, carol.ID, CreateRoomInput{BuildingID: 7, RoomType: models.RoomTypeTopic, TopicName: &name})
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestCreateRoom_BuildingTypeReturnsGeneralRoom(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	general, err := f.rooms.GetOrCreateBuildingRoom(ctx, 7, alice.ID)
	require.NoError(t, err)

	again, err := f.rooms.CreateRoom(ctx, bob.ID, CreateRoomInput{BuildingID: 7, RoomType: models.RoomTypeBuilding})
	require.NoError(t, err)
	assert.Equal(t, general.ID, again.ID)

	_, err = f.rooms.GetOrCreateBuildingRoom(ctx, 7, carol.ID)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestJoinRoom_Idempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	room := f.topicRoom(t, alice, 7)

	first, err := f.rooms.JoinRoom(ctx, room.ID, bob.ID)
	require.NoError(t, err)
	second, err := f.rooms.JoinRoom(ctx, room.ID, bob.ID)
	require.NoError(t, err)

	assert.Equal(t, first.RoomID, second.RoomID)
	assert.True(t, first.JoinedAt.Equal(second.JoinedAt))

	n, err := f.db.CountMembers(ctx, room.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
}

func TestJoinRoom_NotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.rooms.JoinRoom(context.Background(), uuid.NewString(), alice.ID)
	assert.Equal(t, KindNotFound, KindOf(err))
}

// A member of another building is turned away from every room operation and
// leaves no trace.
func TestNonMember_RejectedWithoutSideEffects(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	room := f.topicRoom(t, alice, 7)

	_, err := f.rooms.JoinRoom(ctx, room.ID, carol.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = f.db.GetMember(ctx, room.ID, carol.ID)
	assert.ErrorIs(t, err, database.ErrNotFound)

	_, err = f.messages.SendMessage(ctx, carol, room.ID, SendMessageInput{Content: "hi"})
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = f.messages.ListMessages(ctx, room.ID, carol.ID, nil, 10)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = f.rooms.GetRoom(ctx, room.ID, carol.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = f.rooms.ListRooms(ctx, 7, carol.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	n, err := f.db.CountMembers(ctx, room.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	page, err := f.messages.ListMessages(ctx, room.ID, alice.ID, nil, 10)
	require.NoError(t, err)
	assert.Empty(t, page.Messages)

	f.broadcaster.AssertNumberOfCalls(t, "BroadcastToRoom", 0)
}

func TestSendMessage_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	room := f.topicRoom(t, alice, 7)

	cases := []struct {
		name string
		in   SendMessageInput
	}{
		{"empty text", SendMessageInput{Content: "  "}},
		{"image without url", SendMessageInput{MessageType: models.MessageTypeImage}},
		{"system from user", SendMessageInput{Content: "x", MessageType: models.MessageTypeSystem}},
		{"unknown type", SendMessageInput{Content: "x", MessageType: "VIDEO"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.messages.SendMessage(ctx, alice, room.ID, tc.in)
			assert.Equal(t, KindValidation, KindOf(err))
		})
	}

	_, err := f.messages.SendMessage(ctx, alice, "", SendMessageInput{Content: "x"})
	assert.Equal(t, KindValidation, KindOf(err))

	_, err = f.messages.SendMessage(ctx, alice, uuid.NewString(), SendMessageInput{Content: "x"})
	assert.Equal(t, KindNotFound, KindOf(err))

	f.broadcaster.AssertNumberOfCalls(t, "BroadcastToRoom", 0)
}

func TestSendMessage_PersistsThenBroadcasts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	room := f.topicRoom(t, alice, 7)

	msg := f.send(t, bob, room.ID, "hi")
	f.broadcaster.AssertExpectations(t)

	payload := f.broadcaster.Calls[0].Arguments.Get(2).(ws.NewMessagePayload)
	assert.Equal(t, msg.ID, payload.ID)
	assert.Equal(t, "hi", payload.Content)
	assert.Equal(t, bob.ID, payload.SenderID)
	assert.Equal(t, "bob", payload.SenderNickname)
	assert.Equal(t, "TEXT", payload.MessageType)
	assert.Nil(t, payload.ImageURL)

	// sending joins the sender and moves the room to the message time
	_, err := f.db.GetMember(ctx, room.ID, bob.ID)
	assert.NoError(t, err)

	stored, err := f.rooms.GetRoom(ctx, room.ID, alice.ID)
	require.NoError(t, err)
	assert.True(t, stored.UpdatedAt.Equal(msg.CreatedAt))
}

func TestSendMessage_Image(t *testing.T) {
	f := newFixture(t)
	room := f.topicRoom(t, alice, 7)
	url := " https://cdn.example.com/a.png "

	f.broadcaster.On("BroadcastToRoom", room.ID, ws.EventNewMessage, mock.Anything, "").Once()
	msg, err := f.messages.SendMessage(context.Background(), alice, room.ID, SendMessageInput{
		MessageType: models.MessageTypeImage,
		ImageURL:    &url,
	})
	require.NoError(t, err)
	require.NotNil(t, msg.ImageURL)
	assert.Equal(t, "https://cdn.example.com/a.png", *msg.ImageURL)
	assert.Equal(t, models.MessageTypeImage, msg.MessageType)
}

func TestListMessages_OrderingRoundTrip(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	room := f.topicRoom(t, alice, 7)

	m1 := f.send(t, alice, room.ID, "one")
	m2 := f.send(t, bob, room.ID, "two")
	m3 := f.send(t, alice, room.ID, "three")

	page, err := f.messages.ListMessages(ctx, room.ID, alice.ID, nil, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{m1.ID, m2.ID, m3.ID}, messageIDs(page.Messages))
	assert.False(t, page.HasMore)
	assert.Equal(t, "alice", page.Nicknames[alice.ID])
	assert.Equal(t, "bob", page.Nicknames[bob.ID])

	before := m2.CreatedAt
	page, err = f.messages.ListMessages(ctx, room.ID, alice.ID, &before, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{m1.ID}, messageIDs(page.Messages))
}

func TestListMessages_PaginationBoundary(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	room := f.topicRoom(t, alice, 7)

	var sent []*models.ChatMessage
	for _, c := range []string{"a", "b", "c"} {
		sent = append(sent, f.send(t, alice, room.ID, c))
	}

	page, err := f.messages.ListMessages(ctx, room.ID, alice.ID, nil, 3)
	require.NoError(t, err)
	assert.Len(t, page.Messages, 3)
	assert.True(t, page.HasMore)

	sent = append(sent, f.send(t, alice, room.ID, "d"))

	page, err = f.messages.ListMessages(ctx, room.ID, alice.ID, nil, 3)
	require.NoError(t, err)
	assert.Equal(t, []string{sent[1].ID, sent[2].ID, sent[3].ID}, messageIDs(page.Messages))
	assert.True(t, page.HasMore)

	cursor := page.Messages[0].CreatedAt
	page, err = f.messages.ListMessages(ctx, room.ID, alice.ID, &cursor, 3)
	require.NoError(t, err)
	assert.Equal(t, []string{sent[0].ID}, messageIDs(page.Messages))
	assert.False(t, page.HasMore)
}

func TestListMessages_ClampsLimit(t *testing.T) {
	f := newFixture(t)

	assert.Equal(t, 30, f.messages.clampLimit(0))
	assert.Equal(t, 30, f.messages.clampLimit(-5))
	assert.Equal(t, 100, f.messages.clampLimit(500))
	assert.Equal(t, 20, f.messages.clampLimit(20))
}

func TestListRooms(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	general, err := f.rooms.GetOrCreateBuildingRoom(ctx, 7, alice.ID)
	require.NoError(t, err)
	quiet := f.topicRoom(t, alice, 7)
	busy := f.topicRoom(t, bob, 7)
	f.send(t, bob, busy.ID, "a message long enough to be cut")
	f.topicRoom(t, carol, 9)

	summaries, err := f.rooms.ListRooms(ctx, 7, alice.ID)
	require.NoError(t, err)
	require.Len(t, summaries, 3)

	assert.Equal(t, busy.ID, summaries[0].Room.ID)
	require.NotNil(t, summaries[0].LastMessage)
	assert.Equal(t, "bob", summaries[0].LastMessage.SenderNickname)
	assert.Equal(t, "a message …", summaries[0].LastMessage.Content)

	assert.Equal(t, quiet.ID, summaries[1].Room.ID)
	assert.Nil(t, summaries[1].LastMessage)

	assert.Equal(t, general.ID, summaries[2].Room.ID)
	assert.Nil(t, summaries[2].LastMessage)
}

func TestListRooms_CreatesGeneralRoom(t *testing.T) {
	f := newFixture(t)

	summaries, err := f.rooms.ListRooms(context.Background(), 7, bob.ID)
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, models.RoomTypeBuilding, summaries[0].Room.RoomType)
	assert.Equal(t, bob.ID, summaries[0].Room.CreatedBy)
}

func TestSnippet(t *testing.T) {
	assert.Equal(t, "short", snippet("short", 10))
	assert.Equal(t, "안녕하…", snippet("안녕하세요", 3))
	assert.Equal(t, "untouched", snippet("untouched", 0))
}
