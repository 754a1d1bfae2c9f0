package dto

import (
	"time"

	"github.com/thereayou/building-chat/internal/models"
	"github.com/thereayou/building-chat/internal/services"
)

type CreateRoomRequest struct {
	RoomType      string  `json:"roomType" binding:"required"`
	TopicName     *string `json:"topicName"`
	RelatedPostID *uint64 `json:"relatedPostId"`
}

type RoomResponse struct {
	ID            string    `json:"id"`
	BuildingID    uint64    `json:"buildingId"`
	RoomType      string    `json:"roomType"`
	TopicName     *string   `json:"topicName"`
	RelatedPostID *uint64   `json:"relatedPostId"`
	CreatedBy     uint64    `json:"createdBy"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

type LastMessageResponse struct {
	SenderID       uint64    `json:"senderId"`
	SenderNickname string    `json:"senderNickname"`
	Content        string    `json:"content"`
	MessageType    string    `json:"messageType"`
	CreatedAt      time.Time `json:"createdAt"`
}

type RoomSummaryResponse struct {
	RoomResponse
	LastMessage *LastMessageResponse `json:"lastMessage"`
}

type MemberResponse struct {
	RoomID   string    `json:"roomId"`
	UserID   uint64    `json:"userId"`
	JoinedAt time.Time `json:"joinedAt"`
}

func NewRoomResponse(r *models.ChatRoom) RoomResponse {
	return RoomResponse{
		ID:            r.ID,
		BuildingID:    r.BuildingID,
		RoomType:      string(r.RoomType),
		TopicName:     r.TopicName,
		RelatedPostID: r.RelatedPostID,
		CreatedBy:     r.CreatedBy,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
}

func NewRoomSummaries(summaries []services.RoomSummary) []RoomSummaryResponse {
	out := make([]RoomSummaryResponse, 0, len(summaries))
	for i := range summaries {
		item := RoomSummaryResponse{RoomResponse: NewRoomResponse(&summaries[i].Room)}
		if p := summaries[i].LastMessage; p != nil {
			item.LastMessage = &LastMessageResponse{
				SenderID:       p.SenderID,
				SenderNickname: p.SenderNickname,
				Content:        p.Content,
				MessageType:    string(p.MessageType),
				CreatedAt:      p.CreatedAt,
			}
		}
		out = append(out, item)
	}
	return out
}

func NewMemberResponse(m *models.ChatRoomMember) MemberResponse {
	return MemberResponse{RoomID: m.RoomID, UserID: m.UserID, JoinedAt: m.JoinedAt}
}
