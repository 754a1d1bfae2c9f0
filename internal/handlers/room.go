package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/thereayou/building-chat/internal/handlers/dto"
	"github.com/thereayou/building-chat/internal/middleware"
	"github.com/thereayou/building-chat/internal/models"
	"github.com/thereayou/building-chat/internal/services"
)

type RoomHandler struct {
	rooms *services.RoomService
}

func NewRoomHandler(rooms *services.RoomService) *RoomHandler {
	return &RoomHandler{rooms: rooms}
}

func buildingIDParam(c *gin.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("buildingId"), 10, 64)
	if err != nil {
		badRequest(c, "invalid building id")
		return 0, false
	}
	return id, true
}

// ListRooms возвращает комнаты здания с превью последнего сообщения
func (h *RoomHandler) ListRooms(c *gin.Context) {
	buildingID, ok := buildingIDParam(c)
	if !ok {
		return
	}
	user := middleware.Identity(c)

	summaries, err := h.rooms.ListRooms(c.Request.Context(), buildingID, user.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.OK(dto.NewRoomSummaries(summaries)))
}

// GetGeneralRoom возвращает (и при необходимости создает) общую комнату здания
func (h *RoomHandler) GetGeneralRoom(c *gin.Context) {
	buildingID, ok := buildingIDParam(c)
	if !ok {
		return
	}
	user := middleware.Identity(c)

	room, err := h.rooms.GetOrCreateBuildingRoom(c.Request.Context(), buildingID, user.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.OK(dto.NewRoomResponse(room)))
}

// CreateRoom создает комнату и добавляет в нее автора
func (h *RoomHandler) CreateRoom(c *gin.Context) {
	buildingID, ok := buildingIDParam(c)
	if !ok {
		return
	}
	user := middleware.Identity(c)

	var req dto.CreateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	room, err := h.rooms.CreateRoom(c.Request.Context(), user.ID, services.CreateRoomInput{
		BuildingID:    buildingID,
		RoomType:      models.RoomType(req.RoomType),
		TopicName:     req.TopicName,
		RelatedPostID: req.RelatedPostID,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.OK(dto.NewRoomResponse(room)))
}

func (h *RoomHandler) GetRoom(c *gin.Context) {
	user := middleware.Identity(c)

	room, err := h.rooms.GetRoom(c.Request.Context(), c.Param("roomId"), user.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.OK(dto.NewRoomResponse(room)))
}

func (h *RoomHandler) JoinRoom(c *gin.Context) {
	user := middleware.Identity(c)

	member, err := h.rooms.JoinRoom(c.Request.Context(), c.Param("roomId"), user.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.OK(dto.NewMemberResponse(member)))
}
