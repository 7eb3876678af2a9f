package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/thereayou/score-rooms/internal/handlers/dto"
	"github.com/thereayou/score-rooms/internal/models"
	"github.com/thereayou/score-rooms/internal/services"
)

type RoomHandler struct {
	rooms *services.RoomService
}

func NewRoomHandler(rooms *services.RoomService) *RoomHandler {
	return &RoomHandler{rooms: rooms}
}

// CreateRoom создает комнату вместе с участником-создателем
func (h *RoomHandler) CreateRoom(c *gin.Context) {
	var req dto.CreateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	room, creator, err := h.rooms.CreateRoom(c.Request.Context(), req.Name, req.CreatorName)
	if err != nil {
		HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.CreateRoomResponse{
		Room:   formatRoomResponse(room),
		Member: formatMemberResponse(creator),
	})
}

// JoinRoom входит в комнату по коду. Участник с тем же именем переиспользуется.
func (h *RoomHandler) JoinRoom(c *gin.Context) {
	var req dto.JoinRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	room, member, justJoined, err := h.rooms.JoinRoom(c.Request.Context(), req.RoomCode, req.MemberName)
	if err != nil {
		HandleServiceError(c, err)
		return
	}

	status := http.StatusOK
	if justJoined {
		status = http.StatusCreated
	}
	c.JSON(status, dto.JoinRoomResponse{
		Room:       formatRoomResponse(room),
		Member:     formatMemberResponse(member),
		JustJoined: justJoined,
	})
}

// GetRoom отдает снимок комнаты
func (h *RoomHandler) GetRoom(c *gin.Context) {
	room, err := h.rooms.Snapshot(c.Request.Context(), c.Param("code"))
	if err != nil {
		HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, formatSnapshot(room))
}

// CloseRoom делает комнату неактивной; история остается доступной
func (h *RoomHandler) CloseRoom(c *gin.Context) {
	room, err := h.rooms.CloseRoom(c.Request.Context(), c.Param("code"))
	if err != nil {
		HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, formatRoomResponse(room))
}

func formatRoomResponse(room *models.Room) dto.RoomResponse {
	return dto.RoomResponse{
		ID:        room.ID,
		Name:      room.Name,
		Code:      room.Code,
		IsActive:  room.IsActive,
		CreatedAt: room.CreatedAt,
		CreatorID: room.CreatorID,
	}
}

func formatMemberResponse(m *models.Member) dto.MemberResponse {
	return dto.MemberResponse{
		ID:       m.ID,
		Name:     m.Name,
		Balance:  m.Balance,
		JoinedAt: m.JoinedAt,
	}
}

func formatSnapshot(room *models.Room) dto.SnapshotResponse {
	resp := dto.SnapshotResponse{
		RoomResponse: formatRoomResponse(room),
		Members:      make([]dto.MemberResponse, 0, len(room.Members)),
		Transactions: make([]dto.TransactionEntry, 0, len(room.Transactions)),
	}
	for i := range room.Members {
		resp.Members = append(resp.Members, formatMemberResponse(&room.Members[i]))
	}
	for _, tx := range room.Transactions {
		resp.Transactions = append(resp.Transactions, dto.TransactionEntry{
			ID:          tx.ID,
			FromMember:  dto.MemberInfo{ID: tx.FromMember.ID, Name: tx.FromMember.Name, Balance: tx.FromMember.Balance},
			ToMember:    dto.MemberInfo{ID: tx.ToMember.ID, Name: tx.ToMember.Name, Balance: tx.ToMember.Balance},
			Amount:      tx.Amount,
			Description: tx.Description,
			Timestamp:   tx.CreatedAt,
		})
	}
	return resp
}
