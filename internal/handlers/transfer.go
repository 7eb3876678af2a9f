package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/thereayou/score-rooms/internal/handlers/dto"
	"github.com/thereayou/score-rooms/internal/services"
	"github.com/thereayou/score-rooms/internal/websocket"
)

type TransferHandler struct {
	transfers *services.TransferService
	hub       *websocket.Hub
}

func NewTransferHandler(transfers *services.TransferService, hub *websocket.Hub) *TransferHandler {
	return &TransferHandler{transfers: transfers, hub: hub}
}

// CreateTransfer проводит перевод и оповещает комнату через шину
func (h *TransferHandler) CreateTransfer(c *gin.Context) {
	var body dto.TransferRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, err)
		return
	}

	req, err := transferRequest(body)
	if err != nil {
		HandleServiceError(c, err)
		return
	}

	res, err := h.transfers.Transfer(c.Request.Context(), c.Param("code"), req)
	if err != nil {
		HandleServiceError(c, err)
		return
	}

	h.hub.AnnounceTransfer(c.Request.Context(), res)

	c.JSON(http.StatusCreated, websocket.TransferPayload(res))
}

func transferRequest(body dto.TransferRequest) (services.TransferRequest, error) {
	from, err := services.ParseMemberID("from_member_id", body.FromMemberID)
	if err != nil {
		return services.TransferRequest{}, err
	}
	to, err := services.ParseMemberID("to_member_id", body.ToMemberID)
	if err != nil {
		return services.TransferRequest{}, err
	}
	return services.TransferRequest{
		FromMemberID: from,
		ToMemberID:   to,
		Amount:       body.Amount,
		Description:  body.Description,
	}, nil
}
