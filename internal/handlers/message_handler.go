package handlers

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/thereayou/score-rooms/internal/handlers/dto"
	"github.com/thereayou/score-rooms/internal/services"
	"github.com/thereayou/score-rooms/internal/websocket"
)

// MessageHandler разбирает команды WebSocket сессии
type MessageHandler struct {
	hub *websocket.Hub
}

func NewMessageHandler(hub *websocket.Hub) *MessageHandler {
	return &MessageHandler{hub: hub}
}

func (h *MessageHandler) HandleMessage(client *websocket.Client, msg *websocket.Message) error {
	switch msg.Type {
	case websocket.TypeRoomJoin:
		return h.handleRoomJoin(client, msg)

	case websocket.TypeRoomLeave:
		if msg.RoomID == nil {
			return websocket.ErrInvalidMessage
		}
		h.hub.LeaveRoom(client, *msg.RoomID)
		return nil

	case websocket.TypeTransfer:
		return h.handleTransfer(client, msg)

	default:
		logrus.WithField("type", msg.Type).Debug("Unknown message type")
		return fmt.Errorf("%w: unknown type %q", websocket.ErrInvalidMessage, msg.Type)
	}
}

func (h *MessageHandler) handleRoomJoin(client *websocket.Client, msg *websocket.Message) error {
	if msg.RoomID == nil {
		return websocket.ErrInvalidMessage
	}

	var payload dto.RoomJoinPayload
	if len(msg.Data) > 0 {
		if err := json.Unmarshal(msg.Data, &payload); err != nil {
			return websocket.ErrInvalidMessage
		}
	}

	memberID, err := services.ParseMemberID("member_id", payload.MemberID)
	if err != nil {
		return err
	}

	return h.hub.EnterRoom(context.Background(), client, *msg.RoomID, memberID, payload.JustJoined)
}

func (h *MessageHandler) handleTransfer(client *websocket.Client, msg *websocket.Message) error {
	if msg.RoomID == nil {
		return websocket.ErrInvalidMessage
	}

	var body dto.TransferRequest
	if err := json.Unmarshal(msg.Data, &body); err != nil {
		return websocket.ErrInvalidMessage
	}

	req, err := transferRequest(body)
	if err != nil {
		return err
	}

	res, err := h.hub.Transfer(context.Background(), client, *msg.RoomID, req)
	if err != nil {
		return err
	}

	return client.SendMessage(websocket.TypeTransferResult, msg.RoomID, websocket.TransferPayload(res))
}
