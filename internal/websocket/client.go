package websocket

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"github.com/thereayou/score-rooms/internal/bus"
	"github.com/thereayou/score-rooms/internal/handlers/dto"
	"golang.org/x/time/rate"
)

// Максимальный размер сообщения
const maxMessageSize = 64 * 1024

type ClientMessageHandler interface {
	HandleMessage(client *Client, msg *Message) error
}

// Client одна WebSocket сессия. Rooms и closed защищены mu, очередь Send
// закрывается только под mu.
type Client struct {
	ID      uuid.UUID
	Conn    *websocket.Conn
	Send    chan []byte
	Rooms   map[uuid.UUID]bool
	Hub     *Hub
	limiter *rate.Limiter
	mu      sync.RWMutex
	closed  bool
}

func NewClient(hub *Hub, conn *websocket.Conn) *Client {
	return &Client{
		ID:      uuid.New(),
		Conn:    conn,
		Send:    make(chan []byte, hub.cfg.SendBuffer),
		Rooms:   make(map[uuid.UUID]bool),
		Hub:     hub,
		limiter: hub.newLimiter(),
	}
}

// ReadPump читает сообщения от клиента
func (c *Client) ReadPump(handler ClientMessageHandler) {
	log := logrus.WithField("session_id", c.ID)
	defer func() {
		c.Hub.Unregister(c)
		c.Conn.Close()
	}()

	pongWait := c.Hub.cfg.PongWait
	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var msg Message
		err := c.Conn.ReadJSON(&msg)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.WithError(err).Warn("WebSocket read error")
			}
			break
		}

		if !c.limiter.Allow() {
			c.SendError(ErrRateLimited)
			continue
		}

		if handler != nil {
			if err := handler.HandleMessage(c, &msg); err != nil {
				log.WithError(err).WithField("type", msg.Type).Debug("Command rejected")
				c.SendError(err)
			}
		}
	}
}

// WritePump отправляет сообщения клиенту
func (c *Client) WritePump() {
	writeWait := c.Hub.cfg.WriteWait
	ticker := time.NewTicker(c.Hub.cfg.PingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub закрыл канал
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// forward переносит события комнаты в очередь сессии до отписки
func (c *Client) forward(roomID uuid.UUID, events <-chan bus.Event) {
	for ev := range events {
		msg := Message{
			Type:      MessageType(ev.Type),
			RoomID:    &roomID,
			Data:      ev.Data,
			Timestamp: ev.Timestamp,
		}
		data, err := json.Marshal(msg)
		if err != nil {
			continue
		}
		if err := c.enqueue(data); err == ErrClientQueueFull {
			c.Hub.metrics.RecordEventDropped(string(ev.Type))
			logrus.WithFields(logrus.Fields{
				"session_id": c.ID,
				"room_id":    roomID,
				"type":       ev.Type,
			}).Warn("Session queue full, event dropped")
		}
	}
}

func (c *Client) enqueue(data []byte) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		return ErrClientClosed
	}
	select {
	case c.Send <- data:
		return nil
	default:
		return ErrClientQueueFull
	}
}

func (c *Client) SendMessage(msgType MessageType, roomID *uuid.UUID, data interface{}) error {
	msg := Message{
		Type:      msgType,
		RoomID:    roomID,
		Timestamp: time.Now().UTC(),
	}

	if data != nil {
		jsonData, err := json.Marshal(data)
		if err != nil {
			return err
		}
		msg.Data = jsonData
	}

	msgData, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return c.enqueue(msgData)
}

// SendError отвечает ошибкой только этой сессии
func (c *Client) SendError(err error) {
	_ = c.SendMessage(TypeError, nil, dto.ErrorResponse{
		Error: err.Error(),
		Kind:  ErrorKind(err),
	})
}

func (c *Client) IsInRoom(roomID uuid.UUID) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.Rooms[roomID]
}

func (c *Client) GetRooms() []uuid.UUID {
	c.mu.RLock()
	defer c.mu.RUnlock()

	rooms := make([]uuid.UUID, 0, len(c.Rooms))
	for roomID := range c.Rooms {
		rooms = append(rooms, roomID)
	}
	return rooms
}
