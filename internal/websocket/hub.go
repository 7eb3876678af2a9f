package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/thereayou/score-rooms/internal/bus"
	"github.com/thereayou/score-rooms/internal/handlers/dto"
	"github.com/thereayou/score-rooms/internal/metrics"
	"github.com/thereayou/score-rooms/internal/models"
	"github.com/thereayou/score-rooms/internal/services"
	"golang.org/x/time/rate"
)

// MessageType определяет типы сообщений
type MessageType string

const (
	TypeError MessageType = "error"

	// Команды клиента
	TypeRoomJoin  MessageType = "room_join"
	TypeRoomLeave MessageType = "room_leave"
	TypeTransfer  MessageType = "transfer"

	// Ответы инициатору
	TypeRoomJoined     MessageType = "room_joined"
	TypeTransferResult MessageType = "transfer_result"

	// События комнаты
	TypeScoreUpdated = MessageType(bus.TypeScoreUpdated)
	TypeUserJoined   = MessageType(bus.TypeUserJoined)
)

type Message struct {
	Type      MessageType     `json:"type"`
	RoomID    *uuid.UUID      `json:"room_id,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// Transferer движок переводов
type Transferer interface {
	TransferInRoom(ctx context.Context, roomID uuid.UUID, req services.TransferRequest) (*services.TransferResult, error)
}

// RoomResolver проверка комнат и участников перед подпиской
type RoomResolver interface {
	ActiveRoom(ctx context.Context, id uuid.UUID) (*models.Room, error)
	RoomMember(ctx context.Context, roomID, memberID uuid.UUID) (*models.Member, error)
}

type Config struct {
	PingPeriod   time.Duration
	PongWait     time.Duration
	WriteWait    time.Duration
	SendBuffer   int
	CommandRate  float64
	CommandBurst int
}

func DefaultConfig() Config {
	return Config{
		PingPeriod:   54 * time.Second,
		PongWait:     60 * time.Second,
		WriteWait:    10 * time.Second,
		SendBuffer:   256,
		CommandRate:  10,
		CommandBurst: 20,
	}
}

// Hub держит сессии и связывает их с шиной комнат. Сессии одной комнаты
// узнают друг о друге только через шину.
type Hub struct {
	clients map[uuid.UUID]*Client

	// Каналы для регистрации/отмены регистрации
	register   chan *Client
	unregister chan *Client

	bus       bus.Bus
	transfers Transferer
	rooms     RoomResolver
	metrics   metrics.MetricsCollector
	cfg       Config

	mu sync.RWMutex

	// Контекст для graceful shutdown
	ctx    context.Context
	cancel context.CancelFunc
}

// NewHub создает новый Hub
func NewHub(b bus.Bus, transfers Transferer, rooms RoomResolver, mc metrics.MetricsCollector, cfg Config) *Hub {
	if b == nil || transfers == nil || rooms == nil {
		panic("bus, transfers and rooms are required for Hub")
	}
	if mc == nil {
		mc = metrics.Nop{}
	}
	def := DefaultConfig()
	if cfg.PingPeriod <= 0 {
		cfg.PingPeriod = def.PingPeriod
	}
	if cfg.PongWait <= 0 {
		cfg.PongWait = def.PongWait
	}
	if cfg.WriteWait <= 0 {
		cfg.WriteWait = def.WriteWait
	}
	if cfg.SendBuffer <= 0 {
		cfg.SendBuffer = def.SendBuffer
	}
	if cfg.CommandRate <= 0 {
		cfg.CommandRate = def.CommandRate
	}
	if cfg.CommandBurst <= 0 {
		cfg.CommandBurst = def.CommandBurst
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		clients:    make(map[uuid.UUID]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		bus:        b,
		transfers:  transfers,
		rooms:      rooms,
		metrics:    mc,
		cfg:        cfg,
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Run запускает hub. Heartbeat живет в WritePump каждой сессии.
func (h *Hub) Run() {
	for {
		select {
		case <-h.ctx.Done():
			return

		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)
		}
	}
}

// Stop останавливает hub и закрывает все сессии
func (h *Hub) Stop() {
	h.cancel()

	h.mu.Lock()
	clients := make([]*Client, 0, len(h.clients))
	for id, client := range h.clients {
		clients = append(clients, client)
		delete(h.clients, id)
	}
	h.mu.Unlock()

	for _, client := range clients {
		h.closeClient(client)
		if client.Conn != nil {
			client.Conn.Close()
		}
	}
}

// Register регистрирует нового клиента
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.ctx.Done():
	}
}

// Unregister отменяет регистрацию клиента
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.ctx.Done():
		h.closeClient(client)
	}
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	h.clients[client.ID] = client
	h.mu.Unlock()

	h.metrics.SessionOpened()
	logrus.WithField("session_id", client.ID).Info("Session connected")
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	_, ok := h.clients[client.ID]
	delete(h.clients, client.ID)
	h.mu.Unlock()

	h.closeClient(client)
	if ok {
		h.metrics.SessionClosed()
		logrus.WithField("session_id", client.ID).Info("Session disconnected")
	}
}

// closeClient отписывает сессию от всех комнат и закрывает очередь отправки
func (h *Hub) closeClient(client *Client) {
	client.mu.Lock()
	defer client.mu.Unlock()

	if client.closed {
		return
	}
	client.closed = true
	for roomID := range client.Rooms {
		h.bus.Unsubscribe(roomID, client.ID)
		delete(client.Rooms, roomID)
	}
	close(client.Send)
}

// EnterRoom подписывает сессию на события комнаты. Если пришел memberID,
// участник должен состоять в комнате; при justJoined комната узнает о нем
// событием user-joined.
func (h *Hub) EnterRoom(ctx context.Context, client *Client, roomID, memberID uuid.UUID, justJoined bool) error {
	room, err := h.rooms.ActiveRoom(ctx, roomID)
	if err != nil {
		return err
	}

	var member *models.Member
	if memberID != uuid.Nil {
		if member, err = h.rooms.RoomMember(ctx, roomID, memberID); err != nil {
			return err
		}
	}

	client.mu.Lock()
	if client.closed {
		client.mu.Unlock()
		return ErrClientClosed
	}
	if !client.Rooms[roomID] {
		client.Rooms[roomID] = true
		events := h.bus.Subscribe(roomID, client.ID)
		go client.forward(roomID, events)
	}
	client.mu.Unlock()

	logrus.WithFields(logrus.Fields{
		"session_id": client.ID,
		"room_id":    roomID,
	}).Debug("Session entered room")

	if justJoined && member != nil {
		h.AnnounceJoin(ctx, room.ID, member)
	}

	reply := dto.RoomJoinedPayload{RoomID: room.ID, RoomCode: room.Code}
	if member != nil {
		reply.MemberID = &member.ID
	}
	return client.SendMessage(TypeRoomJoined, &room.ID, reply)
}

// LeaveRoom отписывает сессию от комнаты
func (h *Hub) LeaveRoom(client *Client, roomID uuid.UUID) {
	client.mu.Lock()
	defer client.mu.Unlock()

	if client.Rooms[roomID] {
		delete(client.Rooms, roomID)
		h.bus.Unsubscribe(roomID, client.ID)
	}
}

// Transfer проводит перевод от имени сессии в комнате, в которую она вошла,
// и публикует результат в комнату.
func (h *Hub) Transfer(ctx context.Context, client *Client, roomID uuid.UUID, req services.TransferRequest) (*services.TransferResult, error) {
	if !client.IsInRoom(roomID) {
		return nil, fmt.Errorf("%w: %s", ErrNotInRoom, roomID)
	}
	res, err := h.transfers.TransferInRoom(ctx, roomID, req)
	if err != nil {
		return nil, err
	}
	h.AnnounceTransfer(ctx, res)
	return res, nil
}

// AnnounceTransfer публикует score-updated. Перевод уже зафиксирован, поэтому
// ошибка публикации только логируется.
func (h *Hub) AnnounceTransfer(ctx context.Context, res *services.TransferResult) {
	h.publish(ctx, bus.TypeScoreUpdated, res.RoomID, ScoreUpdatePayload(res))
}

// AnnounceJoin публикует user-joined
func (h *Hub) AnnounceJoin(ctx context.Context, roomID uuid.UUID, member *models.Member) {
	h.publish(ctx, bus.TypeUserJoined, roomID, dto.MemberJoinedPayload{
		Member:    dto.MemberInfo{ID: member.ID, Name: member.Name, Balance: member.Balance},
		Timestamp: time.Now().UTC(),
	})
}

func (h *Hub) publish(ctx context.Context, t bus.EventType, roomID uuid.UUID, payload interface{}) {
	logCtx := logrus.WithFields(logrus.Fields{"room_id": roomID, "type": t})

	ev, err := bus.NewEvent(t, roomID, payload)
	if err != nil {
		logCtx.WithError(err).Error("Failed to encode room event")
		return
	}
	if err := h.bus.Publish(context.WithoutCancel(ctx), roomID, ev); err != nil {
		logCtx.WithError(err).Warn("Failed to publish room event")
	}
}

// Sessions количество подключенных сессий
func (h *Hub) Sessions() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) newLimiter() *rate.Limiter {
	return rate.NewLimiter(rate.Limit(h.cfg.CommandRate), h.cfg.CommandBurst)
}
