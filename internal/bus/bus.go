// Package bus шина событий комнат: публикация и подписка по id комнаты.
//
// Доставка best effort, не более одного раза на подписчика, без буфера
// повторов. Подписчики одной комнаты получают события в порядке публикации.
// Медленный подписчик теряет события, а не тормозит публикацию: он
// восстанавливается перечитыванием снимка комнаты.
package bus

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/thereayou/score-rooms/internal/metrics"
)

type EventType string

const (
	TypeScoreUpdated EventType = "score-updated"
	TypeUserJoined   EventType = "user-joined"
)

const DefaultBuffer = 64

var ErrClosed = errors.New("bus: closed")

// Event событие комнаты. Формат совпадает с конвертом WebSocket сообщения.
type Event struct {
	Type      EventType       `json:"type"`
	RoomID    uuid.UUID       `json:"room_id"`
	Data      json.RawMessage `json:"data"`
	Timestamp time.Time       `json:"timestamp"`
}

// NewEvent упаковывает payload в событие комнаты
func NewEvent(t EventType, roomID uuid.UUID, payload interface{}) (Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Event{}, err
	}
	return Event{Type: t, RoomID: roomID, Data: data, Timestamp: time.Now().UTC()}, nil
}

type Bus interface {
	Publish(ctx context.Context, roomID uuid.UUID, ev Event) error
	// Subscribe возвращает канал событий комнаты для сессии. Повторная
	// подписка той же сессии возвращает уже существующий канал.
	Subscribe(roomID, sessionID uuid.UUID) <-chan Event
	// Unsubscribe закрывает канал подписки.
	Unsubscribe(roomID, sessionID uuid.UUID)
	Close() error
}

type topic struct {
	mu   sync.Mutex
	subs map[uuid.UUID]chan Event
}

// LocalBus шина в пределах процесса.
type LocalBus struct {
	mu      sync.RWMutex
	topics  map[uuid.UUID]*topic
	buffer  int
	metrics metrics.MetricsCollector
	closed  bool
}

func NewLocalBus(buffer int, mc metrics.MetricsCollector) *LocalBus {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	if mc == nil {
		mc = metrics.Nop{}
	}
	return &LocalBus{
		topics:  make(map[uuid.UUID]*topic),
		buffer:  buffer,
		metrics: mc,
	}
}

func (b *LocalBus) Publish(_ context.Context, roomID uuid.UUID, ev Event) error {
	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return ErrClosed
	}
	t := b.topics[roomID]
	b.mu.RUnlock()

	b.metrics.RecordEventPublished(string(ev.Type))
	if t == nil {
		return nil
	}
	b.deliver(t, roomID, ev)
	return nil
}

// deliver рассылает событие под замком комнаты: все подписчики видят
// события одной комнаты в одном порядке, отправка неблокирующая.
func (b *LocalBus) deliver(t *topic, roomID uuid.UUID, ev Event) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for sessionID, ch := range t.subs {
		select {
		case ch <- ev:
		default:
			b.metrics.RecordEventDropped(string(ev.Type))
			logrus.WithFields(logrus.Fields{
				"room_id":    roomID,
				"session_id": sessionID,
				"type":       ev.Type,
			}).Warn("Subscriber buffer full, event dropped")
		}
	}
}

func (b *LocalBus) Subscribe(roomID, sessionID uuid.UUID) <-chan Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	t, ok := b.topics[roomID]
	if !ok {
		t = &topic{subs: make(map[uuid.UUID]chan Event)}
		b.topics[roomID] = t
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if ch, ok := t.subs[sessionID]; ok {
		return ch
	}
	ch := make(chan Event, b.buffer)
	if b.closed {
		close(ch)
		return ch
	}
	t.subs[sessionID] = ch
	b.metrics.SubscriptionAdded()
	return ch
}

func (b *LocalBus) Unsubscribe(roomID, sessionID uuid.UUID) {
	b.mu.Lock()
	defer b.mu.Unlock()

	t, ok := b.topics[roomID]
	if !ok {
		return
	}

	t.mu.Lock()
	if ch, ok := t.subs[sessionID]; ok {
		delete(t.subs, sessionID)
		close(ch)
		b.metrics.SubscriptionRemoved()
	}
	empty := len(t.subs) == 0
	t.mu.Unlock()

	if empty {
		delete(b.topics, roomID)
	}
}

// Subscribers количество подписчиков комнаты
func (b *LocalBus) Subscribers(roomID uuid.UUID) int {
	b.mu.RLock()
	t := b.topics[roomID]
	b.mu.RUnlock()
	if t == nil {
		return 0
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.subs)
}

// Close закрывает все каналы подписок.
func (b *LocalBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true
	for roomID, t := range b.topics {
		t.mu.Lock()
		for sessionID, ch := range t.subs {
			close(ch)
			delete(t.subs, sessionID)
			b.metrics.SubscriptionRemoved()
		}
		t.mu.Unlock()
		delete(b.topics, roomID)
	}
	return nil
}
