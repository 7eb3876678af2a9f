package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// RedisBus шина для нескольких процессов. Публикация уходит в Redis канал
// комнаты, а одна горутина-ретранслятор получает события всех комнат по
// шаблону и раздает их локальным подписчикам через встроенную LocalBus.
// Порядок внутри комнаты задает порядок канала Redis.
type RedisBus struct {
	client *redis.Client
	prefix string
	local  *LocalBus
	pubsub *redis.PubSub

	closeOnce sync.Once
	done      chan struct{}
}

func NewRedisBus(ctx context.Context, client *redis.Client, prefix string, local *LocalBus) (*RedisBus, error) {
	if client == nil {
		panic("redis client cannot be nil for RedisBus")
	}
	if local == nil {
		local = NewLocalBus(DefaultBuffer, nil)
	}
	if prefix == "" {
		prefix = "scoreroom:"
	}

	b := &RedisBus{
		client: client,
		prefix: prefix,
		local:  local,
		done:   make(chan struct{}),
	}

	b.pubsub = client.PSubscribe(ctx, b.pattern())
	// Ждем подтверждения подписки, иначе первые публикации могут потеряться
	if _, err := b.pubsub.Receive(ctx); err != nil {
		_ = b.pubsub.Close()
		return nil, fmt.Errorf("redis: subscribe %s: %w", b.pattern(), err)
	}

	go b.relay()

	return b, nil
}

func (b *RedisBus) channel(roomID uuid.UUID) string {
	return fmt.Sprintf("%sroom:%s:events", b.prefix, roomID)
}

func (b *RedisBus) pattern() string {
	return b.prefix + "room:*:events"
}

func (b *RedisBus) Publish(ctx context.Context, roomID uuid.UUID, ev Event) error {
	ev.RoomID = roomID
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	if err := b.client.Publish(ctx, b.channel(roomID), payload).Err(); err != nil {
		logrus.WithFields(logrus.Fields{
			"room_id": roomID,
			"type":    ev.Type,
		}).WithError(err).Error("Redis Publish failed")
		return err
	}
	return nil
}

func (b *RedisBus) Subscribe(roomID, sessionID uuid.UUID) <-chan Event {
	return b.local.Subscribe(roomID, sessionID)
}

func (b *RedisBus) Unsubscribe(roomID, sessionID uuid.UUID) {
	b.local.Unsubscribe(roomID, sessionID)
}

func (b *RedisBus) Close() error {
	var err error
	b.closeOnce.Do(func() {
		close(b.done)
		err = b.pubsub.Close()
		_ = b.local.Close()
	})
	return err
}

func (b *RedisBus) relay() {
	log := logrus.WithField("component", "redis_bus")
	log.Info("Relay started")

	ch := b.pubsub.Channel()
	for {
		select {
		case <-b.done:
			log.Info("Relay stopped")
			return
		case msg, ok := <-ch:
			if !ok {
				log.Info("Redis subscription closed")
				return
			}
			ev, err := b.decode(msg.Channel, msg.Payload)
			if err != nil {
				log.WithError(err).WithField("channel", msg.Channel).Warn("Dropping malformed event")
				continue
			}
			_ = b.local.Publish(context.Background(), ev.RoomID, ev)
		}
	}
}

// decode разбирает сообщение канала; id комнаты берется из имени канала
func (b *RedisBus) decode(channel, payload string) (Event, error) {
	var ev Event
	if err := json.Unmarshal([]byte(payload), &ev); err != nil {
		return Event{}, err
	}

	raw := strings.TrimSuffix(strings.TrimPrefix(channel, b.prefix+"room:"), ":events")
	roomID, err := uuid.Parse(raw)
	if err != nil {
		return Event{}, fmt.Errorf("unexpected channel %q", channel)
	}
	ev.RoomID = roomID
	return ev, nil
}
