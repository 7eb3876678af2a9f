package roomclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"github.com/thereayou/score-rooms/internal/handlers/dto"
)

const (
	DefaultHeartbeatTimeout = 60 * time.Second

	typeScoreUpdated = "score-updated"
	typeUserJoined   = "user-joined"
)

// Event событие комнаты из канала реального времени
type Event struct {
	Type string
	Data json.RawMessage
}

// Channel подписка на одну комнату. Next возвращает ErrChannel при потере
// транспорта или молчании дольше таймаута heartbeat.
type Channel interface {
	Next(ctx context.Context) (Event, error)
	Close() error
}

type Dialer interface {
	Dial(ctx context.Context, roomID, memberID uuid.UUID, justJoined bool) (Channel, error)
}

type envelope struct {
	Type      string          `json:"type"`
	RoomID    *uuid.UUID      `json:"room_id,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// WSDialer подключается к /ws сервера и входит в комнату
type WSDialer struct {
	URL              string
	HeartbeatTimeout time.Duration
	Dialer           *websocket.Dialer
	Header           http.Header
}

func (d *WSDialer) Dial(ctx context.Context, roomID, memberID uuid.UUID, justJoined bool) (Channel, error) {
	dialer := d.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	timeout := d.HeartbeatTimeout
	if timeout <= 0 {
		timeout = DefaultHeartbeatTimeout
	}

	conn, _, err := dialer.DialContext(ctx, d.URL, d.Header)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrChannel, err)
	}

	join := dto.RoomJoinPayload{JustJoined: justJoined}
	if memberID != uuid.Nil {
		join.MemberID = memberID.String()
	}
	data, _ := json.Marshal(join)
	if err := conn.WriteJSON(envelope{Type: "room_join", RoomID: &roomID, Data: data, Timestamp: time.Now().UTC()}); err != nil {
		conn.Close()
		return nil, fmt.Errorf("%w: %v", ErrChannel, err)
	}

	// Ждем подтверждения входа
	for {
		conn.SetReadDeadline(time.Now().Add(timeout))
		var env envelope
		if err := conn.ReadJSON(&env); err != nil {
			conn.Close()
			return nil, fmt.Errorf("%w: %v", ErrChannel, err)
		}
		if env.Type == "room_joined" {
			break
		}
		if env.Type == "error" {
			var e dto.ErrorResponse
			_ = json.Unmarshal(env.Data, &e)
			conn.Close()
			switch e.Kind {
			case "not_found":
				return nil, fmt.Errorf("%w: %s", ErrRoomGone, e.Error)
			case "membership":
				return nil, fmt.Errorf("%w: %s", ErrStaleSession, e.Error)
			}
			return nil, fmt.Errorf("%w: %s", ErrChannel, e.Error)
		}
	}

	ch := &wsChannel{
		conn:    conn,
		timeout: timeout,
		events:  make(chan Event, 16),
		done:    make(chan struct{}),
	}
	conn.SetPingHandler(func(appData string) error {
		conn.SetReadDeadline(time.Now().Add(timeout))
		return conn.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(10*time.Second))
	})
	go ch.readLoop()
	return ch, nil
}

type wsChannel struct {
	conn    *websocket.Conn
	timeout time.Duration
	events  chan Event
	done    chan struct{}

	writeMu   sync.Mutex
	err       error
	closeOnce sync.Once
}

func (c *wsChannel) readLoop() {
	defer close(c.events)
	for {
		c.conn.SetReadDeadline(time.Now().Add(c.timeout))
		var env envelope
		if err := c.conn.ReadJSON(&env); err != nil {
			c.err = fmt.Errorf("%w: %v", ErrChannel, err)
			return
		}

		switch env.Type {
		case typeScoreUpdated, typeUserJoined:
		case "error":
			logrus.WithField("data", string(env.Data)).Warn("Server reported session error")
			continue
		default:
			continue
		}

		select {
		case c.events <- Event{Type: env.Type, Data: env.Data}:
		case <-c.done:
			return
		}
	}
}

func (c *wsChannel) Next(ctx context.Context) (Event, error) {
	select {
	case ev, ok := <-c.events:
		if !ok {
			// err записан до закрытия events
			if c.err != nil {
				return Event{}, c.err
			}
			return Event{}, ErrChannel
		}
		return ev, nil
	case <-ctx.Done():
		return Event{}, ctx.Err()
	}
}

func (c *wsChannel) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		c.writeMu.Lock()
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
		c.writeMu.Unlock()
		err = c.conn.Close()
	})
	return err
}
