package roomclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thereayou/score-rooms/internal/handlers/dto"
)

// scriptedServer принимает room_join и дальше ведет себя по сценарию
func scriptedServer(t *testing.T, script func(conn *websocket.Conn, join envelope)) string {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		var join envelope
		if err := conn.ReadJSON(&join); err != nil {
			return
		}
		script(conn, join)
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func reply(conn *websocket.Conn, typ string, data interface{}) error {
	raw, _ := json.Marshal(data)
	return conn.WriteJSON(envelope{Type: typ, Data: raw, Timestamp: time.Now()})
}

func TestWSDialer_DeliversRoomEvents(t *testing.T) {
	roomID, memberID := uuid.New(), uuid.New()
	got := make(chan envelope, 1)
	pong := make(chan struct{}, 1)

	url := scriptedServer(t, func(conn *websocket.Conn, join envelope) {
		got <- join
		conn.SetPongHandler(func(string) error {
			pong <- struct{}{}
			return nil
		})
		_ = reply(conn, "room_joined", dto.RoomJoinedPayload{RoomID: roomID})
		_ = conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(time.Second))
		_ = reply(conn, "error", dto.ErrorResponse{Error: "x", Kind: "validation"})
		_ = reply(conn, "score-updated", dto.ScoreUpdatePayload{Amount: 5})

		// pong-кадр приходит только через чтение
		conn.SetReadDeadline(time.Now().Add(500 * time.Millisecond))
		_, _, _ = conn.ReadMessage()
	})

	d := &WSDialer{URL: url, HeartbeatTimeout: time.Second}
	ch, err := d.Dial(context.Background(), roomID, memberID, true)
	require.NoError(t, err)
	defer ch.Close()

	join := <-got
	assert.Equal(t, "room_join", join.Type)
	require.NotNil(t, join.RoomID)
	assert.Equal(t, roomID, *join.RoomID)
	var payload dto.RoomJoinPayload
	require.NoError(t, json.Unmarshal(join.Data, &payload))
	assert.Equal(t, memberID.String(), payload.MemberID)
	assert.True(t, payload.JustJoined)

	ev, err := ch.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, typeScoreUpdated, ev.Type)

	select {
	case <-pong:
	case <-time.After(time.Second):
		t.Fatal("ping was not answered")
	}
}

func TestWSDialer_HeartbeatTimeout(t *testing.T) {
	url := scriptedServer(t, func(conn *websocket.Conn, _ envelope) {
		_ = reply(conn, "room_joined", nil)
		// молчим дольше таймаута
		time.Sleep(time.Second)
	})

	d := &WSDialer{URL: url, HeartbeatTimeout: 150 * time.Millisecond}
	ch, err := d.Dial(context.Background(), uuid.New(), uuid.Nil, false)
	require.NoError(t, err)
	defer ch.Close()

	started := time.Now()
	_, err = ch.Next(context.Background())
	assert.ErrorIs(t, err, ErrChannel)
	assert.Less(t, time.Since(started), 900*time.Millisecond)
}

func TestWSDialer_RoomNotFound(t *testing.T) {
	url := scriptedServer(t, func(conn *websocket.Conn, _ envelope) {
		_ = reply(conn, "error", dto.ErrorResponse{Error: "room does not exist", Kind: "not_found"})
	})

	d := &WSDialer{URL: url, HeartbeatTimeout: time.Second}
	_, err := d.Dial(context.Background(), uuid.New(), uuid.Nil, false)
	assert.ErrorIs(t, err, ErrRoomGone)
}

func TestWSDialer_ForeignMember(t *testing.T) {
	url := scriptedServer(t, func(conn *websocket.Conn, _ envelope) {
		_ = reply(conn, "error", dto.ErrorResponse{Error: "member is not in room", Kind: "membership"})
	})

	d := &WSDialer{URL: url, HeartbeatTimeout: time.Second}
	_, err := d.Dial(context.Background(), uuid.New(), uuid.New(), false)
	assert.ErrorIs(t, err, ErrStaleSession)
	assert.NotErrorIs(t, err, ErrChannel)
}

func TestWSDialer_Unreachable(t *testing.T) {
	d := &WSDialer{URL: "ws://127.0.0.1:1/ws", HeartbeatTimeout: time.Second}
	_, err := d.Dial(context.Background(), uuid.New(), uuid.Nil, false)
	assert.ErrorIs(t, err, ErrChannel)
}

func TestAPI_Snapshot(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/rooms/ABC12345", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(dto.SnapshotResponse{
			RoomResponse: dto.RoomResponse{Code: "ABC12345", IsActive: true},
			Members:      []dto.MemberResponse{{Name: "Alice", Balance: 50}},
		})
	})
	mux.HandleFunc("/api/rooms/GONE0000", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(dto.ErrorResponse{Error: "room does not exist", Kind: "not_found"})
	})
	mux.HandleFunc("/api/rooms/ABC12345/transfers", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(dto.ErrorResponse{Error: "amount must be greater than 0", Kind: "validation"})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	api := NewAPI(srv.URL+"/", nil)
	ctx := context.Background()

	snap, err := api.Snapshot(ctx, "ABC12345")
	require.NoError(t, err)
	assert.Equal(t, int64(50), snap.Members[0].Balance)

	_, err = api.Snapshot(ctx, "GONE0000")
	assert.ErrorIs(t, err, ErrRoomGone)

	_, err = api.Transfer(ctx, "ABC12345", dto.TransferRequest{Amount: 0})
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "validation", apiErr.Kind)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
}
