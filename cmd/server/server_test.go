package main

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	gorilla "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thereayou/score-rooms/internal/bus"
	"github.com/thereayou/score-rooms/internal/config"
	"github.com/thereayou/score-rooms/internal/handlers/dto"
	"github.com/thereayou/score-rooms/internal/websocket"
)

func testConfig(t *testing.T) *config.Config {
	return &config.Config{
		Port:                "0",
		DatabaseDriver:      "sqlite",
		DatabaseURL:         "file:" + strings.ReplaceAll(t.Name(), "/", "_") + "?mode=memory&cache=shared",
		RedisKeyPrefix:      "test:",
		LogLevel:            "warn",
		WSPingPeriod:        time.Minute,
		WSPongWait:          2 * time.Minute,
		WSSendBuffer:        32,
		BusBuffer:           32,
		SessionCommandRate:  50,
		SessionCommandBurst: 50,
		TransferRateLimit:   2,
		TransferRateWindow:  time.Minute,
		RoomCodeLength:      8,
	}
}

func startServer(t *testing.T, cfg *config.Config) (*Server, *httptest.Server) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	s, err := NewServer(context.Background(), cfg)
	require.NoError(t, err)
	go s.Hub.Run()

	ts := httptest.NewServer(s.Router)
	t.Cleanup(func() {
		ts.Close()
		s.shutdown()
	})
	return s, ts
}

func post(t *testing.T, url string, body, out interface{}) int {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", strings.NewReader(string(raw)))
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func TestServer_RedisFanOutAndRateLimit(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig(t)
	cfg.RedisURL = "redis://" + mr.Addr()
	s, ts := startServer(t, cfg)
	require.IsType(t, &bus.RedisBus{}, s.Bus)

	var created dto.CreateRoomResponse
	require.Equal(t, http.StatusCreated, post(t, ts.URL+"/api/rooms", dto.CreateRoomRequest{Name: "Poker", CreatorName: "Alice"}, &created))
	var joined dto.JoinRoomResponse
	require.Equal(t, http.StatusCreated, post(t, ts.URL+"/api/rooms/join", dto.JoinRoomRequest{RoomCode: created.Room.Code, MemberName: "Bob"}, &joined))

	conn, _, err := gorilla.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	defer conn.Close()
	roomID := created.Room.ID
	require.NoError(t, conn.WriteJSON(websocket.Message{Type: websocket.TypeRoomJoin, RoomID: &roomID}))

	readType := func(want websocket.MessageType) websocket.Message {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
		for {
			var msg websocket.Message
			require.NoError(t, conn.ReadJSON(&msg))
			if msg.Type == want {
				return msg
			}
		}
	}
	readType(websocket.TypeRoomJoined)

	transfer := dto.TransferRequest{FromMemberID: joined.Member.ID.String(), ToMemberID: created.Member.ID.String(), Amount: 50}
	path := ts.URL + "/api/rooms/" + created.Room.Code + "/transfers"
	require.Equal(t, http.StatusCreated, post(t, path, transfer, nil))

	// событие прошло через канал Redis
	msg := readType(websocket.TypeScoreUpdated)
	var payload dto.ScoreUpdatePayload
	require.NoError(t, json.Unmarshal(msg.Data, &payload))
	assert.Equal(t, int64(50), payload.Amount)

	require.Equal(t, http.StatusCreated, post(t, path, transfer, nil))
	var limited dto.ErrorResponse
	assert.Equal(t, http.StatusTooManyRequests, post(t, path, transfer, &limited))
	assert.Equal(t, "rate_limited", limited.Kind)
}

func TestServer_LocalBusHealthAndMetrics(t *testing.T) {
	s, ts := startServer(t, testConfig(t))
	require.IsType(t, &bus.LocalBus{}, s.Bus)

	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var created dto.CreateRoomResponse
	require.Equal(t, http.StatusCreated, post(t, ts.URL+"/api/rooms", dto.CreateRoomRequest{Name: "Poker", CreatorName: "Alice"}, &created))
	var errResp dto.ErrorResponse
	path := ts.URL + "/api/rooms/" + created.Room.Code + "/transfers"
	require.Equal(t, http.StatusBadRequest, post(t, path, dto.TransferRequest{Amount: 0}, &errResp))
	assert.Equal(t, "validation", errResp.Kind)

	resp, err = http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `scoreroom_transfers_total{outcome="validation"} 1`)
	assert.Contains(t, string(body), "go_goroutines")
}

func TestNewServer_BadRedis(t *testing.T) {
	cfg := testConfig(t)
	cfg.RedisURL = "not-a-url"
	_, err := NewServer(context.Background(), cfg)
	assert.Error(t, err)
}
