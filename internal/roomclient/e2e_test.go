package roomclient_test

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thereayou/score-rooms/internal/bus"
	"github.com/thereayou/score-rooms/internal/database"
	"github.com/thereayou/score-rooms/internal/handlers"
	"github.com/thereayou/score-rooms/internal/handlers/dto"
	"github.com/thereayou/score-rooms/internal/roomclient"
	"github.com/thereayou/score-rooms/internal/services"
	"github.com/thereayou/score-rooms/internal/websocket"
)

func startServer(t *testing.T) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := database.OpenInMemory(t.Name())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	rooms := services.NewRoomService(db, services.UUIDCodes(8))
	transfers := services.NewTransferService(db, nil)
	hub := websocket.NewHub(bus.NewLocalBus(32, nil), transfers, rooms, nil, websocket.Config{})
	go hub.Run()

	rh := handlers.NewRoomHandler(rooms)
	r := gin.New()
	r.GET("/ws", handlers.NewWebSocketHandler(hub, handlers.NewMessageHandler(hub)).HandleWebSocket)
	r.POST("/api/rooms", rh.CreateRoom)
	r.POST("/api/rooms/join", rh.JoinRoom)
	r.GET("/api/rooms/:code", rh.GetRoom)
	r.POST("/api/rooms/:code/close", rh.CloseRoom)
	r.POST("/api/rooms/:code/transfers", handlers.NewTransferHandler(transfers, hub).CreateTransfer)

	srv := httptest.NewServer(r)
	t.Cleanup(func() {
		hub.Stop()
		srv.Close()
	})
	return srv
}

func TestReconcilerAgainstServer(t *testing.T) {
	srv := startServer(t)
	api := roomclient.NewAPI(srv.URL, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	created, err := api.CreateRoom(ctx, "Poker", "Alice")
	require.NoError(t, err)
	bob, err := api.JoinRoom(ctx, created.Room.Code, "Bob")
	require.NoError(t, err)
	require.True(t, bob.JustJoined)

	cache := roomclient.NewFileCache(t.TempDir())
	rec := roomclient.NewReconciler(roomclient.Config{
		RoomCode:   created.Room.Code,
		RoomID:     created.Room.ID,
		MemberID:   created.Member.ID,
		JustJoined: false,
	}, api, &roomclient.WSDialer{
		URL:              "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws",
		HeartbeatTimeout: 5 * time.Second,
	}, cache, roomclient.DefaultCachePolicy())

	done := make(chan error, 1)
	go func() { done <- rec.Run(ctx) }()
	require.Eventually(t, rec.CanConfirm, 3*time.Second, 10*time.Millisecond)

	// Боб одалживает Алисе 50, затем Алиса Бобу 30
	for _, tr := range []dto.TransferRequest{
		{FromMemberID: bob.Member.ID.String(), ToMemberID: created.Member.ID.String(), Amount: 50},
		{FromMemberID: created.Member.ID.String(), ToMemberID: bob.Member.ID.String(), Amount: 30},
	} {
		_, err := api.Transfer(ctx, created.Room.Code, tr)
		require.NoError(t, err)
	}

	require.Eventually(t, func() bool {
		v := rec.View()
		return v.Room != nil && len(v.Room.Transactions) == 2 && len(v.Activity) == 2
	}, 3*time.Second, 10*time.Millisecond)

	v := rec.View()
	assert.Equal(t, int64(20), v.Room.Members[0].Balance)
	assert.Equal(t, int64(-20), v.Room.Members[1].Balance)
	assert.Equal(t, int64(30), v.Room.Transactions[0].Amount)
	assert.Equal(t, int64(30), v.Activity[0].Amount)

	entry, err := cache.Load()
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, created.Room.Code, entry.Room.Code)

	// в закрытой комнате переводы отклоняются
	closed, err := api.CloseRoom(ctx, created.Room.Code)
	require.NoError(t, err)
	require.False(t, closed.IsActive)
	_, err = api.Transfer(ctx, created.Room.Code, dto.TransferRequest{
		FromMemberID: bob.Member.ID.String(), ToMemberID: created.Member.ID.String(), Amount: 1,
	})
	var apiErr *roomclient.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "not_found", apiErr.Kind)

	cancel()
	<-done
}

func TestReconcilerForeignMemberStops(t *testing.T) {
	srv := startServer(t)
	api := roomclient.NewAPI(srv.URL, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	roomA, err := api.CreateRoom(ctx, "Poker", "Alice")
	require.NoError(t, err)
	roomB, err := api.CreateRoom(ctx, "Chess", "Mallory")
	require.NoError(t, err)

	rec := roomclient.NewReconciler(roomclient.Config{
		RoomCode:       roomA.Room.Code,
		RoomID:         roomA.Room.ID,
		MemberID:       roomB.Member.ID,
		InitialBackoff: 10 * time.Millisecond,
	}, api, &roomclient.WSDialer{
		URL:              "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws",
		HeartbeatTimeout: time.Second,
	}, roomclient.NewFileCache(t.TempDir()), roomclient.DefaultCachePolicy())

	started := time.Now()
	err = rec.Run(ctx)
	assert.ErrorIs(t, err, roomclient.ErrStaleSession)
	assert.Less(t, time.Since(started), 3*time.Second)
	assert.Equal(t, roomclient.StateAbandoned, rec.State())
}
