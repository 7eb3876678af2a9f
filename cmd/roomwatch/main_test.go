package main

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thereayou/score-rooms/internal/handlers/dto"
	"github.com/thereayou/score-rooms/internal/roomclient"
)

func TestWSURL(t *testing.T) {
	assert.Equal(t, "ws://localhost:8080/ws", wsURL("http://localhost:8080/"))
	assert.Equal(t, "wss://scores.example.com/ws", wsURL("https://scores.example.com"))
}

func TestEnter_FromCachedSession(t *testing.T) {
	cache := roomclient.NewFileCache(t.TempDir())
	roomID, memberID := uuid.New(), uuid.New()
	require.NoError(t, cache.Save(&roomclient.CacheEntry{
		Room:       dto.RoomResponse{ID: roomID, Code: "ABC12345"},
		Member:     dto.MemberResponse{ID: memberID, Name: "Alice"},
		CapturedAt: time.Now(),
	}))

	cfg, err := enter(context.Background(), roomclient.NewAPI("http://unused", nil), cache, "", "", "")
	require.NoError(t, err)
	assert.Equal(t, "ABC12345", cfg.RoomCode)
	assert.Equal(t, roomID, cfg.RoomID)
	assert.Equal(t, memberID, cfg.MemberID)
	assert.False(t, cfg.JustJoined)
}

func TestEnter_NoSession(t *testing.T) {
	cache := roomclient.NewFileCache(t.TempDir())
	_, err := enter(context.Background(), roomclient.NewAPI("http://unused", nil), cache, "", "", "")
	assert.Error(t, err)

	_, err = enter(context.Background(), roomclient.NewAPI("http://unused", nil), cache, "ABC12345", "", "")
	assert.ErrorContains(t, err, "-name")
}
