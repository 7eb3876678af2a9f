package main

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/thereayou/score-rooms/internal/config"
	"github.com/thereayou/score-rooms/internal/handlers"
	"github.com/thereayou/score-rooms/internal/metrics"
	"github.com/thereayou/score-rooms/internal/middleware"
)

type Deps struct {
	Rooms     *handlers.RoomHandler
	Transfers *handlers.TransferHandler
	WebSocket *handlers.WebSocketHandler
	// Redis nil: HTTP переводы без лимита
	Redis    *redis.Client
	Config   *config.Config
	Gatherer prometheus.Gatherer
}

func APIEndpoints(r *gin.Engine, d Deps) {
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(metrics.Handler(d.Gatherer)))
	r.GET("/ws", d.WebSocket.HandleWebSocket)

	api := r.Group("/api", middleware.RequestLogger())
	{
		api.POST("/rooms", d.Rooms.CreateRoom)
		api.POST("/rooms/join", d.Rooms.JoinRoom)
		api.GET("/rooms/:code", d.Rooms.GetRoom)
		api.POST("/rooms/:code/close", d.Rooms.CloseRoom)

		transfer := []gin.HandlerFunc{d.Transfers.CreateTransfer}
		if d.Redis != nil {
			limit := middleware.RateLimit(d.Redis, d.Config.RedisKeyPrefix, d.Config.TransferRateLimit, d.Config.TransferRateWindow)
			transfer = append([]gin.HandlerFunc{limit}, transfer...)
		}
		api.POST("/rooms/:code/transfers", transfer...)
	}
}
