package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"
	"github.com/thereayou/score-rooms/internal/bus"
	"github.com/thereayou/score-rooms/internal/config"
	"github.com/thereayou/score-rooms/internal/database"
	"github.com/thereayou/score-rooms/internal/handlers"
	"github.com/thereayou/score-rooms/internal/metrics"
	"github.com/thereayou/score-rooms/internal/services"
	"github.com/thereayou/score-rooms/internal/websocket"
)

type Server struct {
	Config   *config.Config
	Router   *gin.Engine
	DB       *database.Database
	Redis    *redis.Client
	Bus      bus.Bus
	Hub      *websocket.Hub
	Registry *prometheus.Registry

	http *http.Server
}

func NewServer(ctx context.Context, cfg *config.Config) (*Server, error) {
	dbConn := &database.Database{}
	if err := dbConn.Connect(cfg.DatabaseDriver, cfg.DatabaseURL); err != nil {
		return nil, err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	mc := metrics.NewCollector(reg)

	s := &Server{Config: cfg, DB: dbConn, Registry: reg}

	local := bus.NewLocalBus(cfg.BusBuffer, mc)
	s.Bus = local
	if cfg.RedisURL != "" {
		redisOpts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			_ = dbConn.Close()
			return nil, err
		}
		rdb := redis.NewClient(redisOpts)
		if err := rdb.Ping(ctx).Err(); err != nil {
			_ = dbConn.Close()
			return nil, err
		}
		rb, err := bus.NewRedisBus(ctx, rdb, cfg.RedisKeyPrefix, local)
		if err != nil {
			_ = rdb.Close()
			_ = dbConn.Close()
			return nil, err
		}
		s.Redis = rdb
		s.Bus = rb
		logrus.Info("Room events relayed through Redis")
	}

	rooms := services.NewRoomService(dbConn, services.UUIDCodes(cfg.RoomCodeLength))
	transfers := services.NewTransferService(dbConn, mc)

	s.Hub = websocket.NewHub(s.Bus, transfers, rooms, mc, websocket.Config{
		PingPeriod:   cfg.WSPingPeriod,
		PongWait:     cfg.WSPongWait,
		SendBuffer:   cfg.WSSendBuffer,
		CommandRate:  cfg.SessionCommandRate,
		CommandBurst: cfg.SessionCommandBurst,
	})

	s.Router = gin.New()
	s.Router.Use(gin.Recovery())
	APIEndpoints(s.Router, Deps{
		Rooms:     handlers.NewRoomHandler(rooms),
		Transfers: handlers.NewTransferHandler(transfers, s.Hub),
		WebSocket: handlers.NewWebSocketHandler(s.Hub, handlers.NewMessageHandler(s.Hub)),
		Redis:     s.Redis,
		Config:    cfg,
		Gatherer:  reg,
	})

	return s, nil
}

// Run обслуживает запросы до отмены ctx, затем закрывает сессии и хранилище
func (s *Server) Run(ctx context.Context) error {
	go s.Hub.Run()

	s.http = &http.Server{
		Addr:              ":" + s.Config.Port,
		Handler:           s.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logrus.WithField("port", s.Config.Port).Info("Server starting")
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		s.shutdown()
		return err
	case <-ctx.Done():
	}

	logrus.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err := s.http.Shutdown(shutdownCtx)
	s.shutdown()
	return err
}

func (s *Server) shutdown() {
	s.Hub.Stop()
	if err := s.Bus.Close(); err != nil {
		logrus.WithError(err).Warn("Bus close failed")
	}
	if s.Redis != nil {
		_ = s.Redis.Close()
	}
	if err := s.DB.Close(); err != nil {
		logrus.WithError(err).Warn("Database close failed")
	}
}
