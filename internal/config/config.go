// Package config собирает настройки сервера из окружения.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

type Config struct {
	Port string `env:"PORT" envDefault:"8080"`

	DatabaseDriver string `env:"DATABASE_DRIVER" envDefault:"postgres"`
	DatabaseURL    string `env:"DATABASE_URL"`

	// Пустой REDIS_URL: шина в пределах процесса, без лимита HTTP переводов
	RedisURL       string `env:"REDIS_URL"`
	RedisKeyPrefix string `env:"REDIS_KEY_PREFIX" envDefault:"scoreroom:"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`

	WSPingPeriod time.Duration `env:"WS_PING_PERIOD" envDefault:"54s"`
	WSPongWait   time.Duration `env:"WS_PONG_WAIT" envDefault:"60s"`
	WSSendBuffer int           `env:"WS_SEND_BUFFER" envDefault:"256"`
	BusBuffer    int           `env:"BUS_BUFFER" envDefault:"64"`

	SessionCommandRate  float64 `env:"SESSION_COMMAND_RATE" envDefault:"10"`
	SessionCommandBurst int     `env:"SESSION_COMMAND_BURST" envDefault:"20"`

	TransferRateLimit  int           `env:"TRANSFER_RATE_LIMIT" envDefault:"60"`
	TransferRateWindow time.Duration `env:"TRANSFER_RATE_WINDOW" envDefault:"1m"`

	RoomCodeLength int `env:"ROOM_CODE_LENGTH" envDefault:"8"`
}

// Load читает .env.local или .env, если они есть, затем окружение
func Load() (*Config, error) {
	if err := godotenv.Load(".env.local"); err != nil {
		if err := godotenv.Load(); err != nil {
			logrus.Debug(".env not found, using environment variables")
		}
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	if c.DatabaseURL == "" {
		errs = append(errs, errors.New("DATABASE_URL is required"))
	}
	if c.DatabaseDriver != "postgres" && c.DatabaseDriver != "sqlite" {
		errs = append(errs, fmt.Errorf("DATABASE_DRIVER must be postgres or sqlite, got %q", c.DatabaseDriver))
	}
	if c.WSPingPeriod >= c.WSPongWait {
		errs = append(errs, errors.New("WS_PING_PERIOD must be shorter than WS_PONG_WAIT"))
	}
	if c.RoomCodeLength < 4 || c.RoomCodeLength > 16 {
		errs = append(errs, fmt.Errorf("ROOM_CODE_LENGTH must be between 4 and 16, got %d", c.RoomCodeLength))
	}
	return errors.Join(errs...)
}

// SetupLogging настраивает logrus по LOG_LEVEL и LOG_FORMAT
func (c *Config) SetupLogging() error {
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return fmt.Errorf("LOG_LEVEL: %w", err)
	}
	logrus.SetLevel(level)

	switch c.LogFormat {
	case "json":
		logrus.SetFormatter(&logrus.JSONFormatter{})
	default:
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return nil
}
