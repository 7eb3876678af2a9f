package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("DATABASE_URL", "postgres://localhost/scores")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "postgres", cfg.DatabaseDriver)
	assert.Equal(t, "scoreroom:", cfg.RedisKeyPrefix)
	assert.Equal(t, 54*time.Second, cfg.WSPingPeriod)
	assert.Equal(t, 60*time.Second, cfg.WSPongWait)
	assert.Equal(t, 8, cfg.RoomCodeLength)
	assert.Equal(t, time.Minute, cfg.TransferRateWindow)
	assert.Empty(t, cfg.RedisURL)
}

func TestLoad_DotEnvFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env.local"),
		[]byte("DATABASE_DRIVER=sqlite\nDATABASE_URL=file:dev.db\nWS_PING_PERIOD=5s\nWS_PONG_WAIT=8s\n"), 0o600))
	// godotenv не перезаписывает уже заданные переменные
	t.Setenv("PORT", "9090")
	t.Cleanup(func() {
		for _, k := range []string{"DATABASE_DRIVER", "DATABASE_URL", "WS_PING_PERIOD", "WS_PONG_WAIT"} {
			os.Unsetenv(k)
		}
	})

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.DatabaseDriver)
	assert.Equal(t, "file:dev.db", cfg.DatabaseURL)
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, 5*time.Second, cfg.WSPingPeriod)
}

func TestLoad_Invalid(t *testing.T) {
	t.Chdir(t.TempDir())

	t.Setenv("DATABASE_URL", "")
	_, err := Load()
	assert.ErrorContains(t, err, "DATABASE_URL")

	t.Setenv("DATABASE_URL", "x")
	t.Setenv("WS_PONG_WAIT", "not-a-duration")
	_, err = Load()
	assert.ErrorContains(t, err, "parse env:")

	t.Setenv("WS_PONG_WAIT", "10s")
	t.Setenv("WS_PING_PERIOD", "30s")
	t.Setenv("DATABASE_DRIVER", "mysql")
	_, err = Load()
	assert.ErrorContains(t, err, "WS_PING_PERIOD")
	assert.ErrorContains(t, err, "DATABASE_DRIVER")
}

func TestSetupLogging(t *testing.T) {
	defer logrus.SetLevel(logrus.InfoLevel)
	defer logrus.SetFormatter(&logrus.TextFormatter{})

	cfg := &Config{LogLevel: "debug", LogFormat: "json"}
	require.NoError(t, cfg.SetupLogging())
	assert.Equal(t, logrus.DebugLevel, logrus.GetLevel())
	assert.IsType(t, &logrus.JSONFormatter{}, logrus.StandardLogger().Formatter)

	cfg.LogLevel = "loud"
	assert.Error(t, cfg.SetupLogging())
}
