package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("DATABASE_URL", "file::memory:")
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("PORT", "9090")
	t.Setenv("CHAT_MAX_PAGE_SIZE", "50")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "s3cret", cfg.JWT.Secret)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 24*time.Hour, cfg.JWT.Duration)
	assert.Equal(t, 30, cfg.Chat.DefaultPageSize)
	assert.Equal(t, 50, cfg.Chat.MaxPageSize)
	assert.Equal(t, 60*time.Second, cfg.WebSocket.PongWait)
	assert.EqualValues(t, 64*1024, cfg.WebSocket.MaxMessageSize)
	assert.Equal(t, "0.0.0.0:9090", cfg.Server.Addr())
}

func TestLoad_RequiresSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	t.Setenv("DATABASE_URL", "postgres://localhost/chat")

	_, err := Load()
	assert.Error(t, err)
}

func TestValidate_PageSizes(t *testing.T) {
	cfg := Config{
		JWT:      JWTConfig{Secret: "x"},
		Database: DatabaseConfig{DSN: "x"},
		Chat:     ChatConfig{DefaultPageSize: 50, MaxPageSize: 10},
	}
	assert.Error(t, cfg.Validate())

	cfg.Chat.MaxPageSize = 50
	assert.NoError(t, cfg.Validate())
}
