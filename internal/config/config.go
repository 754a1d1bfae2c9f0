package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	pkglog "github.com/thereayou/building-chat/pkg/log"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	Chat      ChatConfig
	WebSocket WebSocketConfig
	Log       pkglog.Config
}

type ServerConfig struct {
	Host            string
	Port            int
	Mode            string
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type DatabaseConfig struct {
	Driver          string
	DSN             string
	AutoMigrate     bool `mapstructure:"auto_migrate"`
	MaxIdleConns    int  `mapstructure:"max_idle_conns"`
	MaxOpenConns    int  `mapstructure:"max_open_conns"`
	ConnMaxLifetime int  `mapstructure:"conn_max_lifetime"` // в минутах
}

type RedisConfig struct {
	URL string
}

type JWTConfig struct {
	Secret   string
	Duration time.Duration
}

type ChatConfig struct {
	DefaultPageSize int `mapstructure:"default_page_size"`
	MaxPageSize     int `mapstructure:"max_page_size"`
	PreviewLength   int `mapstructure:"preview_length"`
}

type WebSocketConfig struct {
	WriteWait      time.Duration `mapstructure:"write_wait"`
	PongWait       time.Duration `mapstructure:"pong_wait"`
	PingInterval   time.Duration `mapstructure:"ping_interval"`
	MaxMessageSize int64         `mapstructure:"max_message_size"`
	SendBuffer     int           `mapstructure:"send_buffer"`
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
}

// Addr возвращает host:port HTTP-сервера
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Load читает .env, необязательный config/config.yaml и переменные окружения;
// каждый следующий источник важнее предыдущего.
func Load() (*Config, error) {
	if err := godotenv.Load(".env.local"); err != nil {
		_ = godotenv.Load()
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	v.AddConfigPath(".")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	setDefaults(v)
	bindEnv(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.JWT.Secret == "" {
		return errors.New("jwt.secret (JWT_SECRET) is required")
	}
	if c.Database.DSN == "" {
		return errors.New("database.dsn (DATABASE_URL) is required")
	}
	if c.Chat.DefaultPageSize <= 0 || c.Chat.MaxPageSize < c.Chat.DefaultPageSize {
		return fmt.Errorf("invalid chat page sizes: default=%d max=%d", c.Chat.DefaultPageSize, c.Chat.MaxPageSize)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.auto_migrate", true)
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.max_open_conns", 50)
	v.SetDefault("database.conn_max_lifetime", 60)

	v.SetDefault("jwt.duration", 24*time.Hour)

	v.SetDefault("chat.default_page_size", 30)
	v.SetDefault("chat.max_page_size", 100)
	v.SetDefault("chat.preview_length", 100)

	v.SetDefault("websocket.write_wait", 10*time.Second)
	v.SetDefault("websocket.pong_wait", 60*time.Second)
	v.SetDefault("websocket.ping_interval", 54*time.Second)
	v.SetDefault("websocket.max_message_size", 64*1024)
	v.SetDefault("websocket.send_buffer", 256)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.service_name", "building-chat")
}

func bindEnv(v *viper.Viper) {
	_ = v.BindEnv("server.port", "PORT")
	_ = v.BindEnv("server.mode", "GIN_MODE")
	_ = v.BindEnv("database.driver", "DB_DRIVER")
	_ = v.BindEnv("database.dsn", "DATABASE_URL")
	_ = v.BindEnv("redis.url", "REDIS_URL")
	_ = v.BindEnv("jwt.secret", "JWT_SECRET")
	_ = v.BindEnv("log.level", "LOG_LEVEL")
	_ = v.BindEnv("log.pretty", "LOG_PRETTY")
}
