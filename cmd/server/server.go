package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"

	"github.com/thereayou/building-chat/internal/config"
	"github.com/thereayou/building-chat/internal/database"
	"github.com/thereayou/building-chat/internal/handlers"
	"github.com/thereayou/building-chat/internal/services"
	ws "github.com/thereayou/building-chat/internal/websocket"
	"github.com/thereayou/building-chat/pkg/auth"
	pkglog "github.com/thereayou/building-chat/pkg/log"
)

type Server struct {
	Config     *config.Config
	Router     *gin.Engine
	DB         *database.Database
	Redis      *redis.Client
	Hub        *ws.Hub
	JWTManager *auth.JWTManager

	httpServer *http.Server
}

func NewServer(cfg *config.Config) (*Server, error) {
	logger := pkglog.L()

	db, err := database.Connect(cfg.Database)
	if err != nil {
		return nil, err
	}
	if cfg.Database.AutoMigrate {
		if err := db.Migrate(); err != nil {
			db.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
	}

	var (
		rdb       *redis.Client
		blacklist auth.Blacklist
	)
	if cfg.Redis.URL != "" {
		opts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("invalid redis url: %w", err)
		}
		rdb = redis.NewClient(opts)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := rdb.Ping(ctx).Err(); err != nil {
			db.Close()
			return nil, fmt.Errorf("redis connect failed: %w", err)
		}
		blacklist = auth.NewRedisBlacklist(rdb)
	} else {
		logger.Warn().Msg("redis url not set, token revocations are kept in memory")
		blacklist = auth.NewMemoryBlacklist()
	}

	jwtMgr := auth.NewJWTManager(cfg.JWT.Secret, cfg.JWT.Duration)
	hub := ws.NewHub(cfg.WebSocket.PingInterval)

	users := services.NewUserDirectory(db)
	authenticator := services.NewAuthenticator(jwtMgr, blacklist, users)
	guard := services.NewMembershipGuard(db)
	rooms := services.NewRoomService(db, guard, users, cfg.Chat.PreviewLength)
	messages := services.NewMessageService(db, rooms, users, hub, cfg.Chat.DefaultPageSize, cfg.Chat.MaxPageSize)

	deps := routerDeps{
		authenticator: authenticator,
		authH:         handlers.NewAuthHandler(jwtMgr, blacklist),
		roomH:         handlers.NewRoomHandler(rooms),
		messageH:      handlers.NewHTTPMessageHandler(messages),
		wsH:           handlers.NewWebSocketHandler(hub, handlers.NewMessageHandler(hub, rooms, messages), cfg.WebSocket),
		db:            db,
	}

	gin.SetMode(cfg.Server.Mode)
	router := gin.New()
	router.Use(gin.Recovery(), pkglog.GinMiddleware(*logger))
	APIEndpoints(router, deps)

	return &Server{
		Config:     cfg,
		Router:     router,
		DB:         db,
		Redis:      rdb,
		Hub:        hub,
		JWTManager: jwtMgr,
		httpServer: &http.Server{
			Addr:              cfg.Server.Addr(),
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}, nil
}

// Run блокируется до отмены ctx, затем мягко останавливает сервер
func (s *Server) Run(ctx context.Context) error {
	logger := pkglog.L()

	go s.Hub.Run()

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", s.httpServer.Addr).Msg("server starting")
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			s.close()
			return fmt.Errorf("server run error: %w", err)
		}
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.Config.Server.ShutdownTimeout)
	defer cancel()

	err := s.httpServer.Shutdown(shutdownCtx)
	s.close()
	return err
}

func (s *Server) close() {
	s.Hub.Stop()
	if s.Redis != nil {
		s.Redis.Close()
	}
	if err := s.DB.Close(); err != nil {
		pkglog.L().Warn().Err(err).Msg("close database")
	}
}
