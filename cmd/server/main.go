package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/thereayou/building-chat/internal/config"
	pkglog "github.com/thereayou/building-chat/pkg/log"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		pkglog.L().Fatal().Err(err).Msg("load config")
	}
	pkglog.Init(cfg.Log)

	srv, err := NewServer(cfg)
	if err != nil {
		pkglog.L().Fatal().Err(err).Msg("init server")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := srv.Run(ctx); err != nil {
		pkglog.L().Error().Err(err).Msg("server stopped with error")
		os.Exit(1)
	}
}
