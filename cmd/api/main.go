package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"estates-backend/bootstrap"
	"estates-backend/internal/config"
	"estates-backend/internal/infrastructure/database"
	"estates-backend/internal/interfaces/router"

	"github.com/getsentry/sentry-go"
	"github.com/rs/zerolog/log"
)

var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config load")
	}
	bootstrap.Logger(cfg)
	sentryOn := bootstrap.Sentry(cfg, version)

	srv, err := router.CreateApp(cfg, router.Options{Sentry: sentryOn})
	if err != nil {
		log.Fatal().Err(err).Msg("app create")
	}

	ctx := context.Background()
	if srv.DB != nil {
		sqlDB, err := srv.DB.DB()
		if err != nil {
			log.Fatal().Err(err).Msg("postgres: get DB")
		}
		if err := sqlDB.PingContext(ctx); err != nil {
			log.Fatal().Err(err).Msg("postgres connection failed")
		}
		if err := database.AutoMigrate(srv.DB); err != nil {
			log.Fatal().Err(err).Msg("postgres migrate failed")
		}
		log.Info().Msg("postgres connected")
	}
	if err := srv.Rdb.Ping(ctx).Err(); err != nil {
		log.Fatal().Err(err).Msg("redis connection failed")
	}
	log.Info().Msg("redis connected")

	go func() {
		log.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("server running")
		if err := srv.App.Listen(":" + cfg.Port); err != nil {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown")
	}
	if sentryOn {
		sentry.Flush(2 * time.Second)
	}
}
