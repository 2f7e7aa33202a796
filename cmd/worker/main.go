package main

import (
	"time"

	"estates-backend/bootstrap"
	"estates-backend/internal/application/notifications"
	"estates-backend/internal/config"
	"estates-backend/internal/infrastructure/database"

	"github.com/getsentry/sentry-go"
	"github.com/hibiken/asynq"
	"github.com/rs/zerolog/log"
)

var version = "dev"

// The worker delivers queued notification emails when NOTIFY_USE_QUEUE is on.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config load")
	}
	bootstrap.Logger(cfg)
	if bootstrap.Sentry(cfg, version) {
		defer sentry.Flush(2 * time.Second)
	}

	if cfg.DatabaseURL == "" {
		log.Fatal().Msg("worker needs a database to resolve notification recipients")
	}
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("postgres open")
	}

	redisOpt, err := asynq.ParseRedisURI(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid REDIS_URL")
	}

	concurrency := cfg.WorkerConcurrency
	if concurrency <= 0 {
		concurrency = 5
	}
	srv := notifications.NewServer(redisOpt, concurrency)
	mux := notifications.NewServeMux(&notifications.TaskHandler{Sink: bootstrap.EmailSink(cfg, db)})

	log.Info().Int("concurrency", concurrency).Msg("notification worker starting")
	// Run blocks until SIGTERM/SIGINT and then drains active tasks.
	if err := srv.Run(mux); err != nil {
		log.Error().Err(err).Msg("worker stopped")
	}
}
