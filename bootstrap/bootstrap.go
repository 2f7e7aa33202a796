// Package bootstrap holds the process setup shared by the API and the worker.
package bootstrap

import (
	"os"
	"time"

	"estates-backend/internal/application/emails"
	"estates-backend/internal/application/notifications"
	"estates-backend/internal/config"
	"estates-backend/internal/infrastructure/store"

	"github.com/getsentry/sentry-go"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// Logger configures the global zerolog logger: JSON in production, console otherwise.
func Logger(cfg *config.Config) {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || cfg.LogLevel == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339
	if !cfg.IsProduction() {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
}

// Sentry initialises error reporting when SENTRY_DSN is set and reports whether it is active.
func Sentry(cfg *config.Config, release string) bool {
	if cfg.SentryDSN == "" {
		return false
	}
	if err := sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.SentryDSN,
		EnableTracing:    true,
		TracesSampleRate: 0.2,
		Environment:      cfg.Env,
		Release:          release,
	}); err != nil {
		log.Error().Err(err).Msg("sentry init failed")
		return false
	}
	return true
}

// EmailSink builds the Brevo-backed email channel used in-process or by the worker.
func EmailSink(cfg *config.Config, db *gorm.DB) *notifications.EmailSink {
	if cfg.SendinblueAPIKey == "" {
		log.Warn().Msg("SENDINBLUE_API_KEY not set, notification emails are disabled")
	}
	return &notifications.EmailSink{
		Mailer: &emails.BrevoClient{
			APIKey:    cfg.SendinblueAPIKey,
			MailFrom:  cfg.MailFrom,
			BrandName: cfg.BrandName,
		},
		Templates:  emails.Templates{BrandName: cfg.BrandName, SiteURL: cfg.SiteBaseURL},
		Users:      &store.GormUserStore{DB: db},
		AdminEmail: cfg.AdminAlertEmail,
	}
}
