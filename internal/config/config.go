package config

import (
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration (env + Viper).
type Config struct {
	Env                 string
	Port                string
	SessionSecret       string
	DatabaseURL         string
	RedisURL            string
	FrontendURLEndsWith string
	DevPassword         string
	AllowCrossSiteDev   bool
	CookieDomain        string // COOKIE_DOMAIN cleared on logout in production (e.g. .estates.example)
	HealthAdminKey      string
	SendinblueAPIKey    string // SENDINBLUE_API_KEY for notification emails (Brevo)
	MailFrom            string
	BrandName           string
	AdminAlertEmail     string // ADMIN_ALERT_EMAIL receives submission and engagement alerts
	SiteBaseURL         string // links in emails
	NotifyTimeout       time.Duration
	NotifyUseQueue      bool // deliver email through the asynq worker instead of in-process
	WorkerConcurrency   int
	SentryDSN           string
	LogLevel            string
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Load loads config from env and optional .env file.
func Load() (*Config, error) {
	viper.SetConfigFile(".env")
	_ = viper.ReadInConfig()

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	viper.SetDefault("PORT", "8080")
	viper.SetDefault("MAIL_FROM", "noreply@estates.example")
	viper.SetDefault("BRAND_NAME", "Estates")
	viper.SetDefault("SITE_BASE_URL", "http://localhost:3000")
	viper.SetDefault("NOTIFY_TIMEOUT_SECONDS", 10)
	viper.SetDefault("WORKER_CONCURRENCY", 5)
	viper.SetDefault("LOG_LEVEL", "info")

	env := viper.GetString("APP_ENV")
	if env == "" {
		env = "development"
	}

	dbURL := viper.GetString("DATABASE_URL_DEV")
	if env == "production" {
		dbURL = viper.GetString("DATABASE_URL_PROD")
	} else if env == "test" {
		dbURL = viper.GetString("DATABASE_URL_TEST")
	}
	if dbURL == "" {
		dbURL = os.Getenv("DATABASE_URL")
	}

	return &Config{
		Env:                 env,
		Port:                viper.GetString("PORT"),
		SessionSecret:       viper.GetString("SESSION_SECRET"),
		DatabaseURL:         dbURL,
		RedisURL:            viper.GetString("REDIS_URL"),
		FrontendURLEndsWith: viper.GetString("FRONTEND_URL_ENDS_WITH"),
		DevPassword:         viper.GetString("DEV_PASSWORD"),
		AllowCrossSiteDev:   viper.GetBool("ALLOW_CROSS_SITE_DEV"),
		CookieDomain:        viper.GetString("COOKIE_DOMAIN"),
		HealthAdminKey:      viper.GetString("HEALTH_ADMIN_KEY"),
		SendinblueAPIKey:    viper.GetString("SENDINBLUE_API_KEY"),
		MailFrom:            viper.GetString("MAIL_FROM"),
		BrandName:           viper.GetString("BRAND_NAME"),
		AdminAlertEmail:     viper.GetString("ADMIN_ALERT_EMAIL"),
		SiteBaseURL:         strings.TrimRight(strings.TrimSpace(viper.GetString("SITE_BASE_URL")), "/"),
		NotifyTimeout:       time.Duration(viper.GetInt("NOTIFY_TIMEOUT_SECONDS")) * time.Second,
		NotifyUseQueue:      viper.GetBool("NOTIFY_USE_QUEUE"),
		WorkerConcurrency:   viper.GetInt("WORKER_CONCURRENCY"),
		SentryDSN:           viper.GetString("SENTRY_DSN"),
		LogLevel:            viper.GetString("LOG_LEVEL"),
	}, nil
}
