package router

import (
	"context"
	"time"

	"estates-backend/bootstrap"
	authsvc "estates-backend/internal/application/auth"
	engsvc "estates-backend/internal/application/engagements"
	healthsvc "estates-backend/internal/application/health"
	listsvc "estates-backend/internal/application/listings"
	"estates-backend/internal/application/notifications"
	"estates-backend/internal/config"
	"estates-backend/internal/infrastructure/database"
	"estates-backend/internal/infrastructure/store"
	authhandler "estates-backend/internal/interfaces/handlers/auth"
	enghandler "estates-backend/internal/interfaces/handlers/engagements"
	healthhandler "estates-backend/internal/interfaces/handlers/health"
	listhandler "estates-backend/internal/interfaces/handlers/listings"
	notifhandler "estates-backend/internal/interfaces/handlers/notifications"
	"estates-backend/internal/middleware"

	sentryfiber "github.com/getsentry/sentry-go/fiber"
	"github.com/gofiber/fiber/v2"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

type gormDBPinger struct {
	db *gorm.DB
}

func (g *gormDBPinger) Ping() error {
	if g == nil || g.db == nil {
		return nil
	}
	sqlDB, err := g.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

// Server is the assembled API and the resources it must release on shutdown.
type Server struct {
	App        *fiber.App
	DB         *gorm.DB
	Rdb        *redis.Client
	Dispatcher *notifications.AsyncDispatcher
	queue      *asynq.Client
}

// Options lets tests swap in their own database and Redis.
type Options struct {
	DB    *gorm.DB
	Redis *redis.Client
	// Sentry installs the sentry-go fiber middleware (set once sentry.Init succeeded).
	Sentry bool
}

// CreateApp wires config, storage, workflows and routes into a Fiber app.
func CreateApp(cfg *config.Config, opts Options) (*Server, error) {
	app := fiber.New(fiber.Config{
		DisableStartupMessage:   true,
		// Request values are handed to the notification dispatcher after the handler returns.
		Immutable:               true,
		ErrorHandler:            middleware.ErrorHandler,
		EnableTrustedProxyCheck: true,
	})

	if opts.Sentry {
		app.Use(sentryfiber.New(sentryfiber.Options{Repanic: true, WaitForDelivery: false}))
	}

	app.Use(middleware.CORS(middleware.CORSConfig{
		AllowedSuffix: cfg.FrontendURLEndsWith,
		DevPassword:   cfg.DevPassword,
	}))

	sessionCfg := middleware.SessionConfig{
		Secret:            cfg.SessionSecret,
		RedisURL:          cfg.RedisURL,
		AllowCrossSiteDev: cfg.AllowCrossSiteDev,
		IsProduction:      cfg.IsProduction(),
		CookieDomain:      cfg.CookieDomain,
	}
	rdb := opts.Redis
	var sessionHandler fiber.Handler
	if rdb != nil {
		sessionHandler = middleware.SessionWithClient(rdb)
	} else {
		var err error
		sessionHandler, rdb, err = middleware.Session(sessionCfg)
		if err != nil {
			return nil, err
		}
	}
	app.Use(sessionHandler)
	app.Use(middleware.HealthMarker(rdb))
	app.Use(middleware.Tracing())
	app.Use(middleware.RouteLogger())

	db := opts.DB
	if db == nil && cfg.DatabaseURL != "" {
		var err error
		if db, err = database.Open(cfg.DatabaseURL); err != nil {
			return nil, err
		}
	}

	hh := &healthhandler.Handlers{
		Rdb:            rdb,
		HealthAdminKey: cfg.HealthAdminKey,
		Probes: []healthsvc.Probe{
			{Name: "site", URL: cfg.SiteBaseURL, Timeout: 2 * time.Second},
		},
	}
	if db != nil {
		hh.DB = &gormDBPinger{db: db}
	}
	app.Get("/reset", hh.Reset)
	app.Get("/health/json", hh.JSON)
	app.Get("/health/errors", hh.Errors)

	srv := &Server{App: app, DB: db, Rdb: rdb}

	var userFinder authsvc.UserFinder
	if db != nil {
		userFinder = &authsvc.StoreUserFinder{Users: &store.GormUserStore{DB: db}}
	}
	ah := &authhandler.Handlers{UserFinder: userFinder, Rdb: rdb, Config: sessionCfg}
	authGroup := app.Group("/api/v1/auth")
	authGroup.Post("/login", ah.Login)
	authGroup.Get("/me", ah.Me)
	authGroup.Delete("/logout", ah.Logout)
	authGroup.Delete("/sessions", ah.LogoutAll)

	if db == nil {
		log.Warn().Msg("no database configured, workflow routes are disabled")
		return srv, nil
	}

	outbox := &notifications.OutboxSink{RDB: rdb}
	sinks := []notifications.Sink{outbox}
	if cfg.NotifyUseQueue {
		srv.queue = asynq.NewClient(QueueRedisOpt(rdb))
		sinks = append(sinks, &notifications.QueueSink{Client: srv.queue})
	} else {
		sinks = append(sinks, bootstrap.EmailSink(cfg, db))
	}
	srv.Dispatcher = notifications.NewAsyncDispatcher(cfg.NotifyTimeout, sinks...)

	listingStore := &store.GormListingStore{DB: db}
	engagementStore := &store.GormEngagementStore{DB: db}

	lh := &listhandler.Handlers{Service: listsvc.NewService(listingStore, srv.Dispatcher)}
	lg := app.Group("/api/v1/listings")
	lg.Get("/public", lh.ListPublicListings)
	lg.Get("/public/:listing_id", lh.GetPublicListing)
	lg.Use(middleware.RequireAuth())
	lg.Post("/", lh.CreateListing)
	lg.Get("/", lh.ListListings)
	lg.Get("/:listing_id", lh.GetListing)
	lg.Put("/:listing_id", lh.EditListing)
	lg.Delete("/:listing_id", lh.ArchiveListing)
	lg.Get("/:listing_id/events", lh.ListListingEvents)
	lg.Post("/:listing_id/submit", lh.SubmitListing)
	lg.Post("/:listing_id/approve", lh.ApproveListing)
	lg.Post("/:listing_id/reject", lh.RejectListing)
	lg.Post("/:listing_id/reopen", lh.ReopenListing)
	lg.Post("/:listing_id/publish", lh.PublishListing)
	lg.Post("/:listing_id/unpublish", lh.UnpublishListing)

	eh := &enghandler.Handlers{Service: engsvc.NewService(engagementStore, listingStore, srv.Dispatcher)}
	eg := app.Group("/api/v1/engagements")
	eg.Post("/", middleware.OptionalActor(), eh.CreateEngagement)
	eg.Use(middleware.RequireAuth())
	eg.Get("/", eh.ListEngagements)
	eg.Get("/:engagement_id", eh.GetEngagement)
	eg.Post("/:engagement_id/respond", eh.RespondEngagement)

	nh := &notifhandler.Handlers{Outbox: outbox}
	app.Get("/api/v1/notifications/recent", middleware.RequireAuth(), nh.Recent)

	return srv, nil
}

// QueueRedisOpt points asynq at the same Redis the sessions use.
func QueueRedisOpt(rdb *redis.Client) asynq.RedisClientOpt {
	o := rdb.Options()
	return asynq.RedisClientOpt{
		Addr:      o.Addr,
		Username:  o.Username,
		Password:  o.Password,
		DB:        o.DB,
		TLSConfig: o.TLSConfig,
	}
}

// Shutdown stops accepting requests, drains in-flight notifications and closes connections.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.App.ShutdownWithContext(ctx)
	if s.Dispatcher != nil {
		done := make(chan struct{})
		go func() {
			s.Dispatcher.Close()
			close(done)
		}()
		select {
		case <-done:
		case <-ctx.Done():
			log.Warn().Msg("shutdown: notifications still in flight")
		}
	}
	if s.queue != nil {
		_ = s.queue.Close()
	}
	if s.DB != nil {
		if sqlDB, dbErr := s.DB.DB(); dbErr == nil {
			_ = sqlDB.Close()
		}
	}
	if s.Rdb != nil {
		_ = s.Rdb.Close()
	}
	return err
}
