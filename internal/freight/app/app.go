package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpapi "github.com/aussiebroadwan/freightdesk/internal/freight/http"
	"github.com/aussiebroadwan/freightdesk/internal/freight/metrics"
	"github.com/aussiebroadwan/freightdesk/internal/freight/notify"
	"github.com/aussiebroadwan/freightdesk/internal/freight/service"
	"github.com/aussiebroadwan/freightdesk/internal/freight/store"
	"github.com/aussiebroadwan/freightdesk/internal/freight/store/drivers/mongo"
	"github.com/aussiebroadwan/freightdesk/internal/freight/store/drivers/sqlite"
	"github.com/aussiebroadwan/freightdesk/pkg/cryptox"
	"github.com/aussiebroadwan/freightdesk/pkg/slogx"
)

// BuildVersion is overridden at build time with -ldflags "-X".
var BuildVersion = "v0.1.0"

// Application owns every long-lived dependency of the freightdesk server.
type Application struct {
	cfg    Config
	logger *slog.Logger

	db      store.Store
	keys    Keys
	sealer  *cryptox.Sealer
	metrics *metrics.Metrics

	queue      notify.Queue
	redisQueue *notify.RedisQueue // nil unless NOTIFY_QUEUE=redis
	dispatcher *notify.Dispatcher

	authService         *service.AuthService
	userService         *service.UserService
	mfaService          *service.MFAService
	passwordReset       *service.PasswordResetService
	emailVerification   *service.EmailVerificationService
	quoteService        *service.QuoteService
	shipmentService     *service.ShipmentService
	contactService      *service.ContactService
	mailService         *service.MailService
	bootstrapService    *service.BootstrapService
	housekeepingService *service.HousekeepingService

	server *http.Server
	router *httpapi.Router
}

// New builds the application. Nothing is started until Run.
func New(ctx context.Context, cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "freightdesk",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
		metrics: metrics.New(),
	}

	sealer, err := InitSecrets(cfg, app.logger)
	if err != nil {
		return nil, err
	}
	app.sealer = sealer

	keys, err := InitKeys(cfg, app.logger)
	if err != nil {
		return nil, err
	}
	app.keys = keys

	if err := app.initDatabase(ctx); err != nil {
		return nil, err
	}
	if err := app.initNotifications(ctx); err != nil {
		_ = app.db.Close()
		return nil, err
	}

	app.initServices()
	app.initHTTP()

	return app, nil
}

// Run starts background work and the HTTP server, then blocks until a
// shutdown signal or a server error.
func (app *Application) Run() error {
	ctx := slogx.WithContext(context.Background(), app.logger)

	if _, err := app.bootstrapService.SeedAdmin(ctx); err != nil {
		return fmt.Errorf("failed to seed admin: %w", err)
	}

	app.dispatcher.Start(ctx, app.cfg.NotifyWorkers)
	app.housekeepingService.Start()

	app.logger.Info("freightdesk starting",
		"addr", app.cfg.Addr,
		"version", BuildVersion,
		"store", app.cfg.StoreDriver,
		"queue", app.cfg.NotifyQueue,
		"mailer", app.cfg.Mailer,
	)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			_ = app.Shutdown()
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)
		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown stops accepting requests, drains queued notifications and closes
// the store, all within ShutdownGracePeriod.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down freightdesk...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	app.housekeepingService.Stop()
	app.dispatcher.Stop(ctx)

	if app.redisQueue != nil {
		if err := app.redisQueue.Close(); err != nil {
			app.logger.Error("error closing redis", "error", err)
		}
	}

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("freightdesk stopped")
	return nil
}

// initDatabase opens the configured store driver and applies migrations.
func (app *Application) initDatabase(ctx context.Context) error {
	var (
		db  store.Store
		err error
	)
	switch app.cfg.StoreDriver {
	case "mongo":
		db, err = mongo.NewStore(ctx, app.cfg.MongoURI, app.cfg.MongoDB)
	default:
		db, err = sqlite.NewStore(app.cfg.SQLiteDSN)
	}
	if err != nil {
		return fmt.Errorf("failed to initialize %s store: %w", app.cfg.StoreDriver, err)
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	app.logger.Info("database migrations applied successfully", "driver", app.cfg.StoreDriver)
	return nil
}

// initNotifications builds the queue, mailer and dispatcher.
func (app *Application) initNotifications(ctx context.Context) error {
	switch app.cfg.NotifyQueue {
	case "redis":
		q, err := notify.NewRedisQueue(ctx, app.cfg.RedisURL, "")
		if err != nil {
			return err
		}
		if n, err := q.Recover(ctx); err != nil {
			_ = q.Close()
			return err
		} else if n > 0 {
			app.logger.Warn("requeued unacknowledged notifications", "count", n)
		}
		app.queue, app.redisQueue = q, q
	default:
		app.queue = notify.NewMemoryQueue(app.cfg.NotifyQueueSize)
	}

	var mailer notify.Mailer = notify.LogMailer{Logger: app.logger}
	if app.cfg.Mailer == "ses" {
		ses, err := notify.NewSESMailer(ctx, notify.SESConfig{
			Region:          app.cfg.AWSRegion,
			AccessKeyID:     app.cfg.AWSAccessKeyID,
			SecretAccessKey: app.cfg.AWSSecretKey,
			From:            app.cfg.MailFrom,
		})
		if err != nil {
			if app.redisQueue != nil {
				_ = app.redisQueue.Close()
			}
			return fmt.Errorf("failed to initialize SES mailer: %w", err)
		}
		mailer = ses
	}

	app.dispatcher = notify.NewDispatcher(app.queue, mailer, notify.NewTemplates(), app.metrics, app.logger, notify.Config{
		MaxAttempts: app.cfg.NotifyMaxAttempts,
	})
	return nil
}

// initServices wires the use cases to the store and the dispatcher.
func (app *Application) initServices() {
	codes := &service.CodeIssuer{
		Store:    app.db,
		Metrics:  app.metrics,
		TTL:      app.cfg.OTPTTL,
		Cooldown: app.cfg.OTPCooldown,
	}

	app.authService = &service.AuthService{
		Store:    app.db,
		Signer:   app.keys.Signer,
		Verifier: app.keys.Verifier,
		Sealer:   app.sealer,
		Issuer:   app.cfg.Issuer,
		TokenTTL: app.cfg.TokenTTL,
	}
	app.userService = &service.UserService{Store: app.db, Notifier: app.dispatcher, Metrics: app.metrics}
	app.mfaService = &service.MFAService{
		Store:    app.db,
		Sealer:   app.sealer,
		Issuer:   "Freightdesk",
		Notifier: app.dispatcher,
		Metrics:  app.metrics,
	}
	app.passwordReset = &service.PasswordResetService{
		Store:    app.db,
		Codes:    codes,
		Notifier: app.dispatcher,
		Metrics:  app.metrics,
	}
	app.emailVerification = &service.EmailVerificationService{
		Store:    app.db,
		Codes:    codes,
		Notifier: app.dispatcher,
		Metrics:  app.metrics,
	}
	app.quoteService = &service.QuoteService{
		Store:    app.db,
		Notifier: app.dispatcher,
		Metrics:  app.metrics,
		Validity: app.cfg.QuoteTTL,
	}
	app.shipmentService = &service.ShipmentService{
		Store:             app.db,
		Notifier:          app.dispatcher,
		Metrics:           app.metrics,
		StrictTransitions: app.cfg.StrictTransitions,
	}
	app.contactService = &service.ContactService{
		Notifier:     app.dispatcher,
		Metrics:      app.metrics,
		SupportEmail: app.cfg.SupportEmail,
	}
	app.mailService = &service.MailService{
		Store:    app.db,
		Notifier: app.dispatcher,
		Metrics:  app.metrics,
	}
	app.bootstrapService = &service.BootstrapService{
		Store:    app.db,
		Email:    app.cfg.SeedAdminEmail,
		Username: app.cfg.SeedAdminUsername,
		Password: app.cfg.SeedAdminPassword,
	}
	app.housekeepingService = service.NewHousekeepingService(
		app.db,
		app.logger,
		app.cfg.HousekeepingInterval,
	)
}

// initHTTP initializes the HTTP router and server
func (app *Application) initHTTP() {
	router := httpapi.NewRouter(
		app.keys.KeySet,
		app.authService,
		BuildVersion,
		app.db,
		app.logger,
	)

	router.Metrics = app.metrics
	router.CORSOrigins = app.cfg.CORSAllowedOrigins
	router.Limits = app.cfg.RateLimits
	router.TokenTTL = app.cfg.TokenTTL
	if app.redisQueue != nil {
		router.Queue = app.redisQueue
	}

	router.UserService = app.userService
	router.MFAService = app.mfaService
	router.PasswordResetService = app.passwordReset
	router.EmailVerificationService = app.emailVerification
	router.QuoteService = app.quoteService
	router.ShipmentService = app.shipmentService
	router.ContactService = app.contactService
	router.MailService = app.mailService
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              app.cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
