package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"

	"github.com/xovato/agency-backend/internal/admin"
	"github.com/xovato/agency-backend/internal/api"
	"github.com/xovato/agency-backend/internal/chat"
	"github.com/xovato/agency-backend/internal/jobs"
	"github.com/xovato/agency-backend/internal/notify"
	"github.com/xovato/agency-backend/internal/oracle"
	"github.com/xovato/agency-backend/internal/publisher"
	"github.com/xovato/agency-backend/internal/rate"
	"github.com/xovato/agency-backend/internal/reviews"
	internalsecrets "github.com/xovato/agency-backend/internal/secrets"
	"github.com/xovato/agency-backend/internal/session"
	"github.com/xovato/agency-backend/internal/store"
	"github.com/xovato/agency-backend/internal/submission"
	"github.com/xovato/agency-backend/internal/wizard"
	"github.com/xovato/agency-backend/pkg/config"
	"github.com/xovato/agency-backend/pkg/logger"
	"github.com/xovato/agency-backend/pkg/secrets"
	"github.com/xovato/agency-backend/pkg/utils"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Load configuration ---
	cfg := config.Load()

	logger.Init(cfg.ServiceName, cfg.Env, cfg.LogLevel)
	defer logger.Sync()
	logg := logger.S()
	logg.Info("starting [inquiry-api]...")
	logg.Info("connection to DSN: ", utils.MaskDSN(cfg.DatabaseURL))

	// --- Integration credentials (AWS Secrets Manager over env) ---
	var provider secrets.Provider
	var integrationCache *secrets.Cache[internalsecrets.Integrations]
	if cfg.SecretsEnabled {
		p, err := secrets.NewAWSProvider(ctx, cfg.AWSRegion)
		if err != nil {
			logg.Fatalw("failed to create AWS Secrets Manager provider", "error", err)
		}
		provider = p
		integrationCache = secrets.NewCache[internalsecrets.Integrations](cfg.CacheTTL)
		go integrationCache.Run(ctx, cfg.CleanupFreq)
	} else {
		logg.Warn("SECRETS_ENABLED=false; integrations resolved from env only")
	}
	integrations := internalsecrets.NewIntegrationResolver(logger.Named("secrets"), cfg, provider, integrationCache)

	// --- Connect to NATS ---
	nc, err := nats.Connect(cfg.NATSURL, nats.Name(cfg.ServiceName))
	if err != nil {
		logg.Fatalw("failed to connect to NATS", "error", err)
	}

	// --- Publisher ---
	pub, err := publisher.New(nc, cfg.EventsSubject, cfg.ServiceName)
	if err != nil {
		logg.Fatalw("failed to init publisher", "error", err)
	}
	if err := pub.EnsureStream(cfg.EventsStream); err != nil {
		logg.Warnw("failed to ensure event stream", "stream", cfg.EventsStream, "error", err)
	}

	// --- Store (Redis + Postgres hybrid) ---
	st, err := store.NewHybrid(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB, cfg.DatabaseURL, store.PGPoolConfig{
		MaxConns:          int32(cfg.PGMaxConns),
		MinConns:          int32(cfg.PGMinConns),
		MaxConnLifetime:   cfg.PGMaxConnLifetime,
		MaxConnIdleTime:   cfg.PGMaxConnIdleTime,
		HealthCheckPeriod: cfg.PGHealthCheckPeriod,
	}, logger.Named("store"))
	if err != nil {
		logg.Fatalw("failed to init store", "error", err)
	}

	// --- Rate limiter ---
	rateMgr := rate.NewManager(rate.Config{
		RequestsPerSecond: cfg.OracleRPS,
		Burst:             cfg.OracleBurst,
	})

	// --- Pricing oracle ---
	search := oracle.NewClient(logger.Named("oracle"), rateMgr, cfg.SerpAPIBaseURL, integrations)
	estimator := oracle.NewEstimator(logger.Named("oracle"), search, st, cfg.EstimateCacheTTL)

	// --- Notifications (direct or via RabbitMQ) ---
	calendar := notify.NewCalendarClient(logger.Named("notify"), integrations, cfg.NotifyTimeout)
	email := notify.NewEmailClient(logger.Named("notify"), cfg.EmailJSBaseURL, integrations, cfg.NotifyTimeout)
	direct := notify.NewDirectDispatcher(logger.Named("notify"), calendar, email)

	var dispatcher notify.Dispatcher = direct
	var queue *notify.QueueDispatcher
	var worker *notify.QueueWorker
	if cfg.NotifyTransport == "rabbitmq" {
		queue, err = notify.NewQueueDispatcher(cfg.RabbitMQURL, cfg.NotifyQueue, logger.Named("notify"))
		if err != nil {
			logg.Fatalw("failed to init notify queue", "error", err)
		}
		worker, err = notify.NewQueueWorker(cfg.RabbitMQURL, cfg.NotifyQueue, direct, logger.Named("notify"))
		if err != nil {
			logg.Fatalw("failed to init notify worker", "error", err)
		}
		if err := worker.Start(ctx); err != nil {
			logg.Fatalw("failed to start notify worker", "error", err)
		}
		dispatcher = queue
	}

	// --- Sessions, submission, wizard ---
	sessions := session.New(logger.Named("session"), st, cfg.SessionTTL)
	sink := submission.NewSink(logger.Named("submission"), st, pub, dispatcher, cfg.NotifyTimeout)
	drafts := wizard.NewManager(logger.Named("wizard"), estimator, sink, wizard.Options{
		Debounce:   cfg.EstimateDebounce,
		Currencies: sessions,
	})

	sweeper := jobs.NewDraftSweeper(logger.Named("jobs"), drafts, cfg.DraftIdleTTL, cfg.DraftSweepInterval)
	go sweeper.Start(ctx)

	// --- Reviews, admin, assistant ---
	reviewSvc := reviews.NewService(logger.Named("reviews"), st, pub, dispatcher, reviews.Options{
		DefaultCountry: cfg.DefaultGeoCountry,
		NotifyEmail:    cfg.ReviewNotifyEmail,
		NotifyTimeout:  cfg.NotifyTimeout,
	})
	adminSvc := admin.NewService(logger.Named("admin"), st, pub, 0)
	allowlist := admin.NewAllowlist(cfg.AdminEmails)
	if allowlist.Len() == 0 {
		logg.Warn("ADMIN_EMAILS is empty; admin routes will reject every request")
	}
	chatSvc := chat.NewService(logger.Named("chat"), integrations, 0)

	// --- Fiber HTTP Server ---
	app := fiber.New(fiber.Config{
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
		BodyLimit:    cfg.HTTPBodyLimit,
	})

	httpLog := logger.Named("api")
	geo := api.NewGeoResolver(cfg.CountryHeaders, cfg.DefaultGeoCountry)
	api.RegisterRoutes(app, api.Deps{
		NATS:       nc,
		Store:      st,
		Wizard:     api.NewWizardHandler(httpLog, drafts, geo),
		Market:     api.NewMarketHandler(httpLog, estimator, geo),
		Geo:        geo,
		Calendar:   api.NewCalendarHandler(httpLog, calendar),
		Chat:       api.NewChatHandler(chatSvc),
		Reviews:    api.NewReviewHandler(httpLog, reviewSvc, geo),
		Sessions:   api.NewSessionHandler(sessions),
		Admin:      api.NewAdminHandler(httpLog, adminSvc),
		AdminGuard: admin.RequireAdmin(logger.Named("admin"), allowlist, cfg.AdminEmailHeader),
	})

	// Start HTTP server
	go func() {
		logg.Infof("HTTP API listening on :%d", cfg.Port)
		if err := app.Listen(fmt.Sprintf(":%d", cfg.Port)); err != nil {
			logg.Fatalw("fiber.listen_failed", "error", err)
		}
	}()

	// --- Main process stays alive until interrupted ---
	logg.Infow("[inquiry-api] running",
		"nats", cfg.NATSURL,
		"env", cfg.Env,
		"notify_transport", cfg.NotifyTransport,
		"estimate_debounce", cfg.EstimateDebounce,
		"admins", allowlist.Len())

	<-ctx.Done()
	logg.Info("shutting down [inquiry-api]...")

	sweeper.Stop()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logg.Warnw("fiber.shutdown_failed", "error", err)
	}

	drafts.Close()
	sink.Wait()
	reviewSvc.Wait()
	if worker != nil {
		if err := worker.Close(); err != nil {
			logg.Warnw("notify.worker_close_failed", "error", err)
		}
	}
	if queue != nil {
		if err := queue.Close(); err != nil {
			logg.Warnw("notify.queue_close_failed", "error", err)
		}
	}
	if err := nc.Drain(); err != nil {
		logg.Warnw("nats.drain_failed", "error", err)
	}
	if err := st.Close(); err != nil {
		logg.Warnw("store.close_failed", "error", err)
	}
}
