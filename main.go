package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/mauv0809/pickup-roster/internal/aggregate"
	"github.com/mauv0809/pickup-roster/internal/cache"
	"github.com/mauv0809/pickup-roster/internal/config"
	"github.com/mauv0809/pickup-roster/internal/database"
	server "github.com/mauv0809/pickup-roster/internal/http"
	"github.com/mauv0809/pickup-roster/internal/inngest"
	"github.com/mauv0809/pickup-roster/internal/match"
	"github.com/mauv0809/pickup-roster/internal/metrics"
	"github.com/mauv0809/pickup-roster/internal/notifier"
	"github.com/mauv0809/pickup-roster/internal/notifier/slack"
	"github.com/mauv0809/pickup-roster/internal/players"
	"github.com/mauv0809/pickup-roster/internal/promotion"
	"github.com/mauv0809/pickup-roster/internal/pubsub"
	"github.com/mauv0809/pickup-roster/internal/roster"
	"github.com/mauv0809/pickup-roster/internal/teams"
	"github.com/mauv0809/pickup-roster/internal/waitlist"
)

func main() {
	// Start profiling timer
	startTime := time.Now()
	log.SetFormatter(log.JSONFormatter)
	cfg := config.Load()
	if level, err := log.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(level)
	} else {
		log.Warn("Unknown log level, keeping info", "level", cfg.LogLevel)
	}
	if cfg.Slack.Token == "" && !cfg.DryRun {
		log.Warn("SLACK_BOT_TOKEN not set, notifications run in dry-run mode")
		cfg.DryRun = true
	}

	db, dbTeardown, err := database.InitDB(cfg.DBName, cfg.Turso.PrimaryURL, cfg.Turso.AuthToken, cfg.MigrationsDir)
	dbInitDuration := time.Since(startTime)
	log.Info("Database initialization time recorded", "duration_ms", dbInitDuration.Milliseconds())
	if err != nil {
		log.Fatalf("Failed to initialize database: %s", err)
	}
	defer func() {
		log.Info("Closing database connection")
		dbTeardown()
	}()

	ctx := context.Background()
	metricsSvc := metrics.NewService()
	metricsHandler := metrics.NewMetricsHandler()

	matchStore := match.New(db, match.Defaults{
		FieldCapacity:      cfg.Roster.FieldCapacity,
		GoalkeeperCapacity: cfg.Roster.GoalkeeperCapacity,
		AutoPromoteMinutes: cfg.Roster.AutoPromoteMinutes,
	})
	playerStore := players.New(db)

	var summaryCache cache.SummaryCache
	if cfg.Redis.Addr != "" {
		rdb, err := cache.InitRedis(ctx, cfg.Redis.Addr, cfg.Redis.Password)
		if err != nil {
			log.Fatalf("Failed to connect to redis: %s", err)
		}
		defer rdb.Close()
		summaryCache = cache.NewRedis(rdb, cfg.Redis.SummaryTTL)
	} else {
		log.Info("REDIS_ADDR not set, caching summaries in memory")
		summaryCache = cache.NewMemory(cfg.Redis.SummaryTTL)
	}
	summaries := cache.NewSummaries(summaryCache, matchStore)

	store := aggregate.New(db, metricsSvc,
		aggregate.WithMaxRetries(cfg.Roster.TxMaxRetries),
		aggregate.WithCommitHook(summaries.Forget),
	)
	slackNotifier := slack.NewNotifier(cfg.Slack.Token, cfg.Slack.ChannelID, playerStore, metricsSvc)

	var pubsubClient pubsub.PubSubClient
	var dispatcher promotion.Dispatcher
	if cfg.ProjectID != "" {
		pubsubClient, err = pubsub.New(ctx, cfg.ProjectID)
		if err != nil {
			log.Fatalf("Failed to initialize pubsub: %s", err)
		}
		defer pubsubClient.Close()
		dispatcher = pubsub.NewDispatcher(pubsubClient)
	} else {
		log.Info("GCP_PROJECT not set, delivering notices in-process")
		dispatcher = notifier.NewDirectDispatcher(slackNotifier, cfg.DryRun)
	}

	queue := waitlist.New(store, metricsSvc)
	engine := promotion.New(store, queue, dispatcher, matchStore, metricsSvc, cfg.Sweep.Concurrency)
	coordinator := roster.NewCoordinator(store, queue, engine, matchStore, metricsSvc)
	generator := teams.New(store, playerStore, teams.SnakeDraft{}, matchStore, metricsSvc)

	var inngestClient inngest.InngestClient
	if cfg.Inngest.Enabled() {
		inngestClient, err = inngest.New(inngest.Options{
			AppID:      cfg.Inngest.AppID,
			SigningKey: cfg.Inngest.SigningKey,
			EventKey:   cfg.Inngest.EventKey,
			Dev:        cfg.Inngest.Dev,
		}, engine)
		if err != nil {
			log.Fatalf("Failed to initialize inngest: %s", err)
		}
	}

	if cfg.Sweep.Schedule != "" {
		scheduler := promotion.NewScheduler(engine, cfg.Sweep.Schedule)
		if err := scheduler.Start(); err != nil {
			log.Fatalf("Failed to start sweep scheduler: %s", err)
		}
		defer scheduler.Stop()
	}

	s := server.NewServer(server.Dependencies{
		Matches:        matchStore,
		Coordinator:    coordinator,
		Queue:          queue,
		Engine:         engine,
		Teams:          generator,
		Summaries:      summaries,
		Players:        playerStore,
		Notifier:       slackNotifier,
		PubSub:         pubsubClient,
		Metrics:        metricsSvc,
		MetricsHandler: metricsHandler,
		Cfg:            cfg,
		Inngest:        inngestClient,
	})

	// --- Record startup time ---
	startupDuration := time.Since(startTime)
	metricsSvc.SetStartupTime(startupDuration.Seconds())
	log.Info("Startup time recorded", "duration_ms", startupDuration.Milliseconds())

	// --- Graceful shutdown setup ---
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: s,
	}

	// Channel to listen for errors coming from the server
	serverErrors := make(chan error, 1)

	// Start the server in a goroutine
	go func() {
		log.Info("Server started", "port", cfg.Port)
		serverErrors <- srv.ListenAndServe()
	}()

	// Channel to listen for interrupt signals
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// Block until we receive a signal or an error
	select {
	case err := <-serverErrors:
		if err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	case sig := <-shutdown:
		log.Info("Shutdown signal received", "signal", sig)

		// Create a context with a timeout for the shutdown.
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		// Attempt to gracefully shut down the server.
		if err := srv.Shutdown(ctx); err != nil {
			log.Error("Server shutdown failed", "error", err)
		} else {
			log.Info("Server gracefully stopped")
		}
	}

	log.Info("Server process shutting down")
}
