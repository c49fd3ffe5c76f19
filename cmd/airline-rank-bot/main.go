package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	httpapi "github.com/i474232898/airline-rank-bot/internal/api/http"
	"github.com/i474232898/airline-rank-bot/internal/config"
	"github.com/i474232898/airline-rank-bot/internal/discord"
	"github.com/i474232898/airline-rank-bot/internal/events"
	"github.com/i474232898/airline-rank-bot/internal/logger"
	"github.com/i474232898/airline-rank-bot/internal/metrics"
	"github.com/i474232898/airline-rank-bot/internal/render"
	"github.com/i474232898/airline-rank-bot/internal/scheduler"
	"github.com/i474232898/airline-rank-bot/internal/standings"
	"github.com/i474232898/airline-rank-bot/internal/standings/fshub"
	"github.com/i474232898/airline-rank-bot/internal/store"
)

const serviceName = "airline-rank-bot"

func main() {
	// Load configuration. Missing credentials are fatal.
	cfg, err := config.Load()
	if err != nil {
		logger.New("info").Fatal("failed to load config", "err", err)
	}

	log := logger.New(cfg.LogLevel)
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New("airline_rank_bot", reg)

	// Shared HTTP client for outbound FSHub calls.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}

	// NATS is shared by the KV rank store and the event publisher.
	var nc *nats.Conn
	if cfg.RankStore == "nats" || cfg.EventsSubject != "" {
		nc, err = events.Connect(cfg.NATSURL, log)
		if err != nil {
			log.Fatal("failed to connect to nats", "err", err)
		}
		defer nc.Drain()
	}

	ranks, closeRanks := openRankStore(ctx, cfg, nc, log)
	defer closeRanks()

	// In-memory snapshot history with configured retention.
	snapshots := store.NewMemoryStore(cfg.SnapshotHistory, cfg.SnapshotMaxAge)

	renderer, err := render.NewTableRenderer()
	if err != nil {
		log.Fatal("failed to load fonts", "err", err)
	}

	source := fshub.NewClient(httpClient, cfg.FSHubBaseURL, cfg.FSHubToken)

	// Core service orchestrating fetch, ranking, rendering and delivery.
	service := standings.NewService(source, ranks, snapshots, renderer, cfg.Roster, log, m, standings.Options{
		OutputPath:  cfg.OutputPath,
		Concurrency: cfg.FetchConcurrency,
	})

	bot, err := discord.New(discord.Options{
		Token:      cfg.DiscordToken,
		ChannelID:  cfg.ChannelID,
		UserID:     cfg.UserID,
		Command:    cfg.TriggerCommand,
		RunTimeout: cfg.RunTimeout,
	}, service, log)
	if err != nil {
		log.Fatal("failed to create discord bot", "err", err)
	}
	service.AddNotifier(bot)

	if cfg.EventsSubject != "" {
		service.AddNotifier(events.NewPublisher(nc, cfg.EventsSubject))
	}

	openCtx, cancelOpen := context.WithTimeout(ctx, 30*time.Second)
	err = bot.Open(openCtx)
	cancelOpen()
	if err != nil {
		log.Fatal("failed to connect to discord", "err", err)
	}
	defer bot.Close()

	// The scheduler is started exactly once, after the first ready event.
	sched := scheduler.New(cfg.ScheduleCron, cfg.RunTimeout, service, log)
	if err := sched.Start(); err != nil {
		log.Fatal("failed to start scheduler", "err", err)
	}
	defer sched.Stop()

	if cfg.RosterFile != "" {
		go func() {
			if err := config.WatchRoster(ctx, cfg.RosterFile, log, service.SetRoster); err != nil {
				log.Error("roster watcher stopped", "err", err)
			}
		}()
	}

	// Basic app configuration
	app := fiber.New(fiber.Config{
		AppName:               serviceName,
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          cfg.RunTimeout + 10*time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			// Centralized error response
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error":   true,
				"message": err.Error(),
			})
		},
	})

	// Global middleware
	app.Use(fiberlogger.New())
	app.Use(recover.New())

	// Basic health endpoint; also serves as the keep-alive target.
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": serviceName,
		})
	})

	httpapi.RegisterRoutes(app, service, httpapi.Options{
		RunTimeout: cfg.RunTimeout,
		APIToken:   cfg.APIToken,
	})
	httpapi.RegisterMetrics(app, reg)

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Error("fiber server stopped", "err", err)
		}
	}()
	log.Info("airline-rank-bot started", "port", cfg.Port, "rank_store", cfg.RankStore,
		"airlines", len(cfg.Roster.AirlineIDs), "next_run", sched.NextRun())

	// Wait for termination signal
	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error("error during shutdown", "err", err)
	}
}

// openRankStore builds the configured rank position backend and returns a
// cleanup func for it.
func openRankStore(ctx context.Context, cfg *config.AppConfig, nc *nats.Conn, log logger.Logger) (standings.RankStore, func()) {
	switch cfg.RankStore {
	case "nats":
		kv, err := store.NewNATSRankStore(nc, cfg.RankBucket)
		if err != nil {
			log.Fatal("failed to open nats kv bucket", "bucket", cfg.RankBucket, "err", err)
		}
		return kv, func() {}

	case "mongo":
		client, err := store.NewMongoClient(ctx, cfg.MongoURI)
		if err != nil {
			log.Fatal("failed to connect to mongo", "err", err)
		}
		return store.NewMongoRankStore(client.Database(cfg.MongoDB)), func() {
			dctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := client.Disconnect(dctx); err != nil {
				log.Warn("mongo disconnect failed", "err", err)
			}
		}

	case "postgres":
		pg, err := store.NewPostgresRankStore(cfg.PostgresDSN)
		if err != nil {
			log.Fatal("failed to open postgres", "err", err)
		}
		return pg, func() {
			if err := pg.Close(); err != nil {
				log.Warn("postgres close failed", "err", err)
			}
		}

	default:
		log.Warn("using in-memory rank store; rank changes reset on restart")
		return store.NewMemoryRankStore(), func() {}
	}
}
