package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/jonboulle/clockwork"

	"github.com/sglre6355/station-herald/internal/config"
	"github.com/sglre6355/station-herald/internal/domain"
	"github.com/sglre6355/station-herald/internal/infrastructure"
	"github.com/sglre6355/station-herald/internal/infrastructure/database"
	"github.com/sglre6355/station-herald/internal/infrastructure/filestore"
	"github.com/sglre6355/station-herald/internal/metrics"
	"github.com/sglre6355/station-herald/internal/presentation"
	"github.com/sglre6355/station-herald/internal/usecase"
)

func run() int {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", slog.Any("error", err))
		return 1
	}
	slog.SetLogLoggerLevel(cfg.LogLevel)

	repo, closeRepo, err := openSubscriptionRepository(cfg)
	if err != nil {
		slog.Error("failed to open subscription storage", slog.Any("error", err))
		return 1
	}
	defer closeRepo()

	subscriptions := usecase.NewSubscriptionSet(repo)
	restored, err := subscriptions.Load(context.Background())
	if err != nil {
		slog.Error("failed to restore saved subscriptions", slog.Any("error", err))
		return 1
	}
	slog.Info("restored subscriptions", slog.Int("count", restored))

	fetcher, err := infrastructure.NewStatusFetcher(cfg.StatusURL, &http.Client{Timeout: 15 * time.Second})
	if err != nil {
		slog.Error("failed to create status fetcher", slog.Any("error", err))
		return 1
	}

	clock := clockwork.NewRealClock()
	renderer := usecase.NewSnapshotRenderer(cfg.IconURL, cfg.EmbedColor)
	statusUsecase := usecase.NewStatusUsecase(fetcher, renderer, clock)

	session, err := discordgo.New("Bot " + cfg.DiscordToken)
	if err != nil {
		slog.Error("failed to create Discord session", slog.Any("error", err))
		return 1
	}

	publisher := presentation.NewDiscordStatusPublisher(session)

	var healthServer *infrastructure.HealthServer
	if cfg.HealthAddress != "" {
		healthServer = infrastructure.NewHealthServer()
		if err := healthServer.ListenAndServe(cfg.HealthAddress); err != nil {
			slog.Error("failed to start health server", slog.Any("error", err))
			return 1
		}
		defer healthServer.Stop()
	}

	if cfg.MetricsAddress != "" {
		metricsServer := metrics.NewServer(cfg.MetricsAddress)
		if err := metricsServer.ListenAndServe(); err != nil {
			slog.Error("failed to start metrics server", slog.Any("error", err))
			return 1
		}
		defer func() {
			if err := metricsServer.Close(); err != nil {
				slog.Error("failed to close metrics server", slog.Any("error", err))
			}
		}()
	}

	synchronizer := usecase.NewBroadcastSynchronizer(
		statusUsecase,
		publisher,
		publisher,
		subscriptions,
		usecase.WithBroadcastClock(clock),
		usecase.WithBroadcastInterval(cfg.Interval()),
		usecase.WithSubscriptionErrorHandler(
			func(sub domain.Subscription, stage usecase.SubscriptionErrorStage, err error) {
				slog.Error(
					"status broadcast failed",
					slog.String("channel", sub.ChannelID),
					slog.String("message", sub.MessageID),
					slog.Any("stage", stage),
					slog.Any("error", err),
				)
			},
		),
		usecase.WithTickObserver(func(report usecase.TickReport) {
			metrics.ObserveTick(report, subscriptions.Len())
			if healthServer != nil {
				healthServer.SetStatusFeedAvailable(report.Available)
			}
			if report.Pruned > 0 {
				slog.Info("pruned unreachable subscriptions", slog.Int("count", report.Pruned))
			}
		}),
	)

	registrar := usecase.NewRegistrar(statusUsecase, publisher, publisher, subscriptions)

	bot, err := presentation.NewStatusBot(session, statusUsecase, registrar, synchronizer)
	if err != nil {
		slog.Error("failed to create bot", slog.Any("error", err))
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := bot.Start(ctx); err != nil {
		bot.Stop()
		slog.Error("failed to start bot", slog.Any("error", err))
		return 1
	}

	if err := bot.RegisterCommands(); err != nil {
		bot.Stop()
		slog.Error("failed to register commands", slog.Any("error", err))
		return 1
	}

	<-ctx.Done()

	slog.Info("Termination signal received, shutting down...")
	bot.Stop()
	slog.Info("Bot successfully terminated")

	return 0
}

func openSubscriptionRepository(cfg config.Config) (usecase.SubscriptionRepository, func(), error) {
	if cfg.DatabaseDSN == "" {
		store, err := filestore.NewSubscriptionStore(cfg.StoragePath)
		if err != nil {
			return nil, nil, err
		}
		return store, func() {}, nil
	}

	db, err := database.Open(cfg.DatabaseDSN)
	if err != nil {
		return nil, nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, nil, err
	}
	closeDB := func() {
		if err := sqlDB.Close(); err != nil {
			slog.Error("failed to close database connection", slog.Any("error", err))
		}
	}

	store := database.NewSubscriptionStore(db)
	if err := store.AutoMigrate(context.Background()); err != nil {
		closeDB()
		return nil, nil, err
	}

	return store, closeDB, nil
}

func main() {
	os.Exit(run())
}
