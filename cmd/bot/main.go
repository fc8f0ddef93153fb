package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"diet_follow_up_bot/internal/app"
	"diet_follow_up_bot/internal/domain/chat"
	"diet_follow_up_bot/internal/domain/question"
	"diet_follow_up_bot/internal/infra/config"
	idb "diet_follow_up_bot/internal/infra/database"
	"diet_follow_up_bot/internal/infra/logger"
	"diet_follow_up_bot/internal/infra/scheduler"
	itg "diet_follow_up_bot/internal/infra/telegram"

	"gopkg.in/telebot.v3"
)

func main() {
	fmt.Println("Diet Follow-Up Bot starting...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("FATAL: Could not load application configuration: %v", err)
	}

	logger.Init(cfg)
	mainLogger := logger.Get().WithField("component", "main")
	mainLogger.Infof("Configuration loaded. Timezone: %s, Trigger: %s, Masters: %d",
		cfg.Timezone, cfg.RegistrationTrigger, len(cfg.AllowedMasterIDs))

	// Database and persistence
	db, err := idb.NewPostgresConnection(cfg.DatabaseURL)
	if err != nil {
		mainLogger.WithError(err).Fatal("Could not connect to database")
	}
	defer db.Close()
	chatRepo := idb.NewPostgresChatRepository(db)
	mainLogger.Info("Database connection established")

	// Question catalog with fire times in the configured timezone
	catalog, err := question.DefaultCatalog(cfg.Location)
	if err != nil {
		mainLogger.WithError(err).Fatal("Could not build question catalog")
	}

	// Telegram bot and outbound client
	bot, err := telebot.NewBot(telebot.Settings{
		Token:  cfg.TelegramToken,
		Poller: &telebot.LongPoller{Timeout: 10 * time.Second},
		OnError: func(err error, c telebot.Context) {
			entry := logger.Get().WithField("component", "telebot").WithError(err)
			if c != nil && c.Chat() != nil {
				entry = entry.WithField("chat_id", c.Chat().ID)
			}
			entry.Error("Bot handler error")
		},
	})
	if err != nil {
		mainLogger.WithError(err).Fatal("Could not create Telegram bot")
	}

	notifier := itg.NewRetryingClient(
		itg.NewTelebotAdapter(bot),
		logger.Get().WithField("component", "notifier"),
	)

	// Core services
	registry := chat.NewRegistry()
	followUpService := app.NewFollowUpService(
		registry,
		catalog,
		notifier,
		logger.Get().WithField("component", "followup_service"),
		cfg.StrictCallbacks,
	)
	questionScheduler := scheduler.NewQuestionScheduler(
		catalog,
		followUpService,
		logger.Get().WithField("component", "scheduler"),
	)
	registrationService := app.NewRegistrationService(
		registry,
		chatRepo,
		questionScheduler,
		cfg.AllowedMasterIDs,
		logger.Get().WithField("component", "registration_service"),
	)

	// Rehydrate registered chats and re-arm their timers before any
	// inbound traffic is served.
	ctx := context.Background()
	restored, err := registrationService.RestoreRegisteredChats(ctx)
	if err != nil {
		mainLogger.WithError(err).Fatal("Could not restore registered chats")
	}
	mainLogger.Infof("Restored %d registered chat(s)", restored)

	// Handlers
	handlerLogger := logger.Get().WithField("component", "handlers")
	itg.RegisterCommandHandlers(ctx, bot, registrationService, cfg, handlerLogger)
	itg.RegisterResponseHandlers(ctx, bot, followUpService, registrationService, cfg, handlerLogger)

	questionScheduler.Start()
	mainLogger.Info("Application setup complete. Bot and scheduler are starting...")

	go bot.Start()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	mainLogger.Info("Shutting down application...")
	bot.Stop()
	questionScheduler.Stop()
	mainLogger.Info("Application shut down gracefully")
}
