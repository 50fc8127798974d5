package main

import (
	"github.com/sirupsen/logrus"
	"go.uber.org/zap"

	"cybershield/internal/abuse"
	"cybershield/internal/config"
	"cybershield/internal/escalation"
	"cybershield/internal/evidence"
	"cybershield/internal/hub"
	"cybershield/internal/repository"
	"cybershield/internal/server"
	"cybershield/internal/telegram_bot"
)

func main() {
	logger, err := zap.NewDevelopment()
	if err != nil {
		panic(err) // Should not happen in development
	}
	defer func() {
		_ = logger.Sync() // Flushes buffer, if any
	}()

	log := logrus.New()

	// Load configuration
	cfgPath := "configs/config.yml"
	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	// Database connection
	db, err := repository.NewPostgresDB(cfg.Database.URL, logger)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	// Run migrations
	repository.MigrateDB(db, cfg.Database.MigrationsPath, logger)

	// Initialize repositories
	userRepo := repository.NewUserRepository(db, log)
	messageRepo := repository.NewMessageRepository(db, logger)
	reportRepo := repository.NewReportRepository(db, logger)
	blockRepo := repository.NewBlockRepository(db, logger)

	// Evidence pipeline
	renderer := evidence.NewTranscriptRenderer(cfg.Evidence.ScreenshotsDir)
	packager := evidence.NewPackager(renderer, cfg.Evidence.ReportsDir, logger)

	// Telegram bot for guardian block notifications (optional)
	bot, err := telegram_bot.NewBot(cfg, logger)
	if err != nil {
		logger.Warn("Failed to initialize Telegram bot, continuing without it", zap.Error(err))
		bot = nil
	}
	var notifier escalation.Notifier
	if bot != nil {
		notifier = bot
	}

	// Abuse detection and escalation engine
	detector := abuse.NewDetector()
	tracker := escalation.NewTracker(packager, userRepo, reportRepo, blockRepo, notifier, logger)
	dispatchHub := hub.NewHub(detector, tracker, messageRepo, blockRepo, logger)

	// Initialize and run the server
	srv := server.NewServer(db, dispatchHub, log, logger)
	srv.Run(cfg.Server.Port)
}
