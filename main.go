package main

import (
	"log"

	api "briefing-backend/cmd/api"
	"briefing-backend/internal/insights/aggregator"
	"briefing-backend/internal/insights/domain"
	"briefing-backend/internal/insights/engine"
	"briefing-backend/internal/insights/repository"
	"briefing-backend/internal/insights/usecase"
	"briefing-backend/internal/insights/worker"
	"briefing-backend/internal/notification"
	"briefing-backend/pkg/config"
	"briefing-backend/pkg/database"
	"briefing-backend/pkg/fcm"
	"briefing-backend/pkg/provider"
	gmailprovider "briefing-backend/pkg/provider/gmail"
	imapprovider "briefing-backend/pkg/provider/imap"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize database
	db, err := database.NewPostgresConnection(cfg)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	// Auto-migrate database schemas
	if err := db.AutoMigrate(&domain.Job{}, &domain.MessageCacheEntry{}, &domain.AnalyticsCacheEntry{}, &domain.InsightRecord{}, &notification.DeviceToken{}); err != nil {
		log.Fatal("Failed to migrate database:", err)
	}

	// Initialize repositories (dependency injection)
	jobRepo := repository.NewJobRepository(db)
	messageRepo := repository.NewMessageCacheRepository(db)
	analyticsRepo := repository.NewAnalyticsCacheRepository(db)
	insightRepo := repository.NewInsightRepository(db)
	tokenRepo := notification.NewDeviceTokenRepository(db)

	// Heuristic configuration from env
	engineCfg := engine.DefaultConfig()
	engineCfg.SentimentPositiveThreshold = cfg.SentimentPositiveThreshold
	engineCfg.SentimentNegativeThreshold = cfg.SentimentNegativeThreshold

	aggregatorCfg := aggregator.DefaultConfig()
	aggregatorCfg.MaxResponseGapHours = cfg.VelocityMaxGapHours
	aggregatorCfg.VelocityScalePerDay = cfg.VelocityScalePerDay

	// Core services
	notifier := usecase.NewJobNotifier()
	analyticsService := usecase.NewAnalyticsService(messageRepo, analyticsRepo, engineCfg, cfg.AnalyticsCacheTTL)
	agg := aggregator.NewAggregator(messageRepo, insightRepo, aggregatorCfg)
	orchestrator := usecase.NewOrchestrator(
		jobRepo, analyticsRepo, analyticsService, notifier,
		usecase.NewRealClock(), cfg.PollInterval, cfg.StuckJobThreshold, cfg.JobMaxRetries,
	)

	// Providers
	var providers []provider.Provider
	if cfg.GoogleClientID != "" {
		providers = append(providers, gmailprovider.NewService(cfg.GoogleClientID, cfg.GoogleClientSecret, nil))
	}
	if cfg.IMAPServer != "" {
		providers = append(providers, imapprovider.NewService())
	}
	if len(providers) == 0 {
		log.Printf("[WARN] No provider configured, fetch jobs will fail until one is")
	}
	credsStore := provider.NewStaticStore(provider.Credentials{
		Username:   cfg.IMAPUsername,
		Password:   cfg.IMAPPassword,
		ServerAddr: cfg.IMAPServer,
	})

	// Initialize FCM client (optional, push disabled without credentials)
	var fcmClient *fcm.Client
	if cfg.FirebaseCredentials != "" {
		fcmClient, err = fcm.NewClient(cfg.FirebaseCredentials)
		if err != nil {
			log.Printf("[WARN] Failed to initialize FCM client (push notifications disabled): %v", err)
		}
	}
	notificationService := notification.NewService(tokenRepo, fcmClient)

	// Embedded worker
	if cfg.WorkerEnabled {
		w := worker.NewWorker(jobRepo, messageRepo, analyticsService, agg, notifier, providers, credsStore, cfg.WorkerInterval)
		w.SetCompletionHook(func(userID string, job *domain.Job) {
			notificationService.NotifyJobCompleted(userID, job)
		})
		w.Start()
		defer w.Stop()
	} else {
		log.Printf("[WARN] Worker disabled, jobs will stay pending until one runs")
	}

	// Initialize HTTP handler
	handler := api.NewHandler(cfg, orchestrator, insightRepo, tokenRepo)

	// Start server
	log.Printf("Server starting on port %s", cfg.Port)
	if err := handler.Start(":" + cfg.Port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
