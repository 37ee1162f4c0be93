package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"

	"slotline/config"
	"slotline/cron"
	"slotline/database"
	bookingRepo "slotline/database/repository/booking"
	"slotline/handlers"
	"slotline/middleware"
	"slotline/routes"
	"slotline/services/availability"
	"slotline/services/booking"
	"slotline/services/conversation"
	"slotline/services/integration"
	"slotline/services/notification"
	"slotline/services/resilience"
	"slotline/services/tasks"
	"slotline/utils"
)

func main() {
	config.LoadConfig()
	logger := utils.GetLogger()

	database.InitDB()
	utils.InitSessionCache()
	utils.StartHealthMonitor(utils.GetSessionCacheClient(), database.MongoClient)

	// Repository.
	repo := bookingRepo.NewMongoBookingRepo()
	if err := repo.EnsureIndexes(); err != nil {
		logger.Sugar().Fatalf("main: failed to ensure booking indexes: %v", err)
	}

	// Guarded integrations. Calendar and CRM each get their own breaker so
	// one failing dependency never blocks the other.
	breakerCfg := resilience.BreakerConfig{
		FailureThreshold: config.AppConfig.BreakerFailureThreshold,
		ResetTimeout:     time.Duration(config.AppConfig.BreakerResetTimeoutSec) * time.Second,
		MonitoringPeriod: time.Duration(config.AppConfig.BreakerMonitoringSec) * time.Second,
	}
	retryCfg := resilience.RetryConfig{
		Attempts: config.AppConfig.RetryAttempts,
		Delay:    time.Duration(config.AppConfig.RetryDelayMS) * time.Millisecond,
	}
	callTimeout := time.Duration(config.AppConfig.ExternalCallTimeoutSec) * time.Second

	calendarGuard := resilience.NewGuard(
		resilience.NewCircuitBreaker("calendar", breakerCfg), retryCfg, callTimeout)
	crmGuard := resilience.NewGuard(
		resilience.NewCircuitBreaker("crm", breakerCfg), retryCfg, callTimeout)

	calendar := integration.NewGuardedCalendar(
		integration.NewHTTPCalendarClient(config.AppConfig.CalendarBaseURL, config.AppConfig.CalendarAPIKey),
		calendarGuard)
	crm := integration.NewGuardedCRM(
		integration.NewHTTPCRMClient(config.AppConfig.CRMBaseURL, config.AppConfig.CRMAPIKey),
		crmGuard)

	// Availability engine over store plus calendar busy intervals.
	busySource := &availability.CombinedBusySource{Repo: repo, Calendar: calendar}
	engine, err := availability.NewEngine(config.AppConfig, busySource)
	if err != nil {
		logger.Sugar().Fatalf("main: failed to build availability engine: %v", err)
	}

	// Outbox queue client.
	asynqClient := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisQueueDB,
	})
	defer asynqClient.Close()
	dispatcher := tasks.NewAsynqDispatcher(asynqClient)

	// Booking lifecycle.
	bookingService := booking.NewDefaultBookingService(
		repo,
		booking.NewFrequencyLimiter(repo),
		&booking.ConflictResolver{Repo: repo, Calendar: calendar},
		engine,
		dispatcher,
	)

	// Post-write sync pipeline.
	syncService := &booking.SyncService{
		Repo:     repo,
		Calendar: calendar,
		CRM:      crm,
		Notifier: notification.NewEmailNotificationService(),
	}
	cron.InitSyncWorker(syncService)
	reconciler := cron.StartReconciler(repo, syncService)
	defer reconciler.Stop()

	// Conversation layer. The Gemini classifier degrades to keyword matching
	// on its own; without an API key we skip it entirely.
	sessionStore := conversation.NewRedisSessionStore(
		utils.GetSessionCacheClient(),
		time.Duration(config.AppConfig.SessionTTLMinutes)*time.Minute)

	var classifier conversation.Classifier = conversation.KeywordClassifier{}
	if config.AppConfig.GeminiAPIKey != "" {
		gemini, err := conversation.NewGeminiClassifier(config.AppConfig.GeminiAPIKey)
		if err != nil {
			logger.Sugar().Warnf("main: gemini classifier unavailable, using keyword matching: %v", err)
		} else {
			classifier = gemini
		}
	}

	conversationService := conversation.NewDefaultConversationService(
		sessionStore, classifier, bookingService, engine)

	// Router.
	if config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(utils.ErrorHandler())
	router.Use(gin.Logger())
	router.Use(middleware.RateLimitMiddleware())

	handlerBundle := &routes.HandlerBundle{
		Conversation: handlers.NewConversationHandler(conversationService),
		Voice:        handlers.NewVoiceHandler(conversationService),
		Tools:        handlers.NewToolsHandler(bookingService, engine),
		Admin:        handlers.NewAdminHandler(repo, syncService),
	}
	routes.RegisterRoutes(router, handlerBundle)

	port := config.AppConfig.AppPort
	if port == "" {
		port = "8080"
	}
	srv := &http.Server{
		Addr:    "0.0.0.0:" + port,
		Handler: router,
	}

	logger.Sugar().Infof("Starting server on %s...", srv.Addr)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Sugar().Fatalf("main: server failed to start: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Sugar().Info("main: server is shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Sugar().Fatalf("main: server forced to shutdown: %v", err)
	}

	logger.Sugar().Info("main: server stopped gracefully")
}
