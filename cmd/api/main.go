package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/telehealth-api/internal/config"
	authHandler "github.com/jwalitptl/telehealth-api/internal/handler/auth"
	availabilityHandler "github.com/jwalitptl/telehealth-api/internal/handler/availability"
	bookingHandler "github.com/jwalitptl/telehealth-api/internal/handler/booking"
	bookingdetailHandler "github.com/jwalitptl/telehealth-api/internal/handler/bookingdetail"
	healthHandler "github.com/jwalitptl/telehealth-api/internal/handler/health"
	lookupHandler "github.com/jwalitptl/telehealth-api/internal/handler/lookup"
	queueHandler "github.com/jwalitptl/telehealth-api/internal/handler/queue"
	"github.com/jwalitptl/telehealth-api/internal/middleware"
	"github.com/jwalitptl/telehealth-api/internal/repository/postgres"
	"github.com/jwalitptl/telehealth-api/internal/router"
	authService "github.com/jwalitptl/telehealth-api/internal/service/auth"
	availabilityService "github.com/jwalitptl/telehealth-api/internal/service/availability"
	bookingService "github.com/jwalitptl/telehealth-api/internal/service/booking"
	bookingdetailService "github.com/jwalitptl/telehealth-api/internal/service/bookingdetail"
	lookupService "github.com/jwalitptl/telehealth-api/internal/service/lookup"
	queueService "github.com/jwalitptl/telehealth-api/internal/service/queue"
	schedulerService "github.com/jwalitptl/telehealth-api/internal/service/scheduler"
	"github.com/jwalitptl/telehealth-api/pkg/auth"
	"github.com/jwalitptl/telehealth-api/pkg/comms"
	"github.com/jwalitptl/telehealth-api/pkg/logger"
	"github.com/jwalitptl/telehealth-api/pkg/metrics"
	"github.com/jwalitptl/telehealth-api/pkg/security"
	"github.com/jwalitptl/telehealth-api/pkg/storage"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	appLogger := logger.NewLogger(nil)

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	// Repositories
	userRepo := postgres.NewUserRepository(db)
	incrementRepo := postgres.NewIncrementRepository(db)
	availabilityRepo := postgres.NewAvailabilityRepository(db)
	queueRepo := postgres.NewQueueRepository(db)
	bookingRepo := postgres.NewBookingRepository(db)
	detailRepo := postgres.NewBookingDetailRepository(db)
	locationRepo := postgres.NewLocationRepository(db)
	outboxRepo := postgres.NewOutboxRepository(db)

	// Shared infrastructure
	appMetrics := metrics.NewMetrics("telehealth", "api")
	commsClient := comms.NewClient(comms.Config{
		AccountSID:     cfg.Comms.AccountSID,
		APIKey:         cfg.Comms.APIKey,
		APIKeySecret:   cfg.Comms.APIKeySecret,
		ChatServiceSID: cfg.Comms.ChatServiceSID,
		BaseURL:        cfg.Comms.BaseURL,
		TokenTTL:       time.Duration(cfg.Comms.TokenTTLHours) * time.Hour,
	})
	store, err := newStore(cfg.Storage)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize object storage")
	}

	jwtSvc := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.RefreshSecret, cfg.JWT.ExpiryHours, cfg.JWT.RefreshExpiryHours)
	hasher := security.NewBcryptHasher(0)

	// Services
	authSvc := authService.NewService(userRepo, jwtSvc, hasher)
	lookupSvc := lookupService.NewService(incrementRepo, locationRepo)
	availabilitySvc := availabilityService.NewService(availabilityRepo, incrementRepo, userRepo)
	queueSvc := queueService.NewService(queueRepo, userRepo, appMetrics)
	schedulerSvc := schedulerService.NewService(queueRepo, availabilityRepo, bookingRepo, incrementRepo, cfg.Scheduler, appMetrics)
	bookingSvc := bookingService.NewService(bookingRepo, userRepo, queueRepo, outboxRepo, commsClient, appLogger, appMetrics)
	detailSvc := bookingdetailService.NewService(detailRepo, bookingRepo, locationRepo, store)

	authMiddleware := middleware.NewAuthMiddleware(authSvc)

	r := router.NewRouter(
		authMiddleware,
		authHandler.NewHandler(authSvc),
		healthHandler.NewHandler(db),
		lookupHandler.NewHandler(lookupSvc),
		availabilityHandler.NewHandler(availabilitySvc),
		queueHandler.NewHandler(queueSvc, authMiddleware),
		bookingHandler.NewHandler(bookingSvc, schedulerSvc),
		bookingdetailHandler.NewHandler(detailSvc),
		router.Config{
			RateLimit:      rate.Limit(cfg.Server.RateLimit),
			RateBurst:      cfg.Server.RateBurst,
			RequestTimeout: time.Duration(cfg.Server.TimeoutSeconds) * time.Second,
			CORSConfig:     middleware.CORSConfigFor(cfg.Server.AllowedOrigins),
			MetricsPrefix:  "telehealth_http",
		},
	)
	r.Setup()

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: r.Engine(),
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server exited properly")
}

func newStore(cfg config.StorageConfig) (storage.Store, error) {
	if cfg.Mode == "cloud" {
		return storage.NewCloudinaryStore(cfg.CloudName, cfg.APIKey, cfg.APISecret)
	}
	return storage.NewLocalStore(cfg.LocalRoot)
}
