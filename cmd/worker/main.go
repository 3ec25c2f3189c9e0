package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kelseyhightower/envconfig"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/telehealth-api/internal/config"
	"github.com/jwalitptl/telehealth-api/internal/email"
	"github.com/jwalitptl/telehealth-api/internal/model"
	"github.com/jwalitptl/telehealth-api/internal/repository"
	"github.com/jwalitptl/telehealth-api/internal/repository/postgres"
	internalworker "github.com/jwalitptl/telehealth-api/internal/worker"
	"github.com/jwalitptl/telehealth-api/pkg/comms"
	"github.com/jwalitptl/telehealth-api/pkg/logger"
	"github.com/jwalitptl/telehealth-api/pkg/messaging"
	"github.com/jwalitptl/telehealth-api/pkg/messaging/redis"
	"github.com/jwalitptl/telehealth-api/pkg/metrics"
	"github.com/jwalitptl/telehealth-api/pkg/worker"
)

// WorkerConfig is read from the environment; the worker runs in
// containers where env is the only config source.
type WorkerConfig struct {
	DatabaseURL       string        `envconfig:"DATABASE_URL" required:"true"`
	RedisURL          string        `envconfig:"REDIS_URL" required:"true"`
	HealthPort        int           `envconfig:"HEALTH_PORT" default:"8081"`
	BatchSize         int           `envconfig:"OUTBOX_BATCH_SIZE" default:"100"`
	PollInterval      time.Duration `envconfig:"OUTBOX_POLL_INTERVAL" default:"5s"`
	RetryAttempts     int           `envconfig:"OUTBOX_RETRY_ATTEMPTS" default:"3"`
	RetryDelay        time.Duration `envconfig:"OUTBOX_RETRY_DELAY" default:"5s"`
	SweepInterval     time.Duration `envconfig:"BOOKING_SWEEP_INTERVAL" default:"10m"`
	SweepGracePeriod  time.Duration `envconfig:"BOOKING_SWEEP_GRACE" default:"1h"`
	CommsAccountSID   string        `envconfig:"COMMS_ACCOUNT_SID"`
	CommsAPIKey       string        `envconfig:"COMMS_API_KEY"`
	CommsAPIKeySecret string        `envconfig:"COMMS_API_KEY_SECRET"`
	CommsChatService  string        `envconfig:"COMMS_CHAT_SERVICE_SID"`
	CommsBaseURL      string        `envconfig:"COMMS_BASE_URL"`
	EmailHost         string        `envconfig:"EMAIL_HOST"`
	EmailPort         int           `envconfig:"EMAIL_PORT" default:"587"`
	EmailUsername     string        `envconfig:"EMAIL_USERNAME"`
	EmailPassword     string        `envconfig:"EMAIL_PASSWORD"`
	EmailFrom         string        `envconfig:"EMAIL_FROM"`
	NotificationsOn   bool          `envconfig:"EMAIL_NOTIFICATIONS" default:"false"`
}

func main() {
	var cfg WorkerConfig
	if err := envconfig.Process("", &cfg); err != nil {
		log.Fatal().Err(err).Msg("failed to load worker configuration")
	}

	appLogger := logger.NewLogger(nil)

	db, err := postgres.NewDBFromURL(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	broker, err := redis.NewRedisBroker(redis.Config{URL: cfg.RedisURL}, nil)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to Redis")
	}
	defer broker.Close()

	outboxRepo := postgres.NewOutboxRepository(db)
	bookingRepo := postgres.NewBookingRepository(db)
	userRepo := postgres.NewUserRepository(db)

	appMetrics := metrics.NewMetrics("telehealth", "worker")

	commsClient := comms.NewClient(comms.Config{
		AccountSID:     cfg.CommsAccountSID,
		APIKey:         cfg.CommsAPIKey,
		APIKeySecret:   cfg.CommsAPIKeySecret,
		ChatServiceSID: cfg.CommsChatService,
		BaseURL:        cfg.CommsBaseURL,
		TokenTTL:       time.Hour,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	processor := worker.NewOutboxProcessor(outboxRepo, broker, worker.OutboxProcessorConfig{
		BatchSize:     cfg.BatchSize,
		PollInterval:  cfg.PollInterval,
		RetryAttempts: cfg.RetryAttempts,
		RetryDelay:    cfg.RetryDelay,
	}, appLogger, appMetrics)
	go processor.Start(ctx)

	sweeper := internalworker.NewBookingSweeper(bookingRepo, commsClient, cfg.SweepGracePeriod, cfg.SweepInterval, appLogger)
	go sweeper.Start(ctx)

	if cfg.NotificationsOn {
		emailSvc := email.NewService(config.EmailConfig{
			Host:     cfg.EmailHost,
			Port:     cfg.EmailPort,
			Username: cfg.EmailUsername,
			Password: cfg.EmailPassword,
			From:     cfg.EmailFrom,
		})
		go notifyOnBookingEvents(ctx, broker, emailSvc, userRepo, appLogger)
	}

	startHealthServer(cfg.HealthPort, appLogger)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLogger.Info("Shutting down worker")
	cancel()
}

// notifyOnBookingEvents emails the client on every booking lifecycle
// event published to the broker.
func notifyOnBookingEvents(ctx context.Context, broker messaging.Broker, emailSvc email.Service, userRepo repository.UserRepository, appLogger *logger.Logger) {
	msgs, err := broker.Subscribe(ctx, messaging.ChannelBookingEvents)
	if err != nil {
		appLogger.Error(err, "Failed to subscribe to booking events")
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case raw, ok := <-msgs:
			if !ok {
				return
			}
			var msg struct {
				Type    string                    `json:"type"`
				Payload model.BookingEventPayload `json:"payload"`
			}
			if err := json.Unmarshal(raw, &msg); err != nil {
				appLogger.Error(err, "Failed to decode booking event")
				continue
			}

			client, err := userRepo.Get(ctx, msg.Payload.ClientUserID)
			if err != nil || client == nil {
				appLogger.Error(err, "Failed to resolve client for notification")
				continue
			}

			switch msg.Type {
			case model.EventBookingCreated:
				err = emailSvc.SendBookingCreated(ctx, client.Email, &msg.Payload)
			case model.EventBookingStatusChanged:
				err = emailSvc.SendBookingStatusChanged(ctx, client.Email, &msg.Payload)
			default:
				continue
			}
			if err != nil {
				appLogger.Error(err, "Failed to send booking notification", "type", msg.Type)
			}
		}
	}
}

func startHealthServer(port int, appLogger *logger.Logger) {
	mux := http.NewServeMux()
	mux.HandleFunc("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.Handle("/metrics", promhttp.Handler())

	go func() {
		if err := http.ListenAndServe(fmt.Sprintf(":%d", port), mux); err != nil {
			appLogger.Error(err, "Health check server failed")
			os.Exit(1)
		}
	}()
}
