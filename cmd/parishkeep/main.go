package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/parishkeep/parishkeep/internal/api/rest"
	"github.com/parishkeep/parishkeep/internal/config"
	"github.com/parishkeep/parishkeep/internal/db"
	stripeclient "github.com/parishkeep/parishkeep/internal/integration/stripe"
	"github.com/parishkeep/parishkeep/internal/kafka"
	"github.com/parishkeep/parishkeep/internal/metrics"
	"github.com/parishkeep/parishkeep/internal/repository"
	"github.com/parishkeep/parishkeep/internal/repository/postgres"
	"github.com/parishkeep/parishkeep/internal/service"
	"github.com/parishkeep/parishkeep/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLog := logger.New(logger.INFO)
		bootLog.Fatalw("Failed to load configuration", "error", err)
	}

	log := logger.New(logger.ParseLevel(cfg.App.LogLevel))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dbClient, err := db.Connect(ctx, cfg.Database.DSN, log)
	if err != nil {
		log.Fatalw("Failed to connect to database", "error", err)
	}
	defer dbClient.Close()

	pool := dbClient.Pool()
	userRepo := postgres.NewUserRepository(pool, log)
	planRepo := postgres.NewPlanRepository(pool, log)
	paymentRepo := postgres.NewPaymentRepository(pool, log)
	donationRepo := postgres.NewDonationRepository(pool, log)
	postRepo := postgres.NewPostRepository(pool, log)
	eventRepo := postgres.NewWebhookEventRepository(pool, log)

	var subscriptionRepo repository.SubscriptionRepository = postgres.NewSubscriptionRepository(pool, log)
	if cfg.Redis.Addr != "" {
		cache, err := repository.NewRedisCache(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, log)
		if err != nil {
			log.Warnw("Redis unavailable, subscription cache disabled", "error", err)
		} else {
			defer cache.Close()
			subscriptionRepo = repository.NewCachedSubscriptionRepository(subscriptionRepo, cache, log)
		}
	}

	var producer kafka.Producer = kafka.NoopProducer{}
	if len(cfg.Kafka.Brokers) > 0 {
		p, err := kafka.NewProducer(cfg.Kafka.Brokers, log)
		if err != nil {
			log.Warnw("Kafka unavailable, event publishing disabled", "error", err)
		} else {
			defer p.Close()
			producer = p
		}
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	billingMetrics := metrics.NewBillingMetrics(registry)

	stripeAPI := stripeclient.NewClient(cfg.Stripe.SecretKey, log)

	tokenTTL := time.Duration(cfg.Auth.TokenTTLHours) * time.Hour
	authSvc := service.NewAuthService(userRepo, cfg.Auth.JWTSecret, tokenTTL, cfg.Auth.BCryptCost, log)
	billingSvc := service.NewBillingService(userRepo, planRepo, subscriptionRepo, paymentRepo, donationRepo, stripeAPI, cfg.App.FrontendBaseURL, log)
	contentSvc := service.NewContentService(postRepo, log)
	adminSvc := service.NewAdminService(userRepo, planRepo, subscriptionRepo, paymentRepo, donationRepo, postRepo, eventRepo, dbClient, log)
	webhookSvc := service.NewWebhookService(userRepo, planRepo, subscriptionRepo, paymentRepo, donationRepo, eventRepo, stripeAPI, producer, billingMetrics, log)

	router := rest.SetupRouter(rest.Services{
		Auth:     authSvc,
		Billing:  billingSvc,
		Content:  contentSvc,
		Admin:    adminSvc,
		Webhooks: webhookSvc,
	}, cfg, registry, log)

	server := rest.NewServer(router, cfg, log)

	go func() {
		if err := server.Start(); err != nil {
			log.Fatalw("Server error", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownTimeout := time.Duration(cfg.App.ShutdownTimeout) * time.Second
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelShutdown()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalw("Server forced to shutdown", "error", err)
	}

	log.Infow("Server stopped gracefully")
}
