package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/spf13/cobra"

	"tour-booking/internal/config"
	"tour-booking/internal/handlers"
	"tour-booking/internal/kafka"
	"tour-booking/internal/logger"
	"tour-booking/internal/notify"
	rediswrap "tour-booking/internal/redis"
	"tour-booking/internal/services"
	"tour-booking/internal/storage"
)

const shutdownTimeout = 30 * time.Second

func main() {
	root := &cobra.Command{
		Use:           "tour-booking",
		Short:         "Tour booking API server",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context())
		},
	}
	root.AddCommand(serveCommand(), migrateCommand(), createAdminCommand())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func serveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context())
		},
	}
}

// bootstrap loads configuration and builds the logger every command uses
func bootstrap() (*config.Config, *logger.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		log := logger.NewLogger()
		log.Error("CONFIG", "Failed to load configuration: "+err.Error())
		log.Close()
		return nil, nil, err
	}
	log := logger.New(logger.Config{
		Level:       cfg.App.LogLevel,
		Development: !cfg.IsProduction(),
		ServiceName: cfg.App.Name,
	})
	log.Info("CONFIG", fmt.Sprintf("Configuration loaded for %s environment", cfg.App.Environment))
	return cfg, log, nil
}

func openStore(cfg *config.Config, log *logger.Logger) (storage.Store, error) {
	if cfg.Database.Driver == "memory" {
		log.Warn("DATABASE", "Using in-memory storage, data is lost on restart")
		return storage.NewInMemoryStore(), nil
	}

	log.LogProcess("DATABASE", "Initializing MySQL database...")
	store, err := storage.NewMySQLStore(cfg.Database, log)
	if err != nil {
		return nil, err
	}
	log.LogDatabase("INIT", "mysql", "MySQL storage initialized successfully")
	return store, nil
}

func serve(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, log, err := bootstrap()
	if err != nil {
		return err
	}
	defer log.Close()

	log.LogProcess("STARTUP", cfg.App.Name+" starting up...")

	store, err := openStore(cfg, log)
	if err != nil {
		log.Error("DATABASE", "Failed to initialize storage: "+err.Error())
		return err
	}
	defer store.Close()

	log.LogProcess("KAFKA", "Initializing Kafka producer...")
	topics := kafka.Topics{Booking: cfg.Kafka.BookingTopic, Payment: cfg.Kafka.PaymentTopic}
	producer, err := kafka.NewProducer(cfg.Kafka.Brokers, topics, !cfg.Kafka.Enabled, log)
	if err != nil {
		log.Error("KAFKA", "Failed to create Kafka producer: "+err.Error())
		return err
	}
	defer producer.Close()

	deps := services.Deps{
		Store:   store,
		JWT:     cfg.JWT,
		Events:  producer,
		AppName: cfg.App.Name,
		Log:     log,
	}

	if cfg.Redis.Enabled {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer client.Close()

		lock := rediswrap.NewRedis(client, cfg.Redis.LockTTL)
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := lock.Ping(pingCtx)
		cancel()
		if err != nil {
			log.Error("REDIS", "Failed to connect to Redis: "+err.Error())
			return err
		}
		deps.Lock = lock
		log.LogProcess("SERVICE", "Redis payment lock enabled at "+cfg.Redis.Addr)
	} else {
		log.Warn("REDIS", "Redis disabled, payments for one booking are not serialised across instances")
	}

	if cfg.Stripe.Enabled() {
		stripeService, err := services.NewStripeService(cfg.Stripe, log)
		if err != nil {
			log.Error("STRIPE", "Failed to initialize Stripe service: "+err.Error())
			return err
		}
		deps.Gateway = stripeService
		log.LogProcess("STRIPE", "Stripe API initialized")
	} else {
		log.Warn("STRIPE", "STRIPE_SECRET_KEY not set, stripe payments are disabled")
	}

	if cfg.Mail.Enabled() {
		mailer := notify.NewMailer(notify.NewSMTPSender(cfg.Mail), log)
		// runs after the server has drained, so queued confirmations still go out
		defer mailer.Wait()
		deps.Notifier = mailer
		log.LogProcess("MAIL", "Booking confirmation emails enabled via "+cfg.Mail.Host)
	}

	svc := services.New(deps)
	log.LogProcess("SERVICE", "All services initialized")

	runCtx, stop := context.WithCancel(ctx)
	defer stop()

	if cfg.Kafka.Enabled {
		consumer, err := kafka.NewWebhookConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID, cfg.Kafka.WebhookTopic, log)
		if err != nil {
			log.Error("KAFKA", "Failed to create Kafka consumer: "+err.Error())
			return err
		}
		defer consumer.Close()

		go func() {
			log.LogKafka("START", cfg.Kafka.WebhookTopic, "Starting payment webhook consumer")
			if err := consumer.Consume(runCtx, svc.Payments.ApplyWebhook); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("KAFKA", "Consumer error: "+err.Error())
			}
		}()
	}

	router := handlers.NewRouter(handlers.RouterDeps{
		Config:   cfg,
		Services: svc,
		Health:   store,
		Log:      log,
	})

	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.LogProcess("SERVER", "Starting HTTP server on "+srv.Addr)
		log.Info("STARTUP", fmt.Sprintf("Health check available at http://%s/health", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		log.Error("SERVER", "Server failed to start: "+err.Error())
		return err
	case <-quit:
		log.Warn("SHUTDOWN", "Received shutdown signal, initiating graceful shutdown...")
	}

	stop()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("SHUTDOWN", "Server forced to shutdown: "+err.Error())
		return err
	}

	log.Info("SHUTDOWN", "Shutdown completed successfully")
	return nil
}
