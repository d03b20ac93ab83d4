// main.go
package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"ground-booking/cmd"
	"ground-booking/internal/data/repository"
	"ground-booking/internal/gateway"
	"ground-booking/internal/notify"
	"ground-booking/internal/usecase"
	"ground-booking/internal/wire"
	"ground-booking/pkg/clock"
	"ground-booking/pkg/database"
	"ground-booking/pkg/metrics"
	"ground-booking/pkg/mq"
	"ground-booking/pkg/utils"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	// Load config
	config, err := utils.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	logger, err := utils.InitLogger(config.App)
	if err != nil {
		log.Printf("Failed to init logger: %v. Using standard log.", err)
		logger, _ = zap.NewProduction()
	}
	defer logger.Sync()

	logger.Info("Starting application",
		zap.String("port", config.App.Port),
		zap.Bool("debug", config.App.Debug),
		zap.String("timezone", config.App.Location().String()),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect to database
	db, err := database.InitDB(ctx, config.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	logger.Info("Database connected successfully")

	// Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.NewMetrics("ground_booking", registry)

	// Payment gateway
	omiseGateway, err := gateway.NewOmise(gateway.OmiseConfig{
		PublicKey:  config.Payment.PublicKey,
		SecretKey:  config.Payment.SecretKey,
		SourceType: config.Payment.SourceType,
		Timeout:    config.Payment.Timeout,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to init payment gateway", zap.Error(err))
	}

	// Notifications: RabbitMQ when configured, log otherwise
	var sink notify.Sink = notify.NewLogSink(logger)
	var broker *notify.BrokerSink
	if config.Rabbit.URL != "" {
		publisher, err := mq.NewPublisher(config.Rabbit.URL, config.Rabbit.Exchange)
		if err != nil {
			logger.Fatal("Failed to connect to RabbitMQ", zap.Error(err))
		}
		defer publisher.Close()

		broker = notify.NewBrokerSink(publisher, logger,
			notify.WithRetry(config.Booking.NotifyMaxRetries, config.Booking.NotifyInitialDelay),
			notify.WithMetrics(m),
		)
		sink = broker
		logger.Info("RabbitMQ connected", zap.String("exchange", config.Rabbit.Exchange))
	}

	// Initialize all repositories
	repos := repository.NewRepository(db, logger)

	// Wire all dependencies
	app := wire.Wiring(usecase.Deps{
		Repo:     repos,
		Gateway:  gateway.Instrument(omiseGateway, m),
		Notifier: sink,
		Metrics:  m,
		Clock:    clock.System(),
		Config:   config,
		Log:      logger,
	}, registry)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return cmd.APIServer(gctx, app.Router, config.App.Port, logger)
	})
	g.Go(func() error {
		return app.Service.Sweeper.Run(gctx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Shutdown with error", zap.Error(err))
	}

	if broker != nil {
		drainCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := broker.Close(drainCtx); err != nil {
			logger.Warn("Pending notifications dropped", zap.Error(err))
		}
	}

	logger.Info("Application stopped")
}
