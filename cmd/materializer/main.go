package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-faster/errors"
	_ "github.com/lib/pq"
	"golang.org/x/sync/errgroup"

	"github.com/joao-fontenele/groceryflow/internal/config"
	"github.com/joao-fontenele/groceryflow/internal/messaging"
	"github.com/joao-fontenele/groceryflow/internal/orders"
	"github.com/joao-fontenele/groceryflow/internal/telemetry"
)

const serviceName = "order-materializer"

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	if err := run(logger); err != nil {
		logger.Error("materializer failed", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	cfg, err := config.LoadMaterializer()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		stop := make(chan os.Signal, 1)
		signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
		<-stop
		logger.Info("shutting down")
		cancel()
	}()

	shutdownTracer, err := telemetry.InitTracerProvider(ctx, serviceName, cfg.Telemetry.ServiceVersion, cfg.Telemetry.OTLPEndpoint)
	if err != nil {
		return errors.Wrap(err, "init tracer")
	}
	defer func() { _ = shutdownTracer(context.Background()) }()

	metricsHandler, shutdownMeter, err := telemetry.InitMeterProvider(serviceName, cfg.Telemetry.ServiceVersion)
	if err != nil {
		return errors.Wrap(err, "init meter")
	}
	defer func() { _ = shutdownMeter(context.Background()) }()

	db, err := telemetry.OpenPostgres(ctx, cfg.PostgresURL)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	materializer, err := orders.NewMaterializer(orders.NewRepository(db), orders.UnknownUserPolicy(cfg.UnknownUserPolicy), logger)
	if err != nil {
		return err
	}

	// Separate groups so a stuck checkout message never blocks user snapshots.
	userConsumer := messaging.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.UserTopic, cfg.GroupID+"-users",
		messaging.WithRetry(cfg.Kafka.MaxRetries, cfg.Kafka.RetryWait),
		messaging.WithLogger(logger),
	)
	defer func() { _ = userConsumer.Close() }()

	basketConsumer := messaging.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.CheckoutTopic, cfg.GroupID,
		messaging.WithRetry(cfg.Kafka.MaxRetries, cfg.Kafka.RetryWait),
		messaging.WithLogger(logger),
	)
	defer func() { _ = basketConsumer.Close() }()

	mux := http.NewServeMux()
	mux.Handle("GET /metrics", metricsHandler)
	metricsServer := &http.Server{
		Addr:         cfg.MetricsAddr,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("starting user snapshot consumer", "topic", cfg.Kafka.UserTopic, "brokers", cfg.Kafka.Brokers)
		return userConsumer.Run(gctx, materializer.HandleUserEvent)
	})

	g.Go(func() error {
		logger.Info("starting order materializer", "topic", cfg.Kafka.CheckoutTopic, "brokers", cfg.Kafka.Brokers)
		return basketConsumer.Run(gctx, materializer.HandleBasketEvent)
	})

	g.Go(func() error {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "serve metrics")
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()
		return metricsServer.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
