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
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/sync/errgroup"

	"github.com/joao-fontenele/groceryflow/internal/basket"
	"github.com/joao-fontenele/groceryflow/internal/config"
	"github.com/joao-fontenele/groceryflow/internal/messaging"
	"github.com/joao-fontenele/groceryflow/internal/telemetry"
)

const serviceName = "basket"

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	if err := run(logger); err != nil {
		logger.Error("basket service failed", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	cfg, err := config.LoadBasket()
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

	mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		return errors.Wrap(err, "connect mongo")
	}
	defer func() { _ = mongoClient.Disconnect(context.Background()) }()

	if err := mongoClient.Ping(ctx, nil); err != nil {
		return errors.Wrap(err, "ping mongo")
	}
	db := mongoClient.Database(cfg.MongoDatabase)

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer func() { _ = rdb.Close() }()

	producer := messaging.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.CheckoutTopic)
	defer func() { _ = producer.Close() }()

	catalog := basket.NewMongoCatalog(db)
	store := basket.NewCachedStore(basket.NewMongoStore(db), rdb, cfg.CacheTTL, logger)
	svc := basket.NewService(store, catalog, catalog, producer, basket.Config{
		DiscountPercentBP:  cfg.DiscountPercentBP,
		MaxConflictRetries: cfg.MaxConflictRetries,
		RetryInitialWait:   10 * time.Millisecond,
	}, logger)
	handler := basket.NewHandler(svc, logger)
	projector := basket.NewProjector(catalog, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /Baskets/Product/Add", telemetry.WithHTTPRoute(handler.HandleAddItem))
	mux.HandleFunc("POST /Baskets/Product/Remove", telemetry.WithHTTPRoute(handler.HandleRemoveItem))
	mux.HandleFunc("POST /Baskets/Checkout/{basketId}", telemetry.WithHTTPRoute(handler.HandleCheckout))
	mux.HandleFunc("GET /Baskets/{basketId}/preview", telemetry.WithHTTPRoute(handler.HandlePreview))
	mux.Handle("GET /metrics", metricsHandler)

	server := &http.Server{
		Addr:         cfg.Addr,
		Handler:      telemetry.NewServerHandler(mux, serviceName),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("starting basket service", "addr", cfg.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "serve")
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	for _, topic := range []string{cfg.Kafka.UserTopic, cfg.Kafka.InventoryTopic} {
		consumer := messaging.NewConsumer(cfg.Kafka.Brokers, topic, cfg.GroupID+"-"+topic,
			messaging.WithRetry(cfg.Kafka.MaxRetries, cfg.Kafka.RetryWait),
			messaging.WithLogger(logger),
		)
		defer func() { _ = consumer.Close() }()

		g.Go(func() error {
			logger.Info("starting catalog projector", "topic", topic, "brokers", cfg.Kafka.Brokers)
			return consumer.Run(gctx, projector.Handle)
		})
	}

	return g.Wait()
}
