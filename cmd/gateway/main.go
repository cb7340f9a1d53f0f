package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/joao-fontenele/groceryflow/internal/config"
	"github.com/joao-fontenele/groceryflow/internal/gateway"
	"github.com/joao-fontenele/groceryflow/internal/telemetry"
)

func main() {
	ctx := context.Background()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.LoadGateway()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	shutdownTracer, err := telemetry.InitTracerProvider(ctx, "gateway", cfg.Telemetry.ServiceVersion, cfg.Telemetry.OTLPEndpoint)
	if err != nil {
		logger.Error("failed to initialize tracer", "error", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownTracer(ctx) }()

	httpClient := &http.Client{
		Timeout:   10 * time.Second,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}

	basketProxy := gateway.NewServiceProxy(cfg.BasketServiceURL, httpClient)
	ordersProxy := gateway.NewServiceProxy(cfg.OrdersServiceURL, httpClient)
	handler := gateway.NewHandler(basketProxy, ordersProxy, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /Baskets/Product/Add", telemetry.WithHTTPRoute(handler.HandleBaskets))
	mux.HandleFunc("POST /Baskets/Product/Remove", telemetry.WithHTTPRoute(handler.HandleBaskets))
	mux.HandleFunc("POST /Baskets/Checkout/{basketId}", telemetry.WithHTTPRoute(handler.HandleBaskets))
	mux.HandleFunc("GET /Baskets/{basketId}/preview", telemetry.WithHTTPRoute(handler.HandleBaskets))
	mux.HandleFunc("POST /Orders/Submit/{basketId}", telemetry.WithHTTPRoute(handler.HandleOrders))

	server := &http.Server{
		Addr:         cfg.Addr,
		Handler:      telemetry.NewServerHandler(mux, "gateway"),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("starting gateway service", "addr", cfg.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
		os.Exit(1)
	}
}
