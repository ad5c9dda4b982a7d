package dashboardservice

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"valet/internal/general/config"
	"valet/internal/general/jwt"
	"valet/internal/general/logger"
	"valet/internal/general/postgres"
	"valet/internal/general/rabbitmq"
	"valet/internal/general/websocket"
	"valet/internal/software/dashboard/handler"
	"valet/internal/software/dashboard/service"
)

// Run wires the supervisor dashboard service and blocks until ctx is cancelled.
func Run(ctx context.Context, configPath string, prefetch, maxConcurrent int) error {
	// set up a new logger for dashboard service with a static request ID for startup logs
	logger := logger.New("dashboard-service")
	ctx = logger.WithRequestID(ctx, "startup-001")

	// load a config from file
	cfg, err := config.LoadFromFile(configPath)
	if err != nil {
		logger.Error(ctx, "config_load_failed", "Failed to load configuration", err, nil)
		return err
	}
	if cfg.Storage.Driver != config.StoragePostgres {
		err := errors.New("dashboard-service reads shared storage: set storage.driver to postgres")
		logger.Error(ctx, "config_invalid", "Unsupported storage driver", err, map[string]any{"driver": cfg.Storage.Driver})
		return err
	}

	// set up a Postgres connection pool
	pool, err := postgres.NewPool(ctx, cfg, logger)
	if err != nil {
		logger.Error(ctx, "db_connection_failed", "Failed to initialize Postgres pool", err, nil)
		return err
	}
	defer pool.Close()

	// connect to RabbitMQ
	rmq, err := rabbitmq.ConnectRabbitMQ(ctx, cfg, logger)
	if err != nil {
		logger.Error(ctx, "rabbitmq_connection_failed", "Failed to connect to RabbitMQ", err, nil)
		return err
	}
	defer rmq.Close()

	// set up the JWT manager
	jwtManager := jwt.NewManager(cfg.JWT.SecretKey, cfg.JWT.AccessTTL)

	// set up the supervisor websocket hub and the relay feeding it
	hub := websocket.NewHub(logger, jwtManager,
		websocket.WithAuthTimeout(cfg.WebSocket.AuthTimeout),
		websocket.WithPingInterval(cfg.WebSocket.PingInterval),
	)
	relay := service.NewRelay(rmq, hub, logger, prefetch)

	// set up the service
	svc := service.NewDashboardService(postgres.NewUnitOfWork(pool), postgres.NewBookingRepo(nil),
		service.WithLocation(cfg.Location()))

	// set up the HTTP handler and its routes
	mux := http.NewServeMux()
	handler.NewDashboardHTTPHandler(svc, logger, jwtManager, hub).RegisterRoutes(mux)

	// set up the server configurations
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Services.DashboardServicePort),
		Handler:           withConcurrencyLimit(maxConcurrent, mux),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	logger.Info(ctx, "service_started",
		fmt.Sprintf("Dashboard Service started on port %d", cfg.Services.DashboardServicePort),
		map[string]any{"port": cfg.Services.DashboardServicePort, "prefetch": prefetch, "max_concurrent": maxConcurrent},
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		relay.Run(gctx)
		return nil
	})
	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error(ctx, "http_server_error", "HTTP server terminated with error", err, map[string]any{"port": cfg.Services.DashboardServicePort})
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		// graceful HTTP shutdown on context cancel
		shCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		logger.Info(ctx, "shutdown_started", "Starting graceful shutdown", nil)
		if err := srv.Shutdown(shCtx); err != nil && err != http.ErrServerClosed {
			logger.Error(ctx, "http_shutdown_failed", "Failed to gracefully shut down HTTP server", err, nil)
		}
		return nil
	})
	return g.Wait()
}

// withConcurrencyLimit wraps an http.Handler with a semaphore-based limiter.
func withConcurrencyLimit(n int, next http.Handler) http.Handler {
	if n <= 0 {
		return next
	}
	sem := make(chan struct{}, n)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case sem <- struct{}{}:
			defer func() { <-sem }()
			next.ServeHTTP(w, r)
		case <-r.Context().Done():
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		}
	})
}
