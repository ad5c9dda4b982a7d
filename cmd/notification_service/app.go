package notificationservice

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"valet/internal/general/config"
	"valet/internal/general/contracts"
	"valet/internal/general/logger"
	"valet/internal/general/notify"
	"valet/internal/general/rabbitmq"
	"valet/internal/software/notifier/handler"
	"valet/internal/software/notifier/service"
)

// Run wires the notification service and blocks until ctx is cancelled.
func Run(ctx context.Context, configPath string, prefetch int) error {
	// set up a new logger for notification service with a static request ID for startup logs
	logger := logger.New("notification-service")
	ctx = logger.WithRequestID(ctx, "startup-001")

	// load a config from file
	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Error(ctx, "config_load_failed", "Failed to load configuration", err, nil)
		return err
	}

	// connect to RabbitMQ
	rmq, err := rabbitmq.ConnectRabbitMQ(ctx, cfg, logger)
	if err != nil {
		logger.Error(ctx, "rabbitmq_connection_failed", "Failed to connect to RabbitMQ", err, nil)
		return err
	}
	defer rmq.Close()

	// set up the providers and the consumer applying queued commands to them
	httpClient := &http.Client{Timeout: cfg.Notifications.SinkTimeout}
	svc := service.NewNotificationService(rmq, logger, prefetch,
		service.WithSender(contracts.MediumSMS, notify.NewSMSSender(cfg, logger, httpClient)),
		service.WithSender(contracts.MediumEmail, notify.NewEmailSender(cfg, logger, httpClient)),
	)

	// health endpoint
	mux := http.NewServeMux()
	handler.NewHealthHandler(svc, rmq.Ready).RegisterRoutes(mux)
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Services.NotificationServicePort),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	logger.Info(ctx, "service_started",
		fmt.Sprintf("Notification Service started on port %d", cfg.Services.NotificationServicePort),
		map[string]any{"port": cfg.Services.NotificationServicePort, "prefetch": prefetch},
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		svc.Run(gctx)
		return nil
	})
	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error(ctx, "http_server_error", "Health server terminated with error", err, nil)
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		logger.Info(ctx, "shutdown_started", "Starting graceful shutdown", map[string]any{"stats": svc.Stats()})
		_ = srv.Shutdown(shCtx)
		return nil
	})
	return g.Wait()
}
