package bookingservice

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"valet/internal/general/accesslink"
	"valet/internal/general/config"
	"valet/internal/general/contracts"
	"valet/internal/general/fanout"
	"valet/internal/general/imagestore"
	"valet/internal/general/jwt"
	"valet/internal/general/logger"
	"valet/internal/general/memory"
	"valet/internal/general/notify"
	"valet/internal/general/postgres"
	"valet/internal/general/rabbitmq"
	"valet/internal/general/websocket"
	"valet/internal/ports"
	dashhandler "valet/internal/software/dashboard/handler"
	dashservice "valet/internal/software/dashboard/service"
	"valet/internal/software/valet/handler"
	"valet/internal/software/valet/service"
)

const serviceName = "booking-service"

// stores groups the persistence ports of one storage backend.
type stores struct {
	uow       ports.UnitOfWork
	bookings  ports.BookingRepository
	journal   ports.BookingEventRepository
	customers ports.CustomerDirectory
	close     func()
}

// Run wires the booking service and blocks until ctx is cancelled.
func Run(ctx context.Context, configPath string, maxConcurrent int) error {
	// set up a new logger and context for booking service with a static request ID for startup logs
	logger := logger.New(serviceName)
	ctx = logger.WithRequestID(ctx, "startup-001")

	// load a config from file (optional for the in-memory mode)
	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Error(ctx, "config_load_failed", "Failed to load configuration", err, nil)
		return err
	}

	// set up storage
	st, err := openStores(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer st.close()

	// connect to RabbitMQ only when something publishes to it
	var rmq *rabbitmq.Client
	if cfg.Events.Broker || cfg.Notifications.Mode == config.NotifyQueue {
		rmq, err = rabbitmq.ConnectRabbitMQ(ctx, cfg, logger)
		if err != nil {
			logger.Error(ctx, "rabbitmq_connection_failed", "Failed to connect to RabbitMQ", err, nil)
			return err
		}
		defer rmq.Close()
	}

	// set up the JWT manager
	jwtManager := jwt.NewManager(cfg.JWT.SecretKey, cfg.JWT.AccessTTL)

	// set up the websocket hub
	hub := websocket.NewHub(logger, jwtManager,
		websocket.WithAuthTimeout(cfg.WebSocket.AuthTimeout),
		websocket.WithPingInterval(cfg.WebSocket.PingInterval),
	)

	// set up the event dispatcher: local subscribers always, the broker when enabled
	fanoutOpts := []fanout.Option{
		fanout.WithTransport("websocket", hub),
		fanout.WithDeliveryTimeout(cfg.Events.DeliveryTimeout),
		fanout.WithSinkTimeout(cfg.Notifications.SinkTimeout),
	}
	if cfg.Events.Broker {
		fanoutOpts = append(fanoutOpts, fanout.WithTransport("rabbitmq", rabbitmq.NewEventPublisher(rmq, serviceName)))
	}
	dispatcher := fanout.New(logger, fanoutOpts...)

	// set up the notification sinks
	svcOpts := []service.Option{}
	switch cfg.Notifications.Mode {
	case config.NotifyDirect:
		svcOpts = append(svcOpts,
			service.WithNotificationSink("sms", notify.NewSMSSender(cfg, logger, nil)),
			service.WithNotificationSink("email", notify.NewEmailSender(cfg, logger, nil)),
		)
	case config.NotifyQueue:
		svcOpts = append(svcOpts,
			service.WithNotificationSink("sms", notify.NewQueueSink(rmq, contracts.MediumSMS, serviceName)),
			service.WithNotificationSink("email", notify.NewQueueSink(rmq, contracts.MediumEmail, serviceName)),
		)
	}

	// set up the image store
	images, err := imagestore.NewLocal(cfg.Images.Dir, cfg.Images.MaxBytes)
	if err != nil {
		logger.Error(ctx, "image_store_failed", "Failed to prepare image directory", err, map[string]any{"dir": cfg.Images.Dir})
		return err
	}

	// set up the services
	svc := service.NewBookingService(logger, st.uow, st.bookings, st.journal, dispatcher,
		accesslink.New(cfg.Links.CustomerBaseURL), svcOpts...)
	resolver := service.NewAccessResolver(logger, st.uow, st.bookings, st.customers)
	dashboard := dashservice.NewDashboardService(st.uow, st.bookings, dashservice.WithLocation(cfg.Location()))

	// set up the HTTP handlers and their routes; the hub routes are mounted once, by the booking handler
	mux := http.NewServeMux()
	handler.NewBookingHTTPHandler(svc, resolver, handler.Uploads{
		Store:    images,
		Dir:      images.Dir(),
		MaxBytes: cfg.Images.MaxBytes,
		MaxFiles: cfg.Images.MaxFiles,
	}, logger, jwtManager, hub).RegisterRoutes(mux)
	dashhandler.NewDashboardHTTPHandler(dashboard, logger, jwtManager, nil).RegisterRoutes(mux)

	// concurrency limiter (global); blocks when capacity is full
	limitedHandler := withConcurrencyLimit(maxConcurrent, mux)

	// set up the server configurations
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Services.BookingServicePort),
		Handler:           limitedHandler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second, // multipart uploads
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	logger.Info(ctx, "service_started",
		fmt.Sprintf("Booking Service started on port %d", cfg.Services.BookingServicePort),
		map[string]any{
			"port":           cfg.Services.BookingServicePort,
			"max_concurrent": maxConcurrent,
			"storage":        cfg.Storage.Driver,
			"notifications":  cfg.Notifications.Mode,
			"broker_events":  cfg.Events.Broker,
		},
	)

	// start the server in a background goroutine
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	// wait for context cancellation or server error
	select {
	case <-ctx.Done():
		// graceful HTTP shutdown, then drain pending events and notifications
		shCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		logger.Info(ctx, "shutdown_started", "Starting graceful shutdown", nil)
		if err := srv.Shutdown(shCtx); err != nil && err != http.ErrServerClosed {
			logger.Error(ctx, "http_shutdown_failed", "Failed to gracefully shut down HTTP server", err, nil)
		}
		if err := dispatcher.Close(shCtx); err != nil {
			logger.Warn(ctx, "dispatcher_drain_incomplete", "Some events were not delivered before shutdown", err, nil)
		}
	case err := <-errCh:
		// server returned a terminal error at startup or during run
		if err != nil && err != http.ErrServerClosed {
			logger.Error(ctx, "http_server_error", "HTTP server terminated with error", err, map[string]any{"port": cfg.Services.BookingServicePort})
			return err
		}
		return nil
	}

	return nil
}

// openStores builds the persistence layer selected by storage.driver.
func openStores(ctx context.Context, cfg *config.Config, logger *logger.Logger) (*stores, error) {
	if cfg.Storage.Driver == config.StorageMemory {
		logger.Warn(ctx, "memory_storage", "Bookings are kept in memory and lost on restart", nil, nil)
		return &stores{
			uow:       memory.NewUnitOfWork(),
			bookings:  memory.NewBookingStore(),
			journal:   memory.NewEventLog(),
			customers: memory.NewCustomerDirectory(),
			close:     func() {},
		}, nil
	}

	// set up a Postgres connection pool
	pool, err := postgres.NewPool(ctx, cfg, logger)
	if err != nil {
		logger.Error(ctx, "db_connection_failed", "Failed to initialize Postgres pool", err, nil)
		return nil, err
	}
	return &stores{
		uow:       postgres.NewUnitOfWork(pool),
		bookings:  postgres.NewBookingRepo(nil),
		journal:   postgres.NewBookingEventRepo(),
		customers: postgres.NewCustomerRepo(),
		close:     pool.Close,
	}, nil
}

// withConcurrencyLimit wraps an http.Handler with a semaphore-based limiter.
// It controls how many HTTP requests can be in-progress at the same time.
func withConcurrencyLimit(n int, next http.Handler) http.Handler {
	if n <= 0 {
		return next
	}
	sem := make(chan struct{}, n)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case sem <- struct{}{}: // acquire
			defer func() { <-sem }() // release
			next.ServeHTTP(w, r)
		case <-r.Context().Done():
			// client canceled or server is shutting down
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		}
	})
}
