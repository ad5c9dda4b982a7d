package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"

	amqp "github.com/rabbitmq/amqp091-go"

	"valet/internal/general/contracts"
	"valet/internal/general/logger"
	"valet/internal/general/notify"
	"valet/internal/ports"
)

const consumerTag = "notification-service-send"

// Consumer is the queue side of the broker client.
type Consumer interface {
	ConsumeForever(ctx context.Context, queue, consumerTag string, prefetch int, handler func(context.Context, amqp.Delivery) error)
}

// Stats counts processed commands since start.
type Stats struct {
	Delivered int64 `json:"delivered"`
	Failed    int64 `json:"failed"`
	Rejected  int64 `json:"rejected"`
}

// NotificationService delivers queued notification commands with the sender
// registered for each command's medium.
type NotificationService struct {
	consumer Consumer
	senders  map[contracts.Medium]ports.NotificationSink
	logger   *logger.Logger
	prefetch int

	delivered atomic.Int64
	failed    atomic.Int64
	rejected  atomic.Int64
}

type Option func(*NotificationService)

// WithSender registers the sink that delivers commands for medium.
func WithSender(medium contracts.Medium, sink ports.NotificationSink) Option {
	return func(s *NotificationService) { s.senders[medium] = sink }
}

func NewNotificationService(consumer Consumer, log *logger.Logger, prefetch int, opts ...Option) *NotificationService {
	s := &NotificationService{
		consumer: consumer,
		senders:  make(map[contracts.Medium]ports.NotificationSink),
		logger:   log,
		prefetch: prefetch,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run consumes the notification queue until ctx ends.
func (s *NotificationService) Run(ctx context.Context) {
	s.logger.Info(ctx, "notification_consumer_started", "Consuming notification commands",
		map[string]any{"queue": contracts.QueueNotifications, "senders": len(s.senders)})
	s.consumer.ConsumeForever(ctx, contracts.QueueNotifications, consumerTag, s.prefetch, s.handle)
}

// Stats returns a snapshot of the counters.
func (s *NotificationService) Stats() Stats {
	return Stats{
		Delivered: s.delivered.Load(),
		Failed:    s.failed.Load(),
		Rejected:  s.rejected.Load(),
	}
}

// handle applies one command. Any error drops the message: a failed provider
// call is not retried, matching the in-process sinks.
func (s *NotificationService) handle(ctx context.Context, d amqp.Delivery) error {
	var cmd contracts.NotificationCommand
	if err := json.Unmarshal(d.Body, &cmd); err != nil {
		s.rejected.Add(1)
		s.logger.Error(ctx, "mq_message_parse_failed", "Failed to parse notification command", err,
			map[string]any{"routing_key": d.RoutingKey})
		return err
	}
	ctx = s.logger.WithRequestID(ctx, cmd.CorrelationID)
	details := map[string]any{"kind": string(cmd.Kind), "medium": string(cmd.Medium), "producer": cmd.Producer}

	sink, ok := s.senders[cmd.Medium]
	if !ok {
		s.rejected.Add(1)
		err := fmt.Errorf("%w: no sender for medium %q", notify.ErrMalformedCommand, cmd.Medium)
		s.logger.Error(ctx, "notification_rejected", "Unroutable notification command", err, details)
		return err
	}

	if err := notify.Apply(ctx, sink, cmd); err != nil {
		s.failed.Add(1)
		s.logger.Warn(ctx, "notification_failed", "Notification was not delivered", err, details)
		return err
	}

	s.delivered.Add(1)
	s.logger.Debug(ctx, "notification_delivered", "Notification delivered", details)
	return nil
}
