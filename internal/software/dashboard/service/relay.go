package service

import (
	"context"

	amqp "github.com/rabbitmq/amqp091-go"

	"valet/internal/general/contracts"
	"valet/internal/general/fanout"
	"valet/internal/general/logger"
	"valet/internal/general/rabbitmq"
)

const relayConsumerTag = "dashboard-service-supervisor-events"

// EventConsumer is the queue side of the broker client.
type EventConsumer interface {
	ConsumeForever(ctx context.Context, queue, consumerTag string, prefetch int, handler func(context.Context, amqp.Delivery) error)
}

// Relay forwards lifecycle events published by booking-service instances onto
// this process's supervisor WebSocket subscribers.
type Relay struct {
	consumer EventConsumer
	target   fanout.Transport
	logger   *logger.Logger
	prefetch int
}

// NewRelay builds a relay from the supervisor events queue to target (usually the Hub).
func NewRelay(consumer EventConsumer, target fanout.Transport, log *logger.Logger, prefetch int) *Relay {
	return &Relay{consumer: consumer, target: target, logger: log, prefetch: prefetch}
}

// Run blocks until ctx ends, reattaching the consumer across reconnects.
func (r *Relay) Run(ctx context.Context) {
	r.logger.Info(ctx, "relay_started", "Relaying supervisor events",
		map[string]any{"queue": contracts.QueueSupervisorEvents})
	r.consumer.ConsumeForever(ctx, contracts.QueueSupervisorEvents, relayConsumerTag, r.prefetch, r.handle)
}

// handle rejects undecodable messages; a failed subscriber write is not the message's fault.
func (r *Relay) handle(ctx context.Context, d amqp.Delivery) error {
	msg, ch, err := rabbitmq.DecodeBusMessage(d.Body)
	if err != nil {
		r.logger.Error(ctx, "mq_message_parse_failed", "Failed to decode supervisor event", err,
			map[string]any{"routing_key": d.RoutingKey})
		return err
	}
	ctx = r.logger.WithRequestID(ctx, msg.CorrelationID)

	if ch != contracts.Supervisors {
		r.logger.Debug(ctx, "relay_skipped", "Event is not for supervisors",
			map[string]any{"channel": ch.String(), "event": msg.Event})
		return nil
	}

	if err := r.target.Deliver(ctx, ch, msg.Event, msg.Data); err != nil {
		r.logger.Warn(ctx, "relay_delivery_failed", "Some supervisor sessions missed an event", err,
			map[string]any{"event": msg.Event, "producer": msg.Producer})
	}
	return nil
}
