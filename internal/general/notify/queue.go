package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"valet/internal/general/contracts"
	"valet/internal/general/logger"
	"valet/internal/general/rabbitmq"
	"valet/internal/ports"
)

// QueueSink hands notifications to the notification service over RabbitMQ
// instead of delivering them in-process. One sink serves one medium.
type QueueSink struct {
	pub      rabbitmq.Publisher
	medium   contracts.Medium
	producer string
}

var _ ports.NotificationSink = (*QueueSink)(nil)

func NewQueueSink(pub rabbitmq.Publisher, medium contracts.Medium, producer string) *QueueSink {
	return &QueueSink{pub: pub, medium: medium, producer: producer}
}

func (q *QueueSink) SendBookingConfirmation(ctx context.Context, n contracts.BookingConfirmation) error {
	return q.publish(ctx, contracts.NotificationCommand{Kind: contracts.NotifyBookingConfirmation, Confirmation: &n})
}

func (q *QueueSink) SendRecallNotification(ctx context.Context, n contracts.RecallNotice) error {
	return q.publish(ctx, contracts.NotificationCommand{Kind: contracts.NotifyRecall, Recall: &n})
}

func (q *QueueSink) SendArrivalNotification(ctx context.Context, n contracts.ArrivalNotice) error {
	return q.publish(ctx, contracts.NotificationCommand{Kind: contracts.NotifyArrival, Arrival: &n})
}

func (q *QueueSink) publish(ctx context.Context, cmd contracts.NotificationCommand) error {
	cmd.Medium = q.medium
	cmd.Envelope = contracts.Envelope{
		CorrelationID: logger.RequestID(ctx),
		Producer:      q.producer,
		SentAt:        time.Now().UTC(),
	}
	body, err := json.Marshal(cmd)
	if err != nil {
		return fmt.Errorf("encode notification command: %w", err)
	}
	return q.pub.PublishMessage(ctx, contracts.ExchangeNotifications, contracts.RouteNotifySend, body)
}

var ErrMalformedCommand = errors.New("malformed notification command")

// Apply performs a queued command against sink.
func Apply(ctx context.Context, sink ports.NotificationSink, cmd contracts.NotificationCommand) error {
	switch {
	case cmd.Kind == contracts.NotifyBookingConfirmation && cmd.Confirmation != nil:
		return sink.SendBookingConfirmation(ctx, *cmd.Confirmation)
	case cmd.Kind == contracts.NotifyRecall && cmd.Recall != nil:
		return sink.SendRecallNotification(ctx, *cmd.Recall)
	case cmd.Kind == contracts.NotifyArrival && cmd.Arrival != nil:
		return sink.SendArrivalNotification(ctx, *cmd.Arrival)
	default:
		return fmt.Errorf("%w: kind %q", ErrMalformedCommand, cmd.Kind)
	}
}
