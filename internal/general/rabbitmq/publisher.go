package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"valet/internal/general/contracts"
	"valet/internal/general/logger"
)

const confirmTimeout = 5 * time.Second

// Publisher is the part of Client that adapters depend on.
type Publisher interface {
	PublishMessage(ctx context.Context, exchange, routingKey string, body []byte) error
}

var _ Publisher = (*Client)(nil)

// PublishMessage publishes a persistent JSON message and waits for the broker confirm.
// The wait is bounded by ctx and by confirmTimeout, whichever ends first.
func (client *Client) PublishMessage(ctx context.Context, exchange, routingKey string, body []byte) error {
	client.mu.RLock()
	ch := client.pubChan
	conn := client.conn
	client.mu.RUnlock()

	if conn == nil || conn.IsClosed() {
		return errors.New("rabbitmq: connection is not open")
	}
	if ch == nil || ch.IsClosed() {
		return errors.New("rabbitmq: publish channel is not open")
	}

	// confirms arrive in publish order, so publish+wait is one critical section
	client.pubMu.Lock()
	defer client.pubMu.Unlock()
	confirms := client.pubConfirms

	ctx, cancel := context.WithTimeout(ctx, confirmTimeout)
	defer cancel()

	if err := ch.PublishWithContext(ctx, exchange, routingKey, true /* mandatory */, false, /* immediate */
		amqp.Publishing{
			DeliveryMode:  amqp.Persistent,
			ContentType:   "application/json",
			CorrelationId: logger.RequestID(ctx),
			Timestamp:     time.Now().UTC(),
			Body:          body,
		},
	); err != nil {
		return err
	}

	select {
	case c, ok := <-confirms:
		if !ok {
			return errors.New("rabbitmq: confirm stream closed")
		}
		if !c.Ack {
			return fmt.Errorf("rabbitmq: publish not acknowledged")
		}
		return nil
	case <-ctx.Done():
		// keep the confirm stream aligned for the next publisher
		select {
		case <-confirms:
		case <-time.After(2 * time.Second):
		}
		return ctx.Err()
	}
}

// EventPublisher relays lifecycle events onto the valet_events topic exchange,
// routed by channel. It is a fanout transport.
type EventPublisher struct {
	pub      Publisher
	producer string
}

// NewEventPublisher builds the broker transport for producer (the service name).
func NewEventPublisher(pub Publisher, producer string) *EventPublisher {
	return &EventPublisher{pub: pub, producer: producer}
}

// Deliver wraps payload in a BusMessage and publishes it with the channel's routing key.
func (p *EventPublisher) Deliver(ctx context.Context, ch contracts.Channel, event string, payload []byte) error {
	corr := logger.RequestID(ctx)
	if corr == "" {
		corr = uuid.NewString()
	}
	body, err := json.Marshal(contracts.BusMessage{
		Event:   event,
		Channel: ch.String(),
		Data:    payload,
		Envelope: contracts.Envelope{
			CorrelationID: corr,
			Producer:      p.producer,
			SentAt:        time.Now().UTC(),
		},
	})
	if err != nil {
		return fmt.Errorf("encode bus message: %w", err)
	}
	return p.pub.PublishMessage(ctx, contracts.ExchangeEvents, ch.RoutingKey(), body)
}

// DecodeBusMessage parses a relayed event and resolves its channel.
func DecodeBusMessage(body []byte) (contracts.BusMessage, contracts.Channel, error) {
	var msg contracts.BusMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		return msg, "", fmt.Errorf("decode bus message: %w", err)
	}
	if msg.Event == "" {
		return msg, "", errors.New("bus message has no event name")
	}
	ch := contracts.Channel(msg.Channel)
	if ch == "" {
		return msg, "", errors.New("bus message has no channel")
	}
	return msg, ch, nil
}
