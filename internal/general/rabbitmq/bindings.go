package rabbitmq

import (
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	"valet/internal/general/contracts"
)

// declareTopology declares the exchanges, queues and bindings every service relies on.
// It is idempotent and runs again after each reconnect.
func declareTopology(ch *amqp.Channel) error {
	exchanges := []struct {
		name string
		kind string
	}{
		{contracts.ExchangeEvents, amqp.ExchangeTopic},
		{contracts.ExchangeNotifications, amqp.ExchangeDirect},
	}
	for _, ex := range exchanges {
		if err := ch.ExchangeDeclare(ex.name, ex.kind, true, false, false, false, nil); err != nil {
			return fmt.Errorf("declare exchange %s: %w", ex.name, err)
		}
	}

	queues := []string{
		contracts.QueueSupervisorEvents,
		contracts.QueueNotifications,
	}
	for _, q := range queues {
		if _, err := ch.QueueDeclare(q, true, false, false, false, nil); err != nil {
			return fmt.Errorf("declare queue %s: %w", q, err)
		}
	}

	bindings := []struct {
		queue      string
		exchange   string
		routingKey string
	}{
		{contracts.QueueSupervisorEvents, contracts.ExchangeEvents, contracts.RouteSupervisors},
		{contracts.QueueNotifications, contracts.ExchangeNotifications, contracts.RouteNotifySend},
	}
	for _, b := range bindings {
		if err := ch.QueueBind(b.queue, b.routingKey, b.exchange, false, nil); err != nil {
			return fmt.Errorf("bind queue %s to %s: %w", b.queue, b.exchange, err)
		}
	}
	return nil
}
