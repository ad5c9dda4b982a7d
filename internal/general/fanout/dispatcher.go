package fanout

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"valet/internal/general/contracts"
	"valet/internal/general/logger"
	"valet/internal/ports"
)

// Transport delivers one encoded event to one channel. Implementations must
// honour ctx: the dispatcher bounds every delivery with a timeout.
type Transport interface {
	Deliver(ctx context.Context, ch contracts.Channel, event string, payload []byte) error
}

// TransportFunc adapts a function to Transport.
type TransportFunc func(ctx context.Context, ch contracts.Channel, event string, payload []byte) error

func (f TransportFunc) Deliver(ctx context.Context, ch contracts.Channel, event string, payload []byte) error {
	return f(ctx, ch, event, payload)
}

type namedTransport struct {
	name string
	t    Transport
}

type delivery struct {
	ctx     context.Context
	event   string
	payload []byte
}

// Dispatcher fans events out to channels and runs notification sinks off the
// caller's path. Per channel, events are delivered in publish order by a single
// goroutine that exists only while the channel has pending work.
type Dispatcher struct {
	log             *logger.Logger
	transports      []namedTransport
	deliveryTimeout time.Duration
	sinkTimeout     time.Duration

	mu     sync.Mutex
	queues map[contracts.Channel][]delivery
	closed bool
	wg     sync.WaitGroup
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithTransport adds a delivery target. Every event goes to every transport.
func WithTransport(name string, t Transport) Option {
	return func(d *Dispatcher) { d.transports = append(d.transports, namedTransport{name: name, t: t}) }
}

func WithDeliveryTimeout(timeout time.Duration) Option {
	return func(d *Dispatcher) { d.deliveryTimeout = timeout }
}

func WithSinkTimeout(timeout time.Duration) Option {
	return func(d *Dispatcher) { d.sinkTimeout = timeout }
}

// New builds a dispatcher. Defaults: 2s per delivery, 5s per sink call.
func New(log *logger.Logger, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		log:             log,
		deliveryTimeout: 2 * time.Second,
		sinkTimeout:     5 * time.Second,
		queues:          make(map[contracts.Channel][]delivery),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

var _ ports.EventDispatcher = (*Dispatcher)(nil)

// Publish encodes payload once and queues it for ch. It never blocks on delivery.
func (d *Dispatcher) Publish(ctx context.Context, ch contracts.Channel, event string, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		d.log.Error(ctx, "event_encode_failed", "Failed to encode event payload", err,
			map[string]any{"channel": ch.String(), "event": event})
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		d.log.Warn(ctx, "event_dropped", "Dispatcher is closed; event dropped", nil,
			map[string]any{"channel": ch.String(), "event": event})
		return
	}

	q, active := d.queues[ch]
	d.queues[ch] = append(q, delivery{ctx: context.WithoutCancel(ctx), event: event, payload: body})
	if !active {
		d.wg.Add(1)
		go d.drain(ch)
	}
}

// drain delivers queued events for ch until the queue is empty.
func (d *Dispatcher) drain(ch contracts.Channel) {
	defer d.wg.Done()
	for {
		d.mu.Lock()
		q := d.queues[ch]
		if len(q) == 0 {
			delete(d.queues, ch)
			d.mu.Unlock()
			return
		}
		next := q[0]
		q[0] = delivery{}
		d.queues[ch] = q[1:]
		d.mu.Unlock()

		for _, nt := range d.transports {
			d.deliver(nt, ch, next)
		}
	}
}

func (d *Dispatcher) deliver(nt namedTransport, ch contracts.Channel, item delivery) {
	ctx, cancel := context.WithTimeout(item.ctx, d.deliveryTimeout)
	defer cancel()

	details := map[string]any{"channel": ch.String(), "event": item.event, "transport": nt.name}
	defer func() {
		if p := recover(); p != nil {
			d.log.Error(ctx, "event_delivery_panic", "Transport panicked", fmt.Errorf("%v", p), details)
		}
	}()

	if err := nt.t.Deliver(ctx, ch, item.event, item.payload); err != nil {
		d.log.Error(ctx, "event_delivery_failed", "Failed to deliver event", err, details)
		return
	}
	d.log.Debug(ctx, "event_delivered", "Event delivered", details)
}

// Notify runs fn asynchronously under the sink timeout. The caller's
// cancellation does not reach fn; failures and panics are logged only.
func (d *Dispatcher) Notify(ctx context.Context, action string, fn func(ctx context.Context) error) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		d.log.Warn(ctx, "notification_dropped", "Dispatcher is closed; notification dropped", nil,
			map[string]any{"notification": action})
		return
	}
	d.wg.Add(1)
	d.mu.Unlock()

	go func() {
		defer d.wg.Done()

		sinkCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.sinkTimeout)
		defer cancel()

		details := map[string]any{"notification": action}
		defer func() {
			if p := recover(); p != nil {
				d.log.Error(sinkCtx, "notification_panic", "Notification sink panicked", fmt.Errorf("%v", p), details)
			}
		}()

		if err := fn(sinkCtx); err != nil {
			d.log.Error(sinkCtx, "notification_failed", "Failed to send notification", err, details)
			return
		}
		d.log.Debug(sinkCtx, "notification_sent", "Notification sent", details)
	}()
}

// Flush waits until all accepted events and notifications are done, or ctx ends.
func (d *Dispatcher) Flush(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting work and drains what is queued.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
	return d.Flush(ctx)
}
