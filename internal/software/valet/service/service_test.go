package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"valet/internal/domain/booking"
	"valet/internal/domain/user"
	"valet/internal/general/accesslink"
	"valet/internal/general/contracts"
	"valet/internal/general/logger"
	"valet/internal/general/memory"
	"valet/internal/ports"
)

var t0 = time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

type published struct {
	Channel contracts.Channel
	Event   string
	Payload contracts.BookingEvent
}

// recordingDispatcher runs sink calls inline and keeps every publish.
type recordingDispatcher struct {
	mu        sync.Mutex
	published []published
	notified  []string
	failures  []error
}

func (d *recordingDispatcher) Publish(_ context.Context, ch contracts.Channel, event string, payload any) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.published = append(d.published, published{Channel: ch, Event: event, Payload: payload.(contracts.BookingEvent)})
}

func (d *recordingDispatcher) Notify(ctx context.Context, action string, fn func(ctx context.Context) error) {
	err := fn(ctx)
	d.mu.Lock()
	defer d.mu.Unlock()
	d.notified = append(d.notified, action)
	if err != nil {
		d.failures = append(d.failures, err)
	}
}

func (d *recordingDispatcher) events(ch contracts.Channel) []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []string
	for _, p := range d.published {
		if p.Channel == ch {
			out = append(out, p.Event)
		}
	}
	return out
}

func (d *recordingDispatcher) last(ch contracts.Channel, event string) (contracts.BookingEvent, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i := len(d.published) - 1; i >= 0; i-- {
		if p := d.published[i]; p.Channel == ch && p.Event == event {
			return p.Payload, true
		}
	}
	return contracts.BookingEvent{}, false
}

// recordingSink remembers what it was asked to send and can be told to fail.
type recordingSink struct {
	mu            sync.Mutex
	confirmations []contracts.BookingConfirmation
	recalls       []contracts.RecallNotice
	arrivals      []contracts.ArrivalNotice
	err           error
}

func (s *recordingSink) SendBookingConfirmation(_ context.Context, n contracts.BookingConfirmation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.confirmations = append(s.confirmations, n)
	return s.err
}

func (s *recordingSink) SendRecallNotification(_ context.Context, n contracts.RecallNotice) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recalls = append(s.recalls, n)
	return s.err
}

func (s *recordingSink) SendArrivalNotification(_ context.Context, n contracts.ArrivalNotice) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.arrivals = append(s.arrivals, n)
	return s.err
}

type harness struct {
	svc      ports.BookingService
	resolver ports.AccessResolver
	store    *memory.BookingStore
	journal  *memory.EventLog
	dispatch *recordingDispatcher
	sms      *recordingSink
	email    *recordingSink
	clock    *fakeClock
}

func newHarness(t *testing.T, opts ...Option) *harness {
	t.Helper()
	clock := &fakeClock{now: t0}
	h := &harness{
		store:    memory.NewBookingStore(memory.WithClock(clock.Now)),
		journal:  memory.NewEventLog(),
		dispatch: &recordingDispatcher{},
		sms:      &recordingSink{},
		email:    &recordingSink{},
		clock:    clock,
	}
	uow := memory.NewUnitOfWork()
	base := []Option{
		WithClock(clock.Now),
		WithOTPSource(func() (int64, error) { return 42, nil }),
		WithNotificationSink("sms", h.sms),
		WithNotificationSink("email", h.email),
	}
	h.svc = NewBookingService(logger.Nop(), uow, h.store, h.journal, h.dispatch,
		accesslink.New("http://localhost:3000"), append(base, opts...)...)
	h.resolver = NewAccessResolver(logger.Nop(), uow, h.store, memory.NewCustomerDirectory())
	return h
}

var (
	driverD1  = user.Driver("D1")
	driverD2  = user.Driver("D2")
	customer1 = user.CustomerActor("C1", "9000000001")
	customer2 = user.CustomerActor("C2", "9000000002")
	overseer  = user.Supervisor("S1")
)

func draft() booking.Draft {
	return booking.Draft{
		Customer:                 booking.Customer{Phone: "9000000001", Name: "Asha", Email: "asha@example.com"},
		Vehicle:                  booking.Vehicle{Type: booking.VehicleCar, Number: "ka01ab1234", Model: "Swift"},
		EstimatedDurationMinutes: 120,
		Location:                 booking.Location{Venue: "Grand Hall", ParkingSpot: "B2"},
	}
}

func (h *harness) create(t *testing.T) *booking.Booking {
	t.Helper()
	res, err := h.svc.Create(context.Background(), driverD1, draft())
	require.NoError(t, err)
	return res.Booking
}

// advance drives a fresh booking to the given status through the engine.
func (h *harness) at(t *testing.T, status booking.Status) *booking.Booking {
	t.Helper()
	ctx := context.Background()
	b := h.create(t)
	var err error
	steps := []struct {
		reach booking.Status
		run   func() (*booking.Booking, error)
	}{
		{booking.StatusRecallRequested, func() (*booking.Booking, error) { return h.svc.RequestRecall(ctx, customer1, b.ID) }},
		{booking.StatusInTransit, func() (*booking.Booking, error) { return h.svc.SetEstimatedArrival(ctx, driverD1, b.ID, 15) }},
		{booking.StatusArrived, func() (*booking.Booking, error) { return h.svc.MarkArrived(ctx, driverD1, b.ID) }},
		{booking.StatusCompleted, func() (*booking.Booking, error) {
			return h.svc.VerifyAndComplete(ctx, driverD1, b.ID, ports.CompleteInput{OTP: "000042", Method: booking.PaymentCash, Amount: 150})
		}},
	}
	if status == booking.StatusCancelled {
		b, err = h.svc.Cancel(ctx, overseer, b.ID, "test")
		require.NoError(t, err)
		return b
	}
	for _, st := range steps {
		if b.Status == status {
			break
		}
		b, err = st.run()
		require.NoError(t, err)
		require.Equal(t, st.reach, b.Status)
	}
	require.Equal(t, status, b.Status)
	return b
}

func (h *harness) get(t *testing.T, id string) *booking.Booking {
	t.Helper()
	b, err := h.store.GetByID(context.Background(), id)
	require.NoError(t, err)
	return b
}

var errSinkDown = errors.New("provider down")
