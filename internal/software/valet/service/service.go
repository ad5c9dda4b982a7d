package service

import (
	"time"

	"valet/internal/domain/booking"
	"valet/internal/general/logger"
	"valet/internal/ports"
)

// namedSink is one notification medium (sms, email) the engine fans out to.
type namedSink struct {
	name string
	sink ports.NotificationSink
}

// bookingService is the lifecycle engine: every transition is authorized,
// applied through BookingRepository.Mutate and journaled in one unit of work,
// and only then fanned out.
type bookingService struct {
	logger   *logger.Logger
	uow      ports.UnitOfWork
	repo     ports.BookingRepository
	journal  ports.BookingEventRepository
	dispatch ports.EventDispatcher
	links    ports.LinkBuilder
	sinks    []namedSink

	now func() time.Time
	otp booking.OTPSource
}

// Option configures the booking service.
type Option func(*bookingService)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *bookingService) { s.now = now }
}

// WithOTPSource replaces the crypto/rand code generator.
func WithOTPSource(src booking.OTPSource) Option {
	return func(s *bookingService) { s.otp = src }
}

// WithNotificationSink adds a customer notification medium. Each sink is
// called independently, so a failing SMS provider never stops the email.
func WithNotificationSink(name string, sink ports.NotificationSink) Option {
	return func(s *bookingService) {
		if sink != nil {
			s.sinks = append(s.sinks, namedSink{name: name, sink: sink})
		}
	}
}

// NewBookingService creates the lifecycle engine with the provided dependencies.
func NewBookingService(
	logger *logger.Logger,
	uow ports.UnitOfWork,
	repo ports.BookingRepository,
	journal ports.BookingEventRepository,
	dispatch ports.EventDispatcher,
	links ports.LinkBuilder,
	opts ...Option,
) ports.BookingService {
	s := &bookingService{
		logger:   logger,
		uow:      uow,
		repo:     repo,
		journal:  journal,
		dispatch: dispatch,
		links:    links,
		now:      time.Now,
		otp:      booking.RandomOTP,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}
