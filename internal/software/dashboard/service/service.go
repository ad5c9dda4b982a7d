package service

import (
	"time"

	"valet/internal/ports"
)

const (
	defaultListLimit = 100
	maxListLimit     = 500
)

// dashboardService encapsulates the supervisor dashboard logic and dependencies.
type dashboardService struct {
	uow  ports.UnitOfWork
	repo ports.BookingRepository
	now  func() time.Time
	loc  *time.Location
}

type Option func(*dashboardService)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *dashboardService) { s.now = now }
}

// WithLocation sets the zone day boundaries are computed in. Default UTC.
func WithLocation(loc *time.Location) Option {
	return func(s *dashboardService) { s.loc = loc }
}

// NewDashboardService creates a new instance of the DashboardService with the provided dependencies.
func NewDashboardService(uow ports.UnitOfWork, repo ports.BookingRepository, opts ...Option) ports.DashboardService {
	s := &dashboardService{
		uow:  uow,
		repo: repo,
		now:  time.Now,
		loc:  time.UTC,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}
