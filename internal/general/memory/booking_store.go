package memory

import (
	"context"
	"slices"
	"sync"
	"time"

	"valet/internal/domain/booking"
	"valet/internal/ports"
)

// BookingStore is the in-process BookingRepository.
type BookingStore struct {
	mu     sync.RWMutex
	byID   map[string]*booking.Booking
	tokens map[string]string // access token -> id

	locks *keyedMutex
	keys  booking.KeyGenerator
	now   func() time.Time
}

// Option configures a BookingStore.
type Option func(*BookingStore)

// WithClock replaces time.Now for updatedAt stamping.
func WithClock(now func() time.Time) Option {
	return func(s *BookingStore) { s.now = now }
}

// WithKeys replaces the id/token generator.
func WithKeys(k booking.KeyGenerator) Option {
	return func(s *BookingStore) { s.keys = k }
}

// NewBookingStore builds an empty store.
func NewBookingStore(opts ...Option) *BookingStore {
	s := &BookingStore{
		byID:   make(map[string]*booking.Booking),
		tokens: make(map[string]string),
		locks:  newKeyedMutex(),
		keys:   booking.RandomKeys{},
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ ports.BookingRepository = (*BookingStore)(nil)

func (s *BookingStore) Create(ctx context.Context, b *booking.Booking) (*booking.Booking, error) {
	if err := ctx.Err(); err != nil {
		return nil, booking.Unavailable(err)
	}

	rec := b.Clone()

	s.mu.Lock()
	defer s.mu.Unlock()

	for attempt := 0; attempt < booking.MaxKeyAttempts; attempt++ {
		id, token := s.keys.NewID(), s.keys.NewToken()
		if _, taken := s.byID[id]; taken {
			continue
		}
		if _, taken := s.tokens[token]; taken {
			continue
		}
		rec.ID, rec.AccessToken = id, token
		s.byID[id] = rec
		s.tokens[token] = id
		return rec.Clone(), nil
	}
	return nil, booking.ErrConflict
}

func (s *BookingStore) GetByID(ctx context.Context, id string) (*booking.Booking, error) {
	if err := ctx.Err(); err != nil {
		return nil, booking.Unavailable(err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.byID[id]
	if !ok {
		return nil, booking.ErrNotFound
	}
	return b.Clone(), nil
}

func (s *BookingStore) GetByToken(ctx context.Context, token string) (*booking.Booking, error) {
	if err := ctx.Err(); err != nil {
		return nil, booking.Unavailable(err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.tokens[token]
	if !ok || token == "" {
		return nil, booking.ErrNotFound
	}
	return s.byID[id].Clone(), nil
}

// Mutate serializes writers per booking id. Readers never wait on it: they see
// either the state before fn or after it.
func (s *BookingStore) Mutate(ctx context.Context, id string, fn func(b *booking.Booking) error) (*booking.Booking, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	if err := ctx.Err(); err != nil {
		return nil, booking.Unavailable(err)
	}

	s.mu.RLock()
	stored, ok := s.byID[id]
	s.mu.RUnlock()
	if !ok {
		return nil, booking.ErrNotFound
	}
	// stored is only replaced, never written in place, and only under this key's lock
	cur := stored.Clone()

	if err := fn(cur); err != nil {
		return nil, err
	}
	// identity is immutable whatever fn did
	cur.ID = stored.ID
	cur.AccessToken = stored.AccessToken
	cur.DriverID = stored.DriverID
	cur.CreatedAt = stored.CreatedAt
	cur.Touch(s.now())

	s.mu.Lock()
	s.byID[id] = cur
	s.mu.Unlock()

	return cur.Clone(), nil
}

func (s *BookingStore) List(ctx context.Context, f ports.BookingFilter) ([]*booking.Booking, error) {
	if err := ctx.Err(); err != nil {
		return nil, booking.Unavailable(err)
	}

	s.mu.RLock()
	out := make([]*booking.Booking, 0)
	for _, b := range s.byID {
		if matches(b, f) {
			out = append(out, b.Clone())
		}
	}
	s.mu.RUnlock()

	slices.SortFunc(out, func(a, b *booking.Booking) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		if a.ID > b.ID {
			return -1
		}
		if a.ID < b.ID {
			return 1
		}
		return 0
	})
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

// CountByStatus returns the number of matching bookings per status. Limit is ignored.
func (s *BookingStore) CountByStatus(ctx context.Context, f ports.BookingFilter) (map[booking.Status]int, error) {
	if err := ctx.Err(); err != nil {
		return nil, booking.Unavailable(err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[booking.Status]int)
	for _, b := range s.byID {
		if matches(b, f) {
			out[b.Status]++
		}
	}
	return out, nil
}

// SumRevenue adds up the payment amounts of matching bookings. Limit is ignored.
func (s *BookingStore) SumRevenue(ctx context.Context, f ports.BookingFilter) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, booking.Unavailable(err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	var total float64
	for _, b := range s.byID {
		if matches(b, f) && b.Payment.Amount != nil {
			total += *b.Payment.Amount
		}
	}
	return total, nil
}

func matches(b *booking.Booking, f ports.BookingFilter) bool {
	if len(f.DriverIDs) > 0 && !slices.Contains(f.DriverIDs, b.DriverID) {
		return false
	}
	if len(f.Statuses) > 0 && !slices.Contains(f.Statuses, b.Status) {
		return false
	}
	if slices.Contains(f.ExcludeStatuses, b.Status) {
		return false
	}
	if f.CustomerPhone != "" && b.Customer.Phone != f.CustomerPhone {
		return false
	}
	if f.CreatedFrom != nil && b.CreatedAt.Before(*f.CreatedFrom) {
		return false
	}
	if f.CreatedTo != nil && !b.CreatedAt.Before(*f.CreatedTo) {
		return false
	}
	return true
}
