package service

import (
	"context"
	"errors"
	"maps"
	"time"

	"valet/internal/domain/booking"
)

// step is one state change applied to a locked booking.
type step struct {
	op    string // log action prefix, e.g. "recall_request"
	event booking.EventType
	allow guard
	apply func(b *booking.Booking, now time.Time) error
	data  func(b *booking.Booking) map[string]any
}

// transition runs st against booking id under the repository lock and appends
// the journal entry in the same unit of work. A missing booking and a foreign
// one look the same to the caller.
func (s *bookingService) transition(ctx context.Context, id string, st step) (*booking.Booking, error) {
	ctx = s.logger.WithBookingID(ctx, id)

	var out *booking.Booking
	err := s.uow.WithinTx(ctx, func(txCtx context.Context) error {
		b, err := s.repo.Mutate(txCtx, id, func(b *booking.Booking) error {
			if !st.allow(b) {
				return booking.ErrUnauthorized
			}
			return st.apply(b, s.now())
		})
		if err != nil {
			return err
		}

		data := map[string]any{"status": b.Status.String()}
		if st.data != nil {
			maps.Copy(data, st.data(b))
		}
		ev, err := booking.NewEvent(b.ID, st.event, data, b.UpdatedAt)
		if err != nil {
			return err
		}
		if err := s.journal.Append(txCtx, ev); err != nil {
			return err
		}

		out = b
		return nil
	})
	if err != nil {
		if errors.Is(err, booking.ErrNotFound) {
			err = booking.ErrUnauthorized
		}
		return nil, s.fail(ctx, st.op, err)
	}

	s.logger.Info(ctx, st.op+"_ok", "Booking "+id+" is now "+out.Status.String(), map[string]any{
		"status": out.Status.String(),
	})
	return out, nil
}

// fail normalizes err to a domain error and logs it at a level matching its cause.
func (s *bookingService) fail(ctx context.Context, op string, err error) error {
	derr := booking.AsError(err)
	details := map[string]any{"code": string(derr.Code)}
	if derr.Code == booking.CodeUnavailable {
		s.logger.Error(ctx, op+"_failed", "Booking store unavailable", err, details)
	} else {
		s.logger.Warn(ctx, op+"_rejected", derr.Message, nil, details)
	}
	return derr
}
