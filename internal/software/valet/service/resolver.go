package service

import (
	"context"
	"errors"
	"strings"

	"valet/internal/domain/booking"
	"valet/internal/domain/user"
	"valet/internal/general/logger"
	"valet/internal/ports"
)

// accessResolver opens a booking from the customer's access link. It never
// changes the booking; the only write is provisioning the customer identity.
type accessResolver struct {
	logger    *logger.Logger
	uow       ports.UnitOfWork
	repo      ports.BookingRepository
	customers ports.CustomerDirectory
}

func NewAccessResolver(logger *logger.Logger, uow ports.UnitOfWork, repo ports.BookingRepository, customers ports.CustomerDirectory) ports.AccessResolver {
	return &accessResolver{logger: logger, uow: uow, repo: repo, customers: customers}
}

func (r *accessResolver) Resolve(ctx context.Context, token string) (ports.AccessResolution, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return ports.AccessResolution{}, booking.ErrNotFound
	}

	var res ports.AccessResolution
	err := r.uow.WithinTx(ctx, func(txCtx context.Context) error {
		b, err := r.repo.GetByToken(txCtx, token)
		if err != nil {
			return err
		}
		c, err := r.customers.FindOrCreate(txCtx, b.Customer.Phone, b.Customer.Name, b.Customer.Email)
		if err != nil {
			return err
		}
		res = ports.AccessResolution{Booking: b, Customer: c}
		return nil
	})
	if err != nil {
		if errors.Is(err, user.ErrPhoneRequired) || errors.Is(err, user.ErrInvalidEmail) {
			err = booking.InvalidArgument("stored customer contact is invalid")
		}
		derr := booking.AsError(err)
		if derr.Code == booking.CodeNotFound {
			r.logger.Warn(ctx, "access_token_unknown", "Access token did not resolve", nil, nil)
		} else {
			r.logger.Error(ctx, "access_resolve_failed", "Failed to resolve access token", err, nil)
		}
		return ports.AccessResolution{}, derr
	}

	ctx = r.logger.WithBookingID(ctx, res.Booking.ID)
	r.logger.Info(ctx, "access_resolved", "Customer opened booking via access link", map[string]any{
		"customer_id": res.Customer.ID,
	})
	return res, nil
}
