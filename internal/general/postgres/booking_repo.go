package postgres

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"valet/internal/domain/booking"
	"valet/internal/ports"
)

const uniqueViolation = "23505"

// bookingColumns is the column order scanBooking expects.
const bookingColumns = `
	id, access_token, driver_id,
	customer_phone, customer_name, customer_email,
	vehicle_type, vehicle_number, vehicle_model, vehicle_color, vehicle_images, has_valuables, valuables,
	parking_start_time, estimated_duration_minutes, actual_end_time,
	status, recall_requested_at, estimated_arrival_minutes, arrived_at,
	otp, otp_expiry, verified,
	payment_method, payment_amount, payment_state, paid_at, payment_status,
	parking_spot, venue, notes,
	cancellation_reason, cancelled_at,
	created_at, updated_at`

// BookingRepo persists bookings using pgx and plain SQL.
type BookingRepo struct {
	keys booking.KeyGenerator
	now  func() time.Time
}

var _ ports.BookingRepository = (*BookingRepo)(nil)

// NewBookingRepo constructs a BookingRepo. keys may be nil for the production generator.
func NewBookingRepo(keys booking.KeyGenerator) *BookingRepo {
	if keys == nil {
		keys = booking.RandomKeys{}
	}
	return &BookingRepo{keys: keys, now: time.Now}
}

// Create inserts b under a fresh id and token. Each attempt runs in its own
// savepoint so a unique violation can be retried inside the caller's transaction.
func (r *BookingRepo) Create(ctx context.Context, b *booking.Booking) (*booking.Booking, error) {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return nil, err
	}

	rec := b.Clone()
	for attempt := 0; attempt < booking.MaxKeyAttempts; attempt++ {
		rec.ID, rec.AccessToken = r.keys.NewID(), r.keys.NewToken()

		err := withSavepoint(ctx, tx, func(sp pgx.Tx) error {
			return insertBooking(ctx, sp, rec)
		})
		if err == nil {
			return rec, nil
		}
		if isUniqueViolation(err) {
			continue
		}
		return nil, fmt.Errorf("insert booking: %w", err)
	}
	return nil, booking.ErrConflict
}

func insertBooking(ctx context.Context, tx pgx.Tx, b *booking.Booking) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO bookings (`+bookingColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18,
		        $19, $20, $21, $22, $23, $24, $25, $26, $27, $28, $29, $30, $31, $32, $33, $34, $35)
	`, bookingArgs(b)...)
	return err
}

// GetByID fetches a booking by primary key.
func (r *BookingRepo) GetByID(ctx context.Context, id string) (*booking.Booking, error) {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return nil, err
	}
	b, err := scanBooking(tx.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err, "get booking")
	}
	return b, nil
}

// GetByToken fetches a booking by its access token.
func (r *BookingRepo) GetByToken(ctx context.Context, token string) (*booking.Booking, error) {
	if token == "" {
		return nil, booking.ErrNotFound
	}
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return nil, err
	}
	b, err := scanBooking(tx.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE access_token = $1`, token))
	if err != nil {
		return nil, notFound(err, "get booking by token")
	}
	return b, nil
}

// Mutate locks the row for the rest of the transaction, applies fn and writes
// back the mutable columns.
func (r *BookingRepo) Mutate(ctx context.Context, id string, fn func(b *booking.Booking) error) (*booking.Booking, error) {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return nil, err
	}

	stored, err := scanBooking(tx.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		return nil, notFound(err, "lock booking")
	}

	cur := stored.Clone()
	if err := fn(cur); err != nil {
		return nil, err
	}
	cur.ID = stored.ID
	cur.AccessToken = stored.AccessToken
	cur.DriverID = stored.DriverID
	cur.CreatedAt = stored.CreatedAt
	cur.Touch(r.now())

	args := bookingArgs(cur)
	// id, access_token and driver_id are never rewritten
	_, err = tx.Exec(ctx, `
		UPDATE bookings SET
			customer_phone = $4, customer_name = $5, customer_email = $6,
			vehicle_type = $7, vehicle_number = $8, vehicle_model = $9, vehicle_color = $10,
			vehicle_images = $11, has_valuables = $12, valuables = $13,
			parking_start_time = $14, estimated_duration_minutes = $15, actual_end_time = $16,
			status = $17, recall_requested_at = $18, estimated_arrival_minutes = $19, arrived_at = $20,
			otp = $21, otp_expiry = $22, verified = $23,
			payment_method = $24, payment_amount = $25, payment_state = $26, paid_at = $27, payment_status = $28,
			parking_spot = $29, venue = $30, notes = $31,
			cancellation_reason = $32, cancelled_at = $33,
			updated_at = $35
		WHERE id = $1
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("update booking: %w", err)
	}
	return cur, nil
}

// List applies the filter with a dynamically built WHERE clause.
func (r *BookingRepo) List(ctx context.Context, f ports.BookingFilter) ([]*booking.Booking, error) {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return nil, err
	}

	where, args := filterClause(f)
	query := `SELECT ` + bookingColumns + ` FROM bookings` + where
	query += " ORDER BY created_at DESC, id DESC"
	if f.Limit > 0 {
		args = append(args, f.Limit)
		query += " LIMIT $" + strconv.Itoa(len(args))
	}

	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query bookings: %w", err)
	}
	defer rows.Close()

	out := make([]*booking.Booking, 0)
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("scan booking: %w", err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return out, nil
}

// CountByStatus returns the number of matching bookings per status. Limit is ignored.
func (r *BookingRepo) CountByStatus(ctx context.Context, f ports.BookingFilter) (map[booking.Status]int, error) {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return nil, err
	}

	where, args := filterClause(f)
	rows, err := tx.Query(ctx, `SELECT status, COUNT(*) FROM bookings`+where+` GROUP BY status`, args...)
	if err != nil {
		return nil, fmt.Errorf("count bookings: %w", err)
	}
	defer rows.Close()

	out := make(map[booking.Status]int)
	for rows.Next() {
		var (
			status string
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		out[booking.Status(status)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return out, nil
}

// SumRevenue adds up the payment amounts of matching bookings. Limit is ignored.
func (r *BookingRepo) SumRevenue(ctx context.Context, f ports.BookingFilter) (float64, error) {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return 0, err
	}

	where, args := filterClause(f)
	var total float64
	err = tx.QueryRow(ctx,
		`SELECT COALESCE(SUM(payment_amount), 0)::float8 FROM bookings`+where, args...).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("sum revenue: %w", err)
	}
	return total, nil
}

// filterClause renders f as " WHERE ..." (or "") with positional arguments.
func filterClause(f ports.BookingFilter) (string, []any) {
	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	if len(f.DriverIDs) > 0 {
		where = append(where, "driver_id = ANY("+arg(f.DriverIDs)+")")
	}
	if len(f.Statuses) > 0 {
		where = append(where, "status = ANY("+arg(statusStrings(f.Statuses))+")")
	}
	if len(f.ExcludeStatuses) > 0 {
		where = append(where, "NOT (status = ANY("+arg(statusStrings(f.ExcludeStatuses))+"))")
	}
	if f.CustomerPhone != "" {
		where = append(where, "customer_phone = "+arg(f.CustomerPhone))
	}
	if f.CreatedFrom != nil {
		where = append(where, "created_at >= "+arg(*f.CreatedFrom))
	}
	if f.CreatedTo != nil {
		where = append(where, "created_at < "+arg(*f.CreatedTo))
	}

	if len(where) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(where, " AND "), args
}

func bookingArgs(b *booking.Booking) []any {
	var reason *string
	var cancelledAt *time.Time
	if b.Cancellation != nil {
		reason = &b.Cancellation.Reason
		cancelledAt = &b.Cancellation.CancelledAt
	}
	var otp *string
	if b.Verification.OTP != "" {
		otp = &b.Verification.OTP
	}
	return []any{
		b.ID, b.AccessToken, b.DriverID,
		b.Customer.Phone, b.Customer.Name, b.Customer.Email,
		b.Vehicle.Type.String(), b.Vehicle.Number, b.Vehicle.Model, b.Vehicle.Color,
		nonNil(b.Vehicle.ImageRefs), b.Vehicle.HasValuables, nonNil(b.Vehicle.Valuables),
		b.Parking.StartTime, b.Parking.EstimatedDurationMinutes, b.Parking.ActualEndTime,
		b.Status.String(), b.Recall.RequestedAt, b.Recall.EstimatedArrivalMinutes, b.Recall.ArrivedAt,
		otp, b.Verification.OTPExpiry, b.Verification.Verified,
		string(b.Payment.Method), b.Payment.Amount, string(b.Payment.Status), b.Payment.PaidAt, string(b.PaymentStatus),
		b.Location.ParkingSpot, b.Location.Venue, b.Notes,
		reason, cancelledAt,
		b.CreatedAt, b.UpdatedAt,
	}
}

func scanBooking(row pgx.Row) (*booking.Booking, error) {
	var (
		b                                        booking.Booking
		vehicleType, status                      string
		paymentMethod, paymentState, paymentFlag string
		otp, reason                              *string
		cancelledAt                              *time.Time
	)
	err := row.Scan(
		&b.ID, &b.AccessToken, &b.DriverID,
		&b.Customer.Phone, &b.Customer.Name, &b.Customer.Email,
		&vehicleType, &b.Vehicle.Number, &b.Vehicle.Model, &b.Vehicle.Color,
		&b.Vehicle.ImageRefs, &b.Vehicle.HasValuables, &b.Vehicle.Valuables,
		&b.Parking.StartTime, &b.Parking.EstimatedDurationMinutes, &b.Parking.ActualEndTime,
		&status, &b.Recall.RequestedAt, &b.Recall.EstimatedArrivalMinutes, &b.Recall.ArrivedAt,
		&otp, &b.Verification.OTPExpiry, &b.Verification.Verified,
		&paymentMethod, &b.Payment.Amount, &paymentState, &b.Payment.PaidAt, &paymentFlag,
		&b.Location.ParkingSpot, &b.Location.Venue, &b.Notes,
		&reason, &cancelledAt,
		&b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	b.Vehicle.Type = booking.VehicleType(vehicleType)
	b.Status = booking.Status(status)
	b.Payment.Method = booking.PaymentMethod(paymentMethod)
	b.Payment.Status = booking.PaymentState(paymentState)
	b.PaymentStatus = booking.PaymentStatus(paymentFlag)
	if otp != nil {
		b.Verification.OTP = *otp
	}
	if cancelledAt != nil {
		c := booking.Cancellation{CancelledAt: cancelledAt.UTC()}
		if reason != nil {
			c.Reason = *reason
		}
		b.Cancellation = &c
	}
	return &b, nil
}

func notFound(err error, op string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return booking.ErrNotFound
	}
	return fmt.Errorf("%s: %w", op, err)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

func statusStrings(in []booking.Status) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = s.String()
	}
	return out
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
