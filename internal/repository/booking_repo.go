package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/aditya/go-boleia/internal/models"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type BookingRepository interface {
	Create(ctx context.Context, q sqlx.ExtContext, booking *models.Booking) error
	GetByID(ctx context.Context, id string) (*models.Booking, error)
	GetByIdempotencyKey(ctx context.Context, key string) (*models.Booking, error)
	ListByPassenger(ctx context.Context, passengerID string, limit int) ([]*models.Booking, error)
	ListByRide(ctx context.Context, rideID string) ([]*models.Booking, error)
	UpdateStatus(ctx context.Context, q sqlx.ExtContext, id, from, to string, reason *string) (bool, error)
	SeatsHeld(ctx context.Context, rideID string) (int, error)
}

type bookingRepository struct {
	db *sqlx.DB
}

func NewBookingRepository(db *sqlx.DB) BookingRepository {
	return &bookingRepository{db: db}
}

func (r *bookingRepository) ext(q sqlx.ExtContext) sqlx.ExtContext {
	if q == nil {
		return r.db
	}
	return q
}

const bookingColumns = `id, ride_id, passenger_id, seats_requested, total_price, status,
	idempotency_key, cancel_reason, created_at, updated_at`

func (r *bookingRepository) Create(ctx context.Context, q sqlx.ExtContext, booking *models.Booking) error {
	if booking.ID == "" {
		booking.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	booking.CreatedAt = now
	booking.UpdatedAt = now

	query := `
		INSERT INTO bookings (id, ride_id, passenger_id, seats_requested, total_price, status,
			idempotency_key, cancel_reason, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := r.ext(q).ExecContext(ctx, query,
		booking.ID, booking.RideID, booking.PassengerID, booking.SeatsRequested, booking.TotalPrice,
		booking.Status, booking.IdempotencyKey, booking.CancelReason, booking.CreatedAt, booking.UpdatedAt)
	return err
}

func (r *bookingRepository) GetByID(ctx context.Context, id string) (*models.Booking, error) {
	return r.getOne(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, id)
}

func (r *bookingRepository) GetByIdempotencyKey(ctx context.Context, key string) (*models.Booking, error) {
	return r.getOne(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE idempotency_key = $1`, key)
}

func (r *bookingRepository) getOne(ctx context.Context, query string, arg string) (*models.Booking, error) {
	var booking models.Booking
	err := r.db.GetContext(ctx, &booking, query, arg)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &booking, nil
}

func (r *bookingRepository) ListByPassenger(ctx context.Context, passengerID string, limit int) ([]*models.Booking, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE passenger_id = $1 ORDER BY created_at DESC LIMIT $2`
	bookings := []*models.Booking{}
	if err := r.db.SelectContext(ctx, &bookings, query, passengerID, limit); err != nil {
		return nil, err
	}
	return bookings, nil
}

func (r *bookingRepository) ListByRide(ctx context.Context, rideID string) ([]*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE ride_id = $1 ORDER BY created_at ASC`
	bookings := []*models.Booking{}
	if err := r.db.SelectContext(ctx, &bookings, query, rideID); err != nil {
		return nil, err
	}
	return bookings, nil
}

// UpdateStatus moves a booking from one status to another only if it is
// still in from. It reports false when another request got there first.
func (r *bookingRepository) UpdateStatus(ctx context.Context, q sqlx.ExtContext, id, from, to string, reason *string) (bool, error) {
	query := `
		UPDATE bookings
		SET status = $1, cancel_reason = COALESCE($2, cancel_reason), updated_at = $3
		WHERE id = $4 AND status = $5
	`
	res, err := r.ext(q).ExecContext(ctx, query, to, reason, time.Now().UTC(), id, from)
	if err != nil {
		return false, err
	}
	return affectedOne(res)
}

func (r *bookingRepository) SeatsHeld(ctx context.Context, rideID string) (int, error) {
	var held int
	query := `SELECT COALESCE(SUM(seats_requested), 0) FROM bookings WHERE ride_id = $1 AND status <> $2`
	err := r.db.GetContext(ctx, &held, query, rideID, models.BookingStatusCancelled)
	return held, err
}
