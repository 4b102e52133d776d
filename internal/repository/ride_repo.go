package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aditya/go-boleia/internal/models"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// SeatCounts is a ride's seat state right after a seat update.
type SeatCounts struct {
	Available int `db:"available_seats"`
	Capacity  int `db:"capacity_seats"`
}

// SeatStore is the narrow surface the seat allocator needs. A nil q runs
// the statement on the pool, otherwise on the given transaction.
type SeatStore interface {
	// ReserveSeats returns nil counts when the ride is missing, not open
	// or short of seats.
	ReserveSeats(ctx context.Context, q sqlx.ExtContext, id string, seats int) (*SeatCounts, error)
	// ReleaseSeats returns nil counts when the ride is missing.
	ReleaseSeats(ctx context.Context, q sqlx.ExtContext, id string, seats int) (*SeatCounts, error)
	GetByIDWith(ctx context.Context, q sqlx.ExtContext, id string) (*models.Ride, error)
}

type RideRepository interface {
	SeatStore
	Create(ctx context.Context, ride *models.Ride) error
	GetByID(ctx context.Context, id string) (*models.Ride, error)
	Update(ctx context.Context, ride *models.Ride) (bool, error)
	UpdateStatus(ctx context.Context, id, from, to string) (bool, error)
	FindOpen(ctx context.Context, filter models.RideFilter) ([]*models.Ride, error)
	ListByDriver(ctx context.Context, driverID string, limit int) ([]*models.Ride, error)
	DriverStats(ctx context.Context, driverID string) (*models.DriverStats, error)
}

type rideRepository struct {
	db *sqlx.DB
}

func NewRideRepository(db *sqlx.DB) RideRepository {
	return &rideRepository{db: db}
}

func (r *rideRepository) ext(q sqlx.ExtContext) sqlx.ExtContext {
	if q == nil {
		return r.db
	}
	return q
}

const rideColumns = `id, driver_id, origin_text, destination_text, origin_region, destination_region,
	departure_at, capacity_seats, available_seats, price_per_seat, vehicle_type, status, created_at, updated_at`

func (r *rideRepository) Create(ctx context.Context, ride *models.Ride) error {
	if ride.ID == "" {
		ride.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	ride.CreatedAt = now
	ride.UpdatedAt = now

	query := `
		INSERT INTO rides (id, driver_id, origin_text, destination_text, origin_region, destination_region,
			departure_at, capacity_seats, available_seats, price_per_seat, vehicle_type, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`
	_, err := r.db.ExecContext(ctx, query,
		ride.ID, ride.DriverID, ride.OriginText, ride.DestinationText, ride.OriginRegion, ride.DestinationRegion,
		ride.DepartureAt, ride.CapacitySeats, ride.AvailableSeats, ride.PricePerSeat, ride.VehicleType,
		ride.Status, ride.CreatedAt, ride.UpdatedAt)
	return err
}

func (r *rideRepository) GetByID(ctx context.Context, id string) (*models.Ride, error) {
	return r.GetByIDWith(ctx, nil, id)
}

func (r *rideRepository) GetByIDWith(ctx context.Context, q sqlx.ExtContext, id string) (*models.Ride, error) {
	var ride models.Ride
	query := `SELECT ` + rideColumns + ` FROM rides WHERE id = $1`
	err := sqlx.GetContext(ctx, r.ext(q), &ride, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &ride, nil
}

// Update writes the descriptive fields of an open ride. Seat counts are
// never written here.
func (r *rideRepository) Update(ctx context.Context, ride *models.Ride) (bool, error) {
	ride.UpdatedAt = time.Now().UTC()
	query := `
		UPDATE rides
		SET origin_text = $1, destination_text = $2, origin_region = $3, destination_region = $4,
			departure_at = $5, price_per_seat = $6, vehicle_type = $7, updated_at = $8
		WHERE id = $9 AND status = $10
	`
	res, err := r.db.ExecContext(ctx, query,
		ride.OriginText, ride.DestinationText, ride.OriginRegion, ride.DestinationRegion,
		ride.DepartureAt, ride.PricePerSeat, ride.VehicleType, ride.UpdatedAt,
		ride.ID, models.RideStatusOpen)
	if err != nil {
		return false, err
	}
	return affectedOne(res)
}

func (r *rideRepository) UpdateStatus(ctx context.Context, id, from, to string) (bool, error) {
	query := `UPDATE rides SET status = $1, updated_at = $2 WHERE id = $3 AND status = $4`
	res, err := r.db.ExecContext(ctx, query, to, time.Now().UTC(), id, from)
	if err != nil {
		return false, err
	}
	return affectedOne(res)
}

func (r *rideRepository) ReserveSeats(ctx context.Context, q sqlx.ExtContext, id string, seats int) (*SeatCounts, error) {
	query := `
		UPDATE rides
		SET available_seats = available_seats - $1, updated_at = NOW()
		WHERE id = $2 AND status = $3 AND available_seats >= $1
		RETURNING available_seats, capacity_seats
	`
	return r.seatUpdate(ctx, q, query, seats, id, models.RideStatusOpen)
}

func (r *rideRepository) ReleaseSeats(ctx context.Context, q sqlx.ExtContext, id string, seats int) (*SeatCounts, error) {
	query := `
		UPDATE rides
		SET available_seats = LEAST(capacity_seats, available_seats + $1), updated_at = NOW()
		WHERE id = $2
		RETURNING available_seats, capacity_seats
	`
	return r.seatUpdate(ctx, q, query, seats, id)
}

func (r *rideRepository) seatUpdate(ctx context.Context, q sqlx.ExtContext, query string, args ...interface{}) (*SeatCounts, error) {
	var counts SeatCounts
	err := sqlx.GetContext(ctx, r.ext(q), &counts, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &counts, nil
}

func (r *rideRepository) FindOpen(ctx context.Context, filter models.RideFilter) ([]*models.Ride, error) {
	conds := []string{"status = $1", "departure_at >= $2", "available_seats >= $3"}
	args := []interface{}{models.RideStatusOpen, filter.DepartingFrom, max(filter.MinSeats, 1)}

	if filter.MaxPrice != nil {
		args = append(args, *filter.MaxPrice)
		conds = append(conds, fmt.Sprintf("price_per_seat <= $%d", len(args)))
	}
	if filter.OriginRegion != nil {
		args = append(args, *filter.OriginRegion)
		conds = append(conds, fmt.Sprintf("origin_region = $%d", len(args)))
	}
	if filter.DestinationRegion != nil {
		args = append(args, *filter.DestinationRegion)
		conds = append(conds, fmt.Sprintf("destination_region = $%d", len(args)))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	args = append(args, limit)

	query := fmt.Sprintf(`SELECT %s FROM rides WHERE %s ORDER BY departure_at ASC, id ASC LIMIT $%d`,
		rideColumns, strings.Join(conds, " AND "), len(args))

	rides := []*models.Ride{}
	if err := r.db.SelectContext(ctx, &rides, query, args...); err != nil {
		return nil, err
	}
	return rides, nil
}

func (r *rideRepository) ListByDriver(ctx context.Context, driverID string, limit int) ([]*models.Ride, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT ` + rideColumns + ` FROM rides WHERE driver_id = $1 ORDER BY departure_at DESC LIMIT $2`
	rides := []*models.Ride{}
	if err := r.db.SelectContext(ctx, &rides, query, driverID, limit); err != nil {
		return nil, err
	}
	return rides, nil
}

func (r *rideRepository) DriverStats(ctx context.Context, driverID string) (*models.DriverStats, error) {
	query := `
		SELECT
			COUNT(*) AS total_rides,
			COUNT(*) FILTER (WHERE status = 'open') AS open_rides,
			COUNT(*) FILTER (WHERE status = 'completed') AS completed_rides,
			COUNT(*) FILTER (WHERE status = 'cancelled') AS cancelled_rides,
			COALESCE(SUM(capacity_seats - available_seats) FILTER (WHERE status = 'completed'), 0) AS seats_sold,
			COALESCE(SUM((capacity_seats - available_seats) * price_per_seat) FILTER (WHERE status = 'completed'), 0) AS total_earnings
		FROM rides
		WHERE driver_id = $1
	`
	var stats models.DriverStats
	if err := r.db.GetContext(ctx, &stats, query, driverID); err != nil {
		return nil, err
	}
	stats.DriverID = driverID
	return &stats, nil
}

func affectedOne(res sql.Result) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}
