package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	apperrors "github.com/aditya/go-boleia/internal/errors"
	"github.com/aditya/go-boleia/internal/events"
	"github.com/aditya/go-boleia/internal/models"
	"github.com/aditya/go-boleia/internal/observability"
	"github.com/aditya/go-boleia/internal/repository"
	"github.com/aditya/go-boleia/pkg/utils"
	"github.com/jmoiron/sqlx"
)

// SeatAllocator is the only writer of a ride's available seat count.
// Each call is one conditional row update; there is no in-process lock and
// no retry, so a timeout is reported as a failure.
type SeatAllocator interface {
	Reserve(ctx context.Context, rideID string, seats int) (*models.SeatChange, error)
	Release(ctx context.Context, rideID string, seats int) (*models.SeatChange, error)
	// WithTx binds the allocator to a transaction. Bound allocators do not
	// publish; the caller publishes after commit.
	WithTx(q sqlx.ExtContext) SeatAllocator
}

type seatAllocator struct {
	store     repository.SeatStore
	publisher events.Publisher
	timeout   time.Duration
	q         sqlx.ExtContext
}

func NewSeatAllocator(store repository.SeatStore, publisher events.Publisher, timeout time.Duration) SeatAllocator {
	return &seatAllocator{store: store, publisher: publisher, timeout: timeout}
}

func (a *seatAllocator) WithTx(q sqlx.ExtContext) SeatAllocator {
	bound := *a
	bound.q = q
	return &bound
}

func (a *seatAllocator) Reserve(ctx context.Context, rideID string, seats int) (*models.SeatChange, error) {
	if seats < 1 {
		return nil, apperrors.ErrInvalidSeatCount
	}
	if !utils.IsValidUUID(rideID) {
		return nil, apperrors.ErrRideNotFound
	}

	ctx, cancel := a.withTimeout(ctx)
	defer cancel()
	defer observe("reserve", time.Now())

	counts, err := a.store.ReserveSeats(ctx, a.q, rideID, seats)
	if err != nil {
		if repository.IsCheckViolation(err) {
			return nil, a.outcome("reserve", apperrors.ErrInsufficientCapacity)
		}
		return nil, a.outcome("reserve", fmt.Errorf("reserve %d seats on ride %s: %w", seats, rideID, err))
	}
	if counts == nil {
		return nil, a.outcome("reserve", a.explainRejection(ctx, rideID))
	}

	change := &models.SeatChange{
		RideID:         rideID,
		Delta:          -seats,
		AvailableSeats: counts.Available,
		CapacitySeats:  counts.Capacity,
		At:             time.Now().UTC(),
	}
	a.outcome("reserve", nil)
	a.publish(ctx, change)
	return change, nil
}

func (a *seatAllocator) Release(ctx context.Context, rideID string, seats int) (*models.SeatChange, error) {
	if seats < 1 {
		return nil, apperrors.ErrInvalidSeatCount
	}
	if !utils.IsValidUUID(rideID) {
		return nil, apperrors.ErrRideNotFound
	}

	ctx, cancel := a.withTimeout(ctx)
	defer cancel()
	defer observe("release", time.Now())

	counts, err := a.store.ReleaseSeats(ctx, a.q, rideID, seats)
	if err != nil {
		return nil, a.outcome("release", fmt.Errorf("release %d seats on ride %s: %w", seats, rideID, err))
	}
	if counts == nil {
		return nil, a.outcome("release", apperrors.ErrRideNotFound)
	}

	change := &models.SeatChange{
		RideID:         rideID,
		Delta:          seats,
		AvailableSeats: counts.Available,
		CapacitySeats:  counts.Capacity,
		At:             time.Now().UTC(),
	}
	a.outcome("release", nil)
	a.publish(ctx, change)
	return change, nil
}

// explainRejection reads the ride after a failed conditional update to
// tell a missing ride from a closed one from a full one.
func (a *seatAllocator) explainRejection(ctx context.Context, rideID string) error {
	ride, err := a.store.GetByIDWith(ctx, a.q, rideID)
	if err != nil {
		return fmt.Errorf("load ride %s after rejected reserve: %w", rideID, err)
	}
	switch {
	case ride == nil:
		return apperrors.ErrRideNotFound
	case !ride.IsBookable():
		return apperrors.ErrRideNotOpen
	default:
		return apperrors.ErrInsufficientCapacity
	}
}

func (a *seatAllocator) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if a.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, a.timeout)
}

func (a *seatAllocator) publish(ctx context.Context, change *models.SeatChange) {
	if a.q != nil {
		return
	}
	events.Publish(context.WithoutCancel(ctx), a.publisher, *change)
}

func (a *seatAllocator) outcome(op string, err error) error {
	label := "ok"
	switch {
	case err == nil:
	case errors.Is(err, apperrors.ErrInsufficientCapacity):
		label = "insufficient_capacity"
	case errors.Is(err, apperrors.ErrRideNotOpen):
		label = "ride_not_open"
	case errors.Is(err, apperrors.ErrRideNotFound):
		label = "ride_not_found"
	default:
		label = "error"
	}
	observability.SeatOperations.WithLabelValues(op, label).Inc()
	return err
}

func observe(op string, start time.Time) {
	observability.SeatOperationLatency.WithLabelValues(op).Observe(time.Since(start).Seconds())
}
