package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	apperrors "github.com/aditya/go-boleia/internal/errors"
	"github.com/aditya/go-boleia/internal/events"
	"github.com/aditya/go-boleia/internal/logger"
	"github.com/aditya/go-boleia/internal/models"
	"github.com/aditya/go-boleia/internal/observability"
	"github.com/aditya/go-boleia/internal/repository"
	"github.com/aditya/go-boleia/pkg/utils"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// TxRunner runs fn in one database transaction.
type TxRunner interface {
	WithinTx(ctx context.Context, fn func(q sqlx.ExtContext) error) error
}

type BookingService interface {
	CreateBooking(ctx context.Context, req *models.CreateBookingRequest, idempotencyKey string) (*models.Booking, error)
	GetBooking(ctx context.Context, id string) (*models.Booking, error)
	ListPassengerBookings(ctx context.Context, passengerID string, limit int) ([]*models.Booking, error)
	ListRideBookings(ctx context.Context, rideID string) ([]*models.Booking, error)
	ConfirmBooking(ctx context.Context, id string) (*models.Booking, error)
	CancelBooking(ctx context.Context, id string, req *models.CancelBookingRequest) (*models.Booking, error)
	CompleteBooking(ctx context.Context, id string) (*models.Booking, error)
}

type bookingService struct {
	tx             TxRunner
	bookingRepo    repository.BookingRepository
	rideRepo       repository.RideRepository
	allocator      SeatAllocator
	pricingService PricingService
	publisher      events.Publisher
}

func NewBookingService(
	tx TxRunner,
	bookingRepo repository.BookingRepository,
	rideRepo repository.RideRepository,
	allocator SeatAllocator,
	pricingService PricingService,
	publisher events.Publisher,
) BookingService {
	return &bookingService{
		tx:             tx,
		bookingRepo:    bookingRepo,
		rideRepo:       rideRepo,
		allocator:      allocator,
		pricingService: pricingService,
		publisher:      publisher,
	}
}

// CreateBooking reserves seats and records the booking in one transaction.
// A repeated idempotency key returns the booking created the first time.
func (s *bookingService) CreateBooking(ctx context.Context, req *models.CreateBookingRequest, idempotencyKey string) (*models.Booking, error) {
	idempotencyKey = strings.TrimSpace(idempotencyKey)
	if idempotencyKey != "" {
		existing, err := s.bookingRepo.GetByIdempotencyKey(ctx, idempotencyKey)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return sameRequest(existing, req)
		}
	}

	if req.SeatsRequested < 1 {
		return nil, apperrors.ErrInvalidSeatCount
	}
	if !utils.IsValidUUID(req.RideID) {
		return nil, apperrors.ErrRideNotFound
	}

	ride, err := s.rideRepo.GetByID(ctx, req.RideID)
	if err != nil {
		return nil, err
	}
	if ride == nil {
		return nil, apperrors.ErrRideNotFound
	}
	if utils.SameID(ride.DriverID, req.PassengerID) {
		return nil, apperrors.ErrOwnRide
	}

	booking := &models.Booking{
		ID:             utils.GenerateID(),
		RideID:         req.RideID,
		PassengerID:    req.PassengerID,
		SeatsRequested: req.SeatsRequested,
		TotalPrice:     s.pricingService.QuoteBooking(ride, req.SeatsRequested),
		Status:         models.BookingStatusPending,
	}
	if idempotencyKey != "" {
		booking.IdempotencyKey = &idempotencyKey
	}

	var change *models.SeatChange
	err = s.tx.WithinTx(ctx, func(q sqlx.ExtContext) error {
		var err error
		change, err = s.allocator.WithTx(q).Reserve(ctx, req.RideID, req.SeatsRequested)
		if err != nil {
			return err
		}
		return s.bookingRepo.Create(ctx, q, booking)
	})
	if err != nil {
		if idempotencyKey != "" && repository.IsUniqueViolation(err) {
			// Lost a race with a request carrying the same key; its
			// transaction holds the seats.
			existing, getErr := s.bookingRepo.GetByIdempotencyKey(ctx, idempotencyKey)
			if getErr == nil && existing != nil {
				return sameRequest(existing, req)
			}
		}
		return nil, err
	}

	events.Publish(context.WithoutCancel(ctx), s.publisher, *change)
	observability.BookingTransitions.WithLabelValues(models.BookingStatusPending).Inc()
	logger.InfoContext(ctx, "booking created",
		zap.String("booking_id", booking.ID),
		zap.String("ride_id", booking.RideID),
		zap.Int("seats", booking.SeatsRequested),
		zap.Int("available_seats", change.AvailableSeats),
	)
	return booking, nil
}

func sameRequest(existing *models.Booking, req *models.CreateBookingRequest) (*models.Booking, error) {
	if existing.RideID != req.RideID || existing.PassengerID != req.PassengerID || existing.SeatsRequested != req.SeatsRequested {
		return nil, apperrors.ErrIdempotencyConflict
	}
	return existing, nil
}

func (s *bookingService) GetBooking(ctx context.Context, id string) (*models.Booking, error) {
	if !utils.IsValidUUID(id) {
		return nil, apperrors.ErrBookingNotFound
	}
	booking, err := s.bookingRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if booking == nil {
		return nil, apperrors.ErrBookingNotFound
	}
	return booking, nil
}

func (s *bookingService) ListPassengerBookings(ctx context.Context, passengerID string, limit int) ([]*models.Booking, error) {
	if !utils.IsValidUUID(passengerID) {
		return nil, apperrors.BadRequest("invalid passenger id")
	}
	return s.bookingRepo.ListByPassenger(ctx, passengerID, limit)
}

func (s *bookingService) ListRideBookings(ctx context.Context, rideID string) ([]*models.Booking, error) {
	if !utils.IsValidUUID(rideID) {
		return nil, apperrors.ErrRideNotFound
	}
	return s.bookingRepo.ListByRide(ctx, rideID)
}

func (s *bookingService) ConfirmBooking(ctx context.Context, id string) (*models.Booking, error) {
	return s.transition(ctx, id, models.BookingStatusConfirmed, nil)
}

func (s *bookingService) CompleteBooking(ctx context.Context, id string) (*models.Booking, error) {
	return s.transition(ctx, id, models.BookingStatusCompleted, nil)
}

func (s *bookingService) transition(ctx context.Context, id, to string, reason *string) (*models.Booking, error) {
	booking, err := s.GetBooking(ctx, id)
	if err != nil {
		return nil, err
	}
	if !booking.CanTransitionTo(to) {
		return nil, apperrors.InvalidTransition(booking.Status, to)
	}

	ok, err := s.bookingRepo.UpdateStatus(ctx, nil, id, booking.Status, to, reason)
	if err != nil {
		return nil, fmt.Errorf("update booking status: %w", err)
	}
	if !ok {
		return nil, s.staleTransition(ctx, id, to)
	}

	observability.BookingTransitions.WithLabelValues(to).Inc()
	return s.GetBooking(ctx, id)
}

// CancelBooking flips the status and gives the seats back in the same
// transaction. The conditional status update makes a second cancel a
// no-op, so seats are released at most once per booking.
func (s *bookingService) CancelBooking(ctx context.Context, id string, req *models.CancelBookingRequest) (*models.Booking, error) {
	booking, err := s.GetBooking(ctx, id)
	if err != nil {
		return nil, err
	}
	if !booking.CanTransitionTo(models.BookingStatusCancelled) {
		return nil, apperrors.InvalidTransition(booking.Status, models.BookingStatusCancelled)
	}

	var reason *string
	if req != nil && strings.TrimSpace(req.Reason) != "" {
		r := strings.TrimSpace(req.Reason)
		reason = &r
	}

	var change *models.SeatChange
	errStale := errors.New("booking changed concurrently")
	err = s.tx.WithinTx(ctx, func(q sqlx.ExtContext) error {
		ok, err := s.bookingRepo.UpdateStatus(ctx, q, id, booking.Status, models.BookingStatusCancelled, reason)
		if err != nil {
			return fmt.Errorf("cancel booking: %w", err)
		}
		if !ok {
			return errStale
		}
		change, err = s.allocator.WithTx(q).Release(ctx, booking.RideID, booking.SeatsRequested)
		return err
	})
	if errors.Is(err, errStale) {
		return nil, s.staleTransition(ctx, id, models.BookingStatusCancelled)
	}
	if err != nil {
		return nil, err
	}

	events.Publish(context.WithoutCancel(ctx), s.publisher, *change)
	observability.BookingTransitions.WithLabelValues(models.BookingStatusCancelled).Inc()
	logger.InfoContext(ctx, "booking cancelled",
		zap.String("booking_id", id),
		zap.String("ride_id", booking.RideID),
		zap.Int("seats_released", booking.SeatsRequested),
		zap.Int("available_seats", change.AvailableSeats),
	)
	return s.GetBooking(ctx, id)
}

func (s *bookingService) staleTransition(ctx context.Context, id, to string) error {
	current, err := s.GetBooking(ctx, id)
	if err != nil {
		return err
	}
	return apperrors.InvalidTransition(current.Status, to)
}
