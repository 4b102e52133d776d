package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	apperrors "github.com/aditya/go-boleia/internal/errors"
	"github.com/aditya/go-boleia/internal/logger"
	"github.com/aditya/go-boleia/internal/models"
	"github.com/aditya/go-boleia/internal/region"
	"github.com/aditya/go-boleia/internal/repository"
	"github.com/aditya/go-boleia/pkg/utils"
	"go.uber.org/zap"
)

type RideService interface {
	CreateRide(ctx context.Context, req *models.CreateRideRequest) (*models.Ride, error)
	GetRide(ctx context.Context, id string) (*models.Ride, error)
	UpdateRide(ctx context.Context, id, driverID string, req *models.UpdateRideRequest) (*models.Ride, error)
	CancelRide(ctx context.Context, id, driverID string) (*models.Ride, error)
	CompleteRide(ctx context.Context, id, driverID string) (*models.Ride, error)
	ListDriverRides(ctx context.Context, driverID string, limit int) ([]*models.Ride, error)
	DriverStats(ctx context.Context, driverID string) (*models.DriverStats, error)
	CheckAvailability(ctx context.Context, id string, seats int) (*models.AvailabilityResponse, error)
}

type rideService struct {
	rideRepo       repository.RideRepository
	classifier     *region.Classifier
	pricingService PricingService
	now            func() time.Time
}

func NewRideService(
	rideRepo repository.RideRepository,
	classifier *region.Classifier,
	pricingService PricingService,
) RideService {
	return &rideService{
		rideRepo:       rideRepo,
		classifier:     classifier,
		pricingService: pricingService,
		now:            time.Now,
	}
}

func (s *rideService) CreateRide(ctx context.Context, req *models.CreateRideRequest) (*models.Ride, error) {
	if !req.DepartureAt.After(s.now()) {
		return nil, apperrors.BadRequest("departure_at must be in the future")
	}
	if req.CapacitySeats < 1 {
		return nil, apperrors.ErrInvalidSeatCount
	}

	ride := &models.Ride{
		DriverID:          req.DriverID,
		OriginText:        strings.TrimSpace(req.Origin),
		DestinationText:   strings.TrimSpace(req.Destination),
		OriginRegion:      s.classifier.Classify(req.Origin),
		DestinationRegion: s.classifier.Classify(req.Destination),
		DepartureAt:       req.DepartureAt.UTC(),
		CapacitySeats:     req.CapacitySeats,
		AvailableSeats:    req.CapacitySeats,
		PricePerSeat:      req.PricePerSeat,
		Status:            models.RideStatusOpen,
	}
	if req.VehicleType != "" {
		ride.VehicleType = &req.VehicleType
	}

	if err := s.rideRepo.Create(ctx, ride); err != nil {
		return nil, fmt.Errorf("create ride: %w", err)
	}

	logger.InfoContext(ctx, "ride created",
		zap.String("ride_id", ride.ID),
		zap.String("origin_region", ride.OriginRegion.Key()),
		zap.String("destination_region", ride.DestinationRegion.Key()),
		zap.Int("capacity", ride.CapacitySeats),
	)
	return ride, nil
}

func (s *rideService) GetRide(ctx context.Context, id string) (*models.Ride, error) {
	if !utils.IsValidUUID(id) {
		return nil, apperrors.ErrRideNotFound
	}
	ride, err := s.rideRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if ride == nil {
		return nil, apperrors.ErrRideNotFound
	}
	return ride, nil
}

func (s *rideService) UpdateRide(ctx context.Context, id, driverID string, req *models.UpdateRideRequest) (*models.Ride, error) {
	ride, err := s.ownedRide(ctx, id, driverID)
	if err != nil {
		return nil, err
	}
	if !ride.IsBookable() {
		return nil, apperrors.ErrRideNotOpen
	}

	if req.Origin != nil {
		ride.OriginText = strings.TrimSpace(*req.Origin)
		ride.OriginRegion = s.classifier.Classify(*req.Origin)
	}
	if req.Destination != nil {
		ride.DestinationText = strings.TrimSpace(*req.Destination)
		ride.DestinationRegion = s.classifier.Classify(*req.Destination)
	}
	if req.DepartureAt != nil {
		if !req.DepartureAt.After(s.now()) {
			return nil, apperrors.BadRequest("departure_at must be in the future")
		}
		ride.DepartureAt = req.DepartureAt.UTC()
	}
	if req.PricePerSeat != nil {
		ride.PricePerSeat = *req.PricePerSeat
	}
	if req.VehicleType != nil {
		ride.VehicleType = req.VehicleType
	}

	updated, err := s.rideRepo.Update(ctx, ride)
	if err != nil {
		return nil, fmt.Errorf("update ride: %w", err)
	}
	if !updated {
		return nil, apperrors.ErrRideNotOpen
	}

	// Reload so the returned seat counts reflect any concurrent bookings.
	return s.GetRide(ctx, id)
}

func (s *rideService) CancelRide(ctx context.Context, id, driverID string) (*models.Ride, error) {
	return s.transition(ctx, id, driverID, models.RideStatusCancelled)
}

func (s *rideService) CompleteRide(ctx context.Context, id, driverID string) (*models.Ride, error) {
	ride, err := s.transition(ctx, id, driverID, models.RideStatusCompleted)
	if err != nil {
		return nil, err
	}
	logger.InfoContext(ctx, "ride completed",
		zap.String("ride_id", ride.ID),
		zap.Int("seats_sold", ride.SeatsTaken()),
		zap.Float64("earnings", s.pricingService.RideEarnings(ride)),
	)
	return ride, nil
}

// transition changes a ride's status. Bookings are not touched; they are
// closed through the booking workflow.
func (s *rideService) transition(ctx context.Context, id, driverID, to string) (*models.Ride, error) {
	ride, err := s.ownedRide(ctx, id, driverID)
	if err != nil {
		return nil, err
	}
	if !ride.CanTransitionTo(to) {
		return nil, apperrors.InvalidTransition(ride.Status, to)
	}

	ok, err := s.rideRepo.UpdateStatus(ctx, id, ride.Status, to)
	if err != nil {
		return nil, fmt.Errorf("update ride status: %w", err)
	}
	if !ok {
		current, err := s.GetRide(ctx, id)
		if err != nil {
			return nil, err
		}
		return nil, apperrors.InvalidTransition(current.Status, to)
	}

	return s.GetRide(ctx, id)
}

func (s *rideService) ownedRide(ctx context.Context, id, driverID string) (*models.Ride, error) {
	ride, err := s.GetRide(ctx, id)
	if err != nil {
		return nil, err
	}
	if !utils.SameID(ride.DriverID, driverID) {
		return nil, apperrors.ErrNotRideOwner
	}
	return ride, nil
}

func (s *rideService) ListDriverRides(ctx context.Context, driverID string, limit int) ([]*models.Ride, error) {
	if !utils.IsValidUUID(driverID) {
		return nil, apperrors.BadRequest("invalid driver id")
	}
	return s.rideRepo.ListByDriver(ctx, driverID, limit)
}

func (s *rideService) DriverStats(ctx context.Context, driverID string) (*models.DriverStats, error) {
	if !utils.IsValidUUID(driverID) {
		return nil, apperrors.BadRequest("invalid driver id")
	}
	return s.rideRepo.DriverStats(ctx, driverID)
}

// CheckAvailability is a read-only hint. Only Reserve can guarantee seats.
func (s *rideService) CheckAvailability(ctx context.Context, id string, seats int) (*models.AvailabilityResponse, error) {
	if seats < 1 {
		return nil, apperrors.ErrInvalidSeatCount
	}
	ride, err := s.GetRide(ctx, id)
	if err != nil {
		return nil, err
	}
	return &models.AvailabilityResponse{
		RideID:         ride.ID,
		Available:      ride.IsBookable() && ride.AvailableSeats >= seats,
		AvailableSeats: ride.AvailableSeats,
		Status:         ride.Status,
	}, nil
}
