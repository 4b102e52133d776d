package service

import (
	"math"

	"github.com/aditya/go-boleia/internal/models"
)

type PricingService interface {
	// QuoteBooking prices seats at the ride's per-seat fare, rounded to cents.
	QuoteBooking(ride *models.Ride, seats int) float64
	// RideEarnings is what the driver collects for the seats currently held.
	RideEarnings(ride *models.Ride) float64
}

type pricingService struct{}

func NewPricingService() PricingService {
	return &pricingService{}
}

func (s *pricingService) QuoteBooking(ride *models.Ride, seats int) float64 {
	if seats < 1 || ride.PricePerSeat <= 0 {
		return 0
	}
	return round(ride.PricePerSeat * float64(seats))
}

func (s *pricingService) RideEarnings(ride *models.Ride) float64 {
	return s.QuoteBooking(ride, ride.SeatsTaken())
}

func round(val float64) float64 {
	return math.Round(val*100) / 100
}
