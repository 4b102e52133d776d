package service

import (
	"testing"

	"github.com/aditya/go-boleia/internal/models"
)

func TestQuoteBooking(t *testing.T) {
	ps := NewPricingService()

	tests := []struct {
		name         string
		pricePerSeat float64
		seats        int
		want         float64
	}{
		{"Single seat", 1500, 1, 1500},
		{"Three seats", 1250.5, 3, 3751.5},
		{"Rounds to cents", 0.333, 3, 1},
		{"Free ride", 0, 2, 0},
		{"No seats", 800, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ride := &models.Ride{PricePerSeat: tt.pricePerSeat}
			if got := ps.QuoteBooking(ride, tt.seats); got != tt.want {
				t.Errorf("QuoteBooking() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRideEarnings(t *testing.T) {
	ps := NewPricingService()
	ride := &models.Ride{PricePerSeat: 900, CapacitySeats: 4, AvailableSeats: 1}
	if got := ps.RideEarnings(ride); got != 2700 {
		t.Errorf("RideEarnings() = %v, want 2700", got)
	}
}
