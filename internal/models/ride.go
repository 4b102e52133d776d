package models

import (
	"time"

	"github.com/aditya/go-boleia/internal/matching"
	"github.com/aditya/go-boleia/internal/region"
)

// Ride status constants
const (
	RideStatusOpen      = "open"
	RideStatusCancelled = "cancelled"
	RideStatusCompleted = "completed"
)

// Valid ride state transitions
var ValidRideTransitions = map[string][]string{
	RideStatusOpen:      {RideStatusCancelled, RideStatusCompleted},
	RideStatusCancelled: {},
	RideStatusCompleted: {},
}

// Ride is a driver's offer of seats on one intercity trip. Regions are
// derived from the free-text endpoints when the ride is written and are
// never taken from the client.
type Ride struct {
	ID                string        `db:"id" json:"id"`
	DriverID          string        `db:"driver_id" json:"driver_id"`
	OriginText        string        `db:"origin_text" json:"origin"`
	DestinationText   string        `db:"destination_text" json:"destination"`
	OriginRegion      region.Region `db:"origin_region" json:"origin_region"`
	DestinationRegion region.Region `db:"destination_region" json:"destination_region"`
	DepartureAt       time.Time     `db:"departure_at" json:"departure_at"`
	CapacitySeats     int           `db:"capacity_seats" json:"capacity_seats"`
	AvailableSeats    int           `db:"available_seats" json:"available_seats"`
	PricePerSeat      float64       `db:"price_per_seat" json:"price_per_seat"`
	VehicleType       *string       `db:"vehicle_type" json:"vehicle_type,omitempty"`
	Status            string        `db:"status" json:"status"`
	CreatedAt         time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time     `db:"updated_at" json:"updated_at"`
}

type CreateRideRequest struct {
	DriverID      string    `json:"driver_id" validate:"required,uuid"`
	Origin        string    `json:"origin" validate:"required,max=200"`
	Destination   string    `json:"destination" validate:"required,max=200"`
	DepartureAt   time.Time `json:"departure_at" validate:"required"`
	CapacitySeats int       `json:"capacity_seats" validate:"required,min=1,max=60"`
	PricePerSeat  float64   `json:"price_per_seat" validate:"gte=0"`
	VehicleType   string    `json:"vehicle_type,omitempty" validate:"omitempty,max=50"`
}

// UpdateRideRequest never carries seat counts: capacity is fixed at
// creation and availability only moves through the seat allocator.
type UpdateRideRequest struct {
	Origin       *string    `json:"origin,omitempty" validate:"omitempty,min=1,max=200"`
	Destination  *string    `json:"destination,omitempty" validate:"omitempty,min=1,max=200"`
	DepartureAt  *time.Time `json:"departure_at,omitempty"`
	PricePerSeat *float64   `json:"price_per_seat,omitempty" validate:"omitempty,gte=0"`
	VehicleType  *string    `json:"vehicle_type,omitempty" validate:"omitempty,max=50"`
}

// SearchCriteria is a passenger query. Empty From/To mean "any".
type SearchCriteria struct {
	From     string     `json:"from,omitempty" validate:"max=200"`
	To       string     `json:"to,omitempty" validate:"max=200"`
	Date     *time.Time `json:"date,omitempty"`
	MinSeats int        `json:"min_seats,omitempty" validate:"gte=0,max=60"`
	MaxPrice *float64   `json:"max_price,omitempty" validate:"omitempty,gte=0"`
}

// RideFilter is the coarse storage-side filter for open rides.
type RideFilter struct {
	DepartingFrom     time.Time
	MinSeats          int
	MaxPrice          *float64
	OriginRegion      *region.Region
	DestinationRegion *region.Region
	Limit             int
}

// MatchResult is a ride annotated with its compatibility against a query.
type MatchResult struct {
	Ride                       *Ride          `json:"ride"`
	Score                      int            `json:"score"`
	Tag                        matching.Tag   `json:"match_type"`
	PassengerOriginRegion      *region.Region `json:"passenger_origin_region,omitempty"`
	PassengerDestinationRegion *region.Region `json:"passenger_destination_region,omitempty"`
}

type SearchResponse struct {
	Results      []MatchResult `json:"results"`
	Count        int           `json:"count"`
	Ranked       bool          `json:"ranked"`
	TableVersion string        `json:"region_table_version"`
}

type DriverStats struct {
	DriverID       string  `db:"driver_id" json:"driver_id"`
	TotalRides     int     `db:"total_rides" json:"total_rides"`
	OpenRides      int     `db:"open_rides" json:"open_rides"`
	CompletedRides int     `db:"completed_rides" json:"completed_rides"`
	CancelledRides int     `db:"cancelled_rides" json:"cancelled_rides"`
	SeatsSold      int     `db:"seats_sold" json:"seats_sold"`
	TotalEarnings  float64 `db:"total_earnings" json:"total_earnings"`
}

type AvailabilityResponse struct {
	RideID         string `json:"ride_id"`
	Available      bool   `json:"available"`
	AvailableSeats int    `json:"available_seats"`
	Status         string `json:"status"`
}

// Route returns the ride's region pair for scoring.
func (r *Ride) Route() matching.Route {
	return matching.Route{Origin: r.OriginRegion, Destination: r.DestinationRegion}
}

// SeatsTaken is the number of seats held by live bookings.
func (r *Ride) SeatsTaken() int {
	return r.CapacitySeats - r.AvailableSeats
}

// CanTransitionTo checks if a ride can transition to a new status
func (r *Ride) CanTransitionTo(newStatus string) bool {
	return canTransition(ValidRideTransitions, r.Status, newStatus)
}

// IsBookable reports whether seats may still be reserved.
func (r *Ride) IsBookable() bool {
	return r.Status == RideStatusOpen
}

func canTransition(table map[string][]string, from, to string) bool {
	validNextStates, exists := table[from]
	if !exists {
		return false
	}

	for _, state := range validNextStates {
		if state == to {
			return true
		}
	}
	return false
}
