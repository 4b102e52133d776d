package models

import (
	"time"
)

// Booking status constants
const (
	BookingStatusPending   = "pending"
	BookingStatusConfirmed = "confirmed"
	BookingStatusCancelled = "cancelled"
	BookingStatusCompleted = "completed"
)

// Valid booking state transitions
var ValidBookingTransitions = map[string][]string{
	BookingStatusPending:   {BookingStatusConfirmed, BookingStatusCancelled},
	BookingStatusConfirmed: {BookingStatusCompleted, BookingStatusCancelled},
	BookingStatusCancelled: {},
	BookingStatusCompleted: {},
}

// Booking is a passenger's hold on seats of one ride. Every non-cancelled
// booking accounts for SeatsRequested seats missing from the ride's
// available count.
type Booking struct {
	ID             string    `db:"id" json:"id"`
	RideID         string    `db:"ride_id" json:"ride_id"`
	PassengerID    string    `db:"passenger_id" json:"passenger_id"`
	SeatsRequested int       `db:"seats_requested" json:"seats_requested"`
	TotalPrice     float64   `db:"total_price" json:"total_price"`
	Status         string    `db:"status" json:"status"`
	IdempotencyKey *string   `db:"idempotency_key" json:"-"`
	CancelReason   *string   `db:"cancel_reason" json:"cancel_reason,omitempty"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

type CreateBookingRequest struct {
	RideID         string `json:"ride_id" validate:"required,uuid"`
	PassengerID    string `json:"passenger_id" validate:"required,uuid"`
	SeatsRequested int    `json:"seats_requested" validate:"required,min=1,max=60"`
}

type CancelBookingRequest struct {
	Reason string `json:"reason,omitempty" validate:"max=500"`
}

// SeatChange is emitted after a committed reserve or release.
type SeatChange struct {
	RideID         string    `json:"ride_id"`
	Delta          int       `json:"delta"`
	AvailableSeats int       `json:"available_seats"`
	CapacitySeats  int       `json:"capacity_seats,omitempty"`
	At             time.Time `json:"at"`
}

// CanTransitionTo checks if a booking can transition to a new status
func (b *Booking) CanTransitionTo(newStatus string) bool {
	return canTransition(ValidBookingTransitions, b.Status, newStatus)
}

// HoldsSeats reports whether the booking still counts against the ride.
func (b *Booking) HoldsSeats() bool {
	return b.Status != BookingStatusCancelled
}
