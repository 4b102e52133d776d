package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestFromError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantCode   string
		wantStatus int
	}{
		{"Capacity", ErrInsufficientCapacity, "insufficient_capacity", http.StatusConflict},
		{"Wrapped capacity", fmt.Errorf("reserve ride r1: %w", ErrInsufficientCapacity), "insufficient_capacity", http.StatusConflict},
		{"Not open", ErrRideNotOpen, "ride_not_open", http.StatusConflict},
		{"Ride missing", ErrRideNotFound, "ride_not_found", http.StatusNotFound},
		{"Booking missing", ErrBookingNotFound, "booking_not_found", http.StatusNotFound},
		{"Seat count", ErrInvalidSeatCount, "invalid_seat_count", http.StatusBadRequest},
		{"Owner", ErrNotRideOwner, "not_ride_owner", http.StatusForbidden},
		{"Transition", InvalidTransition("completed", "cancelled"), "invalid_transition", http.StatusConflict},
		{"API error passes through", BadRequest("bad date"), "bad_request", http.StatusBadRequest},
		{"Store failure", errors.New("dial tcp: connection refused"), "internal_error", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FromError(tt.err)
			if got.Code != tt.wantCode || got.StatusCode != tt.wantStatus {
				t.Errorf("FromError() = (%s, %d), want (%s, %d)", got.Code, got.StatusCode, tt.wantCode, tt.wantStatus)
			}
		})
	}
}

func TestStoreFailureMessageHidden(t *testing.T) {
	got := FromError(errors.New("pq: password authentication failed"))
	if got.Message != "internal server error" {
		t.Errorf("store error leaked: %q", got.Message)
	}
}

func TestInvalidTransitionUnwraps(t *testing.T) {
	if !errors.Is(InvalidTransition("a", "b"), ErrInvalidTransition) {
		t.Error("InvalidTransition should match ErrInvalidTransition")
	}
}

func TestIsBusiness(t *testing.T) {
	if !IsBusiness(ErrInsufficientCapacity) {
		t.Error("capacity rejection is a business outcome")
	}
	if IsBusiness(errors.New("timeout")) {
		t.Error("timeouts are not business outcomes")
	}
}
