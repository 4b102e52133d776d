package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors
var (
	ErrNotFound            = errors.New("resource not found")
	ErrConflict            = errors.New("resource conflict")
	ErrBadRequest          = errors.New("bad request")
	ErrForbidden           = errors.New("forbidden")
	ErrInternalServer      = errors.New("internal server error")
	ErrIdempotencyConflict = errors.New("idempotency key conflict")

	// Seat allocation outcomes
	ErrRideNotFound         = errors.New("ride not found")
	ErrRideNotOpen          = errors.New("ride is not open for booking")
	ErrInsufficientCapacity = errors.New("not enough seats available")
	ErrInvalidSeatCount     = errors.New("seat count must be at least 1")

	// Business errors
	ErrBookingNotFound   = errors.New("booking not found")
	ErrInvalidTransition = errors.New("invalid state transition")
	ErrNotRideOwner      = errors.New("ride belongs to another driver")
	ErrOwnRide           = errors.New("drivers cannot book their own ride")
)

// APIError represents a structured API error
type APIError struct {
	Code       string `json:"error"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"`
	err        error
}

func (e *APIError) Error() string {
	return e.Message
}

// Unwrap lets errors.Is see the sentinel an APIError was built from.
func (e *APIError) Unwrap() error {
	return e.err
}

// NewAPIError creates a new API error
func NewAPIError(code, message string, statusCode int) *APIError {
	return &APIError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
	}
}

func wrap(sentinel error, code string, statusCode int) *APIError {
	return &APIError{Code: code, Message: sentinel.Error(), StatusCode: statusCode, err: sentinel}
}

// Common API errors
func NotFound(resource string) *APIError {
	return NewAPIError("not_found", fmt.Sprintf("%s not found", resource), http.StatusNotFound)
}

func BadRequest(message string) *APIError {
	return NewAPIError("bad_request", message, http.StatusBadRequest)
}

func Conflict(message string) *APIError {
	return NewAPIError("conflict", message, http.StatusConflict)
}

func Forbidden(message string) *APIError {
	return NewAPIError("forbidden", message, http.StatusForbidden)
}

func InternalError(message string) *APIError {
	return NewAPIError("internal_error", message, http.StatusInternalServerError)
}

func IdempotencyConflict() *APIError {
	return NewAPIError("idempotency_conflict", "idempotency key already used with different request", http.StatusConflict)
}

func InvalidTransition(from, to string) *APIError {
	e := NewAPIError("invalid_transition", fmt.Sprintf("cannot transition from %s to %s", from, to), http.StatusConflict)
	e.err = ErrInvalidTransition
	return e
}

// FromError maps a service error onto the API envelope. Unknown errors
// become a generic 500 so store details never leak to clients.
func FromError(err error) *APIError {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}

	switch {
	case errors.Is(err, ErrInsufficientCapacity):
		return wrap(ErrInsufficientCapacity, "insufficient_capacity", http.StatusConflict)
	case errors.Is(err, ErrRideNotOpen):
		return wrap(ErrRideNotOpen, "ride_not_open", http.StatusConflict)
	case errors.Is(err, ErrRideNotFound):
		return wrap(ErrRideNotFound, "ride_not_found", http.StatusNotFound)
	case errors.Is(err, ErrBookingNotFound):
		return wrap(ErrBookingNotFound, "booking_not_found", http.StatusNotFound)
	case errors.Is(err, ErrInvalidSeatCount):
		return wrap(ErrInvalidSeatCount, "invalid_seat_count", http.StatusBadRequest)
	case errors.Is(err, ErrNotRideOwner):
		return wrap(ErrNotRideOwner, "not_ride_owner", http.StatusForbidden)
	case errors.Is(err, ErrOwnRide):
		return wrap(ErrOwnRide, "own_ride", http.StatusConflict)
	case errors.Is(err, ErrInvalidTransition):
		return wrap(ErrInvalidTransition, "invalid_transition", http.StatusConflict)
	case errors.Is(err, ErrIdempotencyConflict):
		return IdempotencyConflict()
	case errors.Is(err, ErrNotFound):
		return NotFound("resource")
	case errors.Is(err, ErrBadRequest):
		return BadRequest(err.Error())
	case errors.Is(err, ErrForbidden):
		return Forbidden(err.Error())
	case errors.Is(err, ErrConflict):
		return Conflict(err.Error())
	}
	return InternalError("internal server error")
}

// IsBusiness reports whether err is an expected outcome rather than an
// infrastructure failure.
func IsBusiness(err error) bool {
	return FromError(err).StatusCode < http.StatusInternalServerError
}
