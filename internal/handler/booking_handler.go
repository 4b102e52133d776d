package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/aditya/go-boleia/internal/middleware"
	"github.com/aditya/go-boleia/internal/models"
	"github.com/aditya/go-boleia/internal/service"
	"github.com/aditya/go-boleia/pkg/utils"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

type BookingHandler struct {
	bookingService service.BookingService
	validate       *validator.Validate
}

func NewBookingHandler(bookingService service.BookingService) *BookingHandler {
	return &BookingHandler{
		bookingService: bookingService,
		validate:       validator.New(),
	}
}

func (h *BookingHandler) RegisterRoutes(r chi.Router) {
	r.Post("/bookings", h.CreateBooking)
	r.Get("/bookings/{id}", h.GetBooking)
	r.Post("/bookings/{id}/confirm", h.ConfirmBooking)
	r.Post("/bookings/{id}/cancel", h.CancelBooking)
	r.Post("/bookings/{id}/complete", h.CompleteBooking)
	r.Get("/passengers/{id}/bookings", h.ListPassengerBookings)
}

// POST /v1/bookings
func (h *BookingHandler) CreateBooking(w http.ResponseWriter, r *http.Request) {
	var req models.CreateBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validate.Struct(req); err != nil {
		utils.BadRequest(w, err.Error())
		return
	}

	booking, err := h.bookingService.CreateBooking(r.Context(), &req, r.Header.Get(middleware.IdempotencyHeader))
	if err != nil {
		handleError(w, r, err)
		return
	}

	utils.Created(w, booking)
}

// GET /v1/bookings/{id}
func (h *BookingHandler) GetBooking(w http.ResponseWriter, r *http.Request) {
	booking, err := h.bookingService.GetBooking(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleError(w, r, err)
		return
	}

	utils.Success(w, http.StatusOK, booking)
}

// POST /v1/bookings/{id}/confirm
func (h *BookingHandler) ConfirmBooking(w http.ResponseWriter, r *http.Request) {
	booking, err := h.bookingService.ConfirmBooking(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleError(w, r, err)
		return
	}

	utils.Success(w, http.StatusOK, booking)
}

// POST /v1/bookings/{id}/cancel
func (h *BookingHandler) CancelBooking(w http.ResponseWriter, r *http.Request) {
	// The body is optional; a bare POST cancels without a reason.
	var req models.CancelBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		utils.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validate.Struct(req); err != nil {
		utils.BadRequest(w, err.Error())
		return
	}

	booking, err := h.bookingService.CancelBooking(r.Context(), chi.URLParam(r, "id"), &req)
	if err != nil {
		handleError(w, r, err)
		return
	}

	utils.Success(w, http.StatusOK, booking)
}

// POST /v1/bookings/{id}/complete
func (h *BookingHandler) CompleteBooking(w http.ResponseWriter, r *http.Request) {
	booking, err := h.bookingService.CompleteBooking(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleError(w, r, err)
		return
	}

	utils.Success(w, http.StatusOK, booking)
}

// GET /v1/passengers/{id}/bookings
func (h *BookingHandler) ListPassengerBookings(w http.ResponseWriter, r *http.Request) {
	limit, err := limitParam(r)
	if err != nil {
		handleError(w, r, err)
		return
	}

	bookings, err := h.bookingService.ListPassengerBookings(r.Context(), chi.URLParam(r, "id"), limit)
	if err != nil {
		handleError(w, r, err)
		return
	}

	utils.List(w, bookings, len(bookings))
}
