package handler

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/aditya/go-boleia/internal/models"
	"github.com/aditya/go-boleia/internal/service"
	"github.com/aditya/go-boleia/pkg/utils"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

const dateLayout = "2006-01-02"

type RideHandler struct {
	rideService    service.RideService
	searchService  service.SearchService
	bookingService service.BookingService
	validate       *validator.Validate
}

func NewRideHandler(rideService service.RideService, searchService service.SearchService, bookingService service.BookingService) *RideHandler {
	return &RideHandler{
		rideService:    rideService,
		searchService:  searchService,
		bookingService: bookingService,
		validate:       validator.New(),
	}
}

func (h *RideHandler) RegisterRoutes(r chi.Router) {
	r.Post("/rides", h.CreateRide)
	r.Get("/rides/search", h.SearchRides)
	r.Get("/rides/nearby", h.NearbyRides)
	r.Get("/rides/{id}", h.GetRide)
	r.Patch("/rides/{id}", h.UpdateRide)
	r.Post("/rides/{id}/cancel", h.CancelRide)
	r.Post("/rides/{id}/complete", h.CompleteRide)
	r.Get("/rides/{id}/availability", h.CheckAvailability)
	r.Get("/rides/{id}/bookings", h.ListRideBookings)
	r.Get("/drivers/{id}/rides", h.ListDriverRides)
	r.Get("/drivers/{id}/stats", h.DriverStats)
}

// POST /v1/rides
func (h *RideHandler) CreateRide(w http.ResponseWriter, r *http.Request) {
	var req models.CreateRideRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validate.Struct(req); err != nil {
		utils.BadRequest(w, err.Error())
		return
	}

	ride, err := h.rideService.CreateRide(r.Context(), &req)
	if err != nil {
		handleError(w, r, err)
		return
	}

	utils.Created(w, ride)
}

// GET /v1/rides/search?from=&to=&date=&min_seats=&max_price=
func (h *RideHandler) SearchRides(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	criteria := models.SearchCriteria{
		From: q.Get("from"),
		To:   q.Get("to"),
	}

	if raw := strings.TrimSpace(q.Get("date")); raw != "" {
		date, err := time.Parse(dateLayout, raw)
		if err != nil {
			utils.BadRequest(w, "date must be formatted as YYYY-MM-DD")
			return
		}
		criteria.Date = &date
	}

	var err error
	if criteria.MinSeats, err = queryInt(r, "min_seats", 1); err != nil {
		handleError(w, r, err)
		return
	}
	if criteria.MaxPrice, err = queryFloat(r, "max_price"); err != nil {
		handleError(w, r, err)
		return
	}

	resp, err := h.searchService.Search(r.Context(), criteria)
	if err != nil {
		handleError(w, r, err)
		return
	}

	utils.Success(w, http.StatusOK, resp)
}

// GET /v1/rides/nearby?location=&seats=&radius_km=
func (h *RideHandler) NearbyRides(w http.ResponseWriter, r *http.Request) {
	seats, err := queryInt(r, "seats", 1)
	if err != nil {
		handleError(w, r, err)
		return
	}
	radius, err := queryFloat(r, "radius_km")
	if err != nil {
		handleError(w, r, err)
		return
	}
	var radiusKm float64
	if radius != nil {
		radiusKm = *radius
	}

	resp, err := h.searchService.Nearby(r.Context(), r.URL.Query().Get("location"), seats, radiusKm)
	if err != nil {
		handleError(w, r, err)
		return
	}

	utils.Success(w, http.StatusOK, resp)
}

// GET /v1/rides/{id}
func (h *RideHandler) GetRide(w http.ResponseWriter, r *http.Request) {
	ride, err := h.rideService.GetRide(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleError(w, r, err)
		return
	}

	utils.Success(w, http.StatusOK, ride)
}

// PATCH /v1/rides/{id}
func (h *RideHandler) UpdateRide(w http.ResponseWriter, r *http.Request) {
	driver, err := driverID(r)
	if err != nil {
		handleError(w, r, err)
		return
	}

	var req models.UpdateRideRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validate.Struct(req); err != nil {
		utils.BadRequest(w, err.Error())
		return
	}

	ride, err := h.rideService.UpdateRide(r.Context(), chi.URLParam(r, "id"), driver, &req)
	if err != nil {
		handleError(w, r, err)
		return
	}

	utils.Success(w, http.StatusOK, ride)
}

// POST /v1/rides/{id}/cancel
func (h *RideHandler) CancelRide(w http.ResponseWriter, r *http.Request) {
	driver, err := driverID(r)
	if err != nil {
		handleError(w, r, err)
		return
	}

	ride, err := h.rideService.CancelRide(r.Context(), chi.URLParam(r, "id"), driver)
	if err != nil {
		handleError(w, r, err)
		return
	}

	utils.Success(w, http.StatusOK, ride)
}

// POST /v1/rides/{id}/complete
func (h *RideHandler) CompleteRide(w http.ResponseWriter, r *http.Request) {
	driver, err := driverID(r)
	if err != nil {
		handleError(w, r, err)
		return
	}

	ride, err := h.rideService.CompleteRide(r.Context(), chi.URLParam(r, "id"), driver)
	if err != nil {
		handleError(w, r, err)
		return
	}

	utils.Success(w, http.StatusOK, ride)
}

// GET /v1/rides/{id}/availability?seats=
func (h *RideHandler) CheckAvailability(w http.ResponseWriter, r *http.Request) {
	seats, err := queryInt(r, "seats", 1)
	if err != nil {
		handleError(w, r, err)
		return
	}

	resp, err := h.rideService.CheckAvailability(r.Context(), chi.URLParam(r, "id"), seats)
	if err != nil {
		handleError(w, r, err)
		return
	}

	utils.Success(w, http.StatusOK, resp)
}

// GET /v1/rides/{id}/bookings
func (h *RideHandler) ListRideBookings(w http.ResponseWriter, r *http.Request) {
	bookings, err := h.bookingService.ListRideBookings(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleError(w, r, err)
		return
	}

	utils.List(w, bookings, len(bookings))
}

// GET /v1/drivers/{id}/rides
func (h *RideHandler) ListDriverRides(w http.ResponseWriter, r *http.Request) {
	limit, err := limitParam(r)
	if err != nil {
		handleError(w, r, err)
		return
	}

	rides, err := h.rideService.ListDriverRides(r.Context(), chi.URLParam(r, "id"), limit)
	if err != nil {
		handleError(w, r, err)
		return
	}

	utils.List(w, rides, len(rides))
}

// GET /v1/drivers/{id}/stats
func (h *RideHandler) DriverStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.rideService.DriverStats(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleError(w, r, err)
		return
	}

	utils.Success(w, http.StatusOK, stats)
}
