package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/aditya/go-boleia/internal/cache"
	"github.com/aditya/go-boleia/internal/events"
	"github.com/aditya/go-boleia/internal/logger"
	"github.com/aditya/go-boleia/internal/models"
	"github.com/aditya/go-boleia/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const defaultHeartbeat = 15 * time.Second

// SeatStreamHandler pushes seat changes for a ride to SSE clients. Changes
// arrive over Redis pub/sub, so every instance sees bookings made on any
// other instance.
type SeatStreamHandler struct {
	rideService service.RideService
	snapshots   cache.SeatSnapshotCache
	redis       *redis.Client
	heartbeat   time.Duration
	clients     map[string]map[chan []byte]struct{} // rideID -> clients
	mu          sync.RWMutex
	done        chan struct{}
	closeOnce   sync.Once
}

type seatState struct {
	RideID         string `json:"ride_id"`
	AvailableSeats int    `json:"available_seats"`
	CapacitySeats  int    `json:"capacity_seats"`
	Status         string `json:"status,omitempty"`
}

func NewSeatStreamHandler(rideService service.RideService, snapshots cache.SeatSnapshotCache, redisClient *redis.Client) *SeatStreamHandler {
	return &SeatStreamHandler{
		rideService: rideService,
		snapshots:   snapshots,
		redis:       redisClient,
		heartbeat:   defaultHeartbeat,
		clients:     make(map[string]map[chan []byte]struct{}),
		done:        make(chan struct{}),
	}
}

// Shutdown ends every open stream. http.Server.Shutdown does not cancel
// in-flight requests on its own.
func (h *SeatStreamHandler) Shutdown() {
	h.closeOnce.Do(func() { close(h.done) })
}

func (h *SeatStreamHandler) RegisterRoutes(r chi.Router) {
	r.Get("/rides/{id}/seats/stream", h.StreamSeats)
}

// GET /v1/rides/{id}/seats/stream
func (h *SeatStreamHandler) StreamSeats(w http.ResponseWriter, r *http.Request) {
	rideID := chi.URLParam(r, "id")
	ctx := r.Context()

	initial, err := h.currentState(ctx, rideID)
	if err != nil {
		handleError(w, r, err)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "SSE not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	clientChan := make(chan []byte, 10)
	h.registerClient(rideID, clientChan)
	defer h.unregisterClient(rideID, clientChan)

	data, _ := json.Marshal(initial)
	fmt.Fprintf(w, "event: seats\ndata: %s\n\n", data)
	flusher.Flush()

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-h.done:
			return
		case msg := <-clientChan:
			fmt.Fprintf(w, "event: seats\ndata: %s\n\n", msg)
			flusher.Flush()
		case <-ticker.C:
			fmt.Fprintf(w, "event: heartbeat\ndata: {\"time\": \"%s\"}\n\n", time.Now().UTC().Format(time.RFC3339))
			flusher.Flush()
		}
	}
}

// currentState prefers the cached snapshot and falls back to the ride row,
// warming the cache on a miss.
func (h *SeatStreamHandler) currentState(ctx context.Context, rideID string) (*seatState, error) {
	if h.snapshots != nil {
		if snap, err := h.snapshots.Get(ctx, rideID); err == nil && snap != nil {
			return &seatState{RideID: rideID, AvailableSeats: snap.Available, CapacitySeats: snap.Capacity}, nil
		}
	}

	ride, err := h.rideService.GetRide(ctx, rideID)
	if err != nil {
		return nil, err
	}
	if h.snapshots != nil {
		if err := h.snapshots.Set(ctx, ride.ID, ride.AvailableSeats, ride.CapacitySeats); err != nil {
			logger.WarnContext(ctx, "seat snapshot write failed", zap.String("ride_id", ride.ID), zap.Error(err))
		}
	}
	return &seatState{
		RideID:         ride.ID,
		AvailableSeats: ride.AvailableSeats,
		CapacitySeats:  ride.CapacitySeats,
		Status:         ride.Status,
	}, nil
}

func (h *SeatStreamHandler) registerClient(rideID string, ch chan []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.clients[rideID] == nil {
		h.clients[rideID] = make(map[chan []byte]struct{})
	}
	h.clients[rideID][ch] = struct{}{}
}

func (h *SeatStreamHandler) unregisterClient(rideID string, ch chan []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if clients, ok := h.clients[rideID]; ok {
		delete(clients, ch)
		if len(clients) == 0 {
			delete(h.clients, rideID)
		}
	}
	close(ch)
}

func (h *SeatStreamHandler) clientCount(rideID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[rideID])
}

// Broadcast hands data to every client watching the ride. Slow clients
// miss the update rather than block the listener.
func (h *SeatStreamHandler) Broadcast(rideID string, data []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for ch := range h.clients[rideID] {
		select {
		case ch <- data:
		default:
		}
	}
}

// Listen relays seat changes from Redis until ctx is cancelled.
func (h *SeatStreamHandler) Listen(ctx context.Context) {
	pubsub := h.redis.PSubscribe(ctx, events.SeatChannelPattern())
	defer pubsub.Close()

	msgs := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-msgs:
			if !ok {
				return
			}
			h.relay([]byte(msg.Payload))
		}
	}
}

func (h *SeatStreamHandler) relay(payload []byte) {
	var change models.SeatChange
	if err := json.Unmarshal(payload, &change); err != nil || change.RideID == "" {
		logger.Warn("dropping malformed seat change", zap.ByteString("payload", payload))
		return
	}

	data, _ := json.Marshal(seatState{
		RideID:         change.RideID,
		AvailableSeats: change.AvailableSeats,
		CapacitySeats:  change.CapacitySeats,
	})
	h.Broadcast(change.RideID, data)
}
