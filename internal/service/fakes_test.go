package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/aditya/go-boleia/internal/models"
	"github.com/aditya/go-boleia/internal/repository"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// fakeTx stands in for a *sqlx.Tx. Stores register undo steps on it so a
// failed WithinTx can roll back what ran inside.
type fakeTx struct {
	sqlx.ExtContext
	mu   sync.Mutex
	undo []func()
}

func (t *fakeTx) onRollback(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.undo = append(t.undo, fn)
}

type fakeTxRunner struct {
	mu    sync.Mutex
	calls int
	// committed runs after a transaction succeeds.
	committed func()
}

func (r *fakeTxRunner) WithinTx(ctx context.Context, fn func(q sqlx.ExtContext) error) error {
	r.mu.Lock()
	r.calls++
	r.mu.Unlock()

	tx := &fakeTx{}
	if err := fn(tx); err != nil {
		for i := len(tx.undo) - 1; i >= 0; i-- {
			tx.undo[i]()
		}
		return err
	}
	if r.committed != nil {
		r.committed()
	}
	return nil
}

func register(q sqlx.ExtContext, fn func()) {
	if tx, ok := q.(*fakeTx); ok {
		tx.onRollback(fn)
	}
}

// memRides is an in-memory RideRepository whose seat updates are atomic
// per call, like the conditional UPDATE they replace.
type memRides struct {
	mu         sync.Mutex
	rides      map[string]*models.Ride
	err        error
	lastFilter models.RideFilter
	seatCalls  int
	block      bool
}

func newMemRides(rides ...*models.Ride) *memRides {
	m := &memRides{rides: make(map[string]*models.Ride)}
	for _, r := range rides {
		m.put(r)
	}
	return m
}

func (m *memRides) put(r *models.Ride) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *r
	m.rides[r.ID] = &cp
}

func (m *memRides) get(id string) models.Ride {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.rides[id]
}

func (m *memRides) Create(ctx context.Context, ride *models.Ride) error {
	if m.err != nil {
		return m.err
	}
	if ride.ID == "" {
		ride.ID = uuid.New().String()
	}
	ride.CreatedAt = time.Now()
	ride.UpdatedAt = ride.CreatedAt
	m.put(ride)
	return nil
}

func (m *memRides) GetByID(ctx context.Context, id string) (*models.Ride, error) {
	return m.GetByIDWith(ctx, nil, id)
}

func (m *memRides) GetByIDWith(ctx context.Context, q sqlx.ExtContext, id string) (*models.Ride, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	r, ok := m.rides[id]
	if !ok {
		return nil, nil
	}
	cp := *r
	return &cp, nil
}

func (m *memRides) Update(ctx context.Context, ride *models.Ride) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.rides[ride.ID]
	if !ok || cur.Status != models.RideStatusOpen {
		return false, nil
	}
	cur.OriginText, cur.DestinationText = ride.OriginText, ride.DestinationText
	cur.OriginRegion, cur.DestinationRegion = ride.OriginRegion, ride.DestinationRegion
	cur.DepartureAt, cur.PricePerSeat, cur.VehicleType = ride.DepartureAt, ride.PricePerSeat, ride.VehicleType
	return true, nil
}

func (m *memRides) UpdateStatus(ctx context.Context, id, from, to string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.rides[id]
	if !ok || cur.Status != from {
		return false, nil
	}
	cur.Status = to
	return true, nil
}

func (m *memRides) ReserveSeats(ctx context.Context, q sqlx.ExtContext, id string, seats int) (*repository.SeatCounts, error) {
	if m.block {
		<-ctx.Done()
		m.mu.Lock()
		m.seatCalls++
		m.mu.Unlock()
		return nil, ctx.Err()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seatCalls++
	if m.err != nil {
		return nil, m.err
	}
	r, ok := m.rides[id]
	if !ok || r.Status != models.RideStatusOpen || r.AvailableSeats < seats {
		return nil, nil
	}
	r.AvailableSeats -= seats
	register(q, func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		r.AvailableSeats += seats
	})
	return &repository.SeatCounts{Available: r.AvailableSeats, Capacity: r.CapacitySeats}, nil
}

func (m *memRides) ReleaseSeats(ctx context.Context, q sqlx.ExtContext, id string, seats int) (*repository.SeatCounts, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seatCalls++
	if m.err != nil {
		return nil, m.err
	}
	r, ok := m.rides[id]
	if !ok {
		return nil, nil
	}
	before := r.AvailableSeats
	r.AvailableSeats = min(r.CapacitySeats, r.AvailableSeats+seats)
	register(q, func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		r.AvailableSeats = before
	})
	return &repository.SeatCounts{Available: r.AvailableSeats, Capacity: r.CapacitySeats}, nil
}

func (m *memRides) FindOpen(ctx context.Context, f models.RideFilter) ([]*models.Ride, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastFilter = f
	if m.err != nil {
		return nil, m.err
	}
	out := []*models.Ride{}
	for _, r := range m.rides {
		if r.Status != models.RideStatusOpen || r.DepartureAt.Before(f.DepartingFrom) || r.AvailableSeats < f.MinSeats {
			continue
		}
		if f.MaxPrice != nil && r.PricePerSeat > *f.MaxPrice {
			continue
		}
		if f.OriginRegion != nil && r.OriginRegion != *f.OriginRegion {
			continue
		}
		if f.DestinationRegion != nil && r.DestinationRegion != *f.DestinationRegion {
			continue
		}
		cp := *r
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].DepartureAt.Equal(out[j].DepartureAt) {
			return out[i].DepartureAt.Before(out[j].DepartureAt)
		}
		return out[i].ID < out[j].ID
	})
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (m *memRides) ListByDriver(ctx context.Context, driverID string, limit int) ([]*models.Ride, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*models.Ride{}
	for _, r := range m.rides {
		if r.DriverID == driverID {
			cp := *r
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memRides) DriverStats(ctx context.Context, driverID string) (*models.DriverStats, error) {
	return &models.DriverStats{DriverID: driverID}, nil
}

type memBookings struct {
	mu        sync.Mutex
	bookings  map[string]*models.Booking
	createErr error
}

func newMemBookings() *memBookings {
	return &memBookings{bookings: make(map[string]*models.Booking)}
}

func (m *memBookings) Create(ctx context.Context, q sqlx.ExtContext, b *models.Booking) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	if b.IdempotencyKey != nil {
		for _, existing := range m.bookings {
			if existing.IdempotencyKey != nil && *existing.IdempotencyKey == *b.IdempotencyKey {
				return &pq.Error{Code: "23505", Message: "duplicate key value violates unique constraint"}
			}
		}
	}
	if b.ID == "" {
		b.ID = uuid.New().String()
	}
	cp := *b
	m.bookings[b.ID] = &cp
	register(q, func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.bookings, cp.ID)
	})
	return nil
}

func (m *memBookings) GetByID(ctx context.Context, id string) (*models.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok {
		return nil, nil
	}
	cp := *b
	return &cp, nil
}

func (m *memBookings) GetByIdempotencyKey(ctx context.Context, key string) (*models.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, b := range m.bookings {
		if b.IdempotencyKey != nil && *b.IdempotencyKey == key {
			cp := *b
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memBookings) ListByPassenger(ctx context.Context, passengerID string, limit int) ([]*models.Booking, error) {
	return m.filter(func(b *models.Booking) bool { return b.PassengerID == passengerID }), nil
}

func (m *memBookings) ListByRide(ctx context.Context, rideID string) ([]*models.Booking, error) {
	return m.filter(func(b *models.Booking) bool { return b.RideID == rideID }), nil
}

func (m *memBookings) filter(keep func(*models.Booking) bool) []*models.Booking {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*models.Booking{}
	for _, b := range m.bookings {
		if keep(b) {
			cp := *b
			out = append(out, &cp)
		}
	}
	return out
}

func (m *memBookings) UpdateStatus(ctx context.Context, q sqlx.ExtContext, id, from, to string, reason *string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok || b.Status != from {
		return false, nil
	}
	prevStatus, prevReason := b.Status, b.CancelReason
	b.Status = to
	if reason != nil {
		b.CancelReason = reason
	}
	register(q, func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		b.Status, b.CancelReason = prevStatus, prevReason
	})
	return true, nil
}

func (m *memBookings) SeatsHeld(ctx context.Context, rideID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	held := 0
	for _, b := range m.bookings {
		if b.RideID == rideID && b.HoldsSeats() {
			held += b.SeatsRequested
		}
	}
	return held, nil
}

type recordingPublisher struct {
	mu      sync.Mutex
	changes []models.SeatChange
	ctxErrs []error
}

func (p *recordingPublisher) PublishSeatChange(ctx context.Context, change models.SeatChange) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.changes = append(p.changes, change)
	p.ctxErrs = append(p.ctxErrs, ctx.Err())
	return nil
}

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.changes)
}

func openRide(capacity, available int) *models.Ride {
	return &models.Ride{
		ID:             uuid.New().String(),
		DriverID:       uuid.New().String(),
		CapacitySeats:  capacity,
		AvailableSeats: available,
		PricePerSeat:   1000,
		Status:         models.RideStatusOpen,
		DepartureAt:    time.Now().Add(24 * time.Hour),
	}
}
