package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	apperrors "github.com/aditya/go-boleia/internal/errors"
	"github.com/aditya/go-boleia/internal/models"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

func TestSeatAllocatorReserve(t *testing.T) {
	closed := openRide(4, 4)
	closed.Status = models.RideStatusCancelled

	tests := []struct {
		name          string
		ride          *models.Ride
		rideID        string
		seats         int
		wantErr       error
		wantAvailable int
	}{
		{"Reserves within capacity", openRide(4, 4), "", 2, nil, 2},
		{"Takes the last seats", openRide(4, 2), "", 2, nil, 0},
		{"Rejects more than available", openRide(4, 1), "", 2, apperrors.ErrInsufficientCapacity, 1},
		{"Rejects closed ride", closed, "", 1, apperrors.ErrRideNotOpen, 4},
		{"Rejects zero seats", openRide(4, 4), "", 0, apperrors.ErrInvalidSeatCount, 4},
		{"Rejects negative seats", openRide(4, 4), "", -1, apperrors.ErrInvalidSeatCount, 4},
		{"Unknown ride", openRide(4, 4), uuid.New().String(), 1, apperrors.ErrRideNotFound, 4},
		{"Malformed ride id", openRide(4, 4), "not-a-uuid", 1, apperrors.ErrRideNotFound, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMemRides(tt.ride)
			pub := &recordingPublisher{}
			alloc := NewSeatAllocator(store, pub, time.Second)

			id := tt.ride.ID
			if tt.rideID != "" {
				id = tt.rideID
			}
			change, err := alloc.Reserve(context.Background(), id, tt.seats)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Reserve() error = %v, want %v", err, tt.wantErr)
			}
			if got := store.get(tt.ride.ID).AvailableSeats; got != tt.wantAvailable {
				t.Errorf("available seats = %d, want %d", got, tt.wantAvailable)
			}
			if tt.wantErr != nil {
				if pub.count() != 0 {
					t.Errorf("published %d changes for a rejected reserve", pub.count())
				}
				return
			}
			if change.Delta != -tt.seats || change.AvailableSeats != tt.wantAvailable || change.CapacitySeats != tt.ride.CapacitySeats {
				t.Errorf("unexpected change %+v", change)
			}
			if pub.count() != 1 {
				t.Errorf("published %d changes, want 1", pub.count())
			}
		})
	}
}

func TestSeatAllocatorConcurrentReserveForLastSeat(t *testing.T) {
	for _, workers := range []int{2, 50} {
		ride := openRide(4, 1)
		store := newMemRides(ride)
		alloc := NewSeatAllocator(store, nil, time.Second)

		var (
			wg        sync.WaitGroup
			mu        sync.Mutex
			succeeded int
			rejected  int
		)
		start := make(chan struct{})
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				<-start
				_, err := alloc.Reserve(context.Background(), ride.ID, 1)
				mu.Lock()
				defer mu.Unlock()
				switch {
				case err == nil:
					succeeded++
				case errors.Is(err, apperrors.ErrInsufficientCapacity):
					rejected++
				default:
					t.Errorf("unexpected error: %v", err)
				}
			}()
		}
		close(start)
		wg.Wait()

		if succeeded != 1 || rejected != workers-1 {
			t.Errorf("workers=%d: succeeded=%d rejected=%d", workers, succeeded, rejected)
		}
		if got := store.get(ride.ID).AvailableSeats; got != 0 {
			t.Errorf("workers=%d: available seats = %d, want 0", workers, got)
		}
	}
}

func TestSeatAllocatorConcurrentReserveNeverOversells(t *testing.T) {
	ride := openRide(10, 10)
	store := newMemRides(ride)
	alloc := NewSeatAllocator(store, nil, time.Second)

	var wg sync.WaitGroup
	var mu sync.Mutex
	reserved := 0
	for i := 0; i < 40; i++ {
		seats := i%3 + 1
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := alloc.Reserve(context.Background(), ride.ID, seats); err == nil {
				mu.Lock()
				reserved += seats
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	got := store.get(ride.ID)
	if got.AvailableSeats < 0 {
		t.Fatalf("available seats went negative: %d", got.AvailableSeats)
	}
	if reserved != got.CapacitySeats-got.AvailableSeats {
		t.Errorf("reserved %d seats but count dropped by %d", reserved, got.CapacitySeats-got.AvailableSeats)
	}
}

func TestSeatAllocatorRelease(t *testing.T) {
	tests := []struct {
		name          string
		capacity      int
		available     int
		seats         int
		wantAvailable int
	}{
		{"Returns seats", 4, 1, 2, 3},
		{"Clamps at capacity", 4, 3, 2, 4},
		{"Already full", 4, 4, 1, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ride := openRide(tt.capacity, tt.available)
			store := newMemRides(ride)
			pub := &recordingPublisher{}
			alloc := NewSeatAllocator(store, pub, time.Second)

			change, err := alloc.Release(context.Background(), ride.ID, tt.seats)
			if err != nil {
				t.Fatalf("Release() error = %v", err)
			}
			if change.AvailableSeats != tt.wantAvailable {
				t.Errorf("change.AvailableSeats = %d, want %d", change.AvailableSeats, tt.wantAvailable)
			}
			if got := store.get(ride.ID).AvailableSeats; got != tt.wantAvailable {
				t.Errorf("available seats = %d, want %d", got, tt.wantAvailable)
			}
			if pub.count() != 1 {
				t.Errorf("published %d changes, want 1", pub.count())
			}
		})
	}
}

func TestSeatAllocatorReleaseErrors(t *testing.T) {
	alloc := NewSeatAllocator(newMemRides(), nil, time.Second)

	if _, err := alloc.Release(context.Background(), uuid.New().String(), 1); !errors.Is(err, apperrors.ErrRideNotFound) {
		t.Errorf("Release() on unknown ride error = %v", err)
	}
	if _, err := alloc.Release(context.Background(), uuid.New().String(), 0); !errors.Is(err, apperrors.ErrInvalidSeatCount) {
		t.Errorf("Release(0) error = %v", err)
	}
}

func TestSeatAllocatorStoreFailures(t *testing.T) {
	ride := openRide(4, 4)

	t.Run("Check violation reads as insufficient capacity", func(t *testing.T) {
		store := newMemRides(ride)
		store.err = &pq.Error{Code: "23514"}
		_, err := NewSeatAllocator(store, nil, time.Second).Reserve(context.Background(), ride.ID, 1)
		if !errors.Is(err, apperrors.ErrInsufficientCapacity) {
			t.Errorf("Reserve() error = %v", err)
		}
	})

	t.Run("Other errors are wrapped and not retried", func(t *testing.T) {
		store := newMemRides(ride)
		storeErr := errors.New("connection reset")
		store.err = storeErr
		_, err := NewSeatAllocator(store, nil, time.Second).Reserve(context.Background(), ride.ID, 1)
		if !errors.Is(err, storeErr) {
			t.Fatalf("Reserve() error = %v, want wrapped %v", err, storeErr)
		}
		if apperrors.IsBusiness(err) {
			t.Error("store failure reported as a business error")
		}
		if store.seatCalls != 1 {
			t.Errorf("store called %d times, want 1", store.seatCalls)
		}
	})

	t.Run("Timeout is a failure", func(t *testing.T) {
		store := newMemRides(ride)
		store.block = true
		_, err := NewSeatAllocator(store, nil, 20*time.Millisecond).Reserve(context.Background(), ride.ID, 1)
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Fatalf("Reserve() error = %v, want deadline exceeded", err)
		}
		if store.seatCalls != 1 {
			t.Errorf("store called %d times, want 1", store.seatCalls)
		}
	})
}

func TestSeatAllocatorWithTxDoesNotPublish(t *testing.T) {
	ride := openRide(4, 4)
	store := newMemRides(ride)
	pub := &recordingPublisher{}
	alloc := NewSeatAllocator(store, pub, time.Second)

	runner := &fakeTxRunner{}
	err := runner.WithinTx(context.Background(), func(q sqlx.ExtContext) error {
		_, err := alloc.WithTx(q).Reserve(context.Background(), ride.ID, 2)
		return err
	})
	if err != nil {
		t.Fatalf("WithinTx() error = %v", err)
	}
	if pub.count() != 0 {
		t.Errorf("bound allocator published %d changes", pub.count())
	}
	if got := store.get(ride.ID).AvailableSeats; got != 2 {
		t.Errorf("available seats = %d, want 2", got)
	}
}

func TestSeatAllocatorRollbackRestoresSeats(t *testing.T) {
	ride := openRide(4, 4)
	store := newMemRides(ride)
	alloc := NewSeatAllocator(store, nil, time.Second)

	boom := errors.New("insert failed")
	err := (&fakeTxRunner{}).WithinTx(context.Background(), func(q sqlx.ExtContext) error {
		if _, err := alloc.WithTx(q).Reserve(context.Background(), ride.ID, 3); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("WithinTx() error = %v", err)
	}
	if got := store.get(ride.ID).AvailableSeats; got != 4 {
		t.Errorf("available seats after rollback = %d, want 4", got)
	}
}
