//go:build ignore

// Run against a server started with RATE_LIMIT_REQUESTS=1000 so the booking
// race is not cut short by the limiter.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"math/rand"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

const (
	baseURL       = "http://localhost:8080"
	rideSeats     = 12
	bookers       = 200
	driverID      = "00000000-0000-4000-8000-000000000001"
	searchWorkers = 20
)

type Stats struct {
	TotalRequests   int64
	SuccessRequests int64
	FailedRequests  int64
	RejectedFull    int64
	RateLimited     int64
	TotalLatency    int64
	MinLatency      int64
	MaxLatency      int64
}

func newStats() *Stats {
	return &Stats{MinLatency: int64(^uint64(0) >> 1)}
}

func (s *Stats) record(latency int64) {
	atomic.AddInt64(&s.TotalRequests, 1)
	atomic.AddInt64(&s.TotalLatency, latency)
	for {
		old := atomic.LoadInt64(&s.MinLatency)
		if latency >= old || atomic.CompareAndSwapInt64(&s.MinLatency, old, latency) {
			break
		}
	}
	for {
		old := atomic.LoadInt64(&s.MaxLatency)
		if latency <= old || atomic.CompareAndSwapInt64(&s.MaxLatency, old, latency) {
			break
		}
	}
}

func main() {
	fmt.Println("Boleia Load Test")
	fmt.Println("================")

	fmt.Println("\n1. Creating a ride with", rideSeats, "seats...")
	rideID := createRide()

	fmt.Printf("\n2. Racing %d single-seat bookings for it...\n", bookers)
	stats := raceBookings(rideID)
	printStats("Bookings", stats)

	fmt.Println("\n3. Checking the ride was not oversold...")
	verifySeats(rideID, stats.SuccessRequests)

	fmt.Println("\n4. Search load (20 seconds)...")
	stats = searchLoad(20 * time.Second)
	printStats("Search", stats)

	fmt.Println("\nLoad test completed!")
}

func createRide() string {
	ride := map[string]interface{}{
		"driver_id":      driverID,
		"origin":         "Maputo",
		"destination":    "Beira",
		"departure_at":   time.Now().Add(72 * time.Hour).UTC(),
		"capacity_seats": rideSeats,
		"price_per_seat": 1500,
		"vehicle_type":   "minibus",
	}
	body, _ := json.Marshal(ride)
	resp, err := http.Post(baseURL+"/v1/rides", "application/json", bytes.NewBuffer(body))
	if err != nil {
		log.Fatalf("create ride: %v", err)
	}
	defer resp.Body.Close()

	var result map[string]interface{}
	json.NewDecoder(resp.Body).Decode(&result)
	id, ok := result["id"].(string)
	if resp.StatusCode != http.StatusCreated || !ok {
		log.Fatalf("create ride: status %d: %v", resp.StatusCode, result)
	}
	return id
}

func raceBookings(rideID string) *Stats {
	stats := newStats()
	var wg sync.WaitGroup
	start := make(chan struct{})

	for i := 0; i < bookers; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()

			booking := map[string]interface{}{
				"ride_id":         rideID,
				"passenger_id":    fmt.Sprintf("10000000-0000-4000-8000-%012d", idx),
				"seats_requested": 1,
			}
			body, _ := json.Marshal(booking)

			req, _ := http.NewRequest(http.MethodPost, baseURL+"/v1/bookings", bytes.NewBuffer(body))
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set("Idempotency-Key", fmt.Sprintf("load-test-booking-%d-%d", idx, time.Now().UnixNano()))

			<-start
			t0 := time.Now()
			resp, err := http.DefaultClient.Do(req)
			stats.record(time.Since(t0).Milliseconds())

			if err != nil {
				atomic.AddInt64(&stats.FailedRequests, 1)
				return
			}
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()

			switch resp.StatusCode {
			case http.StatusCreated:
				atomic.AddInt64(&stats.SuccessRequests, 1)
			case http.StatusConflict:
				atomic.AddInt64(&stats.RejectedFull, 1)
			case http.StatusTooManyRequests:
				atomic.AddInt64(&stats.RateLimited, 1)
			default:
				atomic.AddInt64(&stats.FailedRequests, 1)
			}
		}(i)
	}

	close(start)
	wg.Wait()
	return stats
}

func verifySeats(rideID string, booked int64) {
	resp, err := http.Get(baseURL + "/v1/rides/" + rideID)
	if err != nil {
		log.Fatalf("get ride: %v", err)
	}
	defer resp.Body.Close()

	var ride struct {
		AvailableSeats int `json:"available_seats"`
		CapacitySeats  int `json:"capacity_seats"`
	}
	json.NewDecoder(resp.Body).Decode(&ride)

	fmt.Printf("  Capacity:   %d\n", ride.CapacitySeats)
	fmt.Printf("  Booked:     %d\n", booked)
	fmt.Printf("  Available:  %d\n", ride.AvailableSeats)
	if booked > int64(ride.CapacitySeats) || int64(ride.AvailableSeats) != int64(ride.CapacitySeats)-booked {
		log.Fatalf("seat counts do not balance")
	}
	fmt.Println("  OK: no oversell")
}

func searchLoad(duration time.Duration) *Stats {
	stats := newStats()
	queries := []string{
		"from=Xai-Xai&to=Beira",
		"from=Maputo&to=Nampula",
		"from=Beira&to=Maputo",
		"from=Chimoio",
		"to=Pemba&min_seats=2",
	}

	var wg sync.WaitGroup
	done := make(chan struct{})
	for i := 0; i < searchWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-done:
					return
				default:
				}

				t0 := time.Now()
				resp, err := http.Get(baseURL + "/v1/rides/search?" + queries[rand.Intn(len(queries))])
				stats.record(time.Since(t0).Milliseconds())

				if err != nil || resp.StatusCode != http.StatusOK {
					atomic.AddInt64(&stats.FailedRequests, 1)
				} else {
					atomic.AddInt64(&stats.SuccessRequests, 1)
				}
				if resp != nil {
					io.Copy(io.Discard, resp.Body)
					resp.Body.Close()
				}
			}
		}()
	}

	time.Sleep(duration)
	close(done)
	wg.Wait()
	return stats
}

func printStats(name string, stats *Stats) {
	avgLatency := float64(0)
	if stats.TotalRequests > 0 {
		avgLatency = float64(stats.TotalLatency) / float64(stats.TotalRequests)
	}

	fmt.Printf("\n%s Results:\n", name)
	fmt.Printf("  Total Requests:   %d\n", stats.TotalRequests)
	fmt.Printf("  Successful:       %d\n", stats.SuccessRequests)
	if stats.RejectedFull > 0 {
		fmt.Printf("  Rejected (409):   %d\n", stats.RejectedFull)
	}
	if stats.RateLimited > 0 {
		fmt.Printf("  Rate limited:     %d (raise RATE_LIMIT_REQUESTS)\n", stats.RateLimited)
	}
	fmt.Printf("  Failed:           %d\n", stats.FailedRequests)
	fmt.Printf("  Avg Latency:      %.2f ms\n", avgLatency)
	if stats.MinLatency != int64(^uint64(0)>>1) {
		fmt.Printf("  Min Latency:      %d ms\n", stats.MinLatency)
	}
	fmt.Printf("  Max Latency:      %d ms\n", stats.MaxLatency)
}
