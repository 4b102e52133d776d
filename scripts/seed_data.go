//go:build ignore

package main

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"time"

	"github.com/aditya/go-boleia/internal/cache"
	"github.com/aditya/go-boleia/internal/config"
	"github.com/aditya/go-boleia/internal/database"
	"github.com/aditya/go-boleia/internal/models"
	"github.com/aditya/go-boleia/internal/region"
	"github.com/aditya/go-boleia/internal/repository"
)

// Stops along the EN1, south to north, with a few inland detours.
var places = []string{
	"Maputo", "Matola", "Boane", "Xai-Xai", "Chokwe", "Inhambane", "Maxixe", "Vilankulo",
	"Beira", "Dondo", "Chimoio", "Tete", "Quelimane", "Mocuba", "Nampula", "Nacala",
	"Pemba", "Lichinga", "Cuamba",
}

var vehicleTypes = []string{"chapa", "sedan", "pickup", "minibus"}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	classifier, err := region.Load(cfg.RegionTablePath)
	if err != nil {
		log.Fatalf("Failed to load region table: %v", err)
	}

	db, err := database.NewPostgres(cfg.DatabaseURL, cfg.DBMaxConnections, cfg.DBMaxIdleConnections, false)
	if err != nil {
		log.Fatalf("Failed to connect to PostgreSQL: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	if err := db.Migrate(ctx); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	redis, err := database.NewRedis(cfg.RedisURL, cfg.RedisPassword, false)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redis.Close()

	rideRepo := repository.NewRideRepository(db.DB)
	snapshots := cache.NewSeatSnapshotCache(redis.Client)

	driverIDs := make([]string, 10)
	for i := range driverIDs {
		driverIDs[i] = fmt.Sprintf("00000000-0000-4000-8000-%012d", i+1)
	}

	log.Println("Creating 120 rides...")
	created := 0
	perRegion := map[region.Region]int{}
	for i := 0; i < 120; i++ {
		from := places[rand.Intn(len(places))]
		to := places[rand.Intn(len(places))]
		if from == to {
			continue
		}

		capacity := 2 + rand.Intn(13)
		vt := vehicleTypes[rand.Intn(len(vehicleTypes))]
		ride := &models.Ride{
			DriverID:          driverIDs[rand.Intn(len(driverIDs))],
			OriginText:        from,
			DestinationText:   to,
			OriginRegion:      classifier.Classify(from),
			DestinationRegion: classifier.Classify(to),
			DepartureAt:       time.Now().Add(time.Duration(2+rand.Intn(24*14)) * time.Hour).UTC().Truncate(time.Minute),
			CapacitySeats:     capacity,
			AvailableSeats:    capacity,
			PricePerSeat:      float64(300 + 50*rand.Intn(40)),
			VehicleType:       &vt,
			Status:            models.RideStatusOpen,
		}

		if err := rideRepo.Create(ctx, ride); err != nil {
			log.Printf("Failed to create ride: %v", err)
			continue
		}
		if err := snapshots.Set(ctx, ride.ID, ride.AvailableSeats, ride.CapacitySeats); err != nil {
			log.Printf("Failed to cache seats for %s: %v", ride.ID, err)
		}
		perRegion[ride.OriginRegion]++
		created++
	}

	log.Println("\n=== Seed Data Summary ===")
	log.Printf("Rides created: %d", created)
	for _, r := range region.All {
		if n := perRegion[r]; n > 0 {
			log.Printf("  departing %-14s %d", r.String()+":", n)
		}
	}
	log.Println("\nSample Driver ID:", driverIDs[0])
	log.Println("Try: curl 'localhost:8080/v1/rides/search?from=Xai-Xai&to=Beira'")
}
