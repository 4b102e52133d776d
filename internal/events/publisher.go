package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aditya/go-boleia/internal/cache"
	"github.com/aditya/go-boleia/internal/logger"
	"github.com/aditya/go-boleia/internal/models"
	"github.com/aditya/go-boleia/internal/observability"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const seatChannelPattern = "rides:*:seats"

// SeatChannel is the Redis pub/sub channel for one ride's seat changes.
func SeatChannel(rideID string) string {
	return fmt.Sprintf("rides:%s:seats", rideID)
}

// SeatChannelPattern matches every ride's seat channel.
func SeatChannelPattern() string {
	return seatChannelPattern
}

// Publisher announces committed seat changes. Publishing happens after the
// database commit, so failures are logged and never undo a reservation.
type Publisher interface {
	PublishSeatChange(ctx context.Context, change models.SeatChange) error
}

type redisPublisher struct {
	redis     *redis.Client
	snapshots cache.SeatSnapshotCache
}

// NewRedisPublisher refreshes the seat snapshot and publishes the change
// in one round trip.
func NewRedisPublisher(redisClient *redis.Client, snapshots cache.SeatSnapshotCache) Publisher {
	return &redisPublisher{redis: redisClient, snapshots: snapshots}
}

func (p *redisPublisher) PublishSeatChange(ctx context.Context, change models.SeatChange) error {
	data, err := json.Marshal(change)
	if err != nil {
		return err
	}

	pipe := p.redis.Pipeline()
	if p.snapshots != nil && change.CapacitySeats > 0 {
		p.snapshots.SetPipelined(ctx, pipe, change.RideID, change.AvailableSeats, change.CapacitySeats)
	}
	pipe.Publish(ctx, SeatChannel(change.RideID), data)
	_, err = pipe.Exec(ctx)
	return err
}

// Fanout publishes to every sink and reports all failures together.
type Fanout []Publisher

func (f Fanout) PublishSeatChange(ctx context.Context, change models.SeatChange) error {
	var errs []error
	for _, p := range f {
		if err := p.PublishSeatChange(ctx, change); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Publish is the fire-and-log helper services call after commit.
func Publish(ctx context.Context, p Publisher, change models.SeatChange) {
	if p == nil {
		return
	}
	if err := p.PublishSeatChange(ctx, change); err != nil {
		observability.EventPublishErrors.WithLabelValues("seat_change").Inc()
		logger.WarnContext(ctx, "seat change publish failed",
			zap.String("ride_id", change.RideID),
			zap.Int("delta", change.Delta),
			zap.Error(err),
		)
	}
}
