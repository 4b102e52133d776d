package cache

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	seatSnapshotKeyPrefix = "rides:seats:"
	snapshotTTL           = 30 * time.Minute
)

// SeatSnapshot is the last seat state announced for a ride. Seat streams
// show it on connect; the rides table stays authoritative.
type SeatSnapshot struct {
	Available int
	Capacity  int
	UpdatedAt int64
}

type SeatSnapshotCache interface {
	Set(ctx context.Context, rideID string, available, capacity int) error
	Get(ctx context.Context, rideID string) (*SeatSnapshot, error)
	// SetPipelined queues the write on an existing pipeline.
	SetPipelined(ctx context.Context, pipe redis.Pipeliner, rideID string, available, capacity int)
}

type seatSnapshotCache struct {
	redis *redis.Client
}

func NewSeatSnapshotCache(redisClient *redis.Client) SeatSnapshotCache {
	return &seatSnapshotCache{redis: redisClient}
}

func seatSnapshotKey(rideID string) string {
	return seatSnapshotKeyPrefix + rideID
}

func (c *seatSnapshotCache) Set(ctx context.Context, rideID string, available, capacity int) error {
	pipe := c.redis.TxPipeline()
	c.SetPipelined(ctx, pipe, rideID, available, capacity)
	_, err := pipe.Exec(ctx)
	return err
}

func (c *seatSnapshotCache) SetPipelined(ctx context.Context, pipe redis.Pipeliner, rideID string, available, capacity int) {
	key := seatSnapshotKey(rideID)
	pipe.HSet(ctx, key, map[string]interface{}{
		"available":  available,
		"capacity":   capacity,
		"updated_at": time.Now().Unix(),
	})
	pipe.Expire(ctx, key, snapshotTTL)
}

// Get returns nil, nil on a cache miss.
func (c *seatSnapshotCache) Get(ctx context.Context, rideID string) (*SeatSnapshot, error) {
	vals, err := c.redis.HGetAll(ctx, seatSnapshotKey(rideID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	if len(vals) == 0 {
		return nil, nil
	}

	snap := &SeatSnapshot{}
	if snap.Available, err = strconv.Atoi(vals["available"]); err != nil {
		return nil, err
	}
	if snap.Capacity, err = strconv.Atoi(vals["capacity"]); err != nil {
		return nil, err
	}
	snap.UpdatedAt, _ = strconv.ParseInt(vals["updated_at"], 10, 64)
	return snap, nil
}
