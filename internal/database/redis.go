package database

import (
	"context"
	"strings"
	"time"

	"github.com/newrelic/go-agent/v3/integrations/nrredis-v9"
	"github.com/redis/go-redis/v9"
)

type RedisDB struct {
	*redis.Client
}

// NewRedis connects the client used for rate limiting, idempotency replay
// and seat change pub/sub. addr is either host:port or a redis:// URL.
func NewRedis(addr, password string, instrumented bool) (*RedisDB, error) {
	opts, err := redisOptions(addr, password)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)

	if instrumented {
		client.AddHook(nrredis.NewHook(opts))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}

	return &RedisDB{Client: client}, nil
}

func redisOptions(addr, password string) (*redis.Options, error) {
	opts := &redis.Options{Addr: addr}
	if strings.HasPrefix(addr, "redis://") || strings.HasPrefix(addr, "rediss://") {
		parsed, err := redis.ParseURL(addr)
		if err != nil {
			return nil, err
		}
		opts = parsed
	}
	if password != "" {
		opts.Password = password
	}

	// One PSubscribe per instance serves every seat stream.
	opts.PoolSize = 50
	opts.MinIdleConns = 5
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second
	return opts, nil
}

func (r *RedisDB) Close() error {
	return r.Client.Close()
}

func (r *RedisDB) Health(ctx context.Context) error {
	return r.Ping(ctx).Err()
}
