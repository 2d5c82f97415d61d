package redisclient

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis backs only the per-slot booking locks here, all single-key SetNX
// and script calls. The client fails fast instead of queueing: a lock
// attempt that cannot reach Redis within the op timeout should surface as
// a retryable conflict, not stall the booking request.
const (
	dialTimeout = 3 * time.Second
	opTimeout   = 500 * time.Millisecond
	lockPool    = 4
)

func NewRedisClient(ctx context.Context, addr, username, password string) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         addr,
		Username:     username,
		Password:     password,
		DB:           0,
		DialTimeout:  dialTimeout,
		ReadTimeout:  opTimeout,
		WriteTimeout: opTimeout,
		MaxRetries:   1,
		PoolSize:     lockPool,
		MinIdleConns: 1,
	})

	pingCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()

	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return rdb, nil
}
