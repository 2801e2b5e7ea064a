package redisdb

import (
	"context"
	"fmt"

	"github.com/go-redis/redis/v8"
)

// Connect creates a Redis client from a URI in format redis://...
// and verifies the connection with a ping
func Connect(ctx context.Context, uri string) (*redis.Client, error) {
	opts, err := redis.ParseURL(uri)
	if err != nil {
		return nil, fmt.Errorf("cant parse redis uri. Err: %w", err)
	}

	client := redis.NewClient(opts)

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("cant connect to redis. Err: %w", err)
	}

	return client, nil
}
