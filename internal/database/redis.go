package database

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// ConnectRedis returns the client backing the course status cache and the
// notification fan-out. An empty url disables both and yields a nil client.
func ConnectRedis(ctx context.Context, url string, logger zerolog.Logger) (*redis.Client, error) {
	if url == "" {
		logger.Warn().Msg("redis url not set, course status cache disabled")
		return nil, nil
	}

	options, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}

	client := redis.NewClient(options)

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("unable to connect to redis: %w", err)
	}

	return client, nil
}
