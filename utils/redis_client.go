package utils

import (
	"context"
	"net"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"redlink/config"
)

const (
	redisConnectAttempts = 5
	redisConnectDelay    = 3 * time.Second
)

// InitRedis connects to Redis based on loaded config. The initial ping is
// retried a fixed number of times with a fixed delay; failures after startup
// propagate to the request instead of being retried.
func InitRedis(cfg config.AppConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         net.JoinHostPort(cfg.RedisHost, strconv.Itoa(cfg.RedisPort)),
		Password:     cfg.RedisPassword,
		DB:           cfg.RedisDB,
		DialTimeout:  3 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})

	var err error
	for attempt := 1; attempt <= redisConnectAttempts; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		err = client.Ping(ctx).Err()
		cancel()
		if err == nil {
			return client, nil
		}
		if Sugar != nil {
			Sugar.Warnf("redis ping failed (attempt %d/%d): %v", attempt, redisConnectAttempts, err)
		}
		if attempt < redisConnectAttempts {
			time.Sleep(redisConnectDelay)
		}
	}
	return nil, err
}
