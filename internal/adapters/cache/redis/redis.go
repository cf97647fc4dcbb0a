// Package redis caches computed price results in Redis.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/FalkoBaeker/tonie-app/internal/config"
	"github.com/FalkoBaeker/tonie-app/internal/domain/models"
)

// Adapter implements the CachePort interface for Redis
type Adapter struct {
	client *redis.Client
}

// New creates a new Redis adapter
func New(cfg config.CacheConfig) (*Adapter, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.Database,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &Adapter{client: client}, nil
}

func resultKey(itemID, condition string) string {
	return fmt.Sprintf("price:%s:%s", itemID, condition)
}

// GetPriceResult returns the cached result for (item, condition), or nil on
// a miss. Unmarshal failures count as a miss, not an error.
func (a *Adapter) GetPriceResult(ctx context.Context, itemID, condition string) (*models.PriceResult, error) {
	data, err := a.client.Get(ctx, resultKey(itemID, condition)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var result models.PriceResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, nil
	}
	return &result, nil
}

// SetPriceResult stores a result with the given TTL
func (a *Adapter) SetPriceResult(ctx context.Context, itemID, condition string, result models.PriceResult, ttl time.Duration) error {
	data, err := json.Marshal(result)
	if err != nil {
		return err
	}
	return a.client.Set(ctx, resultKey(itemID, condition), data, ttl).Err()
}

// Close closes the Redis connection
func (a *Adapter) Close() error {
	return a.client.Close()
}
