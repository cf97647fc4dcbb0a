// Package memory is an in-process CachePort used when Redis is disabled.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/FalkoBaeker/tonie-app/internal/domain/models"
)

type entry struct {
	result    models.PriceResult
	expiresAt time.Time
}

type Cache struct {
	mu      sync.Mutex
	entries map[string]entry
}

func New() *Cache {
	return &Cache{entries: make(map[string]entry)}
}

func key(itemID, condition string) string {
	return itemID + ":" + condition
}

func (c *Cache) GetPriceResult(ctx context.Context, itemID, condition string) (*models.PriceResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key(itemID, condition)]
	if !ok || time.Now().After(e.expiresAt) {
		delete(c.entries, key(itemID, condition))
		return nil, nil
	}
	result := e.result
	return &result, nil
}

func (c *Cache) SetPriceResult(ctx context.Context, itemID, condition string, result models.PriceResult, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key(itemID, condition)] = entry{result: result, expiresAt: time.Now().Add(ttl)}
	return nil
}

func (c *Cache) Close() error { return nil }
