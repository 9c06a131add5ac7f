// Package cache holds the last-known quote per symbol. Writes come only
// from the active data source; reads come from valuation and chart logic.
// Updates are last-write-wins per symbol.
package cache

import (
	"context"
	"errors"
	"sync"

	"portfolio-simulator/internal/models"
)

var ErrNotFound = errors.New("no quote cached for symbol")

type PriceCache interface {
	Set(ctx context.Context, quote models.Quote) error
	Get(ctx context.Context, symbol string) (models.Quote, error)
}

// MemCache is the default in-process PriceCache.
type MemCache struct {
	mu     sync.RWMutex
	quotes map[string]models.Quote
}

func NewMemCache() *MemCache {
	return &MemCache{quotes: make(map[string]models.Quote)}
}

func (c *MemCache) Set(_ context.Context, quote models.Quote) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.quotes[quote.Symbol] = quote
	return nil
}

func (c *MemCache) Get(_ context.Context, symbol string) (models.Quote, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	q, ok := c.quotes[symbol]
	if !ok {
		return models.Quote{}, ErrNotFound
	}
	return q, nil
}
