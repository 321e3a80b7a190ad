package noop

import (
	"context"
	"time"

	"pricewatch/internal/application/port"
	"pricewatch/internal/domain/model"
)

// Cache is the movers cache used when Redis is disabled: every read misses.
type Cache struct{}

func NewCache() port.MoversCache { return &Cache{} }

func (c *Cache) GetMovers(ctx context.Context, kind model.ItemKind) ([]*model.Mover, bool, error) {
	return nil, false, nil
}

func (c *Cache) SetMovers(ctx context.Context, kind model.ItemKind, movers []*model.Mover, ttl time.Duration) error {
	return nil
}
