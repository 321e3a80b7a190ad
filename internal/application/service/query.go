package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"pricewatch/internal/application/port"
	"pricewatch/internal/domain/model"
)

const (
	defaultListLimit    = 50
	maxListLimit        = 500
	defaultHistoryLimit = 100
	maxHistoryLimit     = 1000

	// entries read to find two valid ones for the recent change
	changeWindow = 5
	// extra entries read to cover simulated observations not yet due
	futureSlack = 2
)

// QueryService answers the read side used by the presentation layer.
// Malformed history, and simulated entries stamped after now, are filtered,
// never returned.
type QueryService struct {
	store  port.Store
	movers *MoversRefresher
	Clock  Clock
}

func NewQueryService(store port.Store, movers *MoversRefresher) *QueryService {
	return &QueryService{store: store, movers: movers}
}

func clampLimit(n, def, max int) int {
	if n <= 0 {
		return def
	}
	if n > max {
		return max
	}
	return n
}

// Items pages items by id and decorates them with their recent change.
func (q *QueryService) Items(ctx context.Context, kind model.ItemKind, after string, limit int) ([]*model.ItemWithChange, error) {
	items, err := q.store.ListItemsAfter(ctx, kind, after, clampLimit(limit, defaultListLimit, maxListLimit))
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	return q.withChange(ctx, items)
}

// RecentlyUpdated lists items whose last update is not in the future, newest
// first. Simulated observations can be stamped ahead of now and stay hidden
// until their time comes.
func (q *QueryService) RecentlyUpdated(ctx context.Context, kind model.ItemKind, limit int) ([]*model.ItemWithChange, error) {
	items, err := q.store.ListRecentlyUpdated(ctx, kind, q.Clock.Now(), clampLimit(limit, defaultListLimit, maxListLimit))
	if err != nil {
		return nil, fmt.Errorf("list recent items: %w", err)
	}
	return q.withChange(ctx, items)
}

func (q *QueryService) withChange(ctx context.Context, items []*model.Item) ([]*model.ItemWithChange, error) {
	now := q.Clock.Now()
	out := make([]*model.ItemWithChange, 0, len(items))
	for _, it := range items {
		recent, err := q.store.RecentHistory(ctx, it.ID, changeWindow+futureSlack)
		if err != nil {
			return nil, fmt.Errorf("recent history %s: %w", it.ID, err)
		}
		pct, ok := RecentChange(notAfter(recent, now))
		out = append(out, &model.ItemWithChange{Item: it, PercentChange: pct, HasChange: ok})
	}
	return out, nil
}

// RecentChange returns the percent change between the two most recent valid
// entries of an ascending slice.
func RecentChange(entries []*model.PriceHistoryEntry) (float64, bool) {
	valid := filterHistory(entries)
	if len(valid) < 2 {
		return 0, false
	}
	prev, last := valid[len(valid)-2].Price, valid[len(valid)-1].Price
	if prev <= 0 {
		return 0, false
	}
	pct := (last - prev) / prev * 100
	if math.IsNaN(pct) || math.IsInf(pct, 0) {
		return 0, false
	}
	return pct, true
}

// History returns the newest limit entries of an item, ascending.
func (q *QueryService) History(ctx context.Context, itemID string, limit int) ([]*model.PriceHistoryEntry, error) {
	limit = clampLimit(limit, defaultHistoryLimit, maxHistoryLimit)
	entries, err := q.store.RecentHistory(ctx, itemID, limit+futureSlack)
	if err != nil {
		return nil, fmt.Errorf("history %s: %w", itemID, err)
	}
	entries = filterHistory(notAfter(entries, q.Clock.Now()))
	if len(entries) > limit {
		entries = entries[len(entries)-limit:]
	}
	return entries, nil
}

func (q *QueryService) Item(ctx context.Context, id string) (*model.Item, error) {
	items, err := q.store.GetItems(ctx, []string{id})
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, model.ErrNotFound
	}
	return items[0], nil
}

func (q *QueryService) Maintenance(ctx context.Context) (*model.MaintenanceMode, error) {
	return q.store.GetMaintenance(ctx)
}

func (q *QueryService) Movers(ctx context.Context, kind model.ItemKind) ([]*model.Mover, error) {
	return q.movers.Movers(ctx, kind)
}

// notAfter drops entries recorded after now.
func notAfter(in []*model.PriceHistoryEntry, now time.Time) []*model.PriceHistoryEntry {
	out := make([]*model.PriceHistoryEntry, 0, len(in))
	for _, e := range in {
		if e != nil && !e.RecordedAt.After(now) {
			out = append(out, e)
		}
	}
	return out
}

func filterHistory(in []*model.PriceHistoryEntry) []*model.PriceHistoryEntry {
	out := make([]*model.PriceHistoryEntry, 0, len(in))
	for _, e := range in {
		if e.Valid() {
			out = append(out, e)
		}
	}
	return out
}
