package service

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"pricewatch/internal/domain/model"
	"pricewatch/internal/infrastructure/storage/memory"
)

func hist(prices ...float64) []*model.PriceHistoryEntry {
	out := make([]*model.PriceHistoryEntry, len(prices))
	for i, p := range prices {
		out[i] = &model.PriceHistoryEntry{ID: int64(i + 1), Price: p, RecordedAt: base.Add(time.Duration(i) * time.Minute)}
	}
	return out
}

func TestRecentChange(t *testing.T) {
	tests := []struct {
		name    string
		entries []*model.PriceHistoryEntry
		want    float64
		ok      bool
	}{
		{"rise", hist(10, 12), 20, true},
		{"uses last two", hist(1, 10, 5), -50, true},
		{"skips malformed tail", hist(10, 12, math.NaN()), 20, true},
		{"skips malformed middle", hist(10, -1, 15), 50, true},
		{"single entry", hist(10), 0, false},
		{"empty", nil, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := RecentChange(tt.entries)
			if ok != tt.ok || math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("RecentChange = %v, %v; want %v, %v", got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestClampLimit(t *testing.T) {
	for _, tt := range []struct{ in, want int }{{0, 50}, {-3, 50}, {20, 20}, {501, 500}} {
		if got := clampLimit(tt.in, defaultListLimit, maxListLimit); got != tt.want {
			t.Errorf("clampLimit(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestQueryRecentlyUpdatedHidesFuture(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	past := seedItem(ctx, store, "Past", 10, base.Add(-time.Minute))
	seedItem(ctx, store, "Future", 10, base.Add(time.Minute))

	q := NewQueryService(store, nil)
	q.Clock = fixedClock(base)
	items, err := q.RecentlyUpdated(ctx, "", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 1 || items[0].ID != past.ID {
		t.Errorf("expected only the past item, got %d items", len(items))
	}
}

func TestQueryItemsCarryChange(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	it := seedItem(ctx, store, "A", 10, base)
	seedItem(ctx, store, "A", 15, base.Add(time.Minute))

	q := NewQueryService(store, nil)
	items, err := q.Items(ctx, model.KindCard, "", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 1 || items[0].ID != it.ID {
		t.Fatalf("expected one item, got %d", len(items))
	}
	if !items[0].HasChange || items[0].PercentChange != 50 {
		t.Errorf("expected +50%%, got %v (%v)", items[0].PercentChange, items[0].HasChange)
	}
}

func TestQueryHistoryFiltersMalformed(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	it := seedItem(ctx, store, "A", 10, base)
	store.AppendHistory(ctx, &model.PriceHistoryEntry{ItemID: it.ID, Price: -1, RecordedAt: base.Add(time.Minute)})
	store.AppendHistory(ctx, &model.PriceHistoryEntry{ItemID: it.ID, Price: 11, RecordedAt: base.Add(2 * time.Minute)})

	q := NewQueryService(store, nil)
	entries, err := q.History(ctx, it.ID, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Errorf("expected the malformed entry to be dropped, got %d entries", len(entries))
	}
}

func TestQueryItemNotFound(t *testing.T) {
	q := NewQueryService(memory.New(), nil)
	if _, err := q.Item(context.Background(), "missing"); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestQueryHidesEntriesNotYetDue(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	it := seedItem(ctx, store, "A", 10, base.Add(-time.Minute))
	seedItem(ctx, store, "A", 20, base.Add(-30*time.Second))
	// a simulated observation stamped inside the coming window
	seedItem(ctx, store, "A", 40, base.Add(45*time.Second))

	q := NewQueryService(store, nil)
	q.Clock = fixedClock(base)

	entries, err := q.History(ctx, it.ID, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 || entries[1].Price != 20 {
		t.Errorf("expected the two past entries, got %d", len(entries))
	}

	items, err := q.Items(ctx, "", "", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 1 {
		t.Fatalf("expected one item, got %d", len(items))
	}
	if items[0].PercentChange != 100 {
		t.Errorf("recent change must ignore the future entry, got %v", items[0].PercentChange)
	}

	limited, _ := q.History(ctx, it.ID, 1)
	if len(limited) != 1 || limited[0].Price != 20 {
		t.Errorf("limit must apply after filtering, got %v", limited)
	}
}
