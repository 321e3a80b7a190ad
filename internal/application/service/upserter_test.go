package service

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"pricewatch/internal/domain/model"
	"pricewatch/internal/infrastructure/storage/memory"
)

func TestUpsertCreatesThenUpdates(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	u := NewUpserter(store, store)
	u.Clock = stepClock(base, time.Minute)

	in := UpsertInput{Kind: model.KindCard, Name: "Charizard", SetName: "Base", Number: "4", Price: 300}
	first, err := u.Upsert(ctx, in)
	if err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	if !first.Created {
		t.Errorf("expected first upsert to create")
	}

	in.Name = " charizard "
	in.Price = 320
	second, err := u.Upsert(ctx, in)
	if err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	if second.Created || second.Item.ID != first.Item.ID {
		t.Errorf("expected update of %s, got %+v", first.Item.ID, second)
	}

	n, _ := store.CountItems(ctx, "")
	if n != 1 {
		t.Errorf("expected 1 item, got %d", n)
	}
	hist, _ := store.ListHistory(ctx, first.Item.ID)
	if len(hist) != 2 {
		t.Fatalf("expected one history entry per upsert, got %d", len(hist))
	}
	if hist[1].Price != 320 {
		t.Errorf("expected latest price 320, got %v", hist[1].Price)
	}
	items, _ := store.GetItems(ctx, []string{first.Item.ID})
	if items[0].CurrentPrice != 320 || !items[0].LastUpdated.Equal(base.Add(time.Minute)) {
		t.Errorf("item not patched: %+v", items[0])
	}
}

func TestUpsertForcedTimestamp(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	u := NewUpserter(store, store)

	at := base.Add(42 * time.Second)
	res, err := u.Upsert(ctx, UpsertInput{Kind: model.KindProduct, Name: "Booster Box", SetName: "Base", ProductType: "box", Price: 100, At: &at})
	if err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	if !res.Item.LastUpdated.Equal(at) {
		t.Errorf("expected forced timestamp, got %v", res.Item.LastUpdated)
	}
	hist, _ := store.ListHistory(ctx, res.Item.ID)
	if len(hist) != 1 || !hist[0].RecordedAt.Equal(at) {
		t.Errorf("unexpected history: %v", hist)
	}
}

func TestUpsertRejectsInvalid(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	u := NewUpserter(store, store)

	bad := []UpsertInput{
		{Kind: model.KindCard, Name: "", Price: 1},
		{Kind: model.KindCard, Name: "X", Price: -1},
		{Kind: model.KindCard, Name: "X", Price: math.NaN()},
		{Kind: "deck", Name: "X", Price: 1},
	}
	for _, in := range bad {
		if _, err := u.Upsert(ctx, in); !errors.Is(err, model.ErrInvalidItem) {
			t.Errorf("expected ErrInvalidItem for %+v, got %v", in, err)
		}
	}
	if n, _ := store.CountItems(ctx, ""); n != 0 {
		t.Errorf("invalid input must not be stored, got %d items", n)
	}
}

func TestUpsertConcurrentSameKey(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	u := NewUpserter(store, store)

	const n = 8
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := u.Upsert(ctx, UpsertInput{Kind: model.KindCard, Name: "Mew", SetName: "Promo", Number: "8", Price: float64(i + 1)})
			if err != nil {
				t.Errorf("Upsert failed: %v", err)
			}
		}(i)
	}
	wg.Wait()

	items, _ := store.ListItemsAfter(ctx, "", "", 10)
	if len(items) != 1 {
		t.Fatalf("expected a single item, got %d", len(items))
	}
	hist, _ := store.ListHistory(ctx, items[0].ID)
	if len(hist) != n {
		t.Errorf("expected %d history entries, got %d", n, len(hist))
	}
}
