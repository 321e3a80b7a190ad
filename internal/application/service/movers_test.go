package service

import (
	"context"
	"testing"
	"time"

	"pricewatch/internal/domain/model"
	"pricewatch/internal/infrastructure/storage/memory"
)

type fakeMoversCache struct {
	data   map[model.ItemKind][]*model.Mover
	getErr error
	setErr error
	sets   int
}

func newFakeMoversCache() *fakeMoversCache {
	return &fakeMoversCache{data: map[model.ItemKind][]*model.Mover{}}
}

func (f *fakeMoversCache) GetMovers(ctx context.Context, kind model.ItemKind) ([]*model.Mover, bool, error) {
	if f.getErr != nil {
		return nil, false, f.getErr
	}
	m, ok := f.data[kind]
	return m, ok, nil
}

func (f *fakeMoversCache) SetMovers(ctx context.Context, kind model.ItemKind, movers []*model.Mover, ttl time.Duration) error {
	f.sets++
	if f.setErr != nil {
		return f.setErr
	}
	f.data[kind] = movers
	return nil
}

func moversFixture(t *testing.T) (*memory.Store, *SnapshotService) {
	t.Helper()
	ctx := context.Background()
	store := memory.New()
	items := seedCards(ctx, store, 2)
	today, yesterday := model.DayKey(base), model.DayKey(base.Add(-24*time.Hour))
	for _, it := range items {
		store.InsertSnapshot(ctx, &model.DailySnapshot{ItemID: it.ID, Kind: it.Kind, Price: 10, SnapshotDate: yesterday})
		store.InsertSnapshot(ctx, &model.DailySnapshot{ItemID: it.ID, Kind: it.Kind, Price: 12, SnapshotDate: today})
	}
	svc := NewSnapshotService(store, store, SnapshotConfig{})
	svc.Clock = fixedClock(base)
	return store, svc
}

func TestMoversRefresherCachesEveryKind(t *testing.T) {
	_, snaps := moversFixture(t)
	cache := newFakeMoversCache()
	m := NewMoversRefresher(snaps, cache, 5, time.Minute)

	res, err := m.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if cache.sets != len(moverKinds) {
		t.Errorf("expected %d cache writes, got %d", len(moverKinds), cache.sets)
	}
	if len(cache.data[""]) != 2 || len(cache.data[model.KindCard]) != 2 || len(cache.data[model.KindProduct]) != 0 {
		t.Errorf("unexpected cached rankings %v", cache.data)
	}
	if res.Updated != 4 {
		t.Errorf("expected 4 cached rows, got %d", res.Updated)
	}
}

func TestMoversCacheAside(t *testing.T) {
	_, snaps := moversFixture(t)
	cache := newFakeMoversCache()
	m := NewMoversRefresher(snaps, cache, 5, time.Minute)
	ctx := context.Background()

	first, err := m.Movers(ctx, model.KindCard)
	if err != nil || len(first) != 2 {
		t.Fatalf("miss path: %v, %d movers", err, len(first))
	}
	if cache.sets != 1 {
		t.Fatalf("expected the miss to populate the cache")
	}

	cache.data[model.KindCard] = first[:1]
	hit, _ := m.Movers(ctx, model.KindCard)
	if len(hit) != 1 {
		t.Errorf("expected the cached ranking, got %d rows", len(hit))
	}
}

func TestMoversCacheFailureFallsBack(t *testing.T) {
	_, snaps := moversFixture(t)
	cache := newFakeMoversCache()
	cache.getErr = errBoom
	cache.setErr = errBoom
	m := NewMoversRefresher(snaps, cache, 5, time.Minute)

	movers, err := m.Movers(context.Background(), "")
	if err != nil {
		t.Fatalf("cache failure must not fail the read: %v", err)
	}
	if len(movers) != 2 {
		t.Errorf("expected computed ranking, got %d rows", len(movers))
	}

	res, err := m.Run(context.Background())
	if err != nil {
		t.Fatalf("cache write errors are per-kind, got %v", err)
	}
	if len(res.Errors) != len(moverKinds) {
		t.Errorf("expected one error per kind, got %v", res.Errors)
	}
}
