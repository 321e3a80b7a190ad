package service

import (
	"context"
	"math"
	"testing"
	"time"

	"pricewatch/internal/domain/model"
	"pricewatch/internal/infrastructure/storage/memory"
)

func snap(id string, price float64) *model.DailySnapshot {
	return &model.DailySnapshot{ItemID: id, Kind: model.KindCard, ItemName: id, Price: price}
}

func TestRankMovers(t *testing.T) {
	today := []*model.DailySnapshot{
		snap("a", 11),  // +10%
		snap("b", 5),   // -50%
		snap("c", 30),  // +200%
		snap("d", 10),  // yesterday was 0
		snap("e", 10),  // no snapshot yesterday
		snap("f", 9),   // -10%, ties with a
		snap("g", math.Inf(1)),
	}
	yesterday := []*model.DailySnapshot{
		snap("a", 10), snap("b", 10), snap("c", 10), snap("d", 0), snap("f", 10), snap("g", 10),
	}

	got := RankMovers(today, yesterday, 0)
	want := []string{"c", "b", "a", "f"}
	if len(got) != len(want) {
		t.Fatalf("expected %d movers, got %d", len(want), len(got))
	}
	for i, id := range want {
		if got[i].Item.ID != id {
			t.Errorf("rank %d = %s, want %s", i, got[i].Item.ID, id)
		}
	}
	if math.Abs(got[1].PercentChange-(-50)) > 1e-9 {
		t.Errorf("b change = %v, want -50", got[1].PercentChange)
	}

	if top := RankMovers(today, yesterday, 2); len(top) != 2 || top[0].Item.ID != "c" {
		t.Errorf("top 2 wrong: %v", top)
	}
}

func TestSnapshotRunOncePerDay(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	seedCards(ctx, store, 3)

	svc := NewSnapshotService(store, store, SnapshotConfig{})
	svc.Clock = fixedClock(base)

	res, err := svc.Run(ctx)
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	if res.Updated != 3 {
		t.Errorf("expected 3 snapshots, got %d", res.Updated)
	}

	res, err = svc.Run(ctx)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if res.Updated != 0 {
		t.Errorf("second run the same day must write nothing, got %d", res.Updated)
	}
	if got := res.Details[string(model.KindCard)].(map[string]int)["skipped"]; got != 3 {
		t.Errorf("expected 3 skipped, got %d", got)
	}

	snaps, _ := store.ListSnapshots(ctx, model.DayKey(base), "")
	if len(snaps) != 3 {
		t.Errorf("expected 3 stored snapshots, got %d", len(snaps))
	}
}

func TestSnapshotRespectsCaps(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	seedCards(ctx, store, 5)
	u := NewUpserter(store, store)
	for _, name := range []string{"Box A", "Box B"} {
		if _, err := u.Upsert(ctx, UpsertInput{Kind: model.KindProduct, Name: name, SetName: "S", ProductType: "Booster Box", Price: 100}); err != nil {
			t.Fatal(err)
		}
	}

	svc := NewSnapshotService(store, store, SnapshotConfig{BatchSize: 2, MaxCards: 3, MaxProducts: 1})
	svc.Clock = fixedClock(base)
	res, err := svc.Run(ctx)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if res.Updated != 4 {
		t.Errorf("expected 3 cards and 1 product, got %d", res.Updated)
	}
	products, _ := store.ListSnapshots(ctx, model.DayKey(base), model.KindProduct)
	if len(products) != 1 {
		t.Errorf("expected 1 product snapshot, got %d", len(products))
	}
}

func TestSnapshotPrune(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	for _, d := range []string{"2025-01-01", "2025-02-08", "2025-03-01"} {
		store.InsertSnapshot(ctx, &model.DailySnapshot{ItemID: "x", Kind: model.KindCard, Price: 1, SnapshotDate: d})
	}

	svc := NewSnapshotService(store, store, SnapshotConfig{RetentionDays: 30})
	svc.Clock = fixedClock(base)
	res, err := svc.Prune(ctx)
	if err != nil {
		t.Fatalf("Prune failed: %v", err)
	}
	if res.Updated != 1 || res.Details["cutoff"] != "2025-02-08" {
		t.Errorf("unexpected prune result %+v", res)
	}
	left, _ := store.ListSnapshots(ctx, "2025-02-08", "")
	if len(left) != 1 {
		t.Errorf("cutoff day must be kept")
	}
}

func TestTopMoversJoinsCurrentItems(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	items := seedCards(ctx, store, 3)

	today, yesterday := model.DayKey(base), model.DayKey(base.Add(-24*time.Hour))
	for i, it := range items {
		store.InsertSnapshot(ctx, &model.DailySnapshot{ItemID: it.ID, Kind: it.Kind, ItemName: it.Name, Price: 10, SnapshotDate: yesterday})
		store.InsertSnapshot(ctx, &model.DailySnapshot{ItemID: it.ID, Kind: it.Kind, ItemName: it.Name, Price: float64(10 + 5*i), SnapshotDate: today})
	}
	// a snapshot whose item has since been deleted
	store.InsertSnapshot(ctx, &model.DailySnapshot{ItemID: "gone", Kind: model.KindCard, Price: 10, SnapshotDate: yesterday})
	store.InsertSnapshot(ctx, &model.DailySnapshot{ItemID: "gone", Kind: model.KindCard, Price: 100, SnapshotDate: today})

	svc := NewSnapshotService(store, store, SnapshotConfig{})
	svc.Clock = fixedClock(base)
	movers, err := svc.TopMovers(ctx, "", 10)
	if err != nil {
		t.Fatalf("TopMovers failed: %v", err)
	}
	if len(movers) != 3 {
		t.Fatalf("expected 3 movers, got %d", len(movers))
	}
	if movers[0].Item.ID != items[2].ID || movers[0].Item.SetName != "Test Set" {
		t.Errorf("expected the full item of the biggest mover, got %+v", movers[0].Item)
	}
	if movers[0].PercentChange != 100 {
		t.Errorf("expected +100%%, got %v", movers[0].PercentChange)
	}

	none, err := svc.TopMovers(ctx, model.KindProduct, 10)
	if err != nil || len(none) != 0 || none == nil {
		t.Errorf("expected empty non-nil ranking, got %v, %v", none, err)
	}
}
