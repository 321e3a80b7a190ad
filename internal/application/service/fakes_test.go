package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"pricewatch/internal/domain/model"
	"pricewatch/internal/infrastructure/storage/memory"
)

// fakeCatalog serves a fixed record list in pages.
type fakeCatalog struct {
	mu        sync.Mutex
	records   []model.CatalogRecord
	failPage  int // page number that returns an error, 0 = never
	pageCalls []int

	search      map[string]*model.CatalogRecord // name -> match
	searchErr   map[string]error
	searchCalls int
}

func (f *fakeCatalog) ListCards(ctx context.Context, page, pageSize int) (*model.CatalogPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pageCalls = append(f.pageCalls, page)
	if page == f.failPage {
		return nil, fmt.Errorf("boom on page %d", page)
	}
	start := (page - 1) * pageSize
	end := start + pageSize
	if start > len(f.records) {
		start = len(f.records)
	}
	if end > len(f.records) {
		end = len(f.records)
	}
	recs := append([]model.CatalogRecord(nil), f.records[start:end]...)
	return &model.CatalogPage{Records: recs, Page: page, PageSize: pageSize, TotalCount: len(f.records)}, nil
}

func (f *fakeCatalog) SearchCard(ctx context.Context, name, setName string) (*model.CatalogRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.searchCalls++
	if err := f.searchErr[name]; err != nil {
		return nil, err
	}
	rec, ok := f.search[name]
	if !ok {
		return nil, nil
	}
	cp := *rec
	return &cp, nil
}

func makeRecords(n int, price float64) []model.CatalogRecord {
	out := make([]model.CatalogRecord, n)
	for i := range out {
		out[i] = model.CatalogRecord{
			ExternalID: fmt.Sprintf("c%03d", i),
			Name:       fmt.Sprintf("Card %03d", i),
			SetName:    "Test Set",
			Number:     fmt.Sprint(i),
			Price:      price,
		}
	}
	return out
}

// stepClock advances by step on every call.
func stepClock(start time.Time, step time.Duration) Clock {
	var mu sync.Mutex
	now := start
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t := now
		now = now.Add(step)
		return t
	}
}

func fixedClock(t time.Time) Clock {
	return func() time.Time { return t }
}

var base = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

// seedItem inserts a card with one history entry and returns it.
func seedItem(ctx context.Context, s *memory.Store, name string, price float64, at time.Time) *model.Item {
	u := NewUpserter(s, s)
	u.Clock = fixedClock(at)
	res, err := u.Upsert(ctx, UpsertInput{Kind: model.KindCard, Name: name, SetName: "Test Set", Number: "1", Price: price})
	if err != nil {
		panic(err)
	}
	return res.Item
}

var errBoom = errors.New("boom")
