package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"pricewatch/internal/application/port"
	"pricewatch/internal/domain/model"
)

// Store is an in-memory implementation of port.Store, used for dry runs and tests.
type Store struct {
	mu sync.RWMutex

	items       map[string]*model.Item // id -> item
	keys        map[string]string      // key -> id
	history     map[string][]*model.PriceHistoryEntry
	nextHistory int64
	snapshots   map[string]*model.DailySnapshot // itemID|date -> snapshot
	nextSnap    int64
	progress    map[string]*model.UpdateProgress
	maintenance *model.MaintenanceMode
}

// New creates a new in-memory store
func New() *Store {
	return &Store{
		items:     make(map[string]*model.Item),
		keys:      make(map[string]string),
		history:   make(map[string][]*model.PriceHistoryEntry),
		snapshots: make(map[string]*model.DailySnapshot),
		progress:  make(map[string]*model.UpdateProgress),
	}
}

func (s *Store) Close() error { return nil }

// ========== Items ==========

func (s *Store) FindItemByKey(ctx context.Context, key string) (*model.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.keys[key]
	if !ok {
		return nil, model.ErrNotFound
	}
	cp := *s.items[id]
	return &cp, nil
}

func (s *Store) InsertItem(ctx context.Context, item *model.Item) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.keys[item.Key]; ok {
		return false, nil
	}
	cp := *item
	s.items[item.ID] = &cp
	s.keys[item.Key] = item.ID
	return true, nil
}

func (s *Store) UpdateItemPrice(ctx context.Context, id string, price float64, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.items[id]
	if !ok {
		return model.ErrNotFound
	}
	it.CurrentPrice = price
	it.LastUpdated = at
	return nil
}

func (s *Store) GetItems(ctx context.Context, ids []string) ([]*model.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*model.Item, 0, len(ids))
	for _, id := range ids {
		if it, ok := s.items[id]; ok {
			cp := *it
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *Store) ListItemsAfter(ctx context.Context, kind model.ItemKind, afterID string, limit int) ([]*model.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*model.Item
	for _, it := range s.items {
		if kind != "" && it.Kind != kind {
			continue
		}
		if it.ID <= afterID {
			continue
		}
		cp := *it
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) ListRecentlyUpdated(ctx context.Context, kind model.ItemKind, before time.Time, limit int) ([]*model.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*model.Item
	for _, it := range s.items {
		if kind != "" && it.Kind != kind {
			continue
		}
		if it.LastUpdated.After(before) {
			continue
		}
		cp := *it
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LastUpdated.After(out[j].LastUpdated) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) CountItems(ctx context.Context, kind model.ItemKind) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if kind == "" {
		return len(s.items), nil
	}
	n := 0
	for _, it := range s.items {
		if it.Kind == kind {
			n++
		}
	}
	return n, nil
}

func (s *Store) DeleteItem(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.items[id]
	if !ok {
		return model.ErrNotFound
	}
	delete(s.keys, it.Key)
	delete(s.items, id)
	delete(s.history, id)
	for k, snap := range s.snapshots {
		if snap.ItemID == id {
			delete(s.snapshots, k)
		}
	}
	return nil
}

// ========== History ==========

func (s *Store) AppendHistory(ctx context.Context, entry *model.PriceHistoryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[entry.ItemID]; !ok {
		return model.ErrNotFound
	}
	s.nextHistory++
	entry.ID = s.nextHistory
	cp := *entry
	s.history[entry.ItemID] = append(s.history[entry.ItemID], &cp)
	return nil
}

func (s *Store) sortedHistory(itemID string) []*model.PriceHistoryEntry {
	src := s.history[itemID]
	out := make([]*model.PriceHistoryEntry, len(src))
	for i, e := range src {
		cp := *e
		out[i] = &cp
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].RecordedAt.Equal(out[j].RecordedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].RecordedAt.Before(out[j].RecordedAt)
	})
	return out
}

func (s *Store) ListHistory(ctx context.Context, itemID string) ([]*model.PriceHistoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sortedHistory(itemID), nil
}

func (s *Store) RecentHistory(ctx context.Context, itemID string, limit int) ([]*model.PriceHistoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	all := s.sortedHistory(itemID)
	if limit > 0 && len(all) > limit {
		all = all[len(all)-limit:]
	}
	return all, nil
}

func (s *Store) DeleteHistory(ctx context.Context, ids []int64) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	drop := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		drop[id] = struct{}{}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for itemID, entries := range s.history {
		kept := entries[:0]
		for _, e := range entries {
			if _, ok := drop[e.ID]; ok {
				n++
				continue
			}
			kept = append(kept, e)
		}
		s.history[itemID] = kept
	}
	return n, nil
}

func (s *Store) DeleteHistoryBefore(ctx context.Context, before time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for itemID := range s.history {
		sorted := s.sortedHistory(itemID)
		if len(sorted) == 0 {
			continue
		}
		latest := sorted[len(sorted)-1].RecordedAt
		kept := make([]*model.PriceHistoryEntry, 0, len(sorted))
		for _, e := range sorted {
			if e.RecordedAt.Before(before) && !e.RecordedAt.Equal(latest) {
				n++
				continue
			}
			kept = append(kept, e)
		}
		s.history[itemID] = kept
	}
	return n, nil
}

// ========== Snapshots ==========

func snapKey(itemID, date string) string { return itemID + "|" + date }

func (s *Store) HasSnapshot(ctx context.Context, itemID, date string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.snapshots[snapKey(itemID, date)]
	return ok, nil
}

func (s *Store) InsertSnapshot(ctx context.Context, snap *model.DailySnapshot) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := snapKey(snap.ItemID, snap.SnapshotDate)
	if _, ok := s.snapshots[k]; ok {
		return false, nil
	}
	s.nextSnap++
	snap.ID = s.nextSnap
	cp := *snap
	s.snapshots[k] = &cp
	return true, nil
}

func (s *Store) ListSnapshots(ctx context.Context, date string, kind model.ItemKind) ([]*model.DailySnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*model.DailySnapshot
	for _, snap := range s.snapshots {
		if snap.SnapshotDate != date {
			continue
		}
		if kind != "" && snap.Kind != kind {
			continue
		}
		cp := *snap
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) DeleteSnapshotsBefore(ctx context.Context, date string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for k, snap := range s.snapshots {
		if snap.SnapshotDate < date {
			delete(s.snapshots, k)
			n++
		}
	}
	return n, nil
}

// ========== Progress / Maintenance ==========

func (s *Store) GetProgress(ctx context.Context, purpose string) (*model.UpdateProgress, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.progress[purpose]
	if !ok {
		return &model.UpdateProgress{Purpose: purpose}, nil
	}
	cp := *p
	return &cp, nil
}

func (s *Store) SaveProgress(ctx context.Context, p *model.UpdateProgress) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *p
	s.progress[p.Purpose] = &cp
	return nil
}

func (s *Store) GetMaintenance(ctx context.Context) (*model.MaintenanceMode, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.maintenance == nil {
		return &model.MaintenanceMode{}, nil
	}
	cp := *s.maintenance
	return &cp, nil
}

func (s *Store) SaveMaintenance(ctx context.Context, m *model.MaintenanceMode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *m
	s.maintenance = &cp
	return nil
}

var _ port.Store = (*Store)(nil)
