package service

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"pricewatch/internal/application/port"
	"pricewatch/internal/domain/model"
)

type SnapshotConfig struct {
	BatchSize     int
	MaxCards      int
	MaxProducts   int
	RetentionDays int
}

func (c *SnapshotConfig) applyDefaults() {
	if c.BatchSize <= 0 {
		c.BatchSize = 100
	}
	if c.MaxCards <= 0 {
		c.MaxCards = 500
	}
	if c.MaxProducts <= 0 {
		c.MaxProducts = 100
	}
	if c.RetentionDays <= 0 {
		c.RetentionDays = 365
	}
}

// SnapshotService writes one price sample per item per UTC day and ranks
// day-over-day movers from them.
type SnapshotService struct {
	items     port.ItemRepository
	snapshots port.SnapshotRepository
	cfg       SnapshotConfig
	Clock     Clock
}

func NewSnapshotService(items port.ItemRepository, snapshots port.SnapshotRepository, cfg SnapshotConfig) *SnapshotService {
	cfg.applyDefaults()
	return &SnapshotService{items: items, snapshots: snapshots, cfg: cfg}
}

// Run snapshots up to MaxCards cards and MaxProducts products. Items that
// already have today's snapshot are skipped, so a second run the same day
// writes nothing.
func (s *SnapshotService) Run(ctx context.Context) (*model.JobResult, error) {
	res := startResult(JobDailySnapshot, s.Clock)
	errs := NewErrorList(DefaultMaxErrors)
	today := model.DayKey(res.StartedAt)
	res.Details["date"] = today

	var err error
	for _, k := range []struct {
		kind  model.ItemKind
		limit int
	}{
		{model.KindCard, s.cfg.MaxCards},
		{model.KindProduct, s.cfg.MaxProducts},
	} {
		created, skipped, kerr := s.snapshotKind(ctx, k.kind, k.limit, today, errs)
		res.Updated += created
		res.Details[string(k.kind)] = map[string]int{"created": created, "skipped": skipped}
		if kerr != nil {
			err = kerr
			break
		}
	}
	return finishResult(res, errs, err, s.Clock), err
}

func (s *SnapshotService) snapshotKind(ctx context.Context, kind model.ItemKind, limit int, today string, errs *ErrorList) (created, skipped int, err error) {
	after := ""
	seen := 0
	for seen < limit {
		n := s.cfg.BatchSize
		if rest := limit - seen; rest < n {
			n = rest
		}
		batch, err := s.items.ListItemsAfter(ctx, kind, after, n)
		if err != nil {
			return created, skipped, fmt.Errorf("list %s items: %w", kind, err)
		}
		if len(batch) == 0 {
			break
		}
		for _, it := range batch {
			seen++
			ok, err := s.snapshotItem(ctx, it, today)
			if err != nil {
				errs.Addf("snapshot %s: %v", it.ID, err)
				continue
			}
			if ok {
				created++
			} else {
				skipped++
			}
		}
		if len(batch) < n {
			break
		}
		after = batch[len(batch)-1].ID
	}
	return created, skipped, nil
}

func (s *SnapshotService) snapshotItem(ctx context.Context, it *model.Item, today string) (bool, error) {
	exists, err := s.snapshots.HasSnapshot(ctx, it.ID, today)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}
	// the unique (item, date) constraint settles a race between two runs
	return s.snapshots.InsertSnapshot(ctx, &model.DailySnapshot{
		ItemID:       it.ID,
		Kind:         it.Kind,
		ItemName:     it.Name,
		Price:        it.CurrentPrice,
		SnapshotDate: today,
		RecordedAt:   s.Clock.Now(),
	})
}

// Prune deletes snapshots older than the retention period.
func (s *SnapshotService) Prune(ctx context.Context) (*model.JobResult, error) {
	res := startResult(JobSnapshotRetention, s.Clock)
	cutoff := model.DayKey(res.StartedAt.AddDate(0, 0, -s.cfg.RetentionDays))
	res.Details["cutoff"] = cutoff

	n, err := s.snapshots.DeleteSnapshotsBefore(ctx, cutoff)
	if err != nil {
		err = fmt.Errorf("delete snapshots before %s: %w", cutoff, err)
		return finishResult(res, nil, err, s.Clock), err
	}
	res.Updated = n
	log.Info().Int("deleted", n).Str("cutoff", cutoff).Msg("snapshot retention complete")
	return finishResult(res, nil, nil, s.Clock), nil
}

// TopMovers ranks items of kind ("" for all) by absolute day-over-day change
// and joins the top k with current item details.
func (s *SnapshotService) TopMovers(ctx context.Context, kind model.ItemKind, k int) ([]*model.Mover, error) {
	now := s.Clock.Now()
	today := model.DayKey(now)
	yesterday := model.DayKey(now.Add(-24 * time.Hour))

	var (
		wg             sync.WaitGroup
		todays, prev   []*model.DailySnapshot
		todayErr, yErr error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		todays, todayErr = s.snapshots.ListSnapshots(ctx, today, kind)
	}()
	go func() {
		defer wg.Done()
		prev, yErr = s.snapshots.ListSnapshots(ctx, yesterday, kind)
	}()
	wg.Wait()
	if todayErr != nil {
		return nil, fmt.Errorf("list snapshots %s: %w", today, todayErr)
	}
	if yErr != nil {
		return nil, fmt.Errorf("list snapshots %s: %w", yesterday, yErr)
	}

	ranked := RankMovers(todays, prev, k)
	if len(ranked) == 0 {
		return []*model.Mover{}, nil
	}
	ids := make([]string, len(ranked))
	for i, m := range ranked {
		ids[i] = m.Item.ID
	}
	items, err := s.items.GetItems(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load mover items: %w", err)
	}
	byID := make(map[string]*model.Item, len(items))
	for _, it := range items {
		byID[it.ID] = it
	}
	out := ranked[:0]
	for _, m := range ranked {
		// items deleted since the snapshot drop out of the ranking
		if it, ok := byID[m.Item.ID]; ok {
			m.Item = it
			out = append(out, m)
		}
	}
	return out, nil
}

// RankMovers computes percent change between matching snapshots. Items with
// no positive price yesterday, or a non-finite change, are skipped. The
// returned movers carry a stub Item holding the id and snapshot fields only.
func RankMovers(today, yesterday []*model.DailySnapshot, k int) []*model.Mover {
	prev := make(map[string]float64, len(yesterday))
	for _, s := range yesterday {
		prev[s.ItemID] = s.Price
	}

	var out []*model.Mover
	for _, s := range today {
		y, ok := prev[s.ItemID]
		if !ok || y <= 0 || math.IsNaN(y) || math.IsInf(y, 0) {
			continue
		}
		pct := (s.Price - y) / y * 100
		if math.IsNaN(pct) || math.IsInf(pct, 0) {
			continue
		}
		out = append(out, &model.Mover{
			Item:           &model.Item{ID: s.ItemID, Kind: s.Kind, Name: s.ItemName, CurrentPrice: s.Price},
			TodayPrice:     s.Price,
			YesterdayPrice: y,
			PercentChange:  pct,
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		ai, aj := math.Abs(out[i].PercentChange), math.Abs(out[j].PercentChange)
		if ai != aj {
			return ai > aj
		}
		return out[i].Item.ID < out[j].Item.ID
	})
	if k > 0 && len(out) > k {
		out = out[:k]
	}
	return out
}
