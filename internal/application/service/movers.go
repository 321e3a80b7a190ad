package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"pricewatch/internal/application/port"
	"pricewatch/internal/domain/model"
)

// moverKinds are the rankings kept warm; "" is the combined ranking.
var moverKinds = []model.ItemKind{"", model.KindCard, model.KindProduct}

// MoversRefresher keeps the day-over-day ranking in the movers cache.
type MoversRefresher struct {
	snapshots *SnapshotService
	cache     port.MoversCache
	topK      int
	ttl       time.Duration
	Clock     Clock
}

func NewMoversRefresher(snapshots *SnapshotService, cache port.MoversCache, topK int, ttl time.Duration) *MoversRefresher {
	if topK <= 0 {
		topK = 10
	}
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &MoversRefresher{snapshots: snapshots, cache: cache, topK: topK, ttl: ttl}
}

// Run recomputes and caches every ranking.
func (m *MoversRefresher) Run(ctx context.Context) (*model.JobResult, error) {
	res := startResult(JobMoversRefresh, m.Clock)
	errs := NewErrorList(DefaultMaxErrors)

	for _, kind := range moverKinds {
		movers, err := m.snapshots.TopMovers(ctx, kind, m.topK)
		if err != nil {
			err = fmt.Errorf("rank movers %q: %w", kind, err)
			return finishResult(res, errs, err, m.Clock), err
		}
		if err := m.cache.SetMovers(ctx, kind, movers, m.ttl); err != nil {
			errs.Addf("cache movers %q: %v", kind, err)
			continue
		}
		res.Updated += len(movers)
	}
	return finishResult(res, errs, nil, m.Clock), nil
}

// Movers serves the ranking from cache, computing and storing it on a miss.
// A cache failure degrades to computing the ranking directly.
func (m *MoversRefresher) Movers(ctx context.Context, kind model.ItemKind) ([]*model.Mover, error) {
	movers, ok, err := m.cache.GetMovers(ctx, kind)
	if err != nil {
		log.Warn().Err(err).Str("kind", string(kind)).Msg("movers cache read failed")
	}
	if ok {
		return movers, nil
	}

	movers, err = m.snapshots.TopMovers(ctx, kind, m.topK)
	if err != nil {
		return nil, err
	}
	if err := m.cache.SetMovers(ctx, kind, movers, m.ttl); err != nil {
		log.Warn().Err(err).Str("kind", string(kind)).Msg("movers cache write failed")
	}
	return movers, nil
}
