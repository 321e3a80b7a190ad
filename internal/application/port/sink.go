package port

import (
	"context"
	"time"

	"pricewatch/internal/domain/model"
)

// ResultSink receives the outcome of every job run.
type ResultSink interface {
	Publish(ctx context.Context, res *model.JobResult) error
}

// MoversCache stores precomputed day-over-day rankings.
type MoversCache interface {
	// GetMovers returns ok=false on a miss.
	GetMovers(ctx context.Context, kind model.ItemKind) (movers []*model.Mover, ok bool, err error)
	SetMovers(ctx context.Context, kind model.ItemKind, movers []*model.Mover, ttl time.Duration) error
}
