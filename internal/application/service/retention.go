package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"pricewatch/internal/application/port"
	"pricewatch/internal/domain/model"
)

// HistoryRetention drops price history older than a fixed age. Each item's
// most recent entry is kept regardless of age.
type HistoryRetention struct {
	history port.HistoryRepository
	maxAge  time.Duration
	Clock   Clock
}

func NewHistoryRetention(history port.HistoryRepository, days int) *HistoryRetention {
	if days <= 0 {
		days = 90
	}
	return &HistoryRetention{history: history, maxAge: time.Duration(days) * 24 * time.Hour}
}

func (r *HistoryRetention) Run(ctx context.Context) (*model.JobResult, error) {
	res := startResult(JobHistoryRetention, r.Clock)
	cutoff := res.StartedAt.Add(-r.maxAge)
	res.Details["cutoff"] = cutoff

	n, err := r.history.DeleteHistoryBefore(ctx, cutoff)
	if err != nil {
		err = fmt.Errorf("delete history before %s: %w", cutoff.Format(time.RFC3339), err)
		return finishResult(res, nil, err, r.Clock), err
	}
	res.Updated = n
	log.Info().Int("deleted", n).Time("cutoff", cutoff).Msg("history retention complete")
	return finishResult(res, nil, nil, r.Clock), nil
}
