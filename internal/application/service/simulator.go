package service

import (
	"context"
	"fmt"
	"time"

	"pricewatch/internal/application/port"
	"pricewatch/internal/domain/model"
)

type SimulatorConfig struct {
	BatchSize int           // items touched per invocation
	Interval  time.Duration // refresh cadence
	Buffer    time.Duration // kept free at the end of the interval
}

func (c *SimulatorConfig) applyDefaults() {
	if c.BatchSize <= 0 {
		c.BatchSize = 30
	}
	if c.Interval <= 0 {
		c.Interval = 2 * time.Minute
	}
	if c.Buffer < 0 || c.Buffer >= c.Interval {
		c.Buffer = 10 * time.Second
	}
}

// SimulateStats summarises one simulator invocation.
type SimulateStats struct {
	Touched int           `json:"touched"`
	Window  time.Duration `json:"window"`
	Wrapped bool          `json:"wrapped"`
	Errors  *ErrorList    `json:"-"`
}

// Simulator re-observes a rotating batch of known items at their stored price
// with staggered timestamps, so the recently-updated feed keeps moving between
// real price changes.
type Simulator struct {
	items    port.ItemRepository
	progress port.ProgressRepository
	upserter *Upserter
	cfg      SimulatorConfig
	Clock    Clock
}

func NewSimulator(items port.ItemRepository, progress port.ProgressRepository, upserter *Upserter, cfg SimulatorConfig) *Simulator {
	cfg.applyDefaults()
	return &Simulator{items: items, progress: progress, upserter: upserter, cfg: cfg}
}

// StaggeredTimestamps spreads n timestamps evenly over [start, start+window).
func StaggeredTimestamps(start time.Time, window time.Duration, n int) []time.Time {
	if n <= 0 {
		return nil
	}
	if window < 0 {
		window = 0
	}
	step := window / time.Duration(n)
	out := make([]time.Time, n)
	for i := range out {
		out[i] = start.Add(step * time.Duration(i))
	}
	return out
}

// Run touches one batch. startedAt is when the enclosing refresh invocation
// began; the timestamps cover what is left of the interval after it.
func (s *Simulator) Run(ctx context.Context, startedAt time.Time) (*SimulateStats, error) {
	stats := &SimulateStats{Errors: NewErrorList(DefaultMaxErrors)}

	prog, err := s.progress.GetProgress(ctx, model.ProgressLiveUpdate)
	if err != nil {
		return nil, fmt.Errorf("load live cursor: %w", err)
	}
	batch, next, err := nextBatch(ctx, s.items, "", prog.CursorValue(), s.cfg.BatchSize)
	if err != nil {
		return nil, fmt.Errorf("load live batch: %w", err)
	}
	stats.Wrapped = next == nil

	now := s.Clock.Now()
	window := s.cfg.Interval - s.cfg.Buffer - now.Sub(startedAt)
	if window < 0 {
		window = 0
	}
	stats.Window = window
	stamps := StaggeredTimestamps(now, window, len(batch))

	for i, it := range batch {
		if err := ctx.Err(); err != nil {
			stats.Errors.Add(err)
			break
		}
		in := itemInput(it, it.CurrentPrice)
		in.At = &stamps[i]
		if _, err := s.upserter.Upsert(ctx, in); err != nil {
			stats.Errors.Addf("%s: %v", it.ID, err)
			continue
		}
		stats.Touched++
	}

	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := s.progress.SaveProgress(saveCtx, &model.UpdateProgress{
		Purpose:     model.ProgressLiveUpdate,
		Cursor:      next,
		LastUpdated: now,
	}); err != nil {
		return stats, fmt.Errorf("save live cursor: %w", err)
	}
	return stats, nil
}
