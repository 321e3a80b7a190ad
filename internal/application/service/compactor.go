package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"pricewatch/internal/application/port"
	"pricewatch/internal/domain/model"
)

type CompactorConfig struct {
	Threshold time.Duration // minimum gap between kept entries
	PageSize  int           // items per step
	StepDelay time.Duration
	MaxSteps  int
}

func (c *CompactorConfig) applyDefaults() {
	if c.Threshold <= 0 {
		c.Threshold = 10 * time.Minute
	}
	if c.PageSize <= 0 {
		c.PageSize = 50
	}
	if c.StepDelay < 0 {
		c.StepDelay = 0
	}
	if c.MaxSteps <= 0 {
		c.MaxSteps = 10000
	}
}

// CompactStep is the outcome of one bounded compaction step.
type CompactStep struct {
	Cursor         *string `json:"cursor"`
	Done           bool    `json:"done"`
	ItemsScanned   int     `json:"items_scanned"`
	ItemsCompacted int     `json:"items_compacted"`
	EntriesDeleted int     `json:"entries_deleted"`
}

// PlanCompaction returns the ids to delete from entries sorted ascending by
// time. The first and last entries always survive; an inner entry survives
// when it is at least threshold after the previous survivor.
func PlanCompaction(entries []*model.PriceHistoryEntry, threshold time.Duration) []int64 {
	if len(entries) <= 2 {
		return nil
	}
	var drop []int64
	lastKept := entries[0].RecordedAt
	for _, e := range entries[1 : len(entries)-1] {
		if e.RecordedAt.Sub(lastKept) >= threshold {
			lastKept = e.RecordedAt
			continue
		}
		drop = append(drop, e.ID)
	}
	return drop
}

// Compactor thins redundant price history.
type Compactor struct {
	items    port.ItemRepository
	history  port.HistoryRepository
	progress port.ProgressRepository
	cfg      CompactorConfig
	Clock    Clock
}

func NewCompactor(items port.ItemRepository, history port.HistoryRepository, progress port.ProgressRepository, cfg CompactorConfig) *Compactor {
	cfg.applyDefaults()
	return &Compactor{items: items, history: history, progress: progress, cfg: cfg}
}

// Step compacts one page of items after cursor. Per-item failures go to errs
// and do not stop the step.
func (c *Compactor) Step(ctx context.Context, cursor string, errs *ErrorList) (*CompactStep, error) {
	page, err := c.items.ListItemsAfter(ctx, "", cursor, c.cfg.PageSize+1)
	if err != nil {
		return nil, fmt.Errorf("list items after %q: %w", cursor, err)
	}
	step := &CompactStep{}
	if len(page) > c.cfg.PageSize {
		page = page[:c.cfg.PageSize]
		step.Cursor = model.StringCursor(page[len(page)-1].ID)
	} else {
		step.Done = true
	}

	for _, it := range page {
		step.ItemsScanned++
		entries, err := c.history.ListHistory(ctx, it.ID)
		if err != nil {
			errs.Addf("history %s: %v", it.ID, err)
			continue
		}
		drop := PlanCompaction(entries, c.cfg.Threshold)
		if len(drop) == 0 {
			continue
		}
		n, err := c.history.DeleteHistory(ctx, drop)
		if err != nil {
			errs.Addf("compact %s: %v", it.ID, err)
			continue
		}
		step.ItemsCompacted++
		step.EntriesDeleted += n
	}
	return step, nil
}

// Run drives Step until the sweep completes, persisting the historyCleanup
// cursor after every step so an interrupted sweep resumes where it stopped.
func (c *Compactor) Run(ctx context.Context) (*model.JobResult, error) {
	res := startResult(JobHistoryCleanup, c.Clock)
	errs := NewErrorList(DefaultMaxErrors)
	err := c.sweep(ctx, res, errs)
	return finishResult(res, errs, err, c.Clock), err
}

func (c *Compactor) sweep(ctx context.Context, res *model.JobResult, errs *ErrorList) error {
	prog, err := c.progress.GetProgress(ctx, model.ProgressHistoryCleanup)
	if err != nil {
		return fmt.Errorf("load cleanup cursor: %w", err)
	}
	cursor := prog.CursorValue()
	res.Details["resumed_from"] = cursor

	var steps, scanned, compacted int
	defer func() {
		res.Details["steps"] = steps
		res.Details["items_scanned"] = scanned
		res.Details["items_compacted"] = compacted
	}()

	for steps < c.cfg.MaxSteps {
		step, err := c.Step(ctx, cursor, errs)
		if err != nil {
			return err
		}
		steps++
		scanned += step.ItemsScanned
		compacted += step.ItemsCompacted
		res.Updated += step.EntriesDeleted

		if err := c.saveCursor(ctx, step.Cursor); err != nil {
			return err
		}
		if step.Done {
			log.Info().
				Int("steps", steps).
				Int("deleted", res.Updated).
				Msg("history compaction complete")
			return nil
		}
		cursor = *step.Cursor

		if c.cfg.StepDelay > 0 {
			select {
			case <-ctx.Done():
				return fmt.Errorf("compaction interrupted after %d steps: %w", steps, ctx.Err())
			case <-time.After(c.cfg.StepDelay):
			}
		} else if err := ctx.Err(); err != nil {
			return fmt.Errorf("compaction interrupted after %d steps: %w", steps, err)
		}
	}

	log.Warn().Int("max_steps", c.cfg.MaxSteps).Msg("history compaction hit step cap")
	return nil
}

func (c *Compactor) saveCursor(ctx context.Context, cursor *string) error {
	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := c.progress.SaveProgress(saveCtx, &model.UpdateProgress{
		Purpose:     model.ProgressHistoryCleanup,
		Cursor:      cursor,
		LastUpdated: c.Clock.Now(),
	}); err != nil {
		return fmt.Errorf("save cleanup cursor: %w", err)
	}
	return nil
}
