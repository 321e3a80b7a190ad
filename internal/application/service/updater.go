package service

import (
	"context"
	"fmt"
	"time"

	"pricewatch/internal/application/port"
	"pricewatch/internal/domain/model"
)

// UpdateStats summarises one price-updater invocation.
type UpdateStats struct {
	Checked int        `json:"checked"`
	Updated int        `json:"updated"`
	Skipped int        `json:"skipped"`
	Errors  *ErrorList `json:"-"`
}

// PriceUpdater refreshes real prices for a rotating batch of known cards,
// resuming from the cardUpdate cursor.
type PriceUpdater struct {
	catalog   port.Catalog
	items     port.ItemRepository
	progress  port.ProgressRepository
	upserter  *Upserter
	batchSize int
	Clock     Clock
}

func NewPriceUpdater(catalog port.Catalog, items port.ItemRepository, progress port.ProgressRepository, upserter *Upserter, batchSize int) *PriceUpdater {
	return &PriceUpdater{
		catalog:   catalog,
		items:     items,
		progress:  progress,
		upserter:  upserter,
		batchSize: batchSize,
	}
}

// Run looks up each card of the batch individually. A failed lookup only
// skips that card.
func (u *PriceUpdater) Run(ctx context.Context) (*UpdateStats, error) {
	stats := &UpdateStats{Errors: NewErrorList(DefaultMaxErrors)}
	if u.batchSize <= 0 {
		return stats, nil
	}

	prog, err := u.progress.GetProgress(ctx, model.ProgressCardUpdate)
	if err != nil {
		return nil, fmt.Errorf("load update cursor: %w", err)
	}
	batch, next, err := nextBatch(ctx, u.items, model.KindCard, prog.CursorValue(), u.batchSize)
	if err != nil {
		return nil, fmt.Errorf("load update batch: %w", err)
	}

	for i, it := range batch {
		if err := ctx.Err(); err != nil {
			// resume from the last card handled
			next = nil
			if i > 0 {
				next = model.StringCursor(batch[i-1].ID)
			} else if prog.Cursor != nil {
				next = prog.Cursor
			}
			stats.Errors.Add(err)
			break
		}
		stats.Checked++
		rec, err := u.catalog.SearchCard(ctx, it.Name, it.SetName)
		if err != nil {
			stats.Errors.Addf("%s (%s): %v", it.Name, it.SetName, err)
			continue
		}
		if rec == nil {
			stats.Errors.Addf("%s (%s): no catalog match", it.Name, it.SetName)
			continue
		}
		if rec.Price <= 0 {
			stats.Skipped++
			continue
		}
		if _, err := u.upserter.Upsert(ctx, itemInput(it, rec.Price)); err != nil {
			stats.Errors.Addf("%s (%s): %v", it.Name, it.SetName, err)
			continue
		}
		stats.Updated++
	}

	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := u.progress.SaveProgress(saveCtx, &model.UpdateProgress{
		Purpose:     model.ProgressCardUpdate,
		Cursor:      next,
		LastUpdated: u.Clock.Now(),
	}); err != nil {
		return stats, fmt.Errorf("save update cursor: %w", err)
	}
	return stats, nil
}
