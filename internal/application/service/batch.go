package service

import (
	"context"

	"pricewatch/internal/application/port"
	"pricewatch/internal/domain/model"
)

// nextBatch reads up to n items after the keyset cursor. It reads one extra
// row to know whether anything follows; next is nil when the population is
// exhausted. An empty read past a stale cursor wraps to the beginning.
func nextBatch(ctx context.Context, items port.ItemRepository, kind model.ItemKind, after string, n int) (batch []*model.Item, next *string, err error) {
	batch, err = items.ListItemsAfter(ctx, kind, after, n+1)
	if err != nil {
		return nil, nil, err
	}
	if len(batch) == 0 && after != "" {
		batch, err = items.ListItemsAfter(ctx, kind, "", n+1)
		if err != nil {
			return nil, nil, err
		}
	}
	if len(batch) > n {
		batch = batch[:n]
		return batch, model.StringCursor(batch[n-1].ID), nil
	}
	return batch, nil, nil
}

// itemInput keeps an existing item's identity so the upsert hits the same key.
func itemInput(it *model.Item, price float64) UpsertInput {
	return UpsertInput{
		Kind:        it.Kind,
		Name:        it.Name,
		SetName:     it.SetName,
		Number:      it.Number,
		Rarity:      it.Rarity,
		ProductType: it.ProductType,
		ImageURL:    it.ImageURL,
		MarketURL:   it.MarketURL,
		Price:       price,
	}
}
