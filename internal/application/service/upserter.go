package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"pricewatch/internal/application/port"
	"pricewatch/internal/domain/model"
)

// UpsertInput carries an item's identity fields and one price observation.
// At forces the observation time; nil means now.
type UpsertInput struct {
	Kind        model.ItemKind
	Name        string
	SetName     string
	Number      string
	Rarity      string
	ProductType string
	ImageURL    string
	MarketURL   string
	Price       float64
	At          *time.Time
}

func (in *UpsertInput) key() string {
	secondary := in.Number
	if in.Kind == model.KindProduct {
		secondary = in.ProductType
	}
	return model.ItemKey(in.Kind, in.Name, in.SetName, secondary)
}

func (in *UpsertInput) validate() error {
	if !in.Kind.Valid() {
		return fmt.Errorf("%w: kind %q", model.ErrInvalidItem, in.Kind)
	}
	if strings.TrimSpace(in.Name) == "" {
		return fmt.Errorf("%w: empty name", model.ErrInvalidItem)
	}
	if !model.ValidPrice(in.Price) {
		return fmt.Errorf("%w: price %v", model.ErrInvalidItem, in.Price)
	}
	return nil
}

// UpsertResult reports what an upsert did.
type UpsertResult struct {
	Item    *model.Item
	Created bool
}

// Upserter creates or updates items by composite key and appends exactly one
// history entry per call.
type Upserter struct {
	items   port.ItemRepository
	history port.HistoryRepository
	Clock   Clock
}

func NewUpserter(items port.ItemRepository, history port.HistoryRepository) *Upserter {
	return &Upserter{items: items, history: history}
}

func (u *Upserter) Upsert(ctx context.Context, in UpsertInput) (*UpsertResult, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	at := u.Clock.Now()
	if in.At != nil {
		at = in.At.UTC()
	}
	key := in.key()

	existing, err := u.items.FindItemByKey(ctx, key)
	switch {
	case err == nil:
		return u.update(ctx, existing, in.Price, at)
	case !errors.Is(err, model.ErrNotFound):
		return nil, fmt.Errorf("find item %q: %w", key, err)
	}

	item := &model.Item{
		ID:           uuid.NewString(),
		Key:          key,
		Kind:         in.Kind,
		Name:         strings.TrimSpace(in.Name),
		SetName:      strings.TrimSpace(in.SetName),
		Number:       strings.TrimSpace(in.Number),
		Rarity:       in.Rarity,
		ProductType:  strings.TrimSpace(in.ProductType),
		ImageURL:     in.ImageURL,
		MarketURL:    in.MarketURL,
		CurrentPrice: in.Price,
		LastUpdated:  at,
		CreatedAt:    at,
	}
	inserted, err := u.items.InsertItem(ctx, item)
	if err != nil {
		return nil, fmt.Errorf("insert item %q: %w", key, err)
	}
	if !inserted {
		// lost a race against a concurrent insert of the same key
		existing, err := u.items.FindItemByKey(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("find item %q after conflict: %w", key, err)
		}
		return u.update(ctx, existing, in.Price, at)
	}

	if err := u.history.AppendHistory(ctx, &model.PriceHistoryEntry{ItemID: item.ID, Price: in.Price, RecordedAt: at}); err != nil {
		return nil, fmt.Errorf("append history %s: %w", item.ID, err)
	}
	return &UpsertResult{Item: item, Created: true}, nil
}

func (u *Upserter) update(ctx context.Context, item *model.Item, price float64, at time.Time) (*UpsertResult, error) {
	if err := u.items.UpdateItemPrice(ctx, item.ID, price, at); err != nil {
		return nil, fmt.Errorf("update item %s: %w", item.ID, err)
	}
	if err := u.history.AppendHistory(ctx, &model.PriceHistoryEntry{ItemID: item.ID, Price: price, RecordedAt: at}); err != nil {
		return nil, fmt.Errorf("append history %s: %w", item.ID, err)
	}
	item.CurrentPrice = price
	item.LastUpdated = at
	return &UpsertResult{Item: item}, nil
}

// recordInput maps a catalog record onto a card upsert.
func recordInput(rec *model.CatalogRecord) UpsertInput {
	return UpsertInput{
		Kind:      model.KindCard,
		Name:      rec.Name,
		SetName:   rec.SetName,
		Number:    rec.Number,
		Rarity:    rec.Rarity,
		ImageURL:  rec.ImageURL,
		MarketURL: rec.MarketURL,
		Price:     rec.Price,
	}
}
