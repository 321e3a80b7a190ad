package port

import (
	"context"

	"pricewatch/internal/domain/model"
)

// Catalog is the external pricing API.
type Catalog interface {
	// SearchCard returns the best match, or nil when nothing matches.
	SearchCard(ctx context.Context, name, setName string) (*model.CatalogRecord, error)

	// ListCards returns one page of the catalog in a stable order.
	ListCards(ctx context.Context, page, pageSize int) (*model.CatalogPage, error)
}
