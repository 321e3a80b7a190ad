package model

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

var (
	ErrNotFound    = errors.New("not found")
	ErrInvalidItem = errors.New("invalid item")
)

// ItemKind distinguishes single cards from sealed products.
type ItemKind string

const (
	KindCard    ItemKind = "card"
	KindProduct ItemKind = "product"
)

func (k ItemKind) Valid() bool {
	return k == KindCard || k == KindProduct
}

// ParseKind accepts "" as "all kinds".
func ParseKind(s string) (ItemKind, error) {
	k := ItemKind(strings.ToLower(strings.TrimSpace(s)))
	if k == "" || k.Valid() {
		return k, nil
	}
	return "", fmt.Errorf("unknown item kind %q", s)
}

// ========== Item ==========

// Item is a tracked collectible. Key is unique across all items.
type Item struct {
	ID           string    `json:"id"`
	Key          string    `json:"key"`
	Kind         ItemKind  `json:"kind"`
	Name         string    `json:"name"`
	SetName      string    `json:"set_name"`
	Number       string    `json:"number,omitempty"`       // cards only
	Rarity       string    `json:"rarity,omitempty"`       // cards only
	ProductType  string    `json:"product_type,omitempty"` // products only
	ImageURL     string    `json:"image_url,omitempty"`
	MarketURL    string    `json:"market_url,omitempty"`
	CurrentPrice float64   `json:"current_price"`
	LastUpdated  time.Time `json:"last_updated"`
	CreatedAt    time.Time `json:"created_at"`
}

// SecondaryKey is the card number for cards and the product type for products.
func (i *Item) SecondaryKey() string {
	if i.Kind == KindProduct {
		return i.ProductType
	}
	return i.Number
}

// ItemKey derives the composite identity (kind, name, set, secondary key).
// Fields are trimmed and lower-cased so "Charizard " and "charizard" collide.
func ItemKey(kind ItemKind, name, setName, secondary string) string {
	parts := []string{string(kind), name, setName, secondary}
	for i, p := range parts {
		parts[i] = strings.ToLower(strings.Join(strings.Fields(p), " "))
	}
	return strings.Join(parts, "|")
}

// ValidPrice reports whether p can be stored as a current price.
func ValidPrice(p float64) bool {
	return p >= 0 && !math.IsNaN(p) && !math.IsInf(p, 0)
}

// ========== Price History ==========

// PriceHistoryEntry is one observation of an item's price.
type PriceHistoryEntry struct {
	ID         int64     `json:"id"`
	ItemID     string    `json:"item_id"`
	Price      float64   `json:"price"`
	RecordedAt time.Time `json:"recorded_at"`
}

// Valid filters malformed rows on read paths.
func (e *PriceHistoryEntry) Valid() bool {
	return e != nil && ValidPrice(e.Price) && !e.RecordedAt.IsZero() && e.RecordedAt.Unix() > 0
}

// ItemWithChange is an item decorated with the change between its two most
// recent history entries.
type ItemWithChange struct {
	*Item
	PercentChange float64 `json:"percent_change"`
	HasChange     bool    `json:"has_change"`
}
