package pricing

import (
	"strings"

	"pricewatch/internal/domain/model"
)

// Rarities is the fixed allow-list of rarity/quality tags worth tracking.
var Rarities = []string{
	"Rare Holo",
	"Rare Holo EX",
	"Rare Holo GX",
	"Rare Holo V",
	"Rare Holo VMAX",
	"Rare Holo VSTAR",
	"Rare Holo LV.X",
	"Rare Holo Star",
	"Rare Ultra",
	"Rare Secret",
	"Rare Rainbow",
	"Rare Shiny",
	"Rare Shiny GX",
	"Rare Prime",
	"Rare BREAK",
	"Rare Prism Star",
	"Rare ACE",
	"Amazing Rare",
	"Radiant Rare",
	"LEGEND",
	"Double Rare",
	"Ultra Rare",
	"Illustration Rare",
	"Special Illustration Rare",
	"Hyper Rare",
	"Shiny Rare",
	"Shiny Ultra Rare",
	"ACE SPEC Rare",
}

// priceVariants is the preference order used by ExtractPrice.
var priceVariants = []string{
	"holofoil",
	"1stEditionHolofoil",
	"reverseHolofoil",
	"normal",
	"1stEditionNormal",
}

// ExtractPrice returns the first non-zero market price in variant preference
// order, or 0 when the card carries no usable price.
func ExtractPrice(c *Card) float64 {
	if c == nil || c.TCGPlayer == nil {
		return 0
	}
	for _, v := range priceVariants {
		p, ok := c.TCGPlayer.Prices[v]
		if !ok {
			continue
		}
		if p.Market > 0 && model.ValidPrice(p.Market) {
			return p.Market
		}
	}
	return 0
}

func quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `\"`) + `"`
}

// rarityClause is `(rarity:"A" OR rarity:"B" ...)`.
func rarityClause() string {
	parts := make([]string, len(Rarities))
	for i, r := range Rarities {
		parts[i] = "rarity:" + quote(r)
	}
	return "(" + strings.Join(parts, " OR ") + ")"
}

// BuildQuery composes the search expression for the cards endpoint.
// Empty name or set are left out.
func BuildQuery(name, setName string) string {
	var parts []string
	if n := strings.TrimSpace(name); n != "" {
		parts = append(parts, "name:"+quote(n))
	}
	if s := strings.TrimSpace(setName); s != "" {
		parts = append(parts, "set.name:"+quote(s))
	}
	parts = append(parts, rarityClause())
	return strings.Join(parts, " ")
}

// ToRecord normalises a raw card.
func ToRecord(c *Card) model.CatalogRecord {
	rec := model.CatalogRecord{
		ExternalID: c.ID,
		Name:       strings.TrimSpace(c.Name),
		SetName:    strings.TrimSpace(c.Set.Name),
		Number:     strings.TrimSpace(c.Number),
		Rarity:     c.Rarity,
		ImageURL:   c.Images.Large,
		Price:      ExtractPrice(c),
	}
	if rec.ImageURL == "" {
		rec.ImageURL = c.Images.Small
	}
	if c.TCGPlayer != nil {
		rec.MarketURL = c.TCGPlayer.URL
	}
	return rec
}
