package model

import (
	"math"
	"testing"
	"time"
)

func TestItemKeyNormalises(t *testing.T) {
	a := ItemKey(KindCard, "  Charizard ", "Base  Set", "4")
	b := ItemKey(KindCard, "charizard", "base set", "4")
	if a != b {
		t.Errorf("expected equal keys, got %q and %q", a, b)
	}
	if a != "card|charizard|base set|4" {
		t.Errorf("unexpected key %q", a)
	}

	if ItemKey(KindCard, "Charizard", "Base Set", "4") == ItemKey(KindProduct, "Charizard", "Base Set", "4") {
		t.Errorf("kind must be part of the key")
	}
	if ItemKey(KindCard, "Charizard", "Base Set", "4") == ItemKey(KindCard, "Charizard", "Base Set", "4a") {
		t.Errorf("secondary key must be part of the key")
	}
}

func TestSecondaryKey(t *testing.T) {
	card := &Item{Kind: KindCard, Number: "4", ProductType: "ignored"}
	if card.SecondaryKey() != "4" {
		t.Errorf("card secondary key = %q", card.SecondaryKey())
	}
	prod := &Item{Kind: KindProduct, Number: "ignored", ProductType: "Booster Box"}
	if prod.SecondaryKey() != "Booster Box" {
		t.Errorf("product secondary key = %q", prod.SecondaryKey())
	}
}

func TestValidPrice(t *testing.T) {
	cases := map[float64]bool{
		0:            true,
		12.5:         true,
		-1:           false,
		math.NaN():   false,
		math.Inf(1):  false,
		math.Inf(-1): false,
	}
	for p, want := range cases {
		if got := ValidPrice(p); got != want {
			t.Errorf("ValidPrice(%v) = %v, want %v", p, got, want)
		}
	}
}

func TestParseKind(t *testing.T) {
	if k, err := ParseKind(""); err != nil || k != "" {
		t.Errorf("empty kind: %q, %v", k, err)
	}
	if k, err := ParseKind(" Card "); err != nil || k != KindCard {
		t.Errorf("card kind: %q, %v", k, err)
	}
	if _, err := ParseKind("deck"); err == nil {
		t.Errorf("expected error for unknown kind")
	}
}

func TestHistoryEntryValid(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	if !(&PriceHistoryEntry{Price: 1, RecordedAt: now}).Valid() {
		t.Errorf("expected valid entry")
	}
	if (&PriceHistoryEntry{Price: math.NaN(), RecordedAt: now}).Valid() {
		t.Errorf("NaN price must be invalid")
	}
	if (&PriceHistoryEntry{Price: -2, RecordedAt: now}).Valid() {
		t.Errorf("negative price must be invalid")
	}
	if (&PriceHistoryEntry{Price: 1}).Valid() {
		t.Errorf("zero timestamp must be invalid")
	}
}

func TestCatalogPageLast(t *testing.T) {
	full := make([]CatalogRecord, 3)
	cases := []struct {
		name string
		page CatalogPage
		want bool
	}{
		{"empty", CatalogPage{Page: 2, PageSize: 3, TotalCount: 10}, true},
		{"short", CatalogPage{Records: full[:2], Page: 1, PageSize: 3, TotalCount: 10}, true},
		{"full with more", CatalogPage{Records: full, Page: 1, PageSize: 3, TotalCount: 10}, false},
		{"full reaching total", CatalogPage{Records: full, Page: 2, PageSize: 3, TotalCount: 6}, true},
		{"unknown total", CatalogPage{Records: full, Page: 5, PageSize: 3}, false},
	}
	for _, tc := range cases {
		if got := tc.page.Last(); got != tc.want {
			t.Errorf("%s: Last() = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestProgressCursors(t *testing.T) {
	var p *UpdateProgress
	if p.CursorValue() != "" {
		t.Errorf("nil progress must have empty cursor")
	}

	p = &UpdateProgress{Cursor: PageCursor(7)}
	if p.PageCursor(1) != 7 {
		t.Errorf("expected page 7, got %d", p.PageCursor(1))
	}
	p.Cursor = StringCursor("garbage")
	if p.PageCursor(1) != 1 {
		t.Errorf("unparsable cursor must fall back to default")
	}
	if StringCursor("") != nil {
		t.Errorf("empty cursor must be nil")
	}
}

func TestDayKeyUsesUTC(t *testing.T) {
	loc := time.FixedZone("UTC+9", 9*3600)
	ts := time.Date(2025, 3, 2, 3, 0, 0, 0, loc) // 2025-03-01 18:00 UTC
	if got := DayKey(ts); got != "2025-03-01" {
		t.Errorf("DayKey = %q, want 2025-03-01", got)
	}
}
