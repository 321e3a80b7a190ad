package model

import "time"

// DateLayout is the calendar-day key used by daily snapshots.
const DateLayout = "2006-01-02"

// DayKey returns the UTC calendar day of t.
func DayKey(t time.Time) string {
	return t.UTC().Format(DateLayout)
}

// DailySnapshot is one price sample per item per calendar day.
type DailySnapshot struct {
	ID           int64     `json:"id"`
	ItemID       string    `json:"item_id"`
	Kind         ItemKind  `json:"kind"`
	ItemName     string    `json:"item_name"`
	Price        float64   `json:"price"`
	SnapshotDate string    `json:"snapshot_date"`
	RecordedAt   time.Time `json:"recorded_at"`
}

// Mover is one row of the day-over-day ranking.
type Mover struct {
	Item           *Item   `json:"item"`
	TodayPrice     float64 `json:"today_price"`
	YesterdayPrice float64 `json:"yesterday_price"`
	PercentChange  float64 `json:"percent_change"`
}
