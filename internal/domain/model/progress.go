package model

import (
	"strconv"
	"time"
)

// Cursor purposes. Each names one resumable position in the progress store.
const (
	ProgressNewCardFetch   = "newCardFetch"
	ProgressCardUpdate     = "cardUpdate"
	ProgressLiveUpdate     = "liveUpdate"
	ProgressHistoryCleanup = "historyCleanup"
)

// UpdateProgress is a persisted cursor. A nil Cursor means start of sequence.
type UpdateProgress struct {
	Purpose     string    `json:"purpose"`
	Cursor      *string   `json:"cursor"`
	LastUpdated time.Time `json:"last_updated"`
}

// CursorValue returns the cursor or "" when unset.
func (p *UpdateProgress) CursorValue() string {
	if p == nil || p.Cursor == nil {
		return ""
	}
	return *p.Cursor
}

// PageCursor decodes a stringified page number, falling back to def when the
// cursor is empty or unparsable.
func (p *UpdateProgress) PageCursor(def int) int {
	n, err := strconv.Atoi(p.CursorValue())
	if err != nil || n < 1 {
		return def
	}
	return n
}

// StringCursor returns a pointer for non-empty values and nil otherwise.
func StringCursor(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}

// PageCursor encodes a page number as an opaque cursor.
func PageCursor(page int) *string {
	s := strconv.Itoa(page)
	return &s
}

// MaintenanceMode is the singleton flag shown to readers during the weekly window.
type MaintenanceMode struct {
	IsActive  bool       `json:"isActive"`
	Message   string     `json:"message"`
	StartTime time.Time  `json:"startTime"`
	EndTime   *time.Time `json:"endTime,omitempty"`
}
