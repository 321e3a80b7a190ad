package sqlstore

import (
	"testing"
	"time"
)

func TestRebindPostgres(t *testing.T) {
	s := &Store{dialect: Postgres}
	got := s.q(`SELECT * FROM items WHERE (? = '' OR kind = ?) AND id > ? LIMIT ?`)
	want := `SELECT * FROM items WHERE ($1 = '' OR kind = $2) AND id > $3 LIMIT $4`
	if got != want {
		t.Errorf("got %q\nwant %q", got, want)
	}
}

func TestRebindSQLiteUnchanged(t *testing.T) {
	s := &Store{dialect: SQLite}
	in := `DELETE FROM price_history WHERE id IN (?,?,?)`
	if got := s.q(in); got != in {
		t.Errorf("sqlite query must be unchanged, got %q", got)
	}
}

func TestPlaceholders(t *testing.T) {
	if got := placeholders(3); got != "?,?,?" {
		t.Errorf("placeholders(3) = %q", got)
	}
	if got := placeholders(1); got != "?" {
		t.Errorf("placeholders(1) = %q", got)
	}
}

func TestMillisRoundTrip(t *testing.T) {
	if toMs(time.Time{}) != 0 || !fromMs(0).IsZero() {
		t.Errorf("zero time must map to 0 and back")
	}
	ts := time.Date(2025, 6, 1, 12, 30, 15, 123000000, time.UTC)
	if got := fromMs(toMs(ts)); !got.Equal(ts) {
		t.Errorf("round trip: got %v want %v", got, ts)
	}
}
