// Package sqlstore holds the SQL shared by the sqlite and postgres repos.
// Queries are written with '?' placeholders and rebound per dialect.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"
	"time"

	"pricewatch/internal/domain/model"
)

type Dialect int

const (
	SQLite Dialect = iota
	Postgres
)

// maxInArgs bounds the placeholders of a single IN (...) list.
const maxInArgs = 500

type Store struct {
	db      *sql.DB
	dialect Dialect
}

func New(db *sql.DB, dialect Dialect) *Store {
	return &Store{db: db, dialect: dialect}
}

func (s *Store) GetDB() *sql.DB { return s.db }

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) q(query string) string {
	if s.dialect != Postgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 16)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func toMs(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func fromMs(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}

// ========== Items ==========

const itemColumns = `id, item_key, kind, name, set_name, number, rarity, product_type,
	image_url, market_url, current_price, last_updated_ms, created_ms`

type scanner interface {
	Scan(dest ...any) error
}

func scanItem(sc scanner) (*model.Item, error) {
	var it model.Item
	var kind string
	var lastMs, createdMs int64
	if err := sc.Scan(&it.ID, &it.Key, &kind, &it.Name, &it.SetName, &it.Number, &it.Rarity,
		&it.ProductType, &it.ImageURL, &it.MarketURL, &it.CurrentPrice, &lastMs, &createdMs); err != nil {
		return nil, err
	}
	it.Kind = model.ItemKind(kind)
	it.LastUpdated = fromMs(lastMs)
	it.CreatedAt = fromMs(createdMs)
	return &it, nil
}

func collectItems(rows *sql.Rows) ([]*model.Item, error) {
	defer rows.Close()
	var items []*model.Item
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (s *Store) FindItemByKey(ctx context.Context, key string) (*model.Item, error) {
	row := s.db.QueryRowContext(ctx, s.q(`SELECT `+itemColumns+` FROM items WHERE item_key = ?`), key)
	it, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrNotFound
	}
	return it, err
}

func (s *Store) InsertItem(ctx context.Context, it *model.Item) (bool, error) {
	res, err := s.db.ExecContext(ctx, s.q(`
		INSERT INTO items(`+itemColumns+`)
		VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(item_key) DO NOTHING
	`), it.ID, it.Key, string(it.Kind), it.Name, it.SetName, it.Number, it.Rarity, it.ProductType,
		it.ImageURL, it.MarketURL, it.CurrentPrice, toMs(it.LastUpdated), toMs(it.CreatedAt))
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *Store) UpdateItemPrice(ctx context.Context, id string, price float64, at time.Time) error {
	res, err := s.db.ExecContext(ctx, s.q(`UPDATE items SET current_price = ?, last_updated_ms = ? WHERE id = ?`),
		price, toMs(at), id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return model.ErrNotFound
	}
	return nil
}

func (s *Store) GetItems(ctx context.Context, ids []string) ([]*model.Item, error) {
	var out []*model.Item
	for start := 0; start < len(ids); start += maxInArgs {
		end := min(start+maxInArgs, len(ids))
		chunk := ids[start:end]
		args := make([]any, len(chunk))
		for i, id := range chunk {
			args[i] = id
		}
		rows, err := s.db.QueryContext(ctx,
			s.q(`SELECT `+itemColumns+` FROM items WHERE id IN (`+placeholders(len(chunk))+`)`), args...)
		if err != nil {
			return nil, err
		}
		items, err := collectItems(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, items...)
	}
	return out, nil
}

func (s *Store) ListItemsAfter(ctx context.Context, kind model.ItemKind, afterID string, limit int) ([]*model.Item, error) {
	rows, err := s.db.QueryContext(ctx, s.q(`
		SELECT `+itemColumns+` FROM items
		WHERE (? = '' OR kind = ?) AND id > ?
		ORDER BY id ASC
		LIMIT ?
	`), string(kind), string(kind), afterID, limit)
	if err != nil {
		return nil, err
	}
	return collectItems(rows)
}

func (s *Store) ListRecentlyUpdated(ctx context.Context, kind model.ItemKind, before time.Time, limit int) ([]*model.Item, error) {
	rows, err := s.db.QueryContext(ctx, s.q(`
		SELECT `+itemColumns+` FROM items
		WHERE (? = '' OR kind = ?) AND last_updated_ms <= ?
		ORDER BY last_updated_ms DESC
		LIMIT ?
	`), string(kind), string(kind), toMs(before), limit)
	if err != nil {
		return nil, err
	}
	return collectItems(rows)
}

func (s *Store) CountItems(ctx context.Context, kind model.ItemKind) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, s.q(`SELECT COUNT(*) FROM items WHERE (? = '' OR kind = ?)`),
		string(kind), string(kind)).Scan(&n)
	return n, err
}

func (s *Store) DeleteItem(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, s.q(`DELETE FROM items WHERE id = ?`), id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return model.ErrNotFound
	}
	return nil
}

// ========== History ==========

func collectHistory(rows *sql.Rows) ([]*model.PriceHistoryEntry, error) {
	defer rows.Close()
	var out []*model.PriceHistoryEntry
	for rows.Next() {
		var e model.PriceHistoryEntry
		var ms int64
		if err := rows.Scan(&e.ID, &e.ItemID, &e.Price, &ms); err != nil {
			return nil, err
		}
		e.RecordedAt = fromMs(ms)
		out = append(out, &e)
	}
	return out, rows.Err()
}

func (s *Store) AppendHistory(ctx context.Context, e *model.PriceHistoryEntry) error {
	return s.db.QueryRowContext(ctx, s.q(`
		INSERT INTO price_history(item_id, price, recorded_ms) VALUES(?, ?, ?)
		RETURNING id
	`), e.ItemID, e.Price, toMs(e.RecordedAt)).Scan(&e.ID)
}

func (s *Store) ListHistory(ctx context.Context, itemID string) ([]*model.PriceHistoryEntry, error) {
	rows, err := s.db.QueryContext(ctx, s.q(`
		SELECT id, item_id, price, recorded_ms FROM price_history
		WHERE item_id = ?
		ORDER BY recorded_ms ASC, id ASC
	`), itemID)
	if err != nil {
		return nil, err
	}
	return collectHistory(rows)
}

func (s *Store) RecentHistory(ctx context.Context, itemID string, limit int) ([]*model.PriceHistoryEntry, error) {
	rows, err := s.db.QueryContext(ctx, s.q(`
		SELECT id, item_id, price, recorded_ms FROM (
			SELECT id, item_id, price, recorded_ms FROM price_history
			WHERE item_id = ?
			ORDER BY recorded_ms DESC, id DESC
			LIMIT ?
		) recent
		ORDER BY recorded_ms ASC, id ASC
	`), itemID, limit)
	if err != nil {
		return nil, err
	}
	return collectHistory(rows)
}

func (s *Store) DeleteHistory(ctx context.Context, ids []int64) (int, error) {
	total := 0
	for start := 0; start < len(ids); start += maxInArgs {
		end := min(start+maxInArgs, len(ids))
		chunk := ids[start:end]
		args := make([]any, len(chunk))
		for i, id := range chunk {
			args[i] = id
		}
		res, err := s.db.ExecContext(ctx,
			s.q(`DELETE FROM price_history WHERE id IN (`+placeholders(len(chunk))+`)`), args...)
		if err != nil {
			return total, err
		}
		n, _ := res.RowsAffected()
		total += int(n)
	}
	return total, nil
}

func (s *Store) DeleteHistoryBefore(ctx context.Context, before time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx, s.q(`
		DELETE FROM price_history
		WHERE recorded_ms < ?
		  AND recorded_ms < (
			SELECT MAX(h.recorded_ms) FROM price_history h
			WHERE h.item_id = price_history.item_id
		  )
	`), toMs(before))
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

// ========== Snapshots ==========

func (s *Store) HasSnapshot(ctx context.Context, itemID, date string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, s.q(`
		SELECT COUNT(*) FROM daily_snapshots WHERE item_id = ? AND snapshot_date = ?
	`), itemID, date).Scan(&n)
	return n > 0, err
}

func (s *Store) InsertSnapshot(ctx context.Context, snap *model.DailySnapshot) (bool, error) {
	res, err := s.db.ExecContext(ctx, s.q(`
		INSERT INTO daily_snapshots(item_id, kind, item_name, price, snapshot_date, recorded_ms)
		VALUES(?, ?, ?, ?, ?, ?)
		ON CONFLICT(item_id, snapshot_date) DO NOTHING
	`), snap.ItemID, string(snap.Kind), snap.ItemName, snap.Price, snap.SnapshotDate, toMs(snap.RecordedAt))
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *Store) ListSnapshots(ctx context.Context, date string, kind model.ItemKind) ([]*model.DailySnapshot, error) {
	rows, err := s.db.QueryContext(ctx, s.q(`
		SELECT id, item_id, kind, item_name, price, snapshot_date, recorded_ms
		FROM daily_snapshots
		WHERE snapshot_date = ? AND (? = '' OR kind = ?)
		ORDER BY id ASC
	`), date, string(kind), string(kind))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.DailySnapshot
	for rows.Next() {
		var snap model.DailySnapshot
		var k string
		var ms int64
		if err := rows.Scan(&snap.ID, &snap.ItemID, &k, &snap.ItemName, &snap.Price, &snap.SnapshotDate, &ms); err != nil {
			return nil, err
		}
		snap.Kind = model.ItemKind(k)
		snap.RecordedAt = fromMs(ms)
		out = append(out, &snap)
	}
	return out, rows.Err()
}

func (s *Store) DeleteSnapshotsBefore(ctx context.Context, date string) (int, error) {
	res, err := s.db.ExecContext(ctx, s.q(`DELETE FROM daily_snapshots WHERE snapshot_date < ?`), date)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

// ========== Progress ==========

func (s *Store) GetProgress(ctx context.Context, purpose string) (*model.UpdateProgress, error) {
	var cursor sql.NullString
	var ms int64
	err := s.db.QueryRowContext(ctx, s.q(`
		SELECT cursor_value, updated_ms FROM update_progress WHERE purpose = ?
	`), purpose).Scan(&cursor, &ms)
	if errors.Is(err, sql.ErrNoRows) {
		return &model.UpdateProgress{Purpose: purpose}, nil
	}
	if err != nil {
		return nil, err
	}
	p := &model.UpdateProgress{Purpose: purpose, LastUpdated: fromMs(ms)}
	if cursor.Valid {
		p.Cursor = &cursor.String
	}
	return p, nil
}

func (s *Store) SaveProgress(ctx context.Context, p *model.UpdateProgress) error {
	var cursor sql.NullString
	if p.Cursor != nil {
		cursor = sql.NullString{String: *p.Cursor, Valid: true}
	}
	_, err := s.db.ExecContext(ctx, s.q(`
		INSERT INTO update_progress(purpose, cursor_value, updated_ms) VALUES(?, ?, ?)
		ON CONFLICT(purpose) DO UPDATE SET
		cursor_value = excluded.cursor_value, updated_ms = excluded.updated_ms
	`), p.Purpose, cursor, toMs(p.LastUpdated))
	return err
}

// ========== Maintenance ==========

func (s *Store) GetMaintenance(ctx context.Context) (*model.MaintenanceMode, error) {
	var active int
	var m model.MaintenanceMode
	var startMs int64
	var endMs sql.NullInt64
	err := s.db.QueryRowContext(ctx, `
		SELECT is_active, message, start_ms, end_ms FROM maintenance_mode WHERE id = 1
	`).Scan(&active, &m.Message, &startMs, &endMs)
	if errors.Is(err, sql.ErrNoRows) {
		return &model.MaintenanceMode{}, nil
	}
	if err != nil {
		return nil, err
	}
	m.IsActive = active != 0
	m.StartTime = fromMs(startMs)
	if endMs.Valid {
		t := fromMs(endMs.Int64)
		m.EndTime = &t
	}
	return &m, nil
}

func (s *Store) SaveMaintenance(ctx context.Context, m *model.MaintenanceMode) error {
	active := 0
	if m.IsActive {
		active = 1
	}
	var endMs sql.NullInt64
	if m.EndTime != nil {
		endMs = sql.NullInt64{Int64: toMs(*m.EndTime), Valid: true}
	}
	_, err := s.db.ExecContext(ctx, s.q(`
		INSERT INTO maintenance_mode(id, is_active, message, start_ms, end_ms) VALUES(1, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
		is_active = excluded.is_active, message = excluded.message,
		start_ms = excluded.start_ms, end_ms = excluded.end_ms
	`), active, m.Message, toMs(m.StartTime), endMs)
	return err
}
