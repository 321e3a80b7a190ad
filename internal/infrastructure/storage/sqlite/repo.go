package sqlite

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"pricewatch/internal/application/port"
	"pricewatch/internal/infrastructure/storage/sqlstore"
)

type Repo struct {
	*sqlstore.Store
}

func New(path string) (*Repo, error) {
	// ensure directory exists
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		_ = os.MkdirAll(dir, 0o755)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	r := &Repo{Store: sqlstore.New(db, sqlstore.SQLite)}
	if err := r.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return r, nil
}

func (r *Repo) migrate(ctx context.Context) error {
	_, err := r.GetDB().ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS items (
  id TEXT PRIMARY KEY,
  item_key TEXT NOT NULL UNIQUE,
  kind TEXT NOT NULL,
  name TEXT NOT NULL,
  set_name TEXT NOT NULL,
  number TEXT NOT NULL DEFAULT '',
  rarity TEXT NOT NULL DEFAULT '',
  product_type TEXT NOT NULL DEFAULT '',
  image_url TEXT NOT NULL DEFAULT '',
  market_url TEXT NOT NULL DEFAULT '',
  current_price REAL NOT NULL,
  last_updated_ms INTEGER NOT NULL,
  created_ms INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_items_kind ON items(kind);
CREATE INDEX IF NOT EXISTS idx_items_last_updated ON items(last_updated_ms);

CREATE TABLE IF NOT EXISTS price_history (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  item_id TEXT NOT NULL REFERENCES items(id) ON DELETE CASCADE,
  price REAL NOT NULL,
  recorded_ms INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_history_item_ts ON price_history(item_id, recorded_ms);
CREATE INDEX IF NOT EXISTS idx_history_ts ON price_history(recorded_ms);

CREATE TABLE IF NOT EXISTS daily_snapshots (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  item_id TEXT NOT NULL REFERENCES items(id) ON DELETE CASCADE,
  kind TEXT NOT NULL,
  item_name TEXT NOT NULL,
  price REAL NOT NULL,
  snapshot_date TEXT NOT NULL,
  recorded_ms INTEGER NOT NULL,
  UNIQUE(item_id, snapshot_date)
);
CREATE INDEX IF NOT EXISTS idx_snapshots_date ON daily_snapshots(snapshot_date);

CREATE TABLE IF NOT EXISTS update_progress (
  purpose TEXT PRIMARY KEY,
  cursor_value TEXT,
  updated_ms INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS maintenance_mode (
  id INTEGER PRIMARY KEY CHECK (id = 1),
  is_active INTEGER NOT NULL,
  message TEXT NOT NULL,
  start_ms INTEGER NOT NULL,
  end_ms INTEGER
);
`)
	return err
}

var _ port.Store = (*Repo)(nil)
