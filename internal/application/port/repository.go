package port

import (
	"context"
	"time"

	"pricewatch/internal/domain/model"
)

// ItemRepository persists items. Kind "" means all kinds.
type ItemRepository interface {
	// FindItemByKey returns model.ErrNotFound when no item has the key.
	FindItemByKey(ctx context.Context, key string) (*model.Item, error)

	// InsertItem reports false without error when the key already exists.
	InsertItem(ctx context.Context, item *model.Item) (bool, error)

	UpdateItemPrice(ctx context.Context, id string, price float64, at time.Time) error
	GetItems(ctx context.Context, ids []string) ([]*model.Item, error)

	// ListItemsAfter pages items ordered by id, strictly after afterID.
	ListItemsAfter(ctx context.Context, kind model.ItemKind, afterID string, limit int) ([]*model.Item, error)

	// ListRecentlyUpdated returns items updated at or before `before`, newest first.
	ListRecentlyUpdated(ctx context.Context, kind model.ItemKind, before time.Time, limit int) ([]*model.Item, error)

	CountItems(ctx context.Context, kind model.ItemKind) (int, error)

	// DeleteItem removes an item together with its history.
	DeleteItem(ctx context.Context, id string) error
}

// HistoryRepository persists price history entries.
type HistoryRepository interface {
	AppendHistory(ctx context.Context, entry *model.PriceHistoryEntry) error

	// ListHistory returns all entries of an item, ascending by time.
	ListHistory(ctx context.Context, itemID string) ([]*model.PriceHistoryEntry, error)

	// RecentHistory returns the newest `limit` entries, ascending by time.
	RecentHistory(ctx context.Context, itemID string, limit int) ([]*model.PriceHistoryEntry, error)

	DeleteHistory(ctx context.Context, ids []int64) (int, error)

	// DeleteHistoryBefore drops entries older than `before`, keeping each
	// item's most recent entry.
	DeleteHistoryBefore(ctx context.Context, before time.Time) (int, error)
}

// SnapshotRepository persists daily snapshots.
type SnapshotRepository interface {
	HasSnapshot(ctx context.Context, itemID, date string) (bool, error)

	// InsertSnapshot reports false when (item, date) already exists.
	InsertSnapshot(ctx context.Context, s *model.DailySnapshot) (bool, error)

	ListSnapshots(ctx context.Context, date string, kind model.ItemKind) ([]*model.DailySnapshot, error)
	DeleteSnapshotsBefore(ctx context.Context, date string) (int, error)
}

// ProgressRepository is the cursor store.
type ProgressRepository interface {
	// GetProgress returns a record with a nil cursor when none is stored.
	GetProgress(ctx context.Context, purpose string) (*model.UpdateProgress, error)
	SaveProgress(ctx context.Context, p *model.UpdateProgress) error
}

// MaintenanceRepository persists the maintenance-mode singleton.
type MaintenanceRepository interface {
	// GetMaintenance returns an inactive record when none is stored.
	GetMaintenance(ctx context.Context) (*model.MaintenanceMode, error)
	SaveMaintenance(ctx context.Context, m *model.MaintenanceMode) error
}

// Store groups every repository behind one connection.
type Store interface {
	ItemRepository
	HistoryRepository
	SnapshotRepository
	ProgressRepository
	MaintenanceRepository

	Close() error
}
