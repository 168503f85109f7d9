package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/phrazzld/dibs-api/internal/domain"
	"github.com/phrazzld/dibs-api/internal/store"
)

var itemColumns = []interface{}{
	"barcode", "title", "author", "year", "edition", "catalog_id", "thumbnail_url",
	"num_copies", "duration", "ready", "created_at", "updated_at",
}

type itemRow struct {
	Barcode      string    `db:"barcode"`
	Title        string    `db:"title"`
	Author       string    `db:"author"`
	Year         string    `db:"year"`
	Edition      string    `db:"edition"`
	CatalogID    string    `db:"catalog_id"`
	ThumbnailURL string    `db:"thumbnail_url"`
	NumCopies    int       `db:"num_copies"`
	Duration     int       `db:"duration"`
	Ready        bool      `db:"ready"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

func (r itemRow) toDomain() *domain.Item {
	return &domain.Item{
		Barcode:      r.Barcode,
		Title:        r.Title,
		Author:       r.Author,
		Year:         r.Year,
		Edition:      r.Edition,
		CatalogID:    r.CatalogID,
		ThumbnailURL: r.ThumbnailURL,
		NumCopies:    r.NumCopies,
		Duration:     r.Duration,
		Ready:        r.Ready,
		CreatedAt:    r.CreatedAt.UTC(),
		UpdatedAt:    r.UpdatedAt.UTC(),
	}
}

// ItemStore implements store.ItemStore.
type ItemStore struct {
	db      store.DBTX
	dialect Dialect
	logger  *slog.Logger
}

// NewItemStore creates an ItemStore over a database connection or transaction.
// If logger is nil, a default logger will be used.
func NewItemStore(db store.DBTX, dialect Dialect, logger *slog.Logger) *ItemStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &ItemStore{
		db:      db,
		dialect: dialect,
		logger:  logger.With(slog.String("component", "item_store")),
	}
}

// Ensure ItemStore implements store.ItemStore interface
var _ store.ItemStore = (*ItemStore)(nil)

// Create implements store.ItemStore.Create
func (s *ItemStore) Create(ctx context.Context, item *domain.Item) error {
	if err := item.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	q := s.dialect.builder().Insert(tableItems).Rows(goqu.Record{
		"barcode":       item.Barcode,
		"title":         item.Title,
		"author":        item.Author,
		"year":          item.Year,
		"edition":       item.Edition,
		"catalog_id":    item.CatalogID,
		"thumbnail_url": item.ThumbnailURL,
		"num_copies":    item.NumCopies,
		"duration":      item.Duration,
		"ready":         item.Ready,
		"created_at":    dbTime(item.CreatedAt),
		"updated_at":    dbTime(item.UpdatedAt),
	}).Prepared(true)

	if _, err := execute(ctx, s.db, q); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return fmt.Errorf("%w: %s", store.ErrItemExists, item.Barcode)
		}
		s.logger.Error("failed to create item",
			slog.String("barcode", item.Barcode),
			slog.String("error", err.Error()))
		return err
	}

	s.logger.Debug("item created", slog.String("barcode", item.Barcode))
	return nil
}

// GetByBarcode implements store.ItemStore.GetByBarcode
func (s *ItemStore) GetByBarcode(ctx context.Context, barcode string) (*domain.Item, error) {
	q := s.dialect.builder().From(tableItems).
		Select(itemColumns...).
		Where(goqu.C("barcode").Eq(barcode)).
		Prepared(true)

	var rows []itemRow
	if err := selectInto(ctx, s.db, q, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, store.ErrItemNotFound
	}
	return rows[0].toDomain(), nil
}

// List implements store.ItemStore.List
func (s *ItemStore) List(ctx context.Context) ([]*domain.Item, error) {
	q := s.dialect.builder().From(tableItems).
		Select(itemColumns...).
		Order(goqu.C("title").Asc(), goqu.C("barcode").Asc()).
		Prepared(true)

	var rows []itemRow
	if err := selectInto(ctx, s.db, q, &rows); err != nil {
		return nil, err
	}

	items := make([]*domain.Item, 0, len(rows))
	for _, r := range rows {
		items = append(items, r.toDomain())
	}
	return items, nil
}

// Update implements store.ItemStore.Update
func (s *ItemStore) Update(ctx context.Context, item *domain.Item) error {
	if err := item.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	q := s.dialect.builder().Update(tableItems).Set(goqu.Record{
		"title":         item.Title,
		"author":        item.Author,
		"year":          item.Year,
		"edition":       item.Edition,
		"catalog_id":    item.CatalogID,
		"thumbnail_url": item.ThumbnailURL,
		"num_copies":    item.NumCopies,
		"duration":      item.Duration,
		"updated_at":    dbTime(item.UpdatedAt),
	}).Where(goqu.C("barcode").Eq(item.Barcode)).Prepared(true)

	result, err := execute(ctx, s.db, q)
	if err != nil {
		return err
	}
	return CheckRowsAffected(result, store.ErrItemNotFound)
}

// SetReady implements store.ItemStore.SetReady
func (s *ItemStore) SetReady(ctx context.Context, barcode string, ready bool) error {
	q := s.dialect.builder().Update(tableItems).Set(goqu.Record{
		"ready":      ready,
		"updated_at": dbTime(time.Now()),
	}).Where(goqu.C("barcode").Eq(barcode)).Prepared(true)

	result, err := execute(ctx, s.db, q)
	if err != nil {
		return err
	}
	return CheckRowsAffected(result, store.ErrItemNotFound)
}

// Delete implements store.ItemStore.Delete
func (s *ItemStore) Delete(ctx context.Context, barcode string) error {
	q := s.dialect.builder().Delete(tableItems).
		Where(goqu.C("barcode").Eq(barcode)).
		Prepared(true)

	result, err := execute(ctx, s.db, q)
	if err != nil {
		return err
	}
	return CheckRowsAffected(result, store.ErrItemNotFound)
}

// WithTx implements store.ItemStore.WithTx
func (s *ItemStore) WithTx(tx *sql.Tx) store.ItemStore {
	return &ItemStore{db: tx, dialect: s.dialect, logger: s.logger}
}
