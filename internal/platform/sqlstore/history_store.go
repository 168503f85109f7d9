package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/google/uuid"
	"github.com/phrazzld/dibs-api/internal/domain"
	"github.com/phrazzld/dibs-api/internal/store"
)

var historyColumns = []interface{}{
	"id", "type", "barcode", "start_time", "end_time", "recorded_at",
}

type historyRow struct {
	ID         string    `db:"id"`
	Type       string    `db:"type"`
	Barcode    string    `db:"barcode"`
	StartTime  time.Time `db:"start_time"`
	EndTime    time.Time `db:"end_time"`
	RecordedAt time.Time `db:"recorded_at"`
}

func (r historyRow) toDomain() (*domain.History, error) {
	id, err := uuid.Parse(r.ID)
	if err != nil {
		return nil, fmt.Errorf("invalid history id %q: %w", r.ID, err)
	}
	return &domain.History{
		ID:         id,
		Type:       r.Type,
		Barcode:    r.Barcode,
		StartTime:  r.StartTime.UTC(),
		EndTime:    r.EndTime.UTC(),
		RecordedAt: r.RecordedAt.UTC(),
	}, nil
}

// HistoryStore implements store.HistoryStore. Records are only ever inserted.
type HistoryStore struct {
	db      store.DBTX
	dialect Dialect
	logger  *slog.Logger
}

// NewHistoryStore creates a HistoryStore over a database connection or transaction.
func NewHistoryStore(db store.DBTX, dialect Dialect, logger *slog.Logger) *HistoryStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &HistoryStore{
		db:      db,
		dialect: dialect,
		logger:  logger.With(slog.String("component", "history_store")),
	}
}

// Ensure HistoryStore implements store.HistoryStore interface
var _ store.HistoryStore = (*HistoryStore)(nil)

// Append implements store.HistoryStore.Append
func (s *HistoryStore) Append(ctx context.Context, record *domain.History) error {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}

	q := s.dialect.builder().Insert(tableHistory).Rows(goqu.Record{
		"id":          record.ID.String(),
		"type":        record.Type,
		"barcode":     record.Barcode,
		"start_time":  dbTime(record.StartTime),
		"end_time":    dbTime(record.EndTime),
		"recorded_at": dbTime(record.RecordedAt),
	}).Prepared(true)

	if _, err := execute(ctx, s.db, q); err != nil {
		s.logger.Error("failed to append history",
			slog.String("barcode", record.Barcode),
			slog.String("error", err.Error()))
		return err
	}
	return nil
}

func (s *HistoryStore) list(ctx context.Context, where goqu.Ex) ([]*domain.History, error) {
	q := s.dialect.builder().From(tableHistory).
		Select(historyColumns...).
		Where(where).
		Order(goqu.C("start_time").Asc(), goqu.C("recorded_at").Asc()).
		Prepared(true)

	var rows []historyRow
	if err := selectInto(ctx, s.db, q, &rows); err != nil {
		return nil, err
	}

	records := make([]*domain.History, 0, len(rows))
	for _, r := range rows {
		h, err := r.toDomain()
		if err != nil {
			return nil, err
		}
		records = append(records, h)
	}
	return records, nil
}

// ListByBarcode implements store.HistoryStore.ListByBarcode
func (s *HistoryStore) ListByBarcode(ctx context.Context, barcode string) ([]*domain.History, error) {
	return s.list(ctx, goqu.Ex{"barcode": barcode})
}

// ListByType implements store.HistoryStore.ListByType
func (s *HistoryStore) ListByType(ctx context.Context, recordType string) (map[string][]*domain.History, error) {
	records, err := s.list(ctx, goqu.Ex{"type": recordType})
	if err != nil {
		return nil, err
	}

	grouped := make(map[string][]*domain.History)
	for _, h := range records {
		grouped[h.Barcode] = append(grouped[h.Barcode], h)
	}
	return grouped, nil
}

// WithTx implements store.HistoryStore.WithTx
func (s *HistoryStore) WithTx(tx *sql.Tx) store.HistoryStore {
	return &HistoryStore{db: tx, dialect: s.dialect, logger: s.logger}
}
