package admin

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/phrazzld/dibs-api/internal/catalog"
	"github.com/phrazzld/dibs-api/internal/domain"
	"github.com/phrazzld/dibs-api/internal/platform/logger"
	"github.com/phrazzld/dibs-api/internal/service/loan"
	"github.com/phrazzld/dibs-api/internal/store"
)

// AddItemInput describes a new registry entry. Descriptive fields come from
// the catalog.
type AddItemInput struct {
	Barcode   string `json:"barcode" validate:"required"`
	NumCopies int    `json:"num_copies" validate:"required,gt=0"`
	Duration  int    `json:"duration" validate:"required,gt=0"`
}

// EditItemInput carries the editable settings of an item.
type EditItemInput struct {
	NumCopies int `json:"num_copies" validate:"required,gt=0"`
	Duration  int `json:"duration" validate:"required,gt=0"`
}

// ItemSummary is an item with its current number of active loans.
type ItemSummary struct {
	Item        *domain.Item `json:"item"`
	ActiveLoans int          `json:"active_loans"`
}

// Ledger is the part of the loan engine the admin service drives.
type Ledger interface {
	loan.ItemCloser
	Sweep(ctx context.Context) (loan.SweepResult, error)
}

// Service provides the staff operations.
type Service interface {
	// AddItem fetches the catalog record and registers a not-ready item.
	AddItem(ctx context.Context, in AddItemInput) (*domain.Item, error)

	// EditItem changes the copy count and loan duration of an item.
	EditItem(ctx context.Context, barcode string, in EditItemInput) (*domain.Item, error)

	// SetReady opens or closes an item for loans. Closing it ends every
	// loan on the item in the same transaction. Returns the number of loan
	// rows removed.
	SetReady(ctx context.Context, barcode string, ready bool) (int, error)

	// ToggleReady flips the ready flag. Returns the new flag and the number
	// of loan rows removed.
	ToggleReady(ctx context.Context, barcode string) (bool, int, error)

	// RemoveItem ends every loan on the item and deletes it.
	RemoveItem(ctx context.Context, barcode string) (int, error)

	// ListItems expires overdue loans and returns the registry with active
	// loan counts.
	ListItems(ctx context.Context) ([]ItemSummary, error)

	// Stats expires overdue loans and summarises the usage of every item.
	Stats(ctx context.Context) ([]domain.ItemUsage, error)
}

type adminService struct {
	items   store.ItemStore
	loans   store.LoanStore
	history store.HistoryStore
	ledger  Ledger
	lookup  catalog.Lookup
	logger  *slog.Logger
}

// NewService creates the admin service.
// It returns an error if any of the required dependencies are nil.
func NewService(
	items store.ItemStore,
	loans store.LoanStore,
	history store.HistoryStore,
	ledger Ledger,
	lookup catalog.Lookup,
	logger *slog.Logger,
) (Service, error) {
	switch {
	case items == nil:
		return nil, fmt.Errorf("%w: items store cannot be nil", domain.ErrValidation)
	case loans == nil:
		return nil, fmt.Errorf("%w: loan store cannot be nil", domain.ErrValidation)
	case history == nil:
		return nil, fmt.Errorf("%w: history store cannot be nil", domain.ErrValidation)
	case ledger == nil:
		return nil, fmt.Errorf("%w: ledger cannot be nil", domain.ErrValidation)
	case lookup == nil:
		return nil, fmt.Errorf("%w: catalog lookup cannot be nil", domain.ErrValidation)
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &adminService{
		items:   items,
		loans:   loans,
		history: history,
		ledger:  ledger,
		lookup:  lookup,
		logger:  logger.With(slog.String("component", "admin_service")),
	}, nil
}

// AddItem implements Service.AddItem.
func (s *adminService) AddItem(ctx context.Context, in AddItemInput) (*domain.Item, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	item, err := domain.NewItem(in.Barcode, in.NumCopies, in.Duration)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	// skip the catalog round trip for a barcode we already hold
	if _, err := s.items.GetByBarcode(ctx, item.Barcode); err == nil {
		return nil, store.ErrItemExists
	} else if !errors.Is(err, store.ErrItemNotFound) {
		return nil, NewServiceError(OpAddItem, "failed to check registry", err)
	}

	record, err := s.lookup.FetchRecord(ctx, item.Barcode)
	if err != nil {
		if errors.Is(err, catalog.ErrRecordNotFound) {
			log.Info("no catalog record for new item", slog.String("barcode", item.Barcode))
			return nil, err
		}
		log.Error("catalog lookup failed",
			slog.String("barcode", item.Barcode),
			slog.String("error", err.Error()))
		return nil, NewServiceError(OpAddItem, "catalog lookup failed", err)
	}

	item.Title = record.Title
	item.Author = record.Author
	item.Year = record.Year
	item.Edition = record.Edition
	item.CatalogID = record.ID
	item.ThumbnailURL = record.ThumbnailURL

	if err := s.items.Create(ctx, item); err != nil {
		if errors.Is(err, store.ErrItemExists) {
			return nil, err
		}
		return nil, NewServiceError(OpAddItem, "failed to create item", err)
	}

	log.Info("item added",
		slog.String("barcode", item.Barcode),
		slog.String("title", item.Title),
		slog.Int("num_copies", item.NumCopies))
	return item, nil
}

// EditItem implements Service.EditItem.
// Lowering the copy count below the active loans leaves them in place; new
// grants are refused until enough are returned.
func (s *adminService) EditItem(ctx context.Context, barcode string, in EditItemInput) (*domain.Item, error) {
	item, err := s.items.GetByBarcode(ctx, barcode)
	if err != nil {
		if errors.Is(err, store.ErrItemNotFound) {
			return nil, domain.ErrUnknownItem
		}
		return nil, NewServiceError(OpEditItem, "failed to load item", err)
	}

	item.NumCopies = in.NumCopies
	item.Duration = in.Duration
	if err := item.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	if err := s.items.Update(ctx, item); err != nil {
		if errors.Is(err, store.ErrItemNotFound) {
			return nil, domain.ErrUnknownItem
		}
		return nil, NewServiceError(OpEditItem, "failed to update item", err)
	}

	logger.FromContextOrDefault(ctx, s.logger).Info("item edited",
		slog.String("barcode", barcode),
		slog.Int("num_copies", item.NumCopies),
		slog.Int("duration", item.Duration))
	return item, nil
}

// SetReady implements Service.SetReady.
func (s *adminService) SetReady(ctx context.Context, barcode string, ready bool) (int, error) {
	if _, err := s.ledger.Sweep(ctx); err != nil {
		return 0, err
	}

	if ready {
		if err := s.items.SetReady(ctx, barcode, true); err != nil {
			if errors.Is(err, store.ErrItemNotFound) {
				return 0, domain.ErrUnknownItem
			}
			return 0, NewServiceError(OpSetReady, "failed to update item", err)
		}
		logger.FromContextOrDefault(ctx, s.logger).Info("item opened for loans",
			slog.String("barcode", barcode))
		return 0, nil
	}

	closed, err := s.ledger.CloseItemLoans(ctx, barcode, func(ctx context.Context, tx *sql.Tx) error {
		return s.items.WithTx(tx).SetReady(ctx, barcode, false)
	})
	if err != nil {
		if errors.Is(err, domain.ErrUnknownItem) {
			return 0, err
		}
		return 0, NewServiceError(OpSetReady, "failed to close item", err)
	}

	logger.FromContextOrDefault(ctx, s.logger).Info("item closed for loans",
		slog.String("barcode", barcode),
		slog.Int("loans_closed", closed))
	return closed, nil
}

// ToggleReady implements Service.ToggleReady.
func (s *adminService) ToggleReady(ctx context.Context, barcode string) (bool, int, error) {
	item, err := s.items.GetByBarcode(ctx, barcode)
	if err != nil {
		if errors.Is(err, store.ErrItemNotFound) {
			return false, 0, domain.ErrUnknownItem
		}
		return false, 0, NewServiceError(OpToggleReady, "failed to load item", err)
	}

	ready := !item.Ready
	closed, err := s.SetReady(ctx, barcode, ready)
	if err != nil {
		return false, 0, err
	}
	return ready, closed, nil
}

// RemoveItem implements Service.RemoveItem.
func (s *adminService) RemoveItem(ctx context.Context, barcode string) (int, error) {
	if _, err := s.ledger.Sweep(ctx); err != nil {
		return 0, err
	}

	closed, err := s.ledger.CloseItemLoans(ctx, barcode, func(ctx context.Context, tx *sql.Tx) error {
		return s.items.WithTx(tx).Delete(ctx, barcode)
	})
	if err != nil {
		if errors.Is(err, domain.ErrUnknownItem) {
			return 0, err
		}
		return 0, NewServiceError(OpRemoveItem, "failed to remove item", err)
	}

	logger.FromContextOrDefault(ctx, s.logger).Info("item removed",
		slog.String("barcode", barcode),
		slog.Int("loans_closed", closed))
	return closed, nil
}

// ListItems implements Service.ListItems.
func (s *adminService) ListItems(ctx context.Context) ([]ItemSummary, error) {
	if _, err := s.ledger.Sweep(ctx); err != nil {
		return nil, err
	}
	items, err := s.items.List(ctx)
	if err != nil {
		return nil, NewServiceError(OpListItems, "failed to list items", err)
	}
	counts, err := s.loans.CountActiveByItem(ctx)
	if err != nil {
		return nil, NewServiceError(OpListItems, "failed to count loans", err)
	}

	out := make([]ItemSummary, 0, len(items))
	for _, item := range items {
		out = append(out, ItemSummary{Item: item, ActiveLoans: counts[item.Barcode]})
	}
	return out, nil
}

// Stats implements Service.Stats.
func (s *adminService) Stats(ctx context.Context) ([]domain.ItemUsage, error) {
	if _, err := s.ledger.Sweep(ctx); err != nil {
		return nil, err
	}
	items, err := s.items.List(ctx)
	if err != nil {
		return nil, NewServiceError(OpStats, "failed to list items", err)
	}
	counts, err := s.loans.CountActiveByItem(ctx)
	if err != nil {
		return nil, NewServiceError(OpStats, "failed to count loans", err)
	}
	history, err := s.history.ListByType(ctx, domain.HistoryTypeLoan)
	if err != nil {
		return nil, NewServiceError(OpStats, "failed to read history", err)
	}

	out := make([]domain.ItemUsage, 0, len(items))
	for _, item := range items {
		out = append(out, domain.SummarizeUsage(item, counts[item.Barcode], history[item.Barcode]))
	}
	return out, nil
}
