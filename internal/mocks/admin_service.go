package mocks

import (
	"context"
	"sync"

	"github.com/phrazzld/dibs-api/internal/domain"
	"github.com/phrazzld/dibs-api/internal/service/admin"
)

// MockAdminService implements admin.Service for testing
type MockAdminService struct {
	AddItemFn     func(ctx context.Context, in admin.AddItemInput) (*domain.Item, error)
	EditItemFn    func(ctx context.Context, barcode string, in admin.EditItemInput) (*domain.Item, error)
	SetReadyFn    func(ctx context.Context, barcode string, ready bool) (int, error)
	ToggleReadyFn func(ctx context.Context, barcode string) (bool, int, error)
	RemoveItemFn  func(ctx context.Context, barcode string) (int, error)
	ListItemsFn   func(ctx context.Context) ([]admin.ItemSummary, error)
	StatsFn       func(ctx context.Context) ([]domain.ItemUsage, error)

	// Default response values
	Item   *domain.Item
	Items  []admin.ItemSummary
	Usage  []domain.ItemUsage
	Closed int
	Ready  bool
	Err    error

	mu      sync.Mutex
	methods []string
}

var _ admin.Service = (*MockAdminService)(nil)

func (m *MockAdminService) record(method string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.methods = append(m.methods, method)
}

// Methods returns the names of the operations called, in order.
func (m *MockAdminService) Methods() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.methods...)
}

// AddItem implements admin.Service
func (m *MockAdminService) AddItem(ctx context.Context, in admin.AddItemInput) (*domain.Item, error) {
	m.record(admin.OpAddItem)
	if m.AddItemFn != nil {
		return m.AddItemFn(ctx, in)
	}
	return m.Item, m.Err
}

// EditItem implements admin.Service
func (m *MockAdminService) EditItem(ctx context.Context, barcode string, in admin.EditItemInput) (*domain.Item, error) {
	m.record(admin.OpEditItem)
	if m.EditItemFn != nil {
		return m.EditItemFn(ctx, barcode, in)
	}
	return m.Item, m.Err
}

// SetReady implements admin.Service
func (m *MockAdminService) SetReady(ctx context.Context, barcode string, ready bool) (int, error) {
	m.record(admin.OpSetReady)
	if m.SetReadyFn != nil {
		return m.SetReadyFn(ctx, barcode, ready)
	}
	return m.Closed, m.Err
}

// ToggleReady implements admin.Service
func (m *MockAdminService) ToggleReady(ctx context.Context, barcode string) (bool, int, error) {
	m.record(admin.OpToggleReady)
	if m.ToggleReadyFn != nil {
		return m.ToggleReadyFn(ctx, barcode)
	}
	return m.Ready, m.Closed, m.Err
}

// RemoveItem implements admin.Service
func (m *MockAdminService) RemoveItem(ctx context.Context, barcode string) (int, error) {
	m.record(admin.OpRemoveItem)
	if m.RemoveItemFn != nil {
		return m.RemoveItemFn(ctx, barcode)
	}
	return m.Closed, m.Err
}

// ListItems implements admin.Service
func (m *MockAdminService) ListItems(ctx context.Context) ([]admin.ItemSummary, error) {
	m.record(admin.OpListItems)
	if m.ListItemsFn != nil {
		return m.ListItemsFn(ctx)
	}
	return m.Items, m.Err
}

// Stats implements admin.Service
func (m *MockAdminService) Stats(ctx context.Context) ([]domain.ItemUsage, error) {
	m.record(admin.OpStats)
	if m.StatsFn != nil {
		return m.StatsFn(ctx)
	}
	return m.Usage, m.Err
}
