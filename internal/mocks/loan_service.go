package mocks

import (
	"context"
	"sync"

	"github.com/phrazzld/dibs-api/internal/domain"
	"github.com/phrazzld/dibs-api/internal/service/loan"
)

// LoanCall records one call made to MockLoanService.
type LoanCall struct {
	Method  string
	User    string
	Barcode string
}

// MockLoanService implements loan.Service for testing
type MockLoanService struct {
	EvaluateFn   func(ctx context.Context, user, barcode string) (*domain.Availability, error)
	GrantFn      func(ctx context.Context, user, barcode string) (*domain.Loan, error)
	EndFn        func(ctx context.Context, barcode, user string) (*domain.Loan, error)
	ForceCloseFn func(ctx context.Context, barcode string) (int, error)
	SweepFn      func(ctx context.Context) (loan.SweepResult, error)

	// Default response values
	Availability *domain.Availability
	Loan         *domain.Loan
	Closed       int
	Err          error

	mu    sync.Mutex
	calls []LoanCall
}

var _ loan.Service = (*MockLoanService)(nil)

func (m *MockLoanService) record(method, user, barcode string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, LoanCall{Method: method, User: user, Barcode: barcode})
}

// Calls returns the recorded calls in order.
func (m *MockLoanService) Calls() []LoanCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]LoanCall(nil), m.calls...)
}

// Evaluate implements loan.Service
func (m *MockLoanService) Evaluate(ctx context.Context, user, barcode string) (*domain.Availability, error) {
	m.record(loan.OpEvaluate, user, barcode)
	if m.EvaluateFn != nil {
		return m.EvaluateFn(ctx, user, barcode)
	}
	return m.Availability, m.Err
}

// Grant implements loan.Service
func (m *MockLoanService) Grant(ctx context.Context, user, barcode string) (*domain.Loan, error) {
	m.record(loan.OpGrant, user, barcode)
	if m.GrantFn != nil {
		return m.GrantFn(ctx, user, barcode)
	}
	return m.Loan, m.Err
}

// End implements loan.Service
func (m *MockLoanService) End(ctx context.Context, barcode, user string) (*domain.Loan, error) {
	m.record(loan.OpEnd, user, barcode)
	if m.EndFn != nil {
		return m.EndFn(ctx, barcode, user)
	}
	return m.Loan, m.Err
}

// ForceClose implements loan.Service
func (m *MockLoanService) ForceClose(ctx context.Context, barcode string) (int, error) {
	m.record(loan.OpForceClose, "", barcode)
	if m.ForceCloseFn != nil {
		return m.ForceCloseFn(ctx, barcode)
	}
	return m.Closed, m.Err
}

// Sweep implements loan.Service
func (m *MockLoanService) Sweep(ctx context.Context) (loan.SweepResult, error) {
	m.record(loan.OpSweep, "", "")
	if m.SweepFn != nil {
		return m.SweepFn(ctx)
	}
	return loan.SweepResult{}, m.Err
}
