package mocks

import (
	"context"

	"github.com/phrazzld/dibs-api/internal/service/auth"
)

// MockLoginService stands in for auth.LoginService in handler tests.
type MockLoginService struct {
	LoginFn func(ctx context.Context, uname, password string) (*auth.Session, error)

	Session *auth.Session
	Err     error
}

// Login returns LoginFn's result or the default fields.
func (m *MockLoginService) Login(ctx context.Context, uname, password string) (*auth.Session, error) {
	if m.LoginFn != nil {
		return m.LoginFn(ctx, uname, password)
	}
	return m.Session, m.Err
}
