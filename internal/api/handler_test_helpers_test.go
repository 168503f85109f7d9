package api

import (
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	jsoniter "github.com/json-iterator/go"
	"github.com/phrazzld/dibs-api/internal/api/shared"
	"github.com/phrazzld/dibs-api/internal/mocks"
	"github.com/stretchr/testify/require"
)

var testJSON = jsoniter.ConfigCompatibleWithStandardLibrary

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// testServer routes requests the way the server does, minus authentication:
// the caller is taken from the request context.
type testServer struct {
	loans  *mocks.MockLoanService
	admin  *mocks.MockAdminService
	login  *mocks.MockLoginService
	router chi.Router
}

func newTestServer(t *testing.T, usage UsageSource) *testServer {
	t.Helper()

	s := &testServer{
		loans: &mocks.MockLoanService{},
		admin: &mocks.MockAdminService{},
		login: &mocks.MockLoginService{},
	}

	loanHandler := NewLoanHandler(s.loans, quietLogger())
	adminHandler := NewAdminHandler(s.admin, s.loans, usage, quietLogger())
	authHandler := NewAuthHandler(s.login, quietLogger())

	r := chi.NewRouter()
	r.Post("/api/auth/login", authHandler.Login)
	r.Get("/api/items/{barcode}/status", loanHandler.Status)
	r.Post("/api/items/{barcode}/loan", loanHandler.Grant)
	r.Post("/api/items/{barcode}/return", loanHandler.Return)
	r.Get("/api/admin/items", adminHandler.ListItems)
	r.Post("/api/admin/items", adminHandler.AddItem)
	r.Put("/api/admin/items/{barcode}", adminHandler.EditItem)
	r.Post("/api/admin/items/{barcode}/ready", adminHandler.SetReady)
	r.Post("/api/admin/items/{barcode}/close", adminHandler.CloseLoans)
	r.Delete("/api/admin/items/{barcode}", adminHandler.RemoveItem)
	r.Get("/api/admin/stats", adminHandler.Stats)
	r.Get("/api/admin/usage", adminHandler.Usage)
	s.router = r
	return s
}

// do sends a request as user; an empty user sends it unauthenticated.
func (s *testServer) do(t *testing.T, method, target, user, body string) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if user != "" {
		req = req.WithContext(shared.WithPrincipal(req.Context(), shared.Principal{Uname: user}))
	}
	rr := httptest.NewRecorder()
	s.router.ServeHTTP(rr, req)
	return rr
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, testJSON.Unmarshal(rr.Body.Bytes(), v), rr.Body.String())
}
