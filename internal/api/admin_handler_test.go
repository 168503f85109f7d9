package api

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/phrazzld/dibs-api/internal/api/middleware"
	"github.com/phrazzld/dibs-api/internal/catalog"
	"github.com/phrazzld/dibs-api/internal/domain"
	"github.com/phrazzld/dibs-api/internal/service/admin"
	"github.com/phrazzld/dibs-api/internal/service/loan"
	"github.com/phrazzld/dibs-api/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedUsage middleware.UsageSnapshot

func (u fixedUsage) Snapshot() middleware.UsageSnapshot {
	return middleware.UsageSnapshot(u)
}

func TestAdminHandler_AddItem(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		err        error
		wantStatus int
		wantCalled bool
	}{
		{
			name:       "created",
			body:       `{"barcode":"X1","num_copies":2,"duration":3}`,
			wantStatus: http.StatusCreated,
			wantCalled: true,
		},
		{
			name:       "missing copies",
			body:       `{"barcode":"X1","duration":3}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "negative duration",
			body:       `{"barcode":"X1","num_copies":1,"duration":-1}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "malformed",
			body:       `{"barcode":`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "no catalog record",
			body:       `{"barcode":"X1","num_copies":1,"duration":1}`,
			err:        catalog.ErrRecordNotFound,
			wantStatus: http.StatusNotFound,
			wantCalled: true,
		},
		{
			name:       "duplicate",
			body:       `{"barcode":"X1","num_copies":1,"duration":1}`,
			err:        store.ErrItemExists,
			wantStatus: http.StatusConflict,
			wantCalled: true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := newTestServer(t, nil)
			var got admin.AddItemInput
			s.admin.AddItemFn = func(ctx context.Context, in admin.AddItemInput) (*domain.Item, error) {
				got = in
				if tc.err != nil {
					return nil, tc.err
				}
				return &domain.Item{Barcode: in.Barcode, Title: "Kindred", NumCopies: in.NumCopies, Duration: in.Duration}, nil
			}

			rr := s.do(t, http.MethodPost, "/api/admin/items", "libby", tc.body)

			assert.Equal(t, tc.wantStatus, rr.Code, rr.Body.String())
			if tc.wantCalled {
				assert.Equal(t, "X1", got.Barcode)
			} else {
				assert.Empty(t, s.admin.Methods())
			}
		})
	}
}

func TestAdminHandler_AddItemValidationMessage(t *testing.T) {
	s := newTestServer(t, nil)

	rr := s.do(t, http.MethodPost, "/api/admin/items", "libby", `{"barcode":"X1","duration":3}`)

	require.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "Invalid num_copies: required field")
}

func TestAdminHandler_EditItem(t *testing.T) {
	s := newTestServer(t, nil)
	var gotBarcode string
	s.admin.EditItemFn = func(ctx context.Context, barcode string, in admin.EditItemInput) (*domain.Item, error) {
		gotBarcode = barcode
		return &domain.Item{Barcode: barcode, NumCopies: in.NumCopies, Duration: in.Duration}, nil
	}

	rr := s.do(t, http.MethodPut, "/api/admin/items/X1", "libby", `{"num_copies":4,"duration":1}`)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "X1", gotBarcode)
	var item domain.Item
	decodeBody(t, rr, &item)
	assert.Equal(t, 4, item.NumCopies)

	s.admin.Err = domain.ErrUnknownItem
	s.admin.EditItemFn = nil
	rr = s.do(t, http.MethodPut, "/api/admin/items/nope", "libby", `{"num_copies":4,"duration":1}`)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestAdminHandler_SetReady(t *testing.T) {
	t.Run("explicit flag", func(t *testing.T) {
		s := newTestServer(t, nil)
		var gotReady bool
		s.admin.SetReadyFn = func(ctx context.Context, barcode string, ready bool) (int, error) {
			gotReady = ready
			return 2, nil
		}

		rr := s.do(t, http.MethodPost, "/api/admin/items/X1/ready", "libby", `{"ready":false}`)

		require.Equal(t, http.StatusOK, rr.Code)
		assert.False(t, gotReady)
		var got ReadyResponse
		decodeBody(t, rr, &got)
		assert.Equal(t, ReadyResponse{Barcode: "X1", Ready: false, LoansClosed: 2}, got)
		assert.Equal(t, []string{admin.OpSetReady}, s.admin.Methods())
	})

	t.Run("empty body toggles", func(t *testing.T) {
		s := newTestServer(t, nil)
		s.admin.Ready = true

		rr := s.do(t, http.MethodPost, "/api/admin/items/X1/ready", "libby", "")

		require.Equal(t, http.StatusOK, rr.Code)
		var got ReadyResponse
		decodeBody(t, rr, &got)
		assert.True(t, got.Ready)
		assert.Equal(t, []string{admin.OpToggleReady}, s.admin.Methods())
	})

	t.Run("malformed body", func(t *testing.T) {
		s := newTestServer(t, nil)
		rr := s.do(t, http.MethodPost, "/api/admin/items/X1/ready", "libby", `{"ready":"yes"}`)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Empty(t, s.admin.Methods())
	})

	t.Run("unknown item", func(t *testing.T) {
		s := newTestServer(t, nil)
		s.admin.Err = domain.ErrUnknownItem
		rr := s.do(t, http.MethodPost, "/api/admin/items/nope/ready", "libby", `{"ready":true}`)
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})
}

func TestAdminHandler_CloseLoans(t *testing.T) {
	s := newTestServer(t, nil)
	s.loans.Closed = 3

	rr := s.do(t, http.MethodPost, "/api/admin/items/X1/close", "libby", "")

	require.Equal(t, http.StatusOK, rr.Code)
	var got RemoveItemResponse
	decodeBody(t, rr, &got)
	assert.Equal(t, RemoveItemResponse{Barcode: "X1", LoansClosed: 3}, got)
	assert.Equal(t, loan.OpForceClose, s.loans.Calls()[0].Method)
}

func TestAdminHandler_RemoveItem(t *testing.T) {
	s := newTestServer(t, nil)
	s.admin.Closed = 1

	rr := s.do(t, http.MethodDelete, "/api/admin/items/X1", "libby", "")

	require.Equal(t, http.StatusOK, rr.Code)
	var got RemoveItemResponse
	decodeBody(t, rr, &got)
	assert.Equal(t, 1, got.LoansClosed)
}

func TestAdminHandler_ListItems(t *testing.T) {
	s := newTestServer(t, nil)
	s.admin.Items = []admin.ItemSummary{
		{Item: &domain.Item{Barcode: "A1", NumCopies: 2}, ActiveLoans: 1},
		{Item: &domain.Item{Barcode: "B2", NumCopies: 1}},
	}

	rr := s.do(t, http.MethodGet, "/api/admin/items", "libby", "")

	require.Equal(t, http.StatusOK, rr.Code)
	var got []admin.ItemSummary
	decodeBody(t, rr, &got)
	require.Len(t, got, 2)
	assert.Equal(t, 1, got[0].ActiveLoans)
	assert.Equal(t, "B2", got[1].Item.Barcode)
}

func TestAdminHandler_Stats(t *testing.T) {
	s := newTestServer(t, nil)
	avg := 90 * time.Minute
	s.admin.Usage = []domain.ItemUsage{
		{Item: &domain.Item{Barcode: "A1", Title: "Kindred"}, ActiveLoans: 1, CompletedLoans: 2, AverageDuration: &avg},
		{Item: &domain.Item{Barcode: "B2"}},
	}

	rr := s.do(t, http.MethodGet, "/api/admin/stats", "libby", "")

	require.Equal(t, http.StatusOK, rr.Code)
	var got []ItemUsageResponse
	decodeBody(t, rr, &got)
	require.Len(t, got, 2)
	require.NotNil(t, got[0].AverageDurationMinutes)
	assert.Equal(t, 90.0, *got[0].AverageDurationMinutes)
	assert.Equal(t, 2, got[0].CompletedLoans)
	assert.Nil(t, got[1].AverageDurationMinutes, "never borrowed")
}

func TestAdminHandler_Usage(t *testing.T) {
	since := time.Date(2026, 3, 2, 9, 1, 0, 0, time.UTC)
	s := newTestServer(t, fixedUsage{
		Since:         since,
		WindowMinutes: 60,
		Total:         3,
		Routes:        map[string]int64{"GET /api/items/{barcode}/status": 3},
	})

	rr := s.do(t, http.MethodGet, "/api/admin/usage", "libby", "")

	require.Equal(t, http.StatusOK, rr.Code)
	var got middleware.UsageSnapshot
	decodeBody(t, rr, &got)
	assert.Equal(t, int64(3), got.Total)
	assert.Equal(t, 60, got.WindowMinutes)
}

func TestAdminHandler_UsageWithoutCounter(t *testing.T) {
	s := newTestServer(t, nil)

	rr := s.do(t, http.MethodGet, "/api/admin/usage", "libby", "")

	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"since":"0001-01-01T00:00:00Z","window_minutes":0,"total":0,"routes":{}}`, rr.Body.String())
}
