package api

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/phrazzld/dibs-api/internal/api/shared"
	"github.com/phrazzld/dibs-api/internal/domain"
	"github.com/phrazzld/dibs-api/internal/mocks"
	"github.com/phrazzld/dibs-api/internal/service/loan"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	start  = time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	end    = start.Add(2*time.Hour + time.Minute)
	reloan = end.Add(30 * time.Minute)
)

func activeLoan(user, barcode string) *domain.Loan {
	return &domain.Loan{
		Barcode:    barcode,
		User:       user,
		State:      domain.LoanStateActive,
		StartTime:  start,
		EndTime:    end,
		ReloanTime: reloan,
	}
}

func TestLoanHandler_Status(t *testing.T) {
	s := newTestServer(t, nil)
	s.loans.Availability = &domain.Availability{
		Item:        &domain.Item{Barcode: "X1", Title: "Kindred", NumCopies: 1, Duration: 2, Ready: true},
		Status:      domain.StatusNoCopiesLeft,
		Explanation: domain.Explain(domain.StatusNoCopiesLeft),
		AvailableAt: &end,
	}

	rr := s.do(t, http.MethodGet, "/api/items/X1/status", "pat", "")

	require.Equal(t, http.StatusOK, rr.Code)
	var got AvailabilityResponse
	decodeBody(t, rr, &got)
	assert.Equal(t, "X1", got.Barcode)
	assert.Equal(t, domain.StatusNoCopiesLeft, got.Status)
	require.NotNil(t, got.AvailableAt)
	assert.True(t, end.Equal(*got.AvailableAt))
	assert.Equal(t, "Kindred", got.Item.Title)

	assert.Equal(t, []mocks.LoanCall{{Method: loan.OpEvaluate, User: "pat", Barcode: "X1"}}, s.loans.Calls())
}

func TestLoanHandler_StatusUnknownItem(t *testing.T) {
	s := newTestServer(t, nil)
	s.loans.Availability = &domain.Availability{
		Status:      domain.StatusUnknownItem,
		Explanation: domain.Explain(domain.StatusUnknownItem),
	}

	rr := s.do(t, http.MethodGet, "/api/items/nope/status", "pat", "")

	require.Equal(t, http.StatusOK, rr.Code, "an unknown item is a status, not an error")
	var got AvailabilityResponse
	decodeBody(t, rr, &got)
	assert.Equal(t, domain.StatusUnknownItem, got.Status)
	assert.Nil(t, got.Item)
}

func TestLoanHandler_Unauthenticated(t *testing.T) {
	s := newTestServer(t, nil)

	for _, target := range []string{"/api/items/X1/loan", "/api/items/X1/return"} {
		rr := s.do(t, http.MethodPost, target, "", "")
		assert.Equal(t, http.StatusUnauthorized, rr.Code, target)
	}
	assert.Empty(t, s.loans.Calls())
}

func TestLoanHandler_Grant(t *testing.T) {
	s := newTestServer(t, nil)
	s.loans.Loan = activeLoan("pat", "X1")

	rr := s.do(t, http.MethodPost, "/api/items/X1/loan", "pat", "")

	require.Equal(t, http.StatusCreated, rr.Code)
	var got LoanResponse
	decodeBody(t, rr, &got)
	assert.Equal(t, domain.LoanStateActive, got.State)
	assert.True(t, end.Equal(got.EndTime))
	assert.Equal(t, "pat", got.User)
}

func TestLoanHandler_GrantDenied(t *testing.T) {
	tests := []struct {
		name       string
		status     domain.Status
		at         *time.Time
		wantStatus int
	}{
		{"unknown item", domain.StatusUnknownItem, nil, http.StatusNotFound},
		{"not ready", domain.StatusNotReady, nil, http.StatusLocked},
		{"already loaned", domain.StatusLoanedByUser, nil, http.StatusConflict},
		{"too soon", domain.StatusTooSoon, &reloan, http.StatusConflict},
		{"other loan", domain.StatusUserHasOther, &end, http.StatusConflict},
		{"no copies", domain.StatusNoCopiesLeft, &end, http.StatusConflict},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := newTestServer(t, nil)
			s.loans.Err = loan.NewDeniedError(&domain.Availability{
				Status:      tc.status,
				Explanation: domain.Explain(tc.status),
				AvailableAt: tc.at,
			})

			rr := s.do(t, http.MethodPost, "/api/items/X1/loan", "pat", "")

			require.Equal(t, tc.wantStatus, rr.Code)
			var got shared.ErrorResponse
			decodeBody(t, rr, &got)
			assert.Equal(t, string(tc.status), got.Status)
			assert.Equal(t, domain.Explain(tc.status), got.Error)
			if tc.at == nil {
				assert.Nil(t, got.AvailableAt)
			} else {
				require.NotNil(t, got.AvailableAt)
				assert.True(t, tc.at.Equal(*got.AvailableAt))
			}
		})
	}
}

func TestLoanHandler_GrantFault(t *testing.T) {
	s := newTestServer(t, nil)
	s.loans.Err = loan.NewServiceError(loan.OpGrant, "failed to insert loan",
		errors.New("dial tcp db.internal:5432: connection refused"))

	rr := s.do(t, http.MethodPost, "/api/items/X1/loan", "pat", "")

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.NotContains(t, rr.Body.String(), "db.internal")
	assert.Contains(t, rr.Body.String(), "An unexpected error occurred")
}

func TestLoanHandler_Return(t *testing.T) {
	t.Run("ends the loan", func(t *testing.T) {
		s := newTestServer(t, nil)
		returned := activeLoan("pat", "X1")
		returned.State = domain.LoanStateRecent
		s.loans.Loan = returned

		rr := s.do(t, http.MethodPost, "/api/items/X1/return", "pat", "")

		require.Equal(t, http.StatusOK, rr.Code)
		var got LoanResponse
		decodeBody(t, rr, &got)
		assert.Equal(t, domain.LoanStateRecent, got.State)
		assert.Equal(t, []mocks.LoanCall{{Method: loan.OpEnd, User: "pat", Barcode: "X1"}}, s.loans.Calls())
	})

	t.Run("no active loan", func(t *testing.T) {
		s := newTestServer(t, nil)
		s.loans.EndFn = func(ctx context.Context, barcode, user string) (*domain.Loan, error) {
			return nil, nil
		}

		rr := s.do(t, http.MethodPost, "/api/items/X1/return", "pat", "")

		assert.Equal(t, http.StatusNoContent, rr.Code)
		assert.Empty(t, rr.Body.String())
	})
}
