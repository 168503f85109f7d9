package api

import (
	"time"

	"github.com/phrazzld/dibs-api/internal/domain"
)

// LoginRequest defines the payload for the login endpoint.
type LoginRequest struct {
	Uname    string `json:"uname"    validate:"required,max=255"`
	Password string `json:"password" validate:"required,max=72"`
}

// AuthResponse defines the successful response for the login endpoint.
type AuthResponse struct {
	Uname string `json:"uname"`
	Role  string `json:"role,omitempty"`

	// AccessToken is the JWT used for API authorization
	AccessToken string `json:"token"`

	// ExpiresAt is the RFC 3339 time the token expires
	ExpiresAt string `json:"expires_at"`
}

// AvailabilityResponse reports whether the caller may borrow an item.
type AvailabilityResponse struct {
	Barcode     string        `json:"barcode"`
	Status      domain.Status `json:"status"`
	Explanation string        `json:"explanation"`
	AvailableAt *time.Time    `json:"available_at,omitempty"`
	Item        *domain.Item  `json:"item,omitempty"`
}

// LoanResponse is a loan as the borrower sees it.
type LoanResponse struct {
	Barcode    string           `json:"barcode"`
	User       string           `json:"user"`
	State      domain.LoanState `json:"state"`
	StartTime  time.Time        `json:"start_time"`
	EndTime    time.Time        `json:"end_time"`
	ReloanTime time.Time        `json:"reloan_time"`
}

// ReadyRequest sets the ready flag. An empty body toggles it.
type ReadyRequest struct {
	Ready *bool `json:"ready"`
}

// ReadyResponse reports the new ready flag and the loans it closed.
type ReadyResponse struct {
	Barcode     string `json:"barcode"`
	Ready       bool   `json:"ready"`
	LoansClosed int    `json:"loans_closed"`
}

// RemoveItemResponse reports a deleted item and the loans it closed.
type RemoveItemResponse struct {
	Barcode     string `json:"barcode"`
	LoansClosed int    `json:"loans_closed"`
}

// ItemUsageResponse is one row of the statistics report.
type ItemUsageResponse struct {
	Barcode                string   `json:"barcode"`
	Title                  string   `json:"title"`
	Author                 string   `json:"author"`
	NumCopies              int      `json:"num_copies"`
	Ready                  bool     `json:"ready"`
	ActiveLoans            int      `json:"active_loans"`
	CompletedLoans         int      `json:"completed_loans"`
	AverageDurationMinutes *float64 `json:"average_duration_minutes,omitempty"`
}

func newAvailabilityResponse(barcode string, a *domain.Availability) AvailabilityResponse {
	return AvailabilityResponse{
		Barcode:     barcode,
		Status:      a.Status,
		Explanation: a.Explanation,
		AvailableAt: a.AvailableAt,
		Item:        a.Item,
	}
}

func newLoanResponse(l *domain.Loan) LoanResponse {
	return LoanResponse{
		Barcode:    l.Barcode,
		User:       l.User,
		State:      l.State,
		StartTime:  l.StartTime,
		EndTime:    l.EndTime,
		ReloanTime: l.ReloanTime,
	}
}

func newItemUsageResponse(u domain.ItemUsage) ItemUsageResponse {
	resp := ItemUsageResponse{
		ActiveLoans:    u.ActiveLoans,
		CompletedLoans: u.CompletedLoans,
	}
	if u.Item != nil {
		resp.Barcode = u.Item.Barcode
		resp.Title = u.Item.Title
		resp.Author = u.Item.Author
		resp.NumCopies = u.Item.NumCopies
		resp.Ready = u.Item.Ready
	}
	if u.AverageDuration != nil {
		minutes := u.AverageDuration.Minutes()
		resp.AverageDurationMinutes = &minutes
	}
	return resp
}
