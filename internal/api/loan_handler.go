package api

import (
	"log/slog"
	"net/http"

	"github.com/phrazzld/dibs-api/internal/api/shared"
	"github.com/phrazzld/dibs-api/internal/platform/logger"
	"github.com/phrazzld/dibs-api/internal/service/loan"
)

// LoanHandler serves the patron loan endpoints. The borrower is always the
// authenticated caller.
type LoanHandler struct {
	loans  loan.Service
	logger *slog.Logger
}

// NewLoanHandler creates a new LoanHandler.
func NewLoanHandler(loans loan.Service, logger *slog.Logger) *LoanHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoanHandler{
		loans:  loans,
		logger: logger.With(slog.String("component", "loan_handler")),
	}
}

// Status handles GET /api/items/{barcode}/status.
func (h *LoanHandler) Status(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)
	p, barcode, ok := handlePrincipalAndBarcode(w, r, log)
	if !ok {
		return
	}

	availability, err := h.loans.Evaluate(r.Context(), p.Uname, barcode)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, newAvailabilityResponse(barcode, availability))
}

// Grant handles POST /api/items/{barcode}/loan.
func (h *LoanHandler) Grant(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)
	p, barcode, ok := handlePrincipalAndBarcode(w, r, log)
	if !ok {
		return
	}

	granted, err := h.loans.Grant(r.Context(), p.Uname, barcode)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusCreated, newLoanResponse(granted))
}

// Return handles POST /api/items/{barcode}/return. Returning an item the
// caller does not hold is a no-op answered with 204.
func (h *LoanHandler) Return(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)
	p, barcode, ok := handlePrincipalAndBarcode(w, r, log)
	if !ok {
		return
	}

	ended, err := h.loans.End(r.Context(), barcode, p.Uname)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	if ended == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, newLoanResponse(ended))
}
