package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/phrazzld/dibs-api/internal/api/middleware"
	"github.com/phrazzld/dibs-api/internal/api/shared"
	"github.com/phrazzld/dibs-api/internal/platform/logger"
	"github.com/phrazzld/dibs-api/internal/service/admin"
	"github.com/phrazzld/dibs-api/internal/service/loan"
)

// UsageSource reports request counts over the recent window.
type UsageSource interface {
	Snapshot() middleware.UsageSnapshot
}

// AdminHandler serves the staff endpoints.
type AdminHandler struct {
	admin  admin.Service
	loans  loan.Service
	usage  UsageSource
	logger *slog.Logger
}

// NewAdminHandler creates a new AdminHandler. usage may be nil, in which case
// the usage endpoint reports an empty window.
func NewAdminHandler(adminSvc admin.Service, loans loan.Service, usage UsageSource, logger *slog.Logger) *AdminHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AdminHandler{
		admin:  adminSvc,
		loans:  loans,
		usage:  usage,
		logger: logger.With(slog.String("component", "admin_handler")),
	}
}

// ListItems handles GET /api/admin/items.
func (h *AdminHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	items, err := h.admin.ListItems(r.Context())
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, items)
}

// AddItem handles POST /api/admin/items.
func (h *AdminHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req admin.AddItemInput
	if !decodeAndValidate(w, r, &req) {
		return
	}

	item, err := h.admin.AddItem(r.Context(), req)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusCreated, item)
}

// EditItem handles PUT /api/admin/items/{barcode}.
func (h *AdminHandler) EditItem(w http.ResponseWriter, r *http.Request) {
	barcode := pathBarcode(r)

	var req admin.EditItemInput
	if !decodeAndValidate(w, r, &req) {
		return
	}

	item, err := h.admin.EditItem(r.Context(), barcode, req)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, item)
}

// SetReady handles POST /api/admin/items/{barcode}/ready. A body of
// {"ready": bool} sets the flag; no body toggles it.
func (h *AdminHandler) SetReady(w http.ResponseWriter, r *http.Request) {
	barcode := pathBarcode(r)

	var req ReadyRequest
	if err := shared.DecodeJSON(r, &req); err != nil && !errors.Is(err, shared.ErrEmptyBody) {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, "Invalid request format", err)
		return
	}

	var (
		ready  bool
		closed int
		err    error
	)
	if req.Ready == nil {
		ready, closed, err = h.admin.ToggleReady(r.Context(), barcode)
	} else {
		ready = *req.Ready
		closed, err = h.admin.SetReady(r.Context(), barcode, ready)
	}
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, ReadyResponse{
		Barcode:     barcode,
		Ready:       ready,
		LoansClosed: closed,
	})
}

// CloseLoans handles POST /api/admin/items/{barcode}/close, ending every
// loan on the item while leaving its ready flag alone.
func (h *AdminHandler) CloseLoans(w http.ResponseWriter, r *http.Request) {
	barcode := pathBarcode(r)

	closed, err := h.loans.ForceClose(r.Context(), barcode)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	logger.FromContextOrDefault(r.Context(), h.logger).Info("loans force-closed by staff",
		slog.String("barcode", barcode),
		slog.Int("loans_closed", closed))
	shared.RespondWithJSON(w, r, http.StatusOK, RemoveItemResponse{
		Barcode:     barcode,
		LoansClosed: closed,
	})
}

// RemoveItem handles DELETE /api/admin/items/{barcode}.
func (h *AdminHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	barcode := pathBarcode(r)

	closed, err := h.admin.RemoveItem(r.Context(), barcode)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, RemoveItemResponse{
		Barcode:     barcode,
		LoansClosed: closed,
	})
}

// Stats handles GET /api/admin/stats.
func (h *AdminHandler) Stats(w http.ResponseWriter, r *http.Request) {
	usage, err := h.admin.Stats(r.Context())
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	out := make([]ItemUsageResponse, 0, len(usage))
	for _, u := range usage {
		out = append(out, newItemUsageResponse(u))
	}
	shared.RespondWithJSON(w, r, http.StatusOK, out)
}

// Usage handles GET /api/admin/usage.
func (h *AdminHandler) Usage(w http.ResponseWriter, r *http.Request) {
	if h.usage == nil {
		shared.RespondWithJSON(w, r, http.StatusOK, middleware.UsageSnapshot{Routes: map[string]int64{}})
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, h.usage.Snapshot())
}
