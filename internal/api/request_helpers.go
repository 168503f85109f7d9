package api

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/phrazzld/dibs-api/internal/api/shared"
	"github.com/phrazzld/dibs-api/internal/domain"
	"github.com/phrazzld/dibs-api/internal/platform/logger"
)

// barcodeParam is the chi URL parameter naming the item.
const barcodeParam = "barcode"

// pathBarcode returns the trimmed barcode from the URL path.
func pathBarcode(r *http.Request) string {
	return strings.TrimSpace(chi.URLParam(r, barcodeParam))
}

// handlePrincipalAndBarcode extracts the caller from the context and the
// barcode from the path, writing the error response when either is missing.
func handlePrincipalAndBarcode(
	w http.ResponseWriter,
	r *http.Request,
	log *slog.Logger,
) (shared.Principal, string, bool) {
	if log == nil {
		log = logger.FromContextOrDefault(r.Context(), slog.Default())
	}

	p, ok := shared.GetPrincipal(r.Context())
	if !ok {
		log.Warn("principal not found in request context")
		shared.RespondWithError(w, r, http.StatusUnauthorized, "Authentication required")
		return shared.Principal{}, "", false
	}

	barcode := pathBarcode(r)
	if barcode == "" {
		log.Warn("missing barcode path parameter")
		HandleAPIError(w, r, domain.ErrValidation, "Barcode is required")
		return shared.Principal{}, "", false
	}

	return p, barcode, true
}

// decodeAndValidate reads the JSON body into v and validates it, writing a
// 400 response on failure.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := shared.DecodeJSON(r, v); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, "Invalid request format", err)
		return false
	}
	if err := shared.ValidateRequest(v); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, SanitizeValidationError(err), err)
		return false
	}
	return true
}
