package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/phrazzld/dibs-api/internal/api/shared"
	"github.com/phrazzld/dibs-api/internal/catalog"
	"github.com/phrazzld/dibs-api/internal/domain"
	"github.com/phrazzld/dibs-api/internal/service/admin"
	"github.com/phrazzld/dibs-api/internal/service/auth"
	"github.com/phrazzld/dibs-api/internal/service/loan"
	"github.com/phrazzld/dibs-api/internal/store"
)

// MapErrorToStatusCode maps internal errors to appropriate HTTP status codes
// based on the error type. This prevents leaking internal error types or
// messages to clients.
func MapErrorToStatusCode(err error) int {
	switch {
	// Bad request errors
	case errors.Is(err, loan.ErrMissingIdentity),
		errors.Is(err, admin.ErrInvalidInput),
		errors.Is(err, store.ErrInvalidEntity),
		errors.Is(err, domain.ErrValidation),
		errors.Is(err, shared.ErrEmptyBody):
		return http.StatusBadRequest

	// Authentication errors
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken),
		errors.Is(err, auth.ErrTokenNotYetValid),
		errors.Is(err, auth.ErrMissingToken),
		errors.Is(err, auth.ErrInvalidCredentials):
		return http.StatusUnauthorized

	// Authorization errors
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusForbidden

	// Not found errors
	case errors.Is(err, domain.ErrUnknownItem),
		errors.Is(err, store.ErrItemNotFound),
		errors.Is(err, catalog.ErrRecordNotFound):
		return http.StatusNotFound

	// The item exists but is closed for loans
	case errors.Is(err, domain.ErrItemNotReady):
		return http.StatusLocked

	// Conflict errors
	case errors.Is(err, domain.ErrAlreadyLoaned),
		errors.Is(err, domain.ErrCooldownActive),
		errors.Is(err, domain.ErrOtherActiveLoan),
		errors.Is(err, domain.ErrNoCopiesAvailable),
		errors.Is(err, store.ErrItemExists):
		return http.StatusConflict

	// Default: internal server error
	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a sanitized, user-friendly error message
// based on the error type. This prevents leaking sensitive internal details.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}

	var denied *loan.DeniedError
	if errors.As(err, &denied) && denied.Explanation != "" {
		return denied.Explanation
	}

	switch {
	case errors.Is(err, loan.ErrMissingIdentity):
		return "User and barcode are required"
	case errors.Is(err, admin.ErrInvalidInput):
		return "Copies and duration must be positive"
	case errors.Is(err, shared.ErrEmptyBody):
		return "Request body is required"
	case errors.Is(err, store.ErrInvalidEntity),
		errors.Is(err, domain.ErrValidation):
		return "Invalid entity data"

	case errors.Is(err, auth.ErrInvalidCredentials):
		return "Invalid user name or password"
	case errors.Is(err, auth.ErrExpiredToken):
		return "Token expired"
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrTokenNotYetValid):
		return "Invalid token"
	case errors.Is(err, auth.ErrMissingToken):
		return "Authorization header required"

	case errors.Is(err, domain.ErrUnauthorized):
		return "Staff access required"

	case errors.Is(err, catalog.ErrRecordNotFound):
		return "No catalog record for this barcode"
	case errors.Is(err, store.ErrItemExists):
		return "Item already exists"

	// loan outcomes without a DeniedError share the patron explanations
	case errors.Is(err, domain.ErrUnknownItem),
		errors.Is(err, store.ErrItemNotFound):
		return domain.Explain(domain.StatusUnknownItem)
	case errors.Is(err, domain.ErrItemNotReady):
		return domain.Explain(domain.StatusNotReady)
	case errors.Is(err, domain.ErrAlreadyLoaned):
		return domain.Explain(domain.StatusLoanedByUser)
	case errors.Is(err, domain.ErrCooldownActive):
		return domain.Explain(domain.StatusTooSoon)
	case errors.Is(err, domain.ErrOtherActiveLoan):
		return domain.Explain(domain.StatusUserHasOther)
	case errors.Is(err, domain.ErrNoCopiesAvailable):
		return domain.Explain(domain.StatusNoCopiesLeft)

	default:
		return "An unexpected error occurred"
	}
}

// HandleAPIError writes the error response for err. customMsg, when set,
// replaces the derived message for client errors; server errors always use
// the generic message. Loan refusals carry their status and available_at.
func HandleAPIError(w http.ResponseWriter, r *http.Request, err error, customMsg string) {
	status := MapErrorToStatusCode(err)

	message := GetSafeErrorMessage(err)
	if customMsg != "" && status < http.StatusInternalServerError {
		message = customMsg
	}

	var opts []shared.ResponseOption
	var denied *loan.DeniedError
	if errors.As(err, &denied) {
		opts = append(opts, shared.WithLoanStatus(string(denied.Status), denied.AvailableAt))
	}
	if status == http.StatusUnauthorized {
		opts = append(opts, shared.WithElevatedLogLevel())
	}

	shared.RespondWithErrorAndLog(w, r, status, message, err, opts...)
}

// SanitizeValidationError turns validator errors into a message naming the
// first failing field without echoing the submitted value.
func SanitizeValidationError(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return fmt.Sprintf("Invalid %s: %s", fe.Field(), getValidationTagMessage(fe.Tag()))
	}
	return "Validation error"
}

// getValidationTagMessage maps validation tags to user-friendly error messages
func getValidationTagMessage(tag string) string {
	switch tag {
	case "required":
		return "required field"
	case "gt", "gte", "min":
		return "too small"
	case "max", "lte":
		return "too large"
	case "oneof":
		return "invalid value"
	default:
		return "validation failed"
	}
}
