package loan

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/phrazzld/dibs-api/internal/domain"
)

// ErrMissingIdentity is returned when an operation names no user or no item.
var ErrMissingIdentity = errors.New("user and barcode are required")

// Operation names used in errors, logs, traces and metrics.
const (
	OpEvaluate       = "evaluate"
	OpGrant          = "grant"
	OpEnd            = "end"
	OpForceClose     = "force_close"
	OpCloseItemLoans = "close_item_loans"
	OpSweep          = "sweep"
)

// DeniedError is returned by Grant when the loan is not available. It wraps
// the domain sentinel for Status, so errors.Is(err, domain.ErrNoCopiesAvailable)
// and similar checks work on it.
type DeniedError struct {
	Status      domain.Status
	Explanation string
	AvailableAt *time.Time
	Err         error
}

// NewDeniedError builds the DeniedError for an availability result.
func NewDeniedError(a *domain.Availability) *DeniedError {
	return &DeniedError{
		Status:      a.Status,
		Explanation: a.Explanation,
		AvailableAt: a.AvailableAt,
		Err:         domain.ErrorForStatus(a.Status),
	}
}

// Error implements the error interface for DeniedError.
func (e *DeniedError) Error() string {
	return fmt.Sprintf("loan denied (%s): %v", e.Status, e.Err)
}

// Unwrap returns the domain sentinel to support errors.Is.
func (e *DeniedError) Unwrap() error {
	return e.Err
}

// ServiceError wraps errors from the loan service with additional context.
// This allows consumers to differentiate between different types of service errors
// using errors.As instead of string matching.
type ServiceError struct {
	// Operation is the operation that failed (e.g., "grant", "sweep")
	Operation string
	// Message is a human-readable description of the error
	Message string
	// Err is the underlying error that caused the failure
	Err error
}

// Error implements the error interface for ServiceError.
func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s operation failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("%s operation failed: %s", e.Operation, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *ServiceError) Unwrap() error {
	return e.Err
}

// NewServiceError returns a new ServiceError for the given operation.
func NewServiceError(operation, message string, err error) *ServiceError {
	return &ServiceError{
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}

// Outcome classifies the result of a call for logs and metrics: "ok", the
// lower-cased denial status, or "error" for faults.
func Outcome(err error) string {
	if err == nil {
		return "ok"
	}
	var denied *DeniedError
	if errors.As(err, &denied) {
		return strings.ToLower(string(denied.Status))
	}
	if errors.Is(err, ErrMissingIdentity) {
		return "invalid"
	}
	return "error"
}
