package admin

import (
	"errors"
	"fmt"
)

// ErrInvalidInput is returned when an item's copies or duration are not positive.
var ErrInvalidInput = errors.New("invalid item input")

// Operation names used in errors and logs.
const (
	OpAddItem     = "add_item"
	OpEditItem    = "edit_item"
	OpSetReady    = "set_ready"
	OpToggleReady = "toggle_ready"
	OpRemoveItem  = "remove_item"
	OpListItems   = "list_items"
	OpStats       = "stats"
)

// ServiceError wraps errors from the admin service with the failed operation.
type ServiceError struct {
	Operation string
	Message   string
	Err       error
}

// Error implements the error interface for ServiceError.
func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("admin %s failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("admin %s failed: %s", e.Operation, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *ServiceError) Unwrap() error {
	return e.Err
}

// NewServiceError creates a new ServiceError.
func NewServiceError(operation, message string, err error) *ServiceError {
	return &ServiceError{
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}
