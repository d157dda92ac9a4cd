// Package apperror provides structured error handling for the stock ledger.
// All business errors must use AppError so callers can branch on error codes
// instead of string matching.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes. Every request-scoped failure of the engine maps to one of these.
const (
	// Infrastructure errors (5xx)
	CodeInternal = "INTERNAL_ERROR"
	CodeDatabase = "DATABASE_ERROR"

	// Validation errors (400)
	CodeValidation             = "VALIDATION_ERROR"
	CodeInvalidDevaluationCost = "INVALID_DEVALUATION_INPUT"

	// Business rule violations (422)
	CodeNotTrackable           = "NOT_TRACKABLE"
	CodeInsufficientStock      = "INSUFFICIENT_STOCK"
	CodeLotInsufficient        = "LOT_INSUFFICIENT"
	CodeDevaluationExceedsCost = "DEVALUATION_EXCEEDS_ORIGINAL_COST"
	CodeInvalidState           = "INVALID_STATE"

	// Not found (404)
	CodeNotFound = "NOT_FOUND"

	// Contention (409, retryable)
	CodeContention = "CONTENTION"
)

// AppError is the standard error type for the engine.
// It implements the error interface and carries structured details for callers.
type AppError struct {
	// Code is a machine-readable error identifier
	Code string `json:"code"`

	// Message is a human-readable error description
	Message string `json:"message"`

	// Details contains additional context (ids, quantities, costs)
	Details map[string]any `json:"details,omitempty"`

	// HTTPStatus is the suggested HTTP status code
	HTTPStatus int `json:"-"`

	// Retryable marks errors that may succeed on retry (lock contention)
	Retryable bool `json:"retryable,omitempty"`

	// Err is the underlying error (not exposed in JSON)
	Err error `json:"-"`
}

// Error implements error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Is/As support
func (e *AppError) Unwrap() error {
	return e.Err
}

// WithDetail adds a key-value pair to error details
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// WithCause sets the underlying error
func (e *AppError) WithCause(err error) *AppError {
	e.Err = err
	return e
}

// --- Factory functions ---

// NewValidation creates a validation error (400)
func NewValidation(message string) *AppError {
	return &AppError{
		Code:       CodeValidation,
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
	}
}

// NewNotFound creates a not found error (404)
func NewNotFound(entity string, id any) *AppError {
	return &AppError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", entity),
		HTTPStatus: http.StatusNotFound,
		Details:    map[string]any{"entity": entity, "id": id},
	}
}

// NewNotTrackable is returned when lot or devaluation bookkeeping is requested
// for an item whose catalog entry has trackability disabled.
func NewNotTrackable(itemID any) *AppError {
	return &AppError{
		Code:       CodeNotTrackable,
		Message:    "item is not trackable",
		HTTPStatus: http.StatusUnprocessableEntity,
		Details:    map[string]any{"item_id": itemID},
	}
}

// NewInsufficientStock creates a stock shortage error
func NewInsufficientStock(itemID string, requested, available float64) *AppError {
	return &AppError{
		Code:       CodeInsufficientStock,
		Message:    "Insufficient stock",
		HTTPStatus: http.StatusUnprocessableEntity,
		Details: map[string]any{
			"item_id":   itemID,
			"requested": requested,
			"available": available,
		},
	}
}

// NewLotInsufficient is returned when FIFO consumption exhausts the lots of an
// (item, warehouse) pair before the outbound quantity is satisfied. The
// aggregate said the stock was there, the lots disagree: a data-integrity
// alarm, never silently corrected.
func NewLotInsufficient(itemID string, requested, lotTotal float64) *AppError {
	return &AppError{
		Code:       CodeLotInsufficient,
		Message:    "lot quantities exhausted before outbound quantity satisfied",
		HTTPStatus: http.StatusUnprocessableEntity,
		Details: map[string]any{
			"item_id":   itemID,
			"requested": requested,
			"lot_total": lotTotal,
		},
	}
}

// NewDevaluationExceedsCost is returned when the requested new unit cost is
// above the item's base cost. Devaluation only reduces value.
func NewDevaluationExceedsCost(newCost, baseCost string) *AppError {
	return &AppError{
		Code:       CodeDevaluationExceedsCost,
		Message:    "devalued cost exceeds original cost",
		HTTPStatus: http.StatusUnprocessableEntity,
		Details:    map[string]any{"new_unit_cost": newCost, "base_cost": baseCost},
	}
}

// NewInvalidDevaluationInput is returned for missing or negative percentage /
// fixed cost input before any invariant check runs.
func NewInvalidDevaluationInput(message string) *AppError {
	return &AppError{
		Code:       CodeInvalidDevaluationCost,
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
	}
}

// NewInvalidState is returned for reservation transitions out of a terminal state.
func NewInvalidState(entity string, current, requested string) *AppError {
	return &AppError{
		Code:       CodeInvalidState,
		Message:    fmt.Sprintf("%s cannot transition from %s to %s", entity, current, requested),
		HTTPStatus: http.StatusUnprocessableEntity,
		Details:    map[string]any{"entity": entity, "current": current, "requested": requested},
	}
}

// NewContention wraps a lock timeout / serialization failure. Callers may
// retry with backoff.
func NewContention(err error) *AppError {
	return &AppError{
		Code:       CodeContention,
		Message:    "could not acquire row lock, retry with backoff",
		HTTPStatus: http.StatusConflict,
		Retryable:  true,
		Err:        err,
	}
}

// NewInternal creates an internal server error (hides details from client)
func NewInternal(err error) *AppError {
	return &AppError{
		Code:       CodeInternal,
		Message:    "Internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// --- Helper functions ---

// IsAppError checks if error is AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// AsAppError extracts AppError from error chain
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// GetHTTPStatus returns appropriate HTTP status for any error
func GetHTTPStatus(err error) int {
	if appErr, ok := AsAppError(err); ok {
		return appErr.HTTPStatus
	}
	return http.StatusInternalServerError
}

// IsNotFound checks if error is CodeNotFound
func IsNotFound(err error) bool {
	return HasCode(err, CodeNotFound)
}

// IsRetryable reports whether the operation may succeed if retried.
func IsRetryable(err error) bool {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Retryable
	}
	return false
}

// HasCode checks the error code anywhere in the chain.
func HasCode(err error, code string) bool {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Code == code
	}
	return false
}
