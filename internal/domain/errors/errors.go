package errors

import (
	"errors"
	"fmt"
)

// Error types for different domains
type ErrorType string

const (
	ErrorTypeValidation ErrorType = "validation"
	ErrorTypeModel      ErrorType = "model"
	ErrorTypePrediction ErrorType = "prediction"
	ErrorTypeTraining   ErrorType = "training"
	ErrorTypeInternal   ErrorType = "internal"
	ErrorTypeNotFound   ErrorType = "not_found"
)

// AppError represents a structured application error
type AppError struct {
	Type       ErrorType              `json:"type"`
	Code       string                 `json:"code"`
	Message    string                 `json:"message"`
	Details    map[string]interface{} `json:"details,omitempty"`
	Cause      error                  `json:"-"`
	Retryable  bool                   `json:"retryable"`
	StatusCode int                    `json:"status_code"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func (e *AppError) WithDetails(details map[string]interface{}) *AppError {
	e.Details = details
	return e
}

func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// Error constructors

// NewInvalidInputError marks a record rejected at the boundary before any
// scoring attempt.
func NewInvalidInputError(code, message string) *AppError {
	return &AppError{
		Type:       ErrorTypeValidation,
		Code:       code,
		Message:    message,
		Retryable:  false,
		StatusCode: 400,
	}
}

// NewMissingModelError signals no model bundle is loaded. Callers surface
// service unavailable; they never score against a partial bundle.
func NewMissingModelError() *AppError {
	return &AppError{
		Type:       ErrorTypeModel,
		Code:       "MODEL_NOT_LOADED",
		Message:    "no trained model is available",
		Retryable:  true,
		StatusCode: 503,
	}
}

// NewPredictionError covers feature/column mismatches and classifier
// failures during inference.
func NewPredictionError(message string) *AppError {
	return &AppError{
		Type:       ErrorTypePrediction,
		Code:       "PREDICTION_FAILED",
		Message:    message,
		Retryable:  false,
		StatusCode: 500,
	}
}

// NewInsufficientDataError aborts training when the dataset is too small or
// collapses to a single label class.
func NewInsufficientDataError(message string) *AppError {
	return &AppError{
		Type:       ErrorTypeTraining,
		Code:       "INSUFFICIENT_TRAINING_DATA",
		Message:    message,
		Retryable:  false,
		StatusCode: 422,
	}
}

// NewBatchItemError isolates a single failed item inside a batch request.
func NewBatchItemError(index int, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypePrediction,
		Code:       "BATCH_ITEM_FAILED",
		Message:    fmt.Sprintf("batch item %d failed", index),
		Cause:      cause,
		Retryable:  false,
		StatusCode: 422,
		Details:    map[string]interface{}{"batch_index": index},
	}
}

// NewPersistenceDisabledError signals a history lookup on a deployment
// running without a database.
func NewPersistenceDisabledError() *AppError {
	return &AppError{
		Type:       ErrorTypeInternal,
		Code:       "PERSISTENCE_DISABLED",
		Message:    "assessment history requires a configured database",
		Retryable:  false,
		StatusCode: 503,
	}
}

func NewNotFoundError(resource string) *AppError {
	return &AppError{
		Type:       ErrorTypeNotFound,
		Code:       "RESOURCE_NOT_FOUND",
		Message:    fmt.Sprintf("%s not found", resource),
		Retryable:  false,
		StatusCode: 404,
	}
}

func NewInternalError(message string) *AppError {
	return &AppError{
		Type:       ErrorTypeInternal,
		Code:       "INTERNAL_ERROR",
		Message:    message,
		Retryable:  true,
		StatusCode: 500,
	}
}

// Predefined common errors
var (
	ErrMissingModel    = NewMissingModelError()
	ErrNoPersistence   = NewPersistenceDisabledError()
	ErrNameRequired    = NewInvalidInputError("NAME_REQUIRED", "clinic name is required")
	ErrContactRequired = NewInvalidInputError("CONTACT_REQUIRED", "contact email or phone is required")
	ErrBatchTooLarge   = NewInvalidInputError("BATCH_TOO_LARGE", "batch exceeds the maximum item count")
)

// Wrap wraps an error with a message using fmt.Errorf with %w
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// IsType checks if an error is of a specific type
func IsType(err error, errorType ErrorType) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type == errorType
	}
	return false
}

// IsRetryable checks if an error is retryable
func IsRetryable(err error) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Retryable
	}
	return false
}

// GetStatusCode extracts HTTP status code from error
func GetStatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}
	return 500
}
