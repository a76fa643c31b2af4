package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorType defines the category of the error
type ErrorType string

const (
	ErrorTypeValidation       ErrorType = "VALIDATION_ERROR"
	ErrorTypeRecipeGeneration ErrorType = "RECIPE_GENERATION_ERROR"
	ErrorTypeModelUnavailable ErrorType = "MODEL_UNAVAILABLE_ERROR"
	ErrorTypeRateLimit        ErrorType = "RATE_LIMIT_ERROR"
	ErrorTypeNotFound         ErrorType = "NOT_FOUND_ERROR"
	ErrorTypeUnauthorized     ErrorType = "UNAUTHORIZED_ERROR"
	ErrorTypeUnavailable      ErrorType = "UNAVAILABLE_ERROR"
	ErrorTypeInternal         ErrorType = "INTERNAL_ERROR"
)

// AppError represents a structured error for the application
type AppError struct {
	Type          ErrorType `json:"type"`
	Message       string    `json:"message"`
	StatusCode    int       `json:"statusCode"`
	ErrorCode     string    `json:"errorCode"`
	IsOperational bool      `json:"isOperational"`
	Recovery      string    `json:"recoverySuggestion,omitempty"`
	Err           error     `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap exposes the underlying cause to errors.Is / errors.As
func (e *AppError) Unwrap() error {
	return e.Err
}

// Code returns the application-specific error code
func (e *AppError) Code() string {
	return e.ErrorCode
}

// RecoverySuggestion returns the suggestion on how to recover from the error
func (e *AppError) RecoverySuggestion() string {
	return e.Recovery
}

// IsRetryable determines if the operation that caused the error should be retried
func (e *AppError) IsRetryable() bool {
	switch e.Type {
	case ErrorTypeRateLimit:
		return true
	case ErrorTypeRecipeGeneration:
		// A 5xx from the model endpoint is usually transient
		return e.StatusCode >= 500
	default:
		return false
	}
}

// As finds the first *AppError in err's chain.
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

func newError(t ErrorType, status int, message, errorCode string, operational bool) *AppError {
	return &AppError{
		Type:          t,
		Message:       message,
		StatusCode:    status,
		ErrorCode:     errorCode,
		IsOperational: operational,
	}
}

func (e *AppError) withRecovery(suggestion string) *AppError {
	e.Recovery = suggestion
	return e
}

func (e *AppError) wrap(err error) *AppError {
	e.Err = err
	return e
}

// NewValidationError rejects caller input (400).
func NewValidationError(message string, errorCode string, suggestion string) *AppError {
	return newError(ErrorTypeValidation, http.StatusBadRequest, message, errorCode, true).withRecovery(suggestion)
}

// NewUnauthorizedError rejects a missing or invalid bearer token (401).
func NewUnauthorizedError(message string, errorCode string) *AppError {
	return newError(ErrorTypeUnauthorized, http.StatusUnauthorized, message, errorCode, true).
		withRecovery("Send a valid token as \"Authorization: Bearer <token>\".")
}

// NewNotFoundError reports an unknown recipe or job (404).
func NewNotFoundError(message string, errorCode string, suggestion string) *AppError {
	return newError(ErrorTypeNotFound, http.StatusNotFound, message, errorCode, true).withRecovery(suggestion)
}

// NewRateLimitError reports upstream throttling (429).
func NewRateLimitError(message string, errorCode string, suggestion string) *AppError {
	return newError(ErrorTypeRateLimit, http.StatusTooManyRequests, message, errorCode, true).withRecovery(suggestion)
}

// NewRecipeGenerationError wraps a failed model call or undecodable output (500).
func NewRecipeGenerationError(message string, errorCode string, err error) *AppError {
	return newError(ErrorTypeRecipeGeneration, http.StatusInternalServerError, message, errorCode, true).
		withRecovery("Try different ingredients or wait for the model endpoint to recover.").
		wrap(err)
}

// NewModelUnavailableError reports a generation session that could not be built (503).
// It is not operational: the process cannot serve generation requests until the model loads.
func NewModelUnavailableError(message string, errorCode string, err error) *AppError {
	return newError(ErrorTypeModelUnavailable, http.StatusServiceUnavailable, message, errorCode, false).
		withRecovery("Check GENERATION_URL and TOKENIZER_PATH, or run with REDUCED_MODE=true.").
		wrap(err)
}

// NewUnavailableError reports an optional feature that is switched off (503).
func NewUnavailableError(message string, errorCode string, suggestion string) *AppError {
	return newError(ErrorTypeUnavailable, http.StatusServiceUnavailable, message, errorCode, true).withRecovery(suggestion)
}

// NewInternalError wraps an unexpected failure (500).
func NewInternalError(message string, errorCode string, err error) *AppError {
	return newError(ErrorTypeInternal, http.StatusInternalServerError, message, errorCode, false).wrap(err)
}
