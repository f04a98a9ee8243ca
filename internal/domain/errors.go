package domain

import "fmt"

// DomainError represents a domain-specific error
type DomainError struct {
	Code    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError creates a new DomainError
func NewDomainError(code, message string) *DomainError {
	return &DomainError{Code: code, Message: message}
}

// NewDomainErrorWithCause creates a new DomainError with an underlying cause
func NewDomainErrorWithCause(code, message string, err error) *DomainError {
	return &DomainError{Code: code, Message: message, Err: err}
}

// Common domain error codes
const (
	ErrCodeValidation    = "VALIDATION_ERROR"
	ErrCodeNotFound      = "NOT_FOUND"
	ErrCodeConfiguration = "CONFIGURATION_ERROR"
	ErrCodeUnavailable   = "UNAVAILABLE"
	ErrCodeInternalError = "INTERNAL_ERROR"
)

// Validation errors
var (
	ErrEmptyMessage         = NewDomainError(ErrCodeValidation, "message cannot be empty")
	ErrMissingRequiredField = NewDomainError(ErrCodeValidation, "missing required field")
)

// Configuration errors: not recoverable locally, abort the affected operation.
var (
	ErrMissingEntryID     = NewDomainError(ErrCodeConfiguration, "knowledge entry is missing an id")
	ErrPromptNotFound     = NewDomainError(ErrCodeConfiguration, "prompt template not found for bot")
	ErrDimensionMismatch  = NewDomainError(ErrCodeConfiguration, "embedding dimensions do not match")
	ErrBotConfigNotFound  = NewDomainError(ErrCodeConfiguration, "config.yml not found for bot")
	ErrBotDataDirNotFound = NewDomainError(ErrCodeConfiguration, "data directory not found for bot")
)

// Not found errors
var (
	ErrBotNotFound = NewDomainError(ErrCodeNotFound, "bot not found")
)

// Unavailable errors
var (
	ErrEmbeddingUnavailable  = NewDomainError(ErrCodeUnavailable, "embedding provider not configured")
	ErrCompletionUnavailable = NewDomainError(ErrCodeUnavailable, "completion provider not configured")
)
