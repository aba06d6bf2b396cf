package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error types for different domains
type ErrorType string

const (
	ErrorTypeValidation          ErrorType = "CONFIG_VALIDATION_ERROR"
	ErrorTypeConnectivity        ErrorType = "CONNECTIVITY_ERROR"
	ErrorTypeCollectionLifecycle ErrorType = "COLLECTION_LIFECYCLE_ERROR"
	ErrorTypeRecordWrite         ErrorType = "RECORD_WRITE_ERROR"
	ErrorTypeReconciliation      ErrorType = "RECONCILIATION_ABORT"
	ErrorTypeAuthentication      ErrorType = "AUTHENTICATION_ERROR"
	ErrorTypeNotFound            ErrorType = "NOT_FOUND_ERROR"
	ErrorTypeConflict            ErrorType = "CONFLICT_ERROR"
	ErrorTypeInternal            ErrorType = "INTERNAL_ERROR"
)

// Lifecycle error codes
const (
	CodeCollectionNotReady       = "COLLECTION_NOT_READY"
	CodeCollectionCreationFailed = "COLLECTION_CREATION_FAILED"
	CodeCollectionDeletionFailed = "COLLECTION_DELETION_FAILED"
	CodeIndexCreationFailed      = "INDEX_CREATION_FAILED"
)

// Token errors
var (
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)

// Store and replication errors
var (
	ErrDocumentNotFound        = errors.New("document not found")
	ErrCollectionAlreadyExists = errors.New("collection already exists")
	ErrCollectionNotFound      = errors.New("collection not found")
	ErrIndexAlreadyExists      = errors.New("index already exists")
	ErrCollectionNotReady      = errors.New("collection not ready")
	ErrWriteNotPrepared        = errors.New("write has not been prepared for this job")
	ErrReplicationOnly         = errors.New("only replication writebacks are supported")
	ErrInvalidSettings         = errors.New("invalid replication settings")
)

// AppError represents a custom application error with context
type AppError struct {
	Type      ErrorType              `json:"type"`
	Message   string                 `json:"message"`
	Code      string                 `json:"code,omitempty"`
	HTTPCode  int                    `json:"-"`
	Details   map[string]interface{} `json:"details,omitempty"`
	Cause     error                  `json:"-"`
	Component string                 `json:"component,omitempty"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the wrapped error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// NewAppError creates a new application error
func NewAppError(errorType ErrorType, message string, httpCode int) *AppError {
	return &AppError{
		Type:     errorType,
		Message:  message,
		HTTPCode: httpCode,
		Details:  make(map[string]interface{}),
	}
}

// WithCode adds an error code
func (e *AppError) WithCode(code string) *AppError {
	e.Code = code
	return e
}

// WithCause adds the underlying cause
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// WithComponent adds the component name
func (e *AppError) WithComponent(component string) *AppError {
	e.Component = component
	return e
}

// WithDetail adds a detail field
func (e *AppError) WithDetail(key string, value interface{}) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// Common error constructors

// NewValidationError creates a configuration validation error
func NewValidationError(message string) *AppError {
	return NewAppError(ErrorTypeValidation, message, http.StatusBadRequest)
}

// NewConnectivityError creates an error for an unreachable store or cluster
func NewConnectivityError(message string) *AppError {
	return NewAppError(ErrorTypeConnectivity, message, http.StatusServiceUnavailable)
}

// NewAuthenticationError creates an authentication error
func NewAuthenticationError(message string) *AppError {
	return NewAppError(ErrorTypeAuthentication, message, http.StatusUnauthorized)
}

// NewNotFoundError creates a not found error
func NewNotFoundError(resource string) *AppError {
	return NewAppError(ErrorTypeNotFound, fmt.Sprintf("%s not found", resource), http.StatusNotFound)
}

// NewConflictError creates a conflict error
func NewConflictError(message string) *AppError {
	return NewAppError(ErrorTypeConflict, message, http.StatusConflict)
}

// NewInternalError creates an internal server error
func NewInternalError(message string) *AppError {
	return NewAppError(ErrorTypeInternal, message, http.StatusInternalServerError)
}

// NewCollectionNotReadyError reports a collection that never passed the readiness check
func NewCollectionNotReadyError(collection string, attempts int, cause error) *AppError {
	return NewAppError(ErrorTypeCollectionLifecycle,
		fmt.Sprintf("collection %s not ready after %d attempts", collection, attempts),
		http.StatusServiceUnavailable).
		WithCode(CodeCollectionNotReady).
		WithDetail("collection", collection).
		WithDetail("attempts", attempts).
		WithCause(joinCause(ErrCollectionNotReady, cause))
}

// NewCollectionCreationError reports a failed administrative create
func NewCollectionCreationError(collection string, cause error) *AppError {
	return NewAppError(ErrorTypeCollectionLifecycle,
		fmt.Sprintf("failed to create collection %s", collection),
		http.StatusInternalServerError).
		WithCode(CodeCollectionCreationFailed).
		WithDetail("collection", collection).
		WithCause(cause)
}

// NewCollectionDeletionError reports a failed administrative delete
func NewCollectionDeletionError(collection string, cause error) *AppError {
	return NewAppError(ErrorTypeCollectionLifecycle,
		fmt.Sprintf("failed to delete collection %s", collection),
		http.StatusInternalServerError).
		WithCode(CodeCollectionDeletionFailed).
		WithDetail("collection", collection).
		WithCause(cause)
}

// NewIndexCreationError reports a primary index that could not be created
func NewIndexCreationError(collection string, cause error) *AppError {
	return NewAppError(ErrorTypeCollectionLifecycle,
		fmt.Sprintf("failed to create primary index on %s", collection),
		http.StatusInternalServerError).
		WithCode(CodeIndexCreationFailed).
		WithDetail("collection", collection).
		WithCause(cause)
}

// NewRecordWriteError reports a failed store operation for one record
func NewRecordWriteError(recordID string, cause error) *AppError {
	return NewAppError(ErrorTypeRecordWrite,
		fmt.Sprintf("failed to write record %s", recordID),
		http.StatusInternalServerError).
		WithDetail("record_id", recordID).
		WithCause(cause)
}

// NewReconciliationAbort wraps any failure that stopped write preparation
func NewReconciliationAbort(jobID string, cause error) *AppError {
	return NewAppError(ErrorTypeReconciliation,
		fmt.Sprintf("reconciliation aborted for job %s", jobID),
		http.StatusInternalServerError).
		WithDetail("job_id", jobID).
		WithCause(cause)
}

func joinCause(sentinel, cause error) error {
	if cause == nil {
		return sentinel
	}
	return fmt.Errorf("%w: %w", sentinel, cause)
}

// WrapError returns err unchanged when it is already an AppError and wraps
// anything else as an internal error.
func WrapError(err error, message string) *AppError {
	if appErr, ok := err.(*AppError); ok {
		return appErr
	}
	return NewInternalError(message).WithCause(err)
}

// asAppError finds the first AppError in err's chain
func asAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	if appErr, ok := asAppError(err); ok && appErr.Type == ErrorTypeNotFound {
		return true
	}
	return errors.Is(err, ErrDocumentNotFound)
}

// IsValidation checks if an error is a validation error
func IsValidation(err error) bool {
	appErr, ok := asAppError(err)
	return ok && appErr.Type == ErrorTypeValidation
}

// HasCode reports whether any AppError in err's chain carries code
func HasCode(err error, code string) bool {
	for err != nil {
		appErr, ok := asAppError(err)
		if !ok {
			return false
		}
		if appErr.Code == code {
			return true
		}
		err = appErr.Cause
	}
	return false
}
