package utils

import (
	"context"
	"errors"

	"replication-connector/internal/shared/contextkeys"
)

// Common context errors
var (
	ErrJobIDNotFound      = errors.New("jobID not found in context")
	ErrJobIDNotString     = errors.New("jobID in context is not a string")
	ErrRequestIDNotFound  = errors.New("requestID not found in context")
	ErrRequestIDNotString = errors.New("requestID in context is not a string")
	ErrSessionIDNotFound  = errors.New("sessionID not found in context")
	ErrSessionIDNotString = errors.New("sessionID in context is not a string")
)

// GetJobIDFromContext retrieves the replication job ID from the context.
// It returns the job ID and an error if the job ID is not found or is not a string.
func GetJobIDFromContext(ctx context.Context) (string, error) {
	return stringValue(ctx, contextkeys.JobIDKey, ErrJobIDNotFound, ErrJobIDNotString)
}

// GetRequestIDFromContext retrieves the request ID from the context.
func GetRequestIDFromContext(ctx context.Context) (string, error) {
	return stringValue(ctx, contextkeys.RequestIDKey, ErrRequestIDNotFound, ErrRequestIDNotString)
}

// GetSessionIDFromContext retrieves the write stream session ID from the context.
func GetSessionIDFromContext(ctx context.Context) (string, error) {
	return stringValue(ctx, contextkeys.SessionIDKey, ErrSessionIDNotFound, ErrSessionIDNotString)
}

func stringValue(ctx context.Context, key interface{}, notFound, notString error) (string, error) {
	val := ctx.Value(key)
	if val == nil {
		return "", notFound
	}
	s, ok := val.(string)
	if !ok {
		return "", notString
	}
	return s, nil
}

// WithJobID returns a new context with the given job ID.
func WithJobID(ctx context.Context, jobID string) context.Context {
	return context.WithValue(ctx, contextkeys.JobIDKey, jobID)
}

// WithRequestID returns a new context with the given request ID.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, contextkeys.RequestIDKey, requestID)
}

// WithSessionID returns a new context with the given session ID.
func WithSessionID(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, contextkeys.SessionIDKey, sessionID)
}

// WithComponent returns a new context with the given component name.
func WithComponent(ctx context.Context, component string) context.Context {
	return context.WithValue(ctx, contextkeys.ComponentKey, component)
}

// WithOperation returns a new context with the given operation name.
func WithOperation(ctx context.Context, operation string) context.Context {
	return context.WithValue(ctx, contextkeys.OperationKey, operation)
}
