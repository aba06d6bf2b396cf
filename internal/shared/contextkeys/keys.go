package contextkeys

// contextKey is an unexported type to prevent collisions with context keys defined in
// other packages.
type contextKey string

// String makes contextKey satisfy the Stringer interface to assist with debugging.
func (c contextKey) String() string {
	return "replication-connector context key " + string(c)
}

// JobIDKey is the key for the replication job id in context.Context
const JobIDKey = contextKey("jobID")

// RequestIDKey is the key for the inbound request id in context.Context
const RequestIDKey = contextKey("requestID")

// SessionIDKey identifies one write stream session
const SessionIDKey = contextKey("sessionID")

// ClaimsKey holds the validated service token claims
const ClaimsKey = contextKey("claims")

// ComponentKey and OperationKey annotate log entries
const (
	ComponentKey = contextKey("component")
	OperationKey = contextKey("operation")
)
