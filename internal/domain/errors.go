package domain

import "errors"

// ErrorKind classifies why a portal operation failed. The kind decides both
// retry behavior and how the failure is reported.
type ErrorKind string

const (
	// ErrKindAuth covers login failures and sessions rejected by the portal.
	// Fatal for the whole batch, never retried per item.
	ErrKindAuth ErrorKind = "auth"

	// ErrKindSetup covers provider-specific setup failures (e.g. a date range
	// filter that would not apply). Fatal for the remaining items of a batch.
	ErrKindSetup ErrorKind = "setup"

	// ErrKindNotFound means the portal answered but has no such invoice.
	// Terminal per item; retrying cannot change the outcome.
	ErrKindNotFound ErrorKind = "not_found"

	// ErrKindTransient covers portal-side errors worth retrying.
	ErrKindTransient ErrorKind = "transient"

	// ErrKindTimeout covers operations that exceeded the portal timeout.
	ErrKindTimeout ErrorKind = "timeout"
)

// Retryable reports whether another attempt against the portal can succeed.
func (k ErrorKind) Retryable() bool {
	switch k {
	case ErrKindTransient, ErrKindTimeout:
		return true
	default:
		return false
	}
}

// PortalError carries an ErrorKind alongside the underlying cause so the
// retry loop can classify failures without string matching.
type PortalError struct {
	Kind ErrorKind
	Err  error
}

func (e *PortalError) Error() string {
	if e.Err == nil {
		return string(e.Kind)
	}
	return string(e.Kind) + ": " + e.Err.Error()
}

func (e *PortalError) Unwrap() error { return e.Err }

// NewPortalError wraps err with a classification kind.
func NewPortalError(kind ErrorKind, err error) *PortalError {
	return &PortalError{Kind: kind, Err: err}
}

// ClassifyError extracts the ErrorKind from err. Anything a portal client did
// not classify itself is treated as transient.
func ClassifyError(err error) ErrorKind {
	var pe *PortalError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return ErrKindTransient
}

// ErrSessionMiss signals that no cached session exists for a provider. Never
// fatal; callers fall back to a full login.
var ErrSessionMiss = errors.New("session: no cached state")

// ErrDuplicateBatch signals that a delivered batch was already processed
// (its log artifact exists), so the delivery is skipped as a no-op.
var ErrDuplicateBatch = errors.New("batch already processed")
