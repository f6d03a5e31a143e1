package search

import (
	"errors"
	"fmt"
)

// ErrorKind classifies remote-call failures so callers branch on kind
// instead of on a particular engine's error shape.
type ErrorKind int

const (
	// KindOther is any failure not covered by a more specific kind.
	KindOther ErrorKind = iota

	// KindNotFound means the index or document does not exist.
	KindNotFound

	// KindConflict means the operation collided with existing state
	// (e.g. creating an index that already exists).
	KindConflict

	// KindUnavailable means the node could not be reached or answered
	// with a server-side failure.
	KindUnavailable
)

// String returns the kind's label.
func (k ErrorKind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindUnavailable:
		return "unavailable"
	default:
		return "other"
	}
}

// RemoteError is the closed error type for remote search-service failures.
type RemoteError struct {
	Kind   ErrorKind
	Detail string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("remote call failed (%s): %s", e.Kind, e.Detail)
}

// NewRemoteError creates a RemoteError.
func NewRemoteError(kind ErrorKind, format string, args ...interface{}) *RemoteError {
	return &RemoteError{Kind: kind, Detail: fmt.Sprintf(format, args...)}
}

// KindOf extracts the kind from an error chain, defaulting to KindOther.
func KindOf(err error) ErrorKind {
	var re *RemoteError
	if errors.As(err, &re) {
		return re.Kind
	}
	return KindOther
}

// IsNotFound reports whether err is a not-found remote failure.
func IsNotFound(err error) bool {
	return KindOf(err) == KindNotFound
}

// IsUnavailable reports whether err is an unreachable-node failure.
func IsUnavailable(err error) bool {
	return KindOf(err) == KindUnavailable
}

// kindFromStatus maps an HTTP status code to an ErrorKind.
func kindFromStatus(status int) ErrorKind {
	switch {
	case status == 404:
		return KindNotFound
	case status == 409:
		return KindConflict
	case status >= 500:
		return KindUnavailable
	default:
		return KindOther
	}
}
