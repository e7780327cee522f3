// Package apperr defines the error taxonomy shared across the gateway.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrNotFound reports that a logical path did not resolve to a remote
	// resource. A RemoteError with status 404 matches it via errors.Is.
	ErrNotFound = errors.New("not found")

	// ErrUnsupportedType reports an attempt to open a remote resource that
	// is neither a folder nor a notebook.
	ErrUnsupportedType = errors.New("only notebooks and folders can be opened")

	// ErrDisposed reports an operation on a disposed adapter.
	ErrDisposed = errors.New("adapter is disposed")
)

// RemoteError is a non-2xx rejection from the figlinq API. Message carries
// the server-supplied errors[0].message when the body parsed as JSON,
// otherwise a generic description.
type RemoteError struct {
	Status  int
	Message string
}

func (e *RemoteError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("remote returned status %d: invalid response", e.Status)
	}
	return fmt.Sprintf("remote returned status %d: %s", e.Status, e.Message)
}

// Is makes a 404 rejection satisfy errors.Is(err, ErrNotFound).
func (e *RemoteError) Is(target error) bool {
	return target == ErrNotFound && e.Status == http.StatusNotFound
}

// TransportError wraps a network-level failure (unreachable host, DNS,
// timeout) so callers can distinguish it from a remote rejection.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport failure: %v", e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ValidationError reports the first required field of a response model that
// is missing or mistyped. It is always fatal to the operation that produced
// the model.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid content entry: field %q %s", e.Field, e.Reason)
}
