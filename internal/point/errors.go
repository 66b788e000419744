package point

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound reports that a point id is no longer present in the store.
	ErrNotFound = errors.New("point not found")
	// ErrUnauthorized reports that the viewer lacks the role or identity an
	// action requires.
	ErrUnauthorized = errors.New("viewer not authorized")
)

// ValidationError reports a draft or request field that failed a local
// constraint. No store call is made when one is returned.
type ValidationError struct {
	Field  string
	Reason string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// TransportError wraps a failed store round-trip. Callers may retry; the
// engine never retries automatically.
type TransportError struct {
	Op  string
	Err error
}

func (e TransportError) Error() string {
	return fmt.Sprintf("store %s failed: %v", e.Op, e.Err)
}

func (e TransportError) Unwrap() error { return e.Err }

// IsTransport reports whether err is (or wraps) a TransportError.
func IsTransport(err error) bool {
	var te TransportError
	return errors.As(err, &te)
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve ValidationError
	return errors.As(err, &ve)
}
