package bintray

import (
	"errors"
	"fmt"
)

// ErrorType represents different categories of errors returned by the
// Bintray API or the transport underneath it.
type ErrorType int

const (
	ErrTransport ErrorType = iota
	ErrAPI
	ErrNotFound
	ErrUnauthorized
	ErrForbidden
	ErrTimeout
)

// String returns the string representation of ErrorType
func (t ErrorType) String() string {
	switch t {
	case ErrTransport:
		return "Transport"
	case ErrAPI:
		return "API"
	case ErrNotFound:
		return "NotFound"
	case ErrUnauthorized:
		return "Unauthorized"
	case ErrForbidden:
		return "Forbidden"
	case ErrTimeout:
		return "Timeout"
	default:
		return "Unknown"
	}
}

// Error represents a failed Bintray operation. Message carries the
// "message" field of the API error body when the API returned one.
type Error struct {
	Type       ErrorType
	Op         string
	Resource   string
	Message    string
	StatusCode int
	Err        error
}

// Error implements the error interface
func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("bintray: %s(%s): [%s] %s (HTTP %d)",
			e.Op, e.Resource, e.Type, msg, e.StatusCode)
	}
	return fmt.Sprintf("bintray: %s(%s): [%s] %s", e.Op, e.Resource, e.Type, msg)
}

// Unwrap returns the wrapped error
func (e *Error) Unwrap() error {
	return e.Err
}

// IsNotFound reports whether err is a Bintray "404 Not Found" error.
func IsNotFound(err error) bool {
	var be *Error
	return errors.As(err, &be) && be.Type == ErrNotFound
}

// IsUnauthorized reports whether err is a Bintray "401 Unauthorized" error.
func IsUnauthorized(err error) bool {
	var be *Error
	return errors.As(err, &be) && be.Type == ErrUnauthorized
}

var (
	// ErrCallGetFirst is returned by accessors whose value is only
	// known after Get has been called on the handle.
	ErrCallGetFirst = errors.New("bintray: Get must be called first")

	// ErrChecksumRequired is returned by operations that need a local
	// checksum to compare the remote content against.
	ErrChecksumRequired = errors.New("bintray: content checksum must be set")

	// ErrChecksumNotReturned is returned when Bintray did not include
	// the X-Checksum-Sha2 header in its response.
	ErrChecksumNotReturned = errors.New("bintray: content checksum was not returned")

	// ErrOnlyIndexedRepos is returned when an indexation check is
	// requested for a repository type Bintray does not index.
	ErrOnlyIndexedRepos = errors.New("bintray: only Debian and RPM repositories are indexed")

	// ErrUnsupportedChecksum is returned when the YUM metadata uses a
	// checksum type other than SHA-1.
	ErrUnsupportedChecksum = errors.New("bintray: only SHA-1 is supported in RPM indexation checks")
)
