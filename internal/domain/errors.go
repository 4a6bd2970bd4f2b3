package domain

import (
	"errors"
	"fmt"
)

// ValueError is returned for policy violations: bad arguments, name
// collisions, unsupported entity types. It aborts the whole copy.
type ValueError struct {
	Message string
}

func (e *ValueError) Error() string {
	return e.Message
}

// NewValueError formats a ValueError
func NewValueError(format string, args ...interface{}) *ValueError {
	return &ValueError{Message: fmt.Sprintf(format, args...)}
}

// NotFoundError is returned when a remote object does not exist
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("%s not found", e.Resource)
	}
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// ForbiddenError is returned when the acting principal lacks access
type ForbiddenError struct {
	Message string
}

func (e *ForbiddenError) Error() string {
	return e.Message
}

// IsValueError reports whether err wraps a ValueError
func IsValueError(err error) bool {
	var ve *ValueError
	return errors.As(err, &ve)
}

// IsNotFound reports whether err wraps a NotFoundError
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// IsForbidden reports whether err wraps a ForbiddenError
func IsForbidden(err error) bool {
	var fe *ForbiddenError
	return errors.As(err, &fe)
}

// ETagMismatchError is returned when an update carries a stale etag
type ETagMismatchError struct {
	ID       string
	Expected string
	Actual   string
}

func (e *ETagMismatchError) Error() string {
	return fmt.Sprintf("etag mismatch for %s: expected %s, current %s", e.ID, e.Expected, e.Actual)
}

// IsETagMismatch reports whether err wraps an ETagMismatchError
func IsETagMismatch(err error) bool {
	var em *ETagMismatchError
	return errors.As(err, &em)
}
