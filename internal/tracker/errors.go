package tracker

import (
	"errors"
	"fmt"
)

// Kind classifies tracker failures into a closed taxonomy. Every error
// returned by a Client carries exactly one Kind.
type Kind string

const (
	KindValidation     Kind = "validation"
	KindAuthentication Kind = "authentication"
	KindNotFound       Kind = "not_found"
	KindNetwork        Kind = "network"
	KindRemoteRejected Kind = "remote_rejected"
)

// Error is a tracker failure with its taxonomy kind. Remote error messages
// are passed through for user visibility.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates a tracker error of the given kind
func NewError(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// WrapError creates a tracker error wrapping an underlying cause
func WrapError(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf extracts the taxonomy kind from an error chain. Errors that did not
// originate in a tracker call are reported as network failures, the only
// open-ended category.
func KindOf(err error) Kind {
	var te *Error
	if errors.As(err, &te) {
		return te.Kind
	}
	return KindNetwork
}

// IsKind reports whether the error chain carries the given kind
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
