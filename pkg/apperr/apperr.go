// Package apperr defines the error kinds surfaced to users of the planner.
//
// Every store or auth failure is normalised into an *Error at the adapter
// boundary so that handlers can render one user-visible message per intent.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error for presentation.
type Kind int

const (
	// KindRemote is a store or network failure; the message is shown verbatim.
	KindRemote Kind = iota
	// KindAuth means there is no valid session.
	KindAuth
	// KindValidation is a missing or malformed field caught before dispatch.
	KindValidation
	// KindNotFound means the row is absent or not owned by the caller.
	KindNotFound
)

func (k Kind) String() string {
	switch k {
	case KindAuth:
		return "AuthError"
	case KindValidation:
		return "ValidationError"
	case KindNotFound:
		return "NotFoundError"
	default:
		return "RemoteError"
	}
}

// Messages shown for kinds whose underlying cause is not user-facing.
const (
	MsgLogin    = "Please log in to continue."
	MsgNotFound = "Not found or you do not have permission to access it."
)

// Error is a classified error.
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

func (e *Error) Unwrap() error { return e.Err }

// Auth builds an AuthError.
func Auth(err error) *Error {
	return &Error{Kind: KindAuth, Message: MsgLogin, Err: err}
}

// Validation builds a ValidationError with a user-facing message.
func Validation(format string, args ...interface{}) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// NotFound builds a NotFoundError.
func NotFound(err error) *Error {
	return &Error{Kind: KindNotFound, Message: MsgNotFound, Err: err}
}

// Remote builds a RemoteError whose message is the cause's text.
func Remote(err error) *Error {
	msg := "remote store request failed"
	if err != nil {
		msg = err.Error()
	}
	return &Error{Kind: KindRemote, Message: msg, Err: err}
}

// KindOf returns the kind of err. Unclassified errors are remote errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindRemote
}

// Message returns the single user-visible message for err, or "" for nil.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}
