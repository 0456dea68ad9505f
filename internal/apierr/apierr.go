// Package apierr defines the error taxonomy shared by the storefront client.
//
// Every failure surfaced to a caller is classified as one of four kinds.
// Validation errors never reach the network, credential errors clear the
// session, transient errors leave persisted state untouched, and
// configuration errors are reserved for the domain resolver (which degrades
// through its fallback chain instead of producing them).
package apierr

import (
	"errors"
	"fmt"
)

// Kind classifies an Error.
type Kind int

const (
	// KindValidation is missing or malformed caller input.
	KindValidation Kind = iota + 1
	// KindCredential is an explicit rejection of a token or credentials (401).
	KindCredential
	// KindTransient is a network failure or any non-401 server error.
	KindTransient
	// KindConfiguration means no usable API base or domain could be found.
	KindConfiguration
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindCredential:
		return "credential"
	case KindTransient:
		return "transient"
	case KindConfiguration:
		return "configuration"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Error is a classified failure of a single client operation.
type Error struct {
	Kind Kind
	// Op names the operation, e.g. "auth.verify" or "products.list".
	Op string
	// Status is the HTTP status code, or 0 when no response was received.
	Status int
	// Message is the human-readable message, usually taken from the backend
	// payload. It may be empty.
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if msg == "" {
		msg = e.Kind.String() + " error"
	}
	if e.Status != 0 {
		return fmt.Sprintf("%s: %s (status %d)", e.Op, msg, e.Status)
	}
	return fmt.Sprintf("%s: %s", e.Op, msg)
}

func (e *Error) Unwrap() error { return e.Err }

// Validation returns a KindValidation error for op.
func Validation(op, message string) *Error {
	return &Error{Kind: KindValidation, Op: op, Message: message}
}

// Credential returns a KindCredential error for op.
func Credential(op string, status int, message string) *Error {
	return &Error{Kind: KindCredential, Op: op, Status: status, Message: message}
}

// Transient returns a KindTransient error for op wrapping err.
func Transient(op string, status int, message string, err error) *Error {
	return &Error{Kind: KindTransient, Op: op, Status: status, Message: message, Err: err}
}

// KindOf returns the Kind of the first *Error in err's chain, or 0.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

// IsValidation reports whether err is a validation error.
func IsValidation(err error) bool { return KindOf(err) == KindValidation }

// IsCredential reports whether err is a credential error.
func IsCredential(err error) bool { return KindOf(err) == KindCredential }

// IsTransient reports whether err is a transient error. Errors that were
// never classified count as transient, since they cannot carry a credential
// signal.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	k := KindOf(err)
	return k == KindTransient || k == 0
}

// Message returns the human-readable message carried by err, or fallback
// when the backend did not provide one.
func Message(err error, fallback string) string {
	var e *Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	return fallback
}

// WithFallback returns err with its message defaulted to fallback. Errors
// outside the taxonomy are wrapped as transient.
func WithFallback(err error, fallback string) error {
	if err == nil {
		return nil
	}
	var e *Error
	if !errors.As(err, &e) {
		return Transient("request", 0, fallback, err)
	}
	if e.Message != "" {
		return err
	}
	cp := *e
	cp.Message = fallback
	return &cp
}
