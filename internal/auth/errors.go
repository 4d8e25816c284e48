package auth

import (
	"errors"
	"fmt"
)

// Error kinds. Match them with errors.Is.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrValidation         = errors.New("validation failed")
	ErrConflict           = errors.New("account already exists")
	ErrTransport          = errors.New("transport failure")
)

// Error is the failure of an auth operation.
// Kind is one of the Err* sentinels; Message is safe to show to the user.
type Error struct {
	Op      string
	Kind    error
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("auth.%s: %v", e.Op, e.Kind)
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil && e.Message == "" {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes both the kind and the underlying cause.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// Kind returns the sentinel classifying err, or nil if err is not an auth failure.
func Kind(err error) error {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	for _, k := range []error{ErrInvalidCredentials, ErrValidation, ErrConflict, ErrTransport} {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}

// UserMessage renders err for display in a login form.
func UserMessage(err error) string {
	var ae *Error
	if errors.As(err, &ae) {
		switch {
		case ae.Message != "":
			return ae.Message
		case errors.Is(ae.Kind, ErrTransport):
			return "could not reach the server"
		}
		return ae.Kind.Error()
	}
	return err.Error()
}

func newError(op string, kind error, message string, cause error) *Error {
	return &Error{Op: op, Kind: kind, Message: message, Err: cause}
}
