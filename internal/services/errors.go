package services

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnauthenticatedSession signals that the portal redirected a request to
// its login page. It is the only error that triggers a re-login.
var ErrUnauthenticatedSession = errors.New("portal session is not authenticated")

// ApplicationError is the general failure returned by the portal services.
// Op names the operation, Key the document involved, if any.
type ApplicationError struct {
	Op      string
	Key     string
	Message string
	Err     error
}

func (e *ApplicationError) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	b.WriteString(e.Message)
	if e.Key != "" {
		fmt.Fprintf(&b, " (chave %s)", e.Key)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *ApplicationError) Unwrap() error {
	return e.Err
}

// IsUnauthenticated reports whether err carries ErrUnauthenticatedSession
func IsUnauthenticated(err error) bool {
	return errors.Is(err, ErrUnauthenticatedSession)
}

func newAppError(op, message string, err error) *ApplicationError {
	return &ApplicationError{Op: op, Message: message, Err: err}
}

func newKeyError(op, key, message string, err error) *ApplicationError {
	return &ApplicationError{Op: op, Key: key, Message: message, Err: err}
}

// newUnauthenticatedError builds the session expired specialization of
// ApplicationError
func newUnauthenticatedError(op, target string) *ApplicationError {
	message := "portal redirected to the login page"
	if target != "" {
		message += " (" + target + ")"
	}
	return &ApplicationError{Op: op, Message: message, Err: ErrUnauthenticatedSession}
}
