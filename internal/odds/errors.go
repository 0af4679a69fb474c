package odds

import (
	"errors"
	"fmt"
)

type ErrorKind string

const (
	KindTransport ErrorKind = "transport"
	KindStatus    ErrorKind = "status"
	KindDecode    ErrorKind = "decode"
	KindConfig    ErrorKind = "config"
)

// Error is returned by every gateway call that did not produce data.
type Error struct {
	Kind    ErrorKind
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Kind == KindStatus {
		return fmt.Sprintf("API Error: %d", e.Status)
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return string(e.Kind) + " error"
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsKind reports whether err is an *Error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var oe *Error
	return errors.As(err, &oe) && oe.Kind == kind
}

func transportError(err error) *Error {
	return &Error{Kind: KindTransport, Message: err.Error(), Err: err}
}

func statusError(code int) *Error {
	return &Error{Kind: KindStatus, Status: code, Message: fmt.Sprintf("API Error: %d", code)}
}

func decodeError(err error) *Error {
	return &Error{Kind: KindDecode, Message: "decode odds response: " + err.Error(), Err: err}
}
