package gateway

import (
	"errors"
	"fmt"
)

type ErrorKind int

const (
	KindTransport ErrorKind = iota + 1
	KindNotFound
	KindValidation
)

var (
	ErrTransport  = errors.New("transport error")
	ErrNotFound   = errors.New("not found")
	ErrValidation = errors.New("validation error")
)

func (k ErrorKind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindNotFound:
		return "not_found"
	case KindValidation:
		return "validation"
	}
	return "unknown"
}

func (k ErrorKind) sentinel() error {
	switch k {
	case KindTransport:
		return ErrTransport
	case KindNotFound:
		return ErrNotFound
	case KindValidation:
		return ErrValidation
	}
	return nil
}

// Error is returned by every gateway implementation.
type Error struct {
	Kind  ErrorKind
	Op    string
	Table Table
	Err   error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s %s: %s", e.Op, e.Table, e.Kind.sentinel())
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches the sentinel of the error's kind.
func (e *Error) Is(target error) bool {
	return target == e.Kind.sentinel()
}

func Transport(op string, table Table, err error) error {
	return &Error{Kind: KindTransport, Op: op, Table: table, Err: err}
}

func NotFound(op string, table Table, err error) error {
	return &Error{Kind: KindNotFound, Op: op, Table: table, Err: err}
}

func Validation(op string, table Table, err error) error {
	return &Error{Kind: KindValidation, Op: op, Table: table, Err: err}
}

// KindOf reports the kind of a gateway error, or zero for foreign errors.
func KindOf(err error) ErrorKind {
	var gwErr *Error
	if errors.As(err, &gwErr) {
		return gwErr.Kind
	}
	return 0
}
