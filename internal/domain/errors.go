package domain

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindValidation       Kind = "validation"
	KindNotFound         Kind = "not_found"
	KindDuplicate        Kind = "duplicate"
	KindAuthentication   Kind = "authentication"
	KindQuoteUnavailable Kind = "quote_unavailable"
	KindInternal         Kind = "internal"
)

// Error is an error that is safe to show to API callers. Err, when set, is
// kept for logs and errors.Is/As but never rendered.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func newError(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func Validationf(format string, args ...any) *Error {
	return newError(KindValidation, format, args...)
}

func NotFoundf(format string, args ...any) *Error {
	return newError(KindNotFound, format, args...)
}

func Duplicatef(format string, args ...any) *Error {
	return newError(KindDuplicate, format, args...)
}

func Authenticationf(format string, args ...any) *Error {
	return newError(KindAuthentication, format, args...)
}

// QuoteUnavailable wraps a quote provider failure for symbol.
func QuoteUnavailable(symbol string, err error) *Error {
	return &Error{
		Kind:    KindQuoteUnavailable,
		Message: fmt.Sprintf("quote unavailable for %s", symbol),
		Err:     err,
	}
}

// KindOf returns the kind of the first *Error in err's chain, or KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
