package model

import (
	"errors"
	"fmt"
)

// Kind classifies ledger failures
type Kind int

// Error kinds returned by the ledger
const (
	KindValidation Kind = iota + 1
	KindUnknownSymbol
	KindQuoteUnavailable
	KindInsufficientFunds
	KindInsufficientShares
	KindAccountNotFound
	KindStore
)

var kindNames = map[Kind]string{
	KindValidation:         "validation",
	KindUnknownSymbol:      "unknown symbol",
	KindQuoteUnavailable:   "quote unavailable",
	KindInsufficientFunds:  "insufficient funds",
	KindInsufficientShares: "insufficient shares",
	KindAccountNotFound:    "account not found",
	KindStore:              "store",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Error is a typed ledger failure. None of them leaves a partial mutation behind.
type Error struct {
	Kind   Kind
	Detail string
	Err    error
}

// Sentinels for errors.Is
var (
	ErrValidation         = &Error{Kind: KindValidation}
	ErrUnknownSymbol      = &Error{Kind: KindUnknownSymbol}
	ErrQuoteUnavailable   = &Error{Kind: KindQuoteUnavailable}
	ErrInsufficientFunds  = &Error{Kind: KindInsufficientFunds}
	ErrInsufficientShares = &Error{Kind: KindInsufficientShares}
	ErrAccountNotFound    = &Error{Kind: KindAccountNotFound}
	ErrStore              = &Error{Kind: KindStore}
)

// Errorf builds an Error of the given kind
func Errorf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Detail: fmt.Sprintf(format, args...)}
}

// Wrap builds an Error of the given kind around a cause
func Wrap(kind Kind, err error, detail string) *Error {
	return &Error{Kind: kind, Detail: detail, Err: err}
}

func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any Error of the same kind
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// KindOf returns the kind of err, or 0 when err is not a ledger Error
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

// Retryable reports whether resubmitting the same request may succeed without changing it
func Retryable(err error) bool {
	switch KindOf(err) {
	case KindQuoteUnavailable, KindStore:
		return true
	}
	return false
}
