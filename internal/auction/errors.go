package auction

import (
	"errors"
	"fmt"
)

// Kind classifies why an operation was refused
type Kind string

const (
	KindAuthorization        Kind = "authorization"
	KindCustody              Kind = "custody"
	KindBidTooLow            Kind = "bid_too_low"
	KindDenominationMismatch Kind = "denomination_mismatch"
	KindRefundTargetMismatch Kind = "refund_target_mismatch"
	KindNotOngoing           Kind = "not_ongoing"
	KindTransfer             Kind = "transfer"
	KindNotFound             Kind = "not_found"
	KindInvalidInput         Kind = "invalid_input"
)

// Error is a refused operation. Nothing it touched was committed.
type Error struct {
	Kind    Kind
	Op      string
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Op, e.Kind)
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same kind, so errors.Is(err, ErrBidTooLow) works
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// Sentinels for errors.Is
var (
	ErrAuthorization        = &Error{Kind: KindAuthorization}
	ErrCustody              = &Error{Kind: KindCustody}
	ErrBidTooLow            = &Error{Kind: KindBidTooLow}
	ErrDenominationMismatch = &Error{Kind: KindDenominationMismatch}
	ErrRefundTargetMismatch = &Error{Kind: KindRefundTargetMismatch}
	ErrNotOngoing           = &Error{Kind: KindNotOngoing}
	ErrTransfer             = &Error{Kind: KindTransfer}
	ErrNotFound             = &Error{Kind: KindNotFound}
	ErrInvalidInput         = &Error{Kind: KindInvalidInput}
)

// KindOf returns the kind of a domain error, or "" for anything else
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

func newError(kind Kind, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Message: fmt.Sprintf(format, args...)}
}

func wrapError(kind Kind, op string, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Message: fmt.Sprintf(format, args...), Err: err}
}
