package errors

import (
	stderrors "errors"
	"fmt"
)

// Kind is the stable, client-visible name of a failure class.
type Kind string

const (
	KindValidation            Kind = "ValidationError"
	KindSlotUnavailable       Kind = "SlotUnavailable"
	KindCouponNotFound        Kind = "CouponError.NotFound"
	KindCouponAlreadyRedeemed Kind = "CouponError.AlreadyRedeemed"
	KindNotFound              Kind = "NotFound"
	KindConsistency           Kind = "ConsistencyError"
	KindInternal              Kind = "InternalError"
)

// BookingError carries a Kind through the engine so the API can report
// which part of a request failed.
type BookingError struct {
	Kind    Kind
	Field   string
	Message string
	Err     error
}

func (e *BookingError) Error() string {
	msg := string(e.Kind)
	if e.Field != "" {
		msg += " (" + e.Field + ")"
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *BookingError) Unwrap() error {
	return e.Err
}

// Is matches any BookingError of the same Kind, so callers can compare
// against the sentinels below with errors.Is.
func (e *BookingError) Is(target error) bool {
	var t *BookingError
	if !stderrors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

var (
	ErrValidation            = &BookingError{Kind: KindValidation}
	ErrSlotUnavailable       = &BookingError{Kind: KindSlotUnavailable, Message: "slot does not exist or is already booked"}
	ErrCouponNotFound        = &BookingError{Kind: KindCouponNotFound, Message: "coupon code does not exist"}
	ErrCouponAlreadyRedeemed = &BookingError{Kind: KindCouponAlreadyRedeemed, Message: "coupon has already been redeemed"}
	ErrNotFound              = &BookingError{Kind: KindNotFound}
	ErrConsistency           = &BookingError{Kind: KindConsistency}
)

func Validation(field, message string) error {
	return &BookingError{Kind: KindValidation, Field: field, Message: message}
}

func NotFound(format string, args ...interface{}) error {
	return &BookingError{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

// Consistency reports a failed compensation. It always needs an operator.
func Consistency(message string, err error) error {
	return &BookingError{Kind: KindConsistency, Message: message, Err: err}
}

// KindOf returns the Kind of the first BookingError in err's chain, or
// KindInternal when there is none.
func KindOf(err error) Kind {
	var be *BookingError
	if stderrors.As(err, &be) {
		return be.Kind
	}
	return KindInternal
}

// FieldOf returns the offending field of a validation error, if any.
func FieldOf(err error) string {
	var be *BookingError
	if stderrors.As(err, &be) {
		return be.Field
	}
	return ""
}
