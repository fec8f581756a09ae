package rental

import (
	"errors"
	"fmt"

	"rentaread/model"
)

// errors used by controllers

type ErrCode string

const (
	ErrNotFound                ErrCode = "NOT_FOUND"
	ErrForbidden               ErrCode = "FORBIDDEN"
	ErrInvalidStateTransition  ErrCode = "INVALID_STATE_TRANSITION"
	ErrConcurrentModification  ErrCode = "CONCURRENT_MODIFICATION"
	ErrBookUnavailable         ErrCode = "BOOK_UNAVAILABLE"
	ErrSelfRentalForbidden     ErrCode = "SELF_RENTAL_FORBIDDEN"
	ErrInvalidDurationFormat   ErrCode = "INVALID_DURATION_FORMAT"
	ErrCodeGenerationExhausted ErrCode = "CODE_GENERATION_EXHAUSTED"

	// payment steps are lifecycle transitions, their codes live here too
	ErrInvalidPaymentSignature   ErrCode = "INVALID_PAYMENT_SIGNATURE"
	ErrPaymentServiceUnavailable ErrCode = "PAYMENT_SERVICE_UNAVAILABLE"
)

type codedError struct {
	code ErrCode
	msg  string
}

func (e codedError) Error() string {
	if e.msg != "" {
		return e.msg
	}
	return string(e.code)
}
func (e codedError) Code() ErrCode { return e.code }

func makeErr(c ErrCode, msg string) error { return codedError{code: c, msg: msg} }

// NewError builds a coded lifecycle error; the payment service shares
// this taxonomy since its steps drive rental transitions.
func NewError(c ErrCode, msg string) error { return makeErr(c, msg) }

// StateError reports an attempted transition from the wrong source
// state, carrying both for the error payload.
type StateError struct {
	Attempted string
	Required  model.RentalStatus
	Actual    model.RentalStatus
}

func (e *StateError) Error() string {
	return fmt.Sprintf("cannot %s: rental status is %q, need %q", e.Attempted, e.Actual, e.Required)
}

func (e *StateError) Code() ErrCode { return ErrInvalidStateTransition }

// Code extracts the error code for controller status mapping.
func Code(err error) ErrCode {
	var ce interface{ Code() ErrCode }
	if errors.As(err, &ce) {
		return ce.Code()
	}
	return ""
}
