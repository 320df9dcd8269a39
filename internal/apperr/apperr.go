// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package apperr classifies the failures a prediction session can surface to
// the user. Every error that reaches the gate is one of these kinds, each
// with its own user-facing message. None of them is fatal.
package apperr

import (
	"errors"
	"fmt"

	"github.com/ZanzyTHEbar/errbuilder-go"
)

// Kind identifies the failure class.
type Kind string

const (
	KindValidation      Kind = "validation"
	KindNetwork         Kind = "network"
	KindPaymentTimeout  Kind = "payment_timeout"
	KindPaymentDeclined Kind = "payment_declined"
	KindPrediction      Kind = "prediction"
)

// userMessages are shown verbatim; the technical message goes to the log.
var userMessages = map[Kind]string{
	KindValidation:      "Enter at least one reviewer score before predicting.",
	KindNetwork:         "The prediction service could not be reached. Please try again.",
	KindPaymentTimeout:  "Payment was not confirmed in time. Scan the code and confirm again.",
	KindPaymentDeclined: "Payment failed. Please try again.",
	KindPrediction:      "Prediction failed. Your payment is kept; retry to fetch the result.",
}

// Error is a classified failure built on errbuilder.
type Error struct {
	*errbuilder.ErrBuilder
	Kind Kind
}

// Error returns "kind: message".
func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.ErrBuilder.Msg)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.ErrBuilder.Unwrap()
}

// Is matches any *Error of the same kind, so callers can write
// errors.Is(err, apperr.ErrPaymentTimeout).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// Kind markers for errors.Is.
var (
	ErrValidation      = &Error{ErrBuilder: errbuilder.New(), Kind: KindValidation}
	ErrNetwork         = &Error{ErrBuilder: errbuilder.New(), Kind: KindNetwork}
	ErrPaymentTimeout  = &Error{ErrBuilder: errbuilder.New(), Kind: KindPaymentTimeout}
	ErrPaymentDeclined = &Error{ErrBuilder: errbuilder.New(), Kind: KindPaymentDeclined}
	ErrPrediction      = &Error{ErrBuilder: errbuilder.New(), Kind: KindPrediction}
)

func newError(kind Kind, b *errbuilder.ErrBuilder, cause error) *Error {
	if cause != nil {
		b = b.WithCause(cause)
	}
	return &Error{ErrBuilder: b, Kind: kind}
}

// Validation reports bad user input; the user fixes it and retries.
func Validation(format string, args ...any) *Error {
	return newError(KindValidation, errbuilder.New().
		WithCode(errbuilder.CodeInvalidArgument).
		WithMsg(fmt.Sprintf(format, args...)), nil)
}

// Network reports a failed or malformed collaborator call.
func Network(msg string, cause error) *Error {
	return newError(KindNetwork, errbuilder.New().
		WithCode(errbuilder.CodeUnavailable).
		WithMsg(msg), cause)
}

// PaymentTimeout reports an exhausted poll ceiling.
func PaymentTimeout(orderID string, attempts int) *Error {
	return newError(KindPaymentTimeout, errbuilder.New().
		WithCode(errbuilder.CodeDeadlineExceeded).
		WithMsg(fmt.Sprintf("order %s still pending after %d checks", orderID, attempts)), nil)
}

// PaymentDeclined reports an explicit failure status for an order.
func PaymentDeclined(orderID, status string) *Error {
	return newError(KindPaymentDeclined, errbuilder.New().
		WithCode(errbuilder.CodeFailedPrecondition).
		WithMsg(fmt.Sprintf("order %s reported %s", orderID, status)), nil)
}

// Prediction reports a non-success answer from the prediction service.
func Prediction(msg string, cause error) *Error {
	return newError(KindPrediction, errbuilder.New().
		WithCode(errbuilder.CodeInternal).
		WithMsg(msg), cause)
}

// KindOf returns the kind of the first *Error in err's chain, or "" when
// err is unclassified.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// UserMessage returns the message to show for err. Unclassified errors
// fall back to the network message.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	if msg, ok := userMessages[KindOf(err)]; ok {
		return msg
	}
	return userMessages[KindNetwork]
}
