// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package gate

import (
	"time"

	"github.com/pdiddy/acceptance-predictor/pkg/types"
)

// State is a payment gate state.
type State string

const (
	Idle                State = "idle"
	AwaitingPayment     State = "awaiting_payment"
	PaymentSucceeded    State = "payment_succeeded"
	PaymentFailed       State = "payment_failed"
	PaymentTimedOut     State = "payment_timed_out"
	PredictionRequested State = "prediction_requested"
	PredictionReady     State = "prediction_ready"
	PredictionFailed    State = "prediction_failed"
)

// validTransitions defines the legal gate transitions.
// Each key is a source state, and the value is the set of valid targets.
var validTransitions = map[State]map[State]bool{
	Idle: {AwaitingPayment: true},
	AwaitingPayment: {
		PaymentSucceeded: true,
		PaymentFailed:    true,
		PaymentTimedOut:  true,
		Idle:             true, // cancel
	},
	PaymentFailed:    {AwaitingPayment: true, Idle: true},
	PaymentTimedOut:  {AwaitingPayment: true, Idle: true},
	PaymentSucceeded: {PredictionRequested: true},
	PredictionRequested: {
		PredictionReady:  true,
		PredictionFailed: true,
		PaymentSucceeded: true, // cancel keeps the payment
	},
	PredictionFailed: {PaymentSucceeded: true},
	PredictionReady:  {AwaitingPayment: true, Idle: true},
}

// IsValidTransition checks if a gate transition is legal.
func IsValidTransition(from, to State) bool {
	targets, ok := validTransitions[from]
	if !ok {
		return false
	}
	return targets[to]
}

// Outcome is how a strategy's wait for payment ended.
type Outcome int

const (
	OutcomeSucceeded Outcome = iota
	OutcomeDeclined
	OutcomeFailed
	OutcomeTimedOut
	OutcomeCancelled
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSucceeded:
		return "succeeded"
	case OutcomeDeclined:
		return "declined"
	case OutcomeFailed:
		return "failed"
	case OutcomeTimedOut:
		return "timed_out"
	case OutcomeCancelled:
		return "cancelled"
	}
	return "unknown"
}

// Transition is reported to the observer after every state change.
type Transition struct {
	From    State
	To      State
	CycleID string
	Err     error
	At      time.Time
}

// Status is a point-in-time copy of the machine.
type Status struct {
	State            State
	CycleID          string
	OrderID          string
	Remaining        int
	Attempts         int
	ConfirmAvailable bool
	Settings         types.Settings
	Prediction       *types.Prediction
	Err              error
}

// Settled reports whether s needs no further action from the cycle
// goroutine.
func (s State) Settled() bool {
	switch s {
	case AwaitingPayment, PredictionRequested:
		return false
	}
	return true
}
