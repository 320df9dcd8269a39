// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package gate implements the payment gate in front of the acceptance
// prediction. A Machine owns one gate: the user's predict action starts a
// cycle, a Strategy waits for payment, and on success the machine asks the
// Predictor for the result.
//
// At most one cycle is active. Starting a new cycle, Cancel, and Close all
// invalidate the running cycle before joining its goroutine, and every
// mutation the goroutine makes is checked against the cycle's generation
// and context first, so an abandoned cycle never changes machine state.
package gate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pdiddy/acceptance-predictor/internal/apperr"
	"github.com/pdiddy/acceptance-predictor/internal/logging"
	"github.com/pdiddy/acceptance-predictor/pkg/types"
)

var (
	// ErrClosed is returned by every call after Close.
	ErrClosed = errors.New("gate: machine closed")

	// ErrConfirmUnavailable is returned by Confirm outside an awaiting
	// cycle or while the strategy still blocks confirmation.
	ErrConfirmUnavailable = errors.New("gate: confirmation not available")
)

// Strategy waits for payment within one cycle.
type Strategy interface {
	// Name identifies the strategy in logs and metrics.
	Name() string

	// CanConfirm reports whether a manual confirm is accepted with the
	// given seconds remaining.
	CanConfirm(remaining int) bool

	// Await blocks until the payment resolves or ctx ends. A cancelled
	// ctx yields OutcomeCancelled.
	Await(ctx context.Context, c *Cycle) (Outcome, error)
}

// Predictor fetches the prediction once payment succeeded.
type Predictor interface {
	Predict(ctx context.Context, req types.PredictionRequest) (types.Prediction, error)
}

// Scores is the reviewer input the machine reads.
type Scores interface {
	HasScore() bool
	Flatten() (scores, confidences []float64)
}

// SettingsSource supplies the settings snapshot each cycle starts from.
type SettingsSource interface {
	Snapshot() types.Settings
}

// Metrics records cycle outcomes.
type Metrics interface {
	CycleStarted(strategy string)
	CycleResolved(strategy, outcome string)
	PredictionResolved(ok bool)
}

type noopMetrics struct{}

func (noopMetrics) CycleStarted(string)          {}
func (noopMetrics) CycleResolved(string, string) {}
func (noopMetrics) PredictionResolved(bool)      {}

// Options configures a Machine. Strategy, Predictor, Scores and Settings
// are required.
type Options struct {
	Strategy  Strategy
	Predictor Predictor
	Scores    Scores
	Settings  SettingsSource
	Metrics   Metrics
	Logger    *slog.Logger

	// Observer is called after every transition while the machine lock is
	// held. It must not call back into the Machine.
	Observer func(Transition)
}

// Machine is the payment gate state machine. It is safe for concurrent use.
type Machine struct {
	strategy  Strategy
	predictor Predictor
	scores    Scores
	settings  SettingsSource
	metrics   Metrics
	log       *slog.Logger
	observer  func(Transition)

	base       context.Context
	baseCancel context.CancelFunc

	// opMu serializes Predict, Cancel and Close so at most one of them
	// tears down and restarts a cycle at a time.
	opMu sync.Mutex

	mu         sync.Mutex
	closed     bool
	state      State
	gen        uint64
	cycleID    string
	orderID    string
	remaining  int
	attempts   int
	cycleSet   types.Settings
	prediction *types.Prediction
	lastErr    error
	cancel     context.CancelFunc
	confirm    chan struct{}
	done       chan struct{}
}

// New validates opts and returns an idle machine.
func New(opts Options) (*Machine, error) {
	switch {
	case opts.Strategy == nil:
		return nil, fmt.Errorf("gate: strategy is required")
	case opts.Predictor == nil:
		return nil, fmt.Errorf("gate: predictor is required")
	case opts.Scores == nil:
		return nil, fmt.Errorf("gate: scores are required")
	case opts.Settings == nil:
		return nil, fmt.Errorf("gate: settings source is required")
	}
	if opts.Metrics == nil {
		opts.Metrics = noopMetrics{}
	}
	if opts.Logger == nil {
		opts.Logger = logging.Discard()
	}

	base, cancel := context.WithCancel(context.Background())
	return &Machine{
		strategy:   opts.Strategy,
		predictor:  opts.Predictor,
		scores:     opts.Scores,
		settings:   opts.Settings,
		metrics:    opts.Metrics,
		log:        opts.Logger.With("strategy", opts.Strategy.Name()),
		observer:   opts.Observer,
		base:       base,
		baseCancel: cancel,
		state:      Idle,
	}, nil
}

// Predict is the user's predict action and returns the cycle id.
//
// Without a scored reviewer it returns a Validation error and the state
// does not change. In PaymentSucceeded it re-runs the prediction for the
// paid cycle. While a prediction is in flight it returns the current cycle
// unchanged. Otherwise it stops any running cycle and starts a new one
// awaiting payment.
//
// The cycle outlives ctx; use Cancel or Close to stop it.
func (m *Machine) Predict(ctx context.Context) (string, error) {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	if err := ctx.Err(); err != nil {
		return "", err
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return "", ErrClosed
	}
	if !m.scores.HasScore() {
		err := apperr.Validation("at least one reviewer score is required")
		m.lastErr = err
		m.mu.Unlock()
		m.log.Info("predict rejected", "reason", "no scores")
		return "", err
	}

	switch m.state {
	case PredictionRequested:
		id := m.cycleID
		m.mu.Unlock()
		return id, nil
	case PaymentSucceeded:
		if m.running() {
			id := m.cycleID
			m.mu.Unlock()
			return id, nil
		}
		c := m.beginLocked(m.cycleID, m.cycleSet)
		m.mu.Unlock()
		m.log.Info("retrying prediction", "cycle", c.ID)
		go m.run(c, true)
		return c.ID, nil
	}

	done := m.stopLocked()
	if m.state == AwaitingPayment {
		m.transitionLocked(Idle, nil)
	}
	m.mu.Unlock()
	if err := join(ctx, done); err != nil {
		return "", err
	}

	m.mu.Lock()
	settings := m.settings.Snapshot()
	c := m.beginLocked(uuid.NewString(), settings)
	m.orderID = ""
	m.attempts = 0
	m.remaining = settings.WaitSeconds()
	m.prediction = nil
	m.transitionLocked(AwaitingPayment, nil)
	m.mu.Unlock()

	m.metrics.CycleStarted(m.strategy.Name())
	m.log.Info("cycle started", "cycle", c.ID, "price", settings.Price)
	go m.run(c, false)
	return c.ID, nil
}

// Confirm is the manual payment confirmation.
func (m *Machine) Confirm() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	if !m.confirmAvailableLocked() {
		return ErrConfirmUnavailable
	}
	select {
	case m.confirm <- struct{}{}:
	default:
	}
	return nil
}

// ConfirmAvailable reports whether Confirm would be accepted now.
func (m *Machine) ConfirmAvailable() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return !m.closed && m.confirmAvailableLocked()
}

func (m *Machine) confirmAvailableLocked() bool {
	return m.state == AwaitingPayment && m.confirm != nil && m.strategy.CanConfirm(m.remaining)
}

// Cancel backs out of the current cycle and waits for its goroutine to
// exit. Awaiting payment returns to Idle; an in-flight prediction returns
// to PaymentSucceeded so the payment is kept; a failed, timed out or ready
// cycle is dismissed to Idle.
func (m *Machine) Cancel() error {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}
	done := m.stopLocked()
	switch m.state {
	case AwaitingPayment, PaymentFailed, PaymentTimedOut, PredictionReady:
		m.transitionLocked(Idle, nil)
	case PredictionRequested:
		m.transitionLocked(PaymentSucceeded, nil)
	}
	m.mu.Unlock()

	<-done
	return nil
}

// Close tears the machine down and waits for the cycle goroutine. No
// observer call happens after Close returns.
func (m *Machine) Close() error {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}
	m.closed = true
	done := m.stopLocked()
	m.observer = nil
	m.mu.Unlock()

	m.baseCancel()
	<-done
	return nil
}

// Wait blocks until the current cycle goroutine exits or ctx ends, then
// returns the status.
func (m *Machine) Wait(ctx context.Context) (Status, error) {
	m.mu.Lock()
	done := m.done
	m.mu.Unlock()

	if done != nil {
		select {
		case <-done:
		case <-ctx.Done():
			return m.Status(), ctx.Err()
		}
	}
	return m.Status(), nil
}

// Status returns a copy of the machine state.
func (m *Machine) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := Status{
		State:            m.state,
		CycleID:          m.cycleID,
		OrderID:          m.orderID,
		Remaining:        m.remaining,
		Attempts:         m.attempts,
		ConfirmAvailable: !m.closed && m.confirmAvailableLocked(),
		Settings:         m.cycleSet.Clone(),
		Err:              m.lastErr,
	}
	if m.prediction != nil {
		p := *m.prediction
		s.Prediction = &p
	}
	return s
}

// --- cycle plumbing ---

// beginLocked bumps the generation and prepares a cycle. Caller holds mu.
func (m *Machine) beginLocked(id string, settings types.Settings) *Cycle {
	m.gen++
	ctx, cancel := context.WithCancel(m.base)
	confirm := make(chan struct{}, 1)

	m.cycleID = id
	m.cycleSet = settings
	m.lastErr = nil
	m.cancel = cancel
	m.confirm = confirm
	m.done = make(chan struct{})

	return &Cycle{
		ID:       id,
		Settings: settings.Clone(),
		m:        m,
		gen:      m.gen,
		ctx:      ctx,
		confirm:  confirm,
		done:     m.done,
	}
}

// stopLocked invalidates the running cycle and returns a channel closed
// once its goroutine has exited. Caller holds mu.
func (m *Machine) stopLocked() <-chan struct{} {
	m.gen++
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
	m.confirm = nil
	if m.done == nil {
		c := make(chan struct{})
		close(c)
		return c
	}
	return m.done
}

// running reports whether the cycle goroutine is still alive. Caller
// holds mu.
func (m *Machine) running() bool {
	if m.done == nil {
		return false
	}
	select {
	case <-m.done:
		return false
	default:
		return true
	}
}

func join(ctx context.Context, done <-chan struct{}) error {
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// transitionLocked moves to the target state. Caller holds mu.
func (m *Machine) transitionLocked(to State, err error) bool {
	from := m.state
	if !IsValidTransition(from, to) {
		m.log.Error("illegal gate transition", "from", from, "to", to, "cycle", m.cycleID)
		return false
	}
	m.state = to
	if err != nil {
		m.lastErr = err
	}
	m.log.Debug("gate transition", "from", from, "to", to, "cycle", m.cycleID)
	if m.observer != nil {
		m.observer(Transition{From: from, To: to, CycleID: m.cycleID, Err: err, At: time.Now()})
	}
	return true
}

// guard runs fn under mu only while c is still the live cycle.
func (m *Machine) guard(c *Cycle, fn func()) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed || c.gen != m.gen || c.ctx.Err() != nil {
		return false
	}
	fn()
	return true
}

// run is the cycle goroutine.
func (m *Machine) run(c *Cycle, paid bool) {
	defer close(c.done)

	if !paid {
		outcome, err := m.strategy.Await(c.ctx, c)
		live := m.guard(c, func() {
			switch outcome {
			case OutcomeSucceeded:
				m.transitionLocked(PaymentSucceeded, nil)
			case OutcomeTimedOut:
				m.transitionLocked(PaymentTimedOut, err)
			default:
				if err == nil {
					err = apperr.Network("payment wait ended without a result", nil)
				}
				m.transitionLocked(PaymentFailed, err)
			}
		})
		if !live {
			m.log.Debug("cycle abandoned", "cycle", c.ID)
			return
		}
		m.metrics.CycleResolved(m.strategy.Name(), outcome.String())
		if outcome != OutcomeSucceeded {
			m.log.Info("payment not completed", "cycle", c.ID, "outcome", outcome, "error", err)
			return
		}
		m.log.Info("payment succeeded", "cycle", c.ID)
	}

	m.requestPrediction(c)
}

func (m *Machine) requestPrediction(c *Cycle) {
	if !m.guard(c, func() { m.transitionLocked(PredictionRequested, nil) }) {
		return
	}

	scores, confidences := m.scores.Flatten()
	start := time.Now()
	p, err := m.predictor.Predict(c.ctx, types.PredictionRequest{
		Scores:      scores,
		Confidences: confidences,
		Conference:  c.Settings.Conference,
	})

	live := m.guard(c, func() {
		if err != nil {
			m.transitionLocked(PredictionFailed, err)
			m.transitionLocked(PaymentSucceeded, err)
			return
		}
		m.prediction = &p
		m.transitionLocked(PredictionReady, nil)
	})
	if !live {
		return
	}
	m.metrics.PredictionResolved(err == nil)
	if err != nil {
		m.log.Warn("prediction failed", "cycle", c.ID, "error", err)
		return
	}
	m.log.Info("prediction ready", "cycle", c.ID,
		"probability", p.Probability, "elapsed", time.Since(start))
}

// Cycle is the strategy's view of one payment cycle. Its setters report
// false once the cycle is no longer live, and the strategy should then
// return.
type Cycle struct {
	ID       string
	Settings types.Settings

	m       *Machine
	gen     uint64
	ctx     context.Context
	confirm chan struct{}
	done    chan struct{}
}

// Confirmed delivers a value for each accepted manual confirm.
func (c *Cycle) Confirmed() <-chan struct{} { return c.confirm }

// SetRemaining publishes the seconds left on the payment timer.
func (c *Cycle) SetRemaining(n int) bool {
	return c.m.guard(c, func() { c.m.remaining = n })
}

// SetAttempts publishes how many status checks ran.
func (c *Cycle) SetAttempts(n int) bool {
	return c.m.guard(c, func() { c.m.attempts = n })
}

// SetOrderID records the order created for this cycle.
func (c *Cycle) SetOrderID(id string) bool {
	return c.m.guard(c, func() { c.m.orderID = id })
}
