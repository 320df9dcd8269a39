// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package gate

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/acceptance-predictor/internal/apperr"
	"github.com/pdiddy/acceptance-predictor/pkg/types"
)

// --- fakes ---

type fakeScores struct {
	scores      []float64
	confidences []float64
}

func (f fakeScores) HasScore() bool { return len(f.scores) > 0 }

func (f fakeScores) Flatten() ([]float64, []float64) {
	return append([]float64{}, f.scores...), append([]float64{}, f.confidences...)
}

type staticSettings struct{ s types.Settings }

func (s staticSettings) Snapshot() types.Settings { return s.s.Clone() }

func settingsWithWait(d time.Duration) staticSettings {
	s := types.DefaultSettings()
	s.PaymentWaitTime = d
	return staticSettings{s: s}
}

type fakePredictor struct {
	mu      sync.Mutex
	calls   []types.PredictionRequest
	errs    []error // consumed one per call; nil entries succeed
	block   chan struct{}
	started chan struct{}
	result  types.Prediction
}

func (f *fakePredictor) Predict(ctx context.Context, req types.PredictionRequest) (types.Prediction, error) {
	f.mu.Lock()
	f.calls = append(f.calls, req)
	var err error
	if len(f.errs) > 0 {
		err, f.errs = f.errs[0], f.errs[1:]
	}
	block, started := f.block, f.started
	f.mu.Unlock()

	if started != nil {
		started <- struct{}{}
	}
	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
		}
	}
	if err != nil {
		return types.Prediction{}, err
	}
	return f.result, nil
}

func (f *fakePredictor) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakeOrders struct {
	mu        sync.Mutex
	created   []types.OrderRequest
	checks    int
	statuses  []types.PaymentStatus // consumed per check; the last one repeats
	statusErr error
	createErr error
}

func (f *fakeOrders) CreateOrder(_ context.Context, req types.OrderRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return "", f.createErr
	}
	f.created = append(f.created, req)
	return fmt.Sprintf("order-%d", len(f.created)), nil
}

func (f *fakeOrders) PaymentStatus(_ context.Context, _ string) (types.PaymentStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.checks++
	if f.statusErr != nil {
		return "", f.statusErr
	}
	if len(f.statuses) == 0 {
		return types.PaymentPending, nil
	}
	s := f.statuses[0]
	if len(f.statuses) > 1 {
		f.statuses = f.statuses[1:]
	}
	return s, nil
}

func (f *fakeOrders) counts() (created, checks int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.created), f.checks
}

type eventLog struct {
	mu     sync.Mutex
	events []Transition
}

func (l *eventLog) record(t Transition) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, t)
}

func (l *eventLog) states() []State {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]State, 0, len(l.events))
	for _, e := range l.events {
		out = append(out, e.To)
	}
	return out
}

func (l *eventLog) len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.events)
}

type fixture struct {
	m         *Machine
	predictor *fakePredictor
	events    *eventLog
}

func newFixture(t *testing.T, strategy Strategy, settings staticSettings, scores fakeScores) fixture {
	t.Helper()
	f := fixture{
		predictor: &fakePredictor{result: types.Prediction{Probability: 0.62, RankInAll: 2100}},
		events:    &eventLog{},
	}
	m, err := New(Options{
		Strategy:  strategy,
		Predictor: f.predictor,
		Scores:    scores,
		Settings:  settings,
		Observer:  f.events.record,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close() })
	f.m = m
	return f
}

var someScores = fakeScores{scores: []float64{8, 6, 5, 3}, confidences: []float64{4, 3}}

func fastPoll(o *fakeOrders) Poll {
	return Poll{Orders: o, Interval: time.Millisecond, MaxAttempts: 30}
}

func wait(t *testing.T, m *Machine) Status {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	st, err := m.Wait(ctx)
	require.NoError(t, err)
	return st
}

// --- transition table ---

func TestIsValidTransition(t *testing.T) {
	tests := []struct {
		from, to State
		want     bool
	}{
		{Idle, AwaitingPayment, true},
		{Idle, PaymentSucceeded, false},
		{Idle, PredictionRequested, false},
		{AwaitingPayment, PaymentSucceeded, true},
		{AwaitingPayment, PaymentFailed, true},
		{AwaitingPayment, PaymentTimedOut, true},
		{AwaitingPayment, Idle, true},
		{AwaitingPayment, PredictionRequested, false},
		{PaymentFailed, AwaitingPayment, true},
		{PaymentTimedOut, AwaitingPayment, true},
		{PaymentTimedOut, PredictionRequested, false},
		{PaymentSucceeded, PredictionRequested, true},
		{PaymentSucceeded, AwaitingPayment, false},
		{PredictionRequested, PredictionReady, true},
		{PredictionRequested, PredictionFailed, true},
		{PredictionRequested, PaymentSucceeded, true},
		{PredictionFailed, PaymentSucceeded, true},
		{PredictionFailed, AwaitingPayment, false},
		{PredictionReady, AwaitingPayment, true},
		{PredictionReady, Idle, true},
		{State("bogus"), Idle, false},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s->%s", tt.from, tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, IsValidTransition(tt.from, tt.to))
		})
	}
}

func TestNewRequiresCollaborators(t *testing.T) {
	_, err := New(Options{})
	assert.Error(t, err)
	_, err = New(Options{Strategy: Countdown{}, Predictor: &fakePredictor{}, Scores: someScores})
	assert.Error(t, err)
}

// --- predict entry ---

func TestPredictWithoutScoresStaysIdle(t *testing.T) {
	orders := &fakeOrders{}
	f := newFixture(t, fastPoll(orders), settingsWithWait(0), fakeScores{})

	id, err := f.m.Predict(context.Background())
	require.ErrorIs(t, err, apperr.ErrValidation)
	assert.Empty(t, id)

	st := f.m.Status()
	assert.Equal(t, Idle, st.State)
	assert.ErrorIs(t, st.Err, apperr.ErrValidation)
	assert.Zero(t, f.events.len())

	created, _ := orders.counts()
	assert.Zero(t, created)
	assert.Zero(t, f.predictor.callCount())
}

func TestPredictHonoursCancelledContext(t *testing.T) {
	f := newFixture(t, Countdown{}, settingsWithWait(0), someScores)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := f.m.Predict(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, Idle, f.m.Status().State)
}

// --- poll strategy ---

func TestPollSuccessRunsPrediction(t *testing.T) {
	orders := &fakeOrders{statuses: []types.PaymentStatus{types.PaymentPending, types.PaymentPending, types.PaymentSuccess}}
	f := newFixture(t, fastPoll(orders), settingsWithWait(60*time.Second), someScores)

	id, err := f.m.Predict(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, id)

	st := wait(t, f.m)
	assert.Equal(t, PredictionReady, st.State)
	assert.Equal(t, id, st.CycleID)
	assert.Equal(t, "order-1", st.OrderID)
	assert.Equal(t, 3, st.Attempts)
	require.NotNil(t, st.Prediction)
	assert.Equal(t, 0.62, st.Prediction.Probability)
	assert.NoError(t, st.Err)

	assert.Equal(t, []State{AwaitingPayment, PaymentSucceeded, PredictionRequested, PredictionReady}, f.events.states())

	require.Len(t, orders.created, 1)
	assert.Equal(t, 9.90, orders.created[0].Amount)
	assert.Equal(t, "ICLR acceptance prediction", orders.created[0].Description)

	require.Equal(t, 1, f.predictor.callCount())
	req := f.predictor.calls[0]
	assert.Equal(t, []float64{8, 6, 5, 3}, req.Scores)
	assert.Equal(t, []float64{4, 3}, req.Confidences)
	assert.Equal(t, "ICLR", req.Conference)
}

func TestPollTimesOutAfterCeiling(t *testing.T) {
	orders := &fakeOrders{}
	f := newFixture(t, fastPoll(orders), settingsWithWait(0), someScores)

	_, err := f.m.Predict(context.Background())
	require.NoError(t, err)

	st := wait(t, f.m)
	assert.Equal(t, PaymentTimedOut, st.State)
	assert.ErrorIs(t, st.Err, apperr.ErrPaymentTimeout)
	assert.Equal(t, 30, st.Attempts)
	assert.Nil(t, st.Prediction)

	created, checks := orders.counts()
	assert.Equal(t, 1, created)
	assert.Equal(t, 30, checks)
	assert.Zero(t, f.predictor.callCount())
}

func TestPollDeclined(t *testing.T) {
	for _, status := range []types.PaymentStatus{types.PaymentFailed, types.PaymentExpired} {
		t.Run(string(status), func(t *testing.T) {
			orders := &fakeOrders{statuses: []types.PaymentStatus{types.PaymentPending, status}}
			f := newFixture(t, fastPoll(orders), settingsWithWait(0), someScores)

			_, err := f.m.Predict(context.Background())
			require.NoError(t, err)

			st := wait(t, f.m)
			assert.Equal(t, PaymentFailed, st.State)
			assert.ErrorIs(t, st.Err, apperr.ErrPaymentDeclined)
			assert.Zero(t, f.predictor.callCount())
		})
	}
}

func TestPollStatusErrorFailsCycle(t *testing.T) {
	orders := &fakeOrders{statusErr: apperr.Network("check-payment request failed", errors.New("connection refused"))}
	f := newFixture(t, fastPoll(orders), settingsWithWait(0), someScores)

	_, err := f.m.Predict(context.Background())
	require.NoError(t, err)

	st := wait(t, f.m)
	assert.Equal(t, PaymentFailed, st.State)
	assert.ErrorIs(t, st.Err, apperr.ErrNetwork)
	_, checks := orders.counts()
	assert.Equal(t, 1, checks)
}

func TestCreateOrderErrorFailsCycle(t *testing.T) {
	orders := &fakeOrders{createErr: apperr.Network("create-payment request failed", nil)}
	f := newFixture(t, fastPoll(orders), settingsWithWait(0), someScores)

	_, err := f.m.Predict(context.Background())
	require.NoError(t, err)

	st := wait(t, f.m)
	assert.Equal(t, PaymentFailed, st.State)
	assert.ErrorIs(t, st.Err, apperr.ErrNetwork)
	assert.Empty(t, st.OrderID)
}

func TestPollManualConfirm(t *testing.T) {
	orders := &fakeOrders{}
	f := newFixture(t, Poll{Orders: orders, Interval: time.Hour, MaxAttempts: 30}, settingsWithWait(60*time.Second), someScores)

	_, err := f.m.Predict(context.Background())
	require.NoError(t, err)
	assert.True(t, f.m.ConfirmAvailable())
	require.NoError(t, f.m.Confirm())

	st := wait(t, f.m)
	assert.Equal(t, PredictionReady, st.State)
	created, checks := orders.counts()
	assert.Equal(t, 1, created)
	assert.Zero(t, checks)
}

func TestRetryAfterFailureCreatesNewOrder(t *testing.T) {
	orders := &fakeOrders{statuses: []types.PaymentStatus{types.PaymentFailed}}
	f := newFixture(t, fastPoll(orders), settingsWithWait(0), someScores)

	first, err := f.m.Predict(context.Background())
	require.NoError(t, err)
	assert.Equal(t, PaymentFailed, wait(t, f.m).State)

	orders.mu.Lock()
	orders.statuses = []types.PaymentStatus{types.PaymentSuccess}
	orders.mu.Unlock()

	second, err := f.m.Predict(context.Background())
	require.NoError(t, err)
	assert.NotEqual(t, first, second)

	st := wait(t, f.m)
	assert.Equal(t, PredictionReady, st.State)
	assert.Equal(t, "order-2", st.OrderID)
	assert.NoError(t, st.Err)
}

// --- prediction failure ---

func TestPredictionFailureKeepsPayment(t *testing.T) {
	orders := &fakeOrders{statuses: []types.PaymentStatus{types.PaymentSuccess}}
	f := newFixture(t, fastPoll(orders), settingsWithWait(0), someScores)
	f.predictor.errs = []error{apperr.Prediction("prediction service rejected the request", nil)}

	id, err := f.m.Predict(context.Background())
	require.NoError(t, err)

	st := wait(t, f.m)
	assert.Equal(t, PaymentSucceeded, st.State)
	assert.ErrorIs(t, st.Err, apperr.ErrPrediction)
	assert.Nil(t, st.Prediction)
	assert.Equal(t, []State{AwaitingPayment, PaymentSucceeded, PredictionRequested, PredictionFailed, PaymentSucceeded}, f.events.states())

	// Retrying reuses the paid cycle: no new order.
	retryID, err := f.m.Predict(context.Background())
	require.NoError(t, err)
	assert.Equal(t, id, retryID)

	st = wait(t, f.m)
	assert.Equal(t, PredictionReady, st.State)
	assert.NotNil(t, st.Prediction)
	assert.NoError(t, st.Err)

	created, _ := orders.counts()
	assert.Equal(t, 1, created)
	assert.Equal(t, 2, f.predictor.callCount())
}

// --- countdown strategy ---

func TestCountdownBlocksConfirmUntilElapsed(t *testing.T) {
	f := newFixture(t, Countdown{Tick: 5 * time.Millisecond, RequireElapsed: true}, settingsWithWait(3*time.Second), someScores)

	_, err := f.m.Predict(context.Background())
	require.NoError(t, err)

	st := f.m.Status()
	assert.Equal(t, AwaitingPayment, st.State)
	assert.Greater(t, st.Remaining, 0)
	assert.False(t, st.ConfirmAvailable)
	assert.ErrorIs(t, f.m.Confirm(), ErrConfirmUnavailable)

	require.Eventually(t, f.m.ConfirmAvailable, 2*time.Second, time.Millisecond)
	assert.Equal(t, 0, f.m.Status().Remaining)
	assert.Equal(t, AwaitingPayment, f.m.Status().State, "countdown never times out on its own")

	require.NoError(t, f.m.Confirm())
	st = wait(t, f.m)
	assert.Equal(t, PredictionReady, st.State)
}

func TestCountdownWithoutRequireElapsed(t *testing.T) {
	f := newFixture(t, Countdown{Tick: time.Hour, RequireElapsed: false}, settingsWithWait(60*time.Second), someScores)

	_, err := f.m.Predict(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 60, f.m.Status().Remaining)
	assert.True(t, f.m.ConfirmAvailable())
	require.NoError(t, f.m.Confirm())
	assert.Equal(t, PredictionReady, wait(t, f.m).State)
}

func TestCountdownZeroWaitConfirmsImmediately(t *testing.T) {
	f := newFixture(t, Countdown{Tick: time.Hour, RequireElapsed: true}, settingsWithWait(0), someScores)

	_, err := f.m.Predict(context.Background())
	require.NoError(t, err)
	assert.True(t, f.m.ConfirmAvailable())
	require.NoError(t, f.m.Confirm())
	assert.Equal(t, PredictionReady, wait(t, f.m).State)
}

func TestConfirmOutsideCycle(t *testing.T) {
	f := newFixture(t, Countdown{}, settingsWithWait(0), someScores)
	assert.False(t, f.m.ConfirmAvailable())
	assert.ErrorIs(t, f.m.Confirm(), ErrConfirmUnavailable)
}

// --- teardown ---

func TestNewCycleCancelsPrevious(t *testing.T) {
	orders := &fakeOrders{}
	f := newFixture(t, Poll{Orders: orders, Interval: time.Hour, MaxAttempts: 30}, settingsWithWait(60*time.Second), someScores)

	first, err := f.m.Predict(context.Background())
	require.NoError(t, err)
	require.Eventually(t, func() bool { return f.m.Status().OrderID == "order-1" }, time.Second, time.Millisecond)

	second, err := f.m.Predict(context.Background())
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
	require.Eventually(t, func() bool { return f.m.Status().OrderID == "order-2" }, time.Second, time.Millisecond)

	st := f.m.Status()
	assert.Equal(t, AwaitingPayment, st.State)
	assert.Equal(t, second, st.CycleID)
	assert.Equal(t, []State{AwaitingPayment, Idle, AwaitingPayment}, f.events.states())

	created, _ := orders.counts()
	assert.Equal(t, 2, created)
}

func TestCancelAwaitingProducesNoFurtherMutations(t *testing.T) {
	orders := &fakeOrders{}
	f := newFixture(t, Poll{Orders: orders, Interval: 2 * time.Millisecond, MaxAttempts: 600}, settingsWithWait(0), someScores)

	_, err := f.m.Predict(context.Background())
	require.NoError(t, err)
	require.Eventually(t, func() bool { return f.m.Status().Attempts > 0 }, time.Second, time.Millisecond)

	require.NoError(t, f.m.Cancel())
	st := f.m.Status()
	assert.Equal(t, Idle, st.State)
	events := f.events.len()
	attempts := st.Attempts

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, events, f.events.len())
	assert.Equal(t, attempts, f.m.Status().Attempts)
	_, checks := orders.counts()
	time.Sleep(10 * time.Millisecond)
	_, later := orders.counts()
	assert.Equal(t, checks, later)
}

func TestCancelDuringPredictionKeepsPayment(t *testing.T) {
	orders := &fakeOrders{statuses: []types.PaymentStatus{types.PaymentSuccess}}
	f := newFixture(t, fastPoll(orders), settingsWithWait(0), someScores)
	f.predictor.block = make(chan struct{})
	f.predictor.started = make(chan struct{}, 1)

	_, err := f.m.Predict(context.Background())
	require.NoError(t, err)

	select {
	case <-f.predictor.started:
	case <-time.After(5 * time.Second):
		t.Fatal("prediction never requested")
	}
	require.NoError(t, f.m.Cancel())

	st := f.m.Status()
	assert.Equal(t, PaymentSucceeded, st.State)
	assert.Nil(t, st.Prediction)
	assert.Equal(t, []State{AwaitingPayment, PaymentSucceeded, PredictionRequested, PaymentSucceeded}, f.events.states())
}

func TestCloseTearsDown(t *testing.T) {
	f := newFixture(t, Countdown{Tick: time.Millisecond, RequireElapsed: true}, settingsWithWait(3600*time.Second), someScores)

	_, err := f.m.Predict(context.Background())
	require.NoError(t, err)
	require.NoError(t, f.m.Close())

	events := f.events.len()
	remaining := f.m.Status().Remaining
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, events, f.events.len())
	assert.Equal(t, remaining, f.m.Status().Remaining)

	_, err = f.m.Predict(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, f.m.Confirm(), ErrClosed)
	assert.ErrorIs(t, f.m.Cancel(), ErrClosed)
	assert.ErrorIs(t, f.m.Close(), ErrClosed)
	assert.False(t, f.m.ConfirmAvailable())
}

func TestWaitWithoutCycle(t *testing.T) {
	f := newFixture(t, Countdown{}, settingsWithWait(0), someScores)
	st, err := f.m.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Idle, st.State)
}

func TestWaitHonoursContext(t *testing.T) {
	f := newFixture(t, Countdown{Tick: time.Hour, RequireElapsed: true}, settingsWithWait(60*time.Second), someScores)
	_, err := f.m.Predict(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	st, err := f.m.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, AwaitingPayment, st.State)
}
