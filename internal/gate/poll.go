// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package gate

import (
	"context"
	"fmt"
	"time"

	"github.com/pdiddy/acceptance-predictor/internal/apperr"
	"github.com/pdiddy/acceptance-predictor/pkg/types"
)

const (
	defaultPollInterval = 2 * time.Second
	defaultPollAttempts = 30
)

// Orders creates payment orders and reports their status.
type Orders interface {
	CreateOrder(ctx context.Context, req types.OrderRequest) (string, error)
	PaymentStatus(ctx context.Context, orderID string) (types.PaymentStatus, error)
}

// PollMetrics records order creation and how many checks a cycle took.
type PollMetrics interface {
	OrderCreated()
	PollAttempts(n int)
}

// Poll creates one order per cycle and polls its status until it resolves
// or the attempt ceiling is reached.
type Poll struct {
	Orders      Orders
	Interval    time.Duration
	MaxAttempts int
	Metrics     PollMetrics
}

// Name returns "poll".
func (Poll) Name() string { return "poll" }

// CanConfirm always accepts a manual confirm while awaiting.
func (Poll) CanConfirm(int) bool { return true }

// OrderDescription is the description sent with every order.
func OrderDescription(conference string) string {
	return fmt.Sprintf("%s acceptance prediction", conference)
}

// Await creates the order and checks its status after each interval.
func (p Poll) Await(ctx context.Context, c *Cycle) (Outcome, error) {
	interval := p.Interval
	if interval <= 0 {
		interval = defaultPollInterval
	}
	maxAttempts := p.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = defaultPollAttempts
	}

	orderID, err := p.Orders.CreateOrder(ctx, types.OrderRequest{
		Amount:      c.Settings.Price,
		Description: OrderDescription(c.Settings.Conference),
	})
	if err != nil {
		if ctx.Err() != nil {
			return OutcomeCancelled, ctx.Err()
		}
		return OutcomeFailed, err
	}
	if p.Metrics != nil {
		p.Metrics.OrderCreated()
	}
	if !c.SetOrderID(orderID) {
		return OutcomeCancelled, ctx.Err()
	}

	timer := time.NewTimer(interval)
	defer timer.Stop()

	attempts := 0
	defer func() {
		if p.Metrics != nil {
			p.Metrics.PollAttempts(attempts)
		}
	}()

	for attempts < maxAttempts {
		select {
		case <-ctx.Done():
			return OutcomeCancelled, ctx.Err()
		case <-c.Confirmed():
			return OutcomeSucceeded, nil
		case <-timer.C:
		}

		attempts++
		if !c.SetAttempts(attempts) {
			return OutcomeCancelled, ctx.Err()
		}

		status, err := p.Orders.PaymentStatus(ctx, orderID)
		if err != nil {
			if ctx.Err() != nil {
				return OutcomeCancelled, ctx.Err()
			}
			return OutcomeFailed, err
		}
		switch status {
		case types.PaymentSuccess:
			return OutcomeSucceeded, nil
		case types.PaymentFailed, types.PaymentExpired:
			return OutcomeDeclined, apperr.PaymentDeclined(orderID, string(status))
		}
		timer.Reset(interval)
	}
	return OutcomeTimedOut, apperr.PaymentTimeout(orderID, maxAttempts)
}
