// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package backend

import (
	"context"
	"net/http"
	"net/url"

	"github.com/pdiddy/acceptance-predictor/internal/apperr"
	"github.com/pdiddy/acceptance-predictor/pkg/types"
)

// CreateOrder creates a payment order and returns its id. Every call
// creates a new order.
func (c *Client) CreateOrder(ctx context.Context, req types.OrderRequest) (string, error) {
	if req.Amount < 0 {
		return "", apperr.Validation("order amount %.2f is negative", req.Amount)
	}
	var w orderWire
	if err := c.do(ctx, "create-payment", http.MethodPost, "/create-payment", req, &w); err != nil {
		return "", err
	}
	return w.OrderID, nil
}

// PaymentStatus returns the status of an order.
func (c *Client) PaymentStatus(ctx context.Context, orderID string) (types.PaymentStatus, error) {
	var w statusWire
	path := "/check-payment/" + url.PathEscape(orderID)
	if err := c.do(ctx, "check-payment", http.MethodGet, path, nil, &w); err != nil {
		return "", err
	}
	return types.PaymentStatus(w.Status), nil
}

// Payment API JSON structures.
type orderWire struct {
	OrderID string  `json:"orderId" validate:"required"`
	Amount  float64 `json:"amount"`
	Status  string  `json:"status" validate:"omitempty,oneof=pending success failed expired"`
}

type statusWire struct {
	Status  string `json:"status" validate:"required,oneof=pending success failed expired"`
	OrderID string `json:"order_id"`
}
