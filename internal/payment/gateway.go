// Package payment wraps the external payment provider behind a small
// gateway contract. The provider's wire protocol stays its own business:
// the rest of the system only ever creates a payment order for a total and
// captures it after the shopper approved.
package payment

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

var (
	// ErrNotReady means the gateway has no usable credentials yet.
	ErrNotReady = errors.New("payment gateway not configured")
)

// Capture is the outcome of a finalized charge.
type Capture struct {
	ID     string
	Status string
	Amount decimal.Decimal
	Method string
}

type Gateway interface {
	// Ready reports whether the payment capability is initialized.
	Ready() bool
	// CreateOrder registers a pending payment for the given total and
	// returns the provider's order id.
	CreateOrder(ctx context.Context, total decimal.Decimal, description, correlationID string) (string, error)
	// Capture finalizes an approved payment order into a charge.
	Capture(ctx context.Context, orderID string) (*Capture, error)
}
