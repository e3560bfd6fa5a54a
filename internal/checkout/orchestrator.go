package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/doughsido/bakeshop/internal/order"
	"github.com/doughsido/bakeshop/internal/payment"
)

// Precondition failures of ProceedToPayment, checked in this order. Each
// one is a user-visible message and leaves the session untouched.
var (
	ErrNameRequired    = errors.New("please enter your name")
	ErrPhoneRequired   = errors.New("please enter your phone number")
	ErrCartEmpty       = errors.New("please add items to your cart before placing an order")
	ErrPaymentNotReady = errors.New("payment system is still loading, please wait a moment")

	ErrNoPaymentInProgress = errors.New("no payment in progress")
)

// PartialRecordError reports a charge that went through while some of its
// order rows did not. It must never be hidden from the shopper: the
// payment id is the handle support needs to reconcile manually.
type PartialRecordError struct {
	PaymentID string
	Failed    int
	Total     int
}

func (e *PartialRecordError) Error() string {
	return fmt.Sprintf("payment succeeded but %d of %d order records could not be saved; please contact support with payment ID %s",
		e.Failed, e.Total, e.PaymentID)
}

type Orchestrator struct {
	Gateway payment.Gateway
	Orders  order.Repository
}

// ProceedToPayment validates the session and registers a payment order for
// the cart's current total with the gateway. On success the session enters
// PaymentReady; re-entering PaymentReady after a cart change simply creates
// a fresh payment order for the new total.
func (o *Orchestrator) ProceedToPayment(ctx context.Context, s *Session) error {
	if strings.TrimSpace(s.Customer.CustomerName) == "" {
		return ErrNameRequired
	}
	if strings.TrimSpace(s.Customer.PhoneNumber) == "" {
		return ErrPhoneRequired
	}
	if s.Cart.IsEmpty() {
		return ErrCartEmpty
	}
	if !o.Gateway.Ready() {
		return ErrPaymentNotReady
	}

	n := s.Cart.Len()
	desc := fmt.Sprintf("Order for %d item", n)
	if n != 1 {
		desc += "s"
	}
	correlationID := fmt.Sprintf("order_%d", time.Now().UnixMilli())

	id, err := o.Gateway.CreateOrder(ctx, s.Cart.Total().Round(2), desc, correlationID)
	if err != nil {
		return fmt.Errorf("could not start payment: %w", err)
	}
	s.PaymentOrderID = id
	s.State = StatePaymentReady
	return nil
}

// Approve runs after the shopper approved the payment: capture the charge,
// then write one order row per cart line. All inserts are issued
// concurrently and every one is attempted, even when siblings fail.
//
// A capture failure is pre-charge and retryable: the session falls back to
// PaymentReady. An insert failure after a successful capture yields a
// PartialRecordError; the cart and contact info are intentionally kept so
// support can reconcile with full context.
func (o *Orchestrator) Approve(ctx context.Context, s *Session) (*payment.Capture, error) {
	if s.State != StatePaymentReady || s.PaymentOrderID == "" {
		return nil, ErrNoPaymentInProgress
	}
	s.State = StateCapturing

	cap, err := o.Gateway.Capture(ctx, s.PaymentOrderID)
	if err != nil {
		s.State = StatePaymentReady
		return nil, fmt.Errorf("payment processing failed: %w", err)
	}

	amount := s.Cart.Total().Round(2)
	rows := make([]order.Order, 0, s.Cart.Len())
	for _, l := range s.Cart.Lines {
		rows = append(rows, order.Order{
			ID:            uuid.NewString(),
			CustomerName:  s.Customer.CustomerName,
			PhoneNumber:   s.Customer.PhoneNumber,
			ProductName:   l.ProductName,
			ProductID:     l.ProductID,
			Quantity:      l.Quantity,
			UnitPrice:     l.UnitPrice,
			TotalPrice:    l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity))),
			PaymentID:     cap.ID,
			PaymentStatus: cap.Status,
			PaymentAmount: amount,
			PaymentMethod: cap.Method,
		})
	}

	var wg sync.WaitGroup
	errs := make([]error, len(rows))
	for i := range rows {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = o.Orders.Create(ctx, &rows[i])
		}(i)
	}
	wg.Wait()

	failed := 0
	for _, e := range errs {
		if e != nil {
			failed++
		}
	}
	if failed > 0 {
		// The charge is taken, so this checkout is over either way. The
		// session stays populated for manual reconciliation.
		s.State = StateCompleted
		return cap, &PartialRecordError{PaymentID: cap.ID, Failed: failed, Total: len(rows)}
	}

	s.Cart.Lines = nil
	s.Customer = CustomerInfo{}
	s.PaymentOrderID = ""
	s.State = StateBrowsing
	return cap, nil
}

// CancelPayment handles the gateway's cancel/error callbacks. Nothing was
// charged and no rows were written, so the shopper may simply try again.
// Only PaymentReady is cancellable: once a capture is underway the
// outcome is whatever Approve reports.
func (o *Orchestrator) CancelPayment(s *Session) error {
	if s.State != StatePaymentReady {
		return ErrNoPaymentInProgress
	}
	s.State = StatePaymentReady
	return nil
}
