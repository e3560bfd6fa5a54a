// Package checkout drives a shopper's path from cart to persisted orders:
// an explicit state machine over a per-session cart, contact info and the
// external payment gateway.
package checkout

import (
	"github.com/shopspring/decimal"

	"github.com/doughsido/bakeshop/internal/cart"
)

type State string

const (
	StateBrowsing        State = "browsing"
	StateAwaitingContact State = "awaiting_contact"
	StatePaymentReady    State = "payment_ready"
	StateCapturing       State = "capturing"
	StateCompleted       State = "completed"
)

type CustomerInfo struct {
	CustomerName string `json:"customer_name"`
	PhoneNumber  string `json:"phone_number"`
}

// Session is one shopper's transient checkout state. It lives in the
// session store with a TTL and is never written to the database.
type Session struct {
	State          State        `json:"state"`
	Cart           cart.Cart    `json:"cart"`
	Customer       CustomerInfo `json:"customer"`
	PaymentOrderID string       `json:"payment_order_id,omitempty"`
}

func NewSession() *Session {
	return &Session{State: StateBrowsing}
}

// invalidatePayment drops any rendered payment setup. Every cart mutation
// goes through here so a shopper can never pay a stale total.
func (s *Session) invalidatePayment() {
	s.PaymentOrderID = ""
	if s.Cart.IsEmpty() {
		s.State = StateBrowsing
	} else {
		s.State = StateAwaitingContact
	}
}

func (s *Session) AddItem(productID, productName string, unitPrice decimal.Decimal) {
	s.Cart.Add(productID, productName, unitPrice)
	s.invalidatePayment()
}

func (s *Session) RemoveItem(productID string) {
	s.Cart.Remove(productID)
	s.invalidatePayment()
}

func (s *Session) SetQuantity(productID string, n int) {
	s.Cart.SetQuantity(productID, n)
	s.invalidatePayment()
}

func (s *Session) SetCustomer(info CustomerInfo) {
	s.Customer = info
}

// BackToCart is the shopper's explicit exit from the payment step,
// discarding the pending payment order.
func (s *Session) BackToCart() {
	if s.State == StatePaymentReady {
		s.PaymentOrderID = ""
		s.State = StateAwaitingContact
	}
}
