package order

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order is one persisted line from a paid checkout. A checkout with three
// cart lines writes three rows sharing one payment id.
type Order struct {
	ID            string          `json:"id"`
	CustomerName  string          `json:"customer_name"`
	PhoneNumber   string          `json:"phone_number"`
	ProductName   string          `json:"product_name"`
	ProductID     string          `json:"product_id"`
	Quantity      int             `json:"quantity"`
	UnitPrice     decimal.Decimal `json:"unit_price"`
	TotalPrice    decimal.Decimal `json:"total_price"` // always unit_price * quantity
	IsCompleted   bool            `json:"is_completed"`
	PaymentID     string          `json:"payment_id"`
	PaymentStatus string          `json:"payment_status"`
	PaymentAmount decimal.Decimal `json:"payment_amount"` // whole checkout total
	PaymentMethod string          `json:"payment_method"`
	CreatedAt     time.Time       `json:"created_at"`
}
