// Package cart holds the transient shopping cart: insertion-ordered lines
// keyed by product id, with decimal totals. Carts only ever live inside a
// checkout session, never in the database.
package cart

import "github.com/shopspring/decimal"

type Line struct {
	ProductID   string          `json:"product_id"`
	ProductName string          `json:"product_name"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Quantity    int             `json:"quantity"` // always >= 1
}

type Cart struct {
	Lines []Line `json:"lines"`
}

func (c *Cart) find(productID string) int {
	for i := range c.Lines {
		if c.Lines[i].ProductID == productID {
			return i
		}
	}
	return -1
}

// Add puts one more unit of the product in the cart, appending a new line
// for a product not seen before.
func (c *Cart) Add(productID, productName string, unitPrice decimal.Decimal) {
	if i := c.find(productID); i >= 0 {
		c.Lines[i].Quantity++
		return
	}
	c.Lines = append(c.Lines, Line{
		ProductID:   productID,
		ProductName: productName,
		UnitPrice:   unitPrice,
		Quantity:    1,
	})
}

// Remove drops the line; removing an absent product is a no-op.
func (c *Cart) Remove(productID string) {
	if i := c.find(productID); i >= 0 {
		c.Lines = append(c.Lines[:i], c.Lines[i+1:]...)
	}
}

// SetQuantity replaces the line's quantity; anything below 1 removes the
// line entirely.
func (c *Cart) SetQuantity(productID string, n int) {
	if n < 1 {
		c.Remove(productID)
		return
	}
	if i := c.find(productID); i >= 0 {
		c.Lines[i].Quantity = n
	}
}

func (c *Cart) IsEmpty() bool { return len(c.Lines) == 0 }

func (c *Cart) Len() int { return len(c.Lines) }

// Total is the exact decimal sum of unit price times quantity over all
// lines. Display rounding to two decimals happens at the edge.
func (c *Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, l := range c.Lines {
		total = total.Add(l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity))))
	}
	return total
}
