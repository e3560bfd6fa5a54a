package order

import (
	"time"

	"github.com/shopspring/decimal"
)

// CustomerGroup bundles the pending orders one customer placed on one
// calendar day, for the admin dashboard.
type CustomerGroup struct {
	CustomerName string          `json:"customer_name"`
	PhoneNumber  string          `json:"phone_number"`
	CreatedAt    time.Time       `json:"created_at"` // earliest order in the group
	Orders       []Order         `json:"orders"`
	Total        decimal.Decimal `json:"total"`
}

// Group folds a flat pending-order list into per-(customer, phone, UTC day)
// groups, in first-seen order. The input is not modified.
func Group(pending []Order) []CustomerGroup {
	groups := make([]CustomerGroup, 0)
	idx := make(map[string]int)
	for _, o := range pending {
		key := o.CustomerName + "\x00" + o.PhoneNumber + "\x00" + o.CreatedAt.UTC().Format("2006-01-02")
		i, ok := idx[key]
		if !ok {
			i = len(groups)
			idx[key] = i
			groups = append(groups, CustomerGroup{
				CustomerName: o.CustomerName,
				PhoneNumber:  o.PhoneNumber,
				CreatedAt:    o.CreatedAt,
				Total:        decimal.Zero,
			})
		}
		g := &groups[i]
		g.Orders = append(g.Orders, o)
		g.Total = g.Total.Add(o.TotalPrice)
		if o.CreatedAt.Before(g.CreatedAt) {
			g.CreatedAt = o.CreatedAt
		}
	}
	return groups
}
