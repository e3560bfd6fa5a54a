package order

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

var (
	ErrNotFound = errors.New("order not found")
)

type Repository interface {
	Create(ctx context.Context, o *Order) error
	ListPending(ctx context.Context, limit int) ([]Order, error)
	MarkCompleted(ctx context.Context, id string) error
}

type PGRepo struct{ db *pgxpool.Pool }

func NewPGRepo(db *pgxpool.Pool) *PGRepo { return &PGRepo{db: db} }

func (r *PGRepo) Create(ctx context.Context, o *Order) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err := r.db.Exec(ctx, `
		INSERT INTO orders (id, customer_name, phone_number, product_name, product_id,
		                    quantity, unit_price, total_price, is_completed,
		                    payment_id, payment_status, payment_amount, payment_method, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,NOW())
	`, o.ID, o.CustomerName, o.PhoneNumber, o.ProductName, o.ProductID,
		o.Quantity, o.UnitPrice.String(), o.TotalPrice.String(), o.IsCompleted,
		o.PaymentID, o.PaymentStatus, o.PaymentAmount.String(), o.PaymentMethod)
	return err
}

func (r *PGRepo) ListPending(ctx context.Context, limit int) ([]Order, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if limit <= 0 || limit > 20 {
		limit = 20
	}
	rows, err := r.db.Query(ctx, `
		SELECT id, customer_name, phone_number, product_name, product_id,
		       quantity, unit_price::text, total_price::text, is_completed,
		       payment_id, payment_status, payment_amount::text, payment_method, created_at
		FROM orders
		WHERE is_completed = FALSE
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Order
	for rows.Next() {
		var o Order
		var unit, total, amount string
		if err := rows.Scan(&o.ID, &o.CustomerName, &o.PhoneNumber, &o.ProductName, &o.ProductID,
			&o.Quantity, &unit, &total, &o.IsCompleted,
			&o.PaymentID, &o.PaymentStatus, &amount, &o.PaymentMethod, &o.CreatedAt); err != nil {
			return nil, err
		}
		if o.UnitPrice, err = decimal.NewFromString(unit); err != nil {
			return nil, err
		}
		if o.TotalPrice, err = decimal.NewFromString(total); err != nil {
			return nil, err
		}
		if o.PaymentAmount, err = decimal.NewFromString(amount); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (r *PGRepo) MarkCompleted(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	tag, err := r.db.Exec(ctx, `
		UPDATE orders SET is_completed = TRUE WHERE id = $1
	`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
