// Package order stores placed orders and moves them through their status
// lifecycle. Orders are only created by payment verification.
package order

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/MikeMC777/storefront/internal/catalog"
	"github.com/MikeMC777/storefront/internal/db"
)

var (
	ErrNotFound          = errors.New("order not found")
	ErrInvalidTransition = errors.New("invalid status transition")
)

type Repository interface {
	CreateTx(ctx context.Context, tx pgx.Tx, o *Order) error
	GetByID(ctx context.Context, id string) (*Order, error)
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]Order, error)
	// UpdateStatus applies a checked transition; canceling returns the
	// items to stock in the same transaction.
	UpdateStatus(ctx context.Context, id string, next Status) (*Order, error)
}

type PGRepo struct{ db *pgxpool.Pool }

func NewPGRepo(db *pgxpool.Pool) *PGRepo { return &PGRepo{db: db} }

func (r *PGRepo) CreateTx(ctx context.Context, tx pgx.Tx, o *Order) error {
	items, err := json.Marshal(o.Items)
	if err != nil {
		return err
	}
	prices, err := json.Marshal(o.Pricing)
	if err != nil {
		return err
	}
	addr, err := json.Marshal(o.ShippingAddress)
	if err != nil {
		return err
	}
	return tx.QueryRow(ctx, `
		INSERT INTO orders (id, order_number, user_id, status, items, pricing, shipping_address,
			payment_ref, coupon_code, total, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,NOW(),NOW())
		RETURNING created_at, updated_at
	`, o.ID, o.OrderNumber, o.UserID, o.Status, items, prices, addr, o.PaymentRef, o.CouponCode,
		o.Pricing.Total.String()).Scan(&o.CreatedAt, &o.UpdatedAt)
}

const cols = `id, order_number, user_id, status, items, pricing, shipping_address,
	payment_ref, coupon_code, created_at, updated_at`

func scan(row pgx.Row) (*Order, error) {
	var (
		o                   Order
		items, prices, addr []byte
	)
	err := row.Scan(&o.ID, &o.OrderNumber, &o.UserID, &o.Status, &items, &prices, &addr,
		&o.PaymentRef, &o.CouponCode, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(items, &o.Items); err != nil {
		return nil, fmt.Errorf("order %s items: %w", o.ID, err)
	}
	if err := json.Unmarshal(prices, &o.Pricing); err != nil {
		return nil, fmt.Errorf("order %s pricing: %w", o.ID, err)
	}
	if err := json.Unmarshal(addr, &o.ShippingAddress); err != nil {
		return nil, fmt.Errorf("order %s address: %w", o.ID, err)
	}
	return &o, nil
}

func (r *PGRepo) GetByID(ctx context.Context, id string) (*Order, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return scan(r.db.QueryRow(ctx, `SELECT `+cols+` FROM orders WHERE id=$1`, id))
}

func (r *PGRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]Order, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	rows, err := r.db.Query(ctx, `
		SELECT `+cols+` FROM orders WHERE user_id=$1
		ORDER BY created_at DESC LIMIT $2 OFFSET $3
	`, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Order{}
	for rows.Next() {
		o, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *o)
	}
	return out, rows.Err()
}

func (r *PGRepo) UpdateStatus(ctx context.Context, id string, next Status) (*Order, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var out *Order
	err := db.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		o, err := scan(tx.QueryRow(ctx, `SELECT `+cols+` FROM orders WHERE id=$1 FOR UPDATE`, id))
		if err != nil {
			return err
		}
		if !o.Status.CanTransition(next) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, o.Status, next)
		}
		if next == StatusCanceled {
			for _, it := range o.Items {
				if err := catalog.RestockTx(ctx, tx, it.VariantSKU, it.Quantity); err != nil && !errors.Is(err, catalog.ErrNotFound) {
					return fmt.Errorf("restock %s: %w", it.VariantSKU, err)
				}
			}
		}
		if err := tx.QueryRow(ctx, `
			UPDATE orders SET status=$2, updated_at=NOW() WHERE id=$1 RETURNING updated_at
		`, id, next).Scan(&o.UpdatedAt); err != nil {
			return err
		}
		o.Status = next
		out = o
		return nil
	})
	return out, err
}
