// Package payment is the server half of the payment bridge: it opens gateway
// orders for the priced cart, verifies the signed callback and turns a
// verified payment into a store order.
package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

var ErrAttemptNotFound = errors.New("payment attempt not found")

type AttemptRepository interface {
	Create(ctx context.Context, a *Attempt) error
	Get(ctx context.Context, gatewayOrderID string) (*Attempt, error)
	// GetForUpdate locks the attempt row for the rest of tx.
	GetForUpdate(ctx context.Context, tx pgx.Tx, gatewayOrderID string) (*Attempt, error)
	MarkPaidTx(ctx context.Context, tx pgx.Tx, gatewayOrderID, paymentID, orderID string) error
	MarkFailed(ctx context.Context, gatewayOrderID, paymentID, reason string) error
}

type PGRepo struct{ db *pgxpool.Pool }

func NewPGRepo(db *pgxpool.Pool) *PGRepo { return &PGRepo{db: db} }

func (r *PGRepo) Create(ctx context.Context, a *Attempt) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	snap, err := json.Marshal(a.Snapshot)
	if err != nil {
		return err
	}
	return r.db.QueryRow(ctx, `
		INSERT INTO payment_attempts (gateway_order_id, user_id, amount, currency, address_id,
			coupon_code, snapshot, status)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		RETURNING created_at, updated_at
	`, a.GatewayOrderID, a.UserID, a.Amount.String(), a.Currency, a.AddressID, a.CouponCode, snap,
		a.Status).Scan(&a.CreatedAt, &a.UpdatedAt)
}

const cols = `gateway_order_id, user_id, amount::text, currency, address_id::text, coupon_code,
	snapshot, status, payment_id, COALESCE(order_id::text, ''), failure_reason, created_at, updated_at`

func scan(row pgx.Row) (*Attempt, error) {
	var (
		a      Attempt
		amount string
		snap   []byte
	)
	err := row.Scan(&a.GatewayOrderID, &a.UserID, &amount, &a.Currency, &a.AddressID, &a.CouponCode,
		&snap, &a.Status, &a.PaymentID, &a.OrderID, &a.FailureReason, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrAttemptNotFound
	}
	if err != nil {
		return nil, err
	}
	if a.Amount, err = decimal.NewFromString(amount); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(snap, &a.Snapshot); err != nil {
		return nil, fmt.Errorf("attempt %s snapshot: %w", a.GatewayOrderID, err)
	}
	return &a, nil
}

func (r *PGRepo) Get(ctx context.Context, gatewayOrderID string) (*Attempt, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return scan(r.db.QueryRow(ctx, `SELECT `+cols+` FROM payment_attempts WHERE gateway_order_id=$1`, gatewayOrderID))
}

func (r *PGRepo) GetForUpdate(ctx context.Context, tx pgx.Tx, gatewayOrderID string) (*Attempt, error) {
	return scan(tx.QueryRow(ctx, `SELECT `+cols+` FROM payment_attempts WHERE gateway_order_id=$1 FOR UPDATE`, gatewayOrderID))
}

func (r *PGRepo) MarkPaidTx(ctx context.Context, tx pgx.Tx, gatewayOrderID, paymentID, orderID string) error {
	tag, err := tx.Exec(ctx, `
		UPDATE payment_attempts
		SET status=$2, payment_id=$3, order_id=$4, failure_reason='', updated_at=NOW()
		WHERE gateway_order_id=$1
	`, gatewayOrderID, AttemptPaid, paymentID, orderID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrAttemptNotFound
	}
	return nil
}

// MarkFailed never downgrades a paid attempt.
func (r *PGRepo) MarkFailed(ctx context.Context, gatewayOrderID, paymentID, reason string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err := r.db.Exec(ctx, `
		UPDATE payment_attempts
		SET status=$2, payment_id=COALESCE(NULLIF($3, ''), payment_id), failure_reason=$4, updated_at=NOW()
		WHERE gateway_order_id=$1 AND status <> 'paid'
	`, gatewayOrderID, AttemptFailed, paymentID, reason)
	return err
}
