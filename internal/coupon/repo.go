package coupon

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

type Repository interface {
	GetByCode(ctx context.Context, code string) (*Coupon, error)
	ListActive(ctx context.Context, now time.Time) ([]Coupon, error)
	List(ctx context.Context, limit, offset int) ([]Coupon, error)
	Create(ctx context.Context, c *Coupon) error
	Update(ctx context.Context, c *Coupon) error
	Deactivate(ctx context.Context, code string) error
	UserUsage(ctx context.Context, code, userID string) (int, error)
	UserUsages(ctx context.Context, userID string) (map[string]int, error)
	// RedeemTx records one use of code by userID inside the order transaction.
	RedeemTx(ctx context.Context, tx pgx.Tx, code, userID string) error
}

type PGRepo struct{ db *pgxpool.Pool }

func NewPGRepo(db *pgxpool.Pool) *PGRepo { return &PGRepo{db: db} }

const couponCols = `
	code, description, discount_type, discount_value::text, max_discount::text, min_order_amount::text,
	valid_from, valid_until, usage_limit, used_count, per_user_limit,
	applicable_products, applicable_categories, active, created_at, updated_at`

func scanCoupon(row pgx.Row) (*Coupon, error) {
	var (
		c               Coupon
		value, minOrder string
		maxDiscount     *string
	)
	err := row.Scan(&c.Code, &c.Description, &c.Type, &value, &maxDiscount, &minOrder,
		&c.ValidFrom, &c.ValidUntil, &c.UsageLimit, &c.UsedCount, &c.PerUserLimit,
		&c.ApplicableProducts, &c.ApplicableCategories, &c.Active, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if c.Value, err = decimal.NewFromString(value); err != nil {
		return nil, fmt.Errorf("coupon %s value: %w", c.Code, err)
	}
	if c.MinOrderAmount, err = decimal.NewFromString(minOrder); err != nil {
		return nil, fmt.Errorf("coupon %s min order: %w", c.Code, err)
	}
	if maxDiscount != nil {
		d, err := decimal.NewFromString(*maxDiscount)
		if err != nil {
			return nil, fmt.Errorf("coupon %s max discount: %w", c.Code, err)
		}
		c.MaxDiscount = decimal.NewNullDecimal(d)
	}
	return &c, nil
}

func nullable(d decimal.NullDecimal) *string {
	if !d.Valid {
		return nil
	}
	s := d.Decimal.String()
	return &s
}

func (r *PGRepo) GetByCode(ctx context.Context, code string) (*Coupon, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	c, err := scanCoupon(r.db.QueryRow(ctx, `SELECT`+couponCols+` FROM coupons WHERE code=$1`, code))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return c, err
}

func (r *PGRepo) query(ctx context.Context, sql string, args ...any) ([]Coupon, error) {
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Coupon
	for rows.Next() {
		c, err := scanCoupon(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

func (r *PGRepo) ListActive(ctx context.Context, now time.Time) ([]Coupon, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	return r.query(ctx, `
		SELECT`+couponCols+`
		FROM coupons
		WHERE active
		  AND (valid_from IS NULL OR valid_from <= $1)
		  AND (valid_until IS NULL OR valid_until >= $1)
		  AND (usage_limit = 0 OR used_count < usage_limit)
		ORDER BY code
	`, now)
}

func (r *PGRepo) List(ctx context.Context, limit, offset int) ([]Coupon, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return r.query(ctx, `SELECT`+couponCols+` FROM coupons ORDER BY created_at DESC LIMIT $1 OFFSET $2`, limit, offset)
}

func (r *PGRepo) Create(ctx context.Context, c *Coupon) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err := r.db.Exec(ctx, `
		INSERT INTO coupons (code, description, discount_type, discount_value, max_discount, min_order_amount,
			valid_from, valid_until, usage_limit, per_user_limit, applicable_products, applicable_categories,
			active, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,NOW(),NOW())
	`, c.Code, c.Description, string(c.Type), c.Value.String(), nullable(c.MaxDiscount), c.MinOrderAmount.String(),
		c.ValidFrom, c.ValidUntil, c.UsageLimit, c.PerUserLimit, nonNil(c.ApplicableProducts), nonNil(c.ApplicableCategories),
		c.Active)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrAlreadyExists
	}
	return err
}

func (r *PGRepo) Update(ctx context.Context, c *Coupon) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	tag, err := r.db.Exec(ctx, `
		UPDATE coupons
		SET description = $2, discount_type = $3, discount_value = $4, max_discount = $5,
		    min_order_amount = $6, valid_from = $7, valid_until = $8, usage_limit = $9,
		    per_user_limit = $10, applicable_products = $11, applicable_categories = $12,
		    active = $13, updated_at = NOW()
		WHERE code = $1
	`, c.Code, c.Description, string(c.Type), c.Value.String(), nullable(c.MaxDiscount), c.MinOrderAmount.String(),
		c.ValidFrom, c.ValidUntil, c.UsageLimit, c.PerUserLimit, nonNil(c.ApplicableProducts), nonNil(c.ApplicableCategories),
		c.Active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PGRepo) Deactivate(ctx context.Context, code string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	tag, err := r.db.Exec(ctx, `UPDATE coupons SET active = FALSE, updated_at = NOW() WHERE code = $1`, code)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PGRepo) UserUsage(ctx context.Context, code, userID string) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var n int
	err := r.db.QueryRow(ctx, `
		SELECT usage_count FROM coupon_usage WHERE coupon_code = $1 AND user_id = $2
	`, code, userID).Scan(&n)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	return n, err
}

func (r *PGRepo) UserUsages(ctx context.Context, userID string) (map[string]int, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	rows, err := r.db.Query(ctx, `SELECT coupon_code, usage_count FROM coupon_usage WHERE user_id = $1`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var (
			code string
			n    int
		)
		if err := rows.Scan(&code, &n); err != nil {
			return nil, err
		}
		out[code] = n
	}
	return out, rows.Err()
}

// RedeemTx locks the coupon row, re-checks both usage caps and bumps the
// counters. Concurrent checkouts for the same coupon serialize on the lock.
func (r *PGRepo) RedeemTx(ctx context.Context, tx pgx.Tx, code, userID string) error {
	var usageLimit, used, perUser int
	err := tx.QueryRow(ctx, `
		SELECT usage_limit, used_count, per_user_limit FROM coupons WHERE code = $1 FOR UPDATE
	`, code).Scan(&usageLimit, &used, &perUser)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	if usageLimit > 0 && used >= usageLimit {
		return reject(ErrUsageLimitExceeded, fmt.Sprintf("coupon %s is fully redeemed", code))
	}

	var userUses int
	err = tx.QueryRow(ctx, `
		INSERT INTO coupon_usage (coupon_code, user_id, usage_count, last_used)
		VALUES ($1, $2, 0, NOW())
		ON CONFLICT (coupon_code, user_id) DO UPDATE SET last_used = coupon_usage.last_used
		RETURNING usage_count
	`, code, userID).Scan(&userUses)
	if err != nil {
		return err
	}
	if perUser > 0 && userUses >= perUser {
		return reject(ErrUsageLimitExceeded, fmt.Sprintf("you have already used coupon %s", code))
	}

	if _, err := tx.Exec(ctx, `
		UPDATE coupon_usage SET usage_count = usage_count + 1, last_used = NOW()
		WHERE coupon_code = $1 AND user_id = $2
	`, code, userID); err != nil {
		return err
	}
	_, err = tx.Exec(ctx, `UPDATE coupons SET used_count = used_count + 1, updated_at = NOW() WHERE code = $1`, code)
	return err
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
