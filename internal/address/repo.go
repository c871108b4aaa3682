// Package address is the customer's address book. A user has at most one
// default address; the first address saved becomes the default.
package address

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/MikeMC777/storefront/internal/db"
)

var ErrNotFound = errors.New("address not found")

type Repository interface {
	List(ctx context.Context, userID string) ([]Address, error)
	Get(ctx context.Context, userID, id string) (*Address, error)
	Create(ctx context.Context, a *Address) error
	Update(ctx context.Context, a *Address) error
	Delete(ctx context.Context, userID, id string) error
	SetDefault(ctx context.Context, userID, id string) error
}

type PGRepo struct{ db *pgxpool.Pool }

func NewPGRepo(db *pgxpool.Pool) *PGRepo { return &PGRepo{db: db} }

const cols = `id, user_id, label, recipient, phone, line1, line2, city, state, postal_code,
	country, is_default, delivery_instructions, created_at, updated_at`

func scan(row pgx.Row) (*Address, error) {
	var a Address
	err := row.Scan(&a.ID, &a.UserID, &a.Label, &a.Recipient, &a.Phone, &a.Line1, &a.Line2, &a.City,
		&a.State, &a.PostalCode, &a.Country, &a.IsDefault, &a.DeliveryInstructions, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return &a, err
}

func (r *PGRepo) List(ctx context.Context, userID string) ([]Address, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	rows, err := r.db.Query(ctx, `SELECT `+cols+` FROM addresses WHERE user_id=$1
		ORDER BY is_default DESC, created_at`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Address{}
	for rows.Next() {
		a, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

func (r *PGRepo) Get(ctx context.Context, userID, id string) (*Address, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return scan(r.db.QueryRow(ctx, `SELECT `+cols+` FROM addresses WHERE id=$1 AND user_id=$2`, id, userID))
}

func clearDefault(ctx context.Context, tx pgx.Tx, userID string) error {
	_, err := tx.Exec(ctx, `UPDATE addresses SET is_default=FALSE, updated_at=NOW()
		WHERE user_id=$1 AND is_default`, userID)
	return err
}

// Create stores a. The first address of a user is always made the default.
func (r *PGRepo) Create(ctx context.Context, a *Address) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	return db.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		var n int
		if err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM addresses WHERE user_id=$1`, a.UserID).Scan(&n); err != nil {
			return err
		}
		if n == 0 {
			a.IsDefault = true
		}
		if a.IsDefault {
			if err := clearDefault(ctx, tx, a.UserID); err != nil {
				return err
			}
		}
		return tx.QueryRow(ctx, `
			INSERT INTO addresses (id, user_id, label, recipient, phone, line1, line2, city, state,
				postal_code, country, is_default, delivery_instructions)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
			RETURNING created_at, updated_at
		`, a.ID, a.UserID, a.Label, a.Recipient, a.Phone, a.Line1, a.Line2, a.City, a.State,
			a.PostalCode, a.Country, a.IsDefault, a.DeliveryInstructions).Scan(&a.CreatedAt, &a.UpdatedAt)
	})
}

// Update never clears the default flag; moving it is SetDefault's job.
func (r *PGRepo) Update(ctx context.Context, a *Address) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	return db.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		if a.IsDefault {
			if err := clearDefault(ctx, tx, a.UserID); err != nil {
				return err
			}
		}
		err := tx.QueryRow(ctx, `
			UPDATE addresses SET label=$3, recipient=$4, phone=$5, line1=$6, line2=$7, city=$8,
				state=$9, postal_code=$10, country=$11,
				is_default=(is_default OR $12), delivery_instructions=$13, updated_at=NOW()
			WHERE id=$1 AND user_id=$2
			RETURNING is_default, created_at, updated_at
		`, a.ID, a.UserID, a.Label, a.Recipient, a.Phone, a.Line1, a.Line2, a.City, a.State,
			a.PostalCode, a.Country, a.IsDefault, a.DeliveryInstructions).Scan(&a.IsDefault, &a.CreatedAt, &a.UpdatedAt)
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return err
	})
}

// Delete removes an address; when it was the default the oldest remaining
// address takes over.
func (r *PGRepo) Delete(ctx context.Context, userID, id string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	return db.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		var wasDefault bool
		err := tx.QueryRow(ctx, `DELETE FROM addresses WHERE id=$1 AND user_id=$2 RETURNING is_default`,
			id, userID).Scan(&wasDefault)
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil || !wasDefault {
			return err
		}
		_, err = tx.Exec(ctx, `
			UPDATE addresses SET is_default=TRUE, updated_at=NOW()
			WHERE id = (SELECT id FROM addresses WHERE user_id=$1 ORDER BY created_at LIMIT 1)
		`, userID)
		return err
	})
}

// SetDefault clears the previous default and marks id in one transaction.
func (r *PGRepo) SetDefault(ctx context.Context, userID, id string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	return db.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		if err := clearDefault(ctx, tx, userID); err != nil {
			return err
		}
		tag, err := tx.Exec(ctx, `UPDATE addresses SET is_default=TRUE, updated_at=NOW()
			WHERE id=$1 AND user_id=$2`, id, userID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}
		return nil
	})
}
