// Package catalog stores products and their variants, including the live
// stock figures used at checkout, and exposes the admin write endpoints.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/MikeMC777/storefront/internal/db"
)

var (
	ErrNotFound          = errors.New("product not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrSKUTaken means the SKU already belongs to a different product.
	ErrSKUTaken = errors.New("sku belongs to another product")
)

type Query struct {
	Q        string
	Category string
	Limit    int
	Offset   int
}

// Reader is what the cart and the stock validator need from the catalog.
type Reader interface {
	GetVariant(ctx context.Context, sku string) (*Variant, error)
}

type Repository interface {
	Reader
	GetByID(ctx context.Context, id string) (*Product, error)
	List(ctx context.Context, q Query) ([]Product, error)
	Create(ctx context.Context, p *Product) error
	Update(ctx context.Context, id string, in UpdateProductRequest) error
	Delete(ctx context.Context, id string) (bool, error)
	UpsertVariant(ctx context.Context, productID string, in VariantInput) (*Variant, error)
}

type PGRepo struct{ db *pgxpool.Pool }

func NewPGRepo(db *pgxpool.Pool) *PGRepo { return &PGRepo{db: db} }

const variantCols = `
	v.sku, v.product_id, p.name, p.category, v.size, v.color, v.price::text, v.stock,
	(v.active AND p.active)`

func scanVariant(row pgx.Row) (*Variant, error) {
	var (
		v     Variant
		price string
	)
	if err := row.Scan(&v.SKU, &v.ProductID, &v.Title, &v.Category, &v.Size, &v.Color, &price, &v.Stock, &v.Active); err != nil {
		return nil, err
	}
	d, err := decimal.NewFromString(price)
	if err != nil {
		return nil, err
	}
	v.Price = d
	return &v, nil
}

func (r *PGRepo) GetVariant(ctx context.Context, sku string) (*Variant, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	v, err := scanVariant(r.db.QueryRow(ctx, `
		SELECT`+variantCols+`
		FROM product_variants v JOIN products p ON p.id = v.product_id
		WHERE v.sku = $1
	`, sku))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return v, err
}

func (r *PGRepo) GetByID(ctx context.Context, id string) (*Product, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}
	var p Product
	err := r.db.QueryRow(ctx, `
		SELECT id, name, description, category, active, created_at, updated_at
		FROM products WHERE id=$1
	`, id).Scan(&p.ID, &p.Name, &p.Description, &p.Category, &p.Active, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get product %s: %w", id, err)
	}
	vs, err := r.variants(ctx, []string{p.ID})
	if err != nil {
		return nil, err
	}
	p.Variants = vs[p.ID]
	return &p, nil
}

func (r *PGRepo) List(ctx context.Context, q Query) ([]Product, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	limit := q.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}
	search := strings.TrimSpace(q.Q)

	rows, err := r.db.Query(ctx, `
		SELECT id, name, description, category, active, created_at, updated_at
		FROM products
		WHERE active
		  AND ($1 = '' OR name ILIKE '%'||$1||'%' OR description ILIKE '%'||$1||'%')
		  AND ($2 = '' OR category = $2)
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4
	`, search, q.Category, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var (
		out []Product
		ids []string
	)
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.Category, &p.Active, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
		ids = append(ids, p.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return out, nil
	}
	vs, err := r.variants(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i].Variants = vs[out[i].ID]
	}
	return out, nil
}

func (r *PGRepo) variants(ctx context.Context, productIDs []string) (map[string][]Variant, error) {
	rows, err := r.db.Query(ctx, `
		SELECT`+variantCols+`
		FROM product_variants v JOIN products p ON p.id = v.product_id
		WHERE v.product_id = ANY($1::uuid[])
		ORDER BY v.sku
	`, productIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string][]Variant, len(productIDs))
	for rows.Next() {
		v, err := scanVariant(rows)
		if err != nil {
			return nil, err
		}
		out[v.ProductID] = append(out[v.ProductID], *v)
	}
	return out, rows.Err()
}

// Create inserts p and its variants in one transaction. p.ID is assigned
// when empty.
func (r *PGRepo) Create(ctx context.Context, p *Product) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return db.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			INSERT INTO products (id, name, description, category, active, created_at, updated_at)
			VALUES ($1,$2,$3,$4,$5,NOW(),NOW())
			RETURNING created_at, updated_at
		`, p.ID, p.Name, p.Description, p.Category, p.Active).Scan(&p.CreatedAt, &p.UpdatedAt)
		if err != nil {
			return err
		}
		for _, v := range p.Variants {
			_, err := tx.Exec(ctx, `
				INSERT INTO product_variants (sku, product_id, size, color, price, stock, active, updated_at)
				VALUES ($1,$2,$3,$4,$5,$6,$7,NOW())
			`, v.SKU, p.ID, v.Size, v.Color, v.Price.String(), v.Stock, v.Active)
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == "23505" {
				return fmt.Errorf("%w: %s", ErrSKUTaken, v.SKU)
			}
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// Update changes the product fields; blank strings and a nil Active keep
// the stored value.
func (r *PGRepo) Update(ctx context.Context, id string, in UpdateProductRequest) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if _, err := uuid.Parse(id); err != nil {
		return ErrNotFound
	}
	tag, err := r.db.Exec(ctx, `
		UPDATE products
		SET name = COALESCE(NULLIF($2,''), name),
		    description = COALESCE(NULLIF($3,''), description),
		    category = COALESCE(NULLIF($4,''), category),
		    active = COALESCE($5, active),
		    updated_at = NOW()
		WHERE id = $1
	`, id, strings.TrimSpace(in.Name), in.Description, in.Category, in.Active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes the product and, by cascade, its variants. Placed orders
// keep their own item snapshots.
func (r *PGRepo) Delete(ctx context.Context, id string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if _, err := uuid.Parse(id); err != nil {
		return false, nil
	}
	cmd, err := r.db.Exec(ctx, `DELETE FROM products WHERE id=$1`, id)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}

// UpsertVariant sets price, stock and active flag of a variant, creating it
// under productID when the SKU is new.
func (r *PGRepo) UpsertVariant(ctx context.Context, productID string, in VariantInput) (*Variant, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if _, err := uuid.Parse(productID); err != nil {
		return nil, ErrNotFound
	}
	tag, err := r.db.Exec(ctx, `
		INSERT INTO product_variants (sku, product_id, size, color, price, stock, active, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,COALESCE($7,TRUE),NOW())
		ON CONFLICT (sku) DO UPDATE
		SET size = EXCLUDED.size, color = EXCLUDED.color, price = EXCLUDED.price,
		    stock = EXCLUDED.stock, active = COALESCE($7, product_variants.active), updated_at = NOW()
		WHERE product_variants.product_id = EXCLUDED.product_id
	`, in.SKU, productID, in.Size, in.Color, in.Price.String(), in.Stock, in.Active)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23503" {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrSKUTaken
	}
	return r.GetVariant(ctx, in.SKU)
}

// DecrementStock takes qty units of sku inside tx. It never lets stock go
// negative; a short variant yields ErrInsufficientStock.
func DecrementStock(ctx context.Context, tx pgx.Tx, sku string, qty int) error {
	tag, err := tx.Exec(ctx, `
		UPDATE product_variants
		SET stock = stock - $2, updated_at = NOW()
		WHERE sku = $1 AND stock >= $2
	`, sku, qty)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrInsufficientStock
	}
	return nil
}

// RestockTx returns qty units of sku, e.g. when an order is canceled.
func RestockTx(ctx context.Context, tx pgx.Tx, sku string, qty int) error {
	tag, err := tx.Exec(ctx, `
		UPDATE product_variants
		SET stock = stock + $2, updated_at = NOW()
		WHERE sku = $1
	`, sku, qty)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
