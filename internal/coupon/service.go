// Package coupon validates discount codes against an order and picks the best
// code for a user. Usage counters only move when an order is placed.
package coupon

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/MikeMC777/storefront/internal/validate"
)

type Service struct {
	repo  Repository
	cache Cache
	now   func() time.Time
}

func NewService(repo Repository, cache Cache) *Service {
	if cache == nil {
		cache = NopCache{}
	}
	return &Service{repo: repo, cache: cache, now: time.Now}
}

func (s *Service) lookup(ctx context.Context, code string) (*Coupon, error) {
	if c, ok := s.cache.Get(ctx, code); ok {
		return c, nil
	}
	c, err := s.repo.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	s.cache.Set(ctx, c)
	return c, nil
}

// Validate evaluates one code for userID. Unknown codes are rejected as
// ErrInvalidCoupon.
func (s *Service) Validate(ctx context.Context, userID string, req ValidateRequest) (Result, error) {
	code := NormalizeCode(req.Code)
	if code == "" {
		return Result{}, reject(ErrInvalidCoupon, "coupon code is required")
	}
	c, err := s.lookup(ctx, code)
	if errors.Is(err, ErrNotFound) {
		return Result{}, reject(ErrInvalidCoupon, fmt.Sprintf("coupon %s does not exist", code))
	}
	if err != nil {
		return Result{}, fmt.Errorf("lookup coupon %s: %w", code, err)
	}
	uses, err := s.repo.UserUsage(ctx, code, userID)
	if err != nil {
		return Result{}, fmt.Errorf("coupon usage %s: %w", code, err)
	}
	req.Code = code
	return Evaluate(c, req, uses, s.now())
}

// AutoApply returns the best coupon for userID; ok is false when none applies.
func (s *Service) AutoApply(ctx context.Context, userID string, req AutoApplyRequest) (res Result, ok bool, err error) {
	now := s.now()
	coupons, err := s.repo.ListActive(ctx, now)
	if err != nil {
		return Result{}, false, fmt.Errorf("list active coupons: %w", err)
	}
	uses, err := s.repo.UserUsages(ctx, userID)
	if err != nil {
		return Result{}, false, fmt.Errorf("coupon usages: %w", err)
	}
	res, ok = Best(coupons, req, uses, now)
	return res, ok, nil
}

// RedeemTx is called by order placement inside its transaction. The cached
// copy stays until the caller commits and calls InvalidateCache.
func (s *Service) RedeemTx(ctx context.Context, tx pgx.Tx, code, userID string) error {
	return s.repo.RedeemTx(ctx, tx, NormalizeCode(code), userID)
}

func (s *Service) InvalidateCache(ctx context.Context, code string) {
	s.cache.Invalidate(ctx, NormalizeCode(code))
}

func (s *Service) List(ctx context.Context, limit, offset int) ([]Coupon, error) {
	return s.repo.List(ctx, limit, offset)
}

// validateUpsert runs the binding rules, then the checks that depend on more
// than one field.
func validateUpsert(in UpsertRequest) error {
	in.Code = NormalizeCode(in.Code)
	if err := validate.Struct(in); err != nil {
		return err
	}
	switch {
	case in.Type == Percentage && (!in.Value.IsPositive() || in.Value.GreaterThan(hundred)):
		return fmt.Errorf("%w: percentage discount_value must be in (0, 100]", ErrInvalidInput)
	case in.Type == Fixed && !in.Value.IsPositive():
		return fmt.Errorf("%w: fixed discount_value must be positive", ErrInvalidInput)
	case in.MaxDiscount.Valid && !in.MaxDiscount.Decimal.IsPositive():
		return fmt.Errorf("%w: max_discount must be positive", ErrInvalidInput)
	case in.ValidFrom != nil && in.ValidUntil != nil && in.ValidUntil.Before(*in.ValidFrom):
		return fmt.Errorf("%w: valid_until must be after valid_from", ErrInvalidInput)
	}
	return nil
}

func fromUpsert(in UpsertRequest) *Coupon {
	active := true
	if in.Active != nil {
		active = *in.Active
	}
	return &Coupon{
		Code:                 NormalizeCode(in.Code),
		Description:          in.Description,
		Type:                 in.Type,
		Value:                in.Value,
		MaxDiscount:          in.MaxDiscount,
		MinOrderAmount:       in.MinOrderAmount,
		ValidFrom:            in.ValidFrom,
		ValidUntil:           in.ValidUntil,
		UsageLimit:           in.UsageLimit,
		PerUserLimit:         in.PerUserLimit,
		ApplicableProducts:   in.ApplicableProducts,
		ApplicableCategories: in.ApplicableCategories,
		Active:               active,
	}
}

func (s *Service) Create(ctx context.Context, in UpsertRequest) (*Coupon, error) {
	if err := validateUpsert(in); err != nil {
		return nil, err
	}
	c := fromUpsert(in)
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, err
	}
	return s.repo.GetByCode(ctx, c.Code)
}

func (s *Service) Update(ctx context.Context, code string, in UpsertRequest) (*Coupon, error) {
	in.Code = code
	if err := validateUpsert(in); err != nil {
		return nil, err
	}
	c := fromUpsert(in)
	if err := s.repo.Update(ctx, c); err != nil {
		return nil, err
	}
	s.cache.Invalidate(ctx, c.Code)
	return s.repo.GetByCode(ctx, c.Code)
}

func (s *Service) Deactivate(ctx context.Context, code string) error {
	code = NormalizeCode(code)
	if err := s.repo.Deactivate(ctx, code); err != nil {
		return err
	}
	s.cache.Invalidate(ctx, code)
	return nil
}
