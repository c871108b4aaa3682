// Package cart is the server-side shopping cart: line items, quantities,
// the saved-for-later shelf and the derived totals.
package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/MikeMC777/storefront/internal/catalog"
)

var (
	ErrItemNotFound    = errors.New("cart item not found")
	ErrUnavailable     = errors.New("product variant unavailable")
	ErrInvalidQuantity = errors.New("quantity must be positive")
)

const maxSaveAttempts = 3

type Service struct {
	repo    Repository
	catalog catalog.Reader
	now     func() time.Time
}

func NewService(repo Repository, cat catalog.Reader) *Service {
	return &Service{repo: repo, catalog: cat, now: time.Now}
}

// Get returns the user's cart, an empty unsaved one if none exists yet.
func (s *Service) Get(ctx context.Context, userID string) (*Cart, error) {
	c, err := s.repo.Get(ctx, userID)
	if errors.Is(err, ErrNotFound) {
		c = &Cart{ID: uuid.NewString(), UserID: userID, Items: []LineItem{}, LastActivity: s.now().UTC()}
		c.Recalculate()
		return c, nil
	}
	return c, err
}

// mutate applies fn to a fresh copy of the cart and saves it, re-reading and
// re-applying on optimistic concurrency conflicts.
func (s *Service) mutate(ctx context.Context, userID string, fn func(c *Cart) error) (*Cart, error) {
	for attempt := 1; ; attempt++ {
		c, err := s.Get(ctx, userID)
		if err != nil {
			return nil, err
		}
		if err := fn(c); err != nil {
			return nil, err
		}
		c.LastActivity = s.now().UTC()
		c.Recalculate()

		err = s.repo.Save(ctx, c)
		if err == nil {
			return c, nil
		}
		if !errors.Is(err, ErrConflict) || attempt >= maxSaveAttempts {
			return nil, err
		}
		zerolog.Ctx(ctx).Debug().Str("user_id", userID).Int("attempt", attempt).Msg("[cart] save conflict, retrying")
	}
}

func (s *Service) AddItem(ctx context.Context, userID string, req AddItemRequest) (*Cart, error) {
	if req.Quantity <= 0 {
		return nil, ErrInvalidQuantity
	}
	v, err := s.catalog.GetVariant(ctx, req.VariantSKU)
	if errors.Is(err, catalog.ErrNotFound) {
		return nil, ErrUnavailable
	}
	if err != nil {
		return nil, fmt.Errorf("lookup variant %s: %w", req.VariantSKU, err)
	}
	if !v.Active {
		return nil, ErrUnavailable
	}

	return s.mutate(ctx, userID, func(c *Cart) error {
		if i := c.activeBySKU(v.SKU); i >= 0 {
			c.Items[i].Quantity += req.Quantity
			c.Items[i].UnitPrice = v.Price
			return nil
		}
		c.Items = append(c.Items, LineItem{
			ID:         uuid.NewString(),
			ProductID:  v.ProductID,
			VariantSKU: v.SKU,
			Title:      v.Title,
			UnitPrice:  v.Price,
			Size:       v.Size,
			Color:      v.Color,
			Category:   v.Category,
			Quantity:   req.Quantity,
		})
		return nil
	})
}

// UpdateQuantity sets a line's quantity; zero or less removes the line.
func (s *Service) UpdateQuantity(ctx context.Context, userID, itemID string, qty int) (*Cart, error) {
	return s.mutate(ctx, userID, func(c *Cart) error {
		i := c.index(itemID)
		if i < 0 {
			return ErrItemNotFound
		}
		if qty <= 0 {
			c.remove(i)
			return nil
		}
		c.Items[i].Quantity = qty
		return nil
	})
}

func (s *Service) RemoveItem(ctx context.Context, userID, itemID string) (*Cart, error) {
	return s.mutate(ctx, userID, func(c *Cart) error {
		i := c.index(itemID)
		if i < 0 {
			return ErrItemNotFound
		}
		c.remove(i)
		return nil
	})
}

func (s *Service) SaveForLater(ctx context.Context, userID, itemID string) (*Cart, error) {
	return s.mutate(ctx, userID, func(c *Cart) error {
		i := c.index(itemID)
		if i < 0 {
			return ErrItemNotFound
		}
		c.Items[i].SavedForLater = true
		return nil
	})
}

// MoveToCart brings a saved line back; it is folded into an active line for
// the same SKU when one exists.
func (s *Service) MoveToCart(ctx context.Context, userID, itemID string) (*Cart, error) {
	return s.mutate(ctx, userID, func(c *Cart) error {
		i := c.index(itemID)
		if i < 0 {
			return ErrItemNotFound
		}
		if !c.Items[i].SavedForLater {
			return nil
		}
		if j := c.activeBySKU(c.Items[i].VariantSKU); j >= 0 {
			c.Items[j].Quantity += c.Items[i].Quantity
			c.remove(i)
			return nil
		}
		c.Items[i].SavedForLater = false
		return nil
	})
}

func (s *Service) Clear(ctx context.Context, userID string) (*Cart, error) {
	return s.mutate(ctx, userID, func(c *Cart) error {
		c.Items = []LineItem{}
		return nil
	})
}

// ClearActive empties the cart after an order was placed, keeping the
// saved-for-later shelf.
func (s *Service) ClearActive(ctx context.Context, userID string) error {
	_, err := s.mutate(ctx, userID, func(c *Cart) error {
		kept := c.Items[:0]
		for _, it := range c.Items {
			if it.SavedForLater {
				kept = append(kept, it)
			}
		}
		c.Items = kept
		return nil
	})
	return err
}
