package cart

import (
	"context"
	"sync"
)

// MemRepo is an in-process Repository with the same versioning rules as
// MongoRepo. Used for local runs without MongoDB and in tests.
type MemRepo struct {
	mu    sync.Mutex
	carts map[string]Cart
}

func NewMemRepo() *MemRepo { return &MemRepo{carts: make(map[string]Cart)} }

func clone(c Cart) *Cart {
	c.Items = append([]LineItem(nil), c.Items...)
	return &c
}

func (m *MemRepo) Get(_ context.Context, userID string) (*Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.carts[userID]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(c), nil
}

func (m *MemRepo) Save(_ context.Context, c *Cart) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.carts[c.UserID]
	switch {
	case !ok && c.Version != 0:
		return ErrConflict
	case ok && cur.Version != c.Version:
		return ErrConflict
	}
	c.Version++
	m.carts[c.UserID] = *clone(*c)
	return nil
}
