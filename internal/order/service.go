package order

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/MikeMC777/storefront/internal/events"
)

type Service struct {
	repo   Repository
	events events.Publisher
}

func NewService(repo Repository, pub events.Publisher) *Service {
	if pub == nil {
		pub = events.Nop{}
	}
	return &Service{repo: repo, events: pub}
}

// Get returns an order of userID. Someone else's order is reported as not found.
func (s *Service) Get(ctx context.Context, userID, id string) (*Order, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}
	o, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if o.UserID != userID {
		return nil, ErrNotFound
	}
	return o, nil
}

func (s *Service) List(ctx context.Context, userID string, limit, offset int) ([]Order, error) {
	return s.repo.ListByUser(ctx, userID, limit, offset)
}

type statusChanged struct {
	OrderID     string `json:"order_id"`
	OrderNumber string `json:"order_number"`
	UserID      string `json:"user_id"`
	Status      Status `json:"status"`
}

func (s *Service) UpdateStatus(ctx context.Context, id string, next Status) (*Order, error) {
	if !next.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidTransition, next)
	}
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}
	o, err := s.repo.UpdateStatus(ctx, id, next)
	if err != nil {
		return nil, err
	}
	events.PublishAsync(s.events, events.TopicOrderStatus, o.UserID, statusChanged{
		OrderID: o.ID, OrderNumber: o.OrderNumber, UserID: o.UserID, Status: o.Status,
	})
	return o, nil
}
