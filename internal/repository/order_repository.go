package repository

import (
	"context"
	"time"

	"storefront-service/internal/domain"
)

// OrderRepository finders return (nil, nil) when the row does not exist.
type OrderRepository interface {
	Save(ctx context.Context, order *domain.Order) error
	FindByID(ctx context.Context, id uint64) (*domain.Order, error)
	FindByUser(ctx context.Context, userID uint64) ([]domain.Order, error)
	FindAll(ctx context.Context) ([]domain.Order, error)
	FindPendingByUser(ctx context.Context, userID uint64) ([]domain.Order, error)
	FindStalePending(ctx context.Context, before time.Time, limit int) ([]domain.Order, error)
	// UpdateStatus moves an order from one status to another only if it is
	// still in `from`; otherwise it returns domain.ErrInvalidTransition. An
	// empty payment status leaves the payment column untouched.
	UpdateStatus(ctx context.Context, id uint64, from, to domain.OrderStatus, payment domain.PaymentStatus) error
	HasDeliveredItem(ctx context.Context, userID, productID uint64) (bool, error)
}
