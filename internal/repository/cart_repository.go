package repository

import (
	"context"

	"storefront-service/internal/domain"
)

type CartRepository interface {
	// ListByUser returns the user's lines, oldest first, with products preloaded.
	ListByUser(ctx context.Context, userID uint64) ([]domain.CartItem, error)
	FindByID(ctx context.Context, userID, itemID uint64) (*domain.CartItem, error)
	FindByProduct(ctx context.Context, userID, productID uint64) (*domain.CartItem, error)
	// AddQuantity inserts the line or increments the existing one in a single statement.
	AddQuantity(ctx context.Context, userID, productID uint64, delta int64) (*domain.CartItem, error)
	SetQuantity(ctx context.Context, itemID uint64, quantity int64) error
	Delete(ctx context.Context, itemID uint64) error
	ClearByUser(ctx context.Context, userID uint64) (int64, error)
}
