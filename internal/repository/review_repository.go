package repository

import (
	"context"

	"storefront-service/internal/domain"
)

type ReviewRepository interface {
	ListByProduct(ctx context.Context, productID uint64, offset, limit int) ([]domain.Review, int64, error)
	FindByID(ctx context.Context, id uint64) (*domain.Review, error)
	FindByProductAndUser(ctx context.Context, productID, userID uint64) (*domain.Review, error)
	Create(ctx context.Context, r *domain.Review) error
	Update(ctx context.Context, r *domain.Review) error
	Delete(ctx context.Context, id uint64) error
}
