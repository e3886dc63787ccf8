package repository

import (
	"context"

	"storefront-service/internal/domain"
)

type ProductRepository interface {
	Create(ctx context.Context, p *domain.Product) error
	Update(ctx context.Context, p *domain.Product) error
	// SetStock overwrites the available quantity. Only an explicit admin
	// restock calls it; checkout stock moves through InventoryLedger.
	SetStock(ctx context.Context, id uint64, stock int64) error
	Delete(ctx context.Context, id uint64) (bool, error)
	FindByID(ctx context.Context, id uint64) (*domain.Product, error)
	FindByIDs(ctx context.Context, ids []uint64) ([]domain.Product, error)
	List(ctx context.Context, categoryID uint64) ([]domain.Product, error)
}

type CategoryRepository interface {
	Create(ctx context.Context, c *domain.Category) error
	Update(ctx context.Context, c *domain.Category) error
	Delete(ctx context.Context, id uint64) (bool, error)
	FindByID(ctx context.Context, id uint64) (*domain.Category, error)
	List(ctx context.Context) ([]domain.Category, error)
}
