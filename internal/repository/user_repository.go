package repository

import (
	"context"

	"storefront-service/internal/domain"
)

type UserRepository interface {
	Create(ctx context.Context, u *domain.User) error
	FindByID(ctx context.Context, id uint64) (*domain.User, error)
	FindByUsername(ctx context.Context, username string) (*domain.User, error)
	CountByRole(ctx context.Context, role domain.Role) (int64, error)
}
