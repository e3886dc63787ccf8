package mysql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"storefront-service/internal/domain"
	"storefront-service/internal/repository"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type cartRepo struct {
	db *gorm.DB
}

func NewCartRepository(db *gorm.DB) repository.CartRepository {
	return &cartRepo{db: db}
}

func (r *cartRepo) ListByUser(ctx context.Context, userID uint64) ([]domain.CartItem, error) {
	var out []domain.CartItem
	err := conn(ctx, r.db).Preload("Product").
		Where("user_id = ?", userID).
		Order("id").
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("list cart for user %d: %w", userID, err)
	}
	return out, nil
}

func (r *cartRepo) FindByID(ctx context.Context, userID, itemID uint64) (*domain.CartItem, error) {
	return r.findOne(ctx, "id = ? AND user_id = ?", itemID, userID)
}

func (r *cartRepo) FindByProduct(ctx context.Context, userID, productID uint64) (*domain.CartItem, error) {
	return r.findOne(ctx, "user_id = ? AND product_id = ?", userID, productID)
}

func (r *cartRepo) findOne(ctx context.Context, query string, args ...any) (*domain.CartItem, error) {
	var item domain.CartItem
	if err := conn(ctx, r.db).Preload("Product").Where(query, args...).First(&item).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("find cart item: %w", err)
	}
	return &item, nil
}

func (r *cartRepo) AddQuantity(ctx context.Context, userID, productID uint64, delta int64) (*domain.CartItem, error) {
	item := &domain.CartItem{UserID: userID, ProductID: productID, Quantity: delta}
	err := conn(ctx, r.db).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "product_id"}},
		DoUpdates: clause.Assignments(map[string]any{
			"quantity":   gorm.Expr("quantity + ?", delta),
			"updated_at": time.Now(),
		}),
	}).Create(item).Error
	if err != nil {
		return nil, fmt.Errorf("add cart item: %w", err)
	}
	return r.FindByProduct(ctx, userID, productID)
}

func (r *cartRepo) SetQuantity(ctx context.Context, itemID uint64, quantity int64) error {
	err := conn(ctx, r.db).Model(&domain.CartItem{}).Where("id = ?", itemID).Update("quantity", quantity).Error
	if err != nil {
		return fmt.Errorf("update cart item %d: %w", itemID, err)
	}
	return nil
}

func (r *cartRepo) Delete(ctx context.Context, itemID uint64) error {
	if err := conn(ctx, r.db).Delete(&domain.CartItem{}, itemID).Error; err != nil {
		return fmt.Errorf("delete cart item %d: %w", itemID, err)
	}
	return nil
}

func (r *cartRepo) ClearByUser(ctx context.Context, userID uint64) (int64, error) {
	result := conn(ctx, r.db).Where("user_id = ?", userID).Delete(&domain.CartItem{})
	if result.Error != nil {
		return 0, fmt.Errorf("clear cart for user %d: %w", userID, result.Error)
	}
	return result.RowsAffected, nil
}
