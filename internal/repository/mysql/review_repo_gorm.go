package mysql

import (
	"context"
	"errors"
	"fmt"

	"storefront-service/internal/domain"
	"storefront-service/internal/repository"

	"gorm.io/gorm"
)

type reviewRepo struct {
	db *gorm.DB
}

func NewReviewRepository(db *gorm.DB) repository.ReviewRepository {
	return &reviewRepo{db: db}
}

func (r *reviewRepo) ListByProduct(ctx context.Context, productID uint64, offset, limit int) ([]domain.Review, int64, error) {
	var total int64
	q := conn(ctx, r.db).Model(&domain.Review{}).Where("product_id = ?", productID)
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count reviews for product %d: %w", productID, err)
	}
	var out []domain.Review
	err := conn(ctx, r.db).Where("product_id = ?", productID).
		Order("created_at DESC, id DESC").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	if err != nil {
		return nil, 0, fmt.Errorf("list reviews for product %d: %w", productID, err)
	}
	return out, total, nil
}

func (r *reviewRepo) FindByID(ctx context.Context, id uint64) (*domain.Review, error) {
	return r.findOne(ctx, "id = ?", id)
}

func (r *reviewRepo) FindByProductAndUser(ctx context.Context, productID, userID uint64) (*domain.Review, error) {
	return r.findOne(ctx, "product_id = ? AND user_id = ?", productID, userID)
}

func (r *reviewRepo) findOne(ctx context.Context, query string, args ...any) (*domain.Review, error) {
	var rv domain.Review
	if err := conn(ctx, r.db).Where(query, args...).First(&rv).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("find review: %w", err)
	}
	return &rv, nil
}

func (r *reviewRepo) Create(ctx context.Context, rv *domain.Review) error {
	if err := conn(ctx, r.db).Create(rv).Error; err != nil {
		return fmt.Errorf("create review: %w", err)
	}
	return nil
}

func (r *reviewRepo) Update(ctx context.Context, rv *domain.Review) error {
	if err := conn(ctx, r.db).Model(rv).Select("Rating", "Comment").Updates(rv).Error; err != nil {
		return fmt.Errorf("update review %d: %w", rv.ID, err)
	}
	return nil
}

func (r *reviewRepo) Delete(ctx context.Context, id uint64) error {
	if err := conn(ctx, r.db).Delete(&domain.Review{}, id).Error; err != nil {
		return fmt.Errorf("delete review %d: %w", id, err)
	}
	return nil
}
