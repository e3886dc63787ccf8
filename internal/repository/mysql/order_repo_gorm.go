package mysql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"storefront-service/internal/domain"
	"storefront-service/internal/repository"

	"gorm.io/gorm"
)

type orderRepo struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) repository.OrderRepository {
	return &orderRepo{db: db}
}

// Save inserts the order together with its line items.
func (r *orderRepo) Save(ctx context.Context, order *domain.Order) error {
	if err := conn(ctx, r.db).Create(order).Error; err != nil {
		return fmt.Errorf("save order: %w", err)
	}
	if order.ID == 0 {
		return errors.New("failed to assign order ID")
	}
	return nil
}

func (r *orderRepo) FindByID(ctx context.Context, id uint64) (*domain.Order, error) {
	var o domain.Order
	err := conn(ctx, r.db).Preload("Items", orderItemsByID).First(&o, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("find order %d: %w", id, err)
	}
	return &o, nil
}

func (r *orderRepo) FindByUser(ctx context.Context, userID uint64) ([]domain.Order, error) {
	var out []domain.Order
	err := conn(ctx, r.db).Preload("Items", orderItemsByID).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("find orders for user %d: %w", userID, err)
	}
	return out, nil
}

func (r *orderRepo) FindAll(ctx context.Context) ([]domain.Order, error) {
	var out []domain.Order
	if err := conn(ctx, r.db).Preload("Items", orderItemsByID).Order("created_at DESC, id DESC").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("find orders: %w", err)
	}
	return out, nil
}

func (r *orderRepo) FindPendingByUser(ctx context.Context, userID uint64) ([]domain.Order, error) {
	var out []domain.Order
	err := conn(ctx, r.db).Preload("Items", orderItemsByID).
		Where("user_id = ? AND status = ?", userID, domain.StatusPending).
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("find pending orders for user %d: %w", userID, err)
	}
	return out, nil
}

func (r *orderRepo) FindStalePending(ctx context.Context, before time.Time, limit int) ([]domain.Order, error) {
	var out []domain.Order
	err := conn(ctx, r.db).Preload("Items", orderItemsByID).
		Where("status = ? AND payment_status = ? AND created_at < ?", domain.StatusPending, domain.PaymentPending, before).
		Order("id").
		Limit(limit).
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("find stale pending orders: %w", err)
	}
	return out, nil
}

func (r *orderRepo) UpdateStatus(ctx context.Context, id uint64, from, to domain.OrderStatus, payment domain.PaymentStatus) error {
	updates := map[string]any{"status": to, "updated_at": time.Now()}
	if payment != "" {
		updates["payment_status"] = payment
	}
	result := conn(ctx, r.db).Model(&domain.Order{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("update order %d status: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("order %d is no longer %s: %w", id, from, domain.ErrInvalidTransition)
	}
	return nil
}

func (r *orderRepo) HasDeliveredItem(ctx context.Context, userID, productID uint64) (bool, error) {
	var count int64
	err := conn(ctx, r.db).Model(&domain.OrderItem{}).
		Joins("JOIN orders ON orders.id = order_items.order_id").
		Where("orders.user_id = ? AND orders.status = ? AND order_items.product_id = ?", userID, domain.StatusDelivered, productID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("check delivered items: %w", err)
	}
	return count > 0, nil
}

func orderItemsByID(db *gorm.DB) *gorm.DB {
	return db.Order("order_items.id")
}
