package services

import (
	"context"
	"fmt"

	"storefront-service/internal/domain"
	"storefront-service/internal/repository"

	"go.uber.org/zap"
)

type OrderService struct {
	tx     repository.TxManager
	repo   repository.OrderRepository
	ledger repository.InventoryLedger
	log    *zap.Logger
}

func NewOrderService(tx repository.TxManager, r repository.OrderRepository, l repository.InventoryLedger, log *zap.Logger) *OrderService {
	return &OrderService{tx: tx, repo: r, ledger: l, log: log}
}

func (u *OrderService) ListForUser(ctx context.Context, userID uint64) ([]domain.Order, error) {
	orders, err := u.repo.FindByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if orders == nil {
		orders = []domain.Order{}
	}
	return orders, nil
}

func (u *OrderService) ListAll(ctx context.Context) ([]domain.Order, error) {
	orders, err := u.repo.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	if orders == nil {
		orders = []domain.Order{}
	}
	return orders, nil
}

// GetOrderById returns the order only to its owner.
func (u *OrderService) GetOrderById(ctx context.Context, userID, id uint64) (*domain.Order, error) {
	o, err := u.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if o == nil || o.UserID != userID {
		return nil, domain.ErrOrderNotFound
	}
	return o, nil
}

// UpdateStatus is the admin transition. An order cannot be moved to
// PROCESSING by hand: that needs a completed payment. Cancelling a PENDING
// order marks its payment FAILED and gives its reserved stock back.
func (u *OrderService) UpdateStatus(ctx context.Context, id uint64, to domain.OrderStatus) (*domain.Order, error) {
	o, err := u.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if o == nil {
		return nil, domain.ErrOrderNotFound
	}
	if !domain.CanTransition(o.Status, to) || to == domain.StatusProcessing {
		return nil, fmt.Errorf("%s to %s: %w", o.Status, to, domain.ErrInvalidTransition)
	}

	from := o.Status
	// an unpaid order cancelled by hand will not be paid; a late callback is refused
	var payment domain.PaymentStatus
	if from == domain.StatusPending && to == domain.StatusCancelled {
		payment = domain.PaymentFailed
	}
	err = u.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := u.repo.UpdateStatus(ctx, id, from, to, payment); err != nil {
			return err
		}
		if payment == domain.PaymentFailed {
			_, err := u.ledger.Release(ctx, id)
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	o.Status = to
	if payment != "" {
		o.PaymentStatus = payment
	}
	u.log.Info("order status changed", zap.Uint64("order_id", id), zap.String("from", string(from)), zap.String("to", string(to)))
	return o, nil
}
