package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"storefront-service/internal/domain"
	"storefront-service/internal/infra"
	"storefront-service/internal/infra/cache"
	"storefront-service/internal/metrics"
	"storefront-service/internal/repository"

	"go.uber.org/zap"
)

type CheckoutDeps struct {
	Tx             repository.TxManager
	Carts          repository.CartRepository
	Orders         repository.OrderRepository
	Ledger         repository.InventoryLedger
	Gateway        infra.PaymentGateway
	Locker         cache.Locker
	Notifier       *Notifier
	Metrics        *metrics.CheckoutMetrics
	Log            *zap.Logger
	PaymentTimeout time.Duration
	Currency       string
}

// CheckoutService turns a cart into an order: reserve stock, place the order,
// take payment and settle the outcome.
type CheckoutService struct {
	CheckoutDeps
}

func NewCheckoutService(d CheckoutDeps) (*CheckoutService, error) {
	switch {
	case d.Tx == nil:
		return nil, errors.New("transaction manager required")
	case d.Carts == nil || d.Orders == nil:
		return nil, errors.New("cart and order repositories required")
	case d.Ledger == nil:
		return nil, errors.New("inventory ledger required")
	case d.Gateway == nil:
		return nil, errors.New("payment gateway required")
	case d.Locker == nil:
		return nil, errors.New("checkout locker required")
	case d.Notifier == nil:
		return nil, errors.New("notifier required")
	}
	if d.Metrics == nil {
		d.Metrics = metrics.NewCheckoutMetrics(nil)
	}
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	if d.PaymentTimeout <= 0 {
		d.PaymentTimeout = 10 * time.Second
	}
	return &CheckoutService{CheckoutDeps: d}, nil
}

type CheckoutInput struct {
	UserID          uint64
	Email           string
	ShippingAddress string
	PaymentMethod   domain.PaymentMethod
}

type CheckoutResult struct {
	Order         *domain.Order
	PaymentStatus domain.PaymentStatus
	// GatewayUnavailable is set when the gateway could not be reached; the
	// order stays PENDING with its stock reserved.
	GatewayUnavailable bool
}

func (s *CheckoutService) Checkout(ctx context.Context, in CheckoutInput) (*CheckoutResult, error) {
	// a client disconnect must not abandon a half-settled order
	ctx = context.WithoutCancel(ctx)

	if in.UserID == 0 {
		return nil, domain.ErrUnauthorized
	}
	if !in.PaymentMethod.Valid() {
		return nil, domain.ValidationError("unsupported payment method %q", in.PaymentMethod)
	}

	release, err := s.Locker.Acquire(ctx, strconv.FormatUint(in.UserID, 10))
	if err != nil {
		s.observe(err)
		return nil, err
	}
	defer release()

	order, err := s.placeOrder(ctx, in)
	if err != nil {
		s.observe(err)
		return nil, err
	}
	log := s.Log.With(zap.Uint64("order_id", order.ID), zap.Uint64("user_id", in.UserID))
	log.Info("order placed", zap.String("total", order.Total.StringFixed(2)), zap.String("method", string(order.PaymentMethod)))

	status, err := s.authorize(ctx, order)
	if err != nil {
		log.Warn("payment gateway unavailable, order left pending", zap.Error(err))
		s.Metrics.Outcomes.WithLabelValues("gateway_unavailable").Inc()
		return &CheckoutResult{Order: order, PaymentStatus: domain.PaymentPending, GatewayUnavailable: true}, nil
	}

	switch status {
	case domain.PaymentCompleted:
		if err := s.complete(ctx, order); err != nil {
			log.Error("payment completed but order could not be settled", zap.Error(err))
			s.Metrics.Outcomes.WithLabelValues("error").Inc()
			return nil, err
		}
	case domain.PaymentFailed:
		if err := s.fail(ctx, order); err != nil {
			log.Error("payment failed but order could not be cancelled", zap.Error(err))
			s.Metrics.Outcomes.WithLabelValues("error").Inc()
			return nil, err
		}
	default:
		log.Info("payment awaiting confirmation")
	}
	s.Metrics.Outcomes.WithLabelValues(string(status)).Inc()
	return &CheckoutResult{Order: order, PaymentStatus: status}, nil
}

// placeOrder creates the order and reserves its stock in one transaction;
// either both happen or neither does.
func (s *CheckoutService) placeOrder(ctx context.Context, in CheckoutInput) (*domain.Order, error) {
	var order *domain.Order
	err := s.Tx.WithinTx(ctx, func(ctx context.Context) error {
		lines, err := s.Carts.ListByUser(ctx, in.UserID)
		if err != nil {
			return err
		}
		if len(lines) == 0 {
			return domain.ErrEmptyCart
		}
		if err := s.rejectOverlappingPending(ctx, in.UserID, lines); err != nil {
			return err
		}

		items, err := snapshotItems(lines)
		if err != nil {
			return err
		}
		order = domain.NewOrder(in.UserID, items, in.ShippingAddress, in.PaymentMethod)
		order.ContactEmail = in.Email
		if err := s.Orders.Save(ctx, order); err != nil {
			return err
		}

		reserve := make([]domain.ReservationLine, 0, len(items))
		for _, it := range items {
			reserve = append(reserve, domain.ReservationLine{ProductID: it.ProductID, Quantity: it.Quantity})
		}
		_, err = s.Ledger.Reserve(ctx, order.ID, reserve)
		return err
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

func (s *CheckoutService) rejectOverlappingPending(ctx context.Context, userID uint64, lines []domain.CartItem) error {
	pending, err := s.Orders.FindPendingByUser(ctx, userID)
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		return nil
	}
	inCart := make(map[uint64]struct{}, len(lines))
	for _, l := range lines {
		inCart[l.ProductID] = struct{}{}
	}
	for _, o := range pending {
		for _, id := range o.ProductIDs() {
			if _, ok := inCart[id]; ok {
				return fmt.Errorf("order %d is awaiting payment: %w", o.ID, domain.ErrCheckoutInProgress)
			}
		}
	}
	return nil
}

// snapshotItems captures name and unit price from the product state read in
// the current transaction.
func snapshotItems(lines []domain.CartItem) ([]domain.OrderItem, error) {
	items := make([]domain.OrderItem, 0, len(lines))
	for _, l := range lines {
		if l.Product == nil {
			return nil, fmt.Errorf("cart item %d: %w", l.ID, domain.ErrProductNotFound)
		}
		items = append(items, domain.OrderItem{
			ProductID:   l.ProductID,
			ProductName: l.Product.Name,
			Quantity:    l.Quantity,
			UnitPrice:   l.Product.Price,
		})
	}
	return items, nil
}

func (s *CheckoutService) authorize(ctx context.Context, order *domain.Order) (domain.PaymentStatus, error) {
	ctx, cancel := context.WithTimeout(ctx, s.PaymentTimeout)
	defer cancel()

	start := time.Now()
	status, err := s.Gateway.Authorize(ctx, infra.PaymentRequest{
		OrderID:          order.ID,
		AmountMinorUnits: order.AmountMinorUnits(),
		Currency:         s.Currency,
		Method:           order.PaymentMethod,
	})
	label := string(status)
	if err != nil {
		label = "error"
	}
	s.Metrics.GatewayLatency.WithLabelValues(label).Observe(time.Since(start).Seconds())
	if err != nil {
		return "", err
	}
	switch status {
	case domain.PaymentCompleted, domain.PaymentFailed, domain.PaymentPending:
		return status, nil
	}
	return "", fmt.Errorf("payment gateway returned unknown status %q", status)
}

func (s *CheckoutService) complete(ctx context.Context, order *domain.Order) error {
	err := s.Tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.Orders.UpdateStatus(ctx, order.ID, domain.StatusPending, domain.StatusProcessing, domain.PaymentCompleted); err != nil {
			return err
		}
		if err := s.Ledger.Commit(ctx, order.ID); err != nil {
			return err
		}
		_, err := s.Carts.ClearByUser(ctx, order.UserID)
		return err
	})
	if err != nil {
		return err
	}
	order.Status = domain.StatusProcessing
	order.PaymentStatus = domain.PaymentCompleted
	s.Notifier.OrderConfirmed(order)
	return nil
}

func (s *CheckoutService) fail(ctx context.Context, order *domain.Order) error {
	released := 0
	err := s.Tx.WithinTx(ctx, func(ctx context.Context) error {
		// the status guard runs first so a lost race never releases stock
		if err := s.Orders.UpdateStatus(ctx, order.ID, domain.StatusPending, domain.StatusCancelled, domain.PaymentFailed); err != nil {
			return err
		}
		n, err := s.Ledger.Release(ctx, order.ID)
		released = n
		return err
	})
	if err != nil {
		return err
	}
	s.Metrics.Released.Add(float64(released))
	order.Status = domain.StatusCancelled
	order.PaymentStatus = domain.PaymentFailed
	return nil
}

// ResolvePayment settles an order left PENDING by an asynchronous payment.
func (s *CheckoutService) ResolvePayment(ctx context.Context, orderID uint64, status domain.PaymentStatus) (*domain.Order, error) {
	ctx = context.WithoutCancel(ctx)

	order, err := s.Orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, domain.ErrOrderNotFound
	}
	if order.Status != domain.StatusPending || order.PaymentStatus != domain.PaymentPending {
		log := s.Log.With(
			zap.Uint64("order_id", orderID),
			zap.String("order_status", string(order.Status)),
			zap.String("payment_status", string(order.PaymentStatus)),
			zap.String("reported", string(status)))
		if status == domain.PaymentCompleted && order.PaymentStatus != domain.PaymentCompleted {
			log.Error("payment completed for a closed order, refund required")
		} else {
			log.Warn("late payment resolution ignored")
		}
		return nil, fmt.Errorf("order %d already %s: %w", orderID, order.Status, domain.ErrInvalidTransition)
	}

	switch status {
	case domain.PaymentCompleted:
		err = s.complete(ctx, order)
	case domain.PaymentFailed:
		err = s.fail(ctx, order)
	default:
		return nil, domain.ValidationError("cannot resolve payment to %q", status)
	}
	if err != nil {
		return nil, err
	}
	s.Log.Info("payment resolved", zap.Uint64("order_id", orderID), zap.String("payment_status", string(status)))
	return order, nil
}

// GetOrder returns an order to its owner or to an admin.
func (s *CheckoutService) GetOrder(ctx context.Context, who domain.Identity, orderID uint64) (*domain.Order, error) {
	order, err := s.Orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order == nil || (order.UserID != who.UserID && !who.IsAdmin()) {
		return nil, domain.ErrOrderNotFound
	}
	return order, nil
}

func (s *CheckoutService) observe(err error) {
	outcome := "error"
	switch {
	case errors.Is(err, domain.ErrEmptyCart):
		outcome = "empty_cart"
	case errors.Is(err, domain.ErrOutOfStock):
		outcome = "out_of_stock"
	case errors.Is(err, domain.ErrCheckoutInProgress):
		outcome = "in_progress"
	case errors.Is(err, domain.ErrProductNotFound):
		outcome = "product_not_found"
	}
	s.Metrics.Outcomes.WithLabelValues(outcome).Inc()
}
