package services

import (
	"context"
	"errors"
	"time"

	"storefront-service/internal/domain"
	"storefront-service/internal/repository"

	"go.uber.org/zap"
)

// Reconciler settles orders whose payment never resolved: the gateway call
// errored, or an asynchronous payment was abandoned. The gateway is asked for
// the real outcome first; an order is only failed on its answer.
type Reconciler struct {
	checkout *CheckoutService
	orders   repository.OrderRepository
	ttl      time.Duration
	interval time.Duration
	batch    int
	log      *zap.Logger
	now      func() time.Time
}

func NewReconciler(checkout *CheckoutService, orders repository.OrderRepository, ttl, interval time.Duration, log *zap.Logger) *Reconciler {
	return &Reconciler{
		checkout: checkout,
		orders:   orders,
		ttl:      ttl,
		interval: interval,
		batch:    100,
		log:      log,
		now:      time.Now,
	}
}

// SweepOnce resolves every PENDING order older than the TTL with the status
// the gateway reports and returns how many it resolved. A payment still
// pending at the gateway after the TTL counts as abandoned. Orders whose
// status cannot be fetched stay reserved until the next sweep.
func (r *Reconciler) SweepOnce(ctx context.Context) (int, error) {
	stale, err := r.orders.FindStalePending(ctx, r.now().Add(-r.ttl), r.batch)
	if err != nil {
		return 0, err
	}
	resolved := 0
	for _, o := range stale {
		log := r.log.With(zap.Uint64("order_id", o.ID))
		status, err := r.lookup(ctx, o.ID)
		if err != nil {
			log.Warn("payment status unknown, order kept pending", zap.Error(err))
			continue
		}
		if status == domain.PaymentPending {
			status = domain.PaymentFailed
		}

		_, err = r.checkout.ResolvePayment(ctx, o.ID, status)
		switch {
		case err == nil:
			resolved++
		case errors.Is(err, domain.ErrInvalidTransition):
			// resolved by a callback in the meantime
		default:
			log.Error("failed to resolve stale order", zap.String("payment_status", string(status)), zap.Error(err))
		}
	}
	if resolved > 0 {
		r.log.Info("resolved stale pending orders", zap.Int("count", resolved))
	}
	return resolved, nil
}

func (r *Reconciler) lookup(ctx context.Context, orderID uint64) (domain.PaymentStatus, error) {
	ctx, cancel := context.WithTimeout(ctx, r.checkout.PaymentTimeout)
	defer cancel()
	return r.checkout.Gateway.Lookup(ctx, orderID)
}

// Run sweeps on every tick until ctx is done.
func (r *Reconciler) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.log.Info("reconciler started", zap.Duration("interval", r.interval), zap.Duration("ttl", r.ttl))
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := r.SweepOnce(ctx); err != nil {
				r.log.Error("reconcile sweep failed", zap.Error(err))
			}
		}
	}
}
