package repository

import (
	"context"

	"storefront-service/internal/domain"
)

// InventoryLedger is the only component allowed to change product stock
// during checkout.
type InventoryLedger interface {
	// Reserve decrements stock for every line or for none of them. A line that
	// cannot be satisfied yields a *domain.OutOfStockError.
	Reserve(ctx context.Context, orderID uint64, lines []domain.ReservationLine) (*domain.Reservation, error)
	// Release restores stock for the order's outstanding reservations and
	// returns how many lines were released. Releasing twice is a no-op.
	Release(ctx context.Context, orderID uint64) (int, error)
	Commit(ctx context.Context, orderID uint64) error
}
