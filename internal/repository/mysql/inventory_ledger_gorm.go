package mysql

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"storefront-service/internal/domain"
	"storefront-service/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type inventoryLedger struct {
	db *gorm.DB
}

func NewInventoryLedger(db *gorm.DB) repository.InventoryLedger {
	return &inventoryLedger{db: db}
}

func (l *inventoryLedger) Reserve(ctx context.Context, orderID uint64, lines []domain.ReservationLine) (*domain.Reservation, error) {
	merged, err := normalizeLines(lines)
	if err != nil {
		return nil, err
	}

	res := &domain.Reservation{OrderID: orderID}
	err = conn(ctx, l.db).Transaction(func(tx *gorm.DB) error {
		// rows are locked in product id order so overlapping checkouts cannot deadlock
		for _, line := range merged {
			result := tx.Model(&domain.Product{}).
				Where("id = ? AND stock >= ?", line.ProductID, line.Quantity).
				UpdateColumn("stock", gorm.Expr("stock - ?", line.Quantity))
			if result.Error != nil {
				return fmt.Errorf("reserve product %d: %w", line.ProductID, result.Error)
			}
			if result.RowsAffected == 0 {
				return shortage(tx, line)
			}
			res.Lines = append(res.Lines, domain.StockReservation{
				ID:        uuid.NewString(),
				OrderID:   orderID,
				ProductID: line.ProductID,
				Quantity:  line.Quantity,
				State:     domain.ReservationReserved,
			})
		}
		if err := tx.Create(&res.Lines).Error; err != nil {
			return fmt.Errorf("record reservations for order %d: %w", orderID, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (l *inventoryLedger) Release(ctx context.Context, orderID uint64) (int, error) {
	released := 0
	err := conn(ctx, l.db).Transaction(func(tx *gorm.DB) error {
		var rows []domain.StockReservation
		err := tx.Where("order_id = ? AND state = ?", orderID, domain.ReservationReserved).
			Order("product_id").
			Find(&rows).Error
		if err != nil {
			return fmt.Errorf("load reservations for order %d: %w", orderID, err)
		}
		for _, row := range rows {
			// the conditional flip makes sure each row restores stock at most once
			flip := tx.Model(&domain.StockReservation{}).
				Where("id = ? AND state = ?", row.ID, domain.ReservationReserved).
				Update("state", domain.ReservationReleased)
			if flip.Error != nil {
				return fmt.Errorf("release reservation %s: %w", row.ID, flip.Error)
			}
			if flip.RowsAffected == 0 {
				continue
			}
			restore := tx.Unscoped().Model(&domain.Product{}).
				Where("id = ?", row.ProductID).
				UpdateColumn("stock", gorm.Expr("stock + ?", row.Quantity))
			if restore.Error != nil {
				return fmt.Errorf("restore stock for product %d: %w", row.ProductID, restore.Error)
			}
			released++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return released, nil
}

func (l *inventoryLedger) Commit(ctx context.Context, orderID uint64) error {
	err := conn(ctx, l.db).Model(&domain.StockReservation{}).
		Where("order_id = ? AND state = ?", orderID, domain.ReservationReserved).
		Update("state", domain.ReservationCommitted).Error
	if err != nil {
		return fmt.Errorf("commit reservations for order %d: %w", orderID, err)
	}
	return nil
}

// normalizeLines merges duplicate products and sorts by product id.
func normalizeLines(lines []domain.ReservationLine) ([]domain.ReservationLine, error) {
	if len(lines) == 0 {
		return nil, domain.ValidationError("nothing to reserve")
	}
	byProduct := make(map[uint64]int64, len(lines))
	for _, line := range lines {
		if line.Quantity <= 0 {
			return nil, domain.ValidationError("quantity for product %d must be positive", line.ProductID)
		}
		byProduct[line.ProductID] += line.Quantity
	}
	out := make([]domain.ReservationLine, 0, len(byProduct))
	for id, qty := range byProduct {
		out = append(out, domain.ReservationLine{ProductID: id, Quantity: qty})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProductID < out[j].ProductID })
	return out, nil
}

func shortage(tx *gorm.DB, line domain.ReservationLine) error {
	var p domain.Product
	if err := tx.Select("id", "name").First(&p, line.ProductID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("product %d: %w", line.ProductID, domain.ErrProductNotFound)
		}
		return fmt.Errorf("load product %d: %w", line.ProductID, err)
	}
	return &domain.OutOfStockError{ProductID: p.ID, Name: p.Name, Requested: line.Quantity}
}
