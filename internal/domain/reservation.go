package domain

import "time"

type ReservationState string

const (
	ReservationReserved  ReservationState = "RESERVED"
	ReservationReleased  ReservationState = "RELEASED"
	ReservationCommitted ReservationState = "COMMITTED"
)

// StockReservation is one committed stock decrement for one order line. It
// can be released (stock restored) until the owning checkout commits it.
type StockReservation struct {
	ID        string           `json:"id" gorm:"type:char(36);primaryKey"`
	OrderID   uint64           `json:"orderId" gorm:"not null;index"`
	ProductID uint64           `json:"productId" gorm:"not null"`
	Quantity  int64            `json:"quantity" gorm:"not null"`
	State     ReservationState `json:"state" gorm:"type:varchar(16);not null;index"`
	CreatedAt time.Time        `json:"createdAt" gorm:"autoCreateTime"`
	UpdatedAt time.Time        `json:"updatedAt" gorm:"autoUpdateTime"`
}

type ReservationLine struct {
	ProductID uint64
	Quantity  int64
}

// Reservation groups the per-line reservations taken for one checkout.
type Reservation struct {
	OrderID uint64
	Lines   []StockReservation
}
