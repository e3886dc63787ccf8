package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	StatusPending    OrderStatus = "PENDING"
	StatusProcessing OrderStatus = "PROCESSING"
	StatusDelivered  OrderStatus = "DELIVERED"
	StatusCancelled  OrderStatus = "CANCELLED"
)

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "PENDING"
	PaymentCompleted PaymentStatus = "COMPLETED"
	PaymentFailed    PaymentStatus = "FAILED"
)

type PaymentMethod string

const (
	MethodCard  PaymentMethod = "CARD"
	MethodMpesa PaymentMethod = "MPESA"
)

func (m PaymentMethod) Valid() bool {
	return m == MethodCard || m == MethodMpesa
}

// Order is immutable once placed except for Status and PaymentStatus, which
// only move forward (see CanTransition).
type Order struct {
	ID              uint64          `json:"id" gorm:"primaryKey;autoIncrement"`
	UserID          uint64          `json:"userId" gorm:"not null;index:idx_orders_user_status"`
	Total           decimal.Decimal `json:"total" gorm:"type:decimal(12,2);not null"`
	Status          OrderStatus     `json:"status" gorm:"type:varchar(16);not null;default:'PENDING';index:idx_orders_user_status"`
	PaymentStatus   PaymentStatus   `json:"paymentStatus" gorm:"type:varchar(16);not null;default:'PENDING'"`
	PaymentMethod   PaymentMethod   `json:"paymentMethod" gorm:"type:varchar(16);not null"`
	ShippingAddress string          `json:"shippingAddress" gorm:"type:varchar(512);not null"`
	ContactEmail    string          `json:"contactEmail,omitempty" gorm:"type:varchar(255)"`
	Items           []OrderItem     `json:"items,omitempty" gorm:"foreignKey:OrderID"`
	CreatedAt       time.Time       `json:"createdAt" gorm:"autoCreateTime;index"`
	UpdatedAt       time.Time       `json:"updatedAt" gorm:"autoUpdateTime"`
}

// OrderItem snapshots the product at checkout time. ProductID is a plain
// column, not a foreign key, so orders outlive deleted products.
type OrderItem struct {
	ID          uint64          `json:"id" gorm:"primaryKey;autoIncrement"`
	OrderID     uint64          `json:"orderId" gorm:"not null;index"`
	ProductID   uint64          `json:"productId" gorm:"not null;index"`
	ProductName string          `json:"productName" gorm:"type:varchar(255);not null"`
	Quantity    int64           `json:"quantity" gorm:"not null"`
	UnitPrice   decimal.Decimal `json:"unitPrice" gorm:"type:decimal(12,2);not null"`
}

func (i OrderItem) Subtotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(i.Quantity))
}

// OrderTotal sums captured line subtotals.
func OrderTotal(items []OrderItem) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.Subtotal())
	}
	return total
}

// NewOrder builds a PENDING order whose total is fixed from the snapshot.
func NewOrder(userID uint64, items []OrderItem, shippingAddress string, method PaymentMethod) *Order {
	return &Order{
		UserID:          userID,
		Items:           items,
		Total:           OrderTotal(items),
		Status:          StatusPending,
		PaymentStatus:   PaymentPending,
		PaymentMethod:   method,
		ShippingAddress: shippingAddress,
	}
}

// AmountMinorUnits converts the total to cents for the payment gateway.
func (o *Order) AmountMinorUnits() int64 {
	return o.Total.Shift(2).Round(0).IntPart()
}

func (o *Order) ProductIDs() []uint64 {
	ids := make([]uint64, 0, len(o.Items))
	for _, it := range o.Items {
		ids = append(ids, it.ProductID)
	}
	return ids
}

var transitions = map[OrderStatus][]OrderStatus{
	StatusPending:    {StatusProcessing, StatusCancelled},
	StatusProcessing: {StatusDelivered, StatusCancelled},
}

// CanTransition reports whether an order may move from one status to another.
// DELIVERED and CANCELLED are terminal.
func CanTransition(from, to OrderStatus) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}
