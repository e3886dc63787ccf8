package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	TopicOrderConfirmed  = "order.confirmed"
	TopicProductCreated  = "product.created"
	TopicProductUpdated  = "product.updated"
	TopicProductDeleted  = "product.deleted"
	TopicCategoryCreated = "category.created"
	TopicCategoryUpdated = "category.updated"
	TopicCategoryDeleted = "category.deleted"
)

type OrderConfirmedEvent struct {
	OrderID        uint64          `json:"orderId"`
	UserID         uint64          `json:"userId"`
	RecipientEmail string          `json:"recipientEmail"`
	Total          decimal.Decimal `json:"total"`
	Items          []OrderItem     `json:"items"`
	CreatedAt      time.Time       `json:"createdAt"`
}

type DeletedEvent struct {
	ID uint64 `json:"id"`
}
