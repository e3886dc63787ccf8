package http

import (
	"storefront-service/internal/domain"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

type RegisterRequest struct {
	Username string      `json:"username" binding:"required,min=3,max=64"`
	Password string      `json:"password" binding:"required,min=6"`
	Email    string      `json:"email" binding:"omitempty,email"`
	Role     domain.Role `json:"role" binding:"omitempty,oneof=user admin"`
}

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type LoginResponse struct {
	Token string       `json:"token"`
	User  *domain.User `json:"user"`
}

type ProductRequest struct {
	Name        string          `json:"name" binding:"required,max=255"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Stock       int64           `json:"stock" binding:"min=0"`
	CategoryID  uint64          `json:"categoryId" binding:"required"`
	Image       string          `json:"image"`
}

type ProductPatchRequest struct {
	Name        *string          `json:"name" binding:"omitempty,min=1,max=255"`
	Description *string          `json:"description"`
	Price       *decimal.Decimal `json:"price"`
	Stock       *int64           `json:"stock" binding:"omitempty,min=0"`
	CategoryID  *uint64          `json:"categoryId"`
	Image       *string          `json:"image"`
}

type CategoryRequest struct {
	Name string `json:"name" binding:"required,max=128"`
}

type AddCartItemRequest struct {
	ProductID uint64 `json:"productId" binding:"required"`
	Quantity  int64  `json:"quantity" binding:"required,min=1"`
}

type UpdateCartItemRequest struct {
	Quantity *int64 `json:"quantity" binding:"required"`
}

type CheckoutRequest struct {
	ShippingAddress string               `json:"shippingAddress" binding:"required,max=512"`
	PaymentMethod   domain.PaymentMethod `json:"paymentMethod" binding:"required,paymentmethod"`
}

type CheckoutResponse struct {
	Order         *domain.Order        `json:"order"`
	OrderItems    []domain.OrderItem   `json:"orderItems"`
	PaymentStatus domain.PaymentStatus `json:"paymentStatus"`
	Message       string               `json:"message,omitempty"`
}

type UpdateOrderStatusRequest struct {
	Status domain.OrderStatus `json:"status" binding:"required,oneof=PROCESSING DELIVERED CANCELLED"`
}

type ReviewRequest struct {
	Rating  int    `json:"rating" binding:"required,min=1,max=5"`
	Comment string `json:"comment" binding:"max=2000"`
}

type ReviewPatchRequest struct {
	Rating  *int    `json:"rating" binding:"omitempty,min=1,max=5"`
	Comment *string `json:"comment" binding:"omitempty,max=2000"`
}

type PaymentCallbackRequest struct {
	OrderID   uint64               `json:"orderId" binding:"required"`
	Status    domain.PaymentStatus `json:"status" binding:"required,oneof=COMPLETED FAILED"`
	Reference string               `json:"reference"`
}

type ReviewListQuery struct {
	Page  int `form:"page" binding:"omitempty,min=1"`
	Limit int `form:"limit" binding:"omitempty,min=1"`
}

type ProductListQuery struct {
	CategoryID uint64 `form:"categoryId"`
}

// RegisterValidators adds the custom binding rules used by the request types.
func RegisterValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return nil
	}
	return v.RegisterValidation("paymentmethod", func(fl validator.FieldLevel) bool {
		return domain.PaymentMethod(fl.Field().String()).Valid()
	})
}
