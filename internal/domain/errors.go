package domain

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyCart          = errors.New("cart is empty")
	ErrCheckoutInProgress = errors.New("checkout already in progress")
	ErrOutOfStock         = errors.New("out of stock")
	ErrInvalidTransition  = errors.New("invalid order status transition")

	ErrProductNotFound  = errors.New("product not found")
	ErrCategoryNotFound = errors.New("category not found")
	ErrOrderNotFound    = errors.New("order not found")
	ErrCartItemNotFound = errors.New("cart item not found")
	ErrReviewNotFound   = errors.New("review not found")

	ErrReviewNotAllowed = errors.New("you can only review products you have received")

	ErrUnauthorized       = errors.New("unauthorized")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserExists         = errors.New("username already exists")
	ErrAdminLimit         = errors.New("maximum number of admins reached")

	ErrValidation = errors.New("validation failed")
)

// OutOfStockError names the product that could not be reserved.
type OutOfStockError struct {
	ProductID uint64
	Name      string
	Requested int64
}

func (e *OutOfStockError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("out of stock: %s (product %d)", e.Name, e.ProductID)
	}
	return fmt.Sprintf("out of stock: product %d", e.ProductID)
}

func (e *OutOfStockError) Is(target error) bool { return target == ErrOutOfStock }

// ValidationError wraps ErrValidation with a field-level message.
func ValidationError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
