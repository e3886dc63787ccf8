package services

import (
	"context"

	"storefront-service/internal/domain"
	"storefront-service/internal/repository"
)

type CartService struct {
	carts    repository.CartRepository
	products repository.ProductRepository
}

func NewCartService(c repository.CartRepository, p repository.ProductRepository) *CartService {
	return &CartService{carts: c, products: p}
}

func (s *CartService) GetCart(ctx context.Context, userID uint64) (*domain.Cart, error) {
	items, err := s.carts.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return domain.NewCart(items), nil
}

// AddItem merges qty into the user's line for the product. The stock check is
// advisory; stock is only reserved at checkout.
func (s *CartService) AddItem(ctx context.Context, userID, productID uint64, qty int64) (*domain.CartItem, error) {
	if qty < 1 {
		return nil, domain.ValidationError("quantity must be at least 1")
	}
	product, err := s.products.FindByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, domain.ErrProductNotFound
	}

	existing, err := s.carts.FindByProduct(ctx, userID, productID)
	if err != nil {
		return nil, err
	}
	want := qty
	if existing != nil {
		want += existing.Quantity
	}
	if want > product.Stock {
		return nil, &domain.OutOfStockError{ProductID: product.ID, Name: product.Name, Requested: want}
	}

	return s.carts.AddQuantity(ctx, userID, productID, qty)
}

// UpdateItem sets the line quantity; anything below 1 removes the line and
// returns a nil item.
func (s *CartService) UpdateItem(ctx context.Context, userID, itemID uint64, qty int64) (*domain.CartItem, error) {
	item, err := s.carts.FindByID(ctx, userID, itemID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, domain.ErrCartItemNotFound
	}
	if qty < 1 {
		return nil, s.carts.Delete(ctx, item.ID)
	}
	if err := s.carts.SetQuantity(ctx, item.ID, qty); err != nil {
		return nil, err
	}
	item.Quantity = qty
	return item, nil
}

func (s *CartService) RemoveItem(ctx context.Context, userID, itemID uint64) error {
	item, err := s.carts.FindByID(ctx, userID, itemID)
	if err != nil {
		return err
	}
	if item == nil {
		return domain.ErrCartItemNotFound
	}
	return s.carts.Delete(ctx, item.ID)
}

// Clear empties the cart; clearing an empty cart is a no-op.
func (s *CartService) Clear(ctx context.Context, userID uint64) error {
	_, err := s.carts.ClearByUser(ctx, userID)
	return err
}
