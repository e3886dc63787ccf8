package services

import (
	"context"

	"storefront-service/internal/domain"
	"storefront-service/internal/repository"
)

const (
	defaultReviewLimit = 10
	maxReviewLimit     = 100
)

type ReviewService struct {
	reviews  repository.ReviewRepository
	orders   repository.OrderRepository
	products repository.ProductRepository
}

func NewReviewService(r repository.ReviewRepository, o repository.OrderRepository, p repository.ProductRepository) *ReviewService {
	return &ReviewService{reviews: r, orders: o, products: p}
}

func (s *ReviewService) List(ctx context.Context, productID uint64, page, limit int) (*domain.ReviewPage, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultReviewLimit
	}
	if limit > maxReviewLimit {
		limit = maxReviewLimit
	}
	reviews, total, err := s.reviews.ListByProduct(ctx, productID, (page-1)*limit, limit)
	if err != nil {
		return nil, err
	}
	if reviews == nil {
		reviews = []domain.Review{}
	}
	return &domain.ReviewPage{Reviews: reviews, Total: total, Page: page, Limit: limit}, nil
}

// Create records the user's review of a product they have received. A second
// review of the same product replaces the first.
func (s *ReviewService) Create(ctx context.Context, userID, productID uint64, rating int, comment string) (*domain.Review, error) {
	if err := validateRating(rating); err != nil {
		return nil, err
	}
	p, err := s.products.FindByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, domain.ErrProductNotFound
	}

	ok, err := s.orders.HasDeliveredItem(ctx, userID, productID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.ErrReviewNotAllowed
	}

	existing, err := s.reviews.FindByProductAndUser(ctx, productID, userID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		existing.Rating = rating
		existing.Comment = comment
		if err := s.reviews.Update(ctx, existing); err != nil {
			return nil, err
		}
		return existing, nil
	}

	r := &domain.Review{ProductID: productID, UserID: userID, Rating: rating, Comment: comment}
	if err := s.reviews.Create(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

// Update changes rating and comment; a nil field is left as is.
func (s *ReviewService) Update(ctx context.Context, userID, reviewID uint64, rating *int, comment *string) (*domain.Review, error) {
	r, err := s.ownReview(ctx, userID, reviewID)
	if err != nil {
		return nil, err
	}
	if rating != nil {
		if err := validateRating(*rating); err != nil {
			return nil, err
		}
		r.Rating = *rating
	}
	if comment != nil {
		r.Comment = *comment
	}
	if err := s.reviews.Update(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

func (s *ReviewService) Delete(ctx context.Context, userID, reviewID uint64) error {
	r, err := s.ownReview(ctx, userID, reviewID)
	if err != nil {
		return err
	}
	return s.reviews.Delete(ctx, r.ID)
}

// ownReview hides reviews written by someone else.
func (s *ReviewService) ownReview(ctx context.Context, userID, reviewID uint64) (*domain.Review, error) {
	r, err := s.reviews.FindByID(ctx, reviewID)
	if err != nil {
		return nil, err
	}
	if r == nil || r.UserID != userID {
		return nil, domain.ErrReviewNotFound
	}
	return r, nil
}

func validateRating(rating int) error {
	if rating < domain.MinRating || rating > domain.MaxRating {
		return domain.ValidationError("rating must be between %d and %d", domain.MinRating, domain.MaxRating)
	}
	return nil
}
