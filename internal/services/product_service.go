package services

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"storefront-service/internal/domain"
	"storefront-service/internal/infra"
	"storefront-service/internal/infra/cache"
	"storefront-service/internal/repository"

	"github.com/gosimple/slug"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

type ProductService struct {
	products   repository.ProductRepository
	categories repository.CategoryRepository
	cache      cache.ProductCache
	images     infra.ImageUploader
	notifier   *Notifier
	log        *zap.Logger
	group      singleflight.Group
}

func NewProductService(p repository.ProductRepository, c repository.CategoryRepository, pc cache.ProductCache, img infra.ImageUploader, n *Notifier, log *zap.Logger) *ProductService {
	if pc == nil {
		pc = cache.NopProductCache{}
	}
	return &ProductService{
		products:   p,
		categories: c,
		cache:      pc,
		images:     img,
		notifier:   n,
		log:        log,
	}
}

type ProductInput struct {
	Name        string
	Description string
	Price       decimal.Decimal
	Stock       int64
	CategoryID  uint64
	Image       string
}

// ProductPatch updates only the non-nil fields.
type ProductPatch struct {
	Name        *string
	Description *string
	Price       *decimal.Decimal
	Stock       *int64
	CategoryID  *uint64
	Image       *string
}

func (s *ProductService) List(ctx context.Context, categoryID uint64) ([]domain.Product, error) {
	return s.products.List(ctx, categoryID)
}

// Get reads through the cache; concurrent misses for the same id share one
// database lookup.
func (s *ProductService) Get(ctx context.Context, id uint64) (*domain.Product, error) {
	if p, ok := s.cache.Get(ctx, id); ok {
		return p, nil
	}

	v, err, _ := s.group.Do(strconv.FormatUint(id, 10), func() (any, error) {
		p, err := s.products.FindByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if p == nil {
			return nil, domain.ErrProductNotFound
		}
		s.cache.Set(ctx, p)
		return p, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*domain.Product), nil
}

func (s *ProductService) Create(ctx context.Context, in ProductInput) (*domain.Product, error) {
	if err := validateProduct(in.Name, in.Price, in.Stock); err != nil {
		return nil, err
	}
	if err := s.ensureCategory(ctx, in.CategoryID); err != nil {
		return nil, err
	}
	imageURL, err := s.uploadImage(ctx, in.Image)
	if err != nil {
		return nil, err
	}

	p := &domain.Product{
		Name:        strings.TrimSpace(in.Name),
		Slug:        slug.Make(in.Name),
		Description: in.Description,
		Price:       in.Price,
		Stock:       in.Stock,
		ImageURL:    imageURL,
		CategoryID:  in.CategoryID,
	}
	if err := s.products.Create(ctx, p); err != nil {
		return nil, err
	}

	s.log.Info("product created", zap.Uint64("product_id", p.ID), zap.String("slug", p.Slug))
	s.notifier.Emit(domain.TopicProductCreated, p)
	return p, nil
}

func (s *ProductService) Update(ctx context.Context, id uint64, patch ProductPatch) (*domain.Product, error) {
	p, err := s.products.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, domain.ErrProductNotFound
	}

	if patch.Name != nil {
		p.Name = strings.TrimSpace(*patch.Name)
		p.Slug = slug.Make(p.Name)
	}
	if patch.Description != nil {
		p.Description = *patch.Description
	}
	if patch.Price != nil {
		p.Price = *patch.Price
	}
	if patch.Stock != nil {
		p.Stock = *patch.Stock
	}
	if patch.CategoryID != nil && *patch.CategoryID != p.CategoryID {
		if err := s.ensureCategory(ctx, *patch.CategoryID); err != nil {
			return nil, err
		}
		p.CategoryID = *patch.CategoryID
		p.Category = nil
	}
	if patch.Image != nil {
		url, err := s.uploadImage(ctx, *patch.Image)
		if err != nil {
			return nil, err
		}
		p.ImageURL = url
	}
	if err := validateProduct(p.Name, p.Price, p.Stock); err != nil {
		return nil, err
	}

	if err := s.products.Update(ctx, p); err != nil {
		return nil, err
	}
	if patch.Stock != nil {
		if err := s.products.SetStock(ctx, id, *patch.Stock); err != nil {
			return nil, err
		}
	}
	// reservations may have moved stock since the first read
	fresh, err := s.products.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if fresh != nil {
		p = fresh
	}
	s.cache.Invalidate(ctx, p.ID)
	s.notifier.Emit(domain.TopicProductUpdated, p)
	return p, nil
}

// Delete soft-deletes the product. Order history keeps its snapshots.
func (s *ProductService) Delete(ctx context.Context, id uint64) error {
	ok, err := s.products.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrProductNotFound
	}
	s.cache.Invalidate(ctx, id)
	s.notifier.Emit(domain.TopicProductDeleted, domain.DeletedEvent{ID: id})
	return nil
}

// WarmupCache loads the given products into the cache, skipping failures.
func (s *ProductService) WarmupCache(ctx context.Context, ids []uint64) error {
	products, err := s.products.FindByIDs(ctx, ids)
	if err != nil {
		return err
	}
	for i := range products {
		s.cache.Set(ctx, &products[i])
	}
	s.log.Info("product cache warmed up", zap.Int("count", len(products)))
	return nil
}

func (s *ProductService) ensureCategory(ctx context.Context, id uint64) error {
	c, err := s.categories.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if c == nil {
		return domain.ErrCategoryNotFound
	}
	return nil
}

func (s *ProductService) uploadImage(ctx context.Context, image string) (string, error) {
	if image == "" {
		return "", nil
	}
	if s.images == nil {
		return "", errors.New("image upload is not configured")
	}
	return s.images.Upload(ctx, image)
}

func validateProduct(name string, price decimal.Decimal, stock int64) error {
	switch {
	case strings.TrimSpace(name) == "":
		return domain.ValidationError("name is required")
	case price.IsNegative():
		return domain.ValidationError("price must not be negative")
	case stock < 0:
		return domain.ValidationError("stock must not be negative")
	}
	return nil
}
