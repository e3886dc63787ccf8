package services

import (
	"context"
	"strings"

	"storefront-service/internal/domain"
	"storefront-service/internal/repository"

	"github.com/gosimple/slug"
)

type CategoryService struct {
	repo     repository.CategoryRepository
	notifier *Notifier
}

func NewCategoryService(r repository.CategoryRepository, n *Notifier) *CategoryService {
	return &CategoryService{repo: r, notifier: n}
}

func (s *CategoryService) List(ctx context.Context) ([]domain.Category, error) {
	return s.repo.List(ctx)
}

func (s *CategoryService) Create(ctx context.Context, name string) (*domain.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, domain.ValidationError("name is required")
	}
	c := &domain.Category{Name: name, Slug: slug.Make(name)}
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, err
	}
	s.notifier.Emit(domain.TopicCategoryCreated, c)
	return c, nil
}

func (s *CategoryService) Update(ctx context.Context, id uint64, name string) (*domain.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, domain.ValidationError("name is required")
	}
	c, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, domain.ErrCategoryNotFound
	}
	c.Name = name
	c.Slug = slug.Make(name)
	if err := s.repo.Update(ctx, c); err != nil {
		return nil, err
	}
	s.notifier.Emit(domain.TopicCategoryUpdated, c)
	return c, nil
}

func (s *CategoryService) Delete(ctx context.Context, id uint64) error {
	ok, err := s.repo.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrCategoryNotFound
	}
	s.notifier.Emit(domain.TopicCategoryDeleted, domain.DeletedEvent{ID: id})
	return nil
}
