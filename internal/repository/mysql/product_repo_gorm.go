package mysql

import (
	"context"
	"errors"
	"fmt"

	"storefront-service/internal/domain"
	"storefront-service/internal/repository"

	"gorm.io/gorm"
)

type productRepo struct {
	db *gorm.DB
}

func NewProductRepository(db *gorm.DB) repository.ProductRepository {
	return &productRepo{db: db}
}

func (r *productRepo) Create(ctx context.Context, p *domain.Product) error {
	if err := conn(ctx, r.db).Create(p).Error; err != nil {
		return fmt.Errorf("create product: %w", err)
	}
	return nil
}

// Update writes the descriptive columns only. Stock belongs to the inventory
// ledger and changes through SetStock.
func (r *productRepo) Update(ctx context.Context, p *domain.Product) error {
	err := conn(ctx, r.db).Model(p).Select("Name", "Slug", "Description", "Price", "ImageURL", "CategoryID").Updates(p).Error
	if err != nil {
		return fmt.Errorf("update product %d: %w", p.ID, err)
	}
	return nil
}

func (r *productRepo) SetStock(ctx context.Context, id uint64, stock int64) error {
	err := conn(ctx, r.db).Model(&domain.Product{}).Where("id = ?", id).Update("stock", stock).Error
	if err != nil {
		return fmt.Errorf("set stock of product %d: %w", id, err)
	}
	return nil
}

func (r *productRepo) Delete(ctx context.Context, id uint64) (bool, error) {
	result := conn(ctx, r.db).Delete(&domain.Product{}, id)
	if result.Error != nil {
		return false, fmt.Errorf("delete product %d: %w", id, result.Error)
	}
	return result.RowsAffected > 0, nil
}

func (r *productRepo) FindByID(ctx context.Context, id uint64) (*domain.Product, error) {
	var p domain.Product
	if err := conn(ctx, r.db).Preload("Category").First(&p, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("find product %d: %w", id, err)
	}
	return &p, nil
}

func (r *productRepo) FindByIDs(ctx context.Context, ids []uint64) ([]domain.Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var out []domain.Product
	if err := conn(ctx, r.db).Where("id IN ?", ids).Order("id").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("find products: %w", err)
	}
	return out, nil
}

// List returns all products, newest first; a zero categoryID means no filter.
func (r *productRepo) List(ctx context.Context, categoryID uint64) ([]domain.Product, error) {
	q := conn(ctx, r.db).Preload("Category").Order("created_at DESC, id DESC")
	if categoryID != 0 {
		q = q.Where("category_id = ?", categoryID)
	}
	var out []domain.Product
	if err := q.Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return out, nil
}

type categoryRepo struct {
	db *gorm.DB
}

func NewCategoryRepository(db *gorm.DB) repository.CategoryRepository {
	return &categoryRepo{db: db}
}

func (r *categoryRepo) Create(ctx context.Context, c *domain.Category) error {
	if err := conn(ctx, r.db).Create(c).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return domain.ValidationError("category %q already exists", c.Name)
		}
		return fmt.Errorf("create category: %w", err)
	}
	return nil
}

func (r *categoryRepo) Update(ctx context.Context, c *domain.Category) error {
	if err := conn(ctx, r.db).Model(c).Select("Name", "Slug").Updates(c).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return domain.ValidationError("category %q already exists", c.Name)
		}
		return fmt.Errorf("update category %d: %w", c.ID, err)
	}
	return nil
}

func (r *categoryRepo) Delete(ctx context.Context, id uint64) (bool, error) {
	result := conn(ctx, r.db).Delete(&domain.Category{}, id)
	if result.Error != nil {
		return false, fmt.Errorf("delete category %d: %w", id, result.Error)
	}
	return result.RowsAffected > 0, nil
}

func (r *categoryRepo) FindByID(ctx context.Context, id uint64) (*domain.Category, error) {
	var c domain.Category
	if err := conn(ctx, r.db).First(&c, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("find category %d: %w", id, err)
	}
	return &c, nil
}

func (r *categoryRepo) List(ctx context.Context) ([]domain.Category, error) {
	var out []domain.Category
	if err := conn(ctx, r.db).Order("name").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return out, nil
}
