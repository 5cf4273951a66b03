package service

import (
	"context"
	"strings"

	"storefront/model"
)

type CategoryInput struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type ProductInput struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Price       int64  `json:"price"`
	Stock       int    `json:"stock"`
	ImagePath   string `json:"image"`
	CategoryID  *int64 `json:"category_id"`
}

func (in ProductInput) validate() error {
	if err := validateName(in.Name); err != nil {
		return err
	}
	if in.Price < 1 {
		return model.Invalid("price", "price must be at least 1")
	}
	if in.Stock < 0 {
		return model.Invalid("stock", "stock cannot be negative")
	}
	return nil
}

func (in ProductInput) product(id int64) *model.Product {
	return &model.Product{
		ID:          id,
		Name:        strings.TrimSpace(in.Name),
		Description: in.Description,
		Price:       in.Price,
		Stock:       in.Stock,
		ImagePath:   in.ImagePath,
		CategoryID:  in.CategoryID,
	}
}

func (s *Service) ListCategories(ctx context.Context) ([]model.Category, error) {
	return s.store.ListCategories(ctx)
}

func (s *Service) GetCategory(ctx context.Context, id int64) (model.Category, error) {
	return s.store.GetCategory(ctx, id)
}

func (s *Service) CreateCategory(ctx context.Context, in CategoryInput) (model.Category, error) {
	if err := validateName(in.Name); err != nil {
		return model.Category{}, err
	}
	c := model.Category{Name: strings.TrimSpace(in.Name), Description: in.Description}
	if err := s.store.CreateCategory(ctx, &c); err != nil {
		return model.Category{}, err
	}
	return c, nil
}

func (s *Service) UpdateCategory(ctx context.Context, id int64, in CategoryInput) (model.Category, error) {
	if err := validateName(in.Name); err != nil {
		return model.Category{}, err
	}
	c := model.Category{ID: id, Name: strings.TrimSpace(in.Name), Description: in.Description}
	if err := s.store.UpdateCategory(ctx, &c); err != nil {
		return model.Category{}, err
	}
	return c, nil
}

func (s *Service) DeleteCategory(ctx context.Context, id int64) error {
	return s.store.DeleteCategory(ctx, id)
}

// ListCategoryProducts returns not-found for an unknown category rather than an empty list.
func (s *Service) ListCategoryProducts(ctx context.Context, id int64) ([]model.Product, error) {
	if _, err := s.store.GetCategory(ctx, id); err != nil {
		return nil, err
	}
	return s.store.ListProducts(ctx, model.ProductFilter{CategoryID: &id})
}

func (s *Service) ListProducts(ctx context.Context, f model.ProductFilter) ([]model.Product, error) {
	if f.MinPrice != nil && f.MaxPrice != nil && *f.MinPrice > *f.MaxPrice {
		return nil, model.Invalid("min_price", "min_price cannot exceed max_price")
	}
	return s.store.ListProducts(ctx, f)
}

func (s *Service) GetProduct(ctx context.Context, id int64) (model.Product, error) {
	return s.store.GetProduct(ctx, id)
}

func (s *Service) CreateProduct(ctx context.Context, in ProductInput) (model.Product, error) {
	if err := in.validate(); err != nil {
		return model.Product{}, err
	}
	p := in.product(0)
	if err := s.store.CreateProduct(ctx, p); err != nil {
		return model.Product{}, err
	}
	s.log.InfoContext(ctx, "product created", "product_id", p.ID, "name", p.Name)
	return *p, nil
}

func (s *Service) UpdateProduct(ctx context.Context, id int64, in ProductInput) (model.Product, error) {
	if err := in.validate(); err != nil {
		return model.Product{}, err
	}
	p := in.product(id)
	if err := s.store.UpdateProduct(ctx, p); err != nil {
		return model.Product{}, err
	}
	return *p, nil
}

func (s *Service) DeleteProduct(ctx context.Context, id int64) error {
	return s.store.DeleteProduct(ctx, id)
}

func (s *Service) UpdateStock(ctx context.Context, productID int64, stock int) (model.Product, error) {
	if stock < 0 {
		return model.Product{}, model.Invalid("stock", "stock cannot be negative")
	}
	if err := s.store.UpdateStock(ctx, productID, stock); err != nil {
		return model.Product{}, err
	}
	return s.store.GetProduct(ctx, productID)
}
