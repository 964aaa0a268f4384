package repository

import (
	"context"

	"github.com/fastygo/catalog/domain"
)

type ProductFilter struct {
	SortBy     domain.ProductSort
	Descending bool
	Limit      int
	Offset     int
}

type ProductRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Product, error)
	List(ctx context.Context, filter ProductFilter) ([]domain.Product, error)
	Count(ctx context.Context) (int64, error)
	Create(ctx context.Context, product *domain.Product) (*domain.Product, error)
	Update(ctx context.Context, product *domain.Product) error
	Delete(ctx context.Context, id string) error
}
