package repository

import (
	"context"

	"github.com/fastygo/orderdesk/domain"
)

type ProductFilter struct {
	Category   string
	ActiveOnly bool
}

type CatalogRepository interface {
	GetProduct(ctx context.Context, id string) (*domain.Product, error)
	ListProducts(ctx context.Context, filter ProductFilter) ([]domain.Product, error)
	// ListCategories returns the flat category list; callers build the tree.
	ListCategories(ctx context.Context) ([]domain.Category, error)
}

type StoreRepository interface {
	GetStore(ctx context.Context, id string) (*domain.Store, error)
	ListStores(ctx context.Context) ([]domain.Store, error)
	TouchLastOrder(ctx context.Context, id string, businessDate string) error
}
