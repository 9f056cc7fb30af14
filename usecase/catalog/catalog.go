package catalog

import (
	"context"

	"go.uber.org/zap"

	"github.com/fastygo/orderdesk/domain"
	"github.com/fastygo/orderdesk/repository"
)

type UseCase struct {
	products repository.CatalogRepository
	stores   repository.StoreRepository
	logger   *zap.Logger
}

func New(products repository.CatalogRepository, stores repository.StoreRepository, logger *zap.Logger) *UseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UseCase{
		products: products,
		stores:   stores,
		logger:   logger,
	}
}

func (uc *UseCase) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	return uc.products.GetProduct(ctx, id)
}

func (uc *UseCase) ListProducts(ctx context.Context, filter repository.ProductFilter) ([]domain.Product, error) {
	return uc.products.ListProducts(ctx, filter)
}

// ListCategories returns the category tree with product counts derived from the catalog.
func (uc *UseCase) ListCategories(ctx context.Context) ([]domain.Category, error) {
	flat, err := uc.products.ListCategories(ctx)
	if err != nil {
		return nil, err
	}
	products, err := uc.products.ListProducts(ctx, repository.ProductFilter{})
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int, len(flat))
	for _, p := range products {
		counts[p.Category]++
	}
	tree, err := domain.BuildCategoryTree(flat, counts)
	if err != nil {
		uc.logger.Error("category tree is inconsistent", zap.Error(err))
		return nil, err
	}
	return tree, nil
}

func (uc *UseCase) GetStore(ctx context.Context, id string) (*domain.Store, error) {
	return uc.stores.GetStore(ctx, id)
}

func (uc *UseCase) ListStores(ctx context.Context) ([]domain.Store, error) {
	return uc.stores.ListStores(ctx)
}
