package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/fastygo/orderdesk/domain"
	"github.com/fastygo/orderdesk/repository"
)

// Catalog is an in-memory CatalogRepository and StoreRepository.
type Catalog struct {
	mu         sync.RWMutex
	products   map[string]domain.Product
	categories []domain.Category
	stores     map[string]domain.Store
}

var (
	_ repository.CatalogRepository = (*Catalog)(nil)
	_ repository.StoreRepository   = (*Catalog)(nil)
)

func NewCatalog() *Catalog {
	return &Catalog{
		products: make(map[string]domain.Product),
		stores:   make(map[string]domain.Store),
	}
}

// PutProduct inserts or replaces a product.
func (c *Catalog) PutProduct(p domain.Product) error {
	if err := p.Validate(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.products[p.ID] = p
	return nil
}

// PutCategory appends or replaces a category.
func (c *Catalog) PutCategory(cat domain.Category) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.categories {
		if c.categories[i].ID == cat.ID {
			c.categories[i] = cat
			return
		}
	}
	c.categories = append(c.categories, cat)
}

// PutStore inserts or replaces a store.
func (c *Catalog) PutStore(s domain.Store) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stores[s.ID] = s
}

func (c *Catalog) GetProduct(_ context.Context, id string) (*domain.Product, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.products[id]
	if !ok {
		return nil, domain.ErrProductNotFound
	}
	return &p, nil
}

func (c *Catalog) ListProducts(_ context.Context, filter repository.ProductFilter) ([]domain.Product, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []domain.Product
	for _, p := range c.products {
		if filter.Category != "" && p.Category != filter.Category {
			continue
		}
		if filter.ActiveOnly && !p.IsActive {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (c *Catalog) ListCategories(_ context.Context) ([]domain.Category, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]domain.Category(nil), c.categories...), nil
}

func (c *Catalog) GetStore(_ context.Context, id string) (*domain.Store, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.stores[id]
	if !ok {
		return nil, domain.ErrStoreNotFound
	}
	return &s, nil
}

func (c *Catalog) ListStores(_ context.Context) ([]domain.Store, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]domain.Store, 0, len(c.stores))
	for _, s := range c.stores {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (c *Catalog) TouchLastOrder(_ context.Context, id string, businessDate string) error {
	day, err := timeFromDate(businessDate)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.stores[id]
	if !ok {
		return domain.ErrStoreNotFound
	}
	if s.LastOrderDate == nil || day.After(*s.LastOrderDate) {
		s.LastOrderDate = &day
		c.stores[id] = s
	}
	return nil
}
