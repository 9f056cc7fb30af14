package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/fastygo/orderdesk/domain"
	"github.com/fastygo/orderdesk/repository"
)

type orderRepository struct {
	mu       sync.RWMutex
	orders   map[string]*domain.Order
	sequence map[string]int
}

// NewOrderRepository returns an OrderRepository held in process memory.
func NewOrderRepository() repository.OrderRepository {
	return &orderRepository{
		orders:   make(map[string]*domain.Order),
		sequence: make(map[string]int),
	}
}

func (r *orderRepository) Get(_ context.Context, id string) (*domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	o, ok := r.orders[id]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	return o.Clone(), nil
}

func (r *orderRepository) FindOpen(_ context.Context, storeID, businessDate string) (*domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if o := r.findOpenLocked(storeID, businessDate); o != nil {
		return o.Clone(), nil
	}
	return nil, domain.ErrOrderNotFound
}

func (r *orderRepository) List(_ context.Context, filter repository.OrderFilter) ([]domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []domain.Order
	for _, o := range r.orders {
		if !matches(o, filter) {
			continue
		}
		out = append(out, *o.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].BusinessDate != out[j].BusinessDate {
			return out[i].BusinessDate > out[j].BusinessDate
		}
		return out[i].ID > out[j].ID
	})

	if filter.Offset > 0 {
		if filter.Offset >= len(out) {
			return nil, nil
		}
		out = out[filter.Offset:]
	}
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (r *orderRepository) Create(_ context.Context, order *domain.Order) error {
	if order == nil || order.ID == "" {
		return domain.ErrInvalidPayload
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.orders[order.ID]; exists {
		return domain.ErrVersionConflict
	}
	if r.findOpenLocked(order.StoreID, order.BusinessDate) != nil {
		return domain.ErrDuplicateSubmission
	}
	r.orders[order.ID] = order.Clone()
	return nil
}

func (r *orderRepository) Update(_ context.Context, order *domain.Order, expectedVersion int) error {
	if order == nil {
		return domain.ErrInvalidPayload
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.orders[order.ID]
	if !ok {
		return domain.ErrOrderNotFound
	}
	if current.Version != expectedVersion {
		return domain.ErrVersionConflict
	}
	r.orders[order.ID] = order.Clone()
	return nil
}

func (r *orderRepository) NextSequence(_ context.Context, businessDate string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sequence[businessDate]++
	return r.sequence[businessDate], nil
}

func (r *orderRepository) findOpenLocked(storeID, businessDate string) *domain.Order {
	for _, o := range r.orders {
		if o.StoreID == storeID && o.BusinessDate == businessDate && o.Status != domain.StatusRejected {
			return o
		}
	}
	return nil
}

func matches(o *domain.Order, filter repository.OrderFilter) bool {
	if filter.StoreID != "" && o.StoreID != filter.StoreID {
		return false
	}
	if filter.From != "" && o.BusinessDate < filter.From {
		return false
	}
	if filter.To != "" && o.BusinessDate > filter.To {
		return false
	}
	if len(filter.Statuses) == 0 {
		return true
	}
	for _, s := range filter.Statuses {
		if o.Status == s {
			return true
		}
	}
	return false
}
