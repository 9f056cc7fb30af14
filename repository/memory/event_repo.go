package memory

import (
	"context"
	"sync"

	"github.com/fastygo/orderdesk/domain"
	"github.com/fastygo/orderdesk/repository"
)

type eventRepository struct {
	mu     sync.RWMutex
	events map[string][]domain.OrderEvent
}

// NewEventRepository returns an in-memory EventRepository.
func NewEventRepository() repository.EventRepository {
	return &eventRepository{events: make(map[string][]domain.OrderEvent)}
}

func (r *eventRepository) Append(_ context.Context, event domain.OrderEvent) error {
	if event.ID == "" || event.OrderID == "" {
		return domain.ErrInvalidPayload
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.events[event.OrderID] {
		if existing.ID == event.ID {
			return nil
		}
	}
	r.events[event.OrderID] = append(r.events[event.OrderID], event)
	return nil
}

func (r *eventRepository) ListByOrder(_ context.Context, orderID string) ([]domain.OrderEvent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]domain.OrderEvent(nil), r.events[orderID]...), nil
}
