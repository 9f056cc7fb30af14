package repository

import (
	"context"

	"github.com/fastygo/orderdesk/domain"
)

// OrderFilter narrows order listings. Dates are inclusive business dates
// (yyyy-mm-dd); a zero Limit means no limit.
type OrderFilter struct {
	StoreID  string
	Statuses []domain.OrderStatus
	From     string
	To       string
	Limit    int
	Offset   int
}

type OrderRepository interface {
	Get(ctx context.Context, id string) (*domain.Order, error)
	// FindOpen returns the store's non-rejected order for the business date.
	FindOpen(ctx context.Context, storeID, businessDate string) (*domain.Order, error)
	List(ctx context.Context, filter OrderFilter) ([]domain.Order, error)
	// Create fails with domain.ErrDuplicateSubmission when the store already
	// has a non-rejected order for the same business date.
	Create(ctx context.Context, order *domain.Order) error
	// Update stores order only if the persisted version equals expectedVersion,
	// otherwise it fails with domain.ErrVersionConflict.
	Update(ctx context.Context, order *domain.Order, expectedVersion int) error
	NextSequence(ctx context.Context, businessDate string) (int, error)
}
