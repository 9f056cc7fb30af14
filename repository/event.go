package repository

import (
	"context"

	"github.com/fastygo/orderdesk/domain"
)

type EventRepository interface {
	Append(ctx context.Context, event domain.OrderEvent) error
	ListByOrder(ctx context.Context, orderID string) ([]domain.OrderEvent, error)
}
