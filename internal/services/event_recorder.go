package services

import (
	"context"

	"github.com/fastygo/orderdesk/domain"
	"github.com/fastygo/orderdesk/usecase"
)

// EventRecorder turns order transitions into journal events.
type EventRecorder struct {
	processor *JournalProcessor
}

func NewEventRecorder(processor *JournalProcessor) *EventRecorder {
	return &EventRecorder{processor: processor}
}

func (r *EventRecorder) RecordOrderEvent(ctx context.Context, order *domain.Order) error {
	if r.processor == nil || order == nil {
		return domain.ErrInvalidPayload
	}
	event, err := domain.NewOrderEvent(order)
	if err != nil {
		return err
	}
	return r.processor.Publish(ctx, event)
}

var _ usecase.EventRecorder = (*EventRecorder)(nil)
