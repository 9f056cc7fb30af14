package usecase

import (
	"context"
	"time"

	"github.com/fastygo/orderdesk/domain"
)

// EventRecorder publishes the latest timeline entry of an order to the
// event journal so use cases stay storage-agnostic.
type EventRecorder interface {
	RecordOrderEvent(ctx context.Context, order *domain.Order) error
}

// Clock returns the current time; tests substitute a fixed clock.
type Clock func() time.Time

// BusinessDate formats t as a business date in loc.
func BusinessDate(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	return t.In(loc).Format(domain.DateLayout)
}
