package buffer

import (
	"time"

	"github.com/fastygo/orderdesk/domain"
)

// Priorities order the drain; lower drains first.
const (
	PriorityTerminal = 1
	PriorityDefault  = 3
)

// Entry is an order event waiting to be written to the primary event store.
type Entry struct {
	Event    domain.OrderEvent `json:"event"`
	Priority int               `json:"priority"`
	Attempts int               `json:"attempts"`
	QueuedAt time.Time         `json:"queued_at"`

	key []byte
}

// NewEntry wraps an event, draining terminal transitions first.
func NewEntry(event domain.OrderEvent) Entry {
	priority := PriorityDefault
	if status := domain.OrderStatus(event.Metadata["status"]); status.IsTerminal() {
		priority = PriorityTerminal
	}
	return Entry{Event: event, Priority: priority}
}

func (e *Entry) normalize(now time.Time) {
	if e.Priority <= 0 || e.Priority > 5 {
		e.Priority = PriorityDefault
	}
	if e.QueuedAt.IsZero() {
		e.QueuedAt = now
	}
}
