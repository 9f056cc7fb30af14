package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// OrderEvent is the journal form of a timeline entry, published once per transition.
type OrderEvent struct {
	ID        string            `json:"id"`
	OrderID   string            `json:"order_id"`
	Name      string            `json:"name"`
	Version   int               `json:"version"`
	Payload   json.RawMessage   `json:"payload"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

// NewOrderEvent captures the latest timeline entry of o.
func NewOrderEvent(o *Order) (OrderEvent, error) {
	last, ok := o.LastEvent()
	if !ok {
		return OrderEvent{}, ErrInvalidPayload
	}
	payload, err := json.Marshal(last)
	if err != nil {
		return OrderEvent{}, err
	}
	return OrderEvent{
		ID:      uuid.NewString(),
		OrderID: o.ID,
		Name:    last.Title,
		Version: o.Version,
		Payload: payload,
		Metadata: map[string]string{
			"status":   string(o.Status),
			"store_id": o.StoreID,
		},
		CreatedAt: last.Time,
	}, nil
}
