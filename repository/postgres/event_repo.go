package postgres

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fastygo/orderdesk/domain"
	"github.com/fastygo/orderdesk/repository"
)

type eventRepository struct {
	pool *pgxpool.Pool
}

// NewEventRepository creates a Postgres-backed order event log.
func NewEventRepository(pool *pgxpool.Pool) repository.EventRepository {
	return &eventRepository{pool: pool}
}

// Append is idempotent on event id so journal replays are harmless.
func (r *eventRepository) Append(ctx context.Context, event domain.OrderEvent) error {
	if event.ID == "" || event.OrderID == "" {
		return domain.ErrInvalidPayload
	}

	const query = `
	INSERT INTO order_events (id, order_id, name, version, payload, metadata, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, COALESCE($7, NOW()))
	ON CONFLICT (id) DO NOTHING
	`
	_, err := r.pool.Exec(ctx, query,
		event.ID,
		event.OrderID,
		event.Name,
		event.Version,
		[]byte(event.Payload),
		marshalMap(event.Metadata),
		nullTime(&event.CreatedAt),
	)
	return err
}

func (r *eventRepository) ListByOrder(ctx context.Context, orderID string) ([]domain.OrderEvent, error) {
	const query = `
	SELECT id::text, order_id, name, version, payload, metadata, created_at
	FROM order_events
	WHERE order_id = $1
	ORDER BY created_at, version
	`
	rows, err := r.pool.Query(ctx, query, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []domain.OrderEvent
	for rows.Next() {
		var (
			e        domain.OrderEvent
			payload  []byte
			metadata []byte
		)
		if err := rows.Scan(&e.ID, &e.OrderID, &e.Name, &e.Version, &payload, &metadata, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.Payload = append(json.RawMessage(nil), payload...)
		if len(metadata) > 0 {
			_ = json.Unmarshal(metadata, &e.Metadata)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}
