package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fastygo/orderdesk/domain"
	"github.com/fastygo/orderdesk/repository"
)

type orderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns a Postgres-backed OrderRepository.
// Items and timeline are stored as JSONB on the order row so that every
// transition is a single-row compare-and-swap on version.
func NewOrderRepository(pool *pgxpool.Pool) repository.OrderRepository {
	return &orderRepository{pool: pool}
}

const orderColumns = `
	id, store_id, store_name, store_region, to_char(business_date, 'YYYY-MM-DD'), status,
	order_date, items, item_count, total_quantity, auditor_name, lock_expires_at,
	timeline, version, created_at, updated_at`

func (r *orderRepository) Get(ctx context.Context, id string) (*domain.Order, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
	return scanOrder(row)
}

func (r *orderRepository) FindOpen(ctx context.Context, storeID, businessDate string) (*domain.Order, error) {
	const query = `SELECT ` + orderColumns + `
	FROM orders
	WHERE store_id = $1 AND business_date = $2::date AND status <> 'Rejected'
	`
	row := r.pool.QueryRow(ctx, query, storeID, businessDate)
	return scanOrder(row)
}

func (r *orderRepository) List(ctx context.Context, filter repository.OrderFilter) ([]domain.Order, error) {
	const query = `SELECT ` + orderColumns + `
	FROM orders
	WHERE ($1 = '' OR store_id = $1)
	  AND ($2::text[] IS NULL OR status = ANY($2::text[]))
	  AND ($3::date IS NULL OR business_date >= $3::date)
	  AND ($4::date IS NULL OR business_date <= $4::date)
	ORDER BY business_date DESC, id DESC
	LIMIT $5 OFFSET $6
	`

	var statuses []string
	for _, s := range filter.Statuses {
		statuses = append(statuses, string(s))
	}
	var limit interface{}
	if filter.Limit > 0 {
		limit = filter.Limit
	}

	rows, err := r.pool.Query(ctx, query,
		filter.StoreID,
		statuses,
		nullString(filter.From),
		nullString(filter.To),
		limit,
		filter.Offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []domain.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, *o)
	}
	return orders, rows.Err()
}

func (r *orderRepository) Create(ctx context.Context, o *domain.Order) error {
	if o == nil || o.ID == "" {
		return domain.ErrInvalidPayload
	}
	items, timeline, err := marshalOrderBody(o)
	if err != nil {
		return err
	}

	const query = `
	INSERT INTO orders (id, store_id, store_name, store_region, business_date, status,
		order_date, items, item_count, total_quantity, auditor_name, lock_expires_at,
		timeline, version, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5::date, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $15)
	`
	_, err = r.pool.Exec(ctx, query,
		o.ID,
		o.StoreID,
		o.StoreName,
		o.StoreRegion,
		o.BusinessDate,
		string(o.Status),
		nullTime(o.OrderDate),
		items,
		o.ItemCount,
		o.TotalQuantity,
		o.AuditorName,
		nullTime(o.LockExpiresAt),
		timeline,
		o.Version,
		o.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicateSubmission
		}
		return fmt.Errorf("insert order %s: %w", o.ID, err)
	}
	return nil
}

func (r *orderRepository) Update(ctx context.Context, o *domain.Order, expectedVersion int) error {
	if o == nil {
		return domain.ErrInvalidPayload
	}
	items, timeline, err := marshalOrderBody(o)
	if err != nil {
		return err
	}

	const query = `
	UPDATE orders
	SET status = $3,
		order_date = $4,
		items = $5,
		item_count = $6,
		total_quantity = $7,
		auditor_name = $8,
		lock_expires_at = $9,
		timeline = $10,
		version = $11,
		updated_at = $12
	WHERE id = $1 AND version = $2
	`
	tag, err := r.pool.Exec(ctx, query,
		o.ID,
		expectedVersion,
		string(o.Status),
		nullTime(o.OrderDate),
		items,
		o.ItemCount,
		o.TotalQuantity,
		o.AuditorName,
		nullTime(o.LockExpiresAt),
		timeline,
		o.Version,
		o.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicateSubmission
		}
		return fmt.Errorf("update order %s: %w", o.ID, err)
	}
	if tag.RowsAffected() == 0 {
		if _, getErr := r.Get(ctx, o.ID); errors.Is(getErr, domain.ErrOrderNotFound) {
			return domain.ErrOrderNotFound
		}
		return domain.ErrVersionConflict
	}
	return nil
}

func (r *orderRepository) NextSequence(ctx context.Context, businessDate string) (int, error) {
	const query = `
	INSERT INTO order_sequences (business_date, last_value)
	VALUES ($1::date, 1)
	ON CONFLICT (business_date) DO UPDATE
	SET last_value = order_sequences.last_value + 1
	RETURNING last_value
	`
	var seq int
	if err := r.pool.QueryRow(ctx, query, businessDate).Scan(&seq); err != nil {
		return 0, err
	}
	return seq, nil
}

func marshalOrderBody(o *domain.Order) ([]byte, []byte, error) {
	items, err := json.Marshal(o.Items)
	if err != nil {
		return nil, nil, err
	}
	timeline, err := json.Marshal(o.Timeline)
	if err != nil {
		return nil, nil, err
	}
	return items, timeline, nil
}

func scanOrder(row scanner) (*domain.Order, error) {
	var (
		o         domain.Order
		status    string
		orderDate *time.Time
		lockUntil *time.Time
		items     []byte
		timeline  []byte
	)
	if err := row.Scan(
		&o.ID,
		&o.StoreID,
		&o.StoreName,
		&o.StoreRegion,
		&o.BusinessDate,
		&status,
		&orderDate,
		&items,
		&o.ItemCount,
		&o.TotalQuantity,
		&o.AuditorName,
		&lockUntil,
		&timeline,
		&o.Version,
		&o.CreatedAt,
		&o.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrOrderNotFound
		}
		return nil, err
	}

	o.Status = domain.OrderStatus(status)
	o.OrderDate = orderDate
	o.LockExpiresAt = lockUntil
	if err := json.Unmarshal(items, &o.Items); err != nil {
		return nil, fmt.Errorf("decode items of %s: %w", o.ID, err)
	}
	if err := json.Unmarshal(timeline, &o.Timeline); err != nil {
		return nil, fmt.Errorf("decode timeline of %s: %w", o.ID, err)
	}
	return &o, nil
}
