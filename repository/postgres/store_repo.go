package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fastygo/orderdesk/domain"
	"github.com/fastygo/orderdesk/repository"
)

type storeRepository struct {
	pool *pgxpool.Pool
}

// NewStoreRepository returns a Postgres-backed StoreRepository.
func NewStoreRepository(pool *pgxpool.Pool) repository.StoreRepository {
	return &storeRepository{pool: pool}
}

const storeColumns = `id, name, region, manager_name, manager_phone, status, last_order_date`

func (r *storeRepository) GetStore(ctx context.Context, id string) (*domain.Store, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+storeColumns+` FROM stores WHERE id = $1`, id)
	return scanStore(row)
}

func (r *storeRepository) ListStores(ctx context.Context) ([]domain.Store, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+storeColumns+` FROM stores ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stores []domain.Store
	for rows.Next() {
		s, err := scanStore(rows)
		if err != nil {
			return nil, err
		}
		stores = append(stores, *s)
	}
	return stores, rows.Err()
}

func (r *storeRepository) TouchLastOrder(ctx context.Context, id string, businessDate string) error {
	const query = `
	UPDATE stores
	SET last_order_date = GREATEST(COALESCE(last_order_date, $2::date), $2::date)
	WHERE id = $1
	`
	tag, err := r.pool.Exec(ctx, query, id, businessDate)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrStoreNotFound
	}
	return nil
}

func scanStore(row scanner) (*domain.Store, error) {
	var (
		s         domain.Store
		lastOrder *time.Time
	)
	if err := row.Scan(&s.ID, &s.Name, &s.Region, &s.ManagerName, &s.ManagerPhone, &s.Status, &lastOrder); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrStoreNotFound
		}
		return nil, err
	}
	s.LastOrderDate = lastOrder
	return &s, nil
}
