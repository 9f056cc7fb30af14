package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fastygo/orderdesk/domain"
	"github.com/fastygo/orderdesk/repository"
)

type catalogRepository struct {
	pool *pgxpool.Pool
}

// NewCatalogRepository returns a Postgres-backed CatalogRepository.
func NewCatalogRepository(pool *pgxpool.Pool) repository.CatalogRepository {
	return &catalogRepository{pool: pool}
}

const productColumns = `id, name, category, spec, unit, price::text, image_url, is_active, min_order, max_order, stock`

func (r *catalogRepository) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id)
	return scanProduct(row)
}

func (r *catalogRepository) ListProducts(ctx context.Context, filter repository.ProductFilter) ([]domain.Product, error) {
	const query = `
	SELECT ` + productColumns + `
	FROM products
	WHERE ($1 = '' OR category = $1)
	  AND (NOT $2 OR is_active)
	ORDER BY id
	`
	rows, err := r.pool.Query(ctx, query, filter.Category, filter.ActiveOnly)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var products []domain.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, *p)
	}
	return products, rows.Err()
}

func (r *catalogRepository) ListCategories(ctx context.Context) ([]domain.Category, error) {
	const query = `
	SELECT id, name, code, level, COALESCE(parent_id, ''), status, sort
	FROM categories
	ORDER BY level, sort, id
	`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var categories []domain.Category
	for rows.Next() {
		var c domain.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Code, &c.Level, &c.ParentID, &c.Status, &c.Sort); err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

func scanProduct(row scanner) (*domain.Product, error) {
	var (
		p     domain.Product
		price string
	)
	if err := row.Scan(
		&p.ID,
		&p.Name,
		&p.Category,
		&p.Spec,
		&p.Unit,
		&price,
		&p.ImageURL,
		&p.IsActive,
		&p.MinOrder,
		&p.MaxOrder,
		&p.Stock,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrProductNotFound
		}
		return nil, err
	}
	p.Price = parseDecimal(price)
	return &p, nil
}
