package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fastygo/orderdesk/repository"
)

// ApplySeed upserts the seed catalog in one transaction. Store activity
// (last_order_date) is left untouched.
func ApplySeed(ctx context.Context, pool *pgxpool.Pool, seed *repository.Seed) error {
	if seed == nil {
		return nil
	}
	return pgx.BeginFunc(ctx, pool, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for _, c := range seed.FlatCategories() {
			batch.Queue(`
			INSERT INTO categories (id, name, code, level, parent_id, status, sort)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (id) DO UPDATE
			SET name = EXCLUDED.name, code = EXCLUDED.code, level = EXCLUDED.level,
			    parent_id = EXCLUDED.parent_id, status = EXCLUDED.status, sort = EXCLUDED.sort
			`, c.ID, c.Name, c.Code, c.Level, nullString(c.ParentID), statusOrActive(c.Status), c.Sort)
		}
		for _, p := range seed.Products {
			batch.Queue(`
			INSERT INTO products (id, name, category, spec, unit, price, image_url, is_active, min_order, max_order, stock)
			VALUES ($1, $2, $3, $4, $5, $6::numeric, $7, $8, $9, $10, $11)
			ON CONFLICT (id) DO UPDATE
			SET name = EXCLUDED.name, category = EXCLUDED.category, spec = EXCLUDED.spec,
			    unit = EXCLUDED.unit, price = EXCLUDED.price, image_url = EXCLUDED.image_url,
			    is_active = EXCLUDED.is_active, min_order = EXCLUDED.min_order,
			    max_order = EXCLUDED.max_order, stock = EXCLUDED.stock
			`, p.ID, p.Name, p.Category, p.Spec, p.Unit, p.Price.String(), p.ImageURL,
				p.IsActive, p.MinOrder, p.MaxOrder, p.Stock)
		}
		for _, s := range seed.Stores {
			batch.Queue(`
			INSERT INTO stores (id, name, region, manager_name, manager_phone, status)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (id) DO UPDATE
			SET name = EXCLUDED.name, region = EXCLUDED.region, manager_name = EXCLUDED.manager_name,
			    manager_phone = EXCLUDED.manager_phone, status = EXCLUDED.status
			`, s.ID, s.Name, s.Region, s.ManagerName, s.ManagerPhone, statusOrActive(s.Status))
		}
		return tx.SendBatch(ctx, batch).Close()
	})
}

func statusOrActive(status string) string {
	if status == "" {
		return "active"
	}
	return status
}
