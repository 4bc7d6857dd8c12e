package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/submonth/storefront/internal/domain/catalog"
)

const (
	listProductsSQL = `SELECT id, name, category, pricing, stock_out
		FROM products ORDER BY id`

	getProductsByIDsSQL = `SELECT id, name, category, pricing, stock_out
		FROM products WHERE id = ANY($1)`

	upsertProductSQL = `INSERT INTO products (id, name, category, pricing, stock_out)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, category = EXCLUDED.category,
			pricing = EXCLUDED.pricing, stock_out = EXCLUDED.stock_out`
)

var _ catalog.Repository = (*ProductRepository)(nil)

// ProductRepository implements catalog.Repository backed by PostgreSQL.
// Pricing options live in a JSONB column; products are few and read-heavy.
type ProductRepository struct {
	pool *pgxpool.Pool
}

// NewProductRepository returns a ProductRepository that uses the given pool.
func NewProductRepository(pool *pgxpool.Pool) *ProductRepository {
	return &ProductRepository{pool: pool}
}

// List returns all products from the catalog ordered by ID.
func (r *ProductRepository) List(ctx context.Context) ([]catalog.Product, error) {
	rows, err := r.pool.Query(ctx, listProductsSQL)
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}
	return pgx.CollectRows(rows, scanProduct)
}

// GetByIDs returns products matching any of the given IDs. Absent IDs are
// simply missing from the result; the caller decides whether that is fatal.
func (r *ProductRepository) GetByIDs(ctx context.Context, ids []string) ([]catalog.Product, error) {
	rows, err := r.pool.Query(ctx, getProductsByIDsSQL, ids)
	if err != nil {
		return nil, fmt.Errorf("getting products by ids: %w", err)
	}
	return pgx.CollectRows(rows, scanProduct)
}

// Upsert inserts or replaces a product. Used by the catalog seeding tool.
func (r *ProductRepository) Upsert(ctx context.Context, p *catalog.Product) error {
	pricingJSON, err := json.Marshal(p.Pricing)
	if err != nil {
		return fmt.Errorf("marshaling product pricing: %w", err)
	}

	if _, err := r.pool.Exec(ctx, upsertProductSQL, p.ID, p.Name, p.Category, pricingJSON, p.StockOut); err != nil {
		return fmt.Errorf("upserting product %q: %w", p.ID, err)
	}
	return nil
}

func scanProduct(row pgx.CollectableRow) (catalog.Product, error) {
	var (
		p           catalog.Product
		pricingJSON []byte
	)
	if err := row.Scan(&p.ID, &p.Name, &p.Category, &pricingJSON, &p.StockOut); err != nil {
		return p, err
	}
	if err := json.Unmarshal(pricingJSON, &p.Pricing); err != nil {
		return p, fmt.Errorf("unmarshaling product pricing: %w", err)
	}
	return p, nil
}
