package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/submonth/storefront/internal/domain/cart"
)

const (
	getCartSQL = `SELECT session_id, items, updated_at FROM carts WHERE session_id = $1`

	saveCartSQL = `INSERT INTO carts (session_id, items, updated_at) VALUES ($1, $2, $3)
		ON CONFLICT (session_id) DO UPDATE SET items = EXCLUDED.items, updated_at = EXCLUDED.updated_at`

	deleteCartSQL = `DELETE FROM carts WHERE session_id = $1`
)

var _ cart.Repository = (*CartRepository)(nil)

// CartRepository implements cart.Repository backed by PostgreSQL.
type CartRepository struct {
	pool *pgxpool.Pool
}

// NewCartRepository returns a CartRepository that uses the given pool.
func NewCartRepository(pool *pgxpool.Pool) *CartRepository {
	return &CartRepository{pool: pool}
}

// Get returns the cart for the session, or a fresh empty cart when the
// session has none yet.
func (r *CartRepository) Get(ctx context.Context, sessionID string) (*cart.Cart, error) {
	rows, err := r.pool.Query(ctx, getCartSQL, sessionID)
	if err != nil {
		return nil, fmt.Errorf("getting cart %q: %w", sessionID, err)
	}

	c, err := pgx.CollectExactlyOneRow(rows, scanCart)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return cart.New(sessionID), nil
		}
		return nil, fmt.Errorf("getting cart %q: %w", sessionID, err)
	}
	return &c, nil
}

// Save upserts the cart for its session.
func (r *CartRepository) Save(ctx context.Context, c *cart.Cart) error {
	itemsJSON, err := json.Marshal(c.Items)
	if err != nil {
		return fmt.Errorf("marshaling cart items: %w", err)
	}

	if _, err := r.pool.Exec(ctx, saveCartSQL, c.SessionID, itemsJSON, c.UpdatedAt); err != nil {
		return fmt.Errorf("saving cart %q: %w", c.SessionID, err)
	}
	return nil
}

// Delete removes the cart for the session. Deleting an absent cart is not
// an error.
func (r *CartRepository) Delete(ctx context.Context, sessionID string) error {
	if _, err := r.pool.Exec(ctx, deleteCartSQL, sessionID); err != nil {
		return fmt.Errorf("deleting cart %q: %w", sessionID, err)
	}
	return nil
}

func scanCart(row pgx.CollectableRow) (cart.Cart, error) {
	var (
		c         cart.Cart
		itemsJSON []byte
	)
	if err := row.Scan(&c.SessionID, &itemsJSON, &c.UpdatedAt); err != nil {
		return c, err
	}
	if err := json.Unmarshal(itemsJSON, &c.Items); err != nil {
		return c, fmt.Errorf("unmarshaling cart items: %w", err)
	}
	return c, nil
}
