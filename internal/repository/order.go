package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/submonth/storefront/internal/domain/currency"
	"github.com/submonth/storefront/internal/domain/order"
)

const (
	createOrderSQL = `INSERT INTO orders (id, created_at, updated_at, customer, items,
		subtotal, tax, shipping, total, currency, status, delivery_type, notes, payment, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`

	orderColumns = `id, created_at, updated_at, customer, items,
		subtotal, tax, shipping, total, currency, status, delivery_type, notes, payment, version`

	getOrderSQL = `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	getOrderForUpdateSQL = `SELECT ` + orderColumns + ` FROM orders WHERE id = $1 FOR UPDATE`

	updateOrderSQL = `UPDATE orders
		SET status = $2, notes = $3, payment = $4, updated_at = $5, version = $6
		WHERE id = $1`

	deleteOrderSQL = `DELETE FROM orders WHERE id = $1`

	cancelStalePendingSQL = `UPDATE orders
		SET status = 'cancelled', updated_at = NOW(), version = version + 1
		WHERE status = 'pending' AND created_at < $1
		RETURNING id`

	uniqueViolationCode = "23505"
)

var _ order.Ledger = (*OrderRepository)(nil)

// OrderRepository implements order.Ledger backed by PostgreSQL. Customer,
// line items and payment details are stored as JSONB; monetary totals live
// in NUMERIC columns so reports can aggregate without unpacking documents.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Create persists a new order. Returns order.ErrDuplicateID when the
// generated order number collides with an existing row, so the caller can
// regenerate and retry.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	customerJSON, itemsJSON, paymentJSON, err := marshalOrderDocs(o)
	if err != nil {
		return err
	}

	_, err = r.pool.Exec(ctx, createOrderSQL,
		o.ID, o.CreatedAt, o.UpdatedAt, customerJSON, itemsJSON,
		o.Totals.Subtotal, o.Totals.Tax, o.Totals.Shipping, o.Totals.Total,
		string(o.Currency), string(o.Status), o.DeliveryType, o.Notes, paymentJSON, o.Version,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return order.ErrDuplicateID
		}
		return fmt.Errorf("creating order %q: %w", o.ID, err)
	}
	return nil
}

// Get returns a single order by id. Returns order.ErrNotFound when absent.
func (r *OrderRepository) Get(ctx context.Context, id string) (*order.Order, error) {
	rows, err := r.pool.Query(ctx, getOrderSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting order %q: %w", id, err)
	}

	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("getting order %q: %w", id, err)
	}
	return &o, nil
}

// List returns orders newest first, narrowed by the filter. Query matches
// the order id, customer name and email as case-insensitive substrings.
func (r *OrderRepository) List(ctx context.Context, f order.Filter) ([]order.Order, error) {
	sql := `SELECT ` + orderColumns + ` FROM orders WHERE TRUE`
	args := make([]any, 0, 3)

	if f.Query != "" {
		args = append(args, "%"+f.Query+"%")
		n := fmt.Sprintf("$%d", len(args))
		sql += ` AND (id ILIKE ` + n +
			` OR customer ->> 'email' ILIKE ` + n +
			` OR customer ->> 'name' ILIKE ` + n + `)`
	}
	if f.Status != "" {
		args = append(args, string(f.Status))
		sql += fmt.Sprintf(` AND status = $%d`, len(args))
	}
	if f.Email != "" {
		args = append(args, f.Email)
		sql += fmt.Sprintf(` AND LOWER(customer ->> 'email') = LOWER($%d)`, len(args))
	}
	sql += ` ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("listing orders: %w", err)
	}
	return pgx.CollectRows(rows, scanOrder)
}

// ApplyTransition moves an order to the target status inside a transaction,
// holding a row lock so concurrent transitions on the same order serialize.
// The edge is validated by order.Transition; a same-state target succeeds
// without writing. Payment details are attached only if the order has none.
func (r *OrderRepository) ApplyTransition(ctx context.Context, id string, target order.Status, upd order.Update) (*order.Order, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("beginning transition tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	rows, err := tx.Query(ctx, getOrderForUpdateSQL, id)
	if err != nil {
		return nil, fmt.Errorf("locking order %q: %w", id, err)
	}
	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("locking order %q: %w", id, err)
	}

	next, err := order.Transition(o.Status, target)
	if err != nil {
		return nil, err
	}

	o.Status = next
	if upd.Notes != nil {
		o.Notes = *upd.Notes
	}
	if upd.Payment != nil && o.Payment == nil {
		o.Payment = upd.Payment
	}
	o.UpdatedAt = time.Now().UTC()
	o.Version++

	paymentJSON, err := marshalPayment(&o)
	if err != nil {
		return nil, err
	}
	if _, err := tx.Exec(ctx, updateOrderSQL,
		o.ID, string(o.Status), o.Notes, paymentJSON, o.UpdatedAt, o.Version,
	); err != nil {
		return nil, fmt.Errorf("updating order %q: %w", id, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("committing transition for order %q: %w", id, err)
	}
	return &o, nil
}

// Delete removes an order row. Used only to roll back a pending order whose
// gateway charge creation failed.
func (r *OrderRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, deleteOrderSQL, id)
	if err != nil {
		return fmt.Errorf("deleting order %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return order.ErrNotFound
	}
	return nil
}

// CancelStalePending cancels every pending order created before the cutoff
// and returns the affected ids. The status predicate in the UPDATE makes the
// sweep safe against a concurrent verify: a row that just completed no longer
// matches and is left untouched.
func (r *OrderRepository) CancelStalePending(ctx context.Context, olderThan time.Time) ([]string, error) {
	rows, err := r.pool.Query(ctx, cancelStalePendingSQL, olderThan)
	if err != nil {
		return nil, fmt.Errorf("cancelling stale pending orders: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (string, error) {
		var id string
		err := row.Scan(&id)
		return id, err
	})
}

func marshalOrderDocs(o *order.Order) (customer, items, payment []byte, err error) {
	customer, err = json.Marshal(o.Customer)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("marshaling order customer: %w", err)
	}
	items, err = json.Marshal(o.Items)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("marshaling order items: %w", err)
	}
	payment, err = marshalPayment(o)
	if err != nil {
		return nil, nil, nil, err
	}
	return customer, items, payment, nil
}

func marshalPayment(o *order.Order) ([]byte, error) {
	if o.Payment == nil {
		return nil, nil
	}
	raw, err := json.Marshal(o.Payment)
	if err != nil {
		return nil, fmt.Errorf("marshaling order payment: %w", err)
	}
	return raw, nil
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var (
		o            order.Order
		customerJSON []byte
		itemsJSON    []byte
		paymentJSON  []byte
		curr         string
		status       string
	)
	err := row.Scan(
		&o.ID, &o.CreatedAt, &o.UpdatedAt, &customerJSON, &itemsJSON,
		&o.Totals.Subtotal, &o.Totals.Tax, &o.Totals.Shipping, &o.Totals.Total,
		&curr, &status, &o.DeliveryType, &o.Notes, &paymentJSON, &o.Version,
	)
	if err != nil {
		return o, err
	}

	if err := json.Unmarshal(customerJSON, &o.Customer); err != nil {
		return o, fmt.Errorf("unmarshaling order customer: %w", err)
	}
	if err := json.Unmarshal(itemsJSON, &o.Items); err != nil {
		return o, fmt.Errorf("unmarshaling order items: %w", err)
	}
	if len(paymentJSON) > 0 {
		o.Payment = new(order.PaymentDetails)
		if err := json.Unmarshal(paymentJSON, o.Payment); err != nil {
			return o, fmt.Errorf("unmarshaling order payment: %w", err)
		}
	}
	o.Currency = currency.Code(curr)
	o.Status = order.Status(status)
	return o, nil
}
