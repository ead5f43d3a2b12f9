package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"promo-engine/internal/domain/discount"
	"promo-engine/internal/domain/order"
)

const (
	createOrderSQL = `INSERT INTO orders
		(id, total_amount, discount, items, applied_voucher_ids, applied_promotion_ids, version, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	getOrderSQL = `SELECT id, total_amount, discount, items,
		applied_voucher_ids, applied_promotion_ids, version, created_at
		FROM orders WHERE id = $1`

	// Claims one usage slot; matches zero rows when the limit is exhausted,
	// which re-checks the precondition atomically with the increment.
	claimUsageSQL = `UPDATE discount_codes SET usage_count = usage_count + 1
		WHERE id = $1 AND usage_count < usage_limit`

	codeExistsSQL = `SELECT EXISTS (SELECT 1 FROM discount_codes WHERE id = $1)`

	// The version predicate serializes concurrent applications per order.
	commitOrderSQL = `UPDATE orders
		SET discount = $2, applied_voucher_ids = $3, applied_promotion_ids = $4,
		    version = version + 1
		WHERE id = $1 AND version = $5`
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Create persists a new order. The order items are serialized to JSON for
// storage in the JSONB column.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	itemsJSON, err := json.Marshal(o.Items)
	if err != nil {
		return fmt.Errorf("marshaling order items: %w", err)
	}

	_, err = r.pool.Exec(ctx, createOrderSQL,
		o.ID, o.TotalAmount, o.Discount, itemsJSON,
		notNil(o.AppliedVoucherIDs), notNil(o.AppliedPromotionIDs), o.Version, o.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("creating order %q: %w", o.ID, err)
	}
	return nil
}

// GetByID loads an order with its items and applied-code id sets.
// Returns order.ErrNotFound when absent.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*order.Order, error) {
	rows, err := r.pool.Query(ctx, getOrderSQL, id)
	if err != nil {
		return nil, fmt.Errorf("finding order %q: %w", id, err)
	}

	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("finding order %q: %w", id, err)
	}
	return &o, nil
}

// ApplyCode commits one discount application: it claims a usage slot for the
// code and persists the order's new discount and applied-code sets, in a
// single transaction. Either both writes land or neither does.
func (r *OrderRepository) ApplyCode(ctx context.Context, o *order.Order, codeID string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning application tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback after commit is a no-op

	tag, err := tx.Exec(ctx, claimUsageSQL, codeID)
	if err != nil {
		return fmt.Errorf("claiming usage slot for code %q: %w", codeID, err)
	}
	if tag.RowsAffected() == 0 {
		// Either the code vanished or another request took the last slot.
		var exists bool
		if err := tx.QueryRow(ctx, codeExistsSQL, codeID).Scan(&exists); err != nil {
			return fmt.Errorf("checking code %q: %w", codeID, err)
		}
		if !exists {
			return discount.ErrNotFound
		}
		return discount.ErrUsageLimitReached
	}

	tag, err = tx.Exec(ctx, commitOrderSQL,
		o.ID, o.Discount, notNil(o.AppliedVoucherIDs), notNil(o.AppliedPromotionIDs), o.Version,
	)
	if err != nil {
		return fmt.Errorf("committing order %q: %w", o.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return order.ErrConcurrencyConflict
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing application tx: %w", err)
	}
	o.Version++
	return nil
}

// notNil keeps empty id sets from being written as SQL NULL.
func notNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var (
		o         order.Order
		itemsJSON []byte
	)
	err := row.Scan(
		&o.ID, &o.TotalAmount, &o.Discount, &itemsJSON,
		&o.AppliedVoucherIDs, &o.AppliedPromotionIDs, &o.Version, &o.CreatedAt,
	)
	if err != nil {
		return order.Order{}, err
	}
	if err := json.Unmarshal(itemsJSON, &o.Items); err != nil {
		return order.Order{}, fmt.Errorf("unmarshaling order items: %w", err)
	}
	return o, nil
}
