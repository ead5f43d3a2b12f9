package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"promo-engine/internal/domain/discount"
)

const codeColumns = `id, kind, code, discount_type, discount_value, expiration_date,
	usage_limit, usage_count, minimum_order_value, eligible_on, eligible_ids, created_at`

const (
	createCodeSQL = `INSERT INTO discount_codes (` + codeColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	findCodeByCodeSQL = `SELECT ` + codeColumns + ` FROM discount_codes
		WHERE UPPER(code) = UPPER($1)`

	findCodeByIDSQL = `SELECT ` + codeColumns + ` FROM discount_codes WHERE id = $1`

	listCodesSQL = `SELECT ` + codeColumns + ` FROM discount_codes
		WHERE kind = $1 ORDER BY created_at DESC, id LIMIT $2 OFFSET $3`

	countCodesSQL = `SELECT COUNT(*) FROM discount_codes WHERE kind = $1`

	deleteCodeSQL = `DELETE FROM discount_codes WHERE id = $1`

	incrementUsageSQL = `UPDATE discount_codes
		SET usage_count = LEAST(GREATEST(usage_count + $2, 0), usage_limit)
		WHERE id = $1 RETURNING ` + codeColumns
)

var _ discount.Repository = (*CodeRepository)(nil)

// CodeRepository implements discount.Repository backed by PostgreSQL.
type CodeRepository struct {
	pool *pgxpool.Pool
}

// NewCodeRepository returns a CodeRepository that uses the given pool.
func NewCodeRepository(pool *pgxpool.Pool) *CodeRepository {
	return &CodeRepository{pool: pool}
}

// Create persists a new discount code. A duplicate code string is reported as
// a *discount.ValidationError since codes are unique across both kinds.
func (r *CodeRepository) Create(ctx context.Context, c *discount.Code) error {
	_, err := r.pool.Exec(ctx, createCodeSQL,
		c.ID, string(c.Kind), c.Code, string(c.DiscountType), c.DiscountValue,
		c.ExpirationDate, c.UsageLimit, c.UsageCount, c.MinimumOrderValue,
		string(c.EligibleOn), notNil(c.EligibleIDs), c.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return &discount.ValidationError{Reason: fmt.Sprintf("code %q already exists", c.Code)}
		}
		return fmt.Errorf("creating code %q: %w", c.Code, err)
	}
	return nil
}

// FindByCode looks up a code case-insensitively.
// Returns discount.ErrInvalidCode when no record matches.
func (r *CodeRepository) FindByCode(ctx context.Context, code string) (*discount.Code, error) {
	rows, err := r.pool.Query(ctx, findCodeByCodeSQL, code)
	if err != nil {
		return nil, fmt.Errorf("finding code %q: %w", code, err)
	}

	rec, err := pgx.CollectExactlyOneRow(rows, scanCode)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, discount.ErrInvalidCode
		}
		return nil, fmt.Errorf("finding code %q: %w", code, err)
	}
	return &rec, nil
}

// FindByID looks up a code by id. Returns discount.ErrNotFound when absent.
func (r *CodeRepository) FindByID(ctx context.Context, id string) (*discount.Code, error) {
	rows, err := r.pool.Query(ctx, findCodeByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("finding code by id %q: %w", id, err)
	}

	rec, err := pgx.CollectExactlyOneRow(rows, scanCode)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, discount.ErrNotFound
		}
		return nil, fmt.Errorf("finding code by id %q: %w", id, err)
	}
	return &rec, nil
}

// List returns one page of codes of the given kind, newest first, along with
// the total count for that kind.
func (r *CodeRepository) List(ctx context.Context, kind discount.Kind, page, size int) (*discount.Page, error) {
	var count int64
	if err := r.pool.QueryRow(ctx, countCodesSQL, string(kind)).Scan(&count); err != nil {
		return nil, fmt.Errorf("counting %s codes: %w", kind, err)
	}

	rows, err := r.pool.Query(ctx, listCodesSQL, string(kind), size, (page-1)*size)
	if err != nil {
		return nil, fmt.Errorf("listing %s codes: %w", kind, err)
	}

	data, err := pgx.CollectRows(rows, scanCode)
	if err != nil {
		return nil, fmt.Errorf("listing %s codes: %w", kind, err)
	}

	return &discount.Page{Page: page, Size: size, Count: count, Data: data}, nil
}

// Update applies the non-nil patch fields and returns the updated record.
// Returns discount.ErrNotFound when the id does not exist.
func (r *CodeRepository) Update(ctx context.Context, id string, patch discount.Patch) (*discount.Code, error) {
	var (
		sets []string
		args = []any{id}
	)
	set := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if patch.Code != nil {
		set("code", strings.ToUpper(strings.TrimSpace(*patch.Code)))
	}
	if patch.DiscountType != nil {
		set("discount_type", string(*patch.DiscountType))
	}
	if patch.DiscountValue != nil {
		set("discount_value", *patch.DiscountValue)
	}
	if patch.ExpirationDate != nil {
		set("expiration_date", *patch.ExpirationDate)
	}
	if patch.UsageLimit != nil {
		set("usage_limit", *patch.UsageLimit)
	}
	if patch.MinimumOrderValue != nil {
		set("minimum_order_value", *patch.MinimumOrderValue)
	}
	if patch.EligibleOn != nil {
		set("eligible_on", string(*patch.EligibleOn))
	}
	if patch.EligibleIDs != nil {
		set("eligible_ids", patch.EligibleIDs)
	}

	if len(sets) == 0 {
		return r.FindByID(ctx, id)
	}

	query := fmt.Sprintf(`UPDATE discount_codes SET %s WHERE id = $1 RETURNING %s`,
		strings.Join(sets, ", "), codeColumns)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("updating code %q: %w", id, err)
	}

	rec, err := pgx.CollectExactlyOneRow(rows, scanCode)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, discount.ErrNotFound
		}
		return nil, fmt.Errorf("updating code %q: %w", id, err)
	}
	return &rec, nil
}

// Delete removes the code. Returns discount.ErrNotFound when absent.
func (r *CodeRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, deleteCodeSQL, id)
	if err != nil {
		return fmt.Errorf("deleting code %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return discount.ErrNotFound
	}
	return nil
}

// IncrementUsage adjusts the usage counter by delta, clamped to
// [0, usage_limit], and returns the updated record.
func (r *CodeRepository) IncrementUsage(ctx context.Context, id string, delta int) (*discount.Code, error) {
	rows, err := r.pool.Query(ctx, incrementUsageSQL, id, delta)
	if err != nil {
		return nil, fmt.Errorf("incrementing usage for code %q: %w", id, err)
	}

	rec, err := pgx.CollectExactlyOneRow(rows, scanCode)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, discount.ErrNotFound
		}
		return nil, fmt.Errorf("incrementing usage for code %q: %w", id, err)
	}
	return &rec, nil
}

func scanCode(row pgx.CollectableRow) (discount.Code, error) {
	var (
		rec          discount.Code
		kind         string
		discountType string
		eligibleOn   string
		value        decimal.Decimal
		minOrder     decimal.Decimal
		expiration   time.Time
	)
	err := row.Scan(
		&rec.ID, &kind, &rec.Code, &discountType, &value, &expiration,
		&rec.UsageLimit, &rec.UsageCount, &minOrder, &eligibleOn,
		&rec.EligibleIDs, &rec.CreatedAt,
	)
	rec.Kind = discount.Kind(kind)
	rec.DiscountType = discount.DiscountType(discountType)
	rec.DiscountValue = value
	rec.ExpirationDate = expiration
	rec.MinimumOrderValue = minOrder
	rec.EligibleOn = discount.EligibleOn(eligibleOn)
	return rec, err
}
