package order

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"promo-engine/internal/domain/discount"
)

// Sentinel errors for order lookup and discount application.
var (
	ErrNotFound               = errors.New("order not found")
	ErrEmptyItems             = errors.New("items required")
	ErrAlreadyApplied         = errors.New("code already applied to this order")
	ErrBelowMinimumOrderValue = errors.New("order total below the voucher minimum")
	ErrNoEligibleItems        = errors.New("no eligible items for this promotion")
	// ErrConcurrencyConflict is returned when the commit lost a race with a
	// concurrent application to the same order. The caller may retry.
	ErrConcurrencyConflict = errors.New("order was modified concurrently")
)

// InvalidQuantityError indicates a line item has a non-positive quantity.
type InvalidQuantityError struct {
	ProductID string
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("quantity must be greater than 0 for product %s", e.ProductID)
}

// Order is the aggregate the discount engine mutates. TotalAmount is fixed at
// creation; Discount and the applied-code id sets only ever grow, and
// 0 <= Discount <= TotalAmount holds at all times.
type Order struct {
	ID                  string
	TotalAmount         decimal.Decimal
	Discount            decimal.Decimal
	Items               []OrderItem
	AppliedVoucherIDs   []string
	AppliedPromotionIDs []string
	// Version guards the commit against concurrent applications to the same
	// order. Incremented on every persisted mutation.
	Version   int64
	CreatedAt time.Time
}

// OrderItem is a single line item, immutable once the order is created.
type OrderItem struct {
	ProductID string          `json:"product_id"`
	Category  string          `json:"category"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
}

// HasApplied reports whether the code id is already recorded on the order
// under the given kind.
func (o *Order) HasApplied(kind discount.Kind, codeID string) bool {
	if kind == discount.KindVoucher {
		return slices.Contains(o.AppliedVoucherIDs, codeID)
	}
	return slices.Contains(o.AppliedPromotionIDs, codeID)
}

// Repository defines persistence operations for orders.
type Repository interface {
	Create(ctx context.Context, o *Order) error
	GetByID(ctx context.Context, id string) (*Order, error)
	// ApplyCode persists the order's updated discount and applied-code sets
	// and claims one usage slot for codeID, in a single transaction. It
	// returns discount.ErrUsageLimitReached when no slot is left and
	// ErrConcurrencyConflict when the order's version check fails; in both
	// cases nothing is written.
	ApplyCode(ctx context.Context, o *Order, codeID string) error
}
