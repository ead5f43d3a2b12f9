package discount

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Kind separates the two families of discount codes.
type Kind string

const (
	// KindVoucher is an order-wide discount code with an optional
	// minimum-order threshold.
	KindVoucher Kind = "voucher"
	// KindPromotion is a discount code scoped to specific products or
	// categories.
	KindPromotion Kind = "promotion"
)

// DiscountType enumerates the supported discount strategies.
type DiscountType string

const (
	// DiscountPercentage applies a percentage-based discount to the eligible base.
	DiscountPercentage DiscountType = "percentage"
	// DiscountFixed applies a fixed monetary discount, per eligible unit for
	// promotions, capped at the eligible base.
	DiscountFixed DiscountType = "fixed"
)

// EligibleOn selects how a promotion matches order items.
type EligibleOn string

const (
	// EligibleProduct matches items by product id.
	EligibleProduct EligibleOn = "product"
	// EligibleCategory matches items by category name.
	EligibleCategory EligibleOn = "category"
)

var (
	// ErrInvalidCode is returned when a discount code does not exist or is
	// of the wrong kind for the requested application.
	ErrInvalidCode = errors.New("invalid discount code")
	// ErrCodeExpired is returned when a code is past its expiration date.
	ErrCodeExpired = errors.New("discount code expired")
	// ErrUsageLimitReached is returned when a code has exhausted its usage slots.
	ErrUsageLimitReached = errors.New("usage limit reached")
	// ErrNotFound is returned by id-based registry lookups for missing records.
	ErrNotFound = errors.New("discount code not found")
)

// ValidationError reports malformed creation or update input.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

// Code is a discount code record. Voucher-only and promotion-only fields are
// zero-valued for the other kind.
type Code struct {
	ID             string
	Kind           Kind
	Code           string
	DiscountType   DiscountType
	DiscountValue  decimal.Decimal
	ExpirationDate time.Time
	UsageLimit     int
	UsageCount     int

	// MinimumOrderValue applies to vouchers only. Zero means no minimum.
	MinimumOrderValue decimal.Decimal

	// EligibleOn and EligibleIDs apply to promotions only.
	EligibleOn  EligibleOn
	EligibleIDs []string

	CreatedAt time.Time
}

// Expired reports whether the code is inapplicable at the given instant.
// A code stays valid through its expiration instant and expires strictly after it.
func (c *Code) Expired(now time.Time) bool {
	return now.After(c.ExpirationDate)
}

// Exhausted reports whether every usage slot has been claimed.
func (c *Code) Exhausted() bool {
	return c.UsageCount >= c.UsageLimit
}

// Item is a line item as seen by eligibility resolution and discount
// computation. The order package converts its own items into this shape.
type Item struct {
	ProductID string
	Category  string
	Price     decimal.Decimal
	Quantity  int
}

// Page holds one page of codes plus the total record count.
type Page struct {
	Page  int
	Size  int
	Count int64
	Data  []Code
}

// Patch holds optional field updates for a code. Nil fields are left unchanged.
type Patch struct {
	Code              *string
	DiscountType      *DiscountType
	DiscountValue     *decimal.Decimal
	ExpirationDate    *time.Time
	UsageLimit        *int
	MinimumOrderValue *decimal.Decimal
	EligibleOn        *EligibleOn
	EligibleIDs       []string
}

// Repository defines persistence operations for discount codes.
type Repository interface {
	Create(ctx context.Context, c *Code) error
	FindByCode(ctx context.Context, code string) (*Code, error)
	FindByID(ctx context.Context, id string) (*Code, error)
	List(ctx context.Context, kind Kind, page, size int) (*Page, error)
	Update(ctx context.Context, id string, patch Patch) (*Code, error)
	Delete(ctx context.Context, id string) error
	// IncrementUsage adds delta to the usage counter, clamped to
	// [0, usage_limit], and returns the updated record.
	IncrementUsage(ctx context.Context, id string, delta int) (*Code, error)
}
