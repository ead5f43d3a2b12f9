package discount

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Registry owns discount code records: creation-time validation, lookup, and
// the administrative CRUD surface. Usage-slot claiming during an application
// is handled transactionally by the order repository, not here.
type Registry struct {
	repo Repository
	now  func() time.Time
}

// NewRegistry creates a Registry backed by the given Repository.
func NewRegistry(repo Repository) *Registry {
	return &Registry{repo: repo, now: time.Now}
}

// CreateParams holds the input for creating a discount code.
type CreateParams struct {
	Kind              Kind
	Code              string
	DiscountType      DiscountType
	DiscountValue     decimal.Decimal
	ExpirationDate    time.Time
	UsageLimit        int
	MinimumOrderValue decimal.Decimal
	EligibleOn        EligibleOn
	EligibleIDs       []string
}

func (p CreateParams) validate() error {
	if strings.TrimSpace(p.Code) == "" {
		return &ValidationError{Reason: "code is required"}
	}
	if p.DiscountValue.IsNegative() {
		return &ValidationError{Reason: "discount value must not be negative"}
	}
	switch p.DiscountType {
	case DiscountPercentage:
		if p.DiscountValue.GreaterThan(hundred) {
			return &ValidationError{Reason: "percentage discount cannot exceed 100"}
		}
	case DiscountFixed:
	default:
		return &ValidationError{Reason: fmt.Sprintf("unsupported discount type: %q", p.DiscountType)}
	}
	if p.UsageLimit <= 0 {
		return &ValidationError{Reason: "usage limit must be positive"}
	}
	if p.MinimumOrderValue.IsNegative() {
		return &ValidationError{Reason: "minimum order value must not be negative"}
	}
	if p.Kind == KindPromotion {
		switch p.EligibleOn {
		case EligibleProduct, EligibleCategory:
		default:
			return &ValidationError{Reason: fmt.Sprintf("unsupported eligibility selector: %q", p.EligibleOn)}
		}
		if len(p.EligibleIDs) == 0 {
			return &ValidationError{Reason: "eligible ids are required for promotions"}
		}
	}
	return nil
}

// Create validates the parameters, assigns an id and a zero usage counter,
// and persists the record. Invalid input is reported as a *ValidationError
// and nothing is stored.
func (r *Registry) Create(ctx context.Context, p CreateParams) (*Code, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}

	c := &Code{
		ID:                uuid.New().String(),
		Kind:              p.Kind,
		Code:              strings.ToUpper(strings.TrimSpace(p.Code)),
		DiscountType:      p.DiscountType,
		DiscountValue:     p.DiscountValue,
		ExpirationDate:    p.ExpirationDate,
		UsageLimit:        p.UsageLimit,
		UsageCount:        0,
		MinimumOrderValue: p.MinimumOrderValue,
		EligibleOn:        p.EligibleOn,
		EligibleIDs:       p.EligibleIDs,
		CreatedAt:         r.now().UTC(),
	}
	if err := r.repo.Create(ctx, c); err != nil {
		return nil, errors.Wrap(err, "create code")
	}
	return c, nil
}

// Get returns the code with the given id, or ErrNotFound.
func (r *Registry) Get(ctx context.Context, id string) (*Code, error) {
	return r.repo.FindByID(ctx, id)
}

// FindByCode resolves a code string to its record, or ErrInvalidCode.
func (r *Registry) FindByCode(ctx context.Context, code string) (*Code, error) {
	return r.repo.FindByCode(ctx, code)
}

// List returns one page of codes of the given kind. Page numbers start at 1;
// out-of-range inputs fall back to the defaults.
func (r *Registry) List(ctx context.Context, kind Kind, page, size int) (*Page, error) {
	if page < 1 {
		page = 1
	}
	if size < 1 || size > 100 {
		size = 20
	}
	return r.repo.List(ctx, kind, page, size)
}

// Update applies a partial update and returns the updated record.
func (r *Registry) Update(ctx context.Context, id string, patch Patch) (*Code, error) {
	if patch.DiscountValue != nil && patch.DiscountValue.IsNegative() {
		return nil, &ValidationError{Reason: "discount value must not be negative"}
	}
	if patch.UsageLimit != nil && *patch.UsageLimit <= 0 {
		return nil, &ValidationError{Reason: "usage limit must be positive"}
	}
	return r.repo.Update(ctx, id, patch)
}

// Delete removes the code with the given id, or returns ErrNotFound.
func (r *Registry) Delete(ctx context.Context, id string) error {
	return r.repo.Delete(ctx, id)
}

// IncrementUsage adjusts a code's usage counter by delta, clamped so that
// 0 <= usage_count <= usage_limit always holds. This is the administrative
// adjustment; successful applications claim their slot inside the order
// commit transaction instead.
func (r *Registry) IncrementUsage(ctx context.Context, id string, delta int) (*Code, error) {
	return r.repo.IncrementUsage(ctx, id, delta)
}
