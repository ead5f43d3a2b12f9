package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"promo-engine/internal/domain/discount"
)

// Service is the application orchestrator: it creates orders and runs the
// validate -> resolve -> compute -> commit sequence for voucher and promotion
// applications.
type Service struct {
	orders Repository
	codes  discount.Repository
	now    func() time.Time
}

// NewService creates an order Service with the required dependencies.
func NewService(orders Repository, codes discount.Repository) *Service {
	return &Service{
		orders: orders,
		codes:  codes,
		now:    time.Now,
	}
}

// CreateOrderRequest holds the input for creating an order.
type CreateOrderRequest struct {
	Items []OrderItem
}

// CreateOrder computes the order total from its items and persists it.
// The total is fixed from this point on; discounts accumulate separately.
func (s *Service) CreateOrder(ctx context.Context, req CreateOrderRequest) (*Order, error) {
	if len(req.Items) == 0 {
		return nil, ErrEmptyItems
	}

	total := decimal.Zero
	for _, item := range req.Items {
		if item.Quantity <= 0 {
			return nil, &InvalidQuantityError{ProductID: item.ProductID}
		}
		qty := decimal.NewFromInt(int64(item.Quantity))
		total = total.Add(item.Price.Mul(qty))
	}

	o := &Order{
		ID:          uuid.New().String(),
		TotalAmount: total.Round(2),
		Discount:    decimal.Zero,
		Items:       req.Items,
		Version:     1,
		CreatedAt:   s.now().UTC(),
	}
	if err := s.orders.Create(ctx, o); err != nil {
		return nil, errors.Wrap(err, "create order")
	}
	return o, nil
}

// GetOrder returns the order with the given id, or ErrNotFound.
func (s *Service) GetOrder(ctx context.Context, id string) (*Order, error) {
	return s.orders.GetByID(ctx, id)
}

// ApplyVoucher applies an order-wide voucher code to the order and returns
// the updated order.
func (s *Service) ApplyVoucher(ctx context.Context, orderID, code string) (*Order, error) {
	return s.apply(ctx, orderID, code, discount.KindVoucher)
}

// ApplyPromotion applies a product/category-scoped promotion code to the
// order and returns the updated order.
func (s *Service) ApplyPromotion(ctx context.Context, orderID, code string) (*Order, error) {
	return s.apply(ctx, orderID, code, discount.KindPromotion)
}

// apply runs one application request to completion. Every rejection happens
// before any write: a failed application leaves the order and the code's
// usage counter untouched.
func (s *Service) apply(ctx context.Context, orderID, code string, kind discount.Kind) (*Order, error) {
	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	c, err := s.codes.FindByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if c.Kind != kind {
		// A voucher code cannot be applied as a promotion or vice versa.
		return nil, discount.ErrInvalidCode
	}

	now := s.now()
	if c.Expired(now) {
		return nil, discount.ErrCodeExpired
	}
	if c.Exhausted() {
		return nil, discount.ErrUsageLimitReached
	}
	if kind == discount.KindVoucher && !c.MinimumOrderValue.IsZero() &&
		o.TotalAmount.LessThan(c.MinimumOrderValue) {
		return nil, ErrBelowMinimumOrderValue
	}
	if o.HasApplied(kind, c.ID) {
		return nil, ErrAlreadyApplied
	}

	items := toDiscountItems(o.Items)

	// Vouchers discount the whole order; promotions only their eligible slice.
	base := o.TotalAmount
	quantity := discount.TotalQuantity(items)
	if kind == discount.KindPromotion {
		eligible, err := discount.EligibleItems(c, items)
		if err != nil {
			return nil, err
		}
		if len(eligible) == 0 {
			return nil, ErrNoEligibleItems
		}
		base = discount.Subtotal(eligible)
		quantity = discount.TotalQuantity(eligible)
	}

	raw, err := discount.Compute(c, base, quantity)
	if err != nil {
		return nil, err
	}

	// Cumulative discount across all applied codes never exceeds the order total.
	o.Discount = decimal.Min(o.Discount.Add(raw), o.TotalAmount)
	if kind == discount.KindVoucher {
		o.AppliedVoucherIDs = append(o.AppliedVoucherIDs, c.ID)
	} else {
		o.AppliedPromotionIDs = append(o.AppliedPromotionIDs, c.ID)
	}

	if err := s.orders.ApplyCode(ctx, o, c.ID); err != nil {
		return nil, err
	}
	return o, nil
}

func toDiscountItems(items []OrderItem) []discount.Item {
	out := make([]discount.Item, len(items))
	for i, item := range items {
		out[i] = discount.Item{
			ProductID: item.ProductID,
			Category:  item.Category,
			Price:     item.Price,
			Quantity:  item.Quantity,
		}
	}
	return out
}
