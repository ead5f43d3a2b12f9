package order

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"promo-engine/internal/domain/discount"
)

// --- Mock implementations ---

type mockOrderRepo struct {
	byID      map[string]*Order
	created   *Order
	applied   *Order
	appliedID string
	applyErr  error
}

func (m *mockOrderRepo) Create(_ context.Context, o *Order) error {
	m.created = o
	return nil
}

func (m *mockOrderRepo) GetByID(_ context.Context, id string) (*Order, error) {
	if o, ok := m.byID[id]; ok {
		return o, nil
	}
	return nil, ErrNotFound
}

func (m *mockOrderRepo) ApplyCode(_ context.Context, o *Order, codeID string) error {
	if m.applyErr != nil {
		return m.applyErr
	}
	m.applied = o
	m.appliedID = codeID
	o.Version++
	return nil
}

type mockCodeRepo struct {
	byCode map[string]*discount.Code
}

func (m *mockCodeRepo) Create(_ context.Context, _ *discount.Code) error { return nil }

func (m *mockCodeRepo) FindByCode(_ context.Context, code string) (*discount.Code, error) {
	if c, ok := m.byCode[code]; ok {
		return c, nil
	}
	return nil, discount.ErrInvalidCode
}

func (m *mockCodeRepo) FindByID(_ context.Context, _ string) (*discount.Code, error) {
	return nil, discount.ErrNotFound
}

func (m *mockCodeRepo) List(_ context.Context, _ discount.Kind, _, _ int) (*discount.Page, error) {
	return nil, nil
}

func (m *mockCodeRepo) Update(_ context.Context, _ string, _ discount.Patch) (*discount.Code, error) {
	return nil, discount.ErrNotFound
}

func (m *mockCodeRepo) Delete(_ context.Context, _ string) error { return nil }

func (m *mockCodeRepo) IncrementUsage(_ context.Context, _ string, _ int) (*discount.Code, error) {
	return nil, discount.ErrNotFound
}

// --- Helpers ---

var testNow = time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

func newTestService(orders *mockOrderRepo, codes *mockCodeRepo) *Service {
	svc := NewService(orders, codes)
	svc.now = func() time.Time { return testNow }
	return svc
}

func testOrder() *Order {
	return &Order{
		ID:          "o1",
		TotalAmount: decimal.RequireFromString("200.00"),
		Discount:    decimal.Zero,
		Items: []OrderItem{
			{ProductID: "p1", Category: "books", Price: decimal.RequireFromString("50.00"), Quantity: 2},
			{ProductID: "p2", Category: "coffee", Price: decimal.RequireFromString("100.00"), Quantity: 1},
		},
		Version:   1,
		CreatedAt: testNow,
	}
}

func voucher(code string) *discount.Code {
	return &discount.Code{
		ID:             "v-" + code,
		Kind:           discount.KindVoucher,
		Code:           code,
		DiscountType:   discount.DiscountPercentage,
		DiscountValue:  decimal.NewFromInt(10),
		ExpirationDate: testNow.Add(24 * time.Hour),
		UsageLimit:     10,
	}
}

func promotion(code string) *discount.Code {
	return &discount.Code{
		ID:             "pr-" + code,
		Kind:           discount.KindPromotion,
		Code:           code,
		DiscountType:   discount.DiscountPercentage,
		DiscountValue:  decimal.NewFromInt(20),
		ExpirationDate: testNow.Add(24 * time.Hour),
		UsageLimit:     10,
		EligibleOn:     discount.EligibleCategory,
		EligibleIDs:    []string{"books"},
	}
}

// --- CreateOrder ---

func TestCreateOrder(t *testing.T) {
	orders := &mockOrderRepo{}
	svc := newTestService(orders, &mockCodeRepo{})

	o, err := svc.CreateOrder(context.Background(), CreateOrderRequest{
		Items: []OrderItem{
			{ProductID: "p1", Category: "books", Price: decimal.RequireFromString("9.99"), Quantity: 3},
			{ProductID: "p2", Category: "coffee", Price: decimal.RequireFromString("12.50"), Quantity: 1},
		},
	})
	require.NoError(t, err)
	require.NotNil(t, orders.created)

	assert.NotEmpty(t, o.ID)
	assert.True(t, o.TotalAmount.Equal(decimal.RequireFromString("42.47")), "got %s", o.TotalAmount)
	assert.True(t, o.Discount.IsZero())
	assert.Equal(t, int64(1), o.Version)
	assert.Equal(t, testNow, o.CreatedAt)
}

func TestCreateOrder_EmptyItems(t *testing.T) {
	svc := newTestService(&mockOrderRepo{}, &mockCodeRepo{})

	_, err := svc.CreateOrder(context.Background(), CreateOrderRequest{})
	require.ErrorIs(t, err, ErrEmptyItems)
}

func TestCreateOrder_InvalidQuantity(t *testing.T) {
	svc := newTestService(&mockOrderRepo{}, &mockCodeRepo{})

	_, err := svc.CreateOrder(context.Background(), CreateOrderRequest{
		Items: []OrderItem{{ProductID: "p1", Price: decimal.NewFromInt(10), Quantity: 0}},
	})

	var iqErr *InvalidQuantityError
	require.ErrorAs(t, err, &iqErr)
	assert.Equal(t, "p1", iqErr.ProductID)
}

// --- ApplyVoucher ---

func TestApplyVoucher(t *testing.T) {
	orders := &mockOrderRepo{byID: map[string]*Order{"o1": testOrder()}}
	codes := &mockCodeRepo{byCode: map[string]*discount.Code{"SAVE10": voucher("SAVE10")}}
	svc := newTestService(orders, codes)

	o, err := svc.ApplyVoucher(context.Background(), "o1", "SAVE10")
	require.NoError(t, err)

	assert.True(t, o.Discount.Equal(decimal.NewFromInt(20)), "10%% of 200, got %s", o.Discount)
	assert.Equal(t, []string{"v-SAVE10"}, o.AppliedVoucherIDs)
	assert.Empty(t, o.AppliedPromotionIDs)
	assert.Equal(t, "v-SAVE10", orders.appliedID)
	assert.Equal(t, int64(2), o.Version)
}

func TestApplyVoucher_OrderNotFound(t *testing.T) {
	svc := newTestService(&mockOrderRepo{}, &mockCodeRepo{})

	_, err := svc.ApplyVoucher(context.Background(), "missing", "SAVE10")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestApplyVoucher_UnknownCode(t *testing.T) {
	orders := &mockOrderRepo{byID: map[string]*Order{"o1": testOrder()}}
	svc := newTestService(orders, &mockCodeRepo{})

	_, err := svc.ApplyVoucher(context.Background(), "o1", "NOPE")
	require.ErrorIs(t, err, discount.ErrInvalidCode)
	assert.Nil(t, orders.applied)
}

func TestApplyVoucher_KindMismatch(t *testing.T) {
	orders := &mockOrderRepo{byID: map[string]*Order{"o1": testOrder()}}
	codes := &mockCodeRepo{byCode: map[string]*discount.Code{"BOOKS20": promotion("BOOKS20")}}
	svc := newTestService(orders, codes)

	// A promotion code is not a valid voucher.
	_, err := svc.ApplyVoucher(context.Background(), "o1", "BOOKS20")
	require.ErrorIs(t, err, discount.ErrInvalidCode)
	assert.Nil(t, orders.applied)
}

func TestApplyVoucher_Expired(t *testing.T) {
	expired := voucher("OLD")
	expired.ExpirationDate = testNow.Add(-time.Minute)

	orders := &mockOrderRepo{byID: map[string]*Order{"o1": testOrder()}}
	codes := &mockCodeRepo{byCode: map[string]*discount.Code{"OLD": expired}}
	svc := newTestService(orders, codes)

	_, err := svc.ApplyVoucher(context.Background(), "o1", "OLD")
	require.ErrorIs(t, err, discount.ErrCodeExpired)
	assert.Nil(t, orders.applied)
}

func TestApplyVoucher_UsageLimitReached(t *testing.T) {
	used := voucher("USED")
	used.UsageCount = used.UsageLimit

	orders := &mockOrderRepo{byID: map[string]*Order{"o1": testOrder()}}
	codes := &mockCodeRepo{byCode: map[string]*discount.Code{"USED": used}}
	svc := newTestService(orders, codes)

	_, err := svc.ApplyVoucher(context.Background(), "o1", "USED")
	require.ErrorIs(t, err, discount.ErrUsageLimitReached)
	assert.Nil(t, orders.applied)
}

func TestApplyVoucher_BelowMinimumOrderValue(t *testing.T) {
	big := voucher("BIG")
	big.MinimumOrderValue = decimal.NewFromInt(500)

	orders := &mockOrderRepo{byID: map[string]*Order{"o1": testOrder()}}
	codes := &mockCodeRepo{byCode: map[string]*discount.Code{"BIG": big}}
	svc := newTestService(orders, codes)

	_, err := svc.ApplyVoucher(context.Background(), "o1", "BIG")
	require.ErrorIs(t, err, ErrBelowMinimumOrderValue)
	assert.Nil(t, orders.applied)
}

func TestApplyVoucher_AlreadyApplied(t *testing.T) {
	o := testOrder()
	o.AppliedVoucherIDs = []string{"v-SAVE10"}

	orders := &mockOrderRepo{byID: map[string]*Order{"o1": o}}
	codes := &mockCodeRepo{byCode: map[string]*discount.Code{"SAVE10": voucher("SAVE10")}}
	svc := newTestService(orders, codes)

	_, err := svc.ApplyVoucher(context.Background(), "o1", "SAVE10")
	require.ErrorIs(t, err, ErrAlreadyApplied)
	assert.Nil(t, orders.applied)
}

func TestApplyVoucher_DiscountCappedAtTotal(t *testing.T) {
	o := testOrder()
	o.Discount = decimal.RequireFromString("190.00")
	o.AppliedVoucherIDs = []string{"v-other"}

	orders := &mockOrderRepo{byID: map[string]*Order{"o1": o}}
	codes := &mockCodeRepo{byCode: map[string]*discount.Code{"SAVE10": voucher("SAVE10")}}
	svc := newTestService(orders, codes)

	got, err := svc.ApplyVoucher(context.Background(), "o1", "SAVE10")
	require.NoError(t, err)
	// 190 + 20 would exceed the order total; the cumulative discount is capped.
	assert.True(t, got.Discount.Equal(got.TotalAmount), "got %s", got.Discount)
}

func TestApplyVoucher_ConcurrencyConflict(t *testing.T) {
	orders := &mockOrderRepo{
		byID:     map[string]*Order{"o1": testOrder()},
		applyErr: ErrConcurrencyConflict,
	}
	codes := &mockCodeRepo{byCode: map[string]*discount.Code{"SAVE10": voucher("SAVE10")}}
	svc := newTestService(orders, codes)

	_, err := svc.ApplyVoucher(context.Background(), "o1", "SAVE10")
	require.ErrorIs(t, err, ErrConcurrencyConflict)
}

// --- ApplyPromotion ---

func TestApplyPromotion(t *testing.T) {
	orders := &mockOrderRepo{byID: map[string]*Order{"o1": testOrder()}}
	codes := &mockCodeRepo{byCode: map[string]*discount.Code{"BOOKS20": promotion("BOOKS20")}}
	svc := newTestService(orders, codes)

	o, err := svc.ApplyPromotion(context.Background(), "o1", "BOOKS20")
	require.NoError(t, err)

	// Books subtotal is 100; 20% of that.
	assert.True(t, o.Discount.Equal(decimal.NewFromInt(20)), "got %s", o.Discount)
	assert.Equal(t, []string{"pr-BOOKS20"}, o.AppliedPromotionIDs)
	assert.Empty(t, o.AppliedVoucherIDs)
}

func TestApplyPromotion_FixedPerUnit(t *testing.T) {
	promo := promotion("BOOKS5")
	promo.DiscountType = discount.DiscountFixed
	promo.DiscountValue = decimal.NewFromInt(5)

	orders := &mockOrderRepo{byID: map[string]*Order{"o1": testOrder()}}
	codes := &mockCodeRepo{byCode: map[string]*discount.Code{"BOOKS5": promo}}
	svc := newTestService(orders, codes)

	o, err := svc.ApplyPromotion(context.Background(), "o1", "BOOKS5")
	require.NoError(t, err)

	// Two eligible book units at 5 each.
	assert.True(t, o.Discount.Equal(decimal.NewFromInt(10)), "got %s", o.Discount)
}

func TestApplyPromotion_NoEligibleItems(t *testing.T) {
	promo := promotion("GADGETS")
	promo.EligibleIDs = []string{"gadgets"}

	orders := &mockOrderRepo{byID: map[string]*Order{"o1": testOrder()}}
	codes := &mockCodeRepo{byCode: map[string]*discount.Code{"GADGETS": promo}}
	svc := newTestService(orders, codes)

	_, err := svc.ApplyPromotion(context.Background(), "o1", "GADGETS")
	require.ErrorIs(t, err, ErrNoEligibleItems)
	assert.Nil(t, orders.applied)
}

func TestApplyPromotion_MinimumDoesNotApply(t *testing.T) {
	// A stray minimum on a promotion record is ignored; the threshold is a
	// voucher rule.
	promo := promotion("BOOKS20")
	promo.MinimumOrderValue = decimal.NewFromInt(10_000)

	orders := &mockOrderRepo{byID: map[string]*Order{"o1": testOrder()}}
	codes := &mockCodeRepo{byCode: map[string]*discount.Code{"BOOKS20": promo}}
	svc := newTestService(orders, codes)

	_, err := svc.ApplyPromotion(context.Background(), "o1", "BOOKS20")
	require.NoError(t, err)
}

func TestApply_VoucherThenPromotionAccumulate(t *testing.T) {
	o := testOrder()
	orders := &mockOrderRepo{byID: map[string]*Order{"o1": o}}
	codes := &mockCodeRepo{byCode: map[string]*discount.Code{
		"SAVE10":  voucher("SAVE10"),
		"BOOKS20": promotion("BOOKS20"),
	}}
	svc := newTestService(orders, codes)

	_, err := svc.ApplyVoucher(context.Background(), "o1", "SAVE10")
	require.NoError(t, err)

	got, err := svc.ApplyPromotion(context.Background(), "o1", "BOOKS20")
	require.NoError(t, err)

	// 20 from the voucher plus 20 from the promotion.
	assert.True(t, got.Discount.Equal(decimal.NewFromInt(40)), "got %s", got.Discount)
	assert.Equal(t, []string{"v-SAVE10"}, got.AppliedVoucherIDs)
	assert.Equal(t, []string{"pr-BOOKS20"}, got.AppliedPromotionIDs)
}
