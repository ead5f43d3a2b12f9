package discount

import (
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Compute calculates the raw discount a code yields against the given
// eligible base and quantity. The base is the eligible subtotal for
// promotions and the order total for vouchers; the quantity is the summed
// quantity of the eligible items.
//
// Percentage codes discount base * value / 100. Fixed promotions charge the
// value once per eligible unit; fixed vouchers charge it once. The result is
// never negative and never exceeds the base.
func Compute(c *Code, base decimal.Decimal, quantity int) (decimal.Decimal, error) {
	switch c.DiscountType {
	case DiscountPercentage:
		amount := base.Mul(c.DiscountValue).Div(hundred)
		return clamp(amount.Round(2), base), nil
	case DiscountFixed:
		amount := c.DiscountValue
		if c.Kind == KindPromotion {
			amount = amount.Mul(decimal.NewFromInt(int64(quantity)))
		}
		return clamp(amount.Round(2), base), nil
	default:
		return decimal.Zero, errors.Errorf("unsupported discount type: %q", c.DiscountType)
	}
}

// clamp bounds d to the range [0, base].
func clamp(d, base decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return decimal.Min(d, base)
}

// Subtotal returns the sum of price * quantity across all items.
func Subtotal(items []Item) decimal.Decimal {
	sum := decimal.Zero
	for _, item := range items {
		line := item.Price.Mul(decimal.NewFromInt(int64(item.Quantity)))
		sum = sum.Add(line)
	}
	return sum
}

// TotalQuantity returns the sum of quantities across all items.
func TotalQuantity(items []Item) int {
	total := 0
	for _, item := range items {
		total += item.Quantity
	}
	return total
}
