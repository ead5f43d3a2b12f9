package discount

import "github.com/go-faster/errors"

// EligibleItems returns the subsequence of items the promotion applies to,
// preserving order. Matching is by product id or by category depending on the
// promotion's EligibleOn. An unrecognized EligibleOn is an error rather than
// an empty result, so a bad record cannot silently disable a promotion.
func EligibleItems(c *Code, items []Item) ([]Item, error) {
	ids := make(map[string]struct{}, len(c.EligibleIDs))
	for _, id := range c.EligibleIDs {
		ids[id] = struct{}{}
	}

	var match func(Item) bool
	switch c.EligibleOn {
	case EligibleProduct:
		match = func(it Item) bool {
			_, ok := ids[it.ProductID]
			return ok
		}
	case EligibleCategory:
		match = func(it Item) bool {
			_, ok := ids[it.Category]
			return ok
		}
	default:
		return nil, errors.Errorf("unsupported eligibility selector: %q", c.EligibleOn)
	}

	var eligible []Item
	for _, it := range items {
		if match(it) {
			eligible = append(eligible, it)
		}
	}
	return eligible, nil
}
