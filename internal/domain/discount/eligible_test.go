package discount

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testItems() []Item {
	return []Item{
		{ProductID: "p1", Category: "books", Price: decimal.NewFromInt(10), Quantity: 1},
		{ProductID: "p2", Category: "coffee", Price: decimal.NewFromInt(15), Quantity: 2},
		{ProductID: "p3", Category: "books", Price: decimal.NewFromInt(30), Quantity: 1},
	}
}

func TestEligibleItems_ByProduct(t *testing.T) {
	c := &Code{Kind: KindPromotion, EligibleOn: EligibleProduct, EligibleIDs: []string{"p2", "p3"}}

	eligible, err := EligibleItems(c, testItems())
	require.NoError(t, err)
	require.Len(t, eligible, 2)
	assert.Equal(t, "p2", eligible[0].ProductID)
	assert.Equal(t, "p3", eligible[1].ProductID)
}

func TestEligibleItems_ByCategory(t *testing.T) {
	c := &Code{Kind: KindPromotion, EligibleOn: EligibleCategory, EligibleIDs: []string{"books"}}

	eligible, err := EligibleItems(c, testItems())
	require.NoError(t, err)
	require.Len(t, eligible, 2)
	assert.Equal(t, "p1", eligible[0].ProductID)
	assert.Equal(t, "p3", eligible[1].ProductID)
}

func TestEligibleItems_NoMatch(t *testing.T) {
	c := &Code{Kind: KindPromotion, EligibleOn: EligibleProduct, EligibleIDs: []string{"p9"}}

	eligible, err := EligibleItems(c, testItems())
	require.NoError(t, err)
	assert.Empty(t, eligible)
}

func TestEligibleItems_UnknownSelector(t *testing.T) {
	c := &Code{Kind: KindPromotion, EligibleOn: "brand", EligibleIDs: []string{"acme"}}

	_, err := EligibleItems(c, testItems())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "brand")
}
