package api

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/shopspring/decimal"

	"promo-engine/internal/domain/discount"
	"promo-engine/internal/domain/order"
)

type orderItemRequest struct {
	ProductID string          `json:"productId"`
	Category  string          `json:"category"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
}

func (r orderItemRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.ProductID, validation.Required),
		validation.Field(&r.Category, validation.Required),
		validation.Field(&r.Price, validation.Min(decimal.NewFromInt(0))),
		validation.Field(&r.Quantity, validation.Min(1)),
	)
}

type createOrderRequest struct {
	Items []orderItemRequest `json:"items"`
}

func (r createOrderRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Items, validation.Required, validation.Length(1, 500)),
	)
}

type applyCodeRequest struct {
	Code string `json:"code"`
}

func (r applyCodeRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Code, validation.Required, validation.Length(1, 64)),
	)
}

type createVoucherRequest struct {
	Code              string          `json:"code"`
	DiscountType      string          `json:"discountType"`
	DiscountValue     decimal.Decimal `json:"discountValue"`
	ExpirationDate    time.Time       `json:"expirationDate"`
	UsageLimit        int             `json:"usageLimit"`
	MinimumOrderValue decimal.Decimal `json:"minimumOrderValue"`
}

func (r createVoucherRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Code, validation.Required, validation.Length(1, 64)),
		validation.Field(&r.DiscountType, validation.Required,
			validation.In(string(discount.DiscountPercentage), string(discount.DiscountFixed))),
		validation.Field(&r.DiscountValue, validation.Min(decimal.NewFromInt(0))),
		validation.Field(&r.ExpirationDate, validation.Required),
		validation.Field(&r.UsageLimit, validation.Min(1)),
		validation.Field(&r.MinimumOrderValue, validation.Min(decimal.NewFromInt(0))),
	)
}

func (r createVoucherRequest) toParams() discount.CreateParams {
	return discount.CreateParams{
		Kind:              discount.KindVoucher,
		Code:              r.Code,
		DiscountType:      discount.DiscountType(r.DiscountType),
		DiscountValue:     r.DiscountValue,
		ExpirationDate:    r.ExpirationDate,
		UsageLimit:        r.UsageLimit,
		MinimumOrderValue: r.MinimumOrderValue,
	}
}

type createPromotionRequest struct {
	Code           string          `json:"code"`
	DiscountType   string          `json:"discountType"`
	DiscountValue  decimal.Decimal `json:"discountValue"`
	ExpirationDate time.Time       `json:"expirationDate"`
	UsageLimit     int             `json:"usageLimit"`
	EligibleOn     string          `json:"eligibleOn"`
	EligibleIDs    []string        `json:"eligibleIds"`
}

func (r createPromotionRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Code, validation.Required, validation.Length(1, 64)),
		validation.Field(&r.DiscountType, validation.Required,
			validation.In(string(discount.DiscountPercentage), string(discount.DiscountFixed))),
		validation.Field(&r.DiscountValue, validation.Min(decimal.NewFromInt(0))),
		validation.Field(&r.ExpirationDate, validation.Required),
		validation.Field(&r.UsageLimit, validation.Min(1)),
		validation.Field(&r.EligibleOn, validation.Required,
			validation.In(string(discount.EligibleProduct), string(discount.EligibleCategory))),
		validation.Field(&r.EligibleIDs, validation.Required, validation.Length(1, 500)),
	)
}

func (r createPromotionRequest) toParams() discount.CreateParams {
	return discount.CreateParams{
		Kind:           discount.KindPromotion,
		Code:           r.Code,
		DiscountType:   discount.DiscountType(r.DiscountType),
		DiscountValue:  r.DiscountValue,
		ExpirationDate: r.ExpirationDate,
		UsageLimit:     r.UsageLimit,
		EligibleOn:     discount.EligibleOn(r.EligibleOn),
		EligibleIDs:    r.EligibleIDs,
	}
}

// updateCodeRequest covers both kinds; nil fields stay unchanged. Ozzo skips
// nil pointers, so rules only fire for fields present in the payload.
type updateCodeRequest struct {
	Code              *string          `json:"code"`
	DiscountType      *string          `json:"discountType"`
	DiscountValue     *decimal.Decimal `json:"discountValue"`
	ExpirationDate    *time.Time       `json:"expirationDate"`
	UsageLimit        *int             `json:"usageLimit"`
	MinimumOrderValue *decimal.Decimal `json:"minimumOrderValue"`
	EligibleOn        *string          `json:"eligibleOn"`
	EligibleIDs       []string         `json:"eligibleIds"`
}

func (r updateCodeRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Code, validation.Length(1, 64)),
		validation.Field(&r.DiscountType,
			validation.In(string(discount.DiscountPercentage), string(discount.DiscountFixed))),
		validation.Field(&r.DiscountValue, validation.Min(decimal.NewFromInt(0))),
		validation.Field(&r.UsageLimit, validation.Min(1)),
		validation.Field(&r.MinimumOrderValue, validation.Min(decimal.NewFromInt(0))),
		validation.Field(&r.EligibleOn,
			validation.In(string(discount.EligibleProduct), string(discount.EligibleCategory))),
	)
}

func (r updateCodeRequest) toPatch() discount.Patch {
	patch := discount.Patch{
		Code:              r.Code,
		DiscountValue:     r.DiscountValue,
		ExpirationDate:    r.ExpirationDate,
		UsageLimit:        r.UsageLimit,
		MinimumOrderValue: r.MinimumOrderValue,
		EligibleIDs:       r.EligibleIDs,
	}
	if r.DiscountType != nil {
		dt := discount.DiscountType(*r.DiscountType)
		patch.DiscountType = &dt
	}
	if r.EligibleOn != nil {
		eo := discount.EligibleOn(*r.EligibleOn)
		patch.EligibleOn = &eo
	}
	return patch
}

// adjustUsageRequest shifts a code's usage counter by delta; negative values
// release slots. Zero is rejected as a no-op.
type adjustUsageRequest struct {
	Delta int `json:"delta"`
}

func (r adjustUsageRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Delta, validation.Required),
	)
}

type orderItemResponse struct {
	ProductID string  `json:"productId"`
	Category  string  `json:"category"`
	Price     float64 `json:"price"`
	Quantity  int     `json:"quantity"`
}

type orderResponse struct {
	ID                  string              `json:"id"`
	TotalAmount         float64             `json:"totalAmount"`
	Discount            float64             `json:"discount"`
	Items               []orderItemResponse `json:"items"`
	AppliedVoucherIDs   []string            `json:"appliedVoucherIds"`
	AppliedPromotionIDs []string            `json:"appliedPromotionIds"`
	CreatedAt           time.Time           `json:"createdAt"`
}

func toOrderResponse(o *order.Order) orderResponse {
	items := make([]orderItemResponse, len(o.Items))
	for i, item := range o.Items {
		items[i] = orderItemResponse{
			ProductID: item.ProductID,
			Category:  item.Category,
			Price:     item.Price.InexactFloat64(),
			Quantity:  item.Quantity,
		}
	}
	return orderResponse{
		ID:                  o.ID,
		TotalAmount:         o.TotalAmount.InexactFloat64(),
		Discount:            o.Discount.InexactFloat64(),
		Items:               items,
		AppliedVoucherIDs:   emptyIfNil(o.AppliedVoucherIDs),
		AppliedPromotionIDs: emptyIfNil(o.AppliedPromotionIDs),
		CreatedAt:           o.CreatedAt,
	}
}

type codeResponse struct {
	ID                string    `json:"id"`
	Kind              string    `json:"kind"`
	Code              string    `json:"code"`
	DiscountType      string    `json:"discountType"`
	DiscountValue     float64   `json:"discountValue"`
	ExpirationDate    time.Time `json:"expirationDate"`
	UsageLimit        int       `json:"usageLimit"`
	UsageCount        int       `json:"usageCount"`
	MinimumOrderValue float64   `json:"minimumOrderValue,omitempty"`
	EligibleOn        string    `json:"eligibleOn,omitempty"`
	EligibleIDs       []string  `json:"eligibleIds,omitempty"`
	CreatedAt         time.Time `json:"createdAt"`
}

func toCodeResponse(c *discount.Code) codeResponse {
	return codeResponse{
		ID:                c.ID,
		Kind:              string(c.Kind),
		Code:              c.Code,
		DiscountType:      string(c.DiscountType),
		DiscountValue:     c.DiscountValue.InexactFloat64(),
		ExpirationDate:    c.ExpirationDate,
		UsageLimit:        c.UsageLimit,
		UsageCount:        c.UsageCount,
		MinimumOrderValue: c.MinimumOrderValue.InexactFloat64(),
		EligibleOn:        string(c.EligibleOn),
		EligibleIDs:       c.EligibleIDs,
		CreatedAt:         c.CreatedAt,
	}
}

type pageResponse struct {
	Page  int            `json:"page"`
	Size  int            `json:"size"`
	Count int64          `json:"count"`
	Data  []codeResponse `json:"data"`
}

func toPageResponse(p *discount.Page) pageResponse {
	data := make([]codeResponse, len(p.Data))
	for i := range p.Data {
		data[i] = toCodeResponse(&p.Data[i])
	}
	return pageResponse{Page: p.Page, Size: p.Size, Count: p.Count, Data: data}
}

func emptyIfNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}
