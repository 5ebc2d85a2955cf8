package product

import (
	"context"
	"encoding/json"

	"github.com/frahmantamala/employee-portal/internal"
	"github.com/frahmantamala/employee-portal/internal/apiclient"
	"github.com/frahmantamala/employee-portal/internal/ethunit"
)

type Product struct {
	ID          internal.Code `json:"id"`
	ProductCode internal.Code `json:"productCode"`
	Name        string        `json:"name"`
	Category    string        `json:"category,omitempty"`
	PriceWei    ethunit.Wei   `json:"priceWei"`
	Image       string        `json:"image,omitempty"`
}

func (p Product) Key() internal.Code {
	return p.ID
}

// DisplayCategory is the category shown in menus; uncategorised products
// fall under FallbackCategory.
func (p Product) DisplayCategory() string {
	if p.Category == "" {
		return FallbackCategory
	}
	return p.Category
}

// BuyRequest is the purchase payload. TotalAmount is an exact ether
// decimal.
type BuyRequest struct {
	UserCode        internal.Code `json:"userCode" validate:"required"`
	BuyerPrivateKey string        `json:"buyerPrivateKey" validate:"required"`
	Products        []BuyLine     `json:"products" validate:"required,min=1,dive"`
	TotalAmount     json.Number   `json:"totalAmount" validate:"required"`
}

type BuyLine struct {
	ProductCode internal.Code `json:"productCode" validate:"required"`
	Quantity    int           `json:"quantity" validate:"gte=1"`
}

// API is the subset of the portal client used by the product service.
type API interface {
	Do(ctx context.Context, method, path string, body, out interface{}) error
	Upload(ctx context.Context, method, path string, form *apiclient.Form, out interface{}) error
}
