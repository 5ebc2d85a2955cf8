package product

import (
	"io"

	"github.com/frahmantamala/employee-portal/internal"
	"github.com/frahmantamala/employee-portal/internal/apiclient"
	"github.com/frahmantamala/employee-portal/internal/ethunit"
)

// ProductInput is the multipart form for creating or updating a product.
// Empty fields are left out of the form so an update only sends what
// changed.
type ProductInput struct {
	Name      string
	Category  string
	PriceWei  *ethunit.Wei
	ImageName string
	Image     io.Reader
}

func (in ProductInput) validateCreate() error {
	if in.Name == "" {
		return internal.NewValidationFieldError("name", "name is required", internal.ErrCodeValidationFailed)
	}
	if in.PriceWei == nil {
		return internal.NewValidationFieldError("priceWei", "priceWei is required", internal.ErrCodeValidationFailed)
	}
	return in.validatePrice()
}

func (in ProductInput) validatePrice() error {
	if in.PriceWei != nil && in.PriceWei.Sign() <= 0 {
		return internal.NewValidationFieldError("priceWei", "priceWei must be greater than 0", internal.ErrCodeInvalidAmount)
	}
	return nil
}

func (in ProductInput) form() *apiclient.Form {
	form := apiclient.NewForm()
	if in.Name != "" {
		form.Field("name", in.Name)
	}
	if in.Category != "" {
		form.Field("category", in.Category)
	}
	if in.PriceWei != nil {
		form.Field("priceWei", in.PriceWei.String())
	}
	name := in.ImageName
	if name == "" {
		name = "image"
	}
	return form.File("image", name, in.Image)
}
