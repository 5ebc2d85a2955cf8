package product

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/frahmantamala/employee-portal/internal"
	"github.com/frahmantamala/employee-portal/internal/core/common/validation"
	"github.com/frahmantamala/employee-portal/internal/core/events"
	"github.com/frahmantamala/employee-portal/internal/resource"
)

type Service struct {
	api     API
	records *resource.Context[Product]
	logger  *slog.Logger
}

func NewService(api API, logger *slog.Logger) *Service {
	return &Service{
		api:     api,
		records: resource.New("products", Product.Key, logger),
		logger:  logger,
	}
}

// Records exposes the cached catalogue with its loading and error state.
func (s *Service) Records() *resource.Context[Product] {
	return s.records
}

func (s *Service) RegisterEventHandlers(bus *events.EventBus) {
	s.records.RegisterEventHandlers(bus)
}

// List reloads the catalogue. Anything other than a JSON array is taken
// as an empty catalogue.
func (s *Service) List(ctx context.Context) ([]Product, error) {
	products, err := s.records.FetchAll(ctx, func(ctx context.Context) ([]Product, error) {
		var raw json.RawMessage
		if err := s.api.Do(ctx, http.MethodGet, "/products", nil, &raw); err != nil {
			return nil, err
		}
		raw = bytes.TrimSpace(raw)
		if len(raw) == 0 || raw[0] != '[' {
			s.logger.WarnContext(ctx, "product list response is not an array")
			return []Product{}, nil
		}
		var out []Product
		if err := json.Unmarshal(raw, &out); err != nil {
			return nil, &internal.AppError{
				Type:    internal.ErrorTypeRemote,
				Code:    internal.ErrCodeMalformedResponse,
				Message: "malformed product list",
				Cause:   err,
			}
		}
		return out, nil
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to list products", "error", err)
		return nil, err
	}
	return products, nil
}

// Create adds a product and reloads the catalogue.
func (s *Service) Create(ctx context.Context, in ProductInput) (Product, error) {
	if err := in.validateCreate(); err != nil {
		return Product{}, err
	}

	var created Product
	err := s.records.Run(ctx, func(ctx context.Context) error {
		return s.api.Upload(ctx, http.MethodPost, "/products", in.form(), &created)
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to create product", "name", in.Name, "error", err)
		return Product{}, err
	}
	s.logger.InfoContext(ctx, "product created", "name", in.Name, "product_code", created.ProductCode)

	s.refresh(ctx)
	return created, nil
}

// Update replaces the fields present in in and reloads the catalogue.
func (s *Service) Update(ctx context.Context, productCode internal.Code, in ProductInput) (Product, error) {
	if productCode.IsZero() {
		return Product{}, internal.NewValidationFieldError("productCode", "productCode is required", internal.ErrCodeValidationFailed)
	}
	if err := in.validatePrice(); err != nil {
		return Product{}, err
	}

	var updated Product
	err := s.records.Run(ctx, func(ctx context.Context) error {
		return s.api.Upload(ctx, http.MethodPut, "/products/"+url.PathEscape(productCode.String()), in.form(), &updated)
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to update product", "product_code", productCode, "error", err)
		return Product{}, err
	}

	s.refresh(ctx)
	return updated, nil
}

func (s *Service) refresh(ctx context.Context) {
	if _, err := s.List(ctx); err != nil {
		s.logger.WarnContext(ctx, "product list refresh failed", "error", err)
	}
}

// Buy submits a purchase. The catalogue is not reloaded.
func (s *Service) Buy(ctx context.Context, req BuyRequest) (internal.Receipt, error) {
	if err := validation.Struct(req); err != nil {
		return internal.Receipt{}, err
	}

	var receipt internal.Receipt
	err := s.records.Run(ctx, func(ctx context.Context) error {
		return s.api.Do(ctx, http.MethodPost, "/products/buy", req, &receipt)
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "purchase failed", "user_code", req.UserCode, "lines", len(req.Products), "error", err)
		return internal.Receipt{}, err
	}

	s.logger.InfoContext(ctx, "purchase submitted", "user_code", req.UserCode, "total", req.TotalAmount, "transfer_tx", receipt.TransferTx)
	return receipt, nil
}
