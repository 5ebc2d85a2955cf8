// Package order turns the cart into a purchase.
package order

import (
	"context"
	"log/slog"

	"github.com/frahmantamala/employee-portal/internal"
	"github.com/frahmantamala/employee-portal/internal/ethunit"
	"github.com/frahmantamala/employee-portal/internal/product"
	"github.com/frahmantamala/employee-portal/internal/session"
)

// Buyer submits purchases; *product.Service satisfies it.
type Buyer interface {
	Buy(ctx context.Context, req product.BuyRequest) (internal.Receipt, error)
}

// SessionAPI is what checkout needs from the session store.
type SessionAPI interface {
	RequireUser() (*session.UserRecord, error)
	BeginSubmit() (release func(), err error)
}

type Service struct {
	buyer    Buyer
	sessions SessionAPI
	logger   *slog.Logger
}

func NewService(buyer Buyer, sessions SessionAPI, logger *slog.Logger) *Service {
	return &Service{
		buyer:    buyer,
		sessions: sessions,
		logger:   logger,
	}
}

// Checkout buys the cart contents with the session user's wallet. Only one
// checkout or withdrawal runs at a time per session; a concurrent call
// fails with ErrSubmissionInProgress before reaching the API. The cart is
// cleared only when the purchase is accepted.
func (s *Service) Checkout(ctx context.Context, cart *Cart) (internal.Receipt, error) {
	release, err := s.sessions.BeginSubmit()
	if err != nil {
		s.logger.WarnContext(ctx, "checkout rejected: submission in progress")
		return internal.Receipt{}, err
	}
	defer release()

	lines := cart.Lines()
	if len(lines) == 0 {
		return internal.Receipt{}, internal.NewValidationError(internal.ErrEmptyCart.Message, internal.ErrCodeEmptyCart)
	}

	user, err := s.sessions.RequireUser()
	if err != nil {
		return internal.Receipt{}, err
	}

	req := BuildRequest(user, lines)
	receipt, err := s.buyer.Buy(ctx, req)
	if err != nil {
		return internal.Receipt{}, err
	}

	cart.Clear()
	s.logger.InfoContext(ctx, "checkout complete", "user_code", req.UserCode, "lines", len(lines), "total_eth", req.TotalAmount)
	return receipt, nil
}

// BuildRequest assembles the purchase payload for lines.
func BuildRequest(user *session.UserRecord, lines []Line) product.BuyRequest {
	items := make([]product.BuyLine, 0, len(lines))
	for _, l := range lines {
		items = append(items, product.BuyLine{ProductCode: l.Product.ProductCode, Quantity: l.Quantity})
	}
	return product.BuyRequest{
		UserCode:        user.ID,
		BuyerPrivateKey: user.PrivateKey,
		Products:        items,
		TotalAmount:     ethunit.EtherFromWei(total(lines)).Number(),
	}
}
