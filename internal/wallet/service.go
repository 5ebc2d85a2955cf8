package wallet

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"sync"

	"github.com/frahmantamala/employee-portal/internal"
	"github.com/frahmantamala/employee-portal/internal/core/common/validation"
	"github.com/frahmantamala/employee-portal/internal/core/events"
	"github.com/frahmantamala/employee-portal/internal/session"
	"golang.org/x/sync/errgroup"
)

type API interface {
	Do(ctx context.Context, method, path string, body, out interface{}) error
}

// SessionAPI is what the wallet needs from the session store.
type SessionAPI interface {
	RequireUser() (*session.UserRecord, error)
	BeginSubmit() (release func(), err error)
}

type Service struct {
	api      API
	sessions SessionAPI
	logger   *slog.Logger

	mu      sync.RWMutex
	balance *Balance
	epoch   uint64
}

func NewService(api API, sessions SessionAPI, logger *slog.Logger) *Service {
	return &Service{
		api:      api,
		sessions: sessions,
		logger:   logger,
	}
}

// RegisterEventHandlers drops cached wallet data when the session changes.
func (s *Service) RegisterEventHandlers(bus *events.EventBus) {
	reset := func(ctx context.Context, e events.Event) error {
		s.Reset()
		return nil
	}
	bus.Subscribe(events.EventTypeSessionStarted, reset)
	bus.Subscribe(events.EventTypeSessionEnded, reset)
}

func (s *Service) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.epoch++
	s.balance = nil
}

func (s *Service) currentEpoch() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.epoch
}

// Balance fetches the balance of the session user's wallet. The caller's
// identity comes from the bearer token. A reply that lands after a session
// change is returned but not cached.
func (s *Service) Balance(ctx context.Context) (Balance, error) {
	epoch := s.currentEpoch()

	var out Balance
	if err := s.api.Do(ctx, http.MethodPost, "/employee/balance", struct{}{}, &out); err != nil {
		s.logger.ErrorContext(ctx, "failed to fetch balance", "error", err)
		return Balance{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.epoch != epoch {
		s.logger.DebugContext(ctx, "dropping balance from a previous session")
		return out, nil
	}
	s.balance = &out
	return out, nil
}

// CachedBalance returns the last fetched balance, if any.
func (s *Service) CachedBalance() (Balance, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.balance == nil {
		return Balance{}, false
	}
	return *s.balance, true
}

func (s *Service) Logs(ctx context.Context, userCode internal.Code) (Logs, error) {
	var out Logs
	path := "/employee/" + url.PathEscape(userCode.String()) + "/logs"
	if err := s.api.Do(ctx, http.MethodGet, path, nil, &out); err != nil {
		s.logger.ErrorContext(ctx, "failed to fetch transaction logs", "user_code", userCode, "error", err)
		return Logs{}, err
	}
	if out.Logs == nil {
		out.Logs = []LogEntry{}
	}
	return out, nil
}

// Overview loads balance and history of the session user concurrently.
func (s *Service) Overview(ctx context.Context) (Overview, error) {
	user, err := s.sessions.RequireUser()
	if err != nil {
		return Overview{}, err
	}

	var ov Overview
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		b, err := s.Balance(gctx)
		ov.Balance = b
		return err
	})
	g.Go(func() error {
		l, err := s.Logs(gctx, user.ID)
		ov.Logs = l
		return err
	})
	if err := g.Wait(); err != nil {
		return Overview{}, err
	}
	return ov, nil
}

// Withdraw sends amount ether from the session user's wallet. The amount is
// checked locally against the last known balance before any submission,
// and only one withdrawal or checkout runs at a time. On success the
// cached balance is refreshed.
func (s *Service) Withdraw(ctx context.Context, in WithdrawInput) (internal.Receipt, error) {
	if in.Amount.Sign() <= 0 {
		return internal.Receipt{}, internal.NewValidationError(internal.ErrInvalidAmount.Message, internal.ErrCodeInvalidAmount)
	}

	release, err := s.sessions.BeginSubmit()
	if err != nil {
		s.logger.WarnContext(ctx, "withdrawal rejected: submission in progress")
		return internal.Receipt{}, err
	}
	defer release()

	user, err := s.sessions.RequireUser()
	if err != nil {
		return internal.Receipt{}, err
	}

	bal, ok := s.CachedBalance()
	if !ok {
		if bal, err = s.Balance(ctx); err != nil {
			return internal.Receipt{}, err
		}
	}
	if in.Amount.Cmp(bal.Balance) > 0 {
		s.logger.InfoContext(ctx, "withdrawal exceeds balance", "user_code", user.ID, "amount", in.Amount.String(), "balance", bal.Balance.String())
		return internal.Receipt{}, internal.NewValidationError(internal.ErrInsufficientBalance.Message, internal.ErrCodeInsufficientBalance)
	}

	privateKey := in.PrivateKey
	if privateKey == "" {
		privateKey = user.PrivateKey
	}
	req := withdrawRequest{
		UserCode:   user.ID.String(),
		PrivateKey: privateKey,
		Amount:     in.Amount.Number(),
	}
	if err := validation.Struct(req); err != nil {
		return internal.Receipt{}, err
	}

	var receipt internal.Receipt
	if err := s.api.Do(ctx, http.MethodPost, "/employee/withdraw", req, &receipt); err != nil {
		s.logger.ErrorContext(ctx, "withdrawal failed", "user_code", user.ID, "amount", in.Amount.String(), "error", err)
		return internal.Receipt{}, err
	}
	s.logger.InfoContext(ctx, "withdrawal submitted", "user_code", user.ID, "amount", in.Amount.String(), "transfer_tx", receipt.TransferTx)

	if _, err := s.Balance(ctx); err != nil {
		s.logger.WarnContext(ctx, "balance refresh after withdrawal failed", "error", err)
	}
	return receipt, nil
}
