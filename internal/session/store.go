// Package session owns the authenticated session: login, logout, restore
// from durable storage, and the guard that serialises wallet-spending
// submissions.
package session

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/frahmantamala/employee-portal/internal"
	"github.com/frahmantamala/employee-portal/internal/core/common/validation"
	"github.com/frahmantamala/employee-portal/internal/core/events"
	"github.com/golang-jwt/jwt/v5"
)

type loginResponse struct {
	Token string          `json:"token"`
	User  json.RawMessage `json:"user"`
}

type Store struct {
	api    API
	repo   RepositoryAPI
	sealer Sealer
	bus    *events.EventBus
	logger *slog.Logger

	mu         sync.RWMutex
	current    Session
	submitting atomic.Bool
}

func NewStore(api API, repo RepositoryAPI, sealer Sealer, bus *events.EventBus, logger *slog.Logger) *Store {
	if sealer == nil {
		sealer = PlainSealer{}
	}
	return &Store{
		api:    api,
		repo:   repo,
		sealer: sealer,
		bus:    bus,
		logger: logger,
	}
}

// Login exchanges credentials for a session. The session is persisted
// before it becomes visible in memory, and every resource context has been
// reset by the time Login returns.
func (s *Store) Login(ctx context.Context, creds Credentials) (*UserRecord, error) {
	if err := validation.Struct(creds); err != nil {
		return nil, err
	}

	var resp loginResponse
	if err := s.api.Do(ctx, http.MethodPost, "/login", creds, &resp); err != nil {
		if appErr, ok := internal.IsAppError(err); ok && appErr.Type == internal.ErrorTypeRemote &&
			appErr.StatusCode >= 400 && appErr.StatusCode < 500 {
			msg := appErr.Message
			if msg == "" {
				msg = internal.ErrInvalidCredentials.Message
			}
			s.logger.InfoContext(ctx, "login rejected", "username", creds.Username, "status", appErr.StatusCode)
			return nil, internal.NewAuthError(msg, internal.ErrCodeInvalidCredentials).WithCause(err)
		}
		s.logger.ErrorContext(ctx, "login failed", "username", creds.Username, "error", err)
		return nil, err
	}

	if resp.Token == "" {
		s.logger.WarnContext(ctx, "login response carried no token", "username", creds.Username)
		return nil, internal.NewAuthError(internal.ErrMalformedLoginResponse.Message, internal.ErrCodeMalformedLoginResponse)
	}

	rawUser := resp.User
	if len(rawUser) == 0 {
		rawUser = json.RawMessage("null")
	}
	user, err := decodeUser(rawUser)
	if err != nil {
		return nil, internal.NewAuthError("user not found in login response", internal.ErrCodeMalformedLoginResponse).WithCause(err)
	}

	if err := s.persist(ctx, resp.Token, string(rawUser)); err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.current = Session{Token: resp.Token, User: user}
	s.mu.Unlock()

	var userID internal.Code
	var username string
	if user != nil {
		userID, username = user.ID, user.Username
	}
	s.logger.InfoContext(ctx, "logged in", "user_id", userID, "username", username)
	s.publish(ctx, events.NewSessionStartedEvent(userID.String(), username))

	return user, nil
}

func (s *Store) persist(ctx context.Context, token, user string) error {
	sealedToken, err := s.sealer.Seal(token)
	if err != nil {
		return storageError("failed to seal session token", err)
	}
	sealedUser, err := s.sealer.Seal(user)
	if err != nil {
		return storageError("failed to seal session user", err)
	}
	if err := s.repo.Save(ctx, map[string]string{KeyToken: sealedToken, KeyUser: sealedUser}); err != nil {
		return storageError("failed to persist session", err)
	}
	return nil
}

// Logout ends the session. The in-memory session is cleared even when the
// durable entries cannot be removed. Calling Logout twice is harmless.
func (s *Store) Logout(ctx context.Context) error {
	s.mu.Lock()
	s.current = Session{}
	s.mu.Unlock()

	err := s.repo.Delete(ctx, KeyToken, KeyUser)
	s.publish(ctx, events.NewSessionEndedEvent(events.SessionEndReasonLogout))

	if err != nil {
		s.logger.ErrorContext(ctx, "failed to clear durable session", "error", err)
		return storageError("failed to clear session", err)
	}
	s.logger.InfoContext(ctx, "logged out")
	return nil
}

// Restore loads the session from durable storage without contacting the
// API. A stored token is trusted until a request is rejected. Unreadable
// entries are discarded and leave the store logged out.
func (s *Store) Restore(ctx context.Context) (Session, error) {
	entries, err := s.repo.Load(ctx)
	if err != nil {
		return Session{}, storageError("failed to load session", err)
	}

	storedToken, ok := entries[KeyToken]
	if !ok || storedToken == "" {
		s.setCurrent(Session{})
		return Session{}, nil
	}

	restored, err := s.open(storedToken, entries[KeyUser])
	if err != nil {
		s.logger.WarnContext(ctx, "discarding unreadable session", "error", err)
		s.setCurrent(Session{})
		if delErr := s.repo.Delete(ctx, KeyToken, KeyUser); delErr != nil {
			return Session{}, storageError("failed to clear unreadable session", delErr)
		}
		s.publish(ctx, events.NewSessionEndedEvent(events.SessionEndReasonCorrupt))
		return Session{}, nil
	}

	s.setCurrent(restored)
	return restored, nil
}

func (s *Store) open(storedToken, storedUser string) (Session, error) {
	token, err := s.sealer.Open(storedToken)
	if err != nil {
		return Session{}, err
	}
	if storedUser == "" {
		return Session{Token: token}, nil
	}
	rawUser, err := s.sealer.Open(storedUser)
	if err != nil {
		return Session{}, err
	}
	user, err := decodeUser(json.RawMessage(rawUser))
	if err != nil {
		return Session{}, err
	}
	return Session{Token: token, User: user}, nil
}

func decodeUser(raw json.RawMessage) (*UserRecord, error) {
	var user *UserRecord
	if err := json.Unmarshal(raw, &user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *Store) setCurrent(sess Session) {
	s.mu.Lock()
	s.current = sess
	s.mu.Unlock()
}

func (s *Store) publish(ctx context.Context, event events.Event) {
	if s.bus == nil {
		return
	}
	if err := s.bus.PublishSync(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "session event handler failed", "event_type", event.EventType(), "error", err)
	}
}

// Current returns a snapshot of the session.
func (s *Store) Current() Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Token satisfies apiclient.TokenSource.
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.Token
}

// User returns the logged-in user, or nil.
func (s *Store) User() *UserRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current.Token == "" {
		return nil
	}
	return s.current.User
}

func (s *Store) IsLoggedIn() bool {
	return s.Token() != ""
}

// RequireUser returns the logged-in user or ErrNoSession.
func (s *Store) RequireUser() (*UserRecord, error) {
	user := s.User()
	if user == nil || user.ID.IsZero() {
		return nil, internal.NewAuthError(internal.ErrNoSession.Message, internal.ErrCodeNoSession)
	}
	return user, nil
}

// TokenExpiry reads the exp claim of a JWT session token without
// verifying it. ok is false for opaque tokens or tokens without exp.
func (s *Store) TokenExpiry() (exp time.Time, ok bool) {
	token := s.Token()
	if token == "" {
		return time.Time{}, false
	}
	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return time.Time{}, false
	}
	claim, err := parsed.Claims.GetExpirationTime()
	if err != nil || claim == nil {
		return time.Time{}, false
	}
	return claim.Time, true
}

// BeginSubmit claims the session's submission slot. Only one checkout or
// withdrawal may be in flight; a second caller gets
// ErrSubmissionInProgress. release is idempotent.
func (s *Store) BeginSubmit() (release func(), err error) {
	if !s.submitting.CompareAndSwap(false, true) {
		return nil, internal.ErrSubmissionInProgress
	}
	var once sync.Once
	return func() {
		once.Do(func() { s.submitting.Store(false) })
	}, nil
}

// Submitting reports whether a submission is in flight.
func (s *Store) Submitting() bool {
	return s.submitting.Load()
}

func storageError(message string, cause error) error {
	return &internal.AppError{
		Type:       internal.ErrorTypeInternal,
		Code:       internal.ErrCodeStorage,
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		Cause:      cause,
	}
}
