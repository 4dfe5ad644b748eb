// internal/session/session.go
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/jason-s-yu/belatro/internal/auth"
	"github.com/jason-s-yu/belatro/internal/models"
	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"
)

var ErrNotLoggedIn = errors.New("not logged in")

const (
	KeyToken = "token"
	KeyUser  = "user"

	// KeyLobbyPasswords prefixes remembered private lobby passwords.
	KeyLobbyPasswords = "lobby_password:"
)

// SecretKeys are the keys whose values should be sealed at rest.
var SecretKeys = []string{KeyToken, KeyLobbyPasswords}

// Session is the logged-in identity of the local player. It is the token
// source for the REST client and supplies realtime credentials.
type Session struct {
	store Store
	clock clockwork.Clock
	log   *logrus.Logger

	mu    sync.RWMutex
	token string
	user  models.UserRef
}

func New(store Store, clock clockwork.Clock, logger *logrus.Logger) *Session {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Session{store: store, clock: clock, log: logger}
}

// Hydrate restores a previous login from the store. An expired or
// unreadable token is discarded and the session starts logged out.
func (s *Session) Hydrate(ctx context.Context) error {
	token, err := s.store.Get(ctx, KeyToken)
	switch {
	case errors.Is(err, ErrNotFound):
		return nil
	case errors.Is(err, auth.ErrWrongKey), errors.Is(err, auth.ErrInvalidSealed):
		s.log.WithError(err).Warn("stored token cannot be opened, discarding session")
		return s.clear(ctx)
	case err != nil:
		return fmt.Errorf("failed to load token: %w", err)
	}

	claims, err := auth.InspectToken(token)
	if err != nil || claims.Expired(s.clock.Now()) {
		s.log.WithError(err).Info("discarding stored session token")
		return s.clear(ctx)
	}

	var user models.UserRef
	raw, err := s.store.Get(ctx, KeyUser)
	switch {
	case err == nil:
		if err := json.Unmarshal([]byte(raw), &user); err != nil {
			s.log.WithError(err).Warn("stored user is unreadable, discarding session")
			return s.clear(ctx)
		}
	case errors.Is(err, ErrNotFound):
		user.Username = claims.Subject
	default:
		return fmt.Errorf("failed to load user: %w", err)
	}

	s.mu.Lock()
	s.token, s.user = token, user
	s.mu.Unlock()
	s.log.WithField("user", user.Username).Debug("session restored")
	return nil
}

// Login records a successful login or signup and persists it.
func (s *Session) Login(ctx context.Context, res *models.AuthResponse) error {
	if res == nil || res.Token == "" {
		return errors.New("login response carried no token")
	}
	user, err := json.Marshal(res.User)
	if err != nil {
		return err
	}
	if err := s.store.Set(ctx, KeyToken, res.Token); err != nil {
		return fmt.Errorf("failed to persist token: %w", err)
	}
	if err := s.store.Set(ctx, KeyUser, string(user)); err != nil {
		return fmt.Errorf("failed to persist user: %w", err)
	}

	s.mu.Lock()
	s.token, s.user = res.Token, res.User
	s.mu.Unlock()
	return nil
}

// Logout forgets the identity in memory and in the store.
func (s *Session) Logout(ctx context.Context) error {
	return s.clear(ctx)
}

func (s *Session) clear(ctx context.Context) error {
	s.mu.Lock()
	s.token, s.user = "", models.UserRef{}
	s.mu.Unlock()

	if err := s.store.Delete(ctx, KeyToken); err != nil {
		return fmt.Errorf("failed to delete token: %w", err)
	}
	if err := s.store.Delete(ctx, KeyUser); err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	return nil
}

// Token returns the bearer token, or "" when logged out.
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// User returns the logged-in user or ErrNotLoggedIn.
func (s *Session) User() (models.UserRef, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.token == "" {
		return models.UserRef{}, ErrNotLoggedIn
	}
	return s.user, nil
}

// SetUser replaces the stored identity after a profile change. The token
// is kept.
func (s *Session) SetUser(ctx context.Context, user models.UserRef) error {
	if s.Token() == "" {
		return ErrNotLoggedIn
	}
	raw, err := json.Marshal(user)
	if err != nil {
		return err
	}
	if err := s.store.Set(ctx, KeyUser, string(raw)); err != nil {
		return fmt.Errorf("failed to persist user: %w", err)
	}
	s.mu.Lock()
	s.user = user
	s.mu.Unlock()
	return nil
}

func (s *Session) RememberLobbyPassword(ctx context.Context, lobbyID, password string) error {
	return s.store.Set(ctx, KeyLobbyPasswords+lobbyID, password)
}

// LobbyPassword returns the remembered password for a private lobby, or "".
func (s *Session) LobbyPassword(ctx context.Context, lobbyID string) string {
	pw, err := s.store.Get(ctx, KeyLobbyPasswords+lobbyID)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			s.log.WithError(err).Warn("failed to read lobby password")
		}
		return ""
	}
	return pw
}

func (s *Session) ForgetLobbyPassword(ctx context.Context, lobbyID string) error {
	return s.store.Delete(ctx, KeyLobbyPasswords+lobbyID)
}
