// Package session holds the identity of the signed-in user.
//
// A Store is the only writer of the current Session. It is restored from a
// Persister at startup, replaced by Login and destroyed by Logout. Every
// other component reads it through Current.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/s0up4200/reelpick/api"
)

var (
	// ErrNotLoggedIn is returned when an operation needs a session and none exists
	ErrNotLoggedIn = errors.New("not logged in")
)

// Session is the signed-in user
type Session struct {
	UserID   int64    `json:"userId"`
	Username string   `json:"username"`
	Name     string   `json:"name,omitempty"`
	Role     api.Role `json:"role"`
}

// DisplayName returns the name when known, otherwise the username
func (s *Session) DisplayName() string {
	if s.Name != "" {
		return s.Name
	}
	return s.Username
}

// LoginError is a failed login with a message fit for display
type LoginError struct {
	Reason string
	Err    error
}

func (e *LoginError) Error() string {
	return e.Reason
}

func (e *LoginError) Unwrap() error {
	return e.Err
}

// Store owns the current session.
type Store struct {
	mu       sync.RWMutex
	current  *Session
	restored bool

	auth      api.Authenticator
	persister Persister
	logger    zerolog.Logger
}

// NewStore creates a store. Call Restore before consulting it.
func NewStore(auth api.Authenticator, persister Persister, logger zerolog.Logger) *Store {
	if persister == nil {
		persister = NewMemoryPersister()
	}
	return &Store{
		auth:      auth,
		persister: persister,
		logger:    logger.With().Str("component", "session").Logger(),
	}
}

// Restore loads the persisted session. It makes no network call. A corrupt or
// unreadable record is discarded and the store comes up signed out.
func (s *Store) Restore(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	stored, err := s.persister.Load()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.restored = true

	if err != nil {
		s.logger.Warn().Err(err).Msg("Discarding unreadable session")
		if clearErr := s.persister.Clear(); clearErr != nil {
			s.logger.Error().Err(clearErr).Msg("Failed to clear unreadable session")
		}
		s.current = nil
		return nil
	}
	if stored != nil && (stored.UserID <= 0 || !stored.Role.Valid()) {
		s.logger.Warn().Int64("user_id", stored.UserID).Str("role", string(stored.Role)).Msg("Discarding invalid session")
		_ = s.persister.Clear()
		stored = nil
	}

	s.current = stored
	if stored != nil {
		s.logger.Debug().Str("username", stored.Username).Msg("Session restored")
	}
	return nil
}

// Restored reports whether Restore has completed
func (s *Store) Restored() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.restored
}

// Current returns the signed-in session
func (s *Store) Current() (*Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return nil, false
	}
	cp := *s.current
	return &cp, true
}

// Login authenticates and replaces the current session. On failure the
// previous state is left untouched and a *LoginError is returned.
func (s *Store) Login(ctx context.Context, username, password string) (*Session, error) {
	user, err := s.auth.Login(ctx, api.Credentials{Username: strings.TrimSpace(username), Password: password})
	if err != nil {
		s.logger.Debug().Err(err).Str("username", username).Msg("Login failed")
		return nil, &LoginError{Reason: loginFailureReason(err), Err: err}
	}
	if user.ID <= 0 || !user.Role.Valid() {
		err := fmt.Errorf("login returned user %d with role %q", user.ID, user.Role)
		return nil, &LoginError{Reason: "invalid credentials", Err: err}
	}

	next := &Session{
		UserID:   user.ID,
		Username: user.Username,
		Name:     user.Name,
		Role:     user.Role,
	}

	if err := s.persister.Save(next); err != nil {
		return nil, fmt.Errorf("failed to persist session: %w", err)
	}

	s.mu.Lock()
	s.current = next
	s.restored = true
	s.mu.Unlock()

	s.logger.Info().Str("username", next.Username).Str("role", string(next.Role)).Msg("Logged in")
	cp := *next
	return &cp, nil
}

// Logout clears the in-memory and persisted session. It never fails from the
// caller's point of view; persistence errors are logged.
func (s *Store) Logout() {
	s.mu.Lock()
	prev := s.current
	s.current = nil
	s.mu.Unlock()

	if err := s.persister.Clear(); err != nil {
		s.logger.Error().Err(err).Msg("Failed to clear persisted session")
	}
	if prev != nil {
		s.logger.Info().Str("username", prev.Username).Msg("Logged out")
	}
}

// Require returns the current session or ErrNotLoggedIn
func (s *Store) Require() (*Session, error) {
	current, ok := s.Current()
	if !ok {
		return nil, ErrNotLoggedIn
	}
	return current, nil
}

func loginFailureReason(err error) string {
	if apiErr, ok := api.AsAPIError(err); ok {
		if apiErr.ServerMessage != "" {
			return apiErr.ServerMessage
		}
		return "invalid credentials"
	}
	if api.IsNetworkError(err) {
		return "network error, please try again"
	}
	var vErr *api.ValidationError
	if errors.As(err, &vErr) {
		return vErr.Error()
	}
	return "invalid credentials"
}
