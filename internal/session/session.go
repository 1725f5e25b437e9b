package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/desertthunder/birdseye/internal/classify"
	"github.com/desertthunder/birdseye/internal/models"
	"github.com/desertthunder/birdseye/internal/shared"
)

// Storage keys, shared with the browser client.
const (
	TokenKey    = "authToken"
	IdentityKey = "userEmail"
)

// Store is the persistent key/value store behind a [Manager].
// [repositories.ClientStateRepository] is the production implementation.
type Store interface {
	Get(key string) (string, bool, error)
	SetMany(values map[string]string) error
	Delete(keys ...string) error
}

// Manager reads and writes the persisted session.
type Manager struct {
	store Store
}

// NewManager creates a [Manager] backed by store.
func NewManager(store Store) *Manager {
	return &Manager{store: store}
}

// Acquire persists identity and token, overwriting any prior session.
func (m *Manager) Acquire(identity, token string) error {
	if token == "" {
		return fmt.Errorf("%w: empty token", shared.ErrInvalidInput)
	}

	err := m.store.SetMany(map[string]string{
		TokenKey:    token,
		IdentityKey: identity,
	})
	if err != nil {
		return fmt.Errorf("failed to persist session: %w", err)
	}
	return nil
}

// CurrentToken returns the stored token, or "" when there is none.
func (m *Manager) CurrentToken() (string, error) {
	token, _, err := m.store.Get(TokenKey)
	if err != nil {
		return "", fmt.Errorf("failed to read session: %w", err)
	}
	return token, nil
}

// Identity returns the stored identity, or "" when there is none.
func (m *Manager) Identity() (string, error) {
	identity, _, err := m.store.Get(IdentityKey)
	if err != nil {
		return "", fmt.Errorf("failed to read session: %w", err)
	}
	return identity, nil
}

// IsAuthenticated reports whether a non-empty token is stored.
// A storage failure counts as anonymous.
func (m *Manager) IsAuthenticated() bool {
	token, err := m.CurrentToken()
	return err == nil && token != ""
}

// Current returns the whole stored session.
func (m *Manager) Current() (models.Session, error) {
	token, err := m.CurrentToken()
	if err != nil {
		return models.Session{}, err
	}
	identity, err := m.Identity()
	if err != nil {
		return models.Session{}, err
	}
	return models.Session{Token: token, Identity: identity}, nil
}

// Clear removes the token and the identity.
func (m *Manager) Clear() error {
	if err := m.store.Delete(TokenKey, IdentityKey); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}

// RequireSession is the checkpoint at the entry of every protected action.
// It returns the stored session, or a [classify.Error] with the LoginRequired category.
func (m *Manager) RequireSession() (models.Session, error) {
	sess, err := m.Current()
	if err != nil {
		return models.Session{}, err
	}
	if !sess.Valid() {
		return models.Session{}, classify.LoginRequired()
	}
	return sess, nil
}

// ExpiresAt reads the exp claim of the stored token without verifying its signature.
// The boolean is false when there is no token, it is not a JWT, or it has no exp claim.
// The server remains the authority: an expired-looking token is still sent and a 401 decides.
func (m *Manager) ExpiresAt() (time.Time, bool, error) {
	token, err := m.CurrentToken()
	if err != nil || token == "" {
		return time.Time{}, false, err
	}
	return TokenExpiry(token)
}

// SignedInAt reports when the current token was stored. The boolean is false when there is
// no token or the store does not record write times.
func (m *Manager) SignedInAt() (time.Time, bool, error) {
	stamped, ok := m.store.(interface {
		UpdatedAt(key string) (time.Time, error)
	})
	if !ok {
		return time.Time{}, false, nil
	}

	at, err := stamped.UpdatedAt(TokenKey)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("failed to read session: %w", err)
	}
	return at, !at.IsZero(), nil
}

// TokenExpiry extracts the exp claim from a JWT without verifying it.
func TokenExpiry(token string) (time.Time, bool, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		if errors.Is(err, jwt.ErrTokenMalformed) {
			return time.Time{}, false, nil
		}
		return time.Time{}, false, fmt.Errorf("failed to read token claims: %w", err)
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false, nil
	}
	return exp.Time, true, nil
}
