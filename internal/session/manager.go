// AngelaMos | 2026
// manager.go

package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/civiclens/console-client/internal/api"
	"github.com/civiclens/console-client/internal/credentials"
	"github.com/civiclens/console-client/internal/identity"
	"github.com/civiclens/console-client/internal/routes"
)

// IdentityAPI is the slice of the identity service the session
// lifecycle depends on.
type IdentityAPI interface {
	Login(ctx context.Context, req api.LoginRequest) (*api.LoginResponse, error)
	Logout(ctx context.Context) error
	LogoutForce(ctx context.Context) error
	CurrentPrincipal(ctx context.Context) (*identity.Principal, error)
}

// Manager owns every mutation of the credential and session stores.
// All other code reads session truth through Store snapshots.
type Manager struct {
	api    IdentityAPI
	creds  *credentials.Store
	store  *Store
	logger *slog.Logger
}

func NewManager(
	identityAPI IdentityAPI,
	creds *credentials.Store,
	store *Store,
	logger *slog.Logger,
) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		api:    identityAPI,
		creds:  creds,
		store:  store,
		logger: logger,
	}
}

func (m *Manager) Store() *Store {
	return m.store
}

// Bootstrap reconciles the cached token against server truth. Runs once
// per application load.
//
// No token: straight to unauthenticated, no network call. Token
// rejected by the server: the token is discarded. Any other failure:
// the token is kept for a later retry, but the current render is
// unauthenticated. Every branch lowers the loading flag.
func (m *Manager) Bootstrap(ctx context.Context) error {
	if !m.creds.Has() {
		m.store.Logout()
		return nil
	}

	epoch := m.store.Epoch()
	m.store.SetLoading(true)

	principal, err := m.api.CurrentPrincipal(ctx)

	if m.store.Epoch() != epoch {
		// The user signed out while the check was in flight. Logout
		// already settled the store; this result is stale either way.
		m.logger.Debug("discarding stale identity check result")
		return nil
	}

	if err != nil {
		if errors.Is(err, api.ErrUnauthorized) {
			m.logger.Info("cached token rejected, clearing credentials")
			if clearErr := m.creds.Clear(); clearErr != nil {
				m.logger.Warn("failed to clear credentials", "error", clearErr)
			}
			m.store.Logout()
			return nil
		}

		m.logger.Warn("identity check failed, token kept for retry",
			"error", err,
		)
		m.store.Logout()
		return fmt.Errorf("identity check: %w", err)
	}

	m.store.SetAuthenticated(principal)
	return nil
}

// Login authenticates, caches the token, and installs the principal.
// On failure no local state changes; the error carries a message safe
// to show inline.
func (m *Manager) Login(
	ctx context.Context,
	email, password string,
	remember bool,
) (*identity.Principal, error) {
	m.store.SetLoading(true)

	resp, err := m.api.Login(ctx, api.LoginRequest{
		Email:    email,
		Password: password,
	})
	if err != nil {
		m.store.SetLoading(false)
		return nil, err
	}

	persistence := credentials.SessionScoped
	if remember {
		persistence = credentials.Durable
	}

	if err := m.creds.Write(resp.AccessToken, persistence); err != nil {
		m.store.SetLoading(false)
		return nil, fmt.Errorf("store token: %w", err)
	}

	principal := resp.Principal()
	m.store.SetAuthenticated(principal)

	m.logger.Info("signed in",
		"user_id", principal.ID,
		"role", principal.Role,
	)

	return principal, nil
}

// SignOut ends the session local-first: server-side invalidation is
// attempted, but the credential and session stores are reset no matter
// what the server says. Returns the route to navigate to.
func (m *Manager) SignOut(ctx context.Context) string {
	m.store.SetLoading(true)

	err := m.api.Logout(ctx)
	switch {
	case err == nil:
	case errors.Is(err, api.ErrUnauthorized):
		// The session is already dead server-side and cannot be
		// invalidated through the normal path. Best effort only; a
		// failure here changes nothing locally.
		m.logger.Info("session already invalid, forcing logout")
		if forceErr := m.api.LogoutForce(ctx); forceErr != nil {
			m.logger.Warn("forced logout failed", "error", forceErr)
		}
	default:
		m.logger.Warn("server logout failed, proceeding locally",
			"error", err,
		)
	}

	if clearErr := m.creds.Clear(); clearErr != nil {
		m.logger.Warn("failed to clear credentials", "error", clearErr)
	}
	m.store.Logout()

	return routes.LoginPath
}
