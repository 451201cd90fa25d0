// Package auth manages the Spotify OAuth token lifecycle for connected users.
//
// [Manager] combines the token refresh engine and the handshake controller:
// it produces currently-valid access tokens on demand (refreshing expired
// ones through the upstream token endpoint), performs the authorization-code
// handshake, reports connection status, and disconnects accounts.
//
// Concurrent refreshes for the same user are tolerated rather than locked
// out: credential writes are atomic single-row upserts and Spotify refresh
// tokens are reusable, so the last successful refresh wins.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/quillsound/booktunes/internal/services"
	"github.com/quillsound/booktunes/internal/shared"
	"github.com/quillsound/booktunes/internal/store"
	"golang.org/x/oauth2"
)

// SpotifyClient is the subset of the Spotify client the manager depends on.
type SpotifyClient interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (*oauth2.Token, error)
	Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error)
	Profile(ctx context.Context, accessToken string) (*services.SpotifyUser, error)
}

// Manager owns the connection lifecycle between local users and their Spotify accounts.
type Manager struct {
	store   store.CredentialStore
	spotify SpotifyClient
	logger  *log.Logger
	now     func() time.Time
}

// NewManager creates a Manager over a credential store and Spotify client.
func NewManager(credStore store.CredentialStore, spotify SpotifyClient, logger *log.Logger) *Manager {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	return &Manager{
		store:   credStore,
		spotify: spotify,
		logger:  logger,
		now:     time.Now,
	}
}

// AuthURL builds the upstream authorization URL with a fresh single-use state token.
//
// The caller holds the state until the callback returns it; the manager does
// not persist issued states.
func (m *Manager) AuthURL(userID string) (authURL, state string) {
	state = shared.GenerateID()
	m.logger.Debug("issued auth url", "user", userID, "state", state)
	return m.spotify.AuthCodeURL(state), state
}

// EnsureValidToken returns a currently-valid access token for the user,
// refreshing through the upstream token endpoint when the stored one has
// expired.
//
// The expiry boundary counts as expired: a token is returned unrefreshed only
// while the current time is strictly before ExpiresAt. On refresh failure the
// stored record is left untouched so a later call can retry with the same
// refresh token.
func (m *Manager) EnsureValidToken(ctx context.Context, userID string) (string, error) {
	rec, err := m.store.Get(ctx, userID)
	if errors.Is(err, shared.ErrNotFound) {
		return "", fmt.Errorf("%w: user %s", shared.ErrNotConnected, userID)
	}
	if err != nil {
		return "", err
	}

	if m.now().Before(rec.ExpiresAt) {
		return rec.AccessToken, nil
	}

	token, err := m.spotify.Refresh(ctx, rec.RefreshToken)
	if err != nil {
		return "", err
	}

	// Spotify does not always rotate refresh tokens; only the access token
	// and expiry change on refresh.
	rec.AccessToken = token.AccessToken
	rec.ExpiresAt = token.Expiry

	if err := m.store.Upsert(ctx, rec); err != nil {
		return "", err
	}

	m.logger.Debug("refreshed access token", "user", userID, "expires_at", rec.ExpiresAt)

	return rec.AccessToken, nil
}

// ExchangeCode completes the handshake: it exchanges the authorization code
// for a token pair, fetches the upstream profile, and stores the credential
// record, overwriting any previous connection for the user.
//
// The state parameter is relayed by the frontend, which compares it against
// the value issued by AuthURL before forwarding the code.
func (m *Manager) ExchangeCode(ctx context.Context, userID, code, state string) (*services.SpotifyUser, error) {
	if code == "" {
		return nil, fmt.Errorf("%w: authorization code", shared.ErrMissingArgument)
	}

	m.logger.Debug("exchanging authorization code", "user", userID, "state", state)

	token, err := m.spotify.Exchange(ctx, code)
	if err != nil {
		return nil, err
	}

	profile, err := m.spotify.Profile(ctx, token.AccessToken)
	if err != nil {
		return nil, err
	}

	rec := &store.CredentialRecord{
		UserID:        userID,
		SpotifyUserID: profile.ID,
		AccessToken:   token.AccessToken,
		RefreshToken:  token.RefreshToken,
		ExpiresAt:     token.Expiry,
	}

	if err := m.store.Upsert(ctx, rec); err != nil {
		return nil, err
	}

	m.logger.Info("spotify account connected", "user", userID, "spotify_user", profile.ID)

	return profile, nil
}

// Status reports whether the user has a working Spotify connection.
//
// A record whose token cannot be refreshed, or whose profile fetch is
// rejected upstream, reports as disconnected; the record itself is kept so
// the user can reconnect or retry. Only storage failures surface as errors.
func (m *Manager) Status(ctx context.Context, userID string) (bool, *services.SpotifyUser, error) {
	_, err := m.store.Get(ctx, userID)
	if errors.Is(err, shared.ErrNotFound) {
		return false, nil, nil
	}
	if err != nil {
		return false, nil, err
	}

	accessToken, err := m.EnsureValidToken(ctx, userID)
	if err != nil {
		if errors.Is(err, shared.ErrStorage) {
			return false, nil, err
		}
		m.logger.Warn("connection unusable", "user", userID, "err", err)
		return false, nil, nil
	}

	profile, err := m.spotify.Profile(ctx, accessToken)
	if err != nil {
		m.logger.Warn("profile fetch rejected", "user", userID, "err", err)
		return false, nil, nil
	}

	return true, profile, nil
}

// Disconnect deletes the user's credential record. Idempotent.
func (m *Manager) Disconnect(ctx context.Context, userID string) error {
	if err := m.store.Delete(ctx, userID); err != nil {
		return err
	}
	m.logger.Info("spotify account disconnected", "user", userID)
	return nil
}
