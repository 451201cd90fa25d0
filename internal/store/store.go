// Package store provides persistence for Spotify credentials and playlist snapshots.
//
// Both stores are backed by SQLite through database/sql. Writes are single-row
// upserts, so concurrent refreshes for the same user resolve last-writer-wins
// without partial-field corruption.
package store

import (
	"context"
	"encoding/json"
	"time"
)

// CredentialRecord holds the Spotify token pair for one local user.
//
// At most one record exists per UserID, enforced by the primary key on the
// spotify_tokens table. The access token must not be used once ExpiresAt has
// passed.
type CredentialRecord struct {
	UserID        string
	SpotifyUserID string
	AccessToken   string
	RefreshToken  string
	ExpiresAt     time.Time
}

// PlaylistSnapshot is a denormalized point-in-time copy of an upstream
// playlist, keyed by (UserID, SpotifyPlaylistID).
type PlaylistSnapshot struct {
	UserID            string
	SpotifyPlaylistID string
	Name              string
	Description       string
	TrackCount        int
	ImageURL          string
	Raw               json.RawMessage
	FetchedAt         time.Time
}

// CredentialStore persists one Spotify credential record per user.
type CredentialStore interface {
	// Get retrieves the record for a user. Returns an error wrapping
	// shared.ErrNotFound when no record exists.
	Get(ctx context.Context, userID string) (*CredentialRecord, error)

	// Upsert inserts or replaces the record keyed by UserID.
	Upsert(ctx context.Context, rec *CredentialRecord) error

	// Delete removes the record for a user. Idempotent; deleting an absent
	// record is not an error.
	Delete(ctx context.Context, userID string) error
}

// PlaylistStore persists playlist snapshots fetched from the upstream API.
type PlaylistStore interface {
	// UpsertPlaylist inserts or replaces a snapshot keyed by
	// (UserID, SpotifyPlaylistID).
	UpsertPlaylist(ctx context.Context, snap *PlaylistSnapshot) error

	// ListPlaylists returns all snapshots cached for a user, most recently
	// fetched first.
	ListPlaylists(ctx context.Context, userID string) ([]PlaylistSnapshot, error)
}
