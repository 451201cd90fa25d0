package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/quillsound/booktunes/internal/shared"
)

// SQLiteStore implements [CredentialStore] and [PlaylistStore] over a SQLite database.
//
// The schema is created by the migrations in internal/shared/sql.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a store over an open database connection.
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Get retrieves the credential record for a user.
func (s *SQLiteStore) Get(ctx context.Context, userID string) (*CredentialRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT user_id, spotify_user_id, access_token, refresh_token, expires_at
		FROM spotify_tokens
		WHERE user_id = ?`, userID)

	var rec CredentialRecord
	err := row.Scan(&rec.UserID, &rec.SpotifyUserID, &rec.AccessToken, &rec.RefreshToken, &rec.ExpiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: no spotify credentials for user %s", shared.ErrNotFound, userID)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrStorage, err)
	}

	return &rec, nil
}

// Upsert inserts or replaces the credential record keyed by user_id.
//
// The write is a single statement, so concurrent refreshes cannot interleave
// partial field updates.
func (s *SQLiteStore) Upsert(ctx context.Context, rec *CredentialRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO spotify_tokens (user_id, spotify_user_id, access_token, refresh_token, expires_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			spotify_user_id = excluded.spotify_user_id,
			access_token = excluded.access_token,
			refresh_token = excluded.refresh_token,
			expires_at = excluded.expires_at,
			updated_at = excluded.updated_at`,
		rec.UserID, rec.SpotifyUserID, rec.AccessToken, rec.RefreshToken, rec.ExpiresAt, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrStorage, err)
	}

	return nil
}

// Delete removes the credential record for a user. Idempotent.
func (s *SQLiteStore) Delete(ctx context.Context, userID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM spotify_tokens WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrStorage, err)
	}
	return nil
}

// UpsertPlaylist inserts or replaces a playlist snapshot.
func (s *SQLiteStore) UpsertPlaylist(ctx context.Context, snap *PlaylistSnapshot) error {
	fetchedAt := snap.FetchedAt
	if fetchedAt.IsZero() {
		fetchedAt = time.Now().UTC()
	}

	raw := snap.Raw
	if len(raw) == 0 {
		raw = []byte("{}")
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO playlist_snapshots (user_id, spotify_playlist_id, name, description, track_count, image_url, raw_data, fetched_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, spotify_playlist_id) DO UPDATE SET
			name = excluded.name,
			description = excluded.description,
			track_count = excluded.track_count,
			image_url = excluded.image_url,
			raw_data = excluded.raw_data,
			fetched_at = excluded.fetched_at`,
		snap.UserID, snap.SpotifyPlaylistID, snap.Name, snap.Description, snap.TrackCount, snap.ImageURL, string(raw), fetchedAt)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrStorage, err)
	}

	return nil
}

// ListPlaylists returns all snapshots cached for a user.
func (s *SQLiteStore) ListPlaylists(ctx context.Context, userID string) ([]PlaylistSnapshot, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT user_id, spotify_playlist_id, name, description, track_count, image_url, raw_data, fetched_at
		FROM playlist_snapshots
		WHERE user_id = ?
		ORDER BY fetched_at DESC, spotify_playlist_id`, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrStorage, err)
	}
	defer rows.Close()

	var snapshots []PlaylistSnapshot
	for rows.Next() {
		var snap PlaylistSnapshot
		var raw string
		if err := rows.Scan(&snap.UserID, &snap.SpotifyPlaylistID, &snap.Name, &snap.Description,
			&snap.TrackCount, &snap.ImageURL, &raw, &snap.FetchedAt); err != nil {
			return nil, fmt.Errorf("%w: %v", shared.ErrStorage, err)
		}
		snap.Raw = []byte(raw)
		snapshots = append(snapshots, snap)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrStorage, err)
	}

	return snapshots, nil
}
