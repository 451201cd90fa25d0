// Package tasks implements the authenticated proxy over the Spotify library endpoints.
//
// [LibraryEngine] executes a fixed set of read-only upstream queries on
// behalf of a connected user. Every invocation obtains a valid access token
// first, then issues exactly one upstream call; there is no retry or backoff.
// The playlists action additionally writes denormalized snapshots to the
// cache store as a best-effort side effect.
package tasks

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/quillsound/booktunes/internal/services"
	"github.com/quillsound/booktunes/internal/shared"
	"github.com/quillsound/booktunes/internal/store"
)

// Action identifies one proxied upstream query. The set is closed; unknown
// values are rejected at dispatch with [shared.ErrInvalidAction].
type Action string

const (
	ActionGetPlaylists      Action = "get_playlists"
	ActionGetTopTracks      Action = "get_top_tracks"
	ActionGetTopArtists     Action = "get_top_artists"
	ActionGetRecentlyPlayed Action = "get_recently_played"
)

// Params carries the optional parameters an action accepts.
type Params struct {
	// TimeRange applies to the top tracks/artists actions.
	// Empty defaults to medium_term.
	TimeRange string
}

// Result is a proxied query result: the upstream items verbatim, under the
// response key the frontend expects for the action.
type Result struct {
	Key   string
	Items []json.RawMessage
}

// TokenSource produces a currently-valid access token for a user.
// Satisfied by [auth.Manager].
type TokenSource interface {
	EnsureValidToken(ctx context.Context, userID string) (string, error)
}

// LibraryClient is the subset of the Spotify client the engine depends on.
type LibraryClient interface {
	Playlists(ctx context.Context, accessToken string, limit int) (*services.ItemPage, error)
	TopTracks(ctx context.Context, accessToken string, timeRange services.TimeRange) ([]json.RawMessage, error)
	TopArtists(ctx context.Context, accessToken string, timeRange services.TimeRange) ([]json.RawMessage, error)
	RecentlyPlayed(ctx context.Context, accessToken string) ([]json.RawMessage, error)
}

type actionHandler func(ctx context.Context, userID, accessToken string, params Params) (*Result, error)

// LibraryEngine dispatches proxied library queries for connected users.
type LibraryEngine struct {
	tokens    TokenSource
	spotify   LibraryClient
	playlists store.PlaylistStore
	logger    *log.Logger
	handlers  map[Action]actionHandler
}

// NewLibraryEngine creates an engine with the provided dependencies.
func NewLibraryEngine(tokens TokenSource, spotify LibraryClient, playlists store.PlaylistStore, logger *log.Logger) *LibraryEngine {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	e := &LibraryEngine{
		tokens:    tokens,
		spotify:   spotify,
		playlists: playlists,
		logger:    logger,
	}

	e.handlers = map[Action]actionHandler{
		ActionGetPlaylists:      e.getPlaylists,
		ActionGetTopTracks:      e.getTopTracks,
		ActionGetTopArtists:     e.getTopArtists,
		ActionGetRecentlyPlayed: e.getRecentlyPlayed,
	}

	return e
}

// Invoke executes the named action for the user.
//
// Token errors (not connected, refresh failed) propagate unchanged; upstream
// failures surface wrapping [shared.ErrUpstream].
func (e *LibraryEngine) Invoke(ctx context.Context, userID string, action Action, params Params) (*Result, error) {
	handler, ok := e.handlers[action]
	if !ok {
		return nil, fmt.Errorf("%w: %q", shared.ErrInvalidAction, action)
	}

	accessToken, err := e.tokens.EnsureValidToken(ctx, userID)
	if err != nil {
		return nil, err
	}

	return handler(ctx, userID, accessToken, params)
}

// getPlaylists fetches one page of playlists and upserts a snapshot per item.
//
// Snapshot writes are best-effort: a failed cache write is logged and the
// fetched items are still returned.
func (e *LibraryEngine) getPlaylists(ctx context.Context, userID, accessToken string, _ Params) (*Result, error) {
	page, err := e.spotify.Playlists(ctx, accessToken, 0)
	if err != nil {
		return nil, err
	}

	for _, raw := range page.Items {
		snap := snapshotFromItem(userID, raw)
		if err := e.playlists.UpsertPlaylist(ctx, snap); err != nil {
			e.logger.Warn("playlist snapshot write failed", "user", userID, "playlist", snap.SpotifyPlaylistID, "err", err)
		}
	}

	return &Result{Key: "playlists", Items: page.Items}, nil
}

func (e *LibraryEngine) getTopTracks(ctx context.Context, _, accessToken string, params Params) (*Result, error) {
	timeRange, err := services.ParseTimeRange(params.TimeRange)
	if err != nil {
		return nil, err
	}

	items, err := e.spotify.TopTracks(ctx, accessToken, timeRange)
	if err != nil {
		return nil, err
	}

	return &Result{Key: "tracks", Items: items}, nil
}

func (e *LibraryEngine) getTopArtists(ctx context.Context, _, accessToken string, params Params) (*Result, error) {
	timeRange, err := services.ParseTimeRange(params.TimeRange)
	if err != nil {
		return nil, err
	}

	items, err := e.spotify.TopArtists(ctx, accessToken, timeRange)
	if err != nil {
		return nil, err
	}

	return &Result{Key: "artists", Items: items}, nil
}

func (e *LibraryEngine) getRecentlyPlayed(ctx context.Context, _, accessToken string, _ Params) (*Result, error) {
	items, err := e.spotify.RecentlyPlayed(ctx, accessToken)
	if err != nil {
		return nil, err
	}

	return &Result{Key: "tracks", Items: items}, nil
}

// snapshotFromItem builds a snapshot from a raw playlist item. An item that
// fails typed decoding still produces a snapshot carrying the raw payload.
func snapshotFromItem(userID string, raw json.RawMessage) *store.PlaylistSnapshot {
	snap := &store.PlaylistSnapshot{UserID: userID, Raw: raw}

	if playlist, err := services.DecodePlaylist(raw); err == nil {
		snap.SpotifyPlaylistID = playlist.ID
		snap.Name = playlist.Name
		snap.Description = playlist.Description
		snap.TrackCount = playlist.Tracks.Total
		snap.ImageURL = playlist.CoverImage()
	}

	return snap
}
