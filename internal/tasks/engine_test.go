package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/quillsound/booktunes/internal/auth"
	"github.com/quillsound/booktunes/internal/services"
	"github.com/quillsound/booktunes/internal/shared"
	"github.com/quillsound/booktunes/internal/store"
	"golang.org/x/oauth2"
)

type fakeTokens struct {
	token string
	err   error
	calls int
}

func (f *fakeTokens) EnsureValidToken(_ context.Context, userID string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.token, nil
}

type fakeLibrary struct {
	playlistItems []json.RawMessage
	topItems      []json.RawMessage
	recentItems   []json.RawMessage
	err           error
	gotTimeRange  services.TimeRange
}

func (f *fakeLibrary) Playlists(_ context.Context, _ string, _ int) (*services.ItemPage, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &services.ItemPage{Items: f.playlistItems, Total: len(f.playlistItems)}, nil
}

func (f *fakeLibrary) TopTracks(_ context.Context, _ string, timeRange services.TimeRange) ([]json.RawMessage, error) {
	f.gotTimeRange = timeRange
	return f.topItems, f.err
}

func (f *fakeLibrary) TopArtists(_ context.Context, _ string, timeRange services.TimeRange) ([]json.RawMessage, error) {
	f.gotTimeRange = timeRange
	return f.topItems, f.err
}

func (f *fakeLibrary) RecentlyPlayed(_ context.Context, _ string) ([]json.RawMessage, error) {
	return f.recentItems, f.err
}

type fakePlaylists struct {
	snapshots []*store.PlaylistSnapshot
	upsertErr error
}

func (f *fakePlaylists) UpsertPlaylist(_ context.Context, snap *store.PlaylistSnapshot) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.snapshots = append(f.snapshots, snap)
	return nil
}

func (f *fakePlaylists) ListPlaylists(_ context.Context, userID string) ([]store.PlaylistSnapshot, error) {
	snapshots := make([]store.PlaylistSnapshot, 0, len(f.snapshots))
	for _, snap := range f.snapshots {
		snapshots = append(snapshots, *snap)
	}
	return snapshots, nil
}

func newTestEngine(tokens *fakeTokens, library *fakeLibrary, playlists *fakePlaylists) *LibraryEngine {
	return NewLibraryEngine(tokens, library, playlists, shared.NewLogger(nil))
}

// singleUserStore holds one credential record, mutated in place by upserts.
type singleUserStore struct {
	record store.CredentialRecord
}

func (s *singleUserStore) Get(_ context.Context, userID string) (*store.CredentialRecord, error) {
	if userID != s.record.UserID {
		return nil, fmt.Errorf("%w: %s", shared.ErrNotFound, userID)
	}
	clone := s.record
	return &clone, nil
}

func (s *singleUserStore) Upsert(_ context.Context, rec *store.CredentialRecord) error {
	s.record = *rec
	return nil
}

func (s *singleUserStore) Delete(_ context.Context, userID string) error {
	return nil
}

// refreshingSpotify satisfies both the token manager's and the engine's
// client interfaces, recording which access token the library fetch used.
type refreshingSpotify struct {
	library    fakeLibrary
	refreshCnt int
	fetchToken string
}

func (s *refreshingSpotify) AuthCodeURL(state string) string {
	return "https://accounts.spotify.com/authorize?state=" + state
}

func (s *refreshingSpotify) Exchange(_ context.Context, code string) (*oauth2.Token, error) {
	return nil, shared.ErrExchangeFailed
}

func (s *refreshingSpotify) Refresh(_ context.Context, refreshToken string) (*oauth2.Token, error) {
	s.refreshCnt++
	return &oauth2.Token{AccessToken: "fresh_access", Expiry: time.Now().Add(time.Hour)}, nil
}

func (s *refreshingSpotify) Profile(_ context.Context, accessToken string) (*services.SpotifyUser, error) {
	return &services.SpotifyUser{ID: "spotify_user1"}, nil
}

func (s *refreshingSpotify) Playlists(ctx context.Context, accessToken string, limit int) (*services.ItemPage, error) {
	s.fetchToken = accessToken
	return s.library.Playlists(ctx, accessToken, limit)
}

func (s *refreshingSpotify) TopTracks(ctx context.Context, accessToken string, timeRange services.TimeRange) ([]json.RawMessage, error) {
	s.fetchToken = accessToken
	return s.library.TopTracks(ctx, accessToken, timeRange)
}

func (s *refreshingSpotify) TopArtists(ctx context.Context, accessToken string, timeRange services.TimeRange) ([]json.RawMessage, error) {
	s.fetchToken = accessToken
	return s.library.TopArtists(ctx, accessToken, timeRange)
}

func (s *refreshingSpotify) RecentlyPlayed(ctx context.Context, accessToken string) ([]json.RawMessage, error) {
	s.fetchToken = accessToken
	return s.library.RecentlyPlayed(ctx, accessToken)
}

func TestLibraryEngine(t *testing.T) {
	ctx := context.Background()

	t.Run("Unknown Action", func(t *testing.T) {
		tokens := &fakeTokens{token: "access"}
		e := newTestEngine(tokens, &fakeLibrary{}, &fakePlaylists{})

		_, err := e.Invoke(ctx, "user1", Action("delete_everything"), Params{})
		if !errors.Is(err, shared.ErrInvalidAction) {
			t.Errorf("expected ErrInvalidAction, got %v", err)
		}
		if tokens.calls != 0 {
			t.Errorf("unknown action must be rejected before the token fetch, got %d calls", tokens.calls)
		}
	})

	t.Run("Token Errors Propagate", func(t *testing.T) {
		t.Run("Not Connected", func(t *testing.T) {
			tokens := &fakeTokens{err: fmt.Errorf("%w: user user1", shared.ErrNotConnected)}
			e := newTestEngine(tokens, &fakeLibrary{}, &fakePlaylists{})

			_, err := e.Invoke(ctx, "user1", ActionGetPlaylists, Params{})
			if !errors.Is(err, shared.ErrNotConnected) {
				t.Errorf("expected ErrNotConnected, got %v", err)
			}
		})

		t.Run("Refresh Failed", func(t *testing.T) {
			tokens := &fakeTokens{err: fmt.Errorf("%w: invalid_grant", shared.ErrRefreshFailed)}
			e := newTestEngine(tokens, &fakeLibrary{}, &fakePlaylists{})

			_, err := e.Invoke(ctx, "user1", ActionGetTopTracks, Params{})
			if !errors.Is(err, shared.ErrRefreshFailed) {
				t.Errorf("expected ErrRefreshFailed, got %v", err)
			}
		})
	})

	t.Run("GetPlaylists", func(t *testing.T) {
		items := []json.RawMessage{
			json.RawMessage(`{"id":"pl1","name":"Morning","tracks":{"total":12},"images":[{"url":"https://img/1.jpg"}]}`),
			json.RawMessage(`{"id":"pl2","name":"Evening","tracks":{"total":30},"images":[]}`),
		}

		t.Run("Returns Verbatim Items And Caches Snapshots", func(t *testing.T) {
			playlists := &fakePlaylists{}
			e := newTestEngine(&fakeTokens{token: "access"}, &fakeLibrary{playlistItems: items}, playlists)

			result, err := e.Invoke(ctx, "user1", ActionGetPlaylists, Params{})
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			if result.Key != "playlists" {
				t.Errorf("expected result key playlists, got %s", result.Key)
			}
			if len(result.Items) != 2 {
				t.Fatalf("expected 2 items, got %d", len(result.Items))
			}
			if string(result.Items[0]) != string(items[0]) {
				t.Error("items must be returned verbatim")
			}

			if len(playlists.snapshots) != 2 {
				t.Fatalf("expected one snapshot per item, got %d", len(playlists.snapshots))
			}
			snap := playlists.snapshots[0]
			if snap.SpotifyPlaylistID != "pl1" || snap.Name != "Morning" {
				t.Errorf("unexpected snapshot fields: %+v", snap)
			}
			if snap.TrackCount != 12 {
				t.Errorf("expected track count 12, got %d", snap.TrackCount)
			}
			if snap.ImageURL != "https://img/1.jpg" {
				t.Errorf("expected cover image url, got %s", snap.ImageURL)
			}
			if snap.UserID != "user1" {
				t.Errorf("expected snapshot scoped to user1, got %s", snap.UserID)
			}
		})

		t.Run("Cache Write Failure Is Swallowed", func(t *testing.T) {
			playlists := &fakePlaylists{upsertErr: fmt.Errorf("%w: disk full", shared.ErrStorage)}
			e := newTestEngine(&fakeTokens{token: "access"}, &fakeLibrary{playlistItems: items}, playlists)

			result, err := e.Invoke(ctx, "user1", ActionGetPlaylists, Params{})
			if err != nil {
				t.Fatalf("cache failure must not fail the request, got %v", err)
			}
			if len(result.Items) != 2 {
				t.Errorf("expected fetched items despite cache failure, got %d", len(result.Items))
			}
		})

		t.Run("Upstream Failure", func(t *testing.T) {
			library := &fakeLibrary{err: fmt.Errorf("%w: status 502", shared.ErrUpstream)}
			e := newTestEngine(&fakeTokens{token: "access"}, library, &fakePlaylists{})

			_, err := e.Invoke(ctx, "user1", ActionGetPlaylists, Params{})
			if !errors.Is(err, shared.ErrUpstream) {
				t.Errorf("expected ErrUpstream, got %v", err)
			}
		})
	})

	t.Run("GetTopTracks", func(t *testing.T) {
		t.Run("Defaults To Medium Term", func(t *testing.T) {
			library := &fakeLibrary{topItems: []json.RawMessage{json.RawMessage(`{"id":"t1"}`)}}
			e := newTestEngine(&fakeTokens{token: "access"}, library, &fakePlaylists{})

			result, err := e.Invoke(ctx, "user1", ActionGetTopTracks, Params{})
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if result.Key != "tracks" {
				t.Errorf("expected result key tracks, got %s", result.Key)
			}
			if library.gotTimeRange != services.TimeRangeMedium {
				t.Errorf("expected medium_term default, got %s", library.gotTimeRange)
			}
		})

		t.Run("Honors Time Range", func(t *testing.T) {
			library := &fakeLibrary{}
			e := newTestEngine(&fakeTokens{token: "access"}, library, &fakePlaylists{})

			if _, err := e.Invoke(ctx, "user1", ActionGetTopTracks, Params{TimeRange: "short_term"}); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if library.gotTimeRange != services.TimeRangeShort {
				t.Errorf("expected short_term, got %s", library.gotTimeRange)
			}
		})

		t.Run("Invalid Time Range", func(t *testing.T) {
			e := newTestEngine(&fakeTokens{token: "access"}, &fakeLibrary{}, &fakePlaylists{})

			_, err := e.Invoke(ctx, "user1", ActionGetTopTracks, Params{TimeRange: "all_time"})
			if !errors.Is(err, shared.ErrInvalidInput) {
				t.Errorf("expected ErrInvalidInput, got %v", err)
			}
		})
	})

	t.Run("GetTopArtists", func(t *testing.T) {
		library := &fakeLibrary{topItems: []json.RawMessage{json.RawMessage(`{"id":"a1"}`)}}
		e := newTestEngine(&fakeTokens{token: "access"}, library, &fakePlaylists{})

		result, err := e.Invoke(ctx, "user1", ActionGetTopArtists, Params{TimeRange: "long_term"})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if result.Key != "artists" {
			t.Errorf("expected result key artists, got %s", result.Key)
		}
		if library.gotTimeRange != services.TimeRangeLong {
			t.Errorf("expected long_term, got %s", library.gotTimeRange)
		}
	})

	t.Run("Expired Credential Refreshes Before Fetch", func(t *testing.T) {
		sp := &refreshingSpotify{
			library: fakeLibrary{topItems: []json.RawMessage{json.RawMessage(`{"id":"t1"}`)}},
		}
		credStore := &singleUserStore{record: store.CredentialRecord{
			UserID:       "user1",
			AccessToken:  "stale_access",
			RefreshToken: "refresh123",
			ExpiresAt:    time.Now().Add(-time.Minute),
		}}

		manager := auth.NewManager(credStore, sp, shared.NewLogger(nil))
		e := NewLibraryEngine(manager, sp, &fakePlaylists{}, shared.NewLogger(nil))

		result, err := e.Invoke(ctx, "user1", ActionGetTopTracks, Params{})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if sp.refreshCnt != 1 {
			t.Errorf("expected exactly one refresh before the fetch, got %d", sp.refreshCnt)
		}
		if sp.fetchToken != "fresh_access" {
			t.Errorf("expected fetch to use the refreshed token, got %s", sp.fetchToken)
		}
		if sp.library.gotTimeRange != services.TimeRangeMedium {
			t.Errorf("expected medium_term default, got %s", sp.library.gotTimeRange)
		}
		if result.Key != "tracks" || len(result.Items) != 1 {
			t.Errorf("unexpected result: %+v", result)
		}
		if credStore.record.AccessToken != "fresh_access" {
			t.Errorf("expected refreshed token persisted, got %s", credStore.record.AccessToken)
		}
	})

	t.Run("GetRecentlyPlayed", func(t *testing.T) {
		library := &fakeLibrary{recentItems: []json.RawMessage{
			json.RawMessage(`{"track":{"id":"t1"}}`),
			json.RawMessage(`{"track":{"id":"t2"}}`),
		}}
		e := newTestEngine(&fakeTokens{token: "access"}, library, &fakePlaylists{})

		result, err := e.Invoke(ctx, "user1", ActionGetRecentlyPlayed, Params{})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if result.Key != "tracks" {
			t.Errorf("expected result key tracks, got %s", result.Key)
		}
		if len(result.Items) != 2 {
			t.Errorf("expected 2 items, got %d", len(result.Items))
		}
	})
}
