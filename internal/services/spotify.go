// Spotify API client for the booktunes backend
//
// Spotify API response types based on https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/quillsound/booktunes/internal/shared"
	"golang.org/x/oauth2"
)

const (
	spotifyAuthURL  = "https://accounts.spotify.com/authorize"
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
	spotifyBaseURL  = "https://api.spotify.com/v1"

	// maxPageSize is the upstream cap for list endpoints.
	maxPageSize = 50

	defaultTimeout = 10 * time.Second
)

// spotifyScopes is the fixed scope list requested during authorization.
var spotifyScopes = []string{
	"user-read-private",
	"user-read-email",
	"playlist-read-private",
	"playlist-read-collaborative",
	"user-top-read",
	"user-read-recently-played",
}

// TimeRange parameterizes the top tracks/artists endpoints.
type TimeRange string

const (
	TimeRangeShort  TimeRange = "short_term"
	TimeRangeMedium TimeRange = "medium_term"
	TimeRangeLong   TimeRange = "long_term"
)

// ParseTimeRange validates a time_range request parameter.
// An empty value defaults to medium_term.
func ParseTimeRange(s string) (TimeRange, error) {
	switch TimeRange(s) {
	case "":
		return TimeRangeMedium, nil
	case TimeRangeShort, TimeRangeMedium, TimeRangeLong:
		return TimeRange(s), nil
	default:
		return "", fmt.Errorf("%w: unknown time_range %q", shared.ErrInvalidInput, s)
	}
}

type followers struct {
	Total int `json:"total"`
}

// SpotifyUser represents a Spotify user profile.
type SpotifyUser struct {
	ID          string         `json:"id"`
	DisplayName string         `json:"display_name"`
	Email       string         `json:"email"`
	Country     string         `json:"country"`
	Product     string         `json:"product"` // premium, free, etc.
	Followers   followers      `json:"followers"`
	Images      []SpotifyImage `json:"images"`
}

// SpotifyImage represents an image resource.
type SpotifyImage struct {
	URL    string `json:"url"`
	Height int    `json:"height"`
	Width  int    `json:"width"`
}

type playlistTracks struct {
	Total int `json:"total"`
}

// SpotifyPlaylist holds the typed fields of a playlist item that the
// snapshot cache persists. The full payload travels as raw JSON.
type SpotifyPlaylist struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Tracks      playlistTracks `json:"tracks"`
	Images      []SpotifyImage `json:"images"`
}

// CoverImage returns the URL of the playlist's first image, if any.
func (p *SpotifyPlaylist) CoverImage() string {
	if len(p.Images) == 0 {
		return ""
	}
	return p.Images[0].URL
}

// DecodePlaylist parses a raw playlist item into its typed snapshot fields.
func DecodePlaylist(raw json.RawMessage) (*SpotifyPlaylist, error) {
	var playlist SpotifyPlaylist
	if err := json.Unmarshal(raw, &playlist); err != nil {
		return nil, fmt.Errorf("failed to decode playlist item: %w", err)
	}
	return &playlist, nil
}

// ItemPage represents a paginated Spotify list response with items kept verbatim.
type ItemPage struct {
	Items  []json.RawMessage `json:"items"`
	Total  int               `json:"total"`
	Limit  int               `json:"limit"`
	Offset int               `json:"offset"`
	Next   *string           `json:"next"`
}

// SpotifyService is a stateless multi-user Spotify Web API client.
type SpotifyService struct {
	config     *oauth2.Config
	httpClient *http.Client
	baseURL    string
}

// NewSpotifyService creates a client from the configured OAuth credentials.
func NewSpotifyService(cfg shared.SpotifyConfig) (*SpotifyService, error) {
	if cfg.ClientID == "" {
		return nil, fmt.Errorf("%w: missing spotify client_id", shared.ErrMissingCredentials)
	}
	if cfg.ClientSecret == "" {
		return nil, fmt.Errorf("%w: missing spotify client_secret", shared.ErrMissingCredentials)
	}
	if cfg.RedirectURI == "" {
		return nil, fmt.Errorf("%w: missing spotify redirect_uri", shared.ErrInvalidConfig)
	}

	timeout := defaultTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}

	config := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURI,
		Scopes:       spotifyScopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:  spotifyAuthURL,
			TokenURL: spotifyTokenURL,
		},
	}

	return &SpotifyService{
		config:     config,
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    spotifyBaseURL,
	}, nil
}

func (s *SpotifyService) Name() string {
	return "Spotify"
}

// AuthCodeURL returns the authorization URL binding the given state token.
func (s *SpotifyService) AuthCodeURL(state string) string {
	return s.config.AuthCodeURL(state)
}

// Exchange trades an authorization code for a token pair at the upstream token endpoint.
func (s *SpotifyService) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	token, err := s.config.Exchange(s.oauthContext(ctx), code)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrExchangeFailed, err)
	}
	return token, nil
}

// Refresh mints a new access token with grant_type=refresh_token.
//
// The returned token's Expiry is now + expires_in as reported upstream.
func (s *SpotifyService) Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	src := s.config.TokenSource(s.oauthContext(ctx), &oauth2.Token{RefreshToken: refreshToken})
	token, err := src.Token()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrRefreshFailed, err)
	}
	return token, nil
}

// oauthContext routes the oauth2 package's HTTP calls through the bounded client.
func (s *SpotifyService) oauthContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, s.httpClient)
}

// doRequest performs an authenticated GET against the Spotify API and decodes the response.
func (s *SpotifyService) doRequest(ctx context.Context, accessToken, endpoint string, result any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: status %d", shared.ErrUpstream, resp.StatusCode)
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("%w: failed to decode response: %v", shared.ErrUpstream, err)
		}
	}

	return nil
}

// Profile retrieves the profile of the user the access token belongs to.
func (s *SpotifyService) Profile(ctx context.Context, accessToken string) (*SpotifyUser, error) {
	var user SpotifyUser
	if err := s.doRequest(ctx, accessToken, "/me", &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Playlists retrieves one page of the user's playlists.
// The limit is capped at the upstream page size of 50.
func (s *SpotifyService) Playlists(ctx context.Context, accessToken string, limit int) (*ItemPage, error) {
	if limit <= 0 || limit > maxPageSize {
		limit = maxPageSize
	}

	var page ItemPage
	endpoint := fmt.Sprintf("/me/playlists?limit=%d", limit)
	if err := s.doRequest(ctx, accessToken, endpoint, &page); err != nil {
		return nil, err
	}

	return &page, nil
}

// TopTracks retrieves the user's top tracks for the given time range.
func (s *SpotifyService) TopTracks(ctx context.Context, accessToken string, timeRange TimeRange) ([]json.RawMessage, error) {
	return s.topItems(ctx, accessToken, "tracks", timeRange)
}

// TopArtists retrieves the user's top artists for the given time range.
func (s *SpotifyService) TopArtists(ctx context.Context, accessToken string, timeRange TimeRange) ([]json.RawMessage, error) {
	return s.topItems(ctx, accessToken, "artists", timeRange)
}

func (s *SpotifyService) topItems(ctx context.Context, accessToken, kind string, timeRange TimeRange) ([]json.RawMessage, error) {
	if timeRange == "" {
		timeRange = TimeRangeMedium
	}

	var page ItemPage
	endpoint := fmt.Sprintf("/me/top/%s?time_range=%s&limit=%d", kind, url.QueryEscape(string(timeRange)), maxPageSize)
	if err := s.doRequest(ctx, accessToken, endpoint, &page); err != nil {
		return nil, err
	}

	return page.Items, nil
}

// RecentlyPlayed retrieves the user's recently played tracks.
func (s *SpotifyService) RecentlyPlayed(ctx context.Context, accessToken string) ([]json.RawMessage, error) {
	var page ItemPage
	endpoint := fmt.Sprintf("/me/player/recently-played?limit=%d", maxPageSize)
	if err := s.doRequest(ctx, accessToken, endpoint, &page); err != nil {
		return nil, err
	}

	return page.Items, nil
}
