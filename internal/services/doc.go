// Package services implements the Spotify Web API client used by the booktunes backend.
//
// # Spotify Client
//
// [SpotifyService] wraps an [oauth2.Config] for the authorization-code flow
// and a bounded [net/http.Client] for resource calls. Unlike a CLI client it
// holds no token state: every resource method takes the access token for the
// user the call is made on behalf of, so one client instance serves all users.
//
// # OAuth Primitives
//
// Three primitives cover the token lifecycle:
//   - [SpotifyService.AuthCodeURL] builds the authorization URL for a state token
//   - [SpotifyService.Exchange] trades an authorization code for a token pair
//   - [SpotifyService.Refresh] mints a new access token from a refresh token
//
// # Resource Calls
//
// List endpoints (playlists, top tracks, top artists, recently played) return
// the upstream items verbatim as [encoding/json.RawMessage] slices; callers
// relay them to the frontend unmodified. [DecodePlaylist] extracts the typed
// fields needed for snapshot persistence.
//
// # Error Handling
//
// Failures wrap the sentinels in the shared package:
//   - [shared.ErrExchangeFailed] : the token endpoint rejected the authorization code
//   - [shared.ErrRefreshFailed] : the token endpoint rejected the refresh token
//   - [shared.ErrUpstream] : a resource call returned a non-2xx status
package services
