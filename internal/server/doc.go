// Package server provides HTTP routing, middleware, and the two booktunes endpoints.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
//
// The [BasicRouter] implementation uses [net/http.ServeMux] internally with method filtering.
// OPTIONS requests always reach the middleware chain so the CORS middleware can short-circuit them.
//
// # Endpoints
//
// Both endpoints dispatch POST bodies on a JSON "action" field and answer
// with the envelope {<result-key>: ...} on success or {"error": msg} with a
// non-success status on failure.
//
//   - [AuthHandler] serves /spotify/auth: the OAuth handshake actions plus the
//     plain GET callback that relays code/state (or an upstream error) back to
//     the frontend via redirects.
//   - [DataHandler] serves /spotify/data: the proxied Spotify library queries.
//
// # Caller Identity
//
// POST requests carry an identity-provider bearer token in the Authorization
// header. The [Verifier] resolves it to a local user id; failures map to 401.
// The GET callback is unauthenticated, as the browser arrives there directly
// from Spotify.
package server
