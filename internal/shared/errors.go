package shared

import "fmt"

var (
	// Caller identity errors
	ErrUnauthorized = fmt.Errorf("unauthorized")

	// Spotify connection lifecycle errors
	ErrNotConnected   = fmt.Errorf("spotify not connected")
	ErrRefreshFailed  = fmt.Errorf("token refresh failed")
	ErrExchangeFailed = fmt.Errorf("code exchange failed")
	ErrUpstream       = fmt.Errorf("spotify API request failed")

	// Persistence errors
	ErrStorage  = fmt.Errorf("storage failure")
	ErrNotFound = fmt.Errorf("record not found")

	// Dispatch and input validation errors
	ErrInvalidAction   = fmt.Errorf("invalid action")
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")

	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")
)
