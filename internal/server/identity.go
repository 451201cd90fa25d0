package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/quillsound/booktunes/internal/shared"
)

// Verifier resolves an identity-provider bearer token to a local user id.
//
// The booktunes backend does not implement login; it trusts the external
// identity provider that issued the token.
type Verifier interface {
	Verify(ctx context.Context, token string) (userID string, err error)
}

// HTTPVerifier verifies tokens against the identity provider's user endpoint.
type HTTPVerifier struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewHTTPVerifier creates a verifier for the identity provider at baseURL.
func NewHTTPVerifier(baseURL, apiKey string, client *http.Client) *HTTPVerifier {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}

	return &HTTPVerifier{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: client,
	}
}

// Verify calls the provider's user endpoint with the bearer token and
// returns the id of the authenticated user. Any failure maps to
// [shared.ErrUnauthorized]; the caller cannot distinguish an expired token
// from an invalid one, and does not need to.
func (v *HTTPVerifier) Verify(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", shared.ErrUnauthorized
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.baseURL+"/auth/v1/user", nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", shared.ErrUnauthorized, err)
	}

	req.Header.Set("Authorization", "Bearer "+token)
	if v.apiKey != "" {
		req.Header.Set("apikey", v.apiKey)
	}

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", shared.ErrUnauthorized, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("%w: identity provider returned status %d", shared.ErrUnauthorized, resp.StatusCode)
	}

	var user struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil || user.ID == "" {
		return "", fmt.Errorf("%w: malformed identity response", shared.ErrUnauthorized)
	}

	return user.ID, nil
}

// bearerToken extracts the bearer credential from the Authorization header.
func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
}
