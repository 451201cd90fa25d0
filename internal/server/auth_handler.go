package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/charmbracelet/log"
	"github.com/quillsound/booktunes/internal/services"
	"github.com/quillsound/booktunes/internal/shared"
)

// Authenticator is the capability interface the auth endpoint depends on.
// Satisfied by [auth.Manager].
type Authenticator interface {
	AuthURL(userID string) (authURL, state string)
	ExchangeCode(ctx context.Context, userID, code, state string) (*services.SpotifyUser, error)
	Status(ctx context.Context, userID string) (bool, *services.SpotifyUser, error)
	Disconnect(ctx context.Context, userID string) error
}

// authRequest is the POST body of the auth endpoint.
type authRequest struct {
	Action string `json:"action"`
	Code   string `json:"code"`
	State  string `json:"state"`
}

type authAction string

const (
	authActionGetAuthURL   authAction = "get_auth_url"
	authActionExchangeCode authAction = "exchange_code"
	authActionGetProfile   authAction = "get_profile"
	authActionDisconnect   authAction = "disconnect"
)

type authActionHandler func(ctx context.Context, userID string, req authRequest) (any, error)

// AuthHandler serves the OAuth handshake endpoint.
//
// POST requests dispatch on the body's action field. GET requests are the
// Spotify redirect callback: the handler relays code/state (or an upstream
// error) back to the frontend, which completes the exchange over POST.
type AuthHandler struct {
	manager     Authenticator
	verifier    Verifier
	frontendURL string
	logger      *log.Logger
	actions     map[authAction]authActionHandler
}

// NewAuthHandler creates the handler for the /spotify/auth endpoint.
func NewAuthHandler(manager Authenticator, verifier Verifier, frontendURL string, logger *log.Logger) *AuthHandler {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	h := &AuthHandler{
		manager:     manager,
		verifier:    verifier,
		frontendURL: frontendURL,
		logger:      logger,
	}

	h.actions = map[authAction]authActionHandler{
		authActionGetAuthURL:   h.getAuthURL,
		authActionExchangeCode: h.exchangeCode,
		authActionGetProfile:   h.getProfile,
		authActionDisconnect:   h.disconnect,
	}

	return h
}

// Routes returns the HTTP routes this handler serves.
func (h *AuthHandler) Routes() []string {
	return []string{"/spotify/auth"}
}

func (h *AuthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.callback(w, r)
	case http.MethodPost:
		h.dispatch(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// callback handles the browser redirect from Spotify's authorization page.
//
// The state comparison happens on the frontend, which holds the value issued
// with the auth URL; this handler only relays the query parameters.
func (h *AuthHandler) callback(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	target := h.frontendURL + "/auth"

	if errParam := query.Get("error"); errParam != "" {
		h.logger.Warn("authorization denied upstream", "error", errParam)
		target += "?error=" + url.QueryEscape(errParam)
	} else if code, state := query.Get("code"), query.Get("state"); code != "" && state != "" {
		target += "?code=" + url.QueryEscape(code) + "&state=" + url.QueryEscape(state)
	}

	http.Redirect(w, r, target, http.StatusFound)
}

// dispatch verifies the caller and routes the POST body to its action handler.
func (h *AuthHandler) dispatch(w http.ResponseWriter, r *http.Request) {
	userID, err := h.verifier.Verify(r.Context(), bearerToken(r))
	if err != nil {
		writeError(w, err)
		return
	}

	var req authRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, fmt.Errorf("%w: malformed request body", shared.ErrInvalidInput))
		return
	}

	handler, ok := h.actions[authAction(req.Action)]
	if !ok {
		writeError(w, fmt.Errorf("%w: %q", shared.ErrInvalidAction, req.Action))
		return
	}

	result, err := handler(r.Context(), userID, req)
	if err != nil {
		h.logger.Warn("auth action failed", "action", req.Action, "user", userID, "err", err)
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (h *AuthHandler) getAuthURL(_ context.Context, userID string, _ authRequest) (any, error) {
	authURL, state := h.manager.AuthURL(userID)
	return map[string]string{"authUrl": authURL, "state": state}, nil
}

func (h *AuthHandler) exchangeCode(ctx context.Context, userID string, req authRequest) (any, error) {
	profile, err := h.manager.ExchangeCode(ctx, userID, req.Code, req.State)
	if err != nil {
		return nil, err
	}

	return map[string]any{"success": true, "profile": profile}, nil
}

func (h *AuthHandler) getProfile(ctx context.Context, userID string, _ authRequest) (any, error) {
	connected, profile, err := h.manager.Status(ctx, userID)
	if err != nil {
		return nil, err
	}

	if !connected {
		return map[string]any{"connected": false}, nil
	}

	return map[string]any{"connected": true, "profile": profile}, nil
}

func (h *AuthHandler) disconnect(ctx context.Context, userID string, _ authRequest) (any, error) {
	if err := h.manager.Disconnect(ctx, userID); err != nil {
		return nil, err
	}

	return map[string]any{"success": true}, nil
}
