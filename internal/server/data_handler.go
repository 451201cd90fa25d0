package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/quillsound/booktunes/internal/shared"
	"github.com/quillsound/booktunes/internal/tasks"
)

// LibraryInvoker is the capability interface the data endpoint depends on.
// Satisfied by [tasks.LibraryEngine].
type LibraryInvoker interface {
	Invoke(ctx context.Context, userID string, action tasks.Action, params tasks.Params) (*tasks.Result, error)
}

// dataRequest is the POST body of the data endpoint.
type dataRequest struct {
	Action    string `json:"action"`
	TimeRange string `json:"time_range"`
}

// DataHandler serves the authenticated Spotify library proxy endpoint.
type DataHandler struct {
	engine   LibraryInvoker
	verifier Verifier
	logger   *log.Logger
}

// NewDataHandler creates the handler for the /spotify/data endpoint.
func NewDataHandler(engine LibraryInvoker, verifier Verifier, logger *log.Logger) *DataHandler {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	return &DataHandler{
		engine:   engine,
		verifier: verifier,
		logger:   logger,
	}
}

// Routes returns the HTTP routes this handler serves.
func (h *DataHandler) Routes() []string {
	return []string{"/spotify/data"}
}

func (h *DataHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	userID, err := h.verifier.Verify(r.Context(), bearerToken(r))
	if err != nil {
		writeError(w, err)
		return
	}

	var req dataRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, fmt.Errorf("%w: malformed request body", shared.ErrInvalidInput))
		return
	}

	result, err := h.engine.Invoke(r.Context(), userID, tasks.Action(req.Action), tasks.Params{TimeRange: req.TimeRange})
	if err != nil {
		h.logger.Warn("data action failed", "action", req.Action, "user", userID, "err", err)
		writeError(w, err)
		return
	}

	// Return items verbatim under the action's result key. A nil item slice
	// still serializes as an empty list for the frontend.
	items := result.Items
	if items == nil {
		items = []json.RawMessage{}
	}

	writeJSON(w, http.StatusOK, map[string]any{result.Key: items})
}
