package api

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/okian/pmr/internal/domain/model"
)

// PlayerDependencies defines the interface for player lookups.
type PlayerDependencies interface {
	Player(ctx context.Context, playerID string, historyLimit int) (Entry, []model.HistoryEntry, error)
}

type playerResponse struct {
	Entry
	History []model.HistoryEntry `json:"history"`
}

// PlayerHandler handles player requests.
type PlayerHandler struct {
	deps PlayerDependencies
}

// NewPlayerHandler creates a new player handler.
func NewPlayerHandler(deps PlayerDependencies) *PlayerHandler {
	return &PlayerHandler{deps: deps}
}

// HandleGetPlayer handles GET /players/{id}?history=N requests.
func (h *PlayerHandler) HandleGetPlayer(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_player"

	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		writeError(w, NewKind(op, ErrBadRequest))
		return
	}
	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("history"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, NewKind(op, ErrBadRequest))
			return
		}
		limit = n
	}

	entry, history, err := h.deps.Player(r.Context(), id, limit)
	if err != nil {
		writeError(w, classify(op, err))
		return
	}
	if history == nil {
		history = []model.HistoryEntry{}
	}
	writeJSON(w, http.StatusOK, playerResponse{Entry: entry, History: history})
}
