package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/okian/pmr/internal/domain/rating"
	"github.com/okian/pmr/internal/domain/rules"
)

// PreviewDependencies defines what POST /ratings/preview needs.
type PreviewDependencies interface {
	Preview(ctx context.Context, m rating.Match, o rating.Overrides) ([4]rating.Result, rating.Outcome, error)
}

type snapshotRequest struct {
	ID          string  `json:"id"`
	PMR         float64 `json:"pmr"`
	Reliability float64 `json:"reliability"`
}

func (s snapshotRequest) snapshot() rating.PlayerSnapshot {
	return rating.PlayerSnapshot{ID: s.ID, PMR: s.PMR, Reliability: s.Reliability}
}

// previewRequest carries full player state, so nothing is read from storage.
type previewRequest struct {
	Team1  []snapshotRequest `json:"team1"`
	Team2  []snapshotRequest `json:"team2"`
	Sets   []*rules.SetInput `json:"sets"`
	Params rating.Overrides  `json:"params"`
}

func (req *previewRequest) toMatch() (rating.Match, error) {
	var m rating.Match
	if len(req.Team1) != 2 || len(req.Team2) != 2 {
		return m, errors.New("each team must name exactly two players")
	}
	sets, err := setInputs(req.Sets)
	if err != nil {
		return m, err
	}
	scores, err := rules.Validate(sets)
	if err != nil {
		return m, err
	}
	m.Team1 = [2]rating.PlayerSnapshot{req.Team1[0].snapshot(), req.Team1[1].snapshot()}
	m.Team2 = [2]rating.PlayerSnapshot{req.Team2[0].snapshot(), req.Team2[1].snapshot()}
	m.Sets = scores
	return m, nil
}

type previewResponse struct {
	Outcome string           `json:"outcome"`
	Results [4]rating.Result `json:"results"`
}

// PreviewHandler computes rating changes without storing them.
type PreviewHandler struct {
	deps PreviewDependencies
}

// NewPreviewHandler creates a new preview handler.
func NewPreviewHandler(deps PreviewDependencies) *PreviewHandler {
	return &PreviewHandler{deps: deps}
}

// HandlePreview handles POST /ratings/preview requests.
func (h *PreviewHandler) HandlePreview(w http.ResponseWriter, r *http.Request) {
	const op = "api.preview"

	var req previewRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, WrapKind(op, ErrBadRequest, err))
		return
	}
	m, err := req.toMatch()
	if err != nil {
		writeError(w, WrapKind(op, ErrBadRequest, err))
		return
	}

	results, outcome, err := h.deps.Preview(r.Context(), m, req.Params)
	if err != nil {
		writeError(w, classify(op, err))
		return
	}
	writeJSON(w, http.StatusOK, previewResponse{Outcome: outcome.String(), Results: results})
}
