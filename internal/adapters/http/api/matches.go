package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	service "github.com/okian/pmr/internal/app"
	"github.com/okian/pmr/internal/domain/model"
	"github.com/okian/pmr/internal/domain/rules"
)

// MatchDependencies defines what POST /matches needs.
type MatchDependencies interface {
	Submit(ctx context.Context, m model.Match) (service.SubmitStatus, error)
}

// matchRequest mirrors the OpenAPI schema for POST /matches.
type matchRequest struct {
	MatchID  string            `json:"match_id"`
	Team1    []string          `json:"team1"`
	Team2    []string          `json:"team2"`
	Sets     []*rules.SetInput `json:"sets"`
	PlayedAt string            `json:"played_at"`
}

// toMatch validates the request and converts it to a match.
func (req *matchRequest) toMatch(now time.Time) (model.Match, error) {
	var m model.Match
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

	m = model.Match{
		MatchID:  strings.TrimSpace(req.MatchID),
		Team1:    [2]string{strings.TrimSpace(req.Team1[0]), strings.TrimSpace(req.Team1[1])},
		Team2:    [2]string{strings.TrimSpace(req.Team2[0]), strings.TrimSpace(req.Team2[1])},
		Sets:     scores,
		PlayedAt: now,
	}
	if m.MatchID == "" {
		m.MatchID = uuid.NewString()
	}
	if req.PlayedAt != "" {
		at, err := time.Parse(time.RFC3339, req.PlayedAt)
		if err != nil {
			return m, errors.New("invalid played_at; must be RFC3339")
		}
		m.PlayedAt = at
	}
	return m, m.Validate()
}

// setInputs accepts up to three sets; missing and null entries are unplayed.
func setInputs(in []*rules.SetInput) ([3]rules.SetInput, error) {
	var out [3]rules.SetInput
	if len(in) > len(out) {
		return out, fmt.Errorf("at most %d sets, got %d", len(out), len(in))
	}
	for i, s := range in {
		if s != nil {
			out[i] = *s
		}
	}
	return out, nil
}

type ackResponse struct {
	Status    string `json:"status"`
	MatchID   string `json:"match_id"`
	Duplicate bool   `json:"duplicate"`
}

// MatchesHandler handles match submissions.
type MatchesHandler struct {
	deps MatchDependencies
	now  func() time.Time
}

// NewMatchesHandler creates a new matches handler.
func NewMatchesHandler(deps MatchDependencies) *MatchesHandler {
	return &MatchesHandler{deps: deps, now: time.Now}
}

// HandlePostMatch handles POST /matches requests.
func (h *MatchesHandler) HandlePostMatch(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_match"

	var req matchRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, WrapKind(op, ErrBadRequest, err))
		return
	}
	m, err := req.toMatch(h.now().UTC())
	if err != nil {
		writeError(w, WrapKind(op, ErrBadRequest, err))
		return
	}

	status, err := h.deps.Submit(r.Context(), m)
	if err != nil {
		writeError(w, classify(op, err))
		return
	}
	if status == service.SubmitDuplicate {
		writeJSON(w, http.StatusOK, ackResponse{Status: status.String(), MatchID: m.MatchID, Duplicate: true})
		return
	}
	writeJSON(w, http.StatusAccepted, ackResponse{Status: status.String(), MatchID: m.MatchID})
}
