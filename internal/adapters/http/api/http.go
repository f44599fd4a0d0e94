// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	service "github.com/okian/pmr/internal/app"
	"github.com/okian/pmr/internal/domain/types"
	"github.com/okian/pmr/pkg/logger"
)

// Default request limits.
const (
	defaultMaxLeaderboardLimit = 1000
	defaultHistoryLimit        = 20
	maxBodyBytes               = 1 << 20
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to the service implementation.
type Dependencies interface {
	MatchDependencies
	PreviewDependencies
	LeaderboardDependencies
	PlayerDependencies
	StatsProvider
}

// Entry mirrors the read shape returned by leaderboard queries.
type Entry = types.Entry

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler      *HealthHandler
	statsHandler       *StatsHandler
	matchesHandler     *MatchesHandler
	previewHandler     *PreviewHandler
	leaderboardHandler *LeaderboardHandler
	playerHandler      *PlayerHandler
	stream             http.Handler
	logger             logger.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithStream mounts a live update stream at /ws.
func WithStream(h http.Handler) Option {
	return func(s *Server) {
		s.stream = h
	}
}

// WithLogger sets the logger used for failed requests.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewServer creates a new API server with all handlers. A maxLimit below one
// uses the default leaderboard limit.
func NewServer(deps Dependencies, maxLimit int, opts ...Option) *Server {
	if maxLimit < 1 {
		maxLimit = defaultMaxLeaderboardLimit
	}
	s := &Server{
		healthHandler:      NewHealthHandler(),
		statsHandler:       NewStatsHandler(deps),
		matchesHandler:     NewMatchesHandler(deps),
		previewHandler:     NewPreviewHandler(deps),
		leaderboardHandler: NewLeaderboardHandler(deps, maxLimit),
		playerHandler:      NewPlayerHandler(deps),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("api")
	}
	return s
}

// Register attaches all HTTP routes to r.
func (s *Server) Register(_ context.Context, r chi.Router) {
	r.Get("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	r.Get("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	r.Post("/matches", MetricsMiddleware(s.logged(s.matchesHandler.HandlePostMatch), "matches"))
	r.Post("/ratings/preview", MetricsMiddleware(s.logged(s.previewHandler.HandlePreview), "preview"))
	r.Get("/leaderboard", MetricsMiddleware(s.leaderboardHandler.HandleGetLeaderboard, "leaderboard"))
	r.Get("/players/{id}", MetricsMiddleware(s.playerHandler.HandleGetPlayer, "players"))
	if s.stream != nil {
		r.Handle("/ws", s.stream)
	}
}

// logged logs server-side failures of next.
func (s *Server) logged(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(wrapped, r)
		if wrapped.statusCode >= http.StatusInternalServerError {
			s.logger.Error(r.Context(), "request failed",
				logger.String("path", r.URL.Path),
				logger.String("request_id", RequestIDFromContext(r.Context())),
				logger.Int("status", wrapped.statusCode),
			)
		}
	}
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes err with the status its kind maps to.
func writeError(w http.ResponseWriter, err error) {
	status, code := statusFor(err)
	writeJSON(w, status, errorResponse{Code: code, Message: err.Error()})
}

// decodeJSON reads a size-limited JSON body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v)
}

// Compile-time check that the service satisfies the handler dependencies.
var _ Dependencies = (*service.Service)(nil)
