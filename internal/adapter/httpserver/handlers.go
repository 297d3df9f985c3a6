package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/fairyhunter13/job-match-scorer/internal/adapter/cache/rediscache"
	"github.com/fairyhunter13/job-match-scorer/internal/config"
	"github.com/fairyhunter13/job-match-scorer/internal/domain"
)

// Scorer produces a MatchResult. It never fails.
type Scorer interface {
	Score(ctx context.Context, req domain.ScoreRequest) domain.MatchResult
}

// Applications scores and re-scores persisted applications.
type Applications interface {
	Score(ctx context.Context, req domain.ScoreRequest) (domain.ApplicationScore, error)
	Get(ctx context.Context, applicationID string) (domain.ApplicationScore, error)
	RequestRescore(ctx context.Context, req domain.ScoreRequest) (string, error)
}

// RescoreLimiter throttles rescore requests per application.
type RescoreLimiter interface {
	Allow(ctx context.Context, applicationID string) (bool, time.Duration, error)
}

// RemoteDependency is a remote analysis service with a latched availability flag.
type RemoteDependency interface {
	Available() bool
	Stats() map[string]interface{}
	Reprobe(ctx context.Context) bool
}

// ReadinessCheck probes one backing dependency.
type ReadinessCheck func(ctx context.Context) error

// Server aggregates handler dependencies.
type Server struct {
	Cfg          config.Config
	Scorer       Scorer
	Applications Applications
	Limiter      RescoreLimiter
	Remotes      map[string]RemoteDependency
	ModelInfo    func(ctx context.Context) (domain.ModelInfo, error)
	Checks       map[string]ReadinessCheck
}

// NewServer constructs a Server. Optional collaborators are set on the struct.
func NewServer(cfg config.Config, scorer Scorer, apps Applications) *Server {
	return &Server{Cfg: cfg, Scorer: scorer, Applications: apps, Remotes: map[string]RemoteDependency{}, Checks: map[string]ReadinessCheck{}}
}

func notAcceptable(w http.ResponseWriter, r *http.Request) bool {
	a := r.Header.Get("Accept")
	if a == "" || a == "*/*" || strings.Contains(a, "application/json") || strings.Contains(a, "application/*") {
		return false
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusNotAcceptable)
	_ = json.NewEncoder(w).Encode(errorEnvelope{Error: apiError{Code: "INVALID_ARGUMENT", Message: "not acceptable", Details: map[string]string{"accept": a}}})
	return true
}

// decodeScoreRequest reads and validates the body. An empty body is an empty application.
func decodeScoreRequest(w http.ResponseWriter, r *http.Request, applicationID string) (domain.ScoreRequest, bool) {
	var body ScoreRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			writeError(w, r, fmt.Errorf("%w: request body too large", domain.ErrInvalidArgument), map[string]int64{"limit_bytes": mbe.Limit})
			return domain.ScoreRequest{}, false
		}
		writeError(w, r, fmt.Errorf("%w: invalid json", domain.ErrInvalidArgument), nil)
		return domain.ScoreRequest{}, false
	}
	if verrs, err := validateBody(body); err != nil {
		writeError(w, r, err, verrs)
		return domain.ScoreRequest{}, false
	}
	return body.ToDomain(applicationID), true
}

func applicationID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := chi.URLParam(r, "id")
	if err := ValidateApplicationID(id); err != nil {
		writeError(w, r, err, map[string]string{"id": id})
		return "", false
	}
	return id, true
}

// ScoreHandler scores an application without persisting it. It always answers 200 for a valid body.
func (s *Server) ScoreHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if notAcceptable(w, r) {
			return
		}
		req, ok := decodeScoreRequest(w, r, "")
		if !ok {
			return
		}
		if s.Scorer == nil {
			writeError(w, r, fmt.Errorf("%w: scorer not configured", domain.ErrUpstreamUnavailable), nil)
			return
		}
		writeJSON(w, http.StatusOK, s.Scorer.Score(r.Context(), req))
	}
}

// ApplicationScoreHandler scores an application and stores the result on its record.
func (s *Server) ApplicationScoreHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if notAcceptable(w, r) {
			return
		}
		id, ok := applicationID(w, r)
		if !ok {
			return
		}
		req, ok := decodeScoreRequest(w, r, id)
		if !ok {
			return
		}
		rec, err := s.Applications.Score(r.Context(), req)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, toScoreResponse(rec))
	}
}

// GetApplicationScoreHandler returns the stored score of an application.
func (s *Server) GetApplicationScoreHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if notAcceptable(w, r) {
			return
		}
		id, ok := applicationID(w, r)
		if !ok {
			return
		}
		rec, err := s.Applications.Get(r.Context(), id)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		w.Header().Set("Last-Modified", rec.ScoredAt.UTC().Format(http.TimeFormat))
		writeJSON(w, http.StatusOK, toScoreResponse(rec))
	}
}

// RescoreHandler queues a re-score of an edited application and answers 202.
func (s *Server) RescoreHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if notAcceptable(w, r) {
			return
		}
		id, ok := applicationID(w, r)
		if !ok {
			return
		}
		req, ok := decodeScoreRequest(w, r, id)
		if !ok {
			return
		}
		if s.Limiter != nil {
			allowed, wait, err := s.Limiter.Allow(r.Context(), id)
			if err != nil {
				LoggerFrom(r).Warn("rescore throttle unavailable, allowing request", slog.Any("error", err))
			}
			if !allowed {
				retry := rediscache.RetryAfterSeconds(wait)
				w.Header().Set("Retry-After", strconv.Itoa(retry))
				writeError(w, r, fmt.Errorf("%w: too many rescore requests for application %s", domain.ErrRateLimited, id),
					map[string]int{"retry_after_seconds": retry})
				return
			}
		}
		eventID, err := s.Applications.RequestRescore(r.Context(), req)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusAccepted, map[string]string{"application_id": id, "event_id": eventID, "status": "queued"})
	}
}

type dependencyStatus struct {
	Name      string                 `json:"name"`
	Available bool                   `json:"available"`
	Stats     map[string]interface{} `json:"stats,omitempty"`
}

func (s *Server) remoteNames() []string {
	names := make([]string, 0, len(s.Remotes))
	for n := range s.Remotes {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// DependenciesHandler reports the availability latch and call stats of each remote service.
func (s *Server) DependenciesHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if notAcceptable(w, r) {
			return
		}
		deps := make([]dependencyStatus, 0, len(s.Remotes))
		for _, name := range s.remoteNames() {
			d := s.Remotes[name]
			deps = append(deps, dependencyStatus{Name: name, Available: d.Available(), Stats: d.Stats()})
		}
		out := map[string]any{"dependencies": deps}
		if s.ModelInfo != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
			defer cancel()
			if info, err := s.ModelInfo(ctx); err != nil {
				out["model_info_error"] = err.Error()
			} else {
				out["model_info"] = info
			}
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// ReprobeHandler re-runs the health probe of every remote service and resets its latch.
func (s *Server) ReprobeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if notAcceptable(w, r) {
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
		defer cancel()
		out := make(map[string]bool, len(s.Remotes))
		for _, name := range s.remoteNames() {
			out[name] = s.Remotes[name].Reprobe(ctx)
		}
		LoggerFrom(r).Info("remote dependencies reprobed", slog.Any("available", out))
		writeJSON(w, http.StatusOK, map[string]any{"available": out})
	}
}

// ReadyzHandler runs every readiness check and answers 503 when any fails.
func (s *Server) ReadyzHandler() http.HandlerFunc {
	type check struct {
		Name    string `json:"name"`
		OK      bool   `json:"ok"`
		Details string `json:"details,omitempty"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		names := make([]string, 0, len(s.Checks))
		for n := range s.Checks {
			names = append(names, n)
		}
		sort.Strings(names)
		checks := make([]check, 0, len(names))
		ok := true
		for _, n := range names {
			c := check{Name: n, OK: true}
			if err := s.Checks[n](ctx); err != nil {
				c.OK, c.Details, ok = false, err.Error(), false
			}
			checks = append(checks, c)
		}
		st := http.StatusOK
		if !ok {
			st = http.StatusServiceUnavailable
		}
		writeJSON(w, st, map[string]any{"checks": checks})
	}
}
