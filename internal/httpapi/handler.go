package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/KhamariThompson/100rebuild/internal/auth"
	"github.com/KhamariThompson/100rebuild/internal/logging"
	"github.com/KhamariThompson/100rebuild/internal/progress"
)

// Engines hands out the per-user progress engine.
type Engines interface {
	Engine(userID string) *progress.Engine
}

// Handler serves derived progress metrics to authenticated users.
type Handler struct {
	engines Engines
	clock   progress.Clock
	loc     *time.Location
	logger  *slog.Logger
}

// NewHandler builds a Handler. clock and loc must match the engines' settings
// so the heatmap grid is anchored on the same "today".
func NewHandler(engines Engines, clock progress.Clock, loc *time.Location, logger *slog.Logger) *Handler {
	if clock == nil {
		clock = progress.NewSystemClock()
	}
	if loc == nil {
		loc = time.Local
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{engines: engines, clock: clock, loc: loc, logger: logger}
}

type metricsResponse struct {
	progress.State
	IsLoading bool `json:"is_loading"`
}

type badgeStatus struct {
	progress.Badge
	Earned bool `json:"earned"`
}

// RegisterRoutes registers all metrics routes.
func RegisterRoutes(r chi.Router, h *Handler) {
	r.Route("/v1/metrics", func(r chi.Router) {
		r.Get("/", h.getMetrics)
		r.Post("/refresh", h.refresh)
		r.Get("/heatmap", h.getHeatmap)
		r.Get("/badges", h.getBadges)
	})
}

func (h *Handler) engineFor(w http.ResponseWriter, r *http.Request) (*progress.Engine, bool) {
	userID, ok := auth.ContextProvider{}.CurrentUserID(r.Context())
	if !ok {
		writeError(w, r, "unauthorized", progress.UserMessage(progress.ErrAuthRequired))
		return nil, false
	}
	return h.engines.Engine(userID), true
}

// getMetrics returns the published state, loading it first if nothing was loaded yet.
func (h *Handler) getMetrics(w http.ResponseWriter, r *http.Request) {
	engine, ok := h.engineFor(w, r)
	if !ok {
		return
	}

	if engine.State().Status == progress.StatusIdle {
		if !h.await(w, r, engine, engine.Load(context.WithoutCancel(r.Context()), false)) {
			return
		}
	}

	writeJSON(w, http.StatusOK, toMetricsResponse(engine.State()))
}

// refresh starts a load (forced with ?force=true) and waits for its outcome.
func (h *Handler) refresh(w http.ResponseWriter, r *http.Request) {
	engine, ok := h.engineFor(w, r)
	if !ok {
		return
	}

	force := false
	if raw := r.URL.Query().Get("force"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			writeError(w, r, "bad_request", "force must be a boolean")
			return
		}
		force = parsed
	}

	if !h.await(w, r, engine, engine.Load(context.WithoutCancel(r.Context()), force)) {
		return
	}

	writeJSON(w, http.StatusOK, toMetricsResponse(engine.State()))
}

// await waits for attempt and writes an error response when it failed and
// there is no previously published data to fall back to.
func (h *Handler) await(w http.ResponseWriter, r *http.Request, engine *progress.Engine, attempt *progress.Attempt) bool {
	res, err := attempt.Wait(r.Context())
	if err != nil {
		// Client went away; the attempt keeps running for the next request.
		return false
	}
	if res.Err == nil {
		return true
	}

	logger := logging.WithRequestID(h.logger, middleware.GetReqID(r.Context()))
	logger.Warn("metrics load unsuccessful", "attempt_id", res.AttemptID, "status", res.Status, "error", res.Err)

	switch {
	case res.Status == progress.StatusCancelled:
		// Superseded by a forced refresh; report whatever is published.
		return true
	case progress.KindOf(res.Err) == progress.KindAuthRequired:
	case engine.State().HasData:
		return true
	}

	writeError(w, r, codeFor(res.Err), progress.UserMessage(res.Err))
	return false
}

func (h *Handler) getHeatmap(w http.ResponseWriter, r *http.Request) {
	engine, ok := h.engineFor(w, r)
	if !ok {
		return
	}

	state := engine.State()
	now := h.clock.Now().In(h.loc)
	writeJSON(w, http.StatusOK, progress.ProjectHeatmap(state.Metrics.DateIntensityMap, now))
}

func (h *Handler) getBadges(w http.ResponseWriter, r *http.Request) {
	engine, ok := h.engineFor(w, r)
	if !ok {
		return
	}

	earned := make(map[string]bool)
	for _, b := range engine.State().Metrics.EarnedBadges {
		earned[b.ID] = true
	}

	catalog := progress.BadgeCatalog()
	out := make([]badgeStatus, 0, len(catalog))
	for _, b := range catalog {
		out = append(out, badgeStatus{Badge: b, Earned: earned[b.ID]})
	}
	writeJSON(w, http.StatusOK, map[string]any{"badges": out})
}

func toMetricsResponse(state progress.State) metricsResponse {
	return metricsResponse{State: state, IsLoading: state.IsLoading()}
}
