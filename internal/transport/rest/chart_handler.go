package rest

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/prefpoll/prefpoll/internal/application"
)

// ChartHandler serves the analytics endpoints over the latest run.
// Context filters arrive as query parameters; keys outside the question's
// declared dimensions are ignored.
type ChartHandler struct {
	analytics *application.Analytics
}

// NewChartHandler creates a chart handler.
func NewChartHandler(analytics *application.Analytics) *ChartHandler {
	return &ChartHandler{analytics: analytics}
}

// contextFilters flattens query parameters to single-valued equality
// filters. Repeated parameters keep the first value.
func contextFilters(r *http.Request) map[string]string {
	filters := make(map[string]string)
	for key, values := range r.URL.Query() {
		if len(values) > 0 && values[0] != "" {
			filters[key] = values[0]
		}
	}
	return filters
}

func (h *ChartHandler) serve(
	w http.ResponseWriter,
	r *http.Request,
	build func(id uuid.UUID, filters map[string]string) (any, error),
) {
	id, err := uuid.Parse(mux.Vars(r)["uuid"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid question uuid")
		return
	}

	data, err := build(id, contextFilters(r))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, data)
}

// PreferenceCounts handles GET /v1/questions/{uuid}/preference-counts.
func (h *ChartHandler) PreferenceCounts(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, func(id uuid.UUID, filters map[string]string) (any, error) {
		return h.analytics.PreferenceCounts(r.Context(), id, filters)
	})
}

// PreferenceHeatmap handles GET /v1/questions/{uuid}/preference-heatmap.
func (h *ChartHandler) PreferenceHeatmap(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, func(id uuid.UUID, filters map[string]string) (any, error) {
		return h.analytics.PreferenceHeatmap(r.Context(), id, filters)
	})
}

// EloRatings handles GET /v1/questions/{uuid}/elo-ratings.
func (h *ChartHandler) EloRatings(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, func(id uuid.UUID, filters map[string]string) (any, error) {
		return h.analytics.EloRatings(r.Context(), id, filters)
	})
}

// ConfidenceDistribution handles GET /v1/questions/{uuid}/confidence-distribution.
func (h *ChartHandler) ConfidenceDistribution(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, func(id uuid.UUID, filters map[string]string) (any, error) {
		return h.analytics.ConfidenceDistribution(r.Context(), id, filters)
	})
}

// PreferenceFlows handles GET /v1/questions/{uuid}/preference-flows.
func (h *ChartHandler) PreferenceFlows(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, func(id uuid.UUID, filters map[string]string) (any, error) {
		return h.analytics.PreferenceFlows(r.Context(), id, filters)
	})
}
