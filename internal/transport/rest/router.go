package rest

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/prefpoll/prefpoll/internal/application"
	"github.com/prefpoll/prefpoll/internal/ports"
)

// Container holds the collaborators the router's handlers need.
type Container struct {
	Questions ports.QuestionStore
	Batches   ports.BatchStore
	Submitter *application.Submitter
	Ingestor  *application.Ingestor
	Analytics *application.Analytics
}

// NewRouter creates the API router with all endpoints.
func NewRouter(c *Container) http.Handler {
	r := mux.NewRouter()

	questionHandler := NewQuestionHandler(c.Questions, c.Batches, c.Submitter)
	batchHandler := NewBatchHandler(c.Batches, c.Submitter, c.Ingestor)
	chartHandler := NewChartHandler(c.Analytics)

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")

	v1 := r.PathPrefix("/v1").Subrouter()

	v1.HandleFunc("/questions", questionHandler.Create).Methods("POST")
	v1.HandleFunc("/questions", questionHandler.List).Methods("GET")
	v1.HandleFunc("/questions/{uuid}", questionHandler.Get).Methods("GET")
	v1.HandleFunc("/questions/{uuid}", questionHandler.Update).Methods("PUT")
	v1.HandleFunc("/questions/{uuid}/submit", questionHandler.Submit).Methods("POST")

	v1.HandleFunc("/batches/{id}/refresh", batchHandler.Refresh).Methods("POST")

	v1.HandleFunc("/questions/{uuid}/preference-counts", chartHandler.PreferenceCounts).Methods("GET")
	v1.HandleFunc("/questions/{uuid}/preference-heatmap", chartHandler.PreferenceHeatmap).Methods("GET")
	v1.HandleFunc("/questions/{uuid}/elo-ratings", chartHandler.EloRatings).Methods("GET")
	v1.HandleFunc("/questions/{uuid}/confidence-distribution", chartHandler.ConfidenceDistribution).Methods("GET")
	v1.HandleFunc("/questions/{uuid}/preference-flows", chartHandler.PreferenceFlows).Methods("GET")

	return r
}
