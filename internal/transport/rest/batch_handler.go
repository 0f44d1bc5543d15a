package rest

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/prefpoll/prefpoll/internal/application"
	"github.com/prefpoll/prefpoll/internal/domain"
	"github.com/prefpoll/prefpoll/internal/ports"
)

// BatchHandler handles batch status refresh and result ingestion.
type BatchHandler struct {
	batches   ports.BatchStore
	submitter *application.Submitter
	ingestor  *application.Ingestor
}

// NewBatchHandler creates a batch handler.
func NewBatchHandler(
	batches ports.BatchStore,
	submitter *application.Submitter,
	ingestor *application.Ingestor,
) *BatchHandler {
	return &BatchHandler{
		batches:   batches,
		submitter: submitter,
		ingestor:  ingestor,
	}
}

// RefreshResponse reports the batch state after a refresh and what
// ingestion, if any, it triggered.
type RefreshResponse struct {
	Batch    *domain.Batch `json:"batch"`
	Ingested int           `json:"ingested"`
	Skipped  int           `json:"skipped"`
}

// Refresh handles POST /v1/batches/{id}/refresh. When the refresh turns
// the batch completed and it was not ingested before, the output is
// ingested in the same request. Every chunk of a run is ingested exactly
// once, tracked per batch, so repeated refresh calls stay safe.
func (h *BatchHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	if err := h.submitter.RefreshStatus(r.Context(), id); err != nil {
		writeDomainError(w, err)
		return
	}

	batch, err := h.batches.GetByID(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	resp := RefreshResponse{Batch: batch}
	if batch.Projection.Status == domain.BatchStatusCompleted && !batch.Ingested {
		ingested, skipped, err := h.ingestor.IngestResults(r.Context(), batch)
		switch {
		case errors.Is(err, domain.ErrNoOutput):
			// Completed but output-less batches have nothing to ingest.
		case err != nil:
			writeDomainError(w, err)
			return
		default:
			resp.Ingested = ingested
			resp.Skipped = skipped
		}
	}
	writeJSON(w, http.StatusOK, resp)
}
