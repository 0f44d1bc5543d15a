package application

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/prefpoll/prefpoll/internal/domain"
	"github.com/prefpoll/prefpoll/internal/ports"
)

// Submitter expands a question into request units, hands the serialized
// lines to the external batch service in size-bounded chunks, and records
// one batch record per chunk, all sharing a single run identifier.
type Submitter struct {
	questions ports.QuestionStore
	batches   ports.BatchStore
	units     ports.RequestUnitStore
	svc       ports.BatchService
	metrics   ports.MetricsCollector
	encoder   *Encoder
	maxLines  int
}

// NewSubmitter creates a Submitter. maxLines caps the number of request
// lines per chunk; zero or negative falls back to DefaultMaxBatchLines.
func NewSubmitter(
	questions ports.QuestionStore,
	batches ports.BatchStore,
	units ports.RequestUnitStore,
	svc ports.BatchService,
	metrics ports.MetricsCollector,
	encoder *Encoder,
	maxLines int,
) *Submitter {
	if maxLines <= 0 {
		maxLines = DefaultMaxBatchLines
	}
	if metrics == nil {
		metrics = ports.NopMetrics{}
	}
	return &Submitter{
		questions: questions,
		batches:   batches,
		units:     units,
		svc:       svc,
		metrics:   metrics,
		encoder:   encoder,
		maxLines:  maxLines,
	}
}

// Submit generates a fresh run identifier, persists the submission-time
// unit snapshots, uploads every chunk, and records one batch per chunk.
// A failed chunk upload is not retried internally; the error propagates
// and already-created batches of the run remain, so the caller owns
// retry and cleanup policy. Concurrent submissions for the same question
// produce independent runs with disjoint identifiers.
func (s *Submitter) Submit(ctx context.Context, questionUUID uuid.UUID) (uuid.UUID, error) {
	q, err := s.questions.GetByUUID(ctx, questionUUID)
	if err != nil {
		return uuid.Nil, err
	}

	encoded, err := s.encoder.Units(q)
	if err != nil {
		return uuid.Nil, err
	}
	if len(encoded) == 0 {
		verr := domain.NewValidationError("submission")
		verr.AddError("question yields no comparison units; it needs at least 2 distinct choices")
		return uuid.Nil, verr
	}

	runID := uuid.New()
	unitRecords := make([]domain.RequestUnit, len(encoded))
	for i := range encoded {
		encoded[i].Unit.RunID = runID
		unitRecords[i] = encoded[i].Unit
	}
	if err := s.units.CreateMany(ctx, unitRecords); err != nil {
		return uuid.Nil, fmt.Errorf("persist request units: %w", err)
	}

	payloads := ChunkPayloads(encoded, s.maxLines)
	remaining := len(encoded)
	for i, payload := range payloads {
		lineCount := s.maxLines
		if remaining < lineCount {
			lineCount = remaining
		}
		remaining -= lineCount

		name := fmt.Sprintf("prefpoll-%s-%s-%03d.jsonl", questionUUID, runID, i)
		fileID, err := s.svc.CreateFile(ctx, name, payload)
		if err != nil {
			return uuid.Nil, domain.NewServiceError("create file", err)
		}

		pb, err := s.svc.CreateBatch(ctx, fileID, map[string]string{
			"question_uuid": questionUUID.String(),
			"run_id":        runID.String(),
			"chunk":         fmt.Sprintf("%d", i),
		})
		if err != nil {
			return uuid.Nil, domain.NewServiceError("create batch", err)
		}

		now := time.Now()
		batch := &domain.Batch{
			QuestionUUID: questionUUID,
			RunID:        runID,
			LineCount:    lineCount,
			Projection:   projectionOf(pb),
			Payload:      pb.Raw,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := s.batches.Create(ctx, batch); err != nil {
			return uuid.Nil, fmt.Errorf("persist batch record: %w", err)
		}

		s.metrics.RecordCounter("submitted_lines_total", float64(lineCount), nil)
		s.metrics.RecordCounter("submitted_batches_total", 1, nil)
	}

	return runID, nil
}

// RefreshStatus re-fetches the batch's current provider state and
// replaces the stored payload and projection wholesale. Idempotent and
// safe to call repeatedly; never creates answers.
func (s *Submitter) RefreshStatus(ctx context.Context, batchID string) error {
	batch, err := s.batches.GetByID(ctx, batchID)
	if err != nil {
		return err
	}

	pb, err := s.svc.RetrieveBatch(ctx, batch.Projection.ProviderID)
	if err != nil {
		return domain.NewServiceError("retrieve batch", err)
	}

	batch.Projection = projectionOf(pb)
	batch.Payload = pb.Raw
	batch.UpdatedAt = time.Now()
	return s.batches.Update(ctx, batch)
}

// projectionOf parses the boundary view into the typed projection.
func projectionOf(pb ports.ProviderBatch) domain.BatchProjection {
	return domain.BatchProjection{
		ProviderID:   pb.ID,
		Status:       domain.ParseBatchStatus(pb.Status),
		OutputFileID: pb.OutputFileID,
	}
}
