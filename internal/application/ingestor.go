package application

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prefpoll/prefpoll/internal/domain"
	"github.com/prefpoll/prefpoll/internal/ports"
)

// maxResultLineBytes bounds a single output line. Completion bodies are
// small (the contract allows ~128 tokens) but reasoning-laden refusals
// can pad them out.
const maxResultLineBytes = 4 * 1024 * 1024

// Ingestor fetches a completed batch's output, decodes each line back to
// its snapshotted (context, pair) unit, and persists one answer per valid
// line. Malformed lines are skipped, never fabricated. The batch record
// tracks whether it was ingested, so each chunk is processed at most once.
type Ingestor struct {
	questions ports.QuestionStore
	units     ports.RequestUnitStore
	answers   ports.AnswerStore
	batches   ports.BatchStore
	svc       ports.BatchService
	metrics   ports.MetricsCollector
	decoder   *Decoder
}

// NewIngestor creates an Ingestor.
func NewIngestor(
	questions ports.QuestionStore,
	units ports.RequestUnitStore,
	answers ports.AnswerStore,
	batches ports.BatchStore,
	svc ports.BatchService,
	metrics ports.MetricsCollector,
) *Ingestor {
	if metrics == nil {
		metrics = ports.NopMetrics{}
	}
	return &Ingestor{
		questions: questions,
		units:     units,
		answers:   answers,
		batches:   batches,
		svc:       svc,
		metrics:   metrics,
		decoder:   NewDecoder(),
	}
}

// IngestResults processes a batch's output file and returns how many
// answers were created and how many lines were skipped. Ingestion runs
// at most once per batch: a batch already marked ingested is a no-op,
// and a successful pass marks it before returning. Chunks of the same
// run are ingested independently. A batch without an output resource
// returns ErrNoOutput.
func (in *Ingestor) IngestResults(ctx context.Context, batch *domain.Batch) (ingested, skipped int, err error) {
	if batch.Ingested {
		return 0, 0, nil
	}
	if batch.Projection.OutputFileID == "" {
		return 0, 0, domain.ErrNoOutput
	}

	start := time.Now()
	body, err := in.svc.FetchFileContent(ctx, batch.Projection.OutputFileID)
	if err != nil {
		return 0, 0, domain.NewServiceError("fetch file content", err)
	}
	defer body.Close()

	var pending []*domain.Answer
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), maxResultLineBytes)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		answer, err := in.decodeOne(ctx, batch, line)
		if err != nil {
			if errors.Is(err, errMalformedLine) {
				skipped++
				in.metrics.RecordCounter("skipped_lines_total", 1, nil)
				continue
			}
			return 0, skipped, err
		}
		pending = append(pending, answer)
	}
	if err := scanner.Err(); err != nil {
		return 0, skipped, fmt.Errorf("read batch output: %w", err)
	}

	if len(pending) > 0 {
		if err := in.answers.CreateMany(ctx, batch.RunID, pending); err != nil {
			return 0, skipped, fmt.Errorf("persist answers: %w", err)
		}
	}

	batch.Ingested = true
	if err := in.batches.Update(ctx, batch); err != nil {
		return len(pending), skipped, fmt.Errorf("mark batch ingested: %w", err)
	}

	in.metrics.RecordCounter("ingested_answers_total", float64(len(pending)), nil)
	in.metrics.RecordLatency("ingest_results", time.Since(start), nil)
	return len(pending), skipped, nil
}

// decodeOne resolves one output line into an answer. Any failure that
// wraps errMalformedLine means "skip this line"; other errors abort the
// ingestion because they indicate a store or infrastructure problem, not
// a bad line.
func (in *Ingestor) decodeOne(ctx context.Context, batch *domain.Batch, line []byte) (*domain.Answer, error) {
	token, content, err := in.decoder.DecodeLine(line)
	if err != nil {
		return nil, err
	}

	unit, err := in.units.GetByToken(ctx, token)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("%w: unknown unit token %s", errMalformedLine, token)
		}
		return nil, err
	}

	// The question may have been deleted between submission and
	// ingestion; its results are then dropped rather than orphaned.
	if _, err := in.questions.GetByUUID(ctx, unit.QuestionUUID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("%w: question %s no longer exists", errMalformedLine, unit.QuestionUUID)
		}
		return nil, err
	}

	contract, err := in.decoder.ParseContract(content)
	if err != nil {
		return nil, err
	}

	return &domain.Answer{
		QuestionUUID: unit.QuestionUUID,
		RunID:        batch.RunID,
		Context:      unit.Context,
		Choices:      unit.Pair,
		Choice:       contract.Answer,
		Confidence:   contract.Confidence,
		CreatedAt:    time.Now(),
	}, nil
}
