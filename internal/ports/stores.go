// Package ports defines the interfaces between the pipeline core and its
// external collaborators: persistent stores, the batch completion
// service, and observability sinks. Implementations live under
// infrastructure/; tests substitute the in-memory versions from
// internal/testutils.
package ports

import (
	"context"

	"github.com/google/uuid"

	"github.com/prefpoll/prefpoll/internal/domain"
)

// QuestionStore persists questions and resolves them by their stable
// external identifier.
type QuestionStore interface {
	// Create persists a new question and fills its storage ID.
	Create(ctx context.Context, q *domain.Question) error

	// GetByUUID resolves a question by external identifier.
	// Returns domain.ErrNotFound when the identifier does not resolve.
	GetByUUID(ctx context.Context, id uuid.UUID) (*domain.Question, error)

	// Update replaces the stored question.
	Update(ctx context.Context, q *domain.Question) error

	// List returns questions in creation order, excluding archived ones
	// unless includeArchived is set.
	List(ctx context.Context, includeArchived bool) ([]*domain.Question, error)
}

// BatchStore persists batch chunk records. Batches are append-only except
// for status refresh, which replaces the payload and projection wholesale.
type BatchStore interface {
	// Create persists a new batch record and fills its storage ID.
	Create(ctx context.Context, b *domain.Batch) error

	// GetByID resolves a batch by storage identifier.
	// Returns domain.ErrNotFound when absent.
	GetByID(ctx context.Context, id string) (*domain.Batch, error)

	// Update replaces the stored payload and projection after a refresh.
	Update(ctx context.Context, b *domain.Batch) error

	// ListByQuestion returns a question's batches, newest first.
	ListByQuestion(ctx context.Context, questionUUID uuid.UUID) ([]*domain.Batch, error)

	// LatestByQuestion returns the most recently created batch for a
	// question, which identifies the current run. Returns
	// domain.ErrNotFound when the question has no batches.
	LatestByQuestion(ctx context.Context, questionUUID uuid.UUID) (*domain.Batch, error)

	// ListActive returns every batch whose status is not terminal,
	// for the periodic refresh job.
	ListActive(ctx context.Context) ([]*domain.Batch, error)
}

// RequestUnitStore persists the submission-time (context, pair) snapshots
// keyed by their opaque token.
type RequestUnitStore interface {
	// CreateMany persists the units of one submission.
	CreateMany(ctx context.Context, units []domain.RequestUnit) error

	// GetByToken resolves a unit by its custom_id token.
	// Returns domain.ErrNotFound for unknown tokens.
	GetByToken(ctx context.Context, token string) (*domain.RequestUnit, error)
}

// AnswerStore persists decoded answers. Answers are append-only.
type AnswerStore interface {
	// CreateMany persists answers for one run, assigning each a
	// monotonically increasing per-run sequence number. Single-writer per
	// run: ingestion happens at most once per (run, batch).
	CreateMany(ctx context.Context, runID uuid.UUID, answers []*domain.Answer) error

	// ListByRun returns a run's answers ordered by sequence number,
	// optionally narrowed by context-key equality filters. Filter keys
	// are matched against the stored assignment; callers pre-screen keys
	// against the question's declared dimensions.
	ListByRun(ctx context.Context, questionUUID, runID uuid.UUID, filters map[string]string) ([]*domain.Answer, error)

	// CountByRun reports how many answers a run already has. The refresh
	// job uses it for the ingest-once-per-run check.
	CountByRun(ctx context.Context, runID uuid.UUID) (int64, error)
}
