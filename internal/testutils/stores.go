// Package testutils provides in-memory implementations of the ports
// interfaces for tests and local development. They are safe for
// concurrent use and mirror the store semantics the pipeline relies on:
// ErrNotFound sentinels, per-run answer sequencing, and creation-order
// listings.
package testutils

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/prefpoll/prefpoll/internal/domain"
	"github.com/prefpoll/prefpoll/internal/ports"
)

// MemQuestionStore is an in-memory ports.QuestionStore.
type MemQuestionStore struct {
	mu        sync.Mutex
	questions []*domain.Question
	nextID    int
}

var _ ports.QuestionStore = (*MemQuestionStore)(nil)

// NewMemQuestionStore creates an empty question store.
func NewMemQuestionStore() *MemQuestionStore { return &MemQuestionStore{} }

// Create implements ports.QuestionStore.
func (s *MemQuestionStore) Create(_ context.Context, q *domain.Question) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	q.ID = fmt.Sprintf("question-%d", s.nextID)
	clone := *q
	s.questions = append(s.questions, &clone)
	return nil
}

// GetByUUID implements ports.QuestionStore.
func (s *MemQuestionStore) GetByUUID(_ context.Context, id uuid.UUID) (*domain.Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, q := range s.questions {
		if q.UUID == id {
			clone := *q
			return &clone, nil
		}
	}
	return nil, domain.ErrNotFound
}

// Update implements ports.QuestionStore.
func (s *MemQuestionStore) Update(_ context.Context, q *domain.Question) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, existing := range s.questions {
		if existing.UUID == q.UUID {
			clone := *q
			clone.ID = existing.ID
			s.questions[i] = &clone
			return nil
		}
	}
	return domain.ErrNotFound
}

// List implements ports.QuestionStore.
func (s *MemQuestionStore) List(_ context.Context, includeArchived bool) ([]*domain.Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*domain.Question, 0, len(s.questions))
	for _, q := range s.questions {
		if q.Archived && !includeArchived {
			continue
		}
		clone := *q
		out = append(out, &clone)
	}
	return out, nil
}

// Delete removes a question entirely. Not part of the port; tests use it
// to simulate a question vanishing between submission and ingestion.
func (s *MemQuestionStore) Delete(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.questions[:0]
	for _, q := range s.questions {
		if q.UUID != id {
			kept = append(kept, q)
		}
	}
	s.questions = kept
}

// MemBatchStore is an in-memory ports.BatchStore.
type MemBatchStore struct {
	mu      sync.Mutex
	batches []*domain.Batch
	nextID  int
}

var _ ports.BatchStore = (*MemBatchStore)(nil)

// NewMemBatchStore creates an empty batch store.
func NewMemBatchStore() *MemBatchStore { return &MemBatchStore{} }

// Create implements ports.BatchStore.
func (s *MemBatchStore) Create(_ context.Context, b *domain.Batch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	b.ID = fmt.Sprintf("batch-%d", s.nextID)
	clone := *b
	s.batches = append(s.batches, &clone)
	return nil
}

// GetByID implements ports.BatchStore.
func (s *MemBatchStore) GetByID(_ context.Context, id string) (*domain.Batch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range s.batches {
		if b.ID == id {
			clone := *b
			return &clone, nil
		}
	}
	return nil, domain.ErrNotFound
}

// Update implements ports.BatchStore.
func (s *MemBatchStore) Update(_ context.Context, b *domain.Batch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, existing := range s.batches {
		if existing.ID == b.ID {
			clone := *b
			s.batches[i] = &clone
			return nil
		}
	}
	return domain.ErrNotFound
}

// ListByQuestion implements ports.BatchStore.
func (s *MemBatchStore) ListByQuestion(_ context.Context, questionUUID uuid.UUID) ([]*domain.Batch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	// Newest first; batches are stored in creation order.
	var out []*domain.Batch
	for i := len(s.batches) - 1; i >= 0; i-- {
		if s.batches[i].QuestionUUID == questionUUID {
			clone := *s.batches[i]
			out = append(out, &clone)
		}
	}
	return out, nil
}

// LatestByQuestion implements ports.BatchStore.
func (s *MemBatchStore) LatestByQuestion(_ context.Context, questionUUID uuid.UUID) (*domain.Batch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var latest *domain.Batch
	for _, b := range s.batches {
		if b.QuestionUUID == questionUUID {
			latest = b
		}
	}
	if latest == nil {
		return nil, domain.ErrNotFound
	}
	clone := *latest
	return &clone, nil
}

// ListActive implements ports.BatchStore.
func (s *MemBatchStore) ListActive(_ context.Context) ([]*domain.Batch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*domain.Batch
	for _, b := range s.batches {
		if !b.Projection.Status.Terminal() {
			clone := *b
			out = append(out, &clone)
		}
	}
	return out, nil
}

// MemUnitStore is an in-memory ports.RequestUnitStore.
type MemUnitStore struct {
	mu    sync.Mutex
	units map[string]domain.RequestUnit
}

var _ ports.RequestUnitStore = (*MemUnitStore)(nil)

// NewMemUnitStore creates an empty request-unit store.
func NewMemUnitStore() *MemUnitStore {
	return &MemUnitStore{units: make(map[string]domain.RequestUnit)}
}

// CreateMany implements ports.RequestUnitStore.
func (s *MemUnitStore) CreateMany(_ context.Context, units []domain.RequestUnit) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range units {
		s.units[u.Token] = u
	}
	return nil
}

// GetByToken implements ports.RequestUnitStore.
func (s *MemUnitStore) GetByToken(_ context.Context, token string) (*domain.RequestUnit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.units[token]
	if !ok {
		return nil, domain.ErrNotFound
	}
	clone := u
	return &clone, nil
}

// Len reports how many units are stored.
func (s *MemUnitStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.units)
}

// All returns every stored unit in token order. Tests use it to build
// provider output lines for known tokens.
func (s *MemUnitStore) All() []domain.RequestUnit {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.RequestUnit, 0, len(s.units))
	for _, u := range s.units {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Token < out[j].Token })
	return out
}

// MemAnswerStore is an in-memory ports.AnswerStore.
type MemAnswerStore struct {
	mu      sync.Mutex
	answers []*domain.Answer
	nextSeq map[uuid.UUID]int64
	nextID  int
}

var _ ports.AnswerStore = (*MemAnswerStore)(nil)

// NewMemAnswerStore creates an empty answer store.
func NewMemAnswerStore() *MemAnswerStore {
	return &MemAnswerStore{nextSeq: make(map[uuid.UUID]int64)}
}

// CreateMany implements ports.AnswerStore.
func (s *MemAnswerStore) CreateMany(_ context.Context, runID uuid.UUID, answers []*domain.Answer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range answers {
		s.nextSeq[runID]++
		s.nextID++
		a.Seq = s.nextSeq[runID]
		a.ID = fmt.Sprintf("answer-%d", s.nextID)
		clone := *a
		s.answers = append(s.answers, &clone)
	}
	return nil
}

// ListByRun implements ports.AnswerStore.
func (s *MemAnswerStore) ListByRun(_ context.Context, questionUUID, runID uuid.UUID, filters map[string]string) ([]*domain.Answer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*domain.Answer
	for _, a := range s.answers {
		if a.QuestionUUID != questionUUID || a.RunID != runID {
			continue
		}
		if !matchesFilters(a, filters) {
			continue
		}
		clone := *a
		out = append(out, &clone)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	return out, nil
}

// CountByRun implements ports.AnswerStore.
func (s *MemAnswerStore) CountByRun(_ context.Context, runID uuid.UUID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, a := range s.answers {
		if a.RunID == runID {
			n++
		}
	}
	return n, nil
}

func matchesFilters(a *domain.Answer, filters map[string]string) bool {
	for key, want := range filters {
		if a.Context[key] != want {
			return false
		}
	}
	return true
}
