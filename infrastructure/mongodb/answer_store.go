package mongodb

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/prefpoll/prefpoll/internal/domain"
	"github.com/prefpoll/prefpoll/internal/ports"
)

var _ ports.AnswerStore = (*AnswerStore)(nil)

// AnswerStore persists decoded answers in the "answers" collection.
type AnswerStore struct {
	collection *mongo.Collection
}

// NewAnswerStore creates an answer store over the given database.
func NewAnswerStore(db *mongo.Database) *AnswerStore {
	return &AnswerStore{collection: db.Collection("answers")}
}

// CreateMany persists answers for one run, assigning sequence numbers
// after the run's current count. Ingestion runs at most once per batch
// and run, so the count cannot move under us.
func (s *AnswerStore) CreateMany(ctx context.Context, runID uuid.UUID, answers []*domain.Answer) error {
	if len(answers) == 0 {
		return nil
	}

	offset, err := s.CountByRun(ctx, runID)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	docs := make([]any, 0, len(answers))
	for i, a := range answers {
		a.RunID = runID
		a.Seq = offset + int64(i) + 1
		if a.CreatedAt.IsZero() {
			a.CreatedAt = now
		}
		docs = append(docs, a)
	}

	_, err = s.collection.InsertMany(ctx, docs)
	return err
}

// ListByRun returns a run's answers in sequence order, optionally
// narrowed by context-key equality filters.
func (s *AnswerStore) ListByRun(ctx context.Context, questionUUID, runID uuid.UUID, filters map[string]string) ([]*domain.Answer, error) {
	filter := bson.M{
		"questionUuid": questionUUID,
		"runId":        runID,
	}
	for key, value := range filters {
		filter["context."+key] = value
	}

	cursor, err := s.collection.Find(ctx, filter,
		options.Find().SetSort(bson.D{{Key: "seq", Value: 1}}),
	)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var answers []*domain.Answer
	if err := cursor.All(ctx, &answers); err != nil {
		return nil, err
	}
	return answers, nil
}

// CountByRun reports how many answers a run already has.
func (s *AnswerStore) CountByRun(ctx context.Context, runID uuid.UUID) (int64, error) {
	return s.collection.CountDocuments(ctx, bson.M{"runId": runID})
}
