package mongodb

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/prefpoll/prefpoll/internal/domain"
	"github.com/prefpoll/prefpoll/internal/ports"
)

var _ ports.QuestionStore = (*QuestionStore)(nil)

// QuestionStore persists questions in the "questions" collection.
type QuestionStore struct {
	collection *mongo.Collection
}

// NewQuestionStore creates a question store over the given database.
func NewQuestionStore(db *mongo.Database) *QuestionStore {
	return &QuestionStore{collection: db.Collection("questions")}
}

// Create persists a new question, assigning its external identifier and
// timestamps when unset.
func (s *QuestionStore) Create(ctx context.Context, q *domain.Question) error {
	if q.UUID == uuid.Nil {
		q.UUID = uuid.New()
	}
	now := time.Now().UTC()
	if q.CreatedAt.IsZero() {
		q.CreatedAt = now
	}
	q.UpdatedAt = now

	result, err := s.collection.InsertOne(ctx, q)
	if err != nil {
		return err
	}
	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		q.ID = oid.Hex()
	}
	return nil
}

// GetByUUID resolves a question by its external identifier.
func (s *QuestionStore) GetByUUID(ctx context.Context, id uuid.UUID) (*domain.Question, error) {
	var q domain.Question
	err := s.collection.FindOne(ctx, bson.M{"uuid": id}).Decode(&q)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &q, nil
}

// Update replaces the stored question. The replacement document omits
// _id so the immutable storage identifier is preserved.
func (s *QuestionStore) Update(ctx context.Context, q *domain.Question) error {
	q.UpdatedAt = time.Now().UTC()

	replacement := *q
	replacement.ID = ""
	result, err := s.collection.ReplaceOne(ctx, bson.M{"uuid": q.UUID}, &replacement)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// List returns questions in creation order, excluding archived ones
// unless includeArchived is set.
func (s *QuestionStore) List(ctx context.Context, includeArchived bool) ([]*domain.Question, error) {
	filter := bson.M{}
	if !includeArchived {
		filter["archived"] = false
	}

	cursor, err := s.collection.Find(ctx, filter,
		options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}}),
	)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var questions []*domain.Question
	if err := cursor.All(ctx, &questions); err != nil {
		return nil, err
	}
	return questions, nil
}
