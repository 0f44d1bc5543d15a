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

var _ ports.BatchStore = (*BatchStore)(nil)

// BatchStore persists batch chunk records in the "batches" collection.
type BatchStore struct {
	collection *mongo.Collection
}

// NewBatchStore creates a batch store over the given database.
func NewBatchStore(db *mongo.Database) *BatchStore {
	return &BatchStore{collection: db.Collection("batches")}
}

// Create persists a new batch record and fills its storage ID.
func (s *BatchStore) Create(ctx context.Context, b *domain.Batch) error {
	now := time.Now().UTC()
	if b.CreatedAt.IsZero() {
		b.CreatedAt = now
	}
	b.UpdatedAt = now

	result, err := s.collection.InsertOne(ctx, b)
	if err != nil {
		return err
	}
	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		b.ID = oid.Hex()
	}
	return nil
}

// GetByID resolves a batch by storage identifier.
func (s *BatchStore) GetByID(ctx context.Context, id string) (*domain.Batch, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrNotFound
	}

	var b domain.Batch
	err = s.collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&b)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// Update replaces the stored projection, payload, and ingested flag
// after a status refresh or ingestion pass.
func (s *BatchStore) Update(ctx context.Context, b *domain.Batch) error {
	oid, err := primitive.ObjectIDFromHex(b.ID)
	if err != nil {
		return domain.ErrNotFound
	}
	b.UpdatedAt = time.Now().UTC()

	result, err := s.collection.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": bson.M{
		"projection": b.Projection,
		"payload":    b.Payload,
		"ingested":   b.Ingested,
		"updatedAt":  b.UpdatedAt,
	}})
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ListByQuestion returns a question's batches, newest first.
func (s *BatchStore) ListByQuestion(ctx context.Context, questionUUID uuid.UUID) ([]*domain.Batch, error) {
	cursor, err := s.collection.Find(ctx, bson.M{"questionUuid": questionUUID},
		options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}),
	)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var batches []*domain.Batch
	if err := cursor.All(ctx, &batches); err != nil {
		return nil, err
	}
	return batches, nil
}

// LatestByQuestion returns the most recently created batch for a
// question, which identifies the current run.
func (s *BatchStore) LatestByQuestion(ctx context.Context, questionUUID uuid.UUID) (*domain.Batch, error) {
	var b domain.Batch
	err := s.collection.FindOne(ctx, bson.M{"questionUuid": questionUUID},
		options.FindOne().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}),
	).Decode(&b)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// ListActive returns every batch whose status is not terminal.
func (s *BatchStore) ListActive(ctx context.Context) ([]*domain.Batch, error) {
	terminal := []domain.BatchStatus{
		domain.BatchStatusCompleted,
		domain.BatchStatusFailed,
		domain.BatchStatusExpired,
		domain.BatchStatusCancelled,
	}

	cursor, err := s.collection.Find(ctx, bson.M{
		"projection.status": bson.M{"$nin": terminal},
	})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var batches []*domain.Batch
	if err := cursor.All(ctx, &batches); err != nil {
		return nil, err
	}
	return batches, nil
}
