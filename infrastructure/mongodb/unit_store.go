package mongodb

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/prefpoll/prefpoll/internal/domain"
	"github.com/prefpoll/prefpoll/internal/ports"
)

var _ ports.RequestUnitStore = (*UnitStore)(nil)

// UnitStore persists request unit snapshots in the "request_units"
// collection, keyed by their opaque token.
type UnitStore struct {
	collection *mongo.Collection
}

// NewUnitStore creates a unit store over the given database.
func NewUnitStore(db *mongo.Database) *UnitStore {
	return &UnitStore{collection: db.Collection("request_units")}
}

// CreateMany persists the units of one submission.
func (s *UnitStore) CreateMany(ctx context.Context, units []domain.RequestUnit) error {
	if len(units) == 0 {
		return nil
	}

	now := time.Now().UTC()
	docs := make([]any, 0, len(units))
	for i := range units {
		if units[i].CreatedAt.IsZero() {
			units[i].CreatedAt = now
		}
		docs = append(docs, units[i])
	}

	_, err := s.collection.InsertMany(ctx, docs)
	return err
}

// GetByToken resolves a unit by its custom_id token.
func (s *UnitStore) GetByToken(ctx context.Context, token string) (*domain.RequestUnit, error) {
	var unit domain.RequestUnit
	err := s.collection.FindOne(ctx, bson.M{"_id": token}).Decode(&unit)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &unit, nil
}
