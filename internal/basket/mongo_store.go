package basket

import (
	"context"

	"github.com/go-faster/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/joao-fontenele/groceryflow/internal/domain"
)

const basketsCollection = "baskets"

type MongoStore struct {
	coll *mongo.Collection
}

func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{coll: db.Collection(basketsCollection)}
}

func (s *MongoStore) Get(ctx context.Context, id string) (*domain.Basket, error) {
	var b domain.Basket
	err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&b)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "find basket")
	}
	return &b, nil
}

// Save inserts a basket at version 0 or replaces the stored document only if
// its version still matches.
func (s *MongoStore) Save(ctx context.Context, b *domain.Basket) error {
	expected := b.Version
	next := *b
	next.Version = expected + 1

	if expected == 0 {
		_, err := s.coll.InsertOne(ctx, next)
		if mongo.IsDuplicateKeyError(err) {
			return ErrVersionConflict
		}
		if err != nil {
			return errors.Wrap(err, "insert basket")
		}
		b.Version = next.Version
		return nil
	}

	res, err := s.coll.ReplaceOne(ctx, bson.M{"_id": b.ID, "version": expected}, next)
	if err != nil {
		return errors.Wrap(err, "replace basket")
	}
	if res.MatchedCount == 0 {
		return ErrVersionConflict
	}
	b.Version = next.Version
	return nil
}
