package basket

import (
	"context"

	"github.com/go-faster/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/joao-fontenele/groceryflow/internal/domain"
)

// MongoCatalog holds the basket-side replicas of users and products, fed by
// the Projector.
type MongoCatalog struct {
	users    *mongo.Collection
	products *mongo.Collection
}

func NewMongoCatalog(db *mongo.Database) *MongoCatalog {
	return &MongoCatalog{
		users:    db.Collection("users"),
		products: db.Collection("products"),
	}
}

func (c *MongoCatalog) GetUser(ctx context.Context, id string) (*domain.User, error) {
	var u domain.User
	err := c.users.FindOne(ctx, bson.M{"_id": id}).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "find user")
	}
	return &u, nil
}

func (c *MongoCatalog) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	var p domain.Product
	err := c.products.FindOne(ctx, bson.M{"_id": id}).Decode(&p)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "find product")
	}
	return &p, nil
}

func (c *MongoCatalog) SaveUser(ctx context.Context, u domain.User) error {
	_, err := c.users.ReplaceOne(ctx, bson.M{"_id": u.ID}, u, options.Replace().SetUpsert(true))
	if err != nil {
		return errors.Wrap(err, "upsert user")
	}
	return nil
}

func (c *MongoCatalog) SaveProduct(ctx context.Context, p domain.Product) error {
	_, err := c.products.ReplaceOne(ctx, bson.M{"_id": p.ID}, p, options.Replace().SetUpsert(true))
	if err != nil {
		return errors.Wrap(err, "upsert product")
	}
	return nil
}
