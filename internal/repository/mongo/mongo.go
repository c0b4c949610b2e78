// Package mongo stores reviews in MongoDB using the collection layout of the
// food-ordering storefront: reviews, items, orders and users keyed by
// ObjectID.
package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/utafrali/vingo-review/pkg/database"
)

const (
	reviewsCollection = "reviews"
	itemsCollection   = "items"
	ordersCollection  = "orders"
	usersCollection   = "users"

	dbSystem = "mongodb"
)

// objectID parses a hex ID. IDs that are not ObjectIDs cannot match any
// document and are reported as ok=false.
func objectID(id string) (primitive.ObjectID, bool) {
	oid, err := primitive.ObjectIDFromHex(id)
	return oid, err == nil
}

func trace(ctx context.Context, op, collection string) (context.Context, func(error)) {
	return database.TraceCommand(ctx, dbSystem, op, collection)
}

// EnsureIndexes creates the indexes the review queries rely on, including the
// unique (item, user) index that rejects duplicate reviews.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "item", Value: 1}, {Key: "user", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("item_user_unique"),
		},
		{Keys: bson.D{{Key: "item", Value: 1}, {Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "item", Value: 1}, {Key: "rating", Value: -1}}},
	}

	if _, err := db.Collection(reviewsCollection).Indexes().CreateMany(ctx, indexes); err != nil {
		return fmt.Errorf("create review indexes: %w", err)
	}
	return nil
}
