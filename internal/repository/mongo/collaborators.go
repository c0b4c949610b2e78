package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/utafrali/vingo-review/internal/domain"
	"github.com/utafrali/vingo-review/internal/repository"
	apperrors "github.com/utafrali/vingo-review/pkg/errors"
)

// OrderRepository reads orders whose shop sub-orders carry their own status.
type OrderRepository struct {
	collection *mongo.Collection
}

// NewOrderRepository creates a read-only order repository.
func NewOrderRepository(db *mongo.Database) *OrderRepository {
	return &OrderRepository{collection: db.Collection(ordersCollection)}
}

var _ repository.OrderReader = (*OrderRepository)(nil)

// deliveredOrderFilter matches orders in which one shop sub-order both
// contains the item and has the status.
func deliveredOrderFilter(user, item primitive.ObjectID, status string) bson.M {
	return bson.M{
		"user": user,
		"shopOrders": bson.M{"$elemMatch": bson.M{
			"status":     status,
			"items.item": item,
		}},
	}
}

func (r *OrderRepository) FindOrdersByUserAndItemStatus(ctx context.Context, userID, itemID, status string) (_ []domain.OrderRef, err error) {
	orders := []domain.OrderRef{}
	user, okUser := objectID(userID)
	item, okItem := objectID(itemID)
	if !okUser || !okItem {
		return orders, nil
	}

	ctx, end := trace(ctx, "find", ordersCollection)
	defer func() { end(err) }()

	opts := options.Find().
		SetProjection(bson.M{"_id": 1, "user": 1, "createdAt": 1}).
		SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}})

	cursor, err := r.collection.Find(ctx, deliveredOrderFilter(user, item, status), opts)
	if err != nil {
		return nil, fmt.Errorf("find orders: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []struct {
		ID        primitive.ObjectID `bson:"_id"`
		User      primitive.ObjectID `bson:"user"`
		CreatedAt time.Time          `bson:"createdAt"`
	}
	if err = cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode orders: %w", err)
	}

	for _, d := range docs {
		orders = append(orders, domain.OrderRef{
			ID:        d.ID.Hex(),
			UserID:    d.User.Hex(),
			Status:    status,
			CreatedAt: d.CreatedAt.UTC(),
		})
	}
	return orders, nil
}

// ItemRepository writes the rating sub-document on items.
type ItemRepository struct {
	collection *mongo.Collection
}

// NewItemRepository creates an item rating repository.
func NewItemRepository(db *mongo.Database) *ItemRepository {
	return &ItemRepository{collection: db.Collection(itemsCollection)}
}

var _ repository.ItemRatingWriter = (*ItemRepository)(nil)

type ratingDocument struct {
	Average float64 `bson:"average"`
	Count   int     `bson:"count"`
}

func (r *ItemRepository) SetItemRating(ctx context.Context, itemID string, rating domain.ItemRating) (err error) {
	oid, ok := objectID(itemID)
	if !ok {
		return apperrors.NotFound("item", itemID)
	}

	ctx, end := trace(ctx, "updateOne", itemsCollection)
	defer func() { end(err) }()

	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{
		"$set": bson.M{"rating": ratingDocument{Average: rating.Average, Count: rating.Count}},
	})
	if err != nil {
		return fmt.Errorf("set rating for item %s: %w", itemID, err)
	}
	if res.MatchedCount == 0 {
		return apperrors.NotFound("item", itemID)
	}
	return nil
}

func (r *ItemRepository) GetItemRating(ctx context.Context, itemID string) (_ domain.ItemRating, err error) {
	oid, ok := objectID(itemID)
	if !ok {
		return domain.ItemRating{}, apperrors.NotFound("item", itemID)
	}

	ctx, end := trace(ctx, "findOne", itemsCollection)
	defer func() { end(err) }()

	var doc struct {
		Rating ratingDocument `bson:"rating"`
	}
	err = r.collection.FindOne(ctx, bson.M{"_id": oid},
		options.FindOne().SetProjection(bson.M{"rating": 1})).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.ItemRating{}, apperrors.NotFound("item", itemID)
	}
	if err != nil {
		return domain.ItemRating{}, fmt.Errorf("get rating for item %s: %w", itemID, err)
	}
	return domain.ItemRating{Average: doc.Rating.Average, Count: doc.Rating.Count}, nil
}

// UserRepository reads display fields from the users collection.
type UserRepository struct {
	collection *mongo.Collection
}

// NewUserRepository creates a read-only user repository.
func NewUserRepository(db *mongo.Database) *UserRepository {
	return &UserRepository{collection: db.Collection(usersCollection)}
}

var _ repository.AuthorReader = (*UserRepository)(nil)

func (r *UserRepository) GetAuthors(ctx context.Context, userIDs []string) (_ map[string]domain.Author, err error) {
	authors := make(map[string]domain.Author, len(userIDs))

	oids := make([]primitive.ObjectID, 0, len(userIDs))
	for _, id := range userIDs {
		if oid, ok := objectID(id); ok {
			oids = append(oids, oid)
		}
	}
	if len(oids) == 0 {
		return authors, nil
	}

	ctx, end := trace(ctx, "find", usersCollection)
	defer func() { end(err) }()

	cursor, err := r.collection.Find(ctx, bson.M{"_id": bson.M{"$in": oids}},
		options.Find().SetProjection(bson.M{"fullName": 1, "profilePic": 1}))
	if err != nil {
		return nil, fmt.Errorf("find users: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []struct {
		ID         primitive.ObjectID `bson:"_id"`
		FullName   string             `bson:"fullName"`
		ProfilePic string             `bson:"profilePic"`
	}
	if err = cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode users: %w", err)
	}

	for _, d := range docs {
		id := d.ID.Hex()
		authors[id] = domain.Author{ID: id, Name: d.FullName, AvatarURL: d.ProfilePic}
	}
	return authors, nil
}
