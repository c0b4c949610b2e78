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

type reviewDocument struct {
	ID        primitive.ObjectID `bson:"_id"`
	Item      primitive.ObjectID `bson:"item"`
	User      primitive.ObjectID `bson:"user"`
	Order     primitive.ObjectID `bson:"order"`
	Rating    int                `bson:"rating"`
	Review    string             `bson:"review"`
	Images    []string           `bson:"images"`
	CreatedAt time.Time          `bson:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt"`
}

func (d *reviewDocument) toDomain() domain.Review {
	images := d.Images
	if images == nil {
		images = []string{}
	}
	return domain.Review{
		ID:        d.ID.Hex(),
		ItemID:    d.Item.Hex(),
		UserID:    d.User.Hex(),
		OrderID:   d.Order.Hex(),
		Rating:    d.Rating,
		Text:      d.Review,
		Images:    images,
		CreatedAt: d.CreatedAt.UTC(),
		UpdatedAt: d.UpdatedAt.UTC(),
	}
}

func fromDomain(r *domain.Review) (*reviewDocument, error) {
	doc := &reviewDocument{
		Rating:    r.Rating,
		Review:    r.Text,
		Images:    r.Images,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
	if doc.Images == nil {
		doc.Images = []string{}
	}

	refs := []struct {
		name string
		hex  string
		dst  *primitive.ObjectID
	}{
		{"item", r.ItemID, &doc.Item},
		{"user", r.UserID, &doc.User},
		{"order", r.OrderID, &doc.Order},
	}
	for _, ref := range refs {
		oid, ok := objectID(ref.hex)
		if !ok {
			return nil, apperrors.InvalidInput(fmt.Sprintf("%s id %q is not a valid ObjectID", ref.name, ref.hex))
		}
		*ref.dst = oid
	}

	if r.ID == "" {
		doc.ID = primitive.NewObjectID()
	} else {
		oid, ok := objectID(r.ID)
		if !ok {
			return nil, apperrors.InvalidInput(fmt.Sprintf("review id %q is not a valid ObjectID", r.ID))
		}
		doc.ID = oid
	}
	return doc, nil
}

// sortDocuments mirror the Postgres ORDER BY clauses.
var sortDocuments = map[domain.ReviewSort]bson.D{
	domain.SortNewest:  {{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}},
	domain.SortOldest:  {{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}},
	domain.SortHighest: {{Key: "rating", Value: -1}, {Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}},
	domain.SortLowest:  {{Key: "rating", Value: 1}, {Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}},
}

func sortDocument(s domain.ReviewSort) bson.D {
	if d, ok := sortDocuments[s]; ok {
		return d
	}
	return sortDocuments[domain.SortNewest]
}

// ReviewRepository stores reviews in the reviews collection.
type ReviewRepository struct {
	collection *mongo.Collection
}

// NewReviewRepository creates a MongoDB-backed review repository.
func NewReviewRepository(db *mongo.Database) *ReviewRepository {
	return &ReviewRepository{collection: db.Collection(reviewsCollection)}
}

var _ repository.ReviewRepository = (*ReviewRepository)(nil)

func (r *ReviewRepository) Create(ctx context.Context, review *domain.Review) (err error) {
	ctx, end := trace(ctx, "insertOne", reviewsCollection)
	defer func() { end(err) }()

	doc, err := fromDomain(review)
	if err != nil {
		return err
	}

	if _, err = r.collection.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrAlreadyReviewed
		}
		return fmt.Errorf("insert review: %w", err)
	}

	review.ID = doc.ID.Hex()
	return nil
}

func (r *ReviewRepository) GetByID(ctx context.Context, id string) (_ *domain.Review, err error) {
	oid, ok := objectID(id)
	if !ok {
		return nil, apperrors.NotFound("review", id)
	}

	ctx, end := trace(ctx, "findOne", reviewsCollection)
	defer func() { end(err) }()

	return r.findOne(ctx, bson.M{"_id": oid}, id)
}

func (r *ReviewRepository) GetByItemAndUser(ctx context.Context, itemID, userID string) (_ *domain.Review, err error) {
	item, okItem := objectID(itemID)
	user, okUser := objectID(userID)
	if !okItem || !okUser {
		return nil, apperrors.NotFound("review", itemID+"/"+userID)
	}

	ctx, end := trace(ctx, "findOne", reviewsCollection)
	defer func() { end(err) }()

	return r.findOne(ctx, bson.M{"item": item, "user": user}, itemID+"/"+userID)
}

func (r *ReviewRepository) findOne(ctx context.Context, filter bson.M, key string) (*domain.Review, error) {
	var doc reviewDocument
	err := r.collection.FindOne(ctx, filter).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, apperrors.NotFound("review", key)
	}
	if err != nil {
		return nil, fmt.Errorf("find review %s: %w", key, err)
	}
	rv := doc.toDomain()
	return &rv, nil
}

func (r *ReviewRepository) UpdateContent(ctx context.Context, review *domain.Review) (err error) {
	oid, ok := objectID(review.ID)
	if !ok {
		return apperrors.NotFound("review", review.ID)
	}

	ctx, end := trace(ctx, "updateOne", reviewsCollection)
	defer func() { end(err) }()

	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{
		"$set": bson.M{
			"rating":    review.Rating,
			"review":    review.Text,
			"updatedAt": review.UpdatedAt,
		},
	})
	if err != nil {
		return fmt.Errorf("update review %s: %w", review.ID, err)
	}
	if res.MatchedCount == 0 {
		return apperrors.NotFound("review", review.ID)
	}
	return nil
}

func (r *ReviewRepository) Delete(ctx context.Context, id string) (err error) {
	oid, ok := objectID(id)
	if !ok {
		return apperrors.NotFound("review", id)
	}

	ctx, end := trace(ctx, "deleteOne", reviewsCollection)
	defer func() { end(err) }()

	res, err := r.collection.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("delete review %s: %w", id, err)
	}
	if res.DeletedCount == 0 {
		return apperrors.NotFound("review", id)
	}
	return nil
}

func (r *ReviewRepository) ListByItem(ctx context.Context, filter repository.ReviewFilter) (_ []domain.Review, _ int, err error) {
	reviews := []domain.Review{}
	item, ok := objectID(filter.ItemID)
	if !ok {
		return reviews, 0, nil
	}

	ctx, end := trace(ctx, "find", reviewsCollection)
	defer func() { end(err) }()

	query := bson.M{"item": item}
	opts := options.Find().
		SetSort(sortDocument(filter.Sort)).
		SetSkip(int64(filter.Offset())).
		SetLimit(int64(filter.PerPage))

	cursor, err := r.collection.Find(ctx, query, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("find reviews: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []reviewDocument
	if err = cursor.All(ctx, &docs); err != nil {
		return nil, 0, fmt.Errorf("decode reviews: %w", err)
	}
	for i := range docs {
		reviews = append(reviews, docs[i].toDomain())
	}

	total, err := r.collection.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, fmt.Errorf("count reviews: %w", err)
	}
	return reviews, int(total), nil
}

func (r *ReviewRepository) RatingsByItem(ctx context.Context, itemID string) (_ []int, err error) {
	ratings := []int{}
	item, ok := objectID(itemID)
	if !ok {
		return ratings, nil
	}

	ctx, end := trace(ctx, "find", reviewsCollection)
	defer func() { end(err) }()

	cursor, err := r.collection.Find(ctx, bson.M{"item": item},
		options.Find().SetProjection(bson.M{"rating": 1}))
	if err != nil {
		return nil, fmt.Errorf("find ratings: %w", err)
	}
	defer cursor.Close(ctx)

	for cursor.Next(ctx) {
		var row struct {
			Rating int `bson:"rating"`
		}
		if err = cursor.Decode(&row); err != nil {
			return nil, fmt.Errorf("decode rating: %w", err)
		}
		ratings = append(ratings, row.Rating)
	}
	if err = cursor.Err(); err != nil {
		return nil, fmt.Errorf("iterate ratings: %w", err)
	}
	return ratings, nil
}

func (r *ReviewRepository) RatingCounts(ctx context.Context, itemID string) (_ map[int]int, err error) {
	counts := make(map[int]int)
	item, ok := objectID(itemID)
	if !ok {
		return counts, nil
	}

	ctx, end := trace(ctx, "aggregate", reviewsCollection)
	defer func() { end(err) }()

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.D{{Key: "item", Value: item}}}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$rating"},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
	}

	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("aggregate rating counts: %w", err)
	}
	defer cursor.Close(ctx)

	var rows []struct {
		Rating int `bson:"_id"`
		Count  int `bson:"count"`
	}
	if err = cursor.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("decode rating counts: %w", err)
	}
	for _, row := range rows {
		counts[row.Rating] = row.Count
	}
	return counts, nil
}
