package mongo

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"github.com/utafrali/vingo-review/internal/domain"
	"github.com/utafrali/vingo-review/internal/repository"
	apperrors "github.com/utafrali/vingo-review/pkg/errors"
)

var (
	itemOID  = primitive.NewObjectID()
	userOID  = primitive.NewObjectID()
	orderOID = primitive.NewObjectID()
	now      = time.Date(2026, 5, 4, 18, 30, 0, 0, time.UTC)
)

func newReview() *domain.Review {
	return &domain.Review{
		ItemID:    itemOID.Hex(),
		UserID:    userOID.Hex(),
		OrderID:   orderOID.Hex(),
		Rating:    5,
		Text:      "Best biryani in town",
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func reviewDoc(id primitive.ObjectID, rating int) bson.D {
	return bson.D{
		{Key: "_id", Value: id},
		{Key: "item", Value: itemOID},
		{Key: "user", Value: userOID},
		{Key: "order", Value: orderOID},
		{Key: "rating", Value: rating},
		{Key: "review", Value: "Best biryani in town"},
		{Key: "images", Value: bson.A{"https://img.example.com/b.jpg"}},
		{Key: "createdAt", Value: now},
		{Key: "updatedAt", Value: now},
	}
}

func TestReviewRepository(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("create assigns object id", func(mt *mtest.T) {
		repo := NewReviewRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		rv := newReview()
		require.NoError(mt, repo.Create(context.Background(), rv))
		_, ok := objectID(rv.ID)
		assert.True(mt, ok)
	})

	mt.Run("create duplicate", func(mt *mtest.T) {
		repo := NewReviewRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{
			Index: 0, Code: 11000, Message: "E11000 duplicate key error",
		}))

		err := repo.Create(context.Background(), newReview())
		assert.ErrorIs(mt, err, domain.ErrAlreadyReviewed)
	})

	mt.Run("create rejects malformed references", func(mt *mtest.T) {
		repo := NewReviewRepository(mt.DB)
		rv := newReview()
		rv.ItemID = "pizza"

		err := repo.Create(context.Background(), rv)
		assert.ErrorIs(mt, err, apperrors.ErrInvalidInput)
	})

	mt.Run("get by id", func(mt *mtest.T) {
		repo := NewReviewRepository(mt.DB)
		id := primitive.NewObjectID()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "test.reviews", mtest.FirstBatch, reviewDoc(id, 5)))

		got, err := repo.GetByID(context.Background(), id.Hex())
		require.NoError(mt, err)
		assert.Equal(mt, id.Hex(), got.ID)
		assert.Equal(mt, itemOID.Hex(), got.ItemID)
		assert.Equal(mt, "Best biryani in town", got.Text)
		assert.Equal(mt, []string{"https://img.example.com/b.jpg"}, got.Images)
	})

	mt.Run("get by id not found", func(mt *mtest.T) {
		repo := NewReviewRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "test.reviews", mtest.FirstBatch))

		_, err := repo.GetByID(context.Background(), primitive.NewObjectID().Hex())
		assert.ErrorIs(mt, err, apperrors.ErrNotFound)
	})

	mt.Run("get by malformed id", func(mt *mtest.T) {
		repo := NewReviewRepository(mt.DB)
		_, err := repo.GetByID(context.Background(), "42")
		assert.ErrorIs(mt, err, apperrors.ErrNotFound)
	})

	mt.Run("update not matched", func(mt *mtest.T) {
		repo := NewReviewRepository(mt.DB)
		mt.AddMockResponses(bson.D{{Key: "ok", Value: 1}, {Key: "n", Value: 0}, {Key: "nModified", Value: 0}})

		rv := newReview()
		rv.ID = primitive.NewObjectID().Hex()
		assert.ErrorIs(mt, repo.UpdateContent(context.Background(), rv), apperrors.ErrNotFound)
	})

	mt.Run("update matched", func(mt *mtest.T) {
		repo := NewReviewRepository(mt.DB)
		mt.AddMockResponses(bson.D{{Key: "ok", Value: 1}, {Key: "n", Value: 1}, {Key: "nModified", Value: 1}})

		rv := newReview()
		rv.ID = primitive.NewObjectID().Hex()
		assert.NoError(mt, repo.UpdateContent(context.Background(), rv))
	})

	mt.Run("delete", func(mt *mtest.T) {
		repo := NewReviewRepository(mt.DB)
		mt.AddMockResponses(bson.D{{Key: "ok", Value: 1}, {Key: "n", Value: 1}})
		assert.NoError(mt, repo.Delete(context.Background(), primitive.NewObjectID().Hex()))

		mt.AddMockResponses(bson.D{{Key: "ok", Value: 1}, {Key: "n", Value: 0}})
		assert.ErrorIs(mt, repo.Delete(context.Background(), primitive.NewObjectID().Hex()), apperrors.ErrNotFound)
	})

	mt.Run("list by item", func(mt *mtest.T) {
		repo := NewReviewRepository(mt.DB)
		first := mtest.CreateCursorResponse(1, "test.reviews", mtest.FirstBatch,
			reviewDoc(primitive.NewObjectID(), 5), reviewDoc(primitive.NewObjectID(), 4))
		killCursors := mtest.CreateCursorResponse(0, "test.reviews", mtest.NextBatch)
		count := mtest.CreateCursorResponse(0, "test.reviews", mtest.FirstBatch, bson.D{{Key: "n", Value: 7}})
		mt.AddMockResponses(first, killCursors, count)

		got, total, err := repo.ListByItem(context.Background(), repository.ReviewFilter{
			ItemID: itemOID.Hex(), Sort: domain.SortHighest, Page: 1, PerPage: 2,
		})
		require.NoError(mt, err)
		assert.Len(mt, got, 2)
		assert.Equal(mt, 7, total)
	})

	mt.Run("ratings by item", func(mt *mtest.T) {
		repo := NewReviewRepository(mt.DB)
		mt.AddMockResponses(
			mtest.CreateCursorResponse(1, "test.reviews", mtest.FirstBatch,
				bson.D{{Key: "rating", Value: 5}}, bson.D{{Key: "rating", Value: 2}}),
			mtest.CreateCursorResponse(0, "test.reviews", mtest.NextBatch),
		)

		got, err := repo.RatingsByItem(context.Background(), itemOID.Hex())
		require.NoError(mt, err)
		assert.Equal(mt, []int{5, 2}, got)
	})

	mt.Run("rating counts", func(mt *mtest.T) {
		repo := NewReviewRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "test.reviews", mtest.FirstBatch,
			bson.D{{Key: "_id", Value: 5}, {Key: "count", Value: 3}},
			bson.D{{Key: "_id", Value: 1}, {Key: "count", Value: 1}},
		))

		got, err := repo.RatingCounts(context.Background(), itemOID.Hex())
		require.NoError(mt, err)
		assert.Equal(mt, map[int]int{5: 3, 1: 1}, got)
	})
}

func TestSortDocument(t *testing.T) {
	assert.Equal(t, "rating", sortDocument(domain.SortHighest)[0].Key)
	assert.Equal(t, -1, sortDocument(domain.SortHighest)[0].Value)
	assert.Equal(t, 1, sortDocument(domain.SortOldest)[0].Value)
	assert.Equal(t, sortDocuments[domain.SortNewest], sortDocument("unknown"))
}

func TestDeliveredOrderFilter_MatchesSameSubOrder(t *testing.T) {
	f := deliveredOrderFilter(userOID, itemOID, domain.OrderStatusDelivered)

	elem, ok := f["shopOrders"].(bson.M)["$elemMatch"].(bson.M)
	require.True(t, ok)
	assert.Equal(t, domain.OrderStatusDelivered, elem["status"])
	assert.Equal(t, itemOID, elem["items.item"])
	assert.Equal(t, userOID, f["user"])
}
