package mongo

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"github.com/utafrali/vingo-review/internal/domain"
	apperrors "github.com/utafrali/vingo-review/pkg/errors"
)

func TestCollaborators(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("delivered orders", func(mt *mtest.T) {
		repo := NewOrderRepository(mt.DB)
		orderA := primitive.NewObjectID()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "test.orders", mtest.FirstBatch,
			bson.D{{Key: "_id", Value: orderA}, {Key: "user", Value: userOID}, {Key: "createdAt", Value: now}},
		))

		got, err := repo.FindOrdersByUserAndItemStatus(context.Background(), userOID.Hex(), itemOID.Hex(), domain.OrderStatusDelivered)
		require.NoError(mt, err)
		require.Len(mt, got, 1)
		assert.Equal(mt, orderA.Hex(), got[0].ID)
		assert.Equal(mt, domain.OrderStatusDelivered, got[0].Status)
	})

	mt.Run("malformed ids have no orders", func(mt *mtest.T) {
		repo := NewOrderRepository(mt.DB)
		got, err := repo.FindOrdersByUserAndItemStatus(context.Background(), "u", "i", domain.OrderStatusDelivered)
		require.NoError(mt, err)
		assert.Empty(mt, got)
	})

	mt.Run("set item rating", func(mt *mtest.T) {
		repo := NewItemRepository(mt.DB)
		mt.AddMockResponses(bson.D{{Key: "ok", Value: 1}, {Key: "n", Value: 1}, {Key: "nModified", Value: 1}})
		require.NoError(mt, repo.SetItemRating(context.Background(), itemOID.Hex(), domain.ItemRating{Average: 4.2, Count: 5}))

		mt.AddMockResponses(bson.D{{Key: "ok", Value: 1}, {Key: "n", Value: 0}, {Key: "nModified", Value: 0}})
		err := repo.SetItemRating(context.Background(), itemOID.Hex(), domain.ItemRating{})
		assert.ErrorIs(mt, err, apperrors.ErrNotFound)
	})

	mt.Run("get item rating", func(mt *mtest.T) {
		repo := NewItemRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "test.items", mtest.FirstBatch, bson.D{
			{Key: "_id", Value: itemOID},
			{Key: "rating", Value: bson.D{{Key: "average", Value: 4.2}, {Key: "count", Value: 5}}},
		}))

		got, err := repo.GetItemRating(context.Background(), itemOID.Hex())
		require.NoError(mt, err)
		assert.Equal(mt, domain.ItemRating{Average: 4.2, Count: 5}, got)
	})

	mt.Run("authors", func(mt *mtest.T) {
		repo := NewUserRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "test.users", mtest.FirstBatch, bson.D{
			{Key: "_id", Value: userOID},
			{Key: "fullName", Value: "Priya Nair"},
			{Key: "profilePic", Value: "https://img.example.com/p.png"},
		}))

		got, err := repo.GetAuthors(context.Background(), []string{userOID.Hex(), "not-an-id"})
		require.NoError(mt, err)
		assert.Equal(mt, domain.Author{ID: userOID.Hex(), Name: "Priya Nair", AvatarURL: "https://img.example.com/p.png"}, got[userOID.Hex()])
	})
}
