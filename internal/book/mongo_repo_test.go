package book

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

func mongoDoc(oid primitive.ObjectID, title, author string, version int64) bson.D {
	created := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	return bson.D{
		{Key: "_id", Value: oid},
		{Key: "title", Value: title},
		{Key: "author", Value: author},
		{Key: "genre", Value: "SciFi"},
		{Key: "publishedYear", Value: int32(1965)},
		{Key: "version", Value: version},
		{Key: "createdAt", Value: primitive.NewDateTimeFromTime(created)},
		{Key: "updatedAt", Value: primitive.NewDateTimeFromTime(created)},
	}
}

func TestMongoRepo(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ctx := context.Background()

	mt.Run("find decodes a page", func(mt *mtest.T) {
		repo := NewMongoRepo(mt.Coll, time.Second)
		ns := mt.Coll.Database().Name() + "." + mt.Coll.Name()
		first, second := primitive.NewObjectID(), primitive.NewObjectID()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch,
			mongoDoc(first, "Dune", "Frank Herbert", 1),
			mongoDoc(second, "Children of Dune", "Frank Herbert", 2),
		))

		books, err := repo.Find(ctx, Filter{Author: "herb"}, Bounds{Skip: 0, Limit: 10})
		require.NoError(t, err)
		require.Len(t, books, 2)
		assert.Equal(t, first.Hex(), books[0].ID)
		assert.Equal(t, "Dune", books[0].Title)
		assert.Equal(t, 1965, *books[0].PublishedYear)
		assert.Equal(t, int64(2), books[1].Version)
		assert.Equal(t, time.UTC, books[0].CreatedAt.Location())
	})

	mt.Run("count", func(mt *mtest.T) {
		repo := NewMongoRepo(mt.Coll, time.Second)
		ns := mt.Coll.Database().Name() + "." + mt.Coll.Name()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, bson.D{{Key: "n", Value: int32(7)}}))

		n, err := repo.Count(ctx, Filter{Genre: "sci"})
		require.NoError(t, err)
		assert.Equal(t, 7, n)
	})

	mt.Run("find by id", func(mt *mtest.T) {
		repo := NewMongoRepo(mt.Coll, time.Second)
		ns := mt.Coll.Database().Name() + "." + mt.Coll.Name()
		oid := primitive.NewObjectID()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, mongoDoc(oid, "Dune", "Frank Herbert", 4)))

		b, err := repo.FindByID(ctx, oid.Hex())
		require.NoError(t, err)
		assert.Equal(t, oid.Hex(), b.ID)
		assert.Equal(t, int64(4), b.Version)
	})

	mt.Run("find by id not found", func(mt *mtest.T) {
		repo := NewMongoRepo(mt.Coll, time.Second)
		ns := mt.Coll.Database().Name() + "." + mt.Coll.Name()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch))

		_, err := repo.FindByID(ctx, primitive.NewObjectID().Hex())
		assert.ErrorIs(t, err, ErrNotFound)
	})

	mt.Run("malformed id never reaches the server", func(mt *mtest.T) {
		repo := NewMongoRepo(mt.Coll, time.Second)

		_, err := repo.FindByID(ctx, "123")
		assert.ErrorIs(t, err, ErrInvalidID)
		assert.ErrorIs(t, repo.Remove(ctx, Book{ID: "xyz"}), ErrInvalidID)
	})

	mt.Run("insert assigns id and version", func(mt *mtest.T) {
		repo := NewMongoRepo(mt.Coll, time.Second)
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		b := Book{Title: "Dune", Author: "Frank Herbert"}
		require.NoError(t, repo.Save(ctx, &b))
		assert.True(t, primitive.IsValidObjectID(b.ID))
		assert.Equal(t, int64(1), b.Version)
		assert.Equal(t, b.CreatedAt, b.UpdatedAt)
		assert.False(t, b.CreatedAt.IsZero())
	})

	mt.Run("insert rejected by validator", func(mt *mtest.T) {
		repo := NewMongoRepo(mt.Coll, time.Second)
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{
			Index:   0,
			Code:    121,
			Message: "Document failed validation",
		}))

		b := Book{Title: "Dune", Author: "Frank Herbert"}
		assert.ErrorIs(t, repo.Save(ctx, &b), ErrInvalidDocument)
		assert.Empty(t, b.ID)
	})

	mt.Run("update bumps version", func(mt *mtest.T) {
		repo := NewMongoRepo(mt.Coll, time.Second)
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "n", Value: int32(1)},
			bson.E{Key: "nModified", Value: int32(1)},
		))

		b := Book{ID: primitive.NewObjectID().Hex(), Title: "Dune", Author: "Frank Herbert", Version: 2}
		require.NoError(t, repo.Save(ctx, &b))
		assert.Equal(t, int64(3), b.Version)
	})

	mt.Run("update with stale version conflicts", func(mt *mtest.T) {
		repo := NewMongoRepo(mt.Coll, time.Second)
		ns := mt.Coll.Database().Name() + "." + mt.Coll.Name()
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: int32(0)}, bson.E{Key: "nModified", Value: int32(0)}),
			mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, bson.D{{Key: "n", Value: int32(1)}}),
		)

		b := Book{ID: primitive.NewObjectID().Hex(), Title: "Dune", Author: "Frank Herbert", Version: 2}
		assert.ErrorIs(t, repo.Save(ctx, &b), ErrVersionConflict)
		assert.Equal(t, int64(2), b.Version)
	})

	mt.Run("update of a deleted book", func(mt *mtest.T) {
		repo := NewMongoRepo(mt.Coll, time.Second)
		ns := mt.Coll.Database().Name() + "." + mt.Coll.Name()
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: int32(0)}, bson.E{Key: "nModified", Value: int32(0)}),
			mtest.CreateCursorResponse(0, ns, mtest.FirstBatch),
		)

		b := Book{ID: primitive.NewObjectID().Hex(), Title: "Dune", Author: "Frank Herbert", Version: 2}
		assert.ErrorIs(t, repo.Save(ctx, &b), ErrNotFound)
	})

	mt.Run("remove", func(mt *mtest.T) {
		repo := NewMongoRepo(mt.Coll, time.Second)
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: int32(1)}),
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: int32(0)}),
		)

		b := Book{ID: primitive.NewObjectID().Hex()}
		require.NoError(t, repo.Remove(ctx, b))
		assert.ErrorIs(t, repo.Remove(ctx, b), ErrNotFound)
	})

	mt.Run("store failure is wrapped", func(mt *mtest.T) {
		repo := NewMongoRepo(mt.Coll, time.Second)
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{
			Code:    2,
			Name:    "BadValue",
			Message: "unknown operator",
		}))

		_, err := repo.Count(ctx, Filter{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "count books")
		assert.NotErrorIs(t, err, ErrNotFound)
		assert.NotErrorIs(t, err, ErrInvalidFilter)
	})

	mt.Run("regex the server cannot compile", func(mt *mtest.T) {
		repo := NewMongoRepo(mt.Coll, time.Second)
		badRegex := mtest.CommandError{
			Code:    invalidRegex,
			Name:    "Location51091",
			Message: "Regular expression is invalid: unmatched parentheses",
		}
		mt.AddMockResponses(
			mtest.CreateCommandErrorResponse(badRegex),
			mtest.CreateCommandErrorResponse(badRegex),
		)

		_, err := repo.Find(ctx, Filter{Author: "x"}, Bounds{Limit: 10})
		assert.ErrorIs(t, err, ErrInvalidFilter)
		_, err = repo.Count(ctx, Filter{Author: "x"})
		assert.ErrorIs(t, err, ErrInvalidFilter)
	})
}
