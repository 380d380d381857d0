package mongodb

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"user-service/internal/domain"
	"user-service/internal/repository"
)

func userDoc(oid primitive.ObjectID, email string, created time.Time) bson.D {
	return bson.D{
		{Key: "_id", Value: oid},
		{Key: "name", Value: "Alice"},
		{Key: "email", Value: email},
		{Key: "password", Value: "hash"},
		{Key: "address", Value: ""},
		{Key: "phone", Value: "555"},
		{Key: "createdAt", Value: created},
	}
}

func TestUserRepository(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ctx := context.Background()
	created := time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)

	mt.Run("init creates unique email index", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse())
		require.NoError(mt, NewUserRepository(mt.Coll).Init(ctx))
	})

	mt.Run("init with duplicate emails already stored", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{
			Code:    11000,
			Name:    "DuplicateKey",
			Message: "Index build failed: E11000 duplicate key error collection: ecommerce.users index: email_unique",
		}))

		err := NewUserRepository(mt.Coll).Init(ctx)
		assert.ErrorIs(mt, err, repository.ErrDuplicateEmail)
	})

	mt.Run("init other failure", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{
			Code:    13,
			Name:    "Unauthorized",
			Message: "not authorized",
		}))

		err := NewUserRepository(mt.Coll).Init(ctx)
		require.Error(mt, err)
		assert.NotErrorIs(mt, err, repository.ErrDuplicateEmail)
	})

	mt.Run("create assigns object id", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse())
		user := &domain.User{Email: "a@example.com", PasswordHash: "hash"}

		id, err := NewUserRepository(mt.Coll).Create(ctx, user)
		require.NoError(mt, err)
		_, err = primitive.ObjectIDFromHex(id)
		assert.NoError(mt, err)
		assert.Equal(mt, id, user.ID)
		assert.False(mt, user.CreatedAt.IsZero())
	})

	mt.Run("create duplicate email", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{
			Index:   0,
			Code:    11000,
			Message: "E11000 duplicate key error collection: ecommerce.users index: email_unique",
		}))

		_, err := NewUserRepository(mt.Coll).Create(ctx, &domain.User{Email: "a@example.com", PasswordHash: "hash"})
		assert.ErrorIs(mt, err, repository.ErrDuplicateEmail)
	})

	mt.Run("get by id", func(mt *mtest.T) {
		oid := primitive.NewObjectID()
		ns := mt.Coll.Database().Name() + "." + mt.Coll.Name()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, userDoc(oid, "a@example.com", created)))

		got, err := NewUserRepository(mt.Coll).GetByID(ctx, oid.Hex())
		require.NoError(mt, err)
		assert.Equal(mt, oid.Hex(), got.ID)
		assert.Equal(mt, "a@example.com", got.Email)
		assert.Equal(mt, "hash", got.PasswordHash)
		assert.True(mt, created.Equal(got.CreatedAt))
	})

	mt.Run("get by id not found", func(mt *mtest.T) {
		ns := mt.Coll.Database().Name() + "." + mt.Coll.Name()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch))

		_, err := NewUserRepository(mt.Coll).GetByID(ctx, primitive.NewObjectID().Hex())
		assert.ErrorIs(mt, err, repository.ErrNotFound)
	})

	mt.Run("malformed id never reaches the server", func(mt *mtest.T) {
		repo := NewUserRepository(mt.Coll)

		_, err := repo.GetByID(ctx, "xyz")
		assert.ErrorIs(mt, err, repository.ErrInvalidID)
		_, err = repo.Update(ctx, "xyz", domain.UserPatch{})
		assert.ErrorIs(mt, err, repository.ErrInvalidID)
		assert.ErrorIs(mt, repo.Delete(ctx, "xyz"), repository.ErrInvalidID)
	})

	mt.Run("list", func(mt *mtest.T) {
		ns := mt.Coll.Database().Name() + "." + mt.Coll.Name()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch,
			userDoc(primitive.NewObjectID(), "a@example.com", created),
			userDoc(primitive.NewObjectID(), "b@example.com", created.Add(time.Minute)),
		))

		users, err := NewUserRepository(mt.Coll).List(ctx)
		require.NoError(mt, err)
		require.Len(mt, users, 2)
		assert.Equal(mt, "b@example.com", users[1].Email)
	})

	mt.Run("list tolerates loosely typed fields", func(mt *mtest.T) {
		ns := mt.Coll.Database().Name() + "." + mt.Coll.Name()
		loose := bson.D{
			{Key: "_id", Value: primitive.NewObjectID()},
			{Key: "name", Value: nil},
			{Key: "email", Value: "b@example.com"},
			{Key: "password", Value: "hash"},
			{Key: "address", Value: 12.5},
			{Key: "phone", Value: int32(5551234)},
			{Key: "createdAt", Value: created.Add(time.Minute)},
		}
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch,
			userDoc(primitive.NewObjectID(), "a@example.com", created),
			loose,
		))

		users, err := NewUserRepository(mt.Coll).List(ctx)
		require.NoError(mt, err)
		require.Len(mt, users, 2)
		assert.Equal(mt, "555", users[0].Phone)
		assert.Equal(mt, "5551234", users[1].Phone)
		assert.Equal(mt, "12.5", users[1].Address)
		assert.Equal(mt, "", users[1].Name)
	})

	mt.Run("get by id with numeric phone", func(mt *mtest.T) {
		oid := primitive.NewObjectID()
		ns := mt.Coll.Database().Name() + "." + mt.Coll.Name()
		doc := userDoc(oid, "a@example.com", created)
		doc[5] = bson.E{Key: "phone", Value: int64(5551234)}
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, doc))

		got, err := NewUserRepository(mt.Coll).GetByID(ctx, oid.Hex())
		require.NoError(mt, err)
		assert.Equal(mt, "5551234", got.Phone)
		assert.Equal(mt, "hash", got.PasswordHash)
	})

	mt.Run("list empty", func(mt *mtest.T) {
		ns := mt.Coll.Database().Name() + "." + mt.Coll.Name()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch))

		users, err := NewUserRepository(mt.Coll).List(ctx)
		require.NoError(mt, err)
		assert.NotNil(mt, users)
		assert.Empty(mt, users)
	})

	mt.Run("update returns new document", func(mt *mtest.T) {
		oid := primitive.NewObjectID()
		doc := userDoc(oid, "a@example.com", created)
		doc[1] = bson.E{Key: "name", Value: "Bob"}
		mt.AddMockResponses(bson.D{{Key: "ok", Value: 1}, {Key: "value", Value: doc}})

		name := "Bob"
		got, err := NewUserRepository(mt.Coll).Update(ctx, oid.Hex(), domain.UserPatch{Name: &name})
		require.NoError(mt, err)
		assert.Equal(mt, "Bob", got.Name)
	})

	mt.Run("update not found", func(mt *mtest.T) {
		mt.AddMockResponses(bson.D{{Key: "ok", Value: 1}, {Key: "value", Value: nil}})

		name := "Bob"
		_, err := NewUserRepository(mt.Coll).Update(ctx, primitive.NewObjectID().Hex(), domain.UserPatch{Name: &name})
		assert.ErrorIs(mt, err, repository.ErrNotFound)
	})

	mt.Run("update duplicate email", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{
			Code:    11000,
			Name:    "DuplicateKey",
			Message: "E11000 duplicate key error",
		}))

		email := "taken@example.com"
		_, err := NewUserRepository(mt.Coll).Update(ctx, primitive.NewObjectID().Hex(), domain.UserPatch{Email: &email})
		assert.ErrorIs(mt, err, repository.ErrDuplicateEmail)
	})

	mt.Run("delete", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}))
		require.NoError(mt, NewUserRepository(mt.Coll).Delete(ctx, primitive.NewObjectID().Hex()))
	})

	mt.Run("delete not found", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}))
		err := NewUserRepository(mt.Coll).Delete(ctx, primitive.NewObjectID().Hex())
		assert.ErrorIs(mt, err, repository.ErrNotFound)
	})
}
