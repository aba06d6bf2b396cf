package mongodb

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	apperrors "replication-connector/internal/shared/errors"
	"replication-connector/internal/shared/logger"
)

func TestCollectionAdmin_CreateCollection(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("created", func(mt *mtest.T) {
		admin := NewCollectionAdmin(mt.DB, logger.NewNopLogger())
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		assert.NoError(t, admin.CreateCollection(context.Background(), "golden", 100))
		assert.Equal(t, "create", mt.GetStartedEvent().CommandName)
	})

	mt.Run("already exists", func(mt *mtest.T) {
		admin := NewCollectionAdmin(mt.DB, logger.NewNopLogger())
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{
			Code:    48,
			Name:    "NamespaceExists",
			Message: "Collection already exists. NS: test.golden",
		}))

		err := admin.CreateCollection(context.Background(), "golden", 100)
		assert.ErrorIs(t, err, apperrors.ErrCollectionAlreadyExists)
	})

	mt.Run("failure", func(mt *mtest.T) {
		admin := NewCollectionAdmin(mt.DB, logger.NewNopLogger())
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{Code: 13, Message: "not authorized"}))

		err := admin.CreateCollection(context.Background(), "golden", 100)
		assert.ErrorContains(t, err, "not authorized")
		assert.NotErrorIs(t, err, apperrors.ErrCollectionAlreadyExists)
	})
}

func TestCollectionAdmin_DeleteCollection(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("dropped", func(mt *mtest.T) {
		admin := NewCollectionAdmin(mt.DB, logger.NewNopLogger())
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		assert.NoError(t, admin.DeleteCollection(context.Background(), "golden"))
		assert.Equal(t, "drop", mt.GetStartedEvent().CommandName)
	})

	mt.Run("failure", func(mt *mtest.T) {
		admin := NewCollectionAdmin(mt.DB, logger.NewNopLogger())
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{Code: 13, Message: "not authorized"}))

		assert.Error(t, admin.DeleteCollection(context.Background(), "golden"))
	})
}
