package replication

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	adminadapter "replication-connector/internal/replication/adapter/admin"
	mongodbpersistence "replication-connector/internal/replication/adapter/persistence/mongodb"
	"replication-connector/internal/replication/config"
	"replication-connector/internal/shared/logger"
)

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Mongo.URI = "mongodb://localhost:27017"
	return cfg
}

func TestNewReplicationModule(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("mongo admin without auth", func(mt *mtest.T) {
		module, err := NewReplicationModule(testConfig(), mt.DB, nil, logger.NewNopLogger())
		require.NoError(mt, err)

		assert.IsType(mt, &mongodbpersistence.CollectionAdmin{}, module.Admin)
		assert.Nil(mt, module.RecordLock)
		assert.Nil(mt, module.TokenService)
		assert.NotNil(mt, module.Usecase)
		assert.NotNil(mt, module.Handler)
	})

	mt.Run("http admin", func(mt *mtest.T) {
		cfg := testConfig()
		cfg.Admin.Mode = config.AdminModeHTTP
		cfg.Admin.BaseURL = "http://cluster:8091"

		module, err := NewReplicationModule(cfg, mt.DB, nil, logger.NewNopLogger())
		require.NoError(mt, err)
		assert.IsType(mt, &adminadapter.MirroredCollectionAdmin{}, module.Admin)
	})

	mt.Run("distributed lock needs redis", func(mt *mtest.T) {
		cfg := testConfig()
		cfg.Write.DistributedLock = true

		module, err := NewReplicationModule(cfg, mt.DB, nil, logger.NewNopLogger())
		assert.Error(mt, err)
		assert.Nil(mt, module)
	})

	mt.Run("auth enabled", func(mt *mtest.T) {
		cfg := testConfig()
		cfg.Auth.JWTSecretKey = "test-secret-key-32-characters-long-12345"

		module, err := NewReplicationModule(cfg, mt.DB, nil, logger.NewNopLogger())
		require.NoError(mt, err)
		assert.NotNil(mt, module.TokenService)
	})
}

func TestReplicationModule_Start(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("metadata collection already exists", func(mt *mtest.T) {
		module, err := NewReplicationModule(testConfig(), mt.DB, nil, logger.NewNopLogger())
		require.NoError(mt, err)

		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{
			Code:    48,
			Name:    "NamespaceExists",
			Message: "Collection already exists",
		}))

		assert.NoError(mt, module.Start(context.Background()))
		module.Stop()
	})

	mt.Run("create fails", func(mt *mtest.T) {
		module, err := NewReplicationModule(testConfig(), mt.DB, nil, logger.NewNopLogger())
		require.NoError(mt, err)

		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{Code: 13, Message: "not authorized"}))

		err = module.Start(context.Background())
		require.Error(mt, err)
		assert.Contains(mt, err.Error(), "failed to bootstrap replication module")
	})
}

func TestReplicationModule_RegisterRoutesRequiresToken(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("unauthenticated", func(mt *mtest.T) {
		cfg := testConfig()
		cfg.Auth.JWTSecretKey = "test-secret-key-32-characters-long-12345"

		module, err := NewReplicationModule(cfg, mt.DB, nil, logger.NewNopLogger())
		require.NoError(mt, err)

		app := fiber.New()
		module.RegisterRoutes(app)

		resp, err := app.Test(httptest.NewRequest(fiber.MethodPost, "/api/v1/replication/prepare", nil))
		require.NoError(mt, err)
		assert.Equal(mt, fiber.StatusUnauthorized, resp.StatusCode)
		assert.NotEmpty(mt, resp.Header.Get(fiber.HeaderXRequestID))
	})
}
