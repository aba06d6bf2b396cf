package di

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"replication-connector/internal/replication"
	"replication-connector/internal/replication/config"
	"replication-connector/internal/replication/domain/repository"
	"replication-connector/internal/replication/usecase"
	"replication-connector/internal/shared/logger"
)

type closer struct {
	name    string
	cleaned bool
}

func (p *closer) Cleanup(context.Context) error {
	p.cleaned = true
	return nil
}

type named interface {
	Name() string
}

type namedService struct{ value string }

func (n namedService) Name() string { return n.value }

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Mongo.URI = "mongodb://localhost:27017"
	return cfg
}

func TestContainer_RegisterAndResolve(t *testing.T) {
	c := NewContainer()
	p := &closer{name: "p"}

	require.NoError(t, c.Register(p))

	resolved, err := GetService[*closer](c)
	require.NoError(t, err)
	assert.Same(t, p, resolved)

	_, err = GetService[*namedService](c)
	assert.Error(t, err)

	assert.Error(t, c.Register(nil))
}

func TestContainer_RegisterFactory(t *testing.T) {
	c := NewContainer()
	calls := 0
	require.NoError(t, c.RegisterFactory(reflect.TypeOf(&closer{}), func() (interface{}, error) {
		calls++
		return &closer{name: "built"}, nil
	}))

	first, err := GetService[*closer](c)
	require.NoError(t, err)
	second, err := GetService[*closer](c)
	require.NoError(t, err)

	assert.Equal(t, "built", first.name)
	assert.Same(t, first, second)
	assert.Equal(t, 1, calls)
}

func TestContainer_FactoryError(t *testing.T) {
	c := NewContainer()
	require.NoError(t, c.RegisterFactory(reflect.TypeOf(&closer{}), func() (interface{}, error) {
		return nil, errors.New("boom")
	}))

	_, err := c.Resolve(reflect.TypeOf(&closer{}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}

func TestContainer_ResolveByInterface(t *testing.T) {
	c := NewContainer()
	require.NoError(t, c.Register(namedService{value: "svc"}))

	svc, err := GetService[named](c)
	require.NoError(t, err)
	assert.Equal(t, "svc", svc.Name())

	_, err = c.ResolveByInterface(reflect.TypeOf(namedService{}))
	assert.Error(t, err)
}

func TestContainer_CleanupRunsServiceCleanup(t *testing.T) {
	c := NewContainer()
	c.Logger = logger.NewNopLogger()
	p := &closer{}
	require.NoError(t, c.Register(p))

	require.NoError(t, c.Close())
	assert.True(t, p.cleaned)

	_, err := GetService[*closer](c)
	assert.Error(t, err)
}

func TestContainer_InitializeReplication(t *testing.T) {
	t.Run("requires database", func(t *testing.T) {
		c := NewContainer()
		err := c.InitializeReplication(nil, testConfig(), nil)
		assert.Error(t, err)
	})

	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("registers module services", func(mt *mtest.T) {
		c := NewContainer()
		c.Logger = logger.NewNopLogger()

		require.NoError(mt, c.InitializeReplication(mt.DB, testConfig(), nil))
		module, err := GetService[*replication.ReplicationModule](c)
		require.NoError(mt, err)
		assert.Same(mt, c.ReplicationModule, module)

		uc, err := GetService[usecase.ReplicationUsecase](c)
		require.NoError(mt, err)
		assert.Equal(mt, module.Usecase, uc)

		store, err := GetService[repository.DocumentStore](c)
		require.NoError(mt, err)
		assert.Equal(mt, module.Store, store)

		cfg, err := GetService[*config.Config](c)
		require.NoError(mt, err)
		assert.Equal(mt, "replication_metadata", cfg.Mongo.MetadataCollection)

		mt.AddMockResponses(mtest.CreateSuccessResponse())
		assert.NoError(mt, c.HealthCheck(context.Background()))

		require.NoError(mt, c.Cleanup(context.Background()))
		assert.Nil(mt, c.ReplicationModule)
		_, err = GetService[*replication.ReplicationModule](c)
		assert.Error(mt, err)
	})

	mt.Run("distributed lock without redis", func(mt *mtest.T) {
		c := NewContainer()
		c.Logger = logger.NewNopLogger()
		cfg := testConfig()
		cfg.Write.DistributedLock = true

		assert.Error(mt, c.InitializeReplication(mt.DB, cfg, nil))
		_, err := GetService[*replication.ReplicationModule](c)
		assert.Error(mt, err)
	})
}
