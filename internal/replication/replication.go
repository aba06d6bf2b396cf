package replication

import (
	"context"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"

	adminadapter "replication-connector/internal/replication/adapter/admin"
	httpadapter "replication-connector/internal/replication/adapter/http"
	redispersistence "replication-connector/internal/replication/adapter/persistence"
	mongodbpersistence "replication-connector/internal/replication/adapter/persistence/mongodb"
	"replication-connector/internal/replication/adapter/security"
	"replication-connector/internal/replication/config"
	"replication-connector/internal/replication/domain/repository"
	"replication-connector/internal/replication/usecase"
	"replication-connector/internal/shared/logger"
)

// ReplicationModule wires the connector's adapters and usecases
type ReplicationModule struct {
	Config       *config.Config
	Store        repository.DocumentStore
	Admin        repository.CollectionAdmin
	RecordLock   repository.RecordLock
	Usecase      usecase.ReplicationUsecase
	Handler      *httpadapter.ReplicationHandler
	TokenService *security.TokenService
	RedisClient  *redis.Client
	Logger       logger.Logger
}

// NewReplicationModule builds the module. redisClient is only used when the
// distributed record lock is enabled.
func NewReplicationModule(cfg *config.Config, db *mongo.Database, redisClient *redis.Client, log logger.Logger) (*ReplicationModule, error) {
	log.Info("Initializing Replication Module...")

	store := mongodbpersistence.NewDocumentStore(db, log)

	// Documents always live in MongoDB, so the Mongo admin always owns the
	// collections. HTTP mode adds a quota bucket per collection on the cluster.
	var admin repository.CollectionAdmin = mongodbpersistence.NewCollectionAdmin(db, log)
	if cfg.Admin.Mode == config.AdminModeHTTP {
		buckets := adminadapter.NewHTTPCollectionAdmin(adminadapter.Options{
			BaseURL:  cfg.Admin.BaseURL,
			Username: cfg.Admin.Username,
			Password: cfg.Admin.Password,
			Timeout:  cfg.Admin.RequestTimeout,
		}, log)
		admin = adminadapter.NewMirroredCollectionAdmin(admin, buckets, log)
		log.Infof("Collection quotas are mirrored to the cluster REST API at %s", cfg.Admin.BaseURL)
	}

	var lock repository.RecordLock
	if cfg.Write.DistributedLock {
		if redisClient == nil {
			return nil, fmt.Errorf("distributed record lock requires a redis client")
		}
		lock = redispersistence.NewRedisRecordLock(redisClient, cfg.Write.LockTTL, cfg.Write.LockRetry, log)
		log.Info("Distributed record lock enabled")
	}

	var tokens *security.TokenService
	if cfg.Auth.Enabled() {
		var err error
		tokens, err = security.NewTokenService(cfg.Auth)
		if err != nil {
			return nil, fmt.Errorf("failed to create token service: %w", err)
		}
	} else {
		log.Warn("JWT_SECRET_KEY not set, replication API is unauthenticated")
	}

	uc := usecase.NewReplicationUsecase(
		store,
		admin,
		cfg.Mongo.MetadataCollection,
		lock,
		usecase.LifecycleOptions{
			QuotaMB:           cfg.Lifecycle.CollectionQuotaMB,
			ReadinessAttempts: cfg.Lifecycle.ReadinessAttempts,
			ReadinessDelay:    cfg.Lifecycle.ReadinessDelay,
		},
		usecase.WriteOptions{
			GateStripes:   cfg.Write.GateStripes,
			MaxInFlight:   cfg.Write.MaxInFlight,
			RecordTimeout: cfg.Write.RecordTimeout,
		},
		log,
	)

	return &ReplicationModule{
		Config:       cfg,
		Store:        store,
		Admin:        admin,
		RecordLock:   lock,
		Usecase:      uc,
		Handler:      httpadapter.NewReplicationHandler(uc, log),
		TokenService: tokens,
		RedisClient:  redisClient,
		Logger:       log,
	}, nil
}

// Start ensures the shared metadata collection exists
func (m *ReplicationModule) Start(ctx context.Context) error {
	if err := m.Usecase.Bootstrap(ctx); err != nil {
		return fmt.Errorf("failed to bootstrap replication module: %w", err)
	}
	m.Logger.Info("Replication module started")
	return nil
}

// RegisterRoutes mounts the replication API on app
func (m *ReplicationModule) RegisterRoutes(app *fiber.App) {
	app.Use(httpadapter.RequestID(), httpadapter.RequestContext())

	var validator httpadapter.TokenValidator
	if m.TokenService != nil {
		validator = m.TokenService
	}
	m.Handler.RegisterRoutes(app, httpadapter.BearerAuth(validator))
}

// Stop drops every write session
func (m *ReplicationModule) Stop() {
	m.Usecase.Close()
	m.Logger.Info("Replication module stopped")
}
