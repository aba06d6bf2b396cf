package di

import (
	"context"
	"fmt"
	"reflect"
	"sync"
	"time"

	"replication-connector/internal/replication"
	"replication-connector/internal/replication/config"
	"replication-connector/internal/replication/usecase"
	"replication-connector/internal/shared/logger"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
)

const cleanupTimeout = 30 * time.Second

// Container represents a dependency injection container with proper lifecycle management
type Container struct {
	mu        sync.RWMutex
	services  map[reflect.Type]interface{}
	factories map[reflect.Type]func() (interface{}, error)
	// Module instances
	ReplicationModule *replication.ReplicationModule
	// Connections
	MongoDB     *mongo.Database
	RedisClient *redis.Client
	// Configuration
	Config *config.Config
	// Logger
	Logger logger.Logger
}

// NewContainer creates a new DI container
func NewContainer() *Container {
	return &Container{
		services:  make(map[reflect.Type]interface{}),
		factories: make(map[reflect.Type]func() (interface{}, error)),
	}
}

// InitializeReplication builds the replication module and registers its
// collaborators for lookup. redisClient may be nil.
func (c *Container) InitializeReplication(mongoDB *mongo.Database, cfg *config.Config, redisClient *redis.Client) error {
	if mongoDB == nil {
		return fmt.Errorf("MongoDB must be initialized before replication module")
	}
	if cfg == nil {
		return fmt.Errorf("configuration must be loaded before replication module")
	}

	c.mu.Lock()
	if c.Logger == nil {
		c.Logger = logger.NewLogger()
	}
	c.MongoDB = mongoDB
	c.RedisClient = redisClient
	c.Config = cfg

	module, err := replication.NewReplicationModule(cfg, mongoDB, redisClient, c.Logger)
	if err != nil {
		c.mu.Unlock()
		return fmt.Errorf("failed to create replication module: %w", err)
	}
	c.ReplicationModule = module
	c.mu.Unlock()

	for _, service := range []interface{}{cfg, mongoDB, module, module.Usecase, module.Store} {
		if err := c.Register(service); err != nil {
			return err
		}
	}
	if redisClient != nil {
		if err := c.Register(redisClient); err != nil {
			return err
		}
	}
	return nil
}

// Register registers a service instance under its dynamic type
func (c *Container) Register(service interface{}) error {
	if service == nil {
		return fmt.Errorf("cannot register nil service")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.services[reflect.TypeOf(service)] = service
	return nil
}

// RegisterFactory registers a factory function for a service
func (c *Container) RegisterFactory(serviceType reflect.Type, factory func() (interface{}, error)) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.factories[serviceType] = factory
	return nil
}

// Resolve resolves a service by type
func (c *Container) Resolve(serviceType reflect.Type) (interface{}, error) {
	c.mu.RLock()

	// Check if service instance exists
	if service, exists := c.services[serviceType]; exists {
		c.mu.RUnlock()
		return service, nil
	}

	// Check if factory exists
	if factory, exists := c.factories[serviceType]; exists {
		c.mu.RUnlock()

		// Create new instance using factory
		service, err := factory()
		if err != nil {
			return nil, fmt.Errorf("failed to create service: %w", err)
		}

		// Register the created instance
		c.mu.Lock()
		c.services[serviceType] = service
		c.mu.Unlock()

		return service, nil
	}

	c.mu.RUnlock()
	return nil, fmt.Errorf("service of type %v not registered", serviceType)
}

// ResolveByInterface returns the first registered service implementing interfaceType
func (c *Container) ResolveByInterface(interfaceType reflect.Type) (interface{}, error) {
	if interfaceType.Kind() != reflect.Interface {
		return nil, fmt.Errorf("%v is not an interface type", interfaceType)
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	for serviceType, service := range c.services {
		if serviceType.Implements(interfaceType) {
			return service, nil
		}
	}

	return nil, fmt.Errorf("no service implements interface %v", interfaceType)
}

// GetService is a generic helper for resolving services. Interface types are
// matched against every registered implementation.
func GetService[T any](c *Container) (T, error) {
	var zero T
	serviceType := reflect.TypeOf((*T)(nil)).Elem()

	service, err := c.Resolve(serviceType)
	if err != nil && serviceType.Kind() == reflect.Interface {
		service, err = c.ResolveByInterface(serviceType)
	}
	if err != nil {
		return zero, err
	}

	if typedService, ok := service.(T); ok {
		return typedService, nil
	}

	return zero, fmt.Errorf("service is not of expected type %T", zero)
}

// HealthCheck pings the document store and, when configured, Redis
func (c *Container) HealthCheck(ctx context.Context) error {
	if uc, err := GetService[usecase.ReplicationUsecase](c); err == nil {
		if err := uc.Ping(ctx); err != nil {
			return fmt.Errorf("document store health check failed: %w", err)
		}
	} else if mongoDB, err := GetService[*mongo.Database](c); err == nil {
		if err := mongoDB.Client().Ping(ctx, nil); err != nil {
			return fmt.Errorf("MongoDB health check failed: %w", err)
		}
	}

	if redisClient, err := GetService[*redis.Client](c); err == nil {
		if err := redisClient.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("Redis health check failed: %w", err)
		}
	}

	return nil
}

// Cleanup performs cleanup of registered services with proper shutdown order
func (c *Container) Cleanup(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var errors []error

	if c.ReplicationModule != nil {
		c.ReplicationModule.Stop()
		c.ReplicationModule = nil
	}

	for _, service := range c.services {
		switch s := service.(type) {
		case interface{ Cleanup(context.Context) error }:
			if err := s.Cleanup(ctx); err != nil {
				errors = append(errors, fmt.Errorf("failed to cleanup service: %w", err))
			}
		case *redis.Client:
			if err := s.Close(); err != nil {
				errors = append(errors, fmt.Errorf("failed to close redis client: %w", err))
			}
		}
	}
	c.RedisClient = nil

	// Clear all services
	c.services = make(map[reflect.Type]interface{})
	c.factories = make(map[reflect.Type]func() (interface{}, error))

	if len(errors) > 0 {
		return fmt.Errorf("cleanup errors: %v", errors)
	}

	return nil
}

// Close gracefully shuts down all services in the container with timeout
func (c *Container) Close() error {
	log := c.Logger
	if log == nil {
		log = logger.NewNopLogger()
	}
	log.Info("Closing DI Container resources...")

	ctx, cancel := context.WithTimeout(context.Background(), cleanupTimeout)
	defer cancel()

	if err := c.Cleanup(ctx); err != nil {
		log.Warnf("Cleanup errors occurred: %v", err)
		return err
	}

	log.Info("DI Container resources closed.")
	return nil
}
