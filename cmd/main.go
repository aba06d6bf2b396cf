package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"replication-connector/internal/di"
	"replication-connector/internal/replication"
	"replication-connector/internal/replication/config"
	apperrors "replication-connector/internal/shared/errors"
	"replication-connector/internal/shared/logger"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func main() {
	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: Could not load .env file: %v", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	appLogger := logger.NewLogger()
	appLogger.Info("Replication connector starting")

	container := di.NewContainer()
	container.Logger = appLogger
	defer func() {
		if err := container.Close(); err != nil {
			appLogger.Errorf("Failed to close container: %v", err)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	mongoClient, err := connectMongo(ctx, cfg.Mongo.URI)
	if err != nil {
		appLogger.Fatalf("%v", err)
	}
	defer func() {
		if err := mongoClient.Disconnect(context.Background()); err != nil {
			appLogger.Errorf("Failed to disconnect MongoDB: %v", err)
		}
	}()
	appLogger.Info("MongoDB connection established successfully")

	var redisClient *redis.Client
	if cfg.Write.DistributedLock {
		redisClient = config.NewRedisClient(&cfg.Redis)
		if err := redisClient.Ping(ctx).Err(); err != nil {
			appLogger.Fatalf("%v", apperrors.NewConnectivityError("failed to ping Redis").WithCause(err))
		}
		appLogger.Infof("Redis connection established at %s", cfg.Redis.GetAddr())
	}

	if err := container.InitializeReplication(mongoClient.Database(cfg.Mongo.DatabaseName), cfg, redisClient); err != nil {
		appLogger.Fatalf("Failed to initialize replication module: %v", err)
	}
	module, err := di.GetService[*replication.ReplicationModule](container)
	if err != nil {
		appLogger.Fatalf("Failed to resolve replication module: %v", err)
	}

	if err := module.Start(ctx); err != nil {
		appLogger.Fatalf("%v", err)
	}

	app := fiber.New(fiber.Config{
		AppName:      "Replication Connector",
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if fe, ok := err.(*fiber.Error); ok {
				code = fe.Code
			}
			if code >= fiber.StatusInternalServerError {
				appLogger.Errorf("HTTP Error: %v", err)
			}
			return c.Status(code).JSON(fiber.Map{
				"error":   "request_failed",
				"message": err.Error(),
			})
		},
	})

	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,DELETE,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-Request-ID",
	}))

	// Readiness covers every backing service; /health only the document store.
	app.Get("/ready", func(c *fiber.Ctx) error {
		readyCtx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
		defer cancel()

		if err := container.HealthCheck(readyCtx); err != nil {
			appLogger.Errorf("Readiness check failed: %v", err)
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"status":  "UNHEALTHY",
				"error":   err.Error(),
				"message": "One or more services are unhealthy",
			})
		}
		return c.JSON(fiber.Map{
			"status":    "HEALTHY",
			"timestamp": time.Now().UTC(),
		})
	})

	module.RegisterRoutes(app)

	serverAddr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	appLogger.Infof("Starting HTTP server on %s", serverAddr)

	serverShutdown := make(chan error, 1)
	go func() {
		serverShutdown <- app.Listen(serverAddr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverShutdown:
		if err != nil {
			appLogger.Errorf("Server startup failed: %v", err)
		}
	case sig := <-quit:
		appLogger.Infof("Received shutdown signal: %v", sig)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := app.ShutdownWithContext(shutdownCtx); err != nil {
			appLogger.Errorf("Server forced to shutdown: %v", err)
		}
		appLogger.Info("HTTP server stopped")
	}
}

func connectMongo(ctx context.Context, uri string) (*mongo.Client, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, apperrors.NewConnectivityError("failed to connect to MongoDB").WithCause(err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, apperrors.NewConnectivityError("failed to ping MongoDB").WithCause(err)
	}
	return client, nil
}
