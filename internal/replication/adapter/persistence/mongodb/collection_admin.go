package mongodb

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo"

	"replication-connector/internal/replication/domain/repository"
	apperrors "replication-connector/internal/shared/errors"
	"replication-connector/internal/shared/logger"
)

// CollectionAdmin creates and drops collections in one database. MongoDB has no
// per-collection memory quota, so the quota is only logged. Driver errors are
// returned unwrapped; the caller adds the collection context.
type CollectionAdmin struct {
	db     *mongo.Database
	logger logger.Logger
}

var _ repository.CollectionAdmin = (*CollectionAdmin)(nil)

// NewCollectionAdmin creates an admin over db
func NewCollectionAdmin(db *mongo.Database, log logger.Logger) *CollectionAdmin {
	return &CollectionAdmin{db: db, logger: log.WithComponent("mongo_collection_admin")}
}

func (a *CollectionAdmin) CreateCollection(ctx context.Context, name string, quotaMB int) error {
	err := a.db.CreateCollection(ctx, name)
	if hasErrorCode(err, codeNamespaceExists) {
		return apperrors.ErrCollectionAlreadyExists
	}
	if err != nil {
		return err
	}
	a.logger.WithFields(map[string]interface{}{
		"collection": name,
		"quota_mb":   quotaMB,
	}).Info("Collection created")
	return nil
}

func (a *CollectionAdmin) DeleteCollection(ctx context.Context, name string) error {
	if err := a.db.Collection(name).Drop(ctx); err != nil {
		return err
	}
	a.logger.WithFields(map[string]interface{}{"collection": name}).Info("Collection dropped")
	return nil
}
