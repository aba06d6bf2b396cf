package admin

import (
	"context"
	"errors"
	"fmt"

	"replication-connector/internal/replication/domain/repository"
	apperrors "replication-connector/internal/shared/errors"
	"replication-connector/internal/shared/logger"
)

// MirroredCollectionAdmin pairs every store collection with a cluster bucket.
// The store collection holds the documents and decides the outcome; the bucket
// carries the quota the store cannot enforce.
type MirroredCollectionAdmin struct {
	store  repository.CollectionAdmin
	mirror repository.CollectionAdmin
	logger logger.Logger
}

var _ repository.CollectionAdmin = (*MirroredCollectionAdmin)(nil)

// NewMirroredCollectionAdmin creates an admin that manages store and mirror together
func NewMirroredCollectionAdmin(store, mirror repository.CollectionAdmin, log logger.Logger) *MirroredCollectionAdmin {
	return &MirroredCollectionAdmin{
		store:  store,
		mirror: mirror,
		logger: log.WithComponent("mirrored_collection_admin"),
	}
}

// CreateCollection creates the bucket first so that a retry after a failed
// store create still builds the collection from scratch.
func (a *MirroredCollectionAdmin) CreateCollection(ctx context.Context, name string, quotaMB int) error {
	if err := a.mirror.CreateCollection(ctx, name, quotaMB); err != nil && !errors.Is(err, apperrors.ErrCollectionAlreadyExists) {
		return fmt.Errorf("quota bucket: %w", err)
	}
	return a.store.CreateCollection(ctx, name, quotaMB)
}

// DeleteCollection drops the store collection, then its bucket. Either side
// being already gone is not an error.
func (a *MirroredCollectionAdmin) DeleteCollection(ctx context.Context, name string) error {
	if err := a.store.DeleteCollection(ctx, name); err != nil && !errors.Is(err, apperrors.ErrCollectionNotFound) {
		return err
	}
	if err := a.mirror.DeleteCollection(ctx, name); err != nil {
		if errors.Is(err, apperrors.ErrCollectionNotFound) {
			a.logger.WithFields(map[string]interface{}{"collection": name}).Debug("Quota bucket already deleted")
			return nil
		}
		return fmt.Errorf("quota bucket: %w", err)
	}
	return nil
}
