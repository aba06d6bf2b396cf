package usecase

import (
	"context"
	"errors"
	"time"

	"replication-connector/internal/replication/domain/repository"
	apperrors "replication-connector/internal/shared/errors"
	"replication-connector/internal/shared/logger"
)

// readinessKey is read to decide whether a fresh collection serves requests
const readinessKey = "__readiness_probe__"

// LifecycleOptions configures collection creation
type LifecycleOptions struct {
	QuotaMB           int
	ReadinessAttempts int
	ReadinessDelay    time.Duration
}

// DefaultLifecycleOptions mirrors the config defaults
func DefaultLifecycleOptions() LifecycleOptions {
	return LifecycleOptions{
		QuotaMB:           100,
		ReadinessAttempts: 5,
		ReadinessDelay:    time.Second,
	}
}

// CollectionLifecycle creates, readies and drops collections.
type CollectionLifecycle struct {
	admin  repository.CollectionAdmin
	store  repository.DocumentStore
	opts   LifecycleOptions
	logger logger.Logger
}

// NewCollectionLifecycle wires a lifecycle manager. Attempts below one are raised to one.
func NewCollectionLifecycle(admin repository.CollectionAdmin, store repository.DocumentStore, opts LifecycleOptions, log logger.Logger) *CollectionLifecycle {
	if opts.ReadinessAttempts < 1 {
		opts.ReadinessAttempts = 1
	}
	return &CollectionLifecycle{
		admin:  admin,
		store:  store,
		opts:   opts,
		logger: log.WithComponent("collection_lifecycle"),
	}
}

// EnsureCollection creates name if missing, waits until it answers reads and
// builds its primary index. An existing collection is left as is.
func (l *CollectionLifecycle) EnsureCollection(ctx context.Context, name string) error {
	log := l.logger.WithContext(ctx).WithFields(map[string]interface{}{"collection": name})

	err := l.admin.CreateCollection(ctx, name, l.opts.QuotaMB)
	if errors.Is(err, apperrors.ErrCollectionAlreadyExists) {
		log.Debug("Collection already exists")
		return nil
	}
	if err != nil {
		log.Errorf("Failed to create collection: %v", err)
		return apperrors.NewCollectionCreationError(name, err)
	}
	log.Info("Collection created, waiting for readiness")

	if err := l.waitReady(ctx, name); err != nil {
		log.Errorf("Collection did not become ready: %v", err)
		return err
	}

	if err := l.store.CreatePrimaryIndex(ctx, name); err != nil {
		if errors.Is(err, apperrors.ErrIndexAlreadyExists) {
			log.Debug("Primary index already exists")
			return nil
		}
		log.Errorf("Failed to create primary index: %v", err)
		return apperrors.NewIndexCreationError(name, err)
	}

	log.Info("Collection ready")
	return nil
}

// DeleteCollection drops name. A collection that is already gone counts as deleted.
func (l *CollectionLifecycle) DeleteCollection(ctx context.Context, name string) error {
	log := l.logger.WithContext(ctx).WithFields(map[string]interface{}{"collection": name})
	err := l.admin.DeleteCollection(ctx, name)
	if errors.Is(err, apperrors.ErrCollectionNotFound) {
		log.Info("Collection already deleted")
		return nil
	}
	if err != nil {
		log.Errorf("Failed to delete collection: %v", err)
		return apperrors.NewCollectionDeletionError(name, err)
	}
	log.Info("Collection deleted")
	return nil
}

func (l *CollectionLifecycle) waitReady(ctx context.Context, name string) error {
	var lastErr error
	for attempt := 1; attempt <= l.opts.ReadinessAttempts; attempt++ {
		_, err := l.store.Exists(ctx, name, readinessKey)
		if err == nil {
			return nil
		}
		lastErr = err
		l.logger.Debugf("Readiness check %d/%d on %s failed: %v", attempt, l.opts.ReadinessAttempts, name, err)

		if attempt == l.opts.ReadinessAttempts {
			break
		}
		if err := sleepContext(ctx, l.opts.ReadinessDelay); err != nil {
			return apperrors.NewCollectionNotReadyError(name, attempt, err)
		}
	}
	return apperrors.NewCollectionNotReadyError(name, l.opts.ReadinessAttempts, lastErr)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
