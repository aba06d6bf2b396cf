package usecase

import (
	"context"
	"fmt"

	"replication-connector/internal/replication/domain/model"
	"replication-connector/internal/replication/domain/repository"
	apperrors "replication-connector/internal/shared/errors"
)

// MetadataStore keeps run metadata as documents of a dedicated collection, keyed by job id.
type MetadataStore struct {
	store      repository.DocumentStore
	collection string
}

var _ repository.MetadataRepository = (*MetadataStore)(nil)

// NewMetadataStore returns a metadata accessor over collection
func NewMetadataStore(store repository.DocumentStore, collection string) *MetadataStore {
	return &MetadataStore{store: store, collection: collection}
}

// Collection returns the backing collection name
func (m *MetadataStore) Collection() string {
	return m.collection
}

// Get returns the job's last metadata, or nil when the job was never reconciled
func (m *MetadataStore) Get(ctx context.Context, jobID string) (*model.RunMetadata, error) {
	doc, err := m.store.Get(ctx, m.collection, jobID)
	if apperrors.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read metadata for job %s: %w", jobID, err)
	}
	return model.RunMetadataFromDocument(doc)
}

// Put overwrites the job's metadata
func (m *MetadataStore) Put(ctx context.Context, metadata *model.RunMetadata) error {
	doc, err := metadata.ToDocument()
	if err != nil {
		return err
	}
	if err := m.store.Upsert(ctx, m.collection, metadata.JobID, doc); err != nil {
		return fmt.Errorf("failed to write metadata for job %s: %w", metadata.JobID, err)
	}
	return nil
}
