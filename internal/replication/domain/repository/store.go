package repository

import (
	"context"

	"replication-connector/internal/replication/domain/model"
)

// DocumentStore is the per-document capability of the target store.
// Get returns errors.ErrDocumentNotFound for a missing key, Remove of a missing
// key succeeds, and CreatePrimaryIndex returns errors.ErrIndexAlreadyExists when
// the index is already there.
type DocumentStore interface {
	Exists(ctx context.Context, collection, key string) (bool, error)
	Get(ctx context.Context, collection, key string) (model.Document, error)
	Upsert(ctx context.Context, collection, key string, doc model.Document) error
	Remove(ctx context.Context, collection, key string) error
	CreatePrimaryIndex(ctx context.Context, collection string) error
	Ping(ctx context.Context) error
}

// CollectionAdmin is the administrative surface used to create and drop collections.
// CreateCollection returns errors.ErrCollectionAlreadyExists when the name is taken.
type CollectionAdmin interface {
	CreateCollection(ctx context.Context, name string, quotaMB int) error
	DeleteCollection(ctx context.Context, name string) error
}

// MetadataRepository persists one RunMetadata document per job id.
// Get returns (nil, nil) when the job has never been reconciled.
type MetadataRepository interface {
	Get(ctx context.Context, jobID string) (*model.RunMetadata, error)
	Put(ctx context.Context, metadata *model.RunMetadata) error
}

// RecordLock serializes writers of one golden record across processes
type RecordLock interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}
