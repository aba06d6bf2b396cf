package mongodb

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"replication-connector/internal/replication/domain/model"
	"replication-connector/internal/replication/domain/repository"
	apperrors "replication-connector/internal/shared/errors"
	"replication-connector/internal/shared/logger"
)

// PrimaryIndexName names the index built by CreatePrimaryIndex
const PrimaryIndexName = "#primary"

// MongoDB server error codes
const (
	codeNamespaceExists       = 48
	codeIndexOptionsConflict  = 85
	codeIndexKeySpecsConflict = 86
)

// DocumentStore keeps every document under its key in _id with the payload
// fields at the top level.
type DocumentStore struct {
	db     *mongo.Database
	logger logger.Logger
}

var _ repository.DocumentStore = (*DocumentStore)(nil)

// NewDocumentStore creates a document store over db
func NewDocumentStore(db *mongo.Database, log logger.Logger) *DocumentStore {
	return &DocumentStore{db: db, logger: log.WithComponent("mongo_document_store")}
}

func (s *DocumentStore) Exists(ctx context.Context, collection, key string) (bool, error) {
	opts := options.FindOne().SetProjection(bson.M{"_id": 1})
	err := s.db.Collection(collection).FindOne(ctx, bson.M{"_id": key}, opts).Err()
	if errors.Is(err, mongo.ErrNoDocuments) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check %s/%s: %w", collection, key, err)
	}
	return true, nil
}

func (s *DocumentStore) Get(ctx context.Context, collection, key string) (model.Document, error) {
	var raw bson.M
	err := s.db.Collection(collection).FindOne(ctx, bson.M{"_id": key}).Decode(&raw)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, apperrors.ErrDocumentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get %s/%s: %w", collection, key, err)
	}
	delete(raw, "_id")
	return toDocument(raw), nil
}

func (s *DocumentStore) Upsert(ctx context.Context, collection, key string, doc model.Document) error {
	replacement := make(bson.M, len(doc))
	for k, v := range doc {
		if k == "_id" {
			continue
		}
		replacement[k] = v
	}
	opts := options.Replace().SetUpsert(true)
	if _, err := s.db.Collection(collection).ReplaceOne(ctx, bson.M{"_id": key}, replacement, opts); err != nil {
		return fmt.Errorf("failed to upsert %s/%s: %w", collection, key, err)
	}
	return nil
}

func (s *DocumentStore) Remove(ctx context.Context, collection, key string) error {
	if _, err := s.db.Collection(collection).DeleteOne(ctx, bson.M{"_id": key}); err != nil {
		return fmt.Errorf("failed to remove %s/%s: %w", collection, key, err)
	}
	return nil
}

func (s *DocumentStore) CreatePrimaryIndex(ctx context.Context, collection string) error {
	index := mongo.IndexModel{
		Keys:    bson.D{{Key: "_id", Value: "hashed"}},
		Options: options.Index().SetName(PrimaryIndexName),
	}
	_, err := s.db.Collection(collection).Indexes().CreateOne(ctx, index)
	if hasErrorCode(err, codeIndexOptionsConflict, codeIndexKeySpecsConflict) {
		return apperrors.ErrIndexAlreadyExists
	}
	if err != nil {
		return fmt.Errorf("failed to create primary index on %s: %w", collection, err)
	}
	s.logger.Debugf("Primary index created on %s", collection)
	return nil
}

func (s *DocumentStore) Ping(ctx context.Context) error {
	return s.db.Client().Ping(ctx, readpref.Primary())
}

func hasErrorCode(err error, codes ...int) bool {
	if err == nil {
		return false
	}
	var serverErr mongo.ServerError
	if !errors.As(err, &serverErr) {
		return false
	}
	for _, code := range codes {
		if serverErr.HasErrorCode(code) {
			return true
		}
	}
	return false
}

// toDocument converts decoded BSON into plain maps and slices
func toDocument(m bson.M) model.Document {
	doc := make(model.Document, len(m))
	for k, v := range m {
		doc[k] = normalize(v)
	}
	return doc
}

func normalize(v interface{}) interface{} {
	switch val := v.(type) {
	case bson.M:
		out := make(map[string]interface{}, len(val))
		for k, item := range val {
			out[k] = normalize(item)
		}
		return out
	case bson.D:
		out := make(map[string]interface{}, len(val))
		for _, e := range val {
			out[e.Key] = normalize(e.Value)
		}
		return out
	case bson.A:
		out := make([]interface{}, len(val))
		for i, item := range val {
			out[i] = normalize(item)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, item := range val {
			out[i] = normalize(item)
		}
		return out
	case primitive.DateTime:
		return val.Time().UTC()
	default:
		return v
	}
}
