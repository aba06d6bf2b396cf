package usecase

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"replication-connector/internal/replication/domain/model"
	apperrors "replication-connector/internal/shared/errors"
)

// memoryStore is an in-memory DocumentStore. failOn makes the named operation
// fail for the given collection.
type memoryStore struct {
	mu          sync.Mutex
	collections map[string]map[string]model.Document
	indexes     map[string]bool
	failOn      map[string]error
	existsCalls int
	existsErr   error
	pingErr     error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		collections: make(map[string]map[string]model.Document),
		indexes:     make(map[string]bool),
		failOn:      make(map[string]error),
	}
}

func (s *memoryStore) fail(op, collection string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failOn[op+":"+collection] = err
}

func (s *memoryStore) injected(op, collection string) error {
	return s.failOn[op+":"+collection]
}

func (s *memoryStore) Exists(ctx context.Context, collection, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.existsCalls++
	if s.existsErr != nil {
		return false, s.existsErr
	}
	_, ok := s.collections[collection][key]
	return ok, nil
}

func (s *memoryStore) Get(ctx context.Context, collection, key string) (model.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.injected("get", collection); err != nil {
		return nil, err
	}
	doc, ok := s.collections[collection][key]
	if !ok {
		return nil, apperrors.ErrDocumentNotFound
	}
	return copyDocument(doc), nil
}

func (s *memoryStore) Upsert(ctx context.Context, collection, key string, doc model.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.injected("upsert", collection); err != nil {
		return err
	}
	if s.collections[collection] == nil {
		s.collections[collection] = make(map[string]model.Document)
	}
	s.collections[collection][key] = copyDocument(doc)
	return nil
}

func (s *memoryStore) Remove(ctx context.Context, collection, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.injected("remove", collection); err != nil {
		return err
	}
	delete(s.collections[collection], key)
	return nil
}

func (s *memoryStore) CreatePrimaryIndex(ctx context.Context, collection string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.injected("index", collection); err != nil {
		return err
	}
	if s.indexes[collection] {
		return apperrors.ErrIndexAlreadyExists
	}
	s.indexes[collection] = true
	return nil
}

func (s *memoryStore) Ping(ctx context.Context) error {
	return s.pingErr
}

func (s *memoryStore) doc(collection, key string) (model.Document, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.collections[collection][key]
	return doc, ok
}

func (s *memoryStore) keys(collection string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.collections[collection]))
	for k := range s.collections[collection] {
		keys = append(keys, k)
	}
	return keys
}

func copyDocument(doc model.Document) model.Document {
	out := make(model.Document, len(doc))
	for k, v := range doc {
		out[k] = v
	}
	return out
}

// MockCollectionAdmin records admin calls
type MockCollectionAdmin struct {
	mock.Mock
}

func (m *MockCollectionAdmin) CreateCollection(ctx context.Context, name string, quotaMB int) error {
	args := m.Called(ctx, name, quotaMB)
	return args.Error(0)
}

func (m *MockCollectionAdmin) DeleteCollection(ctx context.Context, name string) error {
	args := m.Called(ctx, name)
	return args.Error(0)
}

// memoryAdmin creates collections inside a memoryStore
type memoryAdmin struct {
	store *memoryStore

	mu      sync.Mutex
	created []string
	deleted []string
}

func newMemoryAdmin(store *memoryStore) *memoryAdmin {
	return &memoryAdmin{store: store}
}

func (a *memoryAdmin) CreateCollection(ctx context.Context, name string, quotaMB int) error {
	a.store.mu.Lock()
	defer a.store.mu.Unlock()
	if _, ok := a.store.collections[name]; ok {
		return apperrors.ErrCollectionAlreadyExists
	}
	a.store.collections[name] = make(map[string]model.Document)
	a.mu.Lock()
	a.created = append(a.created, name)
	a.mu.Unlock()
	return nil
}

func (a *memoryAdmin) DeleteCollection(ctx context.Context, name string) error {
	a.store.mu.Lock()
	defer a.store.mu.Unlock()
	if _, ok := a.store.collections[name]; !ok {
		return apperrors.ErrCollectionNotFound
	}
	delete(a.store.collections, name)
	delete(a.store.indexes, name)
	a.mu.Lock()
	a.deleted = append(a.deleted, name)
	a.mu.Unlock()
	return nil
}

func (a *memoryAdmin) calls() (created, deleted []string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.created...), append([]string(nil), a.deleted...)
}

func (a *memoryAdmin) reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.created, a.deleted = nil, nil
}

func testLifecycleOptions() LifecycleOptions {
	return LifecycleOptions{QuotaMB: 100, ReadinessAttempts: 5, ReadinessDelay: 0}
}

func testSchema() model.Schema {
	return model.Schema{
		ID:   "shape-1",
		Name: "Customers",
		Properties: []model.Property{
			{ID: "name", Name: "Name", Type: model.PropertyTypeString},
			{ID: "age", Name: "Age", Type: model.PropertyTypeInteger},
			{ID: "active", Name: "Active", Type: model.PropertyTypeBool},
		},
	}
}

func prepareRequest(jobID, golden, version string, jobVersion, shapeVersion int32) model.PrepareWriteRequest {
	return model.PrepareWriteRequest{
		Schema:           testSchema(),
		CommitSLASeconds: 5,
		Replication: &model.ReplicationWriteRequest{
			SettingsJSON: `{"GoldenCollectionName":"` + golden + `","VersionCollectionName":"` + version + `"}`,
		},
		DataVersions: model.DataVersions{
			JobID:            jobID,
			JobDataVersion:   jobVersion,
			ShapeID:          "shape-1",
			ShapeDataVersion: shapeVersion,
		},
	}
}

// assertErrorType checks the outermost AppError in err's chain
func assertErrorType(t *testing.T, err error, want apperrors.ErrorType) {
	t.Helper()
	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, want, appErr.Type)
}
