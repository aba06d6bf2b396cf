package usecase

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apperrors "replication-connector/internal/shared/errors"
	"replication-connector/internal/shared/logger"
)

func TestEnsureCollection_CreatesAndIndexes(t *testing.T) {
	store := newMemoryStore()
	admin := newMemoryAdmin(store)
	lc := NewCollectionLifecycle(admin, store, testLifecycleOptions(), logger.NewNopLogger())

	require.NoError(t, lc.EnsureCollection(context.Background(), "golden"))

	created, _ := admin.calls()
	assert.Equal(t, []string{"golden"}, created)
	assert.True(t, store.indexes["golden"])
	assert.Equal(t, 1, store.existsCalls)
}

func TestEnsureCollection_AlreadyExistsIsIdempotent(t *testing.T) {
	store := newMemoryStore()
	admin := new(MockCollectionAdmin)
	admin.On("CreateCollection", mock.Anything, "golden", 100).Return(apperrors.ErrCollectionAlreadyExists)
	lc := NewCollectionLifecycle(admin, store, testLifecycleOptions(), logger.NewNopLogger())

	require.NoError(t, lc.EnsureCollection(context.Background(), "golden"))
	require.NoError(t, lc.EnsureCollection(context.Background(), "golden"))

	admin.AssertNumberOfCalls(t, "CreateCollection", 2)
	assert.Zero(t, store.existsCalls)
	assert.False(t, store.indexes["golden"])
}

func TestEnsureCollection_ReadinessIsBounded(t *testing.T) {
	store := newMemoryStore()
	store.existsErr = errors.New("bucket warming up")
	admin := new(MockCollectionAdmin)
	admin.On("CreateCollection", mock.Anything, "golden", 100).Return(nil)
	lc := NewCollectionLifecycle(admin, store, testLifecycleOptions(), logger.NewNopLogger())

	err := lc.EnsureCollection(context.Background(), "golden")
	require.Error(t, err)
	assert.Equal(t, 5, store.existsCalls)
	assertErrorType(t, err, apperrors.ErrorTypeCollectionLifecycle)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeCollectionNotReady))
	assert.ErrorIs(t, err, apperrors.ErrCollectionNotReady)
	assert.False(t, store.indexes["golden"])
}

func TestEnsureCollection_ReadinessWaitHonorsContext(t *testing.T) {
	store := newMemoryStore()
	store.existsErr = errors.New("bucket warming up")
	admin := new(MockCollectionAdmin)
	admin.On("CreateCollection", mock.Anything, "golden", 100).Return(nil)
	opts := testLifecycleOptions()
	opts.ReadinessDelay = time.Hour
	lc := NewCollectionLifecycle(admin, store, opts, logger.NewNopLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := lc.EnsureCollection(ctx, "golden")
	require.Error(t, err)
	assert.Less(t, time.Since(start), 5*time.Second)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeCollectionNotReady))
}

func TestEnsureCollection_IndexAlreadyExists(t *testing.T) {
	store := newMemoryStore()
	store.indexes["golden"] = true
	admin := newMemoryAdmin(store)
	lc := NewCollectionLifecycle(admin, store, testLifecycleOptions(), logger.NewNopLogger())

	assert.NoError(t, lc.EnsureCollection(context.Background(), "golden"))
}

func TestEnsureCollection_IndexFailure(t *testing.T) {
	store := newMemoryStore()
	store.fail("index", "golden", errors.New("index service down"))
	admin := newMemoryAdmin(store)
	lc := NewCollectionLifecycle(admin, store, testLifecycleOptions(), logger.NewNopLogger())

	err := lc.EnsureCollection(context.Background(), "golden")
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeIndexCreationFailed))
	assert.Contains(t, err.Error(), "index service down")
}

func TestEnsureCollection_CreateFailure(t *testing.T) {
	store := newMemoryStore()
	admin := new(MockCollectionAdmin)
	admin.On("CreateCollection", mock.Anything, "golden", 100).Return(errors.New("quota exceeded"))
	lc := NewCollectionLifecycle(admin, store, testLifecycleOptions(), logger.NewNopLogger())

	err := lc.EnsureCollection(context.Background(), "golden")
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeCollectionCreationFailed))
	assert.Zero(t, store.existsCalls)
}

func TestDeleteCollection(t *testing.T) {
	store := newMemoryStore()
	admin := new(MockCollectionAdmin)
	admin.On("DeleteCollection", mock.Anything, "old").Return(nil).Once()
	admin.On("DeleteCollection", mock.Anything, "locked").Return(errors.New("status 403: forbidden")).Once()
	lc := NewCollectionLifecycle(admin, store, testLifecycleOptions(), logger.NewNopLogger())

	assert.NoError(t, lc.DeleteCollection(context.Background(), "old"))

	err := lc.DeleteCollection(context.Background(), "locked")
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeCollectionDeletionFailed))
	assert.Equal(t, "failed to delete collection locked: status 403: forbidden", err.Error())
	admin.AssertExpectations(t)
}

func TestDeleteCollection_AlreadyGone(t *testing.T) {
	store := newMemoryStore()
	admin := new(MockCollectionAdmin)
	admin.On("DeleteCollection", mock.Anything, "gone").
		Return(fmt.Errorf("status 404: %w", apperrors.ErrCollectionNotFound)).Once()
	lc := NewCollectionLifecycle(admin, store, testLifecycleOptions(), logger.NewNopLogger())

	assert.NoError(t, lc.DeleteCollection(context.Background(), "gone"))
	admin.AssertExpectations(t)
}

func TestNewCollectionLifecycle_AttemptsFloor(t *testing.T) {
	store := newMemoryStore()
	store.existsErr = errors.New("down")
	admin := newMemoryAdmin(store)
	opts := testLifecycleOptions()
	opts.ReadinessAttempts = 0
	lc := NewCollectionLifecycle(admin, store, opts, logger.NewNopLogger())

	assert.Error(t, lc.EnsureCollection(context.Background(), "golden"))
	assert.Equal(t, 1, store.existsCalls)
}
