package usecase

import (
	"context"
	"errors"
	"time"

	"replication-connector/internal/replication/domain/model"
	"replication-connector/internal/replication/domain/repository"
	apperrors "replication-connector/internal/shared/errors"
	"replication-connector/internal/shared/logger"
)

// RecordWriter applies one change record to the golden and version collections.
// Callers serialize calls for the same record id.
type RecordWriter struct {
	store  repository.DocumentStore
	logger logger.Logger
	now    func() time.Time
}

// NewRecordWriter creates a record writer over store
func NewRecordWriter(store repository.DocumentStore, log logger.Logger) *RecordWriter {
	return &RecordWriter{
		store:  store,
		logger: log.WithComponent("record_writer"),
		now:    time.Now,
	}
}

// Write projects the record, diffs its version ids against the golden
// document and issues the resulting upserts and removes. Nothing is rolled back
// when a step fails.
func (w *RecordWriter) Write(ctx context.Context, schema model.Schema, names model.CollectionNames, record model.Record) error {
	if err := w.write(ctx, schema, names, record); err != nil {
		return apperrors.NewRecordWriteError(record.RecordID, err)
	}
	return nil
}

func (w *RecordWriter) write(ctx context.Context, schema model.Schema, names model.CollectionNames, record model.Record) error {
	now := w.now()
	projection, err := model.Project(schema, record.DataJSON, now)
	if err != nil {
		return err
	}
	current := record.VersionIDs()

	previous, err := w.previousVersionIDs(ctx, names.Golden, record.RecordID, current)
	if err != nil {
		return err
	}

	if len(projection) == 0 {
		return w.tombstone(ctx, names, record.RecordID, previous)
	}

	golden := projection.Document().WithVersionIDs(current)
	if err := w.store.Upsert(ctx, names.Golden, record.RecordID, golden); err != nil {
		return err
	}

	stale := model.Difference(previous, current)
	for _, id := range stale {
		if err := w.store.Remove(ctx, names.Version, id); err != nil {
			return err
		}
	}

	for _, version := range record.Versions {
		versionProjection, err := model.Project(schema, version.DataJSON, now)
		if err != nil {
			return err
		}
		if err := w.store.Upsert(ctx, names.Version, version.RecordID, versionProjection.Document()); err != nil {
			return err
		}
	}

	w.logger.WithContext(ctx).WithFields(map[string]interface{}{
		"record_id": record.RecordID,
		"versions":  len(current),
		"removed":   len(stale),
	}).Debug("Upserted golden record")
	return nil
}

func (w *RecordWriter) tombstone(ctx context.Context, names model.CollectionNames, recordID string, previous []string) error {
	if err := w.store.Remove(ctx, names.Golden, recordID); err != nil {
		return err
	}
	for _, id := range previous {
		if err := w.store.Remove(ctx, names.Version, id); err != nil {
			return err
		}
	}
	w.logger.WithContext(ctx).WithFields(map[string]interface{}{
		"record_id": recordID,
		"versions":  len(previous),
	}).Debug("Removed tombstoned golden record")
	return nil
}

// previousVersionIDs reads the version ids recorded on the golden document,
// falling back to current when there is no document or no recorded ids.
func (w *RecordWriter) previousVersionIDs(ctx context.Context, collection, recordID string, current []string) ([]string, error) {
	doc, err := w.store.Get(ctx, collection, recordID)
	if errors.Is(err, apperrors.ErrDocumentNotFound) {
		return current, nil
	}
	if err != nil {
		return nil, err
	}
	ids, ok, err := doc.VersionIDs()
	if err != nil {
		return nil, err
	}
	if !ok {
		return current, nil
	}
	return ids, nil
}
