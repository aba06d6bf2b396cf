package usecase

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"replication-connector/internal/replication/domain/model"
	"replication-connector/internal/replication/domain/repository"
	apperrors "replication-connector/internal/shared/errors"
	"replication-connector/internal/shared/logger"
	"replication-connector/internal/shared/utils"
)

// ReplicationUsecase is the host-facing contract of the connector
type ReplicationUsecase interface {
	// Bootstrap prepares shared state such as the metadata collection
	Bootstrap(ctx context.Context) error
	Ping(ctx context.Context) error

	// Write path
	PrepareWrite(ctx context.Context, req model.PrepareWriteRequest) (*ReconcilePlan, error)
	WriteStream(ctx context.Context, jobID string, records <-chan model.Record) (<-chan model.RecordAck, error)
	WriteBatch(ctx context.Context, jobID string, records []model.Record) ([]model.RecordAck, error)

	// Configuration
	ConfigureReplication(req model.ConfigureReplicationRequest) model.ConfigureReplicationResponse

	// Session management
	Disconnect(jobID string) bool
	Close()
}

// WriteOptions bounds the write path
type WriteOptions struct {
	GateStripes   int
	MaxInFlight   int64
	RecordTimeout time.Duration
}

// DefaultWriteOptions mirrors the config defaults
func DefaultWriteOptions() WriteOptions {
	return WriteOptions{
		GateStripes:   256,
		MaxInFlight:   64,
		RecordTimeout: 30 * time.Second,
	}
}

// writeSession is the prepared state of one job
type writeSession struct {
	jobID       string
	schema      model.Schema
	names       model.CollectionNames
	commitSLA   time.Duration
	replication bool
	configured  bool
	gate        WriteGate
}

type replicationUsecase struct {
	reconciler *Reconciler
	lifecycle  *CollectionLifecycle
	writer     *RecordWriter
	store      repository.DocumentStore
	metadata   *MetadataStore
	lock       repository.RecordLock
	opts       WriteOptions
	inFlight   *semaphore.Weighted
	logger     logger.Logger

	mu       sync.RWMutex
	sessions map[string]*writeSession
}

// NewReplicationUsecase assembles the connector. lock may be nil, in which case
// records are serialized within this process only.
func NewReplicationUsecase(
	store repository.DocumentStore,
	admin repository.CollectionAdmin,
	metadataCollection string,
	lock repository.RecordLock,
	lifecycleOpts LifecycleOptions,
	writeOpts WriteOptions,
	log logger.Logger,
) ReplicationUsecase {
	if writeOpts.MaxInFlight < 1 {
		writeOpts.MaxInFlight = 1
	}
	lifecycle := NewCollectionLifecycle(admin, store, lifecycleOpts, log)
	metadata := NewMetadataStore(store, metadataCollection)
	return &replicationUsecase{
		reconciler: NewReconciler(lifecycle, metadata, log),
		lifecycle:  lifecycle,
		writer:     NewRecordWriter(store, log),
		store:      store,
		metadata:   metadata,
		lock:       lock,
		opts:       writeOpts,
		inFlight:   semaphore.NewWeighted(writeOpts.MaxInFlight),
		logger:     log.WithComponent("replication"),
		sessions:   make(map[string]*writeSession),
	}
}

func (uc *replicationUsecase) Bootstrap(ctx context.Context) error {
	if err := uc.lifecycle.EnsureCollection(ctx, uc.metadata.Collection()); err != nil {
		return err
	}
	uc.logger.WithContext(ctx).Infof("Metadata collection %s ready", uc.metadata.Collection())
	return nil
}

func (uc *replicationUsecase) Ping(ctx context.Context) error {
	if err := uc.store.Ping(ctx); err != nil {
		return apperrors.NewConnectivityError("document store is unreachable").WithCause(err)
	}
	return nil
}

func (uc *replicationUsecase) PrepareWrite(ctx context.Context, req model.PrepareWriteRequest) (*ReconcilePlan, error) {
	jobID := req.DataVersions.JobID
	if jobID == "" {
		return nil, apperrors.NewValidationError("prepare request is missing a job id")
	}
	ctx = utils.WithOperation(utils.WithJobID(ctx, jobID), "prepare_write")
	log := uc.logger.WithContext(ctx)

	session := &writeSession{
		jobID:       jobID,
		schema:      req.Schema,
		commitSLA:   time.Duration(req.CommitSLASeconds) * time.Second,
		replication: req.IsReplication(),
		gate:        uc.newGate(),
	}
	uc.putSession(session)

	if !session.replication {
		log.Warn("Prepared a non-replication write, records will be rejected")
		uc.markConfigured(jobID, session, model.CollectionNames{})
		return nil, nil
	}

	log.Info("Reconciling replication targets")
	plan, err := uc.reconciler.Reconcile(ctx, req)
	if err != nil {
		log.Errorf("Write preparation failed: %v", err)
		return nil, err
	}

	uc.markConfigured(jobID, session, plan.Names())
	log.Infof("Write prepared for golden=%s version=%s", plan.Golden.Current, plan.Version.Current)
	return plan, nil
}

func (uc *replicationUsecase) WriteStream(ctx context.Context, jobID string, records <-chan model.Record) (<-chan model.RecordAck, error) {
	session, err := uc.writableSession(jobID)
	if err != nil {
		return nil, err
	}
	ctx = utils.WithOperation(utils.WithJobID(ctx, jobID), "write_stream")

	acks := make(chan model.RecordAck, uc.opts.MaxInFlight)
	go func() {
		var wg sync.WaitGroup
		defer func() {
			wg.Wait()
			close(acks)
		}()
		for {
			var record model.Record
			var ok bool
			select {
			case <-ctx.Done():
				return
			case record, ok = <-records:
				if !ok {
					return
				}
			}
			if err := uc.inFlight.Acquire(ctx, 1); err != nil {
				acks <- model.RecordAck{CorrelationID: record.CorrelationID, Error: err.Error()}
				return
			}
			wg.Add(1)
			go func(record model.Record) {
				defer wg.Done()
				defer uc.inFlight.Release(1)
				acks <- uc.writeRecord(ctx, session, record)
			}(record)
		}
	}()
	return acks, nil
}

func (uc *replicationUsecase) WriteBatch(ctx context.Context, jobID string, records []model.Record) ([]model.RecordAck, error) {
	in := make(chan model.Record, len(records))
	for _, r := range records {
		in <- r
	}
	close(in)

	out, err := uc.WriteStream(ctx, jobID, in)
	if err != nil {
		return nil, err
	}
	acks := make([]model.RecordAck, 0, len(records))
	for ack := range out {
		acks = append(acks, ack)
	}
	return acks, nil
}

// writeRecord gates and writes one record. Once the gate is held the store
// operations ignore stream cancellation and are bounded by RecordTimeout.
func (uc *replicationUsecase) writeRecord(ctx context.Context, session *writeSession, record model.Record) model.RecordAck {
	ack := model.RecordAck{CorrelationID: record.CorrelationID}
	start := time.Now()

	release, err := session.gate.Acquire(ctx, session.jobID+":"+record.RecordID)
	if err != nil {
		ack.Error = err.Error()
		return ack
	}
	defer release()

	opCtx := context.WithoutCancel(ctx)
	if uc.opts.RecordTimeout > 0 {
		var cancel context.CancelFunc
		opCtx, cancel = context.WithTimeout(opCtx, uc.opts.RecordTimeout)
		defer cancel()
	}

	if err := uc.writer.Write(opCtx, session.schema, session.names, record); err != nil {
		ack.Error = err.Error()
		uc.logger.WithContext(ctx).WithFields(map[string]interface{}{
			"record_id":      record.RecordID,
			"correlation_id": record.CorrelationID,
		}).Errorf("Record write failed: %v", err)
		return ack
	}

	uc.logger.WithContext(ctx).WithFields(map[string]interface{}{
		"record_id":      record.RecordID,
		"correlation_id": record.CorrelationID,
		"elapsed_ms":     time.Since(start).Milliseconds(),
	}).Debug("Record written")
	return ack
}

func (uc *replicationUsecase) ConfigureReplication(req model.ConfigureReplicationRequest) model.ConfigureReplicationResponse {
	form := model.ConfigurationForm{
		DataJSON:  req.Form.DataJSON,
		StateJSON: req.Form.StateJSON,
		Errors:    []string{},
	}
	if req.Form.DataJSON == "" {
		return model.ConfigureReplicationResponse{Form: form}
	}

	settings, err := model.ParseReplicationSettings(req.Form.DataJSON)
	if err != nil {
		form.Errors = append(form.Errors, err.Error())
		return model.ConfigureReplicationResponse{Form: form}
	}
	form.Errors = append(form.Errors, model.ValidateReplicationSettings(settings)...)
	return model.ConfigureReplicationResponse{Form: form}
}

func (uc *replicationUsecase) Disconnect(jobID string) bool {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	if _, ok := uc.sessions[jobID]; !ok {
		return false
	}
	delete(uc.sessions, jobID)
	uc.logger.Infof("Write session for job %s closed", jobID)
	return true
}

func (uc *replicationUsecase) Close() {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	uc.sessions = make(map[string]*writeSession)
}

func (uc *replicationUsecase) newGate() WriteGate {
	local := NewStripedGate(uc.opts.GateStripes)
	if uc.lock == nil {
		return local
	}
	return NewLockedGate(local, uc.lock)
}

func (uc *replicationUsecase) putSession(s *writeSession) {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	uc.sessions[s.jobID] = s
}

// markConfigured publishes the session only if it is still the job's current one
func (uc *replicationUsecase) markConfigured(jobID string, s *writeSession, names model.CollectionNames) {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	if uc.sessions[jobID] != s {
		return
	}
	s.names = names
	s.configured = true
}

func (uc *replicationUsecase) writableSession(jobID string) (*writeSession, error) {
	uc.mu.RLock()
	defer uc.mu.RUnlock()
	s, ok := uc.sessions[jobID]
	if !ok || !s.configured {
		return nil, apperrors.ErrWriteNotPrepared
	}
	if !s.replication {
		return nil, apperrors.ErrReplicationOnly
	}
	return s, nil
}
