package http

import (
	"context"

	"replication-connector/internal/replication/domain/model"
	"replication-connector/internal/replication/usecase"
)

// stubUsecase lets each test override only the operations it exercises
type stubUsecase struct {
	bootstrapFunc   func(ctx context.Context) error
	pingFunc        func(ctx context.Context) error
	prepareFunc     func(ctx context.Context, req model.PrepareWriteRequest) (*usecase.ReconcilePlan, error)
	writeStreamFunc func(ctx context.Context, jobID string, records <-chan model.Record) (<-chan model.RecordAck, error)
	writeBatchFunc  func(ctx context.Context, jobID string, records []model.Record) ([]model.RecordAck, error)
	configureFunc   func(req model.ConfigureReplicationRequest) model.ConfigureReplicationResponse
	disconnectFunc  func(jobID string) bool
}

var _ usecase.ReplicationUsecase = (*stubUsecase)(nil)

func (s *stubUsecase) Bootstrap(ctx context.Context) error {
	if s.bootstrapFunc != nil {
		return s.bootstrapFunc(ctx)
	}
	return nil
}

func (s *stubUsecase) Ping(ctx context.Context) error {
	if s.pingFunc != nil {
		return s.pingFunc(ctx)
	}
	return nil
}

func (s *stubUsecase) PrepareWrite(ctx context.Context, req model.PrepareWriteRequest) (*usecase.ReconcilePlan, error) {
	if s.prepareFunc != nil {
		return s.prepareFunc(ctx, req)
	}
	return &usecase.ReconcilePlan{JobID: req.DataVersions.JobID, FirstRun: true}, nil
}

func (s *stubUsecase) WriteStream(ctx context.Context, jobID string, records <-chan model.Record) (<-chan model.RecordAck, error) {
	if s.writeStreamFunc != nil {
		return s.writeStreamFunc(ctx, jobID, records)
	}
	acks := make(chan model.RecordAck)
	go func() {
		defer close(acks)
		for r := range records {
			acks <- model.RecordAck{CorrelationID: r.CorrelationID}
		}
	}()
	return acks, nil
}

func (s *stubUsecase) WriteBatch(ctx context.Context, jobID string, records []model.Record) ([]model.RecordAck, error) {
	if s.writeBatchFunc != nil {
		return s.writeBatchFunc(ctx, jobID, records)
	}
	acks := make([]model.RecordAck, 0, len(records))
	for _, r := range records {
		acks = append(acks, model.RecordAck{CorrelationID: r.CorrelationID})
	}
	return acks, nil
}

func (s *stubUsecase) ConfigureReplication(req model.ConfigureReplicationRequest) model.ConfigureReplicationResponse {
	if s.configureFunc != nil {
		return s.configureFunc(req)
	}
	return model.ConfigureReplicationResponse{Form: req.Form}
}

func (s *stubUsecase) Disconnect(jobID string) bool {
	if s.disconnectFunc != nil {
		return s.disconnectFunc(jobID)
	}
	return true
}

func (s *stubUsecase) Close() {}
