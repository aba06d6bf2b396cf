package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"replication-connector/internal/replication/domain/model"
	"replication-connector/internal/replication/domain/repository"
	apperrors "replication-connector/internal/shared/errors"
	"replication-connector/internal/shared/logger"
)

// DropReason explains why a collection is recreated. The empty reason leaves it alone.
type DropReason string

const (
	DropReasonNone                DropReason = ""
	DropReasonNameChanged         DropReason = "NameChanged"
	DropReasonJobVersionChanged   DropReason = "JobVersionChanged"
	DropReasonShapeVersionChanged DropReason = "ShapeVersionChanged"
)

// CollectionDecision is what reconciliation did with one target collection
type CollectionDecision struct {
	Previous string     `json:"previous,omitempty"`
	Current  string     `json:"current"`
	Reason   DropReason `json:"reason,omitempty"`
}

// Recreated reports whether the previous collection was dropped
func (d CollectionDecision) Recreated() bool {
	return d.Reason != DropReasonNone
}

// ReconcilePlan describes the outcome of one reconciliation
type ReconcilePlan struct {
	JobID    string             `json:"jobId"`
	FirstRun bool               `json:"firstRun"`
	Golden   CollectionDecision `json:"golden"`
	Version  CollectionDecision `json:"version"`
}

// Names returns the collections the job writes to after reconciliation
func (p *ReconcilePlan) Names() model.CollectionNames {
	return model.CollectionNames{Golden: p.Golden.Current, Version: p.Version.Current}
}

// CollectionManager is the part of the lifecycle manager reconciliation drives
type CollectionManager interface {
	EnsureCollection(ctx context.Context, name string) error
	DeleteCollection(ctx context.Context, name string) error
}

// Reconciler compares a prepare request with the job's previous run and
// recreates target collections that drifted.
type Reconciler struct {
	collections CollectionManager
	metadata    repository.MetadataRepository
	logger      logger.Logger
	now         func() time.Time
}

// NewReconciler creates a reconciler
func NewReconciler(collections CollectionManager, metadata repository.MetadataRepository, log logger.Logger) *Reconciler {
	return &Reconciler{
		collections: collections,
		metadata:    metadata,
		logger:      log.WithComponent("reconciler"),
		now:         time.Now,
	}
}

// Reconcile brings the job's collections in line with req and stores req as the
// job's new run metadata. Any failure leaves the previous metadata in place.
func (r *Reconciler) Reconcile(ctx context.Context, req model.PrepareWriteRequest) (*ReconcilePlan, error) {
	jobID := req.DataVersions.JobID
	plan, err := r.reconcile(ctx, req)
	if err != nil {
		return nil, apperrors.NewReconciliationAbort(jobID, err).WithComponent("reconciler")
	}
	return plan, nil
}

func (r *Reconciler) reconcile(ctx context.Context, req model.PrepareWriteRequest) (*ReconcilePlan, error) {
	jobID := req.DataVersions.JobID
	log := r.logger.WithContext(ctx).WithFields(map[string]interface{}{"job_id": jobID})

	if !req.IsReplication() {
		return nil, errors.New("prepare request has no replication settings")
	}
	settings, err := model.ParseReplicationSettings(req.Replication.SettingsJSON)
	if err != nil {
		return nil, err
	}
	if msgs := model.ValidateReplicationSettings(settings); len(msgs) > 0 {
		return nil, apperrors.NewValidationError(strings.Join(msgs, " ")).WithCause(apperrors.ErrInvalidSettings)
	}
	current := settings.Sanitized()

	previous, err := r.metadata.Get(ctx, jobID)
	if err != nil {
		return nil, err
	}

	plan := &ReconcilePlan{
		JobID:   jobID,
		Golden:  CollectionDecision{Current: current.Golden},
		Version: CollectionDecision{Current: current.Version},
	}

	if previous == nil {
		plan.FirstRun = true
		log.Info("First run for job, ensuring collections")
		if err := r.collections.EnsureCollection(ctx, current.Golden); err != nil {
			return nil, err
		}
		if err := r.collections.EnsureCollection(ctx, current.Version); err != nil {
			return nil, err
		}
	} else {
		prevSettings, err := previous.Settings()
		if err != nil {
			return nil, err
		}
		prevNames := prevSettings.Sanitized()
		prevVersions := previous.Request.DataVersions

		plan.Golden.Previous = prevNames.Golden
		plan.Golden.Reason = dropReason(prevNames.Golden, current.Golden, prevVersions, req.DataVersions)
		plan.Version.Previous = prevNames.Version
		plan.Version.Reason = dropReason(prevNames.Version, current.Version, prevVersions, req.DataVersions)

		for _, d := range []CollectionDecision{plan.Golden, plan.Version} {
			if !d.Recreated() {
				continue
			}
			log.WithFields(map[string]interface{}{
				"previous": d.Previous,
				"current":  d.Current,
				"reason":   string(d.Reason),
			}).Info("Recreating collection")
			if err := r.collections.DeleteCollection(ctx, d.Previous); err != nil {
				return nil, err
			}
			if err := r.collections.EnsureCollection(ctx, d.Current); err != nil {
				return nil, err
			}
		}
	}

	if err := r.metadata.Put(ctx, model.NewRunMetadata(req, r.now().UTC())); err != nil {
		return nil, fmt.Errorf("failed to persist run metadata: %w", err)
	}

	log.WithFields(map[string]interface{}{
		"golden":    plan.Golden.Current,
		"version":   plan.Version.Current,
		"first_run": plan.FirstRun,
	}).Info("Reconciliation complete")
	return plan, nil
}

// dropReason returns the first reason that applies, names before job version before shape version
func dropReason(previousName, currentName string, previous, current model.DataVersions) DropReason {
	switch {
	case previousName != currentName:
		return DropReasonNameChanged
	case current.JobDataVersion > previous.JobDataVersion:
		return DropReasonJobVersionChanged
	case current.ShapeDataVersion > previous.ShapeDataVersion:
		return DropReasonShapeVersionChanged
	default:
		return DropReasonNone
	}
}
