package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// RunMetadata records what a job's last successful write preparation looked like
type RunMetadata struct {
	JobID               string              `json:"jobId"`
	ReplicatedShapeID   string              `json:"replicatedShapeId"`
	ReplicatedShapeName string              `json:"replicatedShapeName"`
	Timestamp           time.Time           `json:"timestamp"`
	Request             PrepareWriteRequest `json:"request"`
}

// NewRunMetadata snapshots a prepare request
func NewRunMetadata(req PrepareWriteRequest, now time.Time) *RunMetadata {
	return &RunMetadata{
		JobID:               req.DataVersions.JobID,
		ReplicatedShapeID:   req.Schema.ID,
		ReplicatedShapeName: req.Schema.Name,
		Timestamp:           now,
		Request:             req,
	}
}

// Settings decodes the replication settings captured in the snapshot
func (m *RunMetadata) Settings() (ReplicationSettings, error) {
	if m.Request.Replication == nil {
		return ReplicationSettings{}, fmt.Errorf("metadata for job %s has no replication settings", m.JobID)
	}
	return ParseReplicationSettings(m.Request.Replication.SettingsJSON)
}

// ToDocument JSON-encodes the metadata into a store document
func (m *RunMetadata) ToDocument() (Document, error) {
	raw, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encode run metadata: %w", err)
	}
	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("encode run metadata: %w", err)
	}
	return doc, nil
}

// RunMetadataFromDocument decodes a document written by ToDocument
func RunMetadataFromDocument(doc Document) (*RunMetadata, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("decode run metadata: %w", err)
	}
	var m RunMetadata
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("decode run metadata: %w", err)
	}
	return &m, nil
}
