package model

// PropertyType is the declared type of a schema property
type PropertyType string

const (
	PropertyTypeBool     PropertyType = "Bool"
	PropertyTypeInteger  PropertyType = "Integer"
	PropertyTypeFloat    PropertyType = "Float"
	PropertyTypeDecimal  PropertyType = "Decimal"
	PropertyTypeText     PropertyType = "Text"
	PropertyTypeString   PropertyType = "String"
	PropertyTypeJSON     PropertyType = "Json"
	PropertyTypeDate     PropertyType = "Date"
	PropertyTypeDatetime PropertyType = "Datetime"
)

// Property maps a payload field id to its friendly name and declared type
type Property struct {
	ID   string       `json:"id"`
	Name string       `json:"name"`
	Type PropertyType `json:"type"`
}

// Schema is the replicated shape
type Schema struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Properties []Property `json:"properties"`
}

// DataVersions carries the counters used for drift detection
type DataVersions struct {
	JobID            string `json:"jobId"`
	JobDataVersion   int32  `json:"jobDataVersion"`
	ShapeID          string `json:"shapeId"`
	ShapeDataVersion int32  `json:"shapeDataVersion"`
}

// ReplicationWriteRequest holds the user supplied replication form data
type ReplicationWriteRequest struct {
	SettingsJSON string `json:"settingsJson"`
}

// PrepareWriteRequest is sent once before a job starts streaming records
type PrepareWriteRequest struct {
	Schema           Schema                   `json:"schema"`
	CommitSLASeconds int32                    `json:"commitSlaSeconds"`
	Replication      *ReplicationWriteRequest `json:"replication,omitempty"`
	DataVersions     DataVersions             `json:"dataVersions"`
}

// IsReplication reports whether the request configures a replication writeback
func (r *PrepareWriteRequest) IsReplication() bool {
	return r != nil && r.Replication != nil
}

// RecordVersion is one source version contributing to a golden record
type RecordVersion struct {
	RecordID string `json:"recordId"`
	DataJSON string `json:"dataJson"`
}

// Record is one incoming change record
type Record struct {
	RecordID      string          `json:"recordId"`
	CorrelationID string          `json:"correlationId"`
	DataJSON      string          `json:"dataJson"`
	Versions      []RecordVersion `json:"versions"`
}

// VersionIDs returns the ids of the versions carried by the record, in order
func (r Record) VersionIDs() []string {
	ids := make([]string, 0, len(r.Versions))
	for _, v := range r.Versions {
		ids = append(ids, v.RecordID)
	}
	return ids
}

// RecordAck is the per-record outcome. An empty Error means success.
type RecordAck struct {
	CorrelationID string `json:"correlationId"`
	Error         string `json:"error"`
}

// ConfigurationForm is the replication form exchanged with the host
type ConfigurationForm struct {
	DataJSON  string   `json:"dataJson"`
	StateJSON string   `json:"stateJson"`
	Errors    []string `json:"errors"`
}

// ConfigureReplicationRequest asks for validation of the replication form
type ConfigureReplicationRequest struct {
	Form ConfigurationForm `json:"form"`
}

// ConfigureReplicationResponse echoes the form back with validation errors
type ConfigureReplicationResponse struct {
	Form ConfigurationForm `json:"form"`
}
