package model

import (
	"time"

	"gorm.io/datatypes"
)

type EventOperation string

const (
	EventOperationAny    EventOperation = "any"
	EventOperationCreate EventOperation = "create"
	EventOperationUpdate EventOperation = "update"
	EventOperationDelete EventOperation = "delete"
)

// Keys every event-triggered job receives unless a rule maps them itself.
const (
	EnvEventInversion = "EVENT_INVERSION"
	EnvEventEvidence  = "EVENT_EVIDENCE"
	EnvEventOperation = "EVENT_OPERATION"
	EnvEventRecordID  = "EVENT_RECORD_ID"
)

// EventSource is an adapter database whose changes_cache table feeds event
// rules.
type EventSource struct {
	ID   uint   `gorm:"primaryKey"`
	Name string `gorm:"type:varchar(255);not null"`
	// DBConnection is the adapter driver: mysql, pgsql or sqlite.
	DBConnection string `gorm:"column:db_connection;type:varchar(32)"`
	DBHost       string `gorm:"column:db_host;type:varchar(255)"`
	DBPort       int    `gorm:"column:db_port"`
	// DBDatabase is the file path for sqlite sources.
	DBDatabase      string `gorm:"column:db_database;type:varchar(255)"`
	DBUsername      string `gorm:"column:db_username;type:varchar(255)"`
	DBPassword      string `gorm:"column:db_password;type:varchar(255)"`
	LastProcessedID int64  `gorm:"column:last_processed_id;not null"`
	Enabled         bool   `gorm:"not null"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (EventSource) TableName() string {
	return "event_source"
}

// EventRule launches a run template for the changes of one source it
// matches. EnvMapping maps environment keys to change columns.
type EventRule struct {
	ID            uint                                  `gorm:"primaryKey"`
	EventSourceID uint                                  `gorm:"column:event_source_id;not null;index"`
	Evidence      string                                `gorm:"type:varchar(255)"`
	Operation     EventOperation                        `gorm:"type:varchar(16);not null"`
	EnvMapping    datatypes.JSONType[map[string]string] `gorm:"column:env_mapping;type:text"`
	RunTemplateID uint                                  `gorm:"column:runtemplate_id;not null"`
	Enabled       bool                                  `gorm:"not null"`
	Priority      int                                   `gorm:"not null"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (EventRule) TableName() string {
	return "event_rule"
}

// Change is one row of an adapter's changes_cache table. Columns holds every
// column of the row as text.
type Change struct {
	Inversion int64
	Evidence  string
	Operation string
	RecordID  string
	Columns   map[string]string
}

// Matches reports whether the rule fires for c. An empty evidence matches
// every evidence.
func (r *EventRule) Matches(c Change) bool {
	if !r.Enabled {
		return false
	}
	if r.Evidence != "" && r.Evidence != c.Evidence {
		return false
	}
	op := r.Operation
	if op == "" {
		op = EventOperationAny
	}
	return op == EventOperationAny || string(op) == c.Operation
}

// EnvOverrides maps the change into job environment overrides. Mapped
// columns missing from the change are skipped.
func (r *EventRule) EnvOverrides(c Change) map[string]string {
	env := make(map[string]string)
	for key, column := range r.EnvMapping.Data() {
		if v, ok := c.Columns[column]; ok {
			env[key] = v
		}
	}

	defaults := map[string]string{
		EnvEventInversion: c.Columns["inversion"],
		EnvEventEvidence:  c.Evidence,
		EnvEventOperation: c.Operation,
		EnvEventRecordID:  c.RecordID,
	}
	for k, v := range defaults {
		if _, ok := env[k]; !ok {
			env[k] = v
		}
	}
	return env
}
