package dto

import (
	"golang-jobrunner/internal/model"

	"gorm.io/datatypes"
)

type CreateEventSourceRequest struct {
	Name         string `json:"name" validate:"required,max=255"`
	DBConnection string `json:"db_connection" validate:"omitempty,oneof=mysql pgsql postgres sqlite"`
	DBHost       string `json:"db_host" validate:"max=255"`
	DBPort       int    `json:"db_port" validate:"gte=0,lte=65535"`
	DBDatabase   string `json:"db_database" validate:"required,max=255"`
	DBUsername   string `json:"db_username" validate:"max=255"`
	DBPassword   string `json:"db_password" validate:"max=255"`
	Enabled      *bool  `json:"enabled"`
}

func (r *CreateEventSourceRequest) Model() *model.EventSource {
	return &model.EventSource{
		Name:         r.Name,
		DBConnection: r.DBConnection,
		DBHost:       r.DBHost,
		DBPort:       r.DBPort,
		DBDatabase:   r.DBDatabase,
		DBUsername:   r.DBUsername,
		DBPassword:   r.DBPassword,
		Enabled:      r.Enabled == nil || *r.Enabled,
	}
}

type EventSourceResponse struct {
	ID              uint   `json:"id"`
	Name            string `json:"name"`
	DBConnection    string `json:"db_connection"`
	DBHost          string `json:"db_host,omitempty"`
	DBDatabase      string `json:"db_database"`
	LastProcessedID int64  `json:"last_processed_id"`
	Enabled         bool   `json:"enabled"`
}

func NewEventSourceResponse(src *model.EventSource) EventSourceResponse {
	return EventSourceResponse{
		ID:              src.ID,
		Name:            src.Name,
		DBConnection:    src.DBConnection,
		DBHost:          src.DBHost,
		DBDatabase:      src.DBDatabase,
		LastProcessedID: src.LastProcessedID,
		Enabled:         src.Enabled,
	}
}

type CreateEventRuleRequest struct {
	EventSourceID uint              `json:"event_source_id" validate:"required"`
	Evidence      string            `json:"evidence" validate:"max=255"`
	Operation     string            `json:"operation" validate:"omitempty,oneof=any create update delete"`
	RunTemplateID uint              `json:"runtemplate_id" validate:"required"`
	EnvMapping    map[string]string `json:"env_mapping"`
	Priority      int               `json:"priority"`
	Enabled       *bool             `json:"enabled"`
}

func (r *CreateEventRuleRequest) Model() *model.EventRule {
	mapping := r.EnvMapping
	if mapping == nil {
		mapping = map[string]string{}
	}
	return &model.EventRule{
		EventSourceID: r.EventSourceID,
		Evidence:      r.Evidence,
		Operation:     model.EventOperation(r.Operation),
		RunTemplateID: r.RunTemplateID,
		EnvMapping:    datatypes.NewJSONType(mapping),
		Priority:      r.Priority,
		Enabled:       r.Enabled == nil || *r.Enabled,
	}
}

type EventRuleResponse struct {
	ID            uint              `json:"id"`
	EventSourceID uint              `json:"event_source_id"`
	Evidence      string            `json:"evidence,omitempty"`
	Operation     string            `json:"operation"`
	RunTemplateID uint              `json:"runtemplate_id"`
	EnvMapping    map[string]string `json:"env_mapping"`
	Priority      int               `json:"priority"`
	Enabled       bool              `json:"enabled"`
}

func NewEventRuleResponse(rule *model.EventRule) EventRuleResponse {
	return EventRuleResponse{
		ID:            rule.ID,
		EventSourceID: rule.EventSourceID,
		Evidence:      rule.Evidence,
		Operation:     string(rule.Operation),
		RunTemplateID: rule.RunTemplateID,
		EnvMapping:    rule.EnvMapping.Data(),
		Priority:      rule.Priority,
		Enabled:       rule.Enabled,
	}
}

type EventProcessResponse struct {
	Prepared int `json:"prepared"`
}

type StoredFileResponse struct {
	ID            uint   `json:"id"`
	Field         string `json:"field"`
	FileName      string `json:"file_name"`
	Size          int    `json:"size"`
	RunTemplateID uint   `json:"runtemplate_id"`
	JobID         uint   `json:"job_id,omitempty"`
}

func NewStoredFileResponse(f *model.StoredFile) StoredFileResponse {
	return StoredFileResponse{
		ID:            f.ID,
		Field:         f.Field,
		FileName:      f.FileName,
		Size:          len(f.Data),
		RunTemplateID: f.RunTemplateID,
		JobID:         f.JobID,
	}
}
