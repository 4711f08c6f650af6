package model

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type JobState string

const (
	JobStatePrepared  JobState = "prepared"
	JobStateScheduled JobState = "scheduled"
	JobStateRunning   JobState = "running"
	JobStateFinished  JobState = "finished"
	JobStateFailed    JobState = "failed"
)

var jobStateOrder = map[JobState]int{
	JobStatePrepared:  0,
	JobStateScheduled: 1,
	JobStateRunning:   2,
	JobStateFinished:  3,
	JobStateFailed:    3,
}

// IsTerminal reports finished or failed.
func (s JobState) IsTerminal() bool {
	return s == JobStateFinished || s == JobStateFailed
}

// CanTransition allows only forward moves; a prepared or scheduled job may
// fail directly.
func (s JobState) CanTransition(to JobState) bool {
	if s.IsTerminal() {
		return false
	}
	from, ok := jobStateOrder[s]
	if !ok {
		return false
	}
	target, ok := jobStateOrder[to]
	if !ok {
		return false
	}
	if to == JobStateFinished {
		return s == JobStateRunning
	}
	return target > from
}

type ScheduleType string

const (
	ScheduleTypePeriodic   ScheduleType = "periodic"
	ScheduleTypeReschedule ScheduleType = "reschedule"
	ScheduleTypeChained    ScheduleType = "chained"
	ScheduleTypeManual     ScheduleType = "manual"
	ScheduleTypeEvent      ScheduleType = "event"
)

// Job is one execution instance of a run template.
type Job struct {
	ID            uint                                  `gorm:"primaryKey"`
	UUID          string                                `gorm:"column:uuid;type:varchar(36);uniqueIndex"`
	RunTemplateID uint                                  `gorm:"column:runtemplate_id;not null;index"`
	CompanyID     uint                                  `gorm:"column:company_id"`
	AppID         uint                                  `gorm:"column:app_id"`
	Executor      string                                `gorm:"type:varchar(64)"`
	ScheduleType  ScheduleType                          `gorm:"type:varchar(32)"`
	State         JobState                              `gorm:"type:varchar(16);not null;default:prepared"`
	Env           datatypes.JSONType[map[string]string] `gorm:"type:text"`
	Command       string                                `gorm:"type:text"`
	ExitCode      sql.NullInt32
	Stdout        string `gorm:"type:text"`
	Stderr        string `gorm:"type:text"`
	ScheduledAt   time.Time
	StartedAt     sql.NullTime
	CompletedAt   sql.NullTime
	CreatedAt     time.Time
	UpdatedAt     time.Time

	RunTemplate *RunTemplate `gorm:"foreignKey:RunTemplateID"`
}

func (Job) TableName() string {
	return "job"
}

// BeforeCreate assigns a UUID when none is set.
func (j *Job) BeforeCreate(_ *gorm.DB) error {
	if j.UUID == "" {
		j.UUID = uuid.NewString()
	}
	return nil
}

// Transition moves the job to a later state.
func (j *Job) Transition(to JobState) error {
	if !j.State.CanTransition(to) {
		return fmt.Errorf("job %d: invalid state transition %s -> %s", j.ID, j.State, to)
	}
	j.State = to
	return nil
}

// Environment returns the snapshotted environment.
func (j *Job) Environment() map[string]string {
	env := j.Env.Data()
	if env == nil {
		return map[string]string{}
	}
	return env
}

type GetJobParam struct {
	IDs           []uint     `json:"ids"`
	RunTemplateID *uint      `json:"runtemplate_id"`
	States        []JobState `json:"states"`
	Limit         *int       `json:"limit"`
}
