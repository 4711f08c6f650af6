package dto

import (
	"golang-jobrunner/internal/model"
	"golang-jobrunner/pkg/utils"
	"time"
)

type CreateJobRequest struct {
	Executor    string            `json:"executor" validate:"omitempty,max=64"`
	ScheduledAt *time.Time        `json:"scheduled_at"`
	Env         map[string]string `json:"env" validate:"omitempty,dive,keys,required,max=128,endkeys"`
}

type GetJobsQuery struct {
	RunTemplateID uint     `query:"runtemplate_id"`
	States        []string `query:"state" validate:"omitempty,dive,oneof=prepared scheduled running finished failed"`
	Limit         int      `query:"limit" validate:"omitempty,min=1,max=500"`
}

func (q *GetJobsQuery) ToParam() model.GetJobParam {
	param := model.GetJobParam{}
	if q.RunTemplateID > 0 {
		param.RunTemplateID = utils.ToPointer(q.RunTemplateID)
	}
	for _, s := range q.States {
		param.States = append(param.States, model.JobState(s))
	}
	if q.Limit > 0 {
		param.Limit = utils.ToPointer(q.Limit)
	}
	return param
}

type JobResponse struct {
	ID            uint       `json:"id"`
	UUID          string     `json:"uuid"`
	RunTemplateID uint       `json:"runtemplate_id"`
	Executor      string     `json:"executor"`
	ScheduleType  string     `json:"schedule_type"`
	State         string     `json:"state"`
	Command       string     `json:"command,omitempty"`
	ExitCode      *int32     `json:"exit_code,omitempty"`
	Stdout        string     `json:"stdout,omitempty"`
	Stderr        string     `json:"stderr,omitempty"`
	ScheduledAt   time.Time  `json:"scheduled_at"`
	StartedAt     *time.Time `json:"started_at,omitempty"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
}

func NewJobResponse(job *model.Job) *JobResponse {
	resp := &JobResponse{
		ID:            job.ID,
		UUID:          job.UUID,
		RunTemplateID: job.RunTemplateID,
		Executor:      job.Executor,
		ScheduleType:  string(job.ScheduleType),
		State:         string(job.State),
		Command:       job.Command,
		Stdout:        job.Stdout,
		Stderr:        job.Stderr,
		ScheduledAt:   job.ScheduledAt,
	}
	if job.ExitCode.Valid {
		code := job.ExitCode.Int32
		resp.ExitCode = &code
	}
	if job.StartedAt.Valid {
		resp.StartedAt = &job.StartedAt.Time
	}
	if job.CompletedAt.Valid {
		resp.CompletedAt = &job.CompletedAt.Time
	}
	return resp
}

func NewJobResponses(jobs []model.Job) []*JobResponse {
	out := make([]*JobResponse, 0, len(jobs))
	for i := range jobs {
		out = append(out, NewJobResponse(&jobs[i]))
	}
	return out
}
