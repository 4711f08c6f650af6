package dto

import (
	"golang-jobrunner/internal/configfield"
	"golang-jobrunner/internal/model"
	"time"
)

const MaskedValue = "********"

type SetEnvironmentRequest struct {
	Properties map[string]string `json:"properties" validate:"required,min=1,dive,keys,required,max=128,endkeys"`
}

type SetStateRequest struct {
	Enabled *bool `json:"enabled" validate:"required"`
}

// EnvironmentField is one composed environment value as shown to API
// clients. Sensitive values are masked.
type EnvironmentField struct {
	Code     string `json:"code"`
	Type     string `json:"type"`
	Name     string `json:"name,omitempty"`
	Value    string `json:"value"`
	Source   string `json:"source"`
	Required bool   `json:"required,omitempty"`
	Secret   bool   `json:"secret,omitempty"`
}

func NewEnvironmentFields(fields *configfield.Fields) []EnvironmentField {
	out := make([]EnvironmentField, 0, fields.Len())
	for _, f := range fields.All() {
		value := f.EffectiveValue()
		if f.IsSensitive() && value != "" {
			value = MaskedValue
		}
		out = append(out, EnvironmentField{
			Code:     f.Code(),
			Type:     string(f.Type),
			Name:     f.Name,
			Value:    value,
			Source:   f.Source.String(),
			Required: f.Required,
			Secret:   f.IsSensitive(),
		})
	}
	return out
}

type RunTemplateResponse struct {
	ID           uint            `json:"id"`
	Name         string          `json:"name"`
	AppID        uint            `json:"app_id"`
	CompanyID    uint            `json:"company_id"`
	Interv       string          `json:"interv"`
	Cron         string          `json:"cron,omitempty"`
	Executor     string          `json:"executor,omitempty"`
	Prepared     bool            `json:"prepared"`
	Success      model.ActionMap `json:"success,omitempty"`
	Fail         model.ActionMap `json:"fail,omitempty"`
	NextSchedule *time.Time      `json:"next_schedule,omitempty"`
	LastSchedule *time.Time      `json:"last_schedule,omitempty"`
}

func NewRunTemplateResponse(rt *model.RunTemplate) *RunTemplateResponse {
	resp := &RunTemplateResponse{
		ID:        rt.ID,
		Name:      rt.Name,
		AppID:     rt.AppID,
		CompanyID: rt.CompanyID,
		Interv:    rt.Interv,
		Cron:      rt.Cron,
		Executor:  rt.Executor,
		Prepared:  rt.Prepared,
		Success:   rt.Actions(true),
		Fail:      rt.Actions(false),
	}
	if rt.NextSchedule.Valid {
		resp.NextSchedule = &rt.NextSchedule.Time
	}
	if rt.LastSchedule.Valid {
		resp.LastSchedule = &rt.LastSchedule.Time
	}
	return resp
}
