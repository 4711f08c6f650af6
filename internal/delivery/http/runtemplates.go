package http

import (
	"errors"
	"golang-jobrunner/internal/dto"
	"golang-jobrunner/internal/model"
	"golang-jobrunner/internal/service"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

func (h *HttpAPIHandler) SetupRunTemplates(v1 *echo.Group) {
	rt := v1.Group("/runtemplates")
	{
		rt.GET("/:id", h.GetRunTemplate)
		rt.POST("/:id/jobs", h.CreateJob)
		rt.GET("/:id/environment", h.GetEnvironment)
		rt.PUT("/:id/environment", h.SetEnvironment)
		rt.GET("/:id/envfile", h.GetEnvFile)
		rt.PUT("/:id/state", h.SetState)
	}
}

func (h *HttpAPIHandler) GetRunTemplate(c echo.Context) error {
	id, resp := parseID(c)
	if resp != nil {
		return c.JSON(resp.Code, resp)
	}
	ctx, collector := h.statusContext(c)
	rt, err := h.service.RunTemplateService.Get(ctx, id)
	if err != nil {
		resp := errorResponse(err, collector)
		return c.JSON(resp.Code, resp)
	}
	return c.JSON(http.StatusOK, dto.NewSuccessResponse("OK", dto.NewRunTemplateResponse(rt)))
}

// CreateJob prepares and queues a manual job.
func (h *HttpAPIHandler) CreateJob(c echo.Context) error {
	id, resp := parseID(c)
	if resp != nil {
		return c.JSON(resp.Code, resp)
	}
	req := new(dto.CreateJobRequest)
	if resp := h.bindAndValidate(c, req); resp != nil {
		return c.JSON(resp.Code, resp)
	}

	var at time.Time
	if req.ScheduledAt != nil {
		at = req.ScheduledAt.UTC()
	}

	ctx, collector := h.statusContext(c)
	job, err := h.service.JobService.Prepare(ctx, service.PrepareRequest{
		RunTemplateID: id,
		Env:           req.Env,
		ScheduledAt:   at,
		Executor:      req.Executor,
		ScheduleType:  model.ScheduleTypeManual,
	})
	if err != nil {
		resp := errorResponse(err, collector)
		return c.JSON(resp.Code, resp)
	}
	resp = dto.NewResponse(http.StatusCreated, "Job scheduled", dto.NewJobResponse(job)).WithMessages(messages(collector))
	return c.JSON(resp.Code, resp)
}

func (h *HttpAPIHandler) GetEnvironment(c echo.Context) error {
	id, resp := parseID(c)
	if resp != nil {
		return c.JSON(resp.Code, resp)
	}
	ctx, collector := h.statusContext(c)
	rt, err := h.service.RunTemplateService.Get(ctx, id)
	if err != nil {
		resp := errorResponse(err, collector)
		return c.JSON(resp.Code, resp)
	}
	fields, err := h.service.RunTemplateService.GetEnvironment(ctx, rt)
	if err != nil {
		resp := errorResponse(err, collector)
		return c.JSON(resp.Code, resp)
	}
	return c.JSON(http.StatusOK, dto.NewSuccessResponse("OK", dto.NewEnvironmentFields(fields)))
}

func (h *HttpAPIHandler) SetEnvironment(c echo.Context) error {
	id, resp := parseID(c)
	if resp != nil {
		return c.JSON(resp.Code, resp)
	}
	req := new(dto.SetEnvironmentRequest)
	if resp := h.bindAndValidate(c, req); resp != nil {
		return c.JSON(resp.Code, resp)
	}

	ctx, collector := h.statusContext(c)
	saved, err := h.service.RunTemplateService.SetEnvironment(ctx, id, req.Properties)
	if err != nil {
		resp := errorResponse(err, collector)
		return c.JSON(resp.Code, resp)
	}
	if !saved {
		resp := dto.NewErrorResponse(http.StatusUnprocessableEntity, errors.New("configuration not saved"), messages(collector))
		resp.Data = saved
		return c.JSON(resp.Code, resp)
	}
	return c.JSON(http.StatusOK, dto.NewSuccessResponse("Configuration saved", saved).WithMessages(messages(collector)))
}

func (h *HttpAPIHandler) GetEnvFile(c echo.Context) error {
	id, resp := parseID(c)
	if resp != nil {
		return c.JSON(resp.Code, resp)
	}
	ctx, collector := h.statusContext(c)
	content, err := h.service.RunTemplateService.EnvFile(ctx, id)
	if err != nil {
		resp := errorResponse(err, collector)
		return c.JSON(resp.Code, resp)
	}
	return c.String(http.StatusOK, content)
}

func (h *HttpAPIHandler) SetState(c echo.Context) error {
	id, resp := parseID(c)
	if resp != nil {
		return c.JSON(resp.Code, resp)
	}
	req := new(dto.SetStateRequest)
	if resp := h.bindAndValidate(c, req); resp != nil {
		return c.JSON(resp.Code, resp)
	}

	ctx, collector := h.statusContext(c)
	if _, err := h.service.RunTemplateService.SetState(ctx, id, *req.Enabled); err != nil {
		resp := errorResponse(err, collector)
		return c.JSON(resp.Code, resp)
	}
	message := "Run template disabled"
	if *req.Enabled {
		message = "Run template enabled"
	}
	return c.JSON(http.StatusOK, dto.NewSuccessResponse(message, nil).WithMessages(messages(collector)))
}
