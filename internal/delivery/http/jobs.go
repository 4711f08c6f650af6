package http

import (
	"golang-jobrunner/internal/dto"
	"net/http"

	"github.com/labstack/echo/v4"
)

func (h *HttpAPIHandler) SetupScheduler(v1 *echo.Group) {
	scheduler := v1.Group("/scheduler")
	{
		scheduler.POST("/run", h.RunScheduler)
	}
}

func (h *HttpAPIHandler) SetupJobs(v1 *echo.Group) {
	jobs := v1.Group("/jobs")
	{
		jobs.GET("", h.GetJobs)
		jobs.POST("/:id/run", h.RunJob)
	}
}

// RunScheduler performs one scheduler pass.
func (h *HttpAPIHandler) RunScheduler(c echo.Context) error {
	ctx, collector := h.statusContext(c)
	if err := h.service.SchedulerService.Execute(ctx); err != nil {
		resp := dto.NewErrorResponse(http.StatusInternalServerError, err, messages(collector))
		return c.JSON(resp.Code, resp)
	}
	resp := dto.NewSuccessResponse("Scheduler pass completed", nil).WithMessages(messages(collector))
	return c.JSON(resp.Code, resp)
}

func (h *HttpAPIHandler) GetJobs(c echo.Context) error {
	query := new(dto.GetJobsQuery)
	if resp := h.bindAndValidate(c, query); resp != nil {
		return c.JSON(resp.Code, resp)
	}

	jobs, err := h.service.SchedulerService.GetJobSchedule(c.Request().Context(), query.ToParam())
	if err != nil {
		resp := dto.NewErrorResponse(http.StatusInternalServerError, err, nil)
		return c.JSON(resp.Code, resp)
	}
	return c.JSON(http.StatusOK, dto.NewSuccessResponse("OK", dto.NewJobResponses(jobs)))
}

// RunJob takes a scheduled job off the queue and runs it now.
func (h *HttpAPIHandler) RunJob(c echo.Context) error {
	id, resp := parseID(c)
	if resp != nil {
		return c.JSON(resp.Code, resp)
	}

	ctx, collector := h.statusContext(c)
	job, err := h.service.SchedulerService.RunJobTask(ctx, id)
	if err != nil {
		resp := errorResponse(err, collector)
		return c.JSON(resp.Code, resp)
	}
	return c.JSON(http.StatusOK, dto.NewSuccessResponse("Job "+string(job.State), dto.NewJobResponse(job)).WithMessages(messages(collector)))
}
