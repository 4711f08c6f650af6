package http

import (
	"golang-jobrunner/internal/dto"
	"net/http"

	"github.com/labstack/echo/v4"
)

func (h *HttpAPIHandler) SetupEvents(v1 *echo.Group) {
	events := v1.Group("/events")
	{
		events.POST("/sources", h.CreateEventSource)
		events.POST("/rules", h.CreateEventRule)
		events.POST("/process", h.ProcessEvents)
	}
}

func (h *HttpAPIHandler) CreateEventSource(c echo.Context) error {
	req := new(dto.CreateEventSourceRequest)
	if resp := h.bindAndValidate(c, req); resp != nil {
		return c.JSON(resp.Code, resp)
	}
	ctx, collector := h.statusContext(c)
	src := req.Model()
	if err := h.service.EventService.CreateSource(ctx, src); err != nil {
		resp := errorResponse(err, collector)
		return c.JSON(resp.Code, resp)
	}
	resp := dto.NewResponse(http.StatusCreated, "Event source created", dto.NewEventSourceResponse(src)).WithMessages(messages(collector))
	return c.JSON(resp.Code, resp)
}

func (h *HttpAPIHandler) CreateEventRule(c echo.Context) error {
	req := new(dto.CreateEventRuleRequest)
	if resp := h.bindAndValidate(c, req); resp != nil {
		return c.JSON(resp.Code, resp)
	}
	ctx, collector := h.statusContext(c)
	if _, err := h.service.RunTemplateService.Get(ctx, req.RunTemplateID); err != nil {
		resp := errorResponse(err, collector)
		return c.JSON(resp.Code, resp)
	}
	rule := req.Model()
	if err := h.service.EventService.CreateRule(ctx, rule); err != nil {
		resp := errorResponse(err, collector)
		return c.JSON(resp.Code, resp)
	}
	resp := dto.NewResponse(http.StatusCreated, "Event rule created", dto.NewEventRuleResponse(rule)).WithMessages(messages(collector))
	return c.JSON(resp.Code, resp)
}

// ProcessEvents runs one pass over the event sources outside the scheduler.
func (h *HttpAPIHandler) ProcessEvents(c echo.Context) error {
	ctx, collector := h.statusContext(c)
	prepared, err := h.service.EventService.Process(ctx)
	if err != nil {
		resp := errorResponse(err, collector)
		return c.JSON(resp.Code, resp)
	}
	return c.JSON(http.StatusOK, dto.NewSuccessResponse("Events processed", dto.EventProcessResponse{Prepared: prepared}).WithMessages(messages(collector)))
}
