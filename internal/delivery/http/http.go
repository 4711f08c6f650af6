package http

import (
	"context"
	"errors"
	"golang-jobrunner/internal/dto"
	"golang-jobrunner/internal/service"
	"golang-jobrunner/internal/status"
	"golang-jobrunner/pkg/logger"
	"golang-jobrunner/pkg/metrics"
	"net/http"
	"strconv"

	goValidator "github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

type HttpAPIHandler struct {
	echo      *echo.Echo
	validator *goValidator.Validate
	service   *service.Service
	metrics   *metrics.Metrics
	log       *logger.Logger
}

func NewHttpAPIHandler(
	ctx context.Context,
	echo *echo.Echo,
	validator *goValidator.Validate,
	service *service.Service,
	m *metrics.Metrics,
	log *logger.Logger,
) *HttpAPIHandler {
	return &HttpAPIHandler{
		echo:      echo,
		validator: validator,
		service:   service,
		metrics:   m,
		log:       log,
	}
}

func (h *HttpAPIHandler) SetupRoutes(middleware ...echo.MiddlewareFunc) {
	base := h.echo.Group("/api", middleware...)
	v1 := base.Group("/v1")
	h.SetupScheduler(v1)
	h.SetupRunTemplates(v1)
	h.SetupJobs(v1)
	h.SetupCredentials(v1)
	h.SetupEvents(v1)
	h.SetupFiles(v1)

	if h.metrics != nil {
		h.echo.GET("/metrics", echo.WrapHandler(h.metrics.Handler()))
	}
}

// statusContext attaches a fresh collector to the request context.
func (h *HttpAPIHandler) statusContext(c echo.Context) (context.Context, *status.Collector) {
	collector := status.NewCollector(h.log)
	return status.NewContext(c.Request().Context(), collector), collector
}

func (h *HttpAPIHandler) bindAndValidate(c echo.Context, req interface{}) *dto.Response {
	if err := c.Bind(req); err != nil {
		return dto.NewBadRequestResponse("invalid request body")
	}
	if err := h.validator.Struct(req); err != nil {
		return dto.NewBadRequestResponse(err.Error())
	}
	return nil
}

func parseID(c echo.Context) (uint, *dto.Response) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, dto.NewBadRequestResponse("invalid id")
	}
	return uint(id), nil
}

func errorResponse(err error, collector *status.Collector) *dto.Response {
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, service.ErrRunTemplateNotFound),
		errors.Is(err, service.ErrJobNotFound),
		errors.Is(err, service.ErrApplicationNotFound),
		errors.Is(err, service.ErrCredentialNotFound):
		code = http.StatusNotFound
	case errors.Is(err, service.ErrInvalidFile),
		errors.Is(err, service.ErrInvalidEvent):
		code = http.StatusBadRequest
	}
	return dto.NewErrorResponse(code, err, messages(collector))
}

func messages(collector *status.Collector) []status.Message {
	msgs := collector.Messages()
	if msgs == nil {
		return []status.Message{}
	}
	return msgs
}
