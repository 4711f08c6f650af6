package http

import (
	"fmt"
	"golang-jobrunner/internal/dto"
	"golang-jobrunner/internal/model"
	"golang-jobrunner/internal/service"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
)

const maxUploadSize = 16 << 20

func (h *HttpAPIHandler) SetupFiles(v1 *echo.Group) {
	v1.PUT("/runtemplates/:id/files/:field", h.StoreRunTemplateFile)
	v1.PUT("/jobs/:id/files/:field", h.StoreJobFile)
}

func (h *HttpAPIHandler) StoreRunTemplateFile(c echo.Context) error {
	id, resp := parseID(c)
	if resp != nil {
		return c.JSON(resp.Code, resp)
	}
	ctx, collector := h.statusContext(c)
	if _, err := h.service.RunTemplateService.Get(ctx, id); err != nil {
		resp := errorResponse(err, collector)
		return c.JSON(resp.Code, resp)
	}
	return h.storeFile(c, service.StoreFileRequest{RunTemplateID: id})
}

// StoreJobFile stores a file seen by one job only.
func (h *HttpAPIHandler) StoreJobFile(c echo.Context) error {
	id, resp := parseID(c)
	if resp != nil {
		return c.JSON(resp.Code, resp)
	}
	ctx, collector := h.statusContext(c)
	jobs, err := h.service.JobService.Get(ctx, model.GetJobParam{IDs: []uint{id}})
	if err != nil {
		resp := errorResponse(err, collector)
		return c.JSON(resp.Code, resp)
	}
	if len(jobs) == 0 {
		resp := errorResponse(fmt.Errorf("%w: %d", service.ErrJobNotFound, id), collector)
		return c.JSON(resp.Code, resp)
	}
	return h.storeFile(c, service.StoreFileRequest{RunTemplateID: jobs[0].RunTemplateID, JobID: id})
}

func (h *HttpAPIHandler) storeFile(c echo.Context, req service.StoreFileRequest) error {
	header, err := c.FormFile("file")
	if err != nil {
		resp := dto.NewBadRequestResponse("missing file")
		return c.JSON(resp.Code, resp)
	}
	if header.Size > maxUploadSize {
		resp := dto.NewBadRequestResponse("file too large")
		return c.JSON(resp.Code, resp)
	}
	src, err := header.Open()
	if err != nil {
		resp := dto.NewBadRequestResponse("unreadable file")
		return c.JSON(resp.Code, resp)
	}
	defer src.Close()
	data, err := io.ReadAll(io.LimitReader(src, maxUploadSize))
	if err != nil {
		resp := dto.NewBadRequestResponse("unreadable file")
		return c.JSON(resp.Code, resp)
	}

	req.Field = c.Param("field")
	req.FileName = header.Filename
	req.Data = data

	ctx, collector := h.statusContext(c)
	file, err := h.service.FileStore.Store(ctx, req)
	if err != nil {
		resp := errorResponse(err, collector)
		return c.JSON(resp.Code, resp)
	}
	return c.JSON(http.StatusOK, dto.NewSuccessResponse("File stored", dto.NewStoredFileResponse(file)).WithMessages(messages(collector)))
}
