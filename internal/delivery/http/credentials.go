package http

import (
	"golang-jobrunner/internal/dto"
	"net/http"

	"github.com/labstack/echo/v4"
)

func (h *HttpAPIHandler) SetupCredentials(v1 *echo.Group) {
	credentials := v1.Group("/credentials")
	{
		credentials.PUT("/:id/values", h.SetCredentialValues)
		credentials.DELETE("/:id", h.DeleteCredential)
	}
}

func (h *HttpAPIHandler) SetCredentialValues(c echo.Context) error {
	id, resp := parseID(c)
	if resp != nil {
		return c.JSON(resp.Code, resp)
	}
	req := new(dto.SetCredentialValuesRequest)
	if resp := h.bindAndValidate(c, req); resp != nil {
		return c.JSON(resp.Code, resp)
	}

	ctx, collector := h.statusContext(c)
	if err := h.service.CredentialService.SetValues(ctx, id, req.Values); err != nil {
		resp := errorResponse(err, collector)
		return c.JSON(resp.Code, resp)
	}
	return c.JSON(http.StatusOK, dto.NewSuccessResponse("Credential saved", nil).WithMessages(messages(collector)))
}

func (h *HttpAPIHandler) DeleteCredential(c echo.Context) error {
	id, resp := parseID(c)
	if resp != nil {
		return c.JSON(resp.Code, resp)
	}
	ctx, collector := h.statusContext(c)
	if err := h.service.CredentialService.Delete(ctx, id); err != nil {
		resp := errorResponse(err, collector)
		return c.JSON(resp.Code, resp)
	}
	return c.JSON(http.StatusOK, dto.NewSuccessResponse("Credential deleted", nil).WithMessages(messages(collector)))
}
