package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/forms-service/internal/auth"
	"github.com/spec-kit/forms-service/internal/repository"
	"github.com/spec-kit/forms-service/internal/service"
	apperrors "github.com/spec-kit/forms-service/pkg/util"
)

// ExportHandler serves submission exports.
type ExportHandler struct {
	service *service.ExportService
}

// NewExportHandler constructs handler.
func NewExportHandler(exportService *service.ExportService) *ExportHandler {
	return &ExportHandler{service: exportService}
}

// ExportForm GET /forms/:id/export?format=csv|json.
func (h *ExportHandler) ExportForm(c *fiber.Ctx) error {
	formID, err := parseID(c, "id")
	if err != nil {
		return err
	}
	format := c.Query("format", service.ExportFormatCSV)

	filter := repository.SubmissionFilter{FormID: formID}
	if completeStr := c.Query("complete"); completeStr != "" {
		complete := completeStr == "true"
		filter.IsComplete = &complete
	}
	if from := parseTime(c.Query("created_from")); from != nil {
		filter.CreatedFrom = from
	}
	if to := parseTime(c.Query("created_to")); to != nil {
		filter.CreatedTo = to
	}

	authz := auth.AuthorizationContextFromRequest(c)
	result, err := h.service.ExportForm(c.Context(), authz, filter, format)
	if err != nil {
		return err
	}
	return sendExport(c, result)
}

// ExportSubmission GET /export/submission?token=... using a capability token
// that carries the export permission.
func (h *ExportHandler) ExportSubmission(c *fiber.Ctx) error {
	token := c.Query("token")
	if token == "" {
		return apperrors.NewValidationError("token required", nil)
	}
	result, err := h.service.ExportSubmission(c.Context(), token)
	if err != nil {
		return err
	}
	return sendExport(c, result)
}

func sendExport(c *fiber.Ctx, result *service.ExportResult) error {
	c.Set(fiber.HeaderContentType, result.ContentType)
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+result.FileName+`"`)
	return c.Send(result.Data)
}
