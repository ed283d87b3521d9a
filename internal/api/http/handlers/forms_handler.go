package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/forms-service/internal/api/dto"
	"github.com/spec-kit/forms-service/internal/auth"
	"github.com/spec-kit/forms-service/internal/domain"
	"github.com/spec-kit/forms-service/internal/repository"
	"github.com/spec-kit/forms-service/internal/service"
	apperrors "github.com/spec-kit/forms-service/pkg/util"
)

// FormsHandler manages form design endpoints.
type FormsHandler struct {
	service *service.FormService
}

// NewFormsHandler constructs handler.
func NewFormsHandler(formService *service.FormService) *FormsHandler {
	return &FormsHandler{service: formService}
}

// CreateForm POST /forms.
func (h *FormsHandler) CreateForm(c *fiber.Ctx) error {
	var req dto.CreateFormRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if strings.TrimSpace(req.Name) == "" {
		return apperrors.NewValidationError("name required", nil)
	}

	authz := auth.AuthorizationContextFromRequest(c)
	form, err := h.service.CreateForm(c.Context(), authz, service.FormCreateInput{
		Name:        req.Name,
		Description: req.Description,
		IsPublic:    req.IsPublic,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": formResponse(form)})
}

// ListForms GET /forms.
func (h *FormsHandler) ListForms(c *fiber.Ctx) error {
	authz := auth.AuthorizationContextFromRequest(c)
	filter := repository.FormFilter{TenantID: authz.TenantID}
	if statusStr := c.Query("status"); statusStr != "" {
		for _, part := range strings.Split(statusStr, ",") {
			filter.Statuses = append(filter.Statuses, domain.FormStatus(strings.TrimSpace(part)))
		}
	}
	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("page_size"), 20)
	filter.Offset = (page - 1) * pageSize
	filter.Limit = pageSize

	forms, err := h.service.ListForms(c.Context(), authz, filter)
	if err != nil {
		return err
	}
	items := make([]dto.FormResponse, 0, len(forms))
	for i := range forms {
		items = append(items, formResponse(&forms[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// GetForm GET /forms/:id.
func (h *FormsHandler) GetForm(c *fiber.Ctx) error {
	formID, err := parseID(c, "id")
	if err != nil {
		return err
	}
	authz := auth.AuthorizationContextFromRequest(c)
	form, err := h.service.GetForm(c.Context(), authz, formID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": formResponse(form)})
}

// UpdateForm PATCH /forms/:id.
func (h *FormsHandler) UpdateForm(c *fiber.Ctx) error {
	formID, err := parseID(c, "id")
	if err != nil {
		return err
	}
	var req dto.UpdateFormRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	authz := auth.AuthorizationContextFromRequest(c)
	form, err := h.service.UpdateForm(c.Context(), authz, formID, service.FormUpdateInput{
		Name:        req.Name,
		Description: req.Description,
		IsPublic:    req.IsPublic,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": formResponse(form)})
}

// ArchiveForm POST /forms/:id/archive.
func (h *FormsHandler) ArchiveForm(c *fiber.Ctx) error {
	formID, err := parseID(c, "id")
	if err != nil {
		return err
	}
	authz := auth.AuthorizationContextFromRequest(c)
	form, err := h.service.ArchiveForm(c.Context(), authz, formID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": formResponse(form)})
}

// CreateDefinition POST /forms/:id/definitions.
func (h *FormsHandler) CreateDefinition(c *fiber.Ctx) error {
	formID, err := parseID(c, "id")
	if err != nil {
		return err
	}
	var req dto.CreateDefinitionRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if len(req.Schema) == 0 {
		return apperrors.NewValidationError("schema required", nil)
	}

	authz := auth.AuthorizationContextFromRequest(c)
	def, err := h.service.CreateDefinition(c.Context(), authz, formID, req.Schema)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": definitionResponse(def)})
}

// ListDefinitions GET /forms/:id/definitions.
func (h *FormsHandler) ListDefinitions(c *fiber.Ctx) error {
	formID, err := parseID(c, "id")
	if err != nil {
		return err
	}
	authz := auth.AuthorizationContextFromRequest(c)
	defs, err := h.service.ListDefinitions(c.Context(), authz, formID)
	if err != nil {
		return err
	}
	items := make([]dto.FormDefinitionResponse, 0, len(defs))
	for i := range defs {
		items = append(items, definitionResponse(&defs[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// PublishDefinition POST /forms/:id/publish.
func (h *FormsHandler) PublishDefinition(c *fiber.Ctx) error {
	formID, err := parseID(c, "id")
	if err != nil {
		return err
	}
	var req dto.PublishDefinitionRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Version <= 0 {
		return apperrors.NewValidationError("version required", nil)
	}

	authz := auth.AuthorizationContextFromRequest(c)
	form, err := h.service.PublishDefinition(c.Context(), authz, formID, req.Version)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": formResponse(form)})
}

// PublishedDefinition GET /forms/:id/definition. Serves the live layout to
// respondents, so it runs without authentication.
func (h *FormsHandler) PublishedDefinition(c *fiber.Ctx) error {
	formID, err := parseID(c, "id")
	if err != nil {
		return err
	}
	def, err := h.service.PublishedDefinition(c.Context(), formID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": definitionResponse(def)})
}

func parseID(c *fiber.Ctx, param string) (int64, error) {
	id, err := strconv.ParseInt(c.Params(param), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.NewValidationError("invalid "+param, nil)
	}
	return id, nil
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

func formResponse(form *domain.Form) dto.FormResponse {
	return dto.FormResponse{
		ID:          form.ID,
		TenantID:    form.TenantID,
		Name:        form.Name,
		Description: form.Description,
		IsPublic:    form.IsPublic,
		Status:      form.Status,
		CreatedAt:   form.CreatedAt,
		UpdatedAt:   form.UpdatedAt,
	}
}

func definitionResponse(def *domain.FormDefinition) dto.FormDefinitionResponse {
	return dto.FormDefinitionResponse{
		ID:        def.ID,
		FormID:    def.FormID,
		Version:   def.Version,
		Schema:    def.Schema,
		Published: def.Published,
		CreatedAt: def.CreatedAt,
	}
}
