package handlers

import (
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/forms-service/internal/api/dto"
	"github.com/spec-kit/forms-service/internal/auth"
	"github.com/spec-kit/forms-service/internal/domain"
	"github.com/spec-kit/forms-service/internal/repository"
	"github.com/spec-kit/forms-service/internal/service"
	apperrors "github.com/spec-kit/forms-service/pkg/util"
)

const continuationTokenHeader = "X-Continuation-Token"

// SubmissionsHandler manages respondent and reviewer submission endpoints.
type SubmissionsHandler struct {
	service *service.SubmissionService
}

// NewSubmissionsHandler constructs handler.
func NewSubmissionsHandler(submissionService *service.SubmissionService) *SubmissionsHandler {
	return &SubmissionsHandler{service: submissionService}
}

// CreateSubmission POST /forms/:id/submissions. Respondents may be anonymous
// on public forms.
func (h *SubmissionsHandler) CreateSubmission(c *fiber.Ctx) error {
	formID, err := parseID(c, "id")
	if err != nil {
		return err
	}
	var req dto.CreateSubmissionRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	authz := auth.AuthorizationContextFromRequest(c)
	submission, token, err := h.service.CreateSubmission(c.Context(), authz, formID, req.Payload)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"data": fiber.Map{
			"submission":         submissionResponse(submission),
			"continuation_token": token,
		},
	})
}

// ListSubmissions GET /forms/:id/submissions.
func (h *SubmissionsHandler) ListSubmissions(c *fiber.Ctx) error {
	formID, err := parseID(c, "id")
	if err != nil {
		return err
	}
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
	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("page_size"), 20)
	filter.Offset = (page - 1) * pageSize
	filter.Limit = pageSize

	authz := auth.AuthorizationContextFromRequest(c)
	submissions, err := h.service.ListSubmissions(c.Context(), authz, filter)
	if err != nil {
		return err
	}
	items := make([]dto.SubmissionResponse, 0, len(submissions))
	for i := range submissions {
		items = append(items, submissionResponse(&submissions[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// GetSubmission GET /submissions/:id.
func (h *SubmissionsHandler) GetSubmission(c *fiber.Ctx) error {
	submissionID, err := parseID(c, "id")
	if err != nil {
		return err
	}
	authz := auth.AuthorizationContextFromRequest(c)
	submission, err := h.service.GetSubmission(c.Context(), authz, submissionID, continuationToken(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": submissionResponse(submission)})
}

// PatchSubmission PATCH /submissions/:id.
func (h *SubmissionsHandler) PatchSubmission(c *fiber.Ctx) error {
	submissionID, err := parseID(c, "id")
	if err != nil {
		return err
	}
	var req dto.PatchSubmissionRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if len(req.Payload) == 0 {
		return apperrors.NewValidationError("payload required", nil)
	}

	authz := auth.AuthorizationContextFromRequest(c)
	submission, err := h.service.PatchSubmission(c.Context(), authz, submissionID, continuationToken(c), req.Payload)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": submissionResponse(submission)})
}

// CompleteSubmission POST /submissions/:id/complete.
func (h *SubmissionsHandler) CompleteSubmission(c *fiber.Ctx) error {
	submissionID, err := parseID(c, "id")
	if err != nil {
		return err
	}
	authz := auth.AuthorizationContextFromRequest(c)
	submission, err := h.service.CompleteSubmission(c.Context(), authz, submissionID, continuationToken(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": submissionResponse(submission)})
}

// AttachFile POST /submissions/:id/files.
func (h *SubmissionsHandler) AttachFile(c *fiber.Ctx) error {
	submissionID, err := parseID(c, "id")
	if err != nil {
		return err
	}
	var req dto.AttachFileRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	authz := auth.AuthorizationContextFromRequest(c)
	file, err := h.service.AttachFile(c.Context(), authz, submissionID, continuationToken(c), service.FileInput{
		FieldKey:  req.FieldKey,
		FileName:  req.FileName,
		MimeType:  req.MimeType,
		SizeBytes: req.SizeBytes,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": fileResponse(file)})
}

// ListFiles GET /submissions/:id/files.
func (h *SubmissionsHandler) ListFiles(c *fiber.Ctx) error {
	submissionID, err := parseID(c, "id")
	if err != nil {
		return err
	}
	authz := auth.AuthorizationContextFromRequest(c)
	files, err := h.service.ListFiles(c.Context(), authz, submissionID, continuationToken(c))
	if err != nil {
		return err
	}
	items := make([]dto.SubmissionFileResponse, 0, len(files))
	for i := range files {
		items = append(items, fileResponse(&files[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// DeleteFile DELETE /submissions/:id/files/:fileId.
func (h *SubmissionsHandler) DeleteFile(c *fiber.Ctx) error {
	submissionID, err := parseID(c, "id")
	if err != nil {
		return err
	}
	fileID, err := parseID(c, "fileId")
	if err != nil {
		return err
	}
	authz := auth.AuthorizationContextFromRequest(c)
	if err := h.service.DeleteFile(c.Context(), authz, submissionID, fileID, continuationToken(c)); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

func parseTime(val string) *time.Time {
	if val == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, val)
	if err != nil {
		return nil
	}
	return &t
}

// continuationToken pulls the resume token from header or query.
func continuationToken(c *fiber.Ctx) string {
	if token := c.Get(continuationTokenHeader); token != "" {
		return token
	}
	return c.Query("continuation_token")
}

func submissionResponse(submission *domain.Submission) dto.SubmissionResponse {
	return dto.SubmissionResponse{
		ID:          submission.ID,
		FormID:      submission.FormID,
		Payload:     submission.Payload,
		IsComplete:  submission.IsComplete,
		CreatedAt:   submission.CreatedAt,
		UpdatedAt:   submission.UpdatedAt,
		CompletedAt: submission.CompletedAt,
	}
}

func fileResponse(file *domain.SubmissionFile) dto.SubmissionFileResponse {
	return dto.SubmissionFileResponse{
		ID:        file.ID,
		FieldKey:  file.FieldKey,
		FileName:  file.FileName,
		MimeType:  file.MimeType,
		SizeBytes: file.SizeBytes,
		CreatedAt: file.CreatedAt,
	}
}
