package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/forms-service/internal/access"
	"github.com/spec-kit/forms-service/internal/domain"
	"github.com/spec-kit/forms-service/internal/events"
	"github.com/spec-kit/forms-service/internal/repository"
	apperrors "github.com/spec-kit/forms-service/pkg/util"
)

// Export formats.
const (
	ExportFormatCSV  = "csv"
	ExportFormatJSON = "json"
)

// ExportResult carries rendered export bytes plus response metadata.
type ExportResult struct {
	Format      string
	ContentType string
	FileName    string
	Count       int
	Data        []byte
}

// ExportService renders form submissions as CSV or JSON for reviewers, and
// single submissions for holders of a capability token carrying "export".
type ExportService struct {
	forms        repository.FormRepository
	definitions  repository.FormDefinitionRepository
	submissions  repository.SubmissionRepository
	capabilities *access.CapabilityTokenService
	dispatcher   events.Dispatcher
}

// NewExportService constructs the service.
func NewExportService(
	forms repository.FormRepository,
	definitions repository.FormDefinitionRepository,
	submissions repository.SubmissionRepository,
	capabilities *access.CapabilityTokenService,
	dispatcher events.Dispatcher,
) *ExportService {
	return &ExportService{
		forms:        forms,
		definitions:  definitions,
		submissions:  submissions,
		capabilities: capabilities,
		dispatcher:   dispatcher,
	}
}

// ExportForm renders all matching submissions of a form. Requires
// Submission.View within the form's tenant, or platform admin.
func (s *ExportService) ExportForm(ctx context.Context, authz access.AuthorizationContext, filter repository.SubmissionFilter, format string) (*ExportResult, error) {
	if format != ExportFormatCSV && format != ExportFormatJSON {
		return nil, apperrors.NewValidationError("unsupported export format", map[string]any{"format": format})
	}

	form, err := s.forms.GetByID(ctx, filter.FormID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("Form", map[string]any{"form_id": filter.FormID})
		}
		return nil, err
	}
	if !authz.IsPlatformAdmin {
		if form.TenantID != authz.TenantID || !authz.HasPermission(domain.PermissionSubmissionView) {
			return nil, apperrors.NewForbidden("export not permitted")
		}
	}

	submissions, err := s.submissions.ListWithFilter(ctx, filter)
	if err != nil {
		return nil, err
	}

	var data []byte
	switch format {
	case ExportFormatCSV:
		keys := s.fieldKeys(ctx, form.ID)
		data, err = renderCSV(keys, submissions)
	case ExportFormatJSON:
		data, err = renderJSON(submissions)
	}
	if err != nil {
		return nil, err
	}

	result := &ExportResult{
		Format:      format,
		ContentType: contentTypeFor(format),
		FileName:    fmt.Sprintf("form-%d-submissions.%s", form.ID, format),
		Count:       len(submissions),
		Data:        data,
	}
	s.publishEvent(ctx, events.Event{
		Type:    events.EventSubmissionsExported,
		FormID:  form.ID,
		Actor:   events.Actor{UserID: authz.UserID, TenantID: form.TenantID},
		Payload: events.SubmissionsExportedPayload{Format: format, Count: len(submissions)},
	})
	return result, nil
}

// ExportSubmission renders one submission as JSON for the bearer of a
// capability token granting "export" over it.
func (s *ExportService) ExportSubmission(ctx context.Context, capabilityToken string) (*ExportResult, error) {
	claims, err := s.capabilities.Validate(capabilityToken)
	if err != nil {
		return nil, err
	}
	if !hasCapability(claims.Permissions, access.CapabilityExport) {
		return nil, apperrors.NewForbidden("export not permitted")
	}

	submission, err := s.submissions.GetByID(ctx, claims.SubmissionID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("Submission", map[string]any{"submission_id": claims.SubmissionID})
		}
		return nil, err
	}

	data, err := renderJSON([]domain.Submission{*submission})
	if err != nil {
		return nil, err
	}
	return &ExportResult{
		Format:      ExportFormatJSON,
		ContentType: contentTypeFor(ExportFormatJSON),
		FileName:    fmt.Sprintf("submission-%d.json", submission.ID),
		Count:       1,
		Data:        data,
	}, nil
}

// fieldKeys resolves column order from the published definition; exports of
// never-published forms fall back to an empty field set.
func (s *ExportService) fieldKeys(ctx context.Context, formID int64) []string {
	def, err := s.definitions.GetPublishedByForm(ctx, formID)
	if err != nil {
		return nil
	}
	return def.FieldKeys()
}

func renderCSV(fieldKeys []string, submissions []domain.Submission) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	header := append([]string{"submission_id", "created_at", "completed_at"}, fieldKeys...)
	if err := w.Write(header); err != nil {
		return nil, err
	}
	for _, sub := range submissions {
		completedAt := ""
		if sub.CompletedAt != nil {
			completedAt = sub.CompletedAt.Format(time.RFC3339)
		}
		row := []string{
			strconv.FormatInt(sub.ID, 10),
			sub.CreatedAt.Format(time.RFC3339),
			completedAt,
		}
		for _, key := range fieldKeys {
			row = append(row, cellValue(sub.Payload[key]))
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func renderJSON(submissions []domain.Submission) ([]byte, error) {
	type exportRow struct {
		SubmissionID int64          `json:"submission_id"`
		CreatedAt    time.Time      `json:"created_at"`
		CompletedAt  *time.Time     `json:"completed_at,omitempty"`
		IsComplete   bool           `json:"is_complete"`
		Payload      map[string]any `json:"payload"`
	}
	rows := make([]exportRow, 0, len(submissions))
	for _, sub := range submissions {
		rows = append(rows, exportRow{
			SubmissionID: sub.ID,
			CreatedAt:    sub.CreatedAt,
			CompletedAt:  sub.CompletedAt,
			IsComplete:   sub.IsComplete,
			Payload:      sub.Payload,
		})
	}
	return json.MarshalIndent(rows, "", "  ")
}

// cellValue flattens a payload value for CSV. Composite values are rendered
// as compact JSON so round-tripping stays possible.
func cellValue(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(data)
	}
}

func contentTypeFor(format string) string {
	if format == ExportFormatCSV {
		return "text/csv"
	}
	return "application/json"
}

func hasCapability(permissions []string, want string) bool {
	for _, p := range permissions {
		if p == want {
			return true
		}
	}
	return false
}

func (s *ExportService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}
