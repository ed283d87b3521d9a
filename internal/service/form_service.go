package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/forms-service/internal/access"
	"github.com/spec-kit/forms-service/internal/domain"
	"github.com/spec-kit/forms-service/internal/events"
	"github.com/spec-kit/forms-service/internal/repository"
	apperrors "github.com/spec-kit/forms-service/pkg/util"
)

// FormService coordinates form and form-definition workflows.
type FormService struct {
	forms       repository.FormRepository
	definitions repository.FormDefinitionRepository
	dispatcher  events.Dispatcher
}

// FormDependencies bundles repositories for the form service.
type FormDependencies struct {
	FormRepo       repository.FormRepository
	DefinitionRepo repository.FormDefinitionRepository
	Dispatcher     events.Dispatcher
}

// FormCreateInput describes form creation payload.
type FormCreateInput struct {
	Name        string
	Description string
	IsPublic    bool
}

// FormUpdateInput describes mutable form fields.
type FormUpdateInput struct {
	Name        *string
	Description *string
	IsPublic    *bool
}

// NewFormService constructs the service.
func NewFormService(deps FormDependencies) *FormService {
	return &FormService{
		forms:       deps.FormRepo,
		definitions: deps.DefinitionRepo,
		dispatcher:  deps.Dispatcher,
	}
}

// CreateForm creates a draft form inside the caller's tenant. Requires
// Form.Edit.
func (s *FormService) CreateForm(ctx context.Context, authz access.AuthorizationContext, input FormCreateInput) (*domain.Form, error) {
	if !authz.IsPlatformAdmin && !authz.HasPermission(domain.PermissionFormEdit) {
		return nil, apperrors.NewForbidden("form edit permission required")
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, apperrors.NewValidationError("name required", nil)
	}

	form := &domain.Form{
		TenantID:    authz.TenantID,
		Name:        name,
		Description: strings.TrimSpace(input.Description),
		IsPublic:    input.IsPublic,
		Status:      domain.FormStatusDraft,
	}
	if err := s.forms.Create(ctx, form); err != nil {
		return nil, err
	}
	return form, nil
}

// GetForm fetches a form visible to the caller.
func (s *FormService) GetForm(ctx context.Context, authz access.AuthorizationContext, formID int64) (*domain.Form, error) {
	form, err := s.loadForm(ctx, formID)
	if err != nil {
		return nil, err
	}
	if !authz.IsPlatformAdmin && !form.IsPublic && !authz.HasPermission(domain.PermissionFormView) {
		return nil, apperrors.NewForbidden("form view permission required")
	}
	return form, nil
}

// ListForms returns the caller's tenant forms.
func (s *FormService) ListForms(ctx context.Context, authz access.AuthorizationContext, filter repository.FormFilter) ([]domain.Form, error) {
	if !authz.IsPlatformAdmin && !authz.HasPermission(domain.PermissionFormView) {
		return nil, apperrors.NewForbidden("form view permission required")
	}
	filter.TenantID = authz.TenantID
	return s.forms.ListByTenant(ctx, filter)
}

// UpdateForm applies partial updates. Requires Form.Edit within the tenant.
func (s *FormService) UpdateForm(ctx context.Context, authz access.AuthorizationContext, formID int64, input FormUpdateInput) (*domain.Form, error) {
	form, err := s.editableForm(ctx, authz, formID)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, apperrors.NewValidationError("name must not be empty", nil)
		}
		form.Name = name
	}
	if input.Description != nil {
		form.Description = strings.TrimSpace(*input.Description)
	}
	if input.IsPublic != nil {
		form.IsPublic = *input.IsPublic
	}
	if err := s.forms.Update(ctx, form); err != nil {
		return nil, err
	}
	return form, nil
}

// ArchiveForm retires a form; submissions stay readable for export.
func (s *FormService) ArchiveForm(ctx context.Context, authz access.AuthorizationContext, formID int64) (*domain.Form, error) {
	form, err := s.editableForm(ctx, authz, formID)
	if err != nil {
		return nil, err
	}
	form.Status = domain.FormStatusArchived
	if err := s.forms.Update(ctx, form); err != nil {
		return nil, err
	}
	return form, nil
}

// CreateDefinition stores a new draft definition version for the form.
func (s *FormService) CreateDefinition(ctx context.Context, authz access.AuthorizationContext, formID int64, schema map[string]any) (*domain.FormDefinition, error) {
	if _, err := s.editableForm(ctx, authz, formID); err != nil {
		return nil, err
	}
	if schema == nil {
		return nil, apperrors.NewValidationError("schema required", nil)
	}

	def := &domain.FormDefinition{FormID: formID, Schema: schema}
	if err := s.definitions.Create(ctx, def); err != nil {
		return nil, err
	}
	return def, nil
}

// ListDefinitions returns all definition versions for the form.
func (s *FormService) ListDefinitions(ctx context.Context, authz access.AuthorizationContext, formID int64) ([]domain.FormDefinition, error) {
	if _, err := s.GetForm(ctx, authz, formID); err != nil {
		return nil, err
	}
	return s.definitions.ListByForm(ctx, formID)
}

// PublishDefinition marks the given version as the live layout and moves the
// form to published state.
func (s *FormService) PublishDefinition(ctx context.Context, authz access.AuthorizationContext, formID int64, version int) (*domain.Form, error) {
	form, err := s.editableForm(ctx, authz, formID)
	if err != nil {
		return nil, err
	}
	if err := s.definitions.Publish(ctx, formID, version); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("Form definition", map[string]any{"form_id": formID, "version": version})
		}
		return nil, err
	}

	form.Status = domain.FormStatusPublished
	if err := s.forms.Update(ctx, form); err != nil {
		return nil, err
	}
	s.publishEvent(ctx, events.Event{
		Type:   events.EventFormPublished,
		FormID: form.ID,
		Actor:  events.Actor{UserID: authz.UserID, TenantID: authz.TenantID},
		Payload: events.FormPublishedPayload{
			Version:  version,
			IsPublic: form.IsPublic,
		},
	})
	return form, nil
}

// PublishedDefinition returns the live layout for a form.
func (s *FormService) PublishedDefinition(ctx context.Context, formID int64) (*domain.FormDefinition, error) {
	def, err := s.definitions.GetPublishedByForm(ctx, formID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("Form definition", map[string]any{"form_id": formID})
		}
		return nil, err
	}
	return def, nil
}

func (s *FormService) loadForm(ctx context.Context, formID int64) (*domain.Form, error) {
	form, err := s.forms.GetByID(ctx, formID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("Form", map[string]any{"form_id": formID})
		}
		return nil, err
	}
	return form, nil
}

func (s *FormService) editableForm(ctx context.Context, authz access.AuthorizationContext, formID int64) (*domain.Form, error) {
	form, err := s.loadForm(ctx, formID)
	if err != nil {
		return nil, err
	}
	if authz.IsPlatformAdmin {
		return form, nil
	}
	if form.TenantID != authz.TenantID || !authz.HasPermission(domain.PermissionFormEdit) {
		return nil, apperrors.NewForbidden("form edit permission required")
	}
	return form, nil
}

func (s *FormService) publishEvent(ctx context.Context, event events.Event) {
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
