package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/forms-service/internal/access"
	"github.com/spec-kit/forms-service/internal/domain"
	"github.com/spec-kit/forms-service/internal/events"
	"github.com/spec-kit/forms-service/internal/repository"
	apperrors "github.com/spec-kit/forms-service/pkg/util"
)

// SubmissionService coordinates submission workflows. Every operation first
// asks the access resolver what the caller may do; the service enforces the
// resulting permission set.
type SubmissionService struct {
	submissions repository.SubmissionRepository
	files       repository.SubmissionFileRepository
	forms       repository.FormRepository
	resolver    *access.Resolver
	tokens      *access.ContinuationTokenStore
	dispatcher  events.Dispatcher
}

// SubmissionDependencies bundles collaborators for the submission service.
type SubmissionDependencies struct {
	SubmissionRepo repository.SubmissionRepository
	FileRepo       repository.SubmissionFileRepository
	FormRepo       repository.FormRepository
	Resolver       *access.Resolver
	TokenStore     *access.ContinuationTokenStore
	Dispatcher     events.Dispatcher
}

// FileInput defines attached file metadata.
type FileInput struct {
	FieldKey  string
	FileName  string
	MimeType  string
	SizeBytes int64
}

// NewSubmissionService constructs the service.
func NewSubmissionService(deps SubmissionDependencies) *SubmissionService {
	return &SubmissionService{
		submissions: deps.SubmissionRepo,
		files:       deps.FileRepo,
		forms:       deps.FormRepo,
		resolver:    deps.Resolver,
		tokens:      deps.TokenStore,
		dispatcher:  deps.Dispatcher,
	}
}

// Decide exposes the raw access decision for a request context.
func (s *SubmissionService) Decide(ctx context.Context, authz access.AuthorizationContext, req access.AccessRequest) (*access.AccessDecision, error) {
	return s.resolver.Resolve(ctx, authz, req)
}

// CreateSubmission starts a new submission on a form. The returned
// continuation token is the respondent's only credential for resuming it, so
// it is minted here, inside the create authorization, and nowhere else for
// anonymous callers.
func (s *SubmissionService) CreateSubmission(ctx context.Context, authz access.AuthorizationContext, formID int64, payload map[string]any) (*domain.Submission, string, error) {
	decision, err := s.resolver.Resolve(ctx, authz, access.AccessRequest{FormID: formID})
	if err != nil {
		return nil, "", err
	}
	if !decision.SubmissionPermissions.Has(domain.PermissionSubmissionCreate) {
		return nil, "", apperrors.NewForbidden("submission create not permitted")
	}

	form, err := s.forms.GetByID(ctx, formID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, "", apperrors.NewNotFound("Form", map[string]any{"form_id": formID})
		}
		return nil, "", err
	}

	submission := &domain.Submission{
		FormID:   form.ID,
		TenantID: form.TenantID,
		Payload:  payload,
	}
	if err := s.submissions.Create(ctx, submission); err != nil {
		return nil, "", err
	}
	s.publishEvent(ctx, events.Event{
		Type:    events.EventSubmissionCreated,
		FormID:  form.ID,
		Actor:   events.Actor{UserID: authz.UserID, TenantID: form.TenantID},
		Payload: events.SubmissionCreatedPayload{SubmissionID: submission.ID},
	})

	token, err := s.tokens.Issue(ctx, submission.ID)
	if err != nil {
		return nil, "", err
	}
	s.publishEvent(ctx, events.Event{
		Type:   events.EventContinuationIssued,
		FormID: form.ID,
		Actor:  events.Actor{UserID: authz.UserID, TenantID: form.TenantID},
	})
	return submission, token, nil
}

// GetSubmission fetches a submission when the caller holds Submission.View
// for it, directly or through a continuation token.
func (s *SubmissionService) GetSubmission(ctx context.Context, authz access.AuthorizationContext, submissionID int64, continuationToken string) (*domain.Submission, error) {
	submission, decision, err := s.authorize(ctx, authz, submissionID, continuationToken)
	if err != nil {
		return nil, err
	}
	if !decision.SubmissionPermissions.Has(domain.PermissionSubmissionView) {
		return nil, apperrors.NewForbidden("submission view not permitted")
	}
	return submission, nil
}

// PatchSubmission merges partial answers into the payload, the resume path
// for multi-page forms.
func (s *SubmissionService) PatchSubmission(ctx context.Context, authz access.AuthorizationContext, submissionID int64, continuationToken string, partial map[string]any) (*domain.Submission, error) {
	submission, decision, err := s.authorize(ctx, authz, submissionID, continuationToken)
	if err != nil {
		return nil, err
	}
	if !decision.SubmissionPermissions.Has(domain.PermissionSubmissionEdit) {
		return nil, apperrors.NewForbidden("submission edit not permitted")
	}
	if submission.IsComplete {
		return nil, apperrors.NewConflict("submission already completed", nil)
	}

	if submission.Payload == nil {
		submission.Payload = map[string]any{}
	}
	for key, value := range partial {
		submission.Payload[key] = value
	}
	if err := s.submissions.UpdatePayload(ctx, submission.ID, submission.Payload); err != nil {
		return nil, err
	}
	return submission, nil
}

// CompleteSubmission marks a submission final.
func (s *SubmissionService) CompleteSubmission(ctx context.Context, authz access.AuthorizationContext, submissionID int64, continuationToken string) (*domain.Submission, error) {
	submission, decision, err := s.authorize(ctx, authz, submissionID, continuationToken)
	if err != nil {
		return nil, err
	}
	if !decision.SubmissionPermissions.Has(domain.PermissionSubmissionEdit) {
		return nil, apperrors.NewForbidden("submission edit not permitted")
	}
	if submission.IsComplete {
		return nil, apperrors.NewConflict("submission already completed", nil)
	}

	now := time.Now()
	if err := s.submissions.MarkComplete(ctx, submission.ID, now); err != nil {
		return nil, err
	}
	submission.IsComplete = true
	submission.CompletedAt = &now
	s.publishEvent(ctx, events.Event{
		Type:   events.EventSubmissionCompleted,
		FormID: submission.FormID,
		Actor:  events.Actor{UserID: authz.UserID, TenantID: submission.TenantID},
		Payload: events.SubmissionCompletedPayload{
			SubmissionID: submission.ID,
			FieldCount:   len(submission.Payload),
		},
	})
	return submission, nil
}

// ListSubmissions returns a form's submissions for reviewers.
func (s *SubmissionService) ListSubmissions(ctx context.Context, authz access.AuthorizationContext, filter repository.SubmissionFilter) ([]domain.Submission, error) {
	form, err := s.forms.GetByID(ctx, filter.FormID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("Form", map[string]any{"form_id": filter.FormID})
		}
		return nil, err
	}
	if !authz.IsPlatformAdmin {
		if form.TenantID != authz.TenantID || !authz.HasPermission(domain.PermissionSubmissionView) {
			return nil, apperrors.NewForbidden("submission view not permitted")
		}
	}
	return s.submissions.ListWithFilter(ctx, filter)
}

// IssueContinuationToken rotates the resume token for a submission. The
// caller must hold edit access, either through RBAC or by presenting the
// current token; anonymous respondents get their token from CreateSubmission
// and never through here.
func (s *SubmissionService) IssueContinuationToken(ctx context.Context, authz access.AuthorizationContext, submissionID int64, continuationToken string) (string, error) {
	submission, decision, err := s.authorize(ctx, authz, submissionID, continuationToken)
	if err != nil {
		return "", err
	}
	if !decision.SubmissionPermissions.Has(domain.PermissionSubmissionEdit) {
		return "", apperrors.NewForbidden("submission edit not permitted")
	}

	value, err := s.tokens.Issue(ctx, submissionID)
	if err != nil {
		return "", err
	}
	s.publishEvent(ctx, events.Event{
		Type:   events.EventContinuationIssued,
		FormID: submission.FormID,
		Actor:  events.Actor{UserID: authz.UserID, TenantID: submission.TenantID},
	})
	return value, nil
}

// AttachFile records a file reference on a submission.
func (s *SubmissionService) AttachFile(ctx context.Context, authz access.AuthorizationContext, submissionID int64, continuationToken string, input FileInput) (*domain.SubmissionFile, error) {
	submission, decision, err := s.authorize(ctx, authz, submissionID, continuationToken)
	if err != nil {
		return nil, err
	}
	if !decision.SubmissionPermissions.Has(domain.PermissionSubmissionUploadFile) {
		return nil, apperrors.NewForbidden("file upload not permitted")
	}
	if input.FileName == "" || input.FieldKey == "" {
		return nil, apperrors.NewValidationError("field_key and file_name required", nil)
	}

	file := &domain.SubmissionFile{
		SubmissionID: submission.ID,
		FieldKey:     input.FieldKey,
		StorageKey:   uuid.NewString(),
		FileName:     input.FileName,
		MimeType:     input.MimeType,
		SizeBytes:    input.SizeBytes,
	}
	if err := s.files.Create(ctx, file); err != nil {
		return nil, err
	}
	s.publishEvent(ctx, events.Event{
		Type:   events.EventSubmissionFileAdded,
		FormID: submission.FormID,
		Actor:  events.Actor{UserID: authz.UserID, TenantID: submission.TenantID},
		Payload: events.SubmissionFileAddedPayload{
			SubmissionID: submission.ID,
			FileID:       file.ID,
			FileName:     file.FileName,
			SizeBytes:    file.SizeBytes,
		},
	})
	return file, nil
}

// ListFiles returns file references for a submission.
func (s *SubmissionService) ListFiles(ctx context.Context, authz access.AuthorizationContext, submissionID int64, continuationToken string) ([]domain.SubmissionFile, error) {
	_, decision, err := s.authorize(ctx, authz, submissionID, continuationToken)
	if err != nil {
		return nil, err
	}
	if !decision.SubmissionPermissions.Has(domain.PermissionSubmissionViewFiles) {
		return nil, apperrors.NewForbidden("file view not permitted")
	}
	return s.files.ListBySubmission(ctx, submissionID)
}

// DeleteFile removes a file reference.
func (s *SubmissionService) DeleteFile(ctx context.Context, authz access.AuthorizationContext, submissionID, fileID int64, continuationToken string) error {
	_, decision, err := s.authorize(ctx, authz, submissionID, continuationToken)
	if err != nil {
		return err
	}
	if !decision.SubmissionPermissions.Has(domain.PermissionSubmissionDeleteFile) {
		return apperrors.NewForbidden("file delete not permitted")
	}

	file, err := s.files.GetByID(ctx, fileID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("File", map[string]any{"file_id": fileID})
		}
		return err
	}
	if file.SubmissionID != submissionID {
		return apperrors.NewNotFound("File", map[string]any{"file_id": fileID})
	}
	return s.files.Delete(ctx, fileID)
}

// authorize loads the submission and resolves the caller's permissions over
// it in one step.
func (s *SubmissionService) authorize(ctx context.Context, authz access.AuthorizationContext, submissionID int64, continuationToken string) (*domain.Submission, *access.AccessDecision, error) {
	submission, err := s.submissions.GetByID(ctx, submissionID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, apperrors.NewNotFound("Submission", map[string]any{"submission_id": submissionID})
		}
		return nil, nil, err
	}

	decision, err := s.resolver.Resolve(ctx, authz, access.AccessRequest{
		FormID:            submission.FormID,
		SubmissionID:      &submission.ID,
		ContinuationToken: continuationToken,
	})
	if err != nil {
		return nil, nil, err
	}
	return submission, decision, nil
}

func (s *SubmissionService) publishEvent(ctx context.Context, event events.Event) {
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
