package access

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/forms-service/internal/domain"
	apperrors "github.com/spec-kit/forms-service/pkg/util"
)

// FormStore is the form lookup boundary the resolver needs.
type FormStore interface {
	GetByID(ctx context.Context, id int64) (*domain.Form, error)
}

// ContinuationResolver resolves a presented continuation token.
type ContinuationResolver interface {
	Resolve(ctx context.Context, tokenValue string) (int64, error)
}

// AccessRequest is the inbound request context for a resolution.
type AccessRequest struct {
	FormID            int64
	SubmissionID      *int64
	ContinuationToken string
}

// AccessDecision is the effective permission set for a (form, submission?)
// pair. Computed fresh per request, never cached here. Empty sets are a
// successful answer, not an error.
type AccessDecision struct {
	FormID                int64
	SubmissionID          *int64
	FormPermissions       domain.PermissionSet
	SubmissionPermissions domain.PermissionSet
}

// Resolver merges platform-admin override, the form's public/private policy,
// the caller's RBAC grants and a presented continuation token into the
// minimal permission set for the request.
type Resolver struct {
	forms         FormStore
	continuations ContinuationResolver
}

// NewResolver constructs the resolver.
func NewResolver(forms FormStore, continuations ContinuationResolver) *Resolver {
	return &Resolver{forms: forms, continuations: continuations}
}

// Resolve computes the access decision. The only hard failure is a form that
// does not exist; every denial is expressed as an absent permission.
func (r *Resolver) Resolve(ctx context.Context, authz AuthorizationContext, req AccessRequest) (*AccessDecision, error) {
	decision := &AccessDecision{
		FormID:                req.FormID,
		SubmissionID:          req.SubmissionID,
		FormPermissions:       domain.NewPermissionSet(),
		SubmissionPermissions: domain.NewPermissionSet(),
	}

	if authz.IsPlatformAdmin {
		decision.FormPermissions.Add(domain.PermissionFormView, domain.PermissionFormEdit)
		decision.SubmissionPermissions.Add(domain.PermissionSubmissionCreate, domain.PermissionSubmissionUploadFile)
		if req.SubmissionID != nil {
			decision.SubmissionPermissions.Add(
				domain.PermissionSubmissionView,
				domain.PermissionSubmissionEdit,
				domain.PermissionSubmissionViewFiles,
				domain.PermissionSubmissionDeleteFile,
			)
		}
		return decision, nil
	}

	form, err := r.forms.GetByID(ctx, req.FormID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("Form", map[string]any{"form_id": req.FormID})
		}
		return nil, err
	}

	if form.IsPublic || authz.HasPermission(domain.PermissionFormView) {
		decision.FormPermissions.Add(domain.PermissionFormView)
	}

	// A token resolving to a different submission than requested grants
	// nothing; a token for submission A must not be replayable against B.
	if req.ContinuationToken != "" && req.SubmissionID != nil {
		resolved, err := r.continuations.Resolve(ctx, req.ContinuationToken)
		if err == nil && resolved == *req.SubmissionID {
			decision.SubmissionPermissions.Add(
				domain.PermissionSubmissionView,
				domain.PermissionSubmissionEdit,
				domain.PermissionSubmissionViewFiles,
				domain.PermissionSubmissionUploadFile,
				domain.PermissionSubmissionDeleteFile,
			)
			return decision, nil
		}
	}

	switch {
	case form.IsPublic && req.SubmissionID == nil:
		decision.SubmissionPermissions.Add(domain.PermissionSubmissionCreate, domain.PermissionSubmissionUploadFile)
	case req.SubmissionID != nil &&
		authz.HasPermission(domain.PermissionSubmissionView) &&
		authz.HasPermission(domain.PermissionSubmissionEdit):
		decision.SubmissionPermissions.Add(
			domain.PermissionSubmissionView,
			domain.PermissionSubmissionEdit,
			domain.PermissionSubmissionUploadFile,
			domain.PermissionSubmissionDeleteFile,
		)
	}
	return decision, nil
}
