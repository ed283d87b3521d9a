package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/forms-service/internal/access"
	"github.com/spec-kit/forms-service/internal/domain"
	"github.com/spec-kit/forms-service/internal/events"
	"github.com/spec-kit/forms-service/internal/repository"
	apperrors "github.com/spec-kit/forms-service/pkg/util"
)

type fakeFormRepo struct {
	forms map[int64]*domain.Form
}

func (f *fakeFormRepo) Create(ctx context.Context, form *domain.Form) error { return nil }
func (f *fakeFormRepo) Update(ctx context.Context, form *domain.Form) error { return nil }
func (f *fakeFormRepo) Delete(ctx context.Context, id int64) error          { return nil }

func (f *fakeFormRepo) GetByID(ctx context.Context, id int64) (*domain.Form, error) {
	form, ok := f.forms[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return form, nil
}

func (f *fakeFormRepo) ListByTenant(ctx context.Context, filter repository.FormFilter) ([]domain.Form, error) {
	return nil, nil
}

type fakeSubmissionRepo struct {
	submissions map[int64]*domain.Submission
	nextID      int64
	payloads    map[int64]map[string]any
	completed   map[int64]time.Time
}

func newFakeSubmissionRepo() *fakeSubmissionRepo {
	return &fakeSubmissionRepo{
		submissions: map[int64]*domain.Submission{},
		nextID:      100,
		payloads:    map[int64]map[string]any{},
		completed:   map[int64]time.Time{},
	}
}

func (f *fakeSubmissionRepo) Create(ctx context.Context, submission *domain.Submission) error {
	f.nextID++
	submission.ID = f.nextID
	submission.CreatedAt = time.Now()
	f.submissions[submission.ID] = submission
	return nil
}

func (f *fakeSubmissionRepo) UpdatePayload(ctx context.Context, id int64, payload map[string]any) error {
	f.payloads[id] = payload
	return nil
}

func (f *fakeSubmissionRepo) MarkComplete(ctx context.Context, id int64, at time.Time) error {
	f.completed[id] = at
	return nil
}

func (f *fakeSubmissionRepo) GetByID(ctx context.Context, id int64) (*domain.Submission, error) {
	submission, ok := f.submissions[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return submission, nil
}

func (f *fakeSubmissionRepo) GetByContinuationToken(ctx context.Context, value string) (*domain.Submission, error) {
	for _, submission := range f.submissions {
		if submission.Continuation != nil && submission.Continuation.Value == value {
			return submission, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeSubmissionRepo) SetContinuationToken(ctx context.Context, submissionID int64, token domain.ContinuationToken) error {
	submission, ok := f.submissions[submissionID]
	if !ok {
		return pgx.ErrNoRows
	}
	submission.Continuation = &token
	return nil
}

func (f *fakeSubmissionRepo) ListWithFilter(ctx context.Context, filter repository.SubmissionFilter) ([]domain.Submission, error) {
	var out []domain.Submission
	for _, submission := range f.submissions {
		if submission.FormID == filter.FormID {
			out = append(out, *submission)
		}
	}
	return out, nil
}

type fakeFileRepo struct {
	files  map[int64]*domain.SubmissionFile
	nextID int64
}

func (f *fakeFileRepo) Create(ctx context.Context, file *domain.SubmissionFile) error {
	f.nextID++
	file.ID = f.nextID
	f.files[file.ID] = file
	return nil
}

func (f *fakeFileRepo) GetByID(ctx context.Context, id int64) (*domain.SubmissionFile, error) {
	file, ok := f.files[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return file, nil
}

func (f *fakeFileRepo) ListBySubmission(ctx context.Context, submissionID int64) ([]domain.SubmissionFile, error) {
	var out []domain.SubmissionFile
	for _, file := range f.files {
		if file.SubmissionID == submissionID {
			out = append(out, *file)
		}
	}
	return out, nil
}

func (f *fakeFileRepo) Delete(ctx context.Context, id int64) error {
	delete(f.files, id)
	return nil
}

type fakeContinuations struct {
	tokens map[string]int64
}

func (f *fakeContinuations) Resolve(ctx context.Context, tokenValue string) (int64, error) {
	id, ok := f.tokens[tokenValue]
	if !ok {
		return 0, errors.New("invalid token")
	}
	return id, nil
}

type fakeSettingsStore struct{}

func (f *fakeSettingsStore) GetByTenantID(ctx context.Context, tenantID int64) (*domain.TenantSettings, error) {
	return nil, pgx.ErrNoRows
}

func newTestSubmissionService(forms *fakeFormRepo, submissions *fakeSubmissionRepo, files *fakeFileRepo, continuations *fakeContinuations) *SubmissionService {
	return NewSubmissionService(SubmissionDependencies{
		SubmissionRepo: submissions,
		FileRepo:       files,
		FormRepo:       forms,
		Resolver:       access.NewResolver(forms, continuations),
		TokenStore:     access.NewContinuationTokenStore(submissions, &fakeSettingsStore{}, 0),
		Dispatcher:     events.NewInMemoryDispatcher(),
	})
}

func TestCreateSubmissionOnPublicFormAnonymously(t *testing.T) {
	forms := &fakeFormRepo{forms: map[int64]*domain.Form{
		1: {ID: 1, TenantID: 5, IsPublic: true, Status: domain.FormStatusPublished},
	}}
	submissions := newFakeSubmissionRepo()
	svc := newTestSubmissionService(forms, submissions, &fakeFileRepo{files: map[int64]*domain.SubmissionFile{}}, &fakeContinuations{})

	submission, token, err := svc.CreateSubmission(context.Background(), access.Anonymous(), 1, map[string]any{"name": "Ada"})
	require.NoError(t, err)
	assert.Equal(t, int64(5), submission.TenantID)
	assert.Equal(t, "Ada", submission.Payload["name"])

	// The create response carries the respondent's resume credential.
	require.NotEmpty(t, token)
	require.NotNil(t, submission.Continuation)
	assert.Equal(t, token, submission.Continuation.Value)
}

func TestCreateSubmissionOnPrivateFormAnonymouslyForbidden(t *testing.T) {
	forms := &fakeFormRepo{forms: map[int64]*domain.Form{
		1: {ID: 1, TenantID: 5, IsPublic: false},
	}}
	svc := newTestSubmissionService(forms, newFakeSubmissionRepo(), &fakeFileRepo{files: map[int64]*domain.SubmissionFile{}}, &fakeContinuations{})

	_, _, err := svc.CreateSubmission(context.Background(), access.Anonymous(), 1, nil)
	require.Error(t, err)
	var domainErr *apperrors.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, 403, domainErr.HTTPStatus)
}

func TestPatchSubmissionWithContinuationTokenMergesPayload(t *testing.T) {
	forms := &fakeFormRepo{forms: map[int64]*domain.Form{
		1: {ID: 1, TenantID: 5, IsPublic: true},
	}}
	submissions := newFakeSubmissionRepo()
	sub := &domain.Submission{FormID: 1, TenantID: 5, Payload: map[string]any{"page1": "done"}}
	require.NoError(t, submissions.Create(context.Background(), sub))
	continuations := &fakeContinuations{tokens: map[string]int64{"resume-me": sub.ID}}

	svc := newTestSubmissionService(forms, submissions, &fakeFileRepo{files: map[int64]*domain.SubmissionFile{}}, continuations)

	patched, err := svc.PatchSubmission(context.Background(), access.Anonymous(), sub.ID, "resume-me", map[string]any{"page2": "also done"})
	require.NoError(t, err)
	assert.Equal(t, "done", patched.Payload["page1"])
	assert.Equal(t, "also done", patched.Payload["page2"])
	assert.Equal(t, patched.Payload, submissions.payloads[sub.ID])
}

func TestPatchSubmissionWithWrongTokenForbidden(t *testing.T) {
	forms := &fakeFormRepo{forms: map[int64]*domain.Form{
		1: {ID: 1, TenantID: 5, IsPublic: true},
	}}
	submissions := newFakeSubmissionRepo()
	sub := &domain.Submission{FormID: 1, TenantID: 5}
	require.NoError(t, submissions.Create(context.Background(), sub))
	other := &domain.Submission{FormID: 1, TenantID: 5}
	require.NoError(t, submissions.Create(context.Background(), other))
	continuations := &fakeContinuations{tokens: map[string]int64{"resume-me": other.ID}}

	svc := newTestSubmissionService(forms, submissions, &fakeFileRepo{files: map[int64]*domain.SubmissionFile{}}, continuations)

	_, err := svc.PatchSubmission(context.Background(), access.Anonymous(), sub.ID, "resume-me", map[string]any{"x": 1})
	require.Error(t, err)
	var domainErr *apperrors.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, 403, domainErr.HTTPStatus)
}

func TestCompleteSubmissionTwiceConflicts(t *testing.T) {
	forms := &fakeFormRepo{forms: map[int64]*domain.Form{
		1: {ID: 1, TenantID: 5, IsPublic: true},
	}}
	submissions := newFakeSubmissionRepo()
	sub := &domain.Submission{FormID: 1, TenantID: 5, Payload: map[string]any{"a": 1}}
	require.NoError(t, submissions.Create(context.Background(), sub))
	continuations := &fakeContinuations{tokens: map[string]int64{"resume-me": sub.ID}}

	svc := newTestSubmissionService(forms, submissions, &fakeFileRepo{files: map[int64]*domain.SubmissionFile{}}, continuations)

	completed, err := svc.CompleteSubmission(context.Background(), access.Anonymous(), sub.ID, "resume-me")
	require.NoError(t, err)
	assert.True(t, completed.IsComplete)
	require.NotNil(t, completed.CompletedAt)

	_, err = svc.CompleteSubmission(context.Background(), access.Anonymous(), sub.ID, "resume-me")
	require.Error(t, err)
	var domainErr *apperrors.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, 409, domainErr.HTTPStatus)
}

func TestDeleteFileRejectsCrossSubmissionID(t *testing.T) {
	forms := &fakeFormRepo{forms: map[int64]*domain.Form{
		1: {ID: 1, TenantID: 5, IsPublic: true},
	}}
	submissions := newFakeSubmissionRepo()
	sub := &domain.Submission{FormID: 1, TenantID: 5}
	require.NoError(t, submissions.Create(context.Background(), sub))
	other := &domain.Submission{FormID: 1, TenantID: 5}
	require.NoError(t, submissions.Create(context.Background(), other))

	files := &fakeFileRepo{files: map[int64]*domain.SubmissionFile{}}
	file := &domain.SubmissionFile{SubmissionID: other.ID, FieldKey: "doc", FileName: "cv.pdf"}
	require.NoError(t, files.Create(context.Background(), file))

	continuations := &fakeContinuations{tokens: map[string]int64{"resume-me": sub.ID}}
	svc := newTestSubmissionService(forms, submissions, files, continuations)

	// The token authorizes sub, but the file belongs to another submission.
	err := svc.DeleteFile(context.Background(), access.Anonymous(), sub.ID, file.ID, "resume-me")
	require.Error(t, err)
	var domainErr *apperrors.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, 404, domainErr.HTTPStatus)

	_, stillThere := files.files[file.ID]
	assert.True(t, stillThere)
}

func TestIssueContinuationTokenRefusedWithoutEditAccess(t *testing.T) {
	forms := &fakeFormRepo{forms: map[int64]*domain.Form{
		1: {ID: 1, TenantID: 5, IsPublic: false},
		2: {ID: 2, TenantID: 5, IsPublic: true},
	}}
	submissions := newFakeSubmissionRepo()
	private := &domain.Submission{FormID: 1, TenantID: 5, Payload: map[string]any{"ssn": "secret"}}
	require.NoError(t, submissions.Create(context.Background(), private))
	fresh := &domain.Submission{FormID: 2, TenantID: 5}
	require.NoError(t, submissions.Create(context.Background(), fresh))

	svc := newTestSubmissionService(forms, submissions, &fakeFileRepo{files: map[int64]*domain.SubmissionFile{}}, &fakeContinuations{})

	// Knowing a sequential id is not a credential, no matter how recently
	// the submission was created or whether the form is public.
	for _, submissionID := range []int64{private.ID, fresh.ID} {
		_, err := svc.IssueContinuationToken(context.Background(), access.Anonymous(), submissionID, "")
		require.Error(t, err)
		var domainErr *apperrors.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, 403, domainErr.HTTPStatus)
	}
	_, err := svc.GetSubmission(context.Background(), access.Anonymous(), private.ID, "")
	require.Error(t, err)
}

func TestIssueContinuationTokenWithEditGrantRotates(t *testing.T) {
	forms := &fakeFormRepo{forms: map[int64]*domain.Form{
		1: {ID: 1, TenantID: 5, IsPublic: false},
	}}
	submissions := newFakeSubmissionRepo()
	sub := &domain.Submission{FormID: 1, TenantID: 5}
	require.NoError(t, submissions.Create(context.Background(), sub))

	svc := newTestSubmissionService(forms, submissions, &fakeFileRepo{files: map[int64]*domain.SubmissionFile{}}, &fakeContinuations{})

	userID := int64(9)
	editor := access.AuthorizationContext{
		UserID:   &userID,
		TenantID: 5,
		Grants:   domain.NewPermissionSet(domain.PermissionSubmissionView, domain.PermissionSubmissionEdit),
	}
	token, err := svc.IssueContinuationToken(context.Background(), editor, sub.ID, "")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	rotated, err := svc.IssueContinuationToken(context.Background(), editor, sub.ID, "")
	require.NoError(t, err)
	assert.NotEqual(t, token, rotated)
	require.NotNil(t, sub.Continuation)
	assert.Equal(t, rotated, sub.Continuation.Value)
}

func TestIssueContinuationTokenWithCurrentTokenRotates(t *testing.T) {
	forms := &fakeFormRepo{forms: map[int64]*domain.Form{
		1: {ID: 1, TenantID: 5, IsPublic: true},
	}}
	submissions := newFakeSubmissionRepo()
	sub := &domain.Submission{FormID: 1, TenantID: 5}
	require.NoError(t, submissions.Create(context.Background(), sub))
	continuations := &fakeContinuations{tokens: map[string]int64{"current": sub.ID}}

	svc := newTestSubmissionService(forms, submissions, &fakeFileRepo{files: map[int64]*domain.SubmissionFile{}}, continuations)

	rotated, err := svc.IssueContinuationToken(context.Background(), access.Anonymous(), sub.ID, "current")
	require.NoError(t, err)
	require.NotEmpty(t, rotated)

	// The old value no longer matches what is stored on the submission.
	assert.Equal(t, rotated, sub.Continuation.Value)
}

func TestListSubmissionsRequiresReviewerGrant(t *testing.T) {
	forms := &fakeFormRepo{forms: map[int64]*domain.Form{
		1: {ID: 1, TenantID: 5, IsPublic: true},
	}}
	submissions := newFakeSubmissionRepo()
	sub := &domain.Submission{FormID: 1, TenantID: 5}
	require.NoError(t, submissions.Create(context.Background(), sub))
	svc := newTestSubmissionService(forms, submissions, &fakeFileRepo{files: map[int64]*domain.SubmissionFile{}}, &fakeContinuations{})

	_, err := svc.ListSubmissions(context.Background(), access.Anonymous(), repository.SubmissionFilter{FormID: 1})
	require.Error(t, err)

	userID := int64(9)
	reviewer := access.AuthorizationContext{
		UserID:   &userID,
		TenantID: 5,
		Grants:   domain.NewPermissionSet(domain.PermissionSubmissionView),
	}
	listed, err := svc.ListSubmissions(context.Background(), reviewer, repository.SubmissionFilter{FormID: 1})
	require.NoError(t, err)
	assert.Len(t, listed, 1)
}
