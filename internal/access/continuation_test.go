package access

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/forms-service/internal/domain"
	apperrors "github.com/spec-kit/forms-service/pkg/util"
)

type fakeSubmissionStore struct {
	byID      map[int64]*domain.Submission
	byToken   map[string]*domain.Submission
	setErrs   []error
	setCalls  int
	lastToken domain.ContinuationToken
}

func (f *fakeSubmissionStore) GetByID(_ context.Context, id int64) (*domain.Submission, error) {
	if sub, ok := f.byID[id]; ok {
		return sub, nil
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeSubmissionStore) GetByContinuationToken(_ context.Context, value string) (*domain.Submission, error) {
	if sub, ok := f.byToken[value]; ok {
		return sub, nil
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeSubmissionStore) SetContinuationToken(_ context.Context, _ int64, token domain.ContinuationToken) error {
	call := f.setCalls
	f.setCalls++
	if call < len(f.setErrs) && f.setErrs[call] != nil {
		return f.setErrs[call]
	}
	f.lastToken = token
	return nil
}

type fakeSettingsStore struct {
	byTenant map[int64]*domain.TenantSettings
}

func (f *fakeSettingsStore) GetByTenantID(_ context.Context, tenantID int64) (*domain.TenantSettings, error) {
	if settings, ok := f.byTenant[tenantID]; ok {
		return settings, nil
	}
	return nil, pgx.ErrNoRows
}

func newTestContinuationStore(subs *fakeSubmissionStore, settings *fakeSettingsStore, at time.Time) *ContinuationTokenStore {
	store := NewContinuationTokenStore(subs, settings, 24)
	store.now = func() time.Time { return at }
	return store
}

func TestIssueRequiresPositiveSubmissionID(t *testing.T) {
	store := newTestContinuationStore(&fakeSubmissionStore{}, &fakeSettingsStore{}, time.Now())
	_, err := store.Issue(context.Background(), 0)
	assert.True(t, apperrors.IsInvalidArgument(err))
}

func TestIssueMissingSubmissionIsNotFound(t *testing.T) {
	store := newTestContinuationStore(&fakeSubmissionStore{}, &fakeSettingsStore{}, time.Now())

	_, err := store.Issue(context.Background(), 99)
	var domainErr *apperrors.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "NOT_FOUND", domainErr.Code)
	assert.Equal(t, "Submission not found", domainErr.Message)
}

func TestIssueAppliesDefaultExpiryWhenTenantUnset(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	subs := &fakeSubmissionStore{byID: map[int64]*domain.Submission{
		7: {ID: 7, FormID: 1, TenantID: 3},
	}}
	store := newTestContinuationStore(subs, &fakeSettingsStore{}, now)

	value, err := store.Issue(context.Background(), 7)
	require.NoError(t, err)
	assert.NotEmpty(t, value)
	assert.Equal(t, value, subs.lastToken.Value)
	assert.Equal(t, now.Add(24*time.Hour), subs.lastToken.ExpiresAt)
}

func TestIssueHonorsTenantExpiryOverride(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	hours := 72
	subs := &fakeSubmissionStore{byID: map[int64]*domain.Submission{
		7: {ID: 7, FormID: 1, TenantID: 3},
	}}
	settings := &fakeSettingsStore{byTenant: map[int64]*domain.TenantSettings{
		3: {TenantID: 3, SubmissionTokenExpiryHours: &hours},
	}}
	store := newTestContinuationStore(subs, settings, now)

	_, err := store.Issue(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, now.Add(72*time.Hour), subs.lastToken.ExpiresAt)
}

func TestIssueRetriesOnUniqueViolation(t *testing.T) {
	collision := &pgconn.PgError{Code: "23505"}
	subs := &fakeSubmissionStore{
		byID:    map[int64]*domain.Submission{7: {ID: 7, FormID: 1, TenantID: 3}},
		setErrs: []error{collision, nil},
	}
	store := newTestContinuationStore(subs, &fakeSettingsStore{}, time.Now())

	value, err := store.Issue(context.Background(), 7)
	require.NoError(t, err)
	assert.NotEmpty(t, value)
	assert.Equal(t, 2, subs.setCalls)
}

func TestIssueGivesUpAfterRepeatedCollisions(t *testing.T) {
	collision := &pgconn.PgError{Code: "23505"}
	subs := &fakeSubmissionStore{
		byID:    map[int64]*domain.Submission{7: {ID: 7, FormID: 1, TenantID: 3}},
		setErrs: []error{collision, collision, collision},
	}
	store := newTestContinuationStore(subs, &fakeSettingsStore{}, time.Now())

	_, err := store.Issue(context.Background(), 7)
	assert.Error(t, err)
	assert.Equal(t, maxIssueAttempts, subs.setCalls)
}

func TestResolveRequiresNonEmptyValue(t *testing.T) {
	store := newTestContinuationStore(&fakeSubmissionStore{}, &fakeSettingsStore{}, time.Now())
	_, err := store.Resolve(context.Background(), "")
	assert.True(t, apperrors.IsInvalidArgument(err))
}

func TestResolveUnknownAndExpiredAreIndistinguishable(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	subs := &fakeSubmissionStore{byToken: map[string]*domain.Submission{
		"stale": {ID: 5, FormID: 1, TenantID: 3, Continuation: &domain.ContinuationToken{
			Value:     "stale",
			ExpiresAt: now.Add(-time.Minute),
		}},
	}}
	store := newTestContinuationStore(subs, &fakeSettingsStore{}, now)

	_, err := store.Resolve(context.Background(), "never-issued")
	unknownErr := err
	_, err = store.Resolve(context.Background(), "stale")
	expiredErr := err

	assert.ErrorIs(t, unknownErr, ErrContinuationTokenInvalid)
	assert.ErrorIs(t, expiredErr, ErrContinuationTokenInvalid)
	assert.Equal(t, unknownErr.Error(), expiredErr.Error())
}

func TestResolveCompletedSubmissionPolicy(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	token := &domain.ContinuationToken{Value: "tok", ExpiresAt: now.Add(time.Hour)}
	subs := &fakeSubmissionStore{byToken: map[string]*domain.Submission{
		"tok": {ID: 5, FormID: 1, TenantID: 3, IsComplete: true, Continuation: token},
	}}

	t.Run("locked out when tenant forbids post-completion access", func(t *testing.T) {
		settings := &fakeSettingsStore{byTenant: map[int64]*domain.TenantSettings{
			3: {TenantID: 3, SubmissionTokenValidAfterCompletion: false},
		}}
		store := newTestContinuationStore(subs, settings, now)
		_, err := store.Resolve(context.Background(), "tok")
		assert.ErrorIs(t, err, ErrSubmissionCompleted)
	})

	t.Run("locked out when tenant has no settings row", func(t *testing.T) {
		store := newTestContinuationStore(subs, &fakeSettingsStore{}, now)
		_, err := store.Resolve(context.Background(), "tok")
		assert.ErrorIs(t, err, ErrSubmissionCompleted)
	})

	t.Run("allowed when tenant permits post-completion access", func(t *testing.T) {
		settings := &fakeSettingsStore{byTenant: map[int64]*domain.TenantSettings{
			3: {TenantID: 3, SubmissionTokenValidAfterCompletion: true},
		}}
		store := newTestContinuationStore(subs, settings, now)
		id, err := store.Resolve(context.Background(), "tok")
		require.NoError(t, err)
		assert.Equal(t, int64(5), id)
	})
}

func TestResolveReturnsSubmissionID(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	subs := &fakeSubmissionStore{byToken: map[string]*domain.Submission{
		"tok": {ID: 31, FormID: 1, TenantID: 3, Continuation: &domain.ContinuationToken{
			Value:     "tok",
			ExpiresAt: now.Add(time.Hour),
		}},
	}}
	store := newTestContinuationStore(subs, &fakeSettingsStore{}, now)

	id, err := store.Resolve(context.Background(), "tok")
	require.NoError(t, err)
	assert.Equal(t, int64(31), id)
}

func TestNewContinuationValueProperties(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 64; i++ {
		value, err := newContinuationValue()
		require.NoError(t, err)
		assert.GreaterOrEqual(t, len(value), 43, "32 bytes of entropy, base64url")
		assert.NotContains(t, value, "+")
		assert.NotContains(t, value, "/")
		assert.NotContains(t, value, "=")
		_, dup := seen[value]
		assert.False(t, dup)
		seen[value] = struct{}{}
	}
}
