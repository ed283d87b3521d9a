package access

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/spec-kit/forms-service/internal/domain"
	apperrors "github.com/spec-kit/forms-service/pkg/util"
)

// continuationTokenBytes of entropy per token; guessing is infeasible and
// cross-row collisions are caught by the store's unique index.
const continuationTokenBytes = 32

// maxIssueAttempts bounds regenerate-and-retry on a unique-index collision.
const maxIssueAttempts = 3

// Business results for continuation-token resolution. Not-found and expired
// are deliberately indistinguishable so callers learn nothing about near-miss
// values.
var (
	ErrContinuationTokenInvalid = apperrors.NewDomainError(
		"CONTINUATION_TOKEN_INVALID", "Invalid or expired token", http.StatusBadRequest, nil)
	ErrSubmissionCompleted = apperrors.NewDomainError(
		"SUBMISSION_COMPLETED", "Submission completed", http.StatusConflict, nil)
)

// SubmissionStore is the persistence boundary the token store needs.
type SubmissionStore interface {
	GetByID(ctx context.Context, id int64) (*domain.Submission, error)
	GetByContinuationToken(ctx context.Context, value string) (*domain.Submission, error)
	SetContinuationToken(ctx context.Context, submissionID int64, token domain.ContinuationToken) error
}

// TenantSettingsStore resolves per-tenant token policy.
type TenantSettingsStore interface {
	GetByTenantID(ctx context.Context, tenantID int64) (*domain.TenantSettings, error)
}

// ContinuationTokenStore issues and resolves the database-resident
// continuation token bound 1:1 to a submission row.
type ContinuationTokenStore struct {
	submissions        SubmissionStore
	settings           TenantSettingsStore
	defaultExpiryHours int
	now                func() time.Time
}

// NewContinuationTokenStore constructs the store. defaultExpiryHours applies
// to tenants without an explicit resume window.
func NewContinuationTokenStore(submissions SubmissionStore, settings TenantSettingsStore, defaultExpiryHours int) *ContinuationTokenStore {
	if defaultExpiryHours <= 0 {
		defaultExpiryHours = domain.DefaultSubmissionTokenExpiryHours
	}
	return &ContinuationTokenStore{
		submissions:        submissions,
		settings:           settings,
		defaultExpiryHours: defaultExpiryHours,
		now:                time.Now,
	}
}

// Issue generates and persists a fresh continuation token for the submission,
// replacing any previous value. Last writer wins on concurrent issuance for
// the same row; only the current value remains valid.
func (s *ContinuationTokenStore) Issue(ctx context.Context, submissionID int64) (string, error) {
	if submissionID <= 0 {
		return "", apperrors.NewInvalidArgument("submission id must be positive, got %d", submissionID)
	}

	submission, err := s.submissions.GetByID(ctx, submissionID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", apperrors.NewNotFound("Submission", map[string]any{"submission_id": submissionID})
		}
		return "", err
	}

	settings, err := s.tenantSettings(ctx, submission.TenantID)
	if err != nil {
		return "", err
	}
	expiresAt := s.now().Add(time.Duration(settings.TokenExpiryHours(s.defaultExpiryHours)) * time.Hour)

	for attempt := 0; attempt < maxIssueAttempts; attempt++ {
		value, err := newContinuationValue()
		if err != nil {
			return "", err
		}
		err = s.submissions.SetContinuationToken(ctx, submissionID, domain.ContinuationToken{
			Value:     value,
			ExpiresAt: expiresAt,
		})
		if err == nil {
			return value, nil
		}
		if !isUniqueViolation(err) {
			return "", err
		}
	}
	return "", fmt.Errorf("continuation token collision persisted after %d attempts", maxIssueAttempts)
}

// Resolve maps a token value back to its submission id, enforcing expiry and
// the tenant's post-completion policy.
func (s *ContinuationTokenStore) Resolve(ctx context.Context, tokenValue string) (int64, error) {
	if tokenValue == "" {
		return 0, apperrors.NewInvalidArgument("token value must not be empty")
	}

	submission, err := s.submissions.GetByContinuationToken(ctx, tokenValue)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrContinuationTokenInvalid
		}
		return 0, err
	}
	if submission.Continuation == nil || submission.Continuation.Expired(s.now()) {
		return 0, ErrContinuationTokenInvalid
	}

	if submission.IsComplete {
		settings, err := s.tenantSettings(ctx, submission.TenantID)
		if err != nil {
			return 0, err
		}
		if settings == nil || !settings.SubmissionTokenValidAfterCompletion {
			return 0, ErrSubmissionCompleted
		}
	}
	return submission.ID, nil
}

// tenantSettings returns nil (defaults apply) when no row exists yet.
func (s *ContinuationTokenStore) tenantSettings(ctx context.Context, tenantID int64) (*domain.TenantSettings, error) {
	settings, err := s.settings.GetByTenantID(ctx, tenantID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return settings, nil
}

func newContinuationValue() (string, error) {
	buf := make([]byte, continuationTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate continuation token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
