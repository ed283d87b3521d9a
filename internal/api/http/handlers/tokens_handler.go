package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/forms-service/internal/access"
	"github.com/spec-kit/forms-service/internal/api/dto"
	"github.com/spec-kit/forms-service/internal/auth"
	"github.com/spec-kit/forms-service/internal/service"
	apperrors "github.com/spec-kit/forms-service/pkg/util"
)

// TokensHandler exposes capability and continuation token endpoints.
type TokensHandler struct {
	capabilities     *access.CapabilityTokenService
	continuations    *access.ContinuationTokenStore
	submissions      *service.SubmissionService
	maxExpiryMinutes int
}

// NewTokensHandler constructs handler.
func NewTokensHandler(
	capabilities *access.CapabilityTokenService,
	continuations *access.ContinuationTokenStore,
	submissions *service.SubmissionService,
	maxExpiryMinutes int,
) *TokensHandler {
	return &TokensHandler{
		capabilities:     capabilities,
		continuations:    continuations,
		submissions:      submissions,
		maxExpiryMinutes: maxExpiryMinutes,
	}
}

// GenerateCapabilityToken POST /tokens/capability. The caller must be able
// to view the target submission; the token service itself does not check
// submission existence.
func (h *TokensHandler) GenerateCapabilityToken(c *fiber.Ctx) error {
	var req dto.GenerateCapabilityTokenRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.SubmissionID <= 0 {
		return apperrors.NewValidationError("submission_id required", nil)
	}
	if req.ExpiryMinutes <= 0 {
		return apperrors.NewValidationError("expiry_minutes must be positive", nil)
	}
	if h.maxExpiryMinutes > 0 && req.ExpiryMinutes > h.maxExpiryMinutes {
		return apperrors.NewValidationError("expiry_minutes too large", map[string]any{
			"max_expiry_minutes": h.maxExpiryMinutes,
		})
	}
	if len(req.Permissions) == 0 {
		return apperrors.NewValidationError("permissions required", nil)
	}

	authz := auth.AuthorizationContextFromRequest(c)
	if _, err := h.submissions.GetSubmission(c.Context(), authz, req.SubmissionID, ""); err != nil {
		return err
	}

	token, err := h.capabilities.Generate(req.SubmissionID, req.ExpiryMinutes, req.Permissions)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.CapabilityTokenResponse{
		Token:       token.Token,
		ExpiresAt:   token.ExpiresAt,
		Permissions: token.Permissions,
	}})
}

// ValidateCapabilityToken POST /tokens/capability/validate.
func (h *TokensHandler) ValidateCapabilityToken(c *fiber.Ctx) error {
	var req dto.ValidateCapabilityTokenRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Token == "" {
		return apperrors.NewValidationError("token required", nil)
	}

	claims, err := h.capabilities.Validate(req.Token)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.CapabilityClaimsResponse{
		SubmissionID: claims.SubmissionID,
		Permissions:  claims.Permissions,
		ExpiresAt:    claims.ExpiresAt,
	}})
}

// IssueContinuationToken POST /submissions/:id/continuation-token. Rotation
// only: the caller proves edit access via RBAC or the current token.
func (h *TokensHandler) IssueContinuationToken(c *fiber.Ctx) error {
	submissionID, err := parseID(c, "id")
	if err != nil {
		return err
	}
	current := c.Get(continuationTokenHeader)
	if current == "" {
		current = c.Query("continuation_token")
	}
	authz := auth.AuthorizationContextFromRequest(c)
	token, err := h.submissions.IssueContinuationToken(c.Context(), authz, submissionID, current)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.ContinuationTokenResponse{Token: token}})
}

// ResolveContinuationToken POST /tokens/continuation/resolve. Lets a
// respondent's client rediscover which submission its stored token belongs
// to. Unknown and expired tokens are indistinguishable.
func (h *TokensHandler) ResolveContinuationToken(c *fiber.Ctx) error {
	var req dto.ResolveContinuationTokenRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Token == "" {
		return apperrors.NewValidationError("token required", nil)
	}

	submissionID, err := h.continuations.Resolve(c.Context(), req.Token)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.ResolveContinuationTokenResponse{SubmissionID: submissionID}})
}
