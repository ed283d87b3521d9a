package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/forms-service/internal/api/http/handlers"
	"github.com/spec-kit/forms-service/internal/auth"
	"github.com/spec-kit/forms-service/internal/domain"
	"github.com/spec-kit/forms-service/internal/observability"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Users          *handlers.UsersHandler
	Forms          *handlers.FormsHandler
	Submissions    *handlers.SubmissionsHandler
	Tokens         *handlers.TokensHandler
	Export         *handlers.ExportHandler
	AuthMiddleware *auth.AuthMiddleware
	Metrics        *observability.Metrics
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/metrics", metricsHandler(cfg.Metrics))

	authGroup := app.Group("/auth")
	authGroup.Post("/users/register", cfg.Users.Register)
	authGroup.Post("/users/login", cfg.Users.Login)
	authGroup.Post("/password/reset/request", cfg.Users.RequestPasswordReset)
	authGroup.Post("/password/reset/confirm", cfg.Users.ConfirmPasswordReset)

	requireDesigner := auth.RequireRole(domain.RoleTenantAdmin, domain.RoleFormDesigner)

	forms := app.Group("/forms")
	forms.Post("", cfg.AuthMiddleware.Handle, requireDesigner, cfg.Forms.CreateForm)
	forms.Get("", cfg.AuthMiddleware.Handle, cfg.Forms.ListForms)
	forms.Get("/:id", cfg.AuthMiddleware.Handle, cfg.Forms.GetForm)
	forms.Patch("/:id", cfg.AuthMiddleware.Handle, requireDesigner, cfg.Forms.UpdateForm)
	forms.Post("/:id/archive", cfg.AuthMiddleware.Handle, requireDesigner, cfg.Forms.ArchiveForm)
	forms.Post("/:id/definitions", cfg.AuthMiddleware.Handle, requireDesigner, cfg.Forms.CreateDefinition)
	forms.Get("/:id/definitions", cfg.AuthMiddleware.Handle, cfg.Forms.ListDefinitions)
	forms.Post("/:id/publish", cfg.AuthMiddleware.Handle, requireDesigner, cfg.Forms.PublishDefinition)

	// Respondent-facing form surface. Anonymous access is decided per form,
	// so authentication is optional here.
	forms.Get("/:id/definition", cfg.AuthMiddleware.Optional, cfg.Forms.PublishedDefinition)
	forms.Post("/:id/submissions", cfg.AuthMiddleware.Optional, cfg.Submissions.CreateSubmission)
	forms.Get("/:id/submissions", cfg.AuthMiddleware.Handle, cfg.Submissions.ListSubmissions)
	forms.Get("/:id/export", cfg.AuthMiddleware.Handle, cfg.Export.ExportForm)

	submissions := app.Group("/submissions", cfg.AuthMiddleware.Optional)
	submissions.Get("/:id", cfg.Submissions.GetSubmission)
	submissions.Patch("/:id", cfg.Submissions.PatchSubmission)
	submissions.Post("/:id/complete", cfg.Submissions.CompleteSubmission)
	submissions.Post("/:id/files", cfg.Submissions.AttachFile)
	submissions.Get("/:id/files", cfg.Submissions.ListFiles)
	submissions.Delete("/:id/files/:fileId", cfg.Submissions.DeleteFile)
	submissions.Post("/:id/continuation-token", cfg.Tokens.IssueContinuationToken)

	tokens := app.Group("/tokens")
	tokens.Post("/capability", cfg.AuthMiddleware.Handle, cfg.Tokens.GenerateCapabilityToken)
	tokens.Post("/capability/validate", cfg.Tokens.ValidateCapabilityToken)
	tokens.Post("/continuation/resolve", cfg.Tokens.ResolveContinuationToken)

	app.Get("/export/submission", cfg.Export.ExportSubmission)
}

func metricsHandler(metrics *observability.Metrics) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if metrics == nil {
			return c.JSON(fiber.Map{"data": fiber.Map{}})
		}
		requests, errs := metrics.Snapshot()
		return c.JSON(fiber.Map{"data": fiber.Map{
			"requests": requests,
			"errors":   errs,
		}})
	}
}
