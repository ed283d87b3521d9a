package dto

import (
	"time"

	"github.com/spec-kit/forms-service/internal/domain"
)

// CreateFormRequest payload.
type CreateFormRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	IsPublic    bool   `json:"is_public"`
}

// UpdateFormRequest payload. Nil fields are left unchanged.
type UpdateFormRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	IsPublic    *bool   `json:"is_public"`
}

// FormResponse response.
type FormResponse struct {
	ID          int64             `json:"id"`
	TenantID    int64             `json:"tenant_id"`
	Name        string            `json:"name"`
	Description string            `json:"description"`
	IsPublic    bool              `json:"is_public"`
	Status      domain.FormStatus `json:"status"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// CreateDefinitionRequest payload.
type CreateDefinitionRequest struct {
	Schema map[string]any `json:"schema"`
}

// PublishDefinitionRequest payload.
type PublishDefinitionRequest struct {
	Version int `json:"version"`
}

// FormDefinitionResponse response.
type FormDefinitionResponse struct {
	ID        int64          `json:"id"`
	FormID    int64          `json:"form_id"`
	Version   int            `json:"version"`
	Schema    map[string]any `json:"schema"`
	Published bool           `json:"published"`
	CreatedAt time.Time      `json:"created_at"`
}
