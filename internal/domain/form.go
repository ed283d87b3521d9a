package domain

import "time"

// FormStatus enumerates lifecycle states for forms.
type FormStatus string

const (
	FormStatusDraft     FormStatus = "DRAFT"
	FormStatusPublished FormStatus = "PUBLISHED"
	FormStatusArchived  FormStatus = "ARCHIVED"
)

// Form is the aggregate for a survey/form owned by a tenant.
// IsPublic is the sole authority for anonymous create/upload access.
type Form struct {
	ID          int64
	TenantID    int64
	Name        string
	Description string
	IsPublic    bool
	Status      FormStatus
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// FormDefinition is a versioned field layout for a form.
type FormDefinition struct {
	ID        int64
	FormID    int64
	Version   int
	Schema    map[string]any
	Published bool
	CreatedAt time.Time
}

// FieldKeys returns the ordered field keys declared in the definition schema.
// The schema stores fields as {"fields": [{"key": ..., ...}, ...]}.
func (d *FormDefinition) FieldKeys() []string {
	if d == nil || d.Schema == nil {
		return nil
	}
	raw, ok := d.Schema["fields"].([]any)
	if !ok {
		return nil
	}
	keys := make([]string, 0, len(raw))
	for _, entry := range raw {
		field, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		if key, ok := field["key"].(string); ok && key != "" {
			keys = append(keys, key)
		}
	}
	return keys
}
