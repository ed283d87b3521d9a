package service

import (
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/forms-service/internal/domain"
)

func TestRenderCSVColumnsFollowFieldKeys(t *testing.T) {
	created := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	completed := created.Add(5 * time.Minute)
	submissions := []domain.Submission{
		{
			ID:          7,
			Payload:     map[string]any{"name": "Ada", "age": float64(36), "newsletter": true},
			IsComplete:  true,
			CreatedAt:   created,
			CompletedAt: &completed,
		},
		{
			ID:        8,
			Payload:   map[string]any{"name": "Grace"},
			CreatedAt: created,
		},
	}

	data, err := renderCSV([]string{"name", "age", "newsletter"}, submissions)
	require.NoError(t, err)

	records, err := csv.NewReader(strings.NewReader(string(data))).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, []string{"submission_id", "created_at", "completed_at", "name", "age", "newsletter"}, records[0])
	assert.Equal(t, []string{"7", "2026-08-01T10:00:00Z", "2026-08-01T10:05:00Z", "Ada", "36", "true"}, records[1])

	// Missing answers and missing completion render as empty cells.
	assert.Equal(t, "8", records[2][0])
	assert.Empty(t, records[2][2])
	assert.Empty(t, records[2][4])
	assert.Empty(t, records[2][5])
}

func TestCellValueFlattensCompositeAnswers(t *testing.T) {
	assert.Equal(t, "", cellValue(nil))
	assert.Equal(t, "hello", cellValue("hello"))
	assert.Equal(t, "3.5", cellValue(3.5))
	assert.Equal(t, "false", cellValue(false))
	assert.Equal(t, `["red","blue"]`, cellValue([]any{"red", "blue"}))
}

func TestRenderJSONKeepsPayloadIntact(t *testing.T) {
	created := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	data, err := renderJSON([]domain.Submission{
		{ID: 12, Payload: map[string]any{"city": "Oslo"}, CreatedAt: created},
	})
	require.NoError(t, err)

	var rows []map[string]any
	require.NoError(t, json.Unmarshal(data, &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, float64(12), rows[0]["submission_id"])
	assert.Equal(t, map[string]any{"city": "Oslo"}, rows[0]["payload"])
	assert.Equal(t, false, rows[0]["is_complete"])
}
