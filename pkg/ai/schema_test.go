package ai

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuildResponseSchemaRequiresGradingShape(t *testing.T) {
	questions := []Question{
		{ID: 7, Number: 1, Text: "Define entropy", MaxPoints: 4},
		{ID: 9, Number: 2, Text: "Derive the ideal gas law", MaxPoints: 6.5},
	}

	raw, err := SchemaJSON(BuildResponseSchema(questions))
	require.NoError(t, err)

	var schema struct {
		Type       string                     `json:"type"`
		Required   []string                   `json:"required"`
		Properties map[string]json.RawMessage `json:"properties"`
	}
	require.NoError(t, json.Unmarshal(raw, &schema))
	require.Equal(t, "object", schema.Type)
	require.ElementsMatch(t, []string{"grades", "total_score", "overall_feedback"}, schema.Required)

	var grades struct {
		Type  string `json:"type"`
		Items struct {
			Required   []string `json:"required"`
			Properties map[string]struct {
				Type        string `json:"type"`
				Description string `json:"description"`
			} `json:"properties"`
		} `json:"items"`
	}
	require.NoError(t, json.Unmarshal(schema.Properties["grades"], &grades))
	require.Equal(t, "array", grades.Type)
	require.ElementsMatch(t, []string{"question_id", "grade", "feedback"}, grades.Items.Required)
	require.Equal(t, "integer", grades.Items.Properties["question_id"].Type)
	require.Equal(t, "number", grades.Items.Properties["grade"].Type)
	require.Equal(t, "string", grades.Items.Properties["feedback"].Type)
	require.Contains(t, grades.Items.Properties["question_id"].Description, "7 (max 4)")
	require.Contains(t, grades.Items.Properties["question_id"].Description, "9 (max 6.5)")
	require.NotContains(t, string(raw), "null")
}
