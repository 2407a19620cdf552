package ai

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai/jsonschema"
)

// ResponseSchemaName names the structured output format sent to the model.
const ResponseSchemaName = "submission_grading"

// BuildResponseSchema returns the structured output schema constraining the model's answer.
// Items are not pinned to the question count; the result is clamped afterwards.
func BuildResponseSchema(questions []Question) jsonschema.Definition {
	ids := make([]string, 0, len(questions))
	for _, q := range questions {
		ids = append(ids, fmt.Sprintf("%d (max %s)", q.ID, formatPoints(q.MaxPoints)))
	}

	gradeItem := jsonschema.Definition{
		Type: jsonschema.Object,
		Properties: map[string]jsonschema.Definition{
			"question_id": {
				Type:        jsonschema.Integer,
				Description: fmt.Sprintf("The question ID, one of: %s", strings.Join(ids, ", ")),
			},
			"grade": {
				Type:        jsonschema.Number,
				Description: "Points awarded (must not exceed max_points)",
			},
			"feedback": {
				Type:        jsonschema.String,
				Description: "Detailed feedback explaining the grade",
			},
		},
		Required: []string{"question_id", "grade", "feedback"},
	}

	return jsonschema.Definition{
		Type: jsonschema.Object,
		Properties: map[string]jsonschema.Definition{
			"grades": {
				Type:        jsonschema.Array,
				Description: "Array of grades for each question",
				Items:       &gradeItem,
			},
			"total_score": {
				Type:        jsonschema.Number,
				Description: "Sum of all question grades",
			},
			"overall_feedback": {
				Type:        jsonschema.String,
				Description: "Overall summary feedback for the submission",
			},
		},
		Required: []string{"grades", "total_score", "overall_feedback"},
	}
}

// SchemaJSON renders a schema definition, dropping the null "properties" members that
// nested non-object definitions marshal to.
func SchemaJSON(definition jsonschema.Definition) (json.RawMessage, error) {
	raw, err := json.Marshal(&definition)
	if err != nil {
		return nil, fmt.Errorf("marshal response schema: %w", err)
	}

	var document interface{}
	if err := json.Unmarshal(raw, &document); err != nil {
		return nil, fmt.Errorf("normalise response schema: %w", err)
	}

	cleaned, err := json.Marshal(pruneNulls(document))
	if err != nil {
		return nil, fmt.Errorf("marshal response schema: %w", err)
	}

	return cleaned, nil
}

func pruneNulls(value interface{}) interface{} {
	switch v := value.(type) {
	case map[string]interface{}:
		for key, item := range v {
			if item == nil {
				delete(v, key)
				continue
			}
			v[key] = pruneNulls(item)
		}
		return v
	case []interface{}:
		for i, item := range v {
			v[i] = pruneNulls(item)
		}
		return v
	default:
		return v
	}
}
