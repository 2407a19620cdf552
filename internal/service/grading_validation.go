package service

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"github.com/ClearMarkApp/backend/internal/models"
	"github.com/ClearMarkApp/backend/pkg/ai"
)

// ClampGradingResult bounds every known question's grade to [0, max points] and
// recomputes the total from the resulting grades. Repeated question ids collapse
// into one entry: the last answer wins and keeps the position of the first.
// Entries for unknown question ids are kept as returned. The input is never modified.
func ClampGradingResult(result ai.GradingResult, questions []models.Question) ai.GradingResult {
	maxPoints := make(map[uint]float64, len(questions))
	for _, question := range questions {
		maxPoints[question.ID] = question.MaxPoints
	}

	validated := ai.GradingResult{
		Grades:          make([]ai.QuestionGrade, 0, len(result.Grades)),
		OverallFeedback: result.OverallFeedback,
	}

	position := make(map[uint]int, len(result.Grades))
	for _, grade := range result.Grades {
		if limit, ok := maxPoints[grade.QuestionID]; ok {
			switch {
			case grade.Grade > limit:
				grade.Grade = limit
			case grade.Grade < 0:
				grade.Grade = 0
			}
		}
		if i, seen := position[grade.QuestionID]; seen {
			validated.Grades[i] = grade
			continue
		}
		position[grade.QuestionID] = len(validated.Grades)
		validated.Grades = append(validated.Grades, grade)
	}
	validated.TotalScore = totalOf(validated.Grades)

	return validated
}

// RetainKnownQuestions drops entries whose question id is not part of the
// assignment and recomputes the total over what remains. The input is never modified.
func RetainKnownQuestions(result ai.GradingResult, questions []models.Question) ai.GradingResult {
	known := make(map[uint]struct{}, len(questions))
	for _, question := range questions {
		known[question.ID] = struct{}{}
	}

	retained := ai.GradingResult{
		Grades:          make([]ai.QuestionGrade, 0, len(result.Grades)),
		OverallFeedback: result.OverallFeedback,
	}
	for _, grade := range result.Grades {
		if _, ok := known[grade.QuestionID]; ok {
			retained.Grades = append(retained.Grades, grade)
		}
	}
	retained.TotalScore = totalOf(retained.Grades)

	return retained
}

func totalOf(grades []ai.QuestionGrade) float64 {
	total := 0.0
	for _, grade := range grades {
		total += grade.Grade
	}
	return total
}

// feedbackSanitizer strips any markup the model may have produced.
type feedbackSanitizer struct {
	policy *bluemonday.Policy
}

func newFeedbackSanitizer() feedbackSanitizer {
	return feedbackSanitizer{policy: bluemonday.StrictPolicy()}
}

func (f feedbackSanitizer) Sanitize(text string) string {
	return strings.TrimSpace(html.UnescapeString(f.policy.Sanitize(text)))
}

func (f feedbackSanitizer) SanitizeResult(result ai.GradingResult) ai.GradingResult {
	sanitized := ai.GradingResult{
		Grades:          make([]ai.QuestionGrade, len(result.Grades)),
		TotalScore:      result.TotalScore,
		OverallFeedback: f.Sanitize(result.OverallFeedback),
	}
	for i, grade := range result.Grades {
		grade.Feedback = f.Sanitize(grade.Feedback)
		sanitized.Grades[i] = grade
	}
	return sanitized
}
