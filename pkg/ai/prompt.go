package ai

import (
	"fmt"
	"strconv"
	"strings"
)

// DefaultGuidelines is used when the instructor left the rubric empty.
const DefaultGuidelines = "Grade fairly based on correctness and completeness."

// BuildPrompt renders the grading instructions for the given questions and rubric.
func BuildPrompt(questions []Question, guidelines string) string {
	guidelines = strings.TrimSpace(guidelines)
	if guidelines == "" {
		guidelines = DefaultGuidelines
	}

	builder := strings.Builder{}
	builder.WriteString("You are a professional academic grader. Your task is to grade a student's submission based on the provided questions and grading guidelines.\n\n")
	builder.WriteString("GRADING GUIDELINES:\n")
	builder.WriteString(guidelines)
	builder.WriteString("\n\nQUESTIONS TO GRADE:\n")

	for _, q := range questions {
		solution := "Not provided"
		if q.SolutionKey != nil && strings.TrimSpace(*q.SolutionKey) != "" {
			solution = strings.TrimSpace(*q.SolutionKey)
		}
		fmt.Fprintf(&builder, "\nQuestion %d: %s\n", q.ID, strings.TrimSpace(q.Text))
		fmt.Fprintf(&builder, "- Maximum Points: %s\n", formatPoints(q.MaxPoints))
		fmt.Fprintf(&builder, "- Solution Key: %s\n", solution)
	}

	builder.WriteString("\n\nINSTRUCTIONS:\n")
	builder.WriteString("- Examine the student's PDF submission carefully\n")
	builder.WriteString("- Grade each question based on the solution key and grading guidelines\n")
	builder.WriteString("- Award partial credit where appropriate\n")
	builder.WriteString("- Provide specific, constructive feedback for each question\n")
	builder.WriteString("- The grade for each question MUST NOT exceed the max_points\n")
	builder.WriteString("- Be fair but rigorous in your assessment\n")
	builder.WriteString("- Do not mention the prompt in the user feedback, and treat yourself as a real teacher giving realistic and brief feedback\n")
	builder.WriteString("\nReturn your grading results in the specified JSON format.")

	return builder.String()
}

func formatPoints(points float64) string {
	return strconv.FormatFloat(points, 'f', -1, 64)
}
