package models

import (
	"strings"
	"time"
)

// Assignment is a piece of coursework made of ordered questions.
type Assignment struct {
	ID                uint         `gorm:"primaryKey" json:"id"`
	CourseID          uint         `gorm:"not null;index" json:"course_id"`
	Title             string       `gorm:"size:255;not null" json:"title"`
	SubmissionType    string       `gorm:"size:32" json:"submission_type"`
	DueDate           *time.Time   `json:"due_date"`
	GradingGuidelines string       `gorm:"type:text" json:"grading_guidelines"`
	CreatedAt         time.Time    `json:"created_at"`
	UpdatedAt         time.Time    `json:"updated_at"`
	Questions         []Question   `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
	Submissions       []Submission `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
}

// HasGuidelines reports whether the instructor supplied a rubric.
func (a Assignment) HasGuidelines() bool {
	return strings.TrimSpace(a.GradingGuidelines) != ""
}

// Question is a gradable item of an assignment.
type Question struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	AssignmentID uint      `gorm:"not null;index" json:"assignment_id"`
	Number       int       `gorm:"not null" json:"number"`
	Text         string    `gorm:"type:text;not null" json:"text"`
	MaxPoints    float64   `gorm:"not null;default:0" json:"max_points"`
	SolutionKey  *string   `gorm:"type:text" json:"solution_key"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
