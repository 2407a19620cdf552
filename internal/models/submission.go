package models

import (
	"strings"
	"time"
)

// Submission represents a file submitted by a student for an assignment.
type Submission struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	AssignmentID uint       `gorm:"not null;index:idx_submission_latest" json:"assignment_id"`
	StudentID    uint       `gorm:"not null;index:idx_submission_latest" json:"student_id"`
	FileKey      *string    `gorm:"size:512" json:"file_key"`
	Status       string     `gorm:"size:32;not null" json:"status"`
	CreatedAt    time.Time  `gorm:"index:idx_submission_latest" json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	Student      User       `gorm:"foreignKey:StudentID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"student"`
	Assignment   Assignment `json:"-"`
	Grades       []Grade    `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"grades"`
}

const (
	// SubmissionStatusSubmitted indicates the submission has been uploaded but not graded.
	SubmissionStatusSubmitted = "SUBMITTED"
	// SubmissionStatusGraded indicates the submission has been evaluated.
	SubmissionStatusGraded = "GRADED"
)

// IsGraded reports whether the submission has a final grade set.
func (s Submission) IsGraded() bool {
	return s.Status == SubmissionStatusGraded
}

// HasFile reports whether a stored file is attached.
func (s Submission) HasFile() bool {
	return s.FileKey != nil && strings.TrimSpace(*s.FileKey) != ""
}

// Grade is the score awarded to one question of a submission.
type Grade struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	SubmissionID uint      `gorm:"not null;uniqueIndex:idx_grade_submission_question" json:"submission_id"`
	QuestionID   uint      `gorm:"not null;uniqueIndex:idx_grade_submission_question" json:"question_id"`
	Grade        float64   `gorm:"not null" json:"grade"`
	Feedback     string    `gorm:"type:text" json:"feedback"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	Question     Question  `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
}
