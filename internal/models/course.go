package models

import "time"

const (
	// EnrollmentRoleOwner is the course creator; every course keeps at least one.
	EnrollmentRoleOwner = "OWNER"
	// EnrollmentRoleInstructor can manage assignments but does not own the course.
	EnrollmentRoleInstructor = "INSTRUCTOR"
	// EnrollmentRoleStudent submits work for grading.
	EnrollmentRoleStudent = "STUDENT"
)

// Course groups assignments and enrolled users.
type Course struct {
	ID          uint               `gorm:"primaryKey" json:"id"`
	Code        string             `gorm:"size:64;not null" json:"code"`
	Name        string             `gorm:"size:255;not null" json:"name"`
	Colour      string             `gorm:"size:32" json:"colour"`
	CreatedAt   time.Time          `json:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at"`
	Enrollments []CourseEnrollment `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
	Assignments []Assignment       `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
}

// CourseEnrollment links a user to a course with a role.
type CourseEnrollment struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_enrollment_user_course" json:"user_id"`
	CourseID  uint      `gorm:"not null;uniqueIndex:idx_enrollment_user_course" json:"course_id"`
	Role      string    `gorm:"size:32;not null" json:"role"`
	CreatedAt time.Time `json:"created_at"`
	User      User      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"user"`
	Course    Course    `json:"-"`
}

// IsOwner reports whether the enrollment carries the owner role.
func (e CourseEnrollment) IsOwner() bool {
	return e.Role == EnrollmentRoleOwner
}
