package models

import "time"

const (
	// AccountTypeStudent marks a learner account.
	AccountTypeStudent = "STUDENT"
	// AccountTypeInstructor marks a teaching account.
	AccountTypeInstructor = "INSTRUCTOR"
)

// User represents anyone who can sign in to the platform.
type User struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	FirstName   string    `gorm:"size:128;not null" json:"first_name"`
	LastName    string    `gorm:"size:128;not null" json:"last_name"`
	Email       string    `gorm:"size:255;uniqueIndex;not null" json:"email"`
	AccountType string    `gorm:"size:32;not null" json:"account_type"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// FullName joins first and last name.
func (u User) FullName() string {
	switch {
	case u.FirstName == "":
		return u.LastName
	case u.LastName == "":
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}
