package models

import "time"

// Task represents an assignment created by an admin for students to answer.
type Task struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	Title         string    `gorm:"size:255;not null" json:"title"`
	Description   string    `gorm:"type:text" json:"description"`
	DueDate       time.Time `gorm:"not null" json:"due_date"`
	AttachmentURL string    `gorm:"size:512" json:"attachment_url"`
	CreatedBy     uint      `gorm:"not null" json:"created_by"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
	Submissions   []TaskSubmission
}

// IsPastDue returns true when the task deadline has already passed.
func (t Task) IsPastDue(reference time.Time) bool {
	return reference.After(t.DueDate)
}
