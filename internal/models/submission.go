package models

import (
	"time"

	"github.com/apexti/apex-go-api/internal/lifecycle"
)

// TaskSubmission represents a student's attempt at a task. Status moves
// through the lifecycle state machine: pending until an admin reviews it,
// then accepted (terminal) or rejected (resubmittable). Resubmission reuses
// the existing row, so the unique (task, student) index holds one record per
// pairing and closes the door on concurrent first attempts.
type TaskSubmission struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	TaskID      uint       `gorm:"not null;uniqueIndex:idx_task_student" json:"task_id"`
	StudentID   uint       `gorm:"not null;uniqueIndex:idx_task_student" json:"student_id"`
	AnswerText  string     `gorm:"type:text" json:"answer_text"`
	ArtifactURL string     `gorm:"size:512" json:"artifact_url"`
	Status      string     `gorm:"size:32;not null" json:"status"`
	Feedback    string     `gorm:"type:text" json:"feedback"`
	ReviewedBy  *uint      `json:"reviewed_by"`
	ReviewedAt  *time.Time `json:"reviewed_at"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	Task        Task       `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"task"`
	Student     User       `gorm:"foreignKey:StudentID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"student"`
}

// LifecycleStatus converts the stored status string into its typed form.
func (s TaskSubmission) LifecycleStatus() lifecycle.Status {
	return lifecycle.Status(s.Status)
}

// IsReviewed reports whether an admin already decided on this submission.
func (s TaskSubmission) IsReviewed() bool {
	return s.Status == string(lifecycle.StatusAccepted) || s.Status == string(lifecycle.StatusRejected)
}
