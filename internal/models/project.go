package models

import (
	"time"

	"github.com/apexti/apex-go-api/internal/lifecycle"
)

// ProjectSubmission represents the single project slot each student owns.
// The absence of a row is the implicit not-submitted pre-state; once created
// the record follows the same lifecycle as task submissions.
type ProjectSubmission struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	StudentID   uint       `gorm:"not null;uniqueIndex" json:"student_id"`
	Title       string     `gorm:"size:255" json:"title"`
	AnswerText  string     `gorm:"type:text" json:"answer_text"`
	ArtifactURL string     `gorm:"size:512" json:"artifact_url"`
	Status      string     `gorm:"size:32;not null" json:"status"`
	Feedback    string     `gorm:"type:text" json:"feedback"`
	ReviewedBy  *uint      `json:"reviewed_by"`
	ReviewedAt  *time.Time `json:"reviewed_at"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	Student     User       `gorm:"foreignKey:StudentID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"student"`
}

// LifecycleStatus converts the stored status string into its typed form.
func (p ProjectSubmission) LifecycleStatus() lifecycle.Status {
	return lifecycle.Status(p.Status)
}
