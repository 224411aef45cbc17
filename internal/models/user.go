package models

import "time"

// User represents a platform account. Role decides which portal the account
// belongs to; identity and role arrive via JWT claims, there is no local
// credential flow.
type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:255;not null" json:"name"`
	Email     string    `gorm:"size:255;uniqueIndex;not null" json:"email"`
	Role      string    `gorm:"size:32;not null;default:student" json:"role"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

const (
	// UserRoleAdmin marks reviewers with access to the admin portal.
	UserRoleAdmin = "admin"
	// UserRoleStudent marks learners with access to the student portal.
	UserRoleStudent = "student"
)

// IsAdmin reports whether the account belongs to the admin portal.
func (u User) IsAdmin() bool {
	return u.Role == UserRoleAdmin
}
