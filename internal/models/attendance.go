package models

import "time"

// AttendanceRecord captures a single student check-in. One record per
// student per calendar day, enforced by the composite unique index.
type AttendanceRecord struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	StudentID uint      `gorm:"not null;uniqueIndex:idx_attendance_day" json:"student_id"`
	Day       string    `gorm:"size:10;not null;uniqueIndex:idx_attendance_day" json:"day"`
	Status    string    `gorm:"size:16;not null;default:present" json:"status"`
	CheckedAt time.Time `json:"checked_at"`
	CreatedAt time.Time `json:"created_at"`
	Student   User      `gorm:"foreignKey:StudentID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"student"`
}

const (
	AttendancePresent = "present"
	AttendanceAbsent  = "absent"
)

// AttendanceDayFormat is the canonical layout of the Day column.
const AttendanceDayFormat = "2006-01-02"
