package models

import "time"

// Assignment binds an individual work to a single student.
type Assignment struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	WorkID    uint      `gorm:"not null;uniqueIndex:idx_assignment_work_student" json:"work_id"`
	StudentID uint      `gorm:"not null;uniqueIndex:idx_assignment_work_student" json:"student_id"`
	CreatedAt time.Time `json:"created_at"`
	Work      Work      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"work"`
}
