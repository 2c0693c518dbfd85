package models

import "time"

// CourseSpace is the pedagogical space owning works. It is maintained by the
// course administration module; the lifecycle engine only reads it.
type CourseSpace struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:255;not null" json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Enrollment records that a student belongs to a course space.
type Enrollment struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	CourseSpaceID uint      `gorm:"not null;uniqueIndex:idx_enrollment_space_student" json:"course_space_id"`
	StudentID     uint      `gorm:"not null;uniqueIndex:idx_enrollment_space_student" json:"student_id"`
	CreatedAt     time.Time `json:"created_at"`
}
