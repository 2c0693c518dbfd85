package models

import (
	"strings"
	"time"

	"github.com/noah-isme/eduwork-api/internal/deadline"
)

// WorkKind distinguishes individual from collective work.
type WorkKind string

const (
	// WorkKindIndividual is distributed to students one Assignment at a time.
	WorkKindIndividual WorkKind = "INDIVIDUAL"
	// WorkKindCollective is distributed to Groups of students.
	WorkKindCollective WorkKind = "COLLECTIVE"
)

// GroupMode declares who forms the groups of a collective work.
type GroupMode string

const (
	// GroupModeStaffDefined means trainers compose the groups.
	GroupModeStaffDefined GroupMode = "STAFF_DEFINED"
	// GroupModeStudentDefined means students form their own groups.
	GroupModeStudentDefined GroupMode = "STUDENT_DEFINED"
	// GroupModeNotApplicable is the only valid mode for individual work.
	GroupModeNotApplicable GroupMode = "NOT_APPLICABLE"
)

// IsValid reports whether the kind is one of the known values.
func (k WorkKind) IsValid() bool {
	switch k {
	case WorkKindIndividual, WorkKindCollective:
		return true
	default:
		return false
	}
}

// ParseWorkKind normalises user input into a WorkKind.
func ParseWorkKind(value string) WorkKind {
	return WorkKind(strings.ToUpper(strings.TrimSpace(value)))
}

// ParseGroupMode normalises user input into a GroupMode.
func ParseGroupMode(value string) GroupMode {
	mode := GroupMode(strings.ToUpper(strings.TrimSpace(value)))
	if mode == "" {
		return GroupModeNotApplicable
	}
	return mode
}

// Compatible reports whether mode is allowed for kind: NOT_APPLICABLE iff INDIVIDUAL.
func (m GroupMode) Compatible(kind WorkKind) bool {
	switch kind {
	case WorkKindIndividual:
		return m == GroupModeNotApplicable
	case WorkKindCollective:
		return m == GroupModeStaffDefined || m == GroupModeStudentDefined
	default:
		return false
	}
}

// Work is a gradable unit of work defined by staff inside a course space.
type Work struct {
	ID              uint        `gorm:"primaryKey" json:"id"`
	Title           string      `gorm:"size:255;not null" json:"title"`
	Instructions    string      `gorm:"type:text" json:"instructions"`
	InstructionFile string      `gorm:"size:512" json:"instruction_file"`
	Kind            WorkKind    `gorm:"size:16;not null;index" json:"kind"`
	GroupMode       GroupMode   `gorm:"size:24;not null" json:"group_mode"`
	StartDate       time.Time   `gorm:"not null" json:"start_date"`
	DueDate         time.Time   `gorm:"not null" json:"due_date"`
	CourseSpaceID   uint        `gorm:"not null;index" json:"course_space_id"`
	CreatedBy       uint        `gorm:"not null" json:"created_by"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
	CourseSpace     CourseSpace `gorm:"constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"course_space"`
}

// IsCollective reports whether the work is distributed to groups.
func (w Work) IsCollective() bool {
	return w.Kind == WorkKindCollective
}

// IsPastDue returns true once the deadline is reached, matching the overdue tier.
func (w Work) IsPastDue(reference time.Time) bool {
	return deadline.Classify(w.DueDate, reference).Overdue()
}
