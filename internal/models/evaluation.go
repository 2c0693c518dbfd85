package models

import (
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
)

const (
	// MinGrade is the lowest grade an evaluation may carry.
	MinGrade = 0.0
	// MaxGrade is the highest grade an evaluation may carry.
	MaxGrade = 20.0
)

var (
	// ErrGradeOutOfRange indicates a grade outside [MinGrade, MaxGrade].
	ErrGradeOutOfRange = errors.New("grade must be between 0 and 20")
	// ErrPartialCorrection indicates only some of the correction fields were set.
	ErrPartialCorrection = errors.New("correction fields must be set together")
)

// GradeInRange reports whether grade lies in the closed interval [0, 20].
func GradeInRange(grade float64) bool {
	return grade >= MinGrade && grade <= MaxGrade
}

// Evaluation is the grade and comment attached to a submission. Grade and
// Comment always hold the current values; EvaluatorID and EvaluatedAt keep
// the original grading, the Corrected* fields the latest director correction.
type Evaluation struct {
	ID               uint                   `gorm:"primaryKey" json:"id"`
	SubmissionID     uint                   `gorm:"not null;uniqueIndex" json:"submission_id"`
	Grade            float64                `gorm:"not null" json:"grade"`
	Comment          string                 `gorm:"type:text;not null" json:"comment"`
	EvaluatorID      uint                   `gorm:"not null" json:"evaluator_id"`
	EvaluatedAt      time.Time              `gorm:"not null" json:"evaluated_at"`
	CorrectedBy      *uint                  `json:"corrected_by"`
	CorrectionReason *string                `gorm:"type:text" json:"correction_reason"`
	CorrectedAt      *time.Time             `json:"corrected_at"`
	CreatedAt        time.Time              `json:"created_at"`
	UpdatedAt        time.Time              `json:"updated_at"`
	Corrections      []EvaluationCorrection `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"corrections,omitempty"`
}

// IsCorrected reports whether a director correction has been applied.
func (e Evaluation) IsCorrected() bool {
	return e.CorrectedBy != nil
}

// Validate checks the grade range and the all-or-nothing correction fields.
func (e Evaluation) Validate() error {
	if !GradeInRange(e.Grade) {
		return ErrGradeOutOfRange
	}

	set := 0
	if e.CorrectedBy != nil {
		set++
	}
	if e.CorrectionReason != nil {
		if strings.TrimSpace(*e.CorrectionReason) == "" {
			return ErrPartialCorrection
		}
		set++
	}
	if e.CorrectedAt != nil {
		set++
	}
	if set != 0 && set != 3 {
		return ErrPartialCorrection
	}
	return nil
}

// BeforeSave enforces Validate on every write.
func (e *Evaluation) BeforeSave(_ *gorm.DB) error {
	return e.Validate()
}

// ApplyCorrection overwrites the current grade and comment and fills the
// correction slot, leaving the original evaluator untouched.
func (e *Evaluation) ApplyCorrection(grade float64, comment string, correctorID uint, reason string, at time.Time) {
	e.Grade = grade
	e.Comment = comment
	corrector := correctorID
	e.CorrectedBy = &corrector
	why := reason
	e.CorrectionReason = &why
	when := at
	e.CorrectedAt = &when
}

// EvaluationCorrection is the append-only record of one director correction.
type EvaluationCorrection struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	EvaluationID    uint      `gorm:"not null;index" json:"evaluation_id"`
	PreviousGrade   float64   `gorm:"not null" json:"previous_grade"`
	PreviousComment string    `gorm:"type:text" json:"previous_comment"`
	Grade           float64   `gorm:"not null" json:"grade"`
	Comment         string    `gorm:"type:text" json:"comment"`
	CorrectedBy     uint      `gorm:"not null" json:"corrected_by"`
	Reason          string    `gorm:"type:text;not null" json:"reason"`
	CorrectedAt     time.Time `gorm:"not null" json:"corrected_at"`
}
