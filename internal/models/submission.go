package models

import (
	"errors"
	"time"

	"gorm.io/gorm"
)

// ErrInvalidSubmissionTarget indicates a submission row does not reference exactly one target.
var ErrInvalidSubmissionTarget = errors.New("submission must reference exactly one of assignment or group")

// TargetKind tags which relation a submission is delivered against.
type TargetKind string

const (
	// TargetIndividual marks submissions delivered against an Assignment.
	TargetIndividual TargetKind = "INDIVIDUAL"
	// TargetGroup marks submissions delivered against a Group.
	TargetGroup TargetKind = "GROUP"
)

// Target is what a submission is delivered against: an AssignmentTarget or a GroupTarget.
type Target interface {
	Kind() TargetKind
	ID() uint
	isTarget()
}

// AssignmentTarget targets the Assignment of an individual work.
type AssignmentTarget struct {
	AssignmentID uint
}

// Kind implements Target.
func (AssignmentTarget) Kind() TargetKind { return TargetIndividual }

// ID implements Target.
func (t AssignmentTarget) ID() uint { return t.AssignmentID }

func (AssignmentTarget) isTarget() {}

// GroupTarget targets a Group of a collective work.
type GroupTarget struct {
	GroupID uint
}

// Kind implements Target.
func (GroupTarget) Kind() TargetKind { return TargetGroup }

// ID implements Target.
func (t GroupTarget) ID() uint { return t.GroupID }

func (GroupTarget) isTarget() {}

// SubmissionState is the logical lifecycle state of an Assignment or Group.
type SubmissionState string

const (
	// SubmissionStatePending means nothing has been delivered yet.
	SubmissionStatePending SubmissionState = "pending"
	// SubmissionStateSubmitted means a submission exists and may still be replaced.
	SubmissionStateSubmitted SubmissionState = "submitted"
	// SubmissionStateEvaluated means the submission is graded and locked.
	SubmissionStateEvaluated SubmissionState = "evaluated"
)

// DeliveryStatus is the delivery view shown on work listings.
type DeliveryStatus string

const (
	DeliveryInProgress DeliveryStatus = "in_progress"
	DeliveryDelivered  DeliveryStatus = "delivered"
	DeliveryLate       DeliveryStatus = "late"
)

// Submission is the content a student or a group delivers against a work.
// Assignment and group submissions are unique per target through nullable unique indexes.
type Submission struct {
	ID           uint        `gorm:"primaryKey" json:"id"`
	WorkID       uint        `gorm:"not null;index" json:"work_id"`
	TargetKind   TargetKind  `gorm:"size:16;not null" json:"target_kind"`
	AssignmentID *uint       `gorm:"uniqueIndex" json:"assignment_id"`
	GroupID      *uint       `gorm:"uniqueIndex" json:"group_id"`
	Content      string      `gorm:"type:text" json:"content"`
	FileRef      string      `gorm:"size:512" json:"file_ref"`
	SubmittedBy  uint        `gorm:"not null" json:"submitted_by"`
	SubmittedAt  time.Time   `gorm:"not null" json:"submitted_at"`
	Late         bool        `gorm:"not null;default:false" json:"late"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
	Work         Work        `gorm:"constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"work"`
	Assignment   *Assignment `gorm:"constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"assignment,omitempty"`
	Group        *Group      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"group,omitempty"`
	Evaluation   *Evaluation `gorm:"constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"evaluation,omitempty"`
}

// NewSubmission builds an unsaved submission bound to target.
func NewSubmission(workID uint, target Target) Submission {
	submission := Submission{WorkID: workID}
	submission.SetTarget(target)
	return submission
}

// SetTarget stores the tagged target in the row columns.
func (s *Submission) SetTarget(target Target) {
	s.AssignmentID = nil
	s.GroupID = nil
	switch t := target.(type) {
	case AssignmentTarget:
		id := t.AssignmentID
		s.TargetKind = TargetIndividual
		s.AssignmentID = &id
	case GroupTarget:
		id := t.GroupID
		s.TargetKind = TargetGroup
		s.GroupID = &id
	}
}

// Target rebuilds the tagged target from the row columns.
func (s Submission) Target() (Target, error) {
	switch {
	case s.TargetKind == TargetIndividual && s.AssignmentID != nil && s.GroupID == nil:
		return AssignmentTarget{AssignmentID: *s.AssignmentID}, nil
	case s.TargetKind == TargetGroup && s.GroupID != nil && s.AssignmentID == nil:
		return GroupTarget{GroupID: *s.GroupID}, nil
	default:
		return nil, ErrInvalidSubmissionTarget
	}
}

// BeforeSave rejects rows that reference both or neither target.
func (s *Submission) BeforeSave(_ *gorm.DB) error {
	if _, err := s.Target(); err != nil {
		return err
	}
	return nil
}

// IsSubmitter reports whether studentID owns the target of the submission.
// Assignment and Group must be preloaded.
func (s Submission) IsSubmitter(studentID uint) bool {
	switch s.TargetKind {
	case TargetIndividual:
		return s.Assignment != nil && s.Assignment.StudentID == studentID
	case TargetGroup:
		return s.Group != nil && s.Group.HasMember(studentID)
	default:
		return false
	}
}

// IsEvaluated reports whether an evaluation is attached.
func (s Submission) IsEvaluated() bool {
	return s.Evaluation != nil && s.Evaluation.ID != 0
}

// State derives the logical lifecycle state.
func (s Submission) State() SubmissionState {
	if s.IsEvaluated() {
		return SubmissionStateEvaluated
	}
	return SubmissionStateSubmitted
}

// Delivery derives the delivery status of a target given its submission, if any.
func Delivery(submission *Submission) DeliveryStatus {
	switch {
	case submission == nil:
		return DeliveryInProgress
	case submission.Late:
		return DeliveryLate
	default:
		return DeliveryDelivered
	}
}
