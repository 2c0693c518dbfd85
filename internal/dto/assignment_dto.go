package dto

import (
	"time"

	"github.com/noah-isme/eduwork-api/internal/models"
)

// AssignIndividualRequest lists the students receiving an individual work.
type AssignIndividualRequest struct {
	StudentIDs []uint `json:"student_ids" validate:"required,min=1,dive,gt=0"`
}

// AttachGroupsRequest lists the groups made visible on a collective work.
type AttachGroupsRequest struct {
	GroupIDs []uint `json:"group_ids" validate:"required,min=1,dive,gt=0"`
}

// AssignmentResponse serializes an assignment with its delivery status.
type AssignmentResponse struct {
	ID        uint                   `json:"id"`
	WorkID    uint                   `json:"work_id"`
	StudentID uint                   `json:"student_id"`
	State     models.SubmissionState `json:"state"`
	Delivery  models.DeliveryStatus  `json:"delivery"`
	CreatedAt time.Time              `json:"created_at"`
}

// NewAssignmentResponse converts an assignment and its submission, if any.
func NewAssignmentResponse(model models.Assignment, submission *models.Submission) AssignmentResponse {
	return AssignmentResponse{
		ID:        model.ID,
		WorkID:    model.WorkID,
		StudentID: model.StudentID,
		State:     targetState(submission),
		Delivery:  models.Delivery(submission),
		CreatedAt: model.CreatedAt,
	}
}

// DistributionResponse reports the targets of a work after distribution.
type DistributionResponse struct {
	WorkID      uint                 `json:"work_id"`
	Kind        models.WorkKind      `json:"kind"`
	Created     int64                `json:"created"`
	Assignments []AssignmentResponse `json:"assignments,omitempty"`
	Groups      []GroupResponse      `json:"groups,omitempty"`
}
