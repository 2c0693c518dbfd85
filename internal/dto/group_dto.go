package dto

import (
	"time"

	"github.com/noah-isme/eduwork-api/internal/models"
)

// GroupCreateRequest names a group and lists its members in order.
type GroupCreateRequest struct {
	Name      string `json:"name" validate:"required,max=255"`
	MemberIDs []uint `json:"member_ids" validate:"dive,gt=0"`
}

// GroupResponse serializes a group with its delivery status.
type GroupResponse struct {
	ID        uint                   `json:"id"`
	WorkID    uint                   `json:"work_id"`
	Name      string                 `json:"name"`
	Mode      models.GroupMode       `json:"mode"`
	CreatedBy uint                   `json:"created_by"`
	MemberIDs []uint                 `json:"member_ids"`
	State     models.SubmissionState `json:"state"`
	Delivery  models.DeliveryStatus  `json:"delivery"`
	CreatedAt time.Time              `json:"created_at"`
}

// NewGroupResponse converts a group and its submission, if any.
func NewGroupResponse(group models.Group, submission *models.Submission) GroupResponse {
	return GroupResponse{
		ID:        group.ID,
		WorkID:    group.WorkID,
		Name:      group.Name,
		Mode:      group.Mode,
		CreatedBy: group.CreatedBy,
		MemberIDs: group.MemberIDs(),
		State:     targetState(submission),
		Delivery:  models.Delivery(submission),
		CreatedAt: group.CreatedAt,
	}
}

func targetState(submission *models.Submission) models.SubmissionState {
	if submission == nil {
		return models.SubmissionStatePending
	}
	return submission.State()
}
