package dto

import (
	"time"

	"github.com/noah-isme/eduwork-api/internal/models"
)

// SubmitRequest carries the delivered content. Multipart uploads fill FileRef
// after the file store accepted the attachment.
type SubmitRequest struct {
	Content string `json:"content" form:"content" validate:"omitempty,max=50000"`
	FileRef string `json:"file_ref" form:"file_ref" validate:"omitempty,max=512"`
}

// SubmissionResponse is returned to API clients when viewing submissions.
type SubmissionResponse struct {
	ID           uint                   `json:"id"`
	WorkID       uint                   `json:"work_id"`
	WorkTitle    string                 `json:"work_title"`
	TargetKind   models.TargetKind      `json:"target_kind"`
	AssignmentID *uint                  `json:"assignment_id"`
	GroupID      *uint                  `json:"group_id"`
	Content      string                 `json:"content"`
	FileRef      string                 `json:"file_ref"`
	SubmittedBy  uint                   `json:"submitted_by"`
	SubmittedAt  time.Time              `json:"submitted_at"`
	Late         bool                   `json:"late"`
	State        models.SubmissionState `json:"state"`
	Delivery     models.DeliveryStatus  `json:"delivery"`
	Deadline     DeadlineResponse       `json:"deadline"`
	Evaluation   *EvaluationResponse    `json:"evaluation"`
}

// NewSubmissionResponse converts a submission (with Work and Evaluation preloaded).
func NewSubmissionResponse(submission models.Submission, now time.Time) SubmissionResponse {
	response := SubmissionResponse{
		ID:           submission.ID,
		WorkID:       submission.WorkID,
		WorkTitle:    submission.Work.Title,
		TargetKind:   submission.TargetKind,
		AssignmentID: submission.AssignmentID,
		GroupID:      submission.GroupID,
		Content:      submission.Content,
		FileRef:      submission.FileRef,
		SubmittedBy:  submission.SubmittedBy,
		SubmittedAt:  submission.SubmittedAt,
		Late:         submission.Late,
		State:        submission.State(),
		Delivery:     models.Delivery(&submission),
		Deadline:     NewDeadlineResponse(submission.Work.DueDate, now),
	}
	if submission.IsEvaluated() {
		evaluation := NewEvaluationResponse(*submission.Evaluation)
		response.Evaluation = &evaluation
	}
	return response
}

// NewSubmissionResponseSlice converts a list of submissions.
func NewSubmissionResponseSlice(submissions []models.Submission, now time.Time) []SubmissionResponse {
	responses := make([]SubmissionResponse, 0, len(submissions))
	for _, submission := range submissions {
		responses = append(responses, NewSubmissionResponse(submission, now))
	}
	return responses
}
