package dto

import (
	"time"

	"github.com/noah-isme/eduwork-api/internal/grading"
	"github.com/noah-isme/eduwork-api/internal/models"
)

// EvaluateRequest grades a submission for the first time.
type EvaluateRequest struct {
	SubmissionID uint     `json:"submission_id" validate:"required,gt=0"`
	Grade        *float64 `json:"grade" validate:"required"`
	Comment      string   `json:"comment" validate:"max=10000"`
}

// CorrectRequest overwrites an evaluation on behalf of a director.
type CorrectRequest struct {
	Grade   *float64 `json:"grade" validate:"required"`
	Comment string   `json:"comment" validate:"max=10000"`
	Reason  string   `json:"reason" validate:"max=2000"`
}

// EvaluationResponse serializes the current grade with its audit fields.
type EvaluationResponse struct {
	ID               uint         `json:"id"`
	SubmissionID     uint         `json:"submission_id"`
	Grade            float64      `json:"grade"`
	Band             grading.Band `json:"band"`
	Success          bool         `json:"success"`
	Comment          string       `json:"comment"`
	EvaluatorID      uint         `json:"evaluator_id"`
	EvaluatedAt      time.Time    `json:"evaluated_at"`
	CorrectedBy      *uint        `json:"corrected_by"`
	CorrectionReason *string      `json:"correction_reason"`
	CorrectedAt      *time.Time   `json:"corrected_at"`
}

// NewEvaluationResponse converts an evaluation model.
func NewEvaluationResponse(evaluation models.Evaluation) EvaluationResponse {
	return EvaluationResponse{
		ID:               evaluation.ID,
		SubmissionID:     evaluation.SubmissionID,
		Grade:            evaluation.Grade,
		Band:             grading.BandOf(evaluation.Grade),
		Success:          grading.IsSuccess(evaluation.Grade),
		Comment:          evaluation.Comment,
		EvaluatorID:      evaluation.EvaluatorID,
		EvaluatedAt:      evaluation.EvaluatedAt,
		CorrectedBy:      evaluation.CorrectedBy,
		CorrectionReason: evaluation.CorrectionReason,
		CorrectedAt:      evaluation.CorrectedAt,
	}
}

// NewEvaluationResponseSlice converts a list of evaluations.
func NewEvaluationResponseSlice(evaluations []models.Evaluation) []EvaluationResponse {
	responses := make([]EvaluationResponse, 0, len(evaluations))
	for _, evaluation := range evaluations {
		responses = append(responses, NewEvaluationResponse(evaluation))
	}
	return responses
}

// CorrectionResponse serializes one entry of the correction trail.
type CorrectionResponse struct {
	ID              uint      `json:"id"`
	EvaluationID    uint      `json:"evaluation_id"`
	PreviousGrade   float64   `json:"previous_grade"`
	PreviousComment string    `json:"previous_comment"`
	Grade           float64   `json:"grade"`
	Comment         string    `json:"comment"`
	CorrectedBy     uint      `json:"corrected_by"`
	Reason          string    `json:"reason"`
	CorrectedAt     time.Time `json:"corrected_at"`
}

// NewCorrectionResponseSlice converts the correction trail of an evaluation.
func NewCorrectionResponseSlice(corrections []models.EvaluationCorrection) []CorrectionResponse {
	responses := make([]CorrectionResponse, 0, len(corrections))
	for _, correction := range corrections {
		responses = append(responses, CorrectionResponse{
			ID:              correction.ID,
			EvaluationID:    correction.EvaluationID,
			PreviousGrade:   correction.PreviousGrade,
			PreviousComment: correction.PreviousComment,
			Grade:           correction.Grade,
			Comment:         correction.Comment,
			CorrectedBy:     correction.CorrectedBy,
			Reason:          correction.Reason,
			CorrectedAt:     correction.CorrectedAt,
		})
	}
	return responses
}
