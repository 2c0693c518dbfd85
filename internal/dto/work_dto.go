package dto

import (
	"time"

	"github.com/noah-isme/eduwork-api/internal/deadline"
	"github.com/noah-isme/eduwork-api/internal/models"
)

// WorkCreateRequest is the payload used by staff to define a work.
type WorkCreateRequest struct {
	Title           string    `json:"title" validate:"required,max=255"`
	Instructions    string    `json:"instructions" validate:"omitempty,max=20000"`
	InstructionFile string    `json:"instruction_file" validate:"omitempty,max=512"`
	Kind            string    `json:"kind" validate:"required"`
	GroupMode       string    `json:"group_mode"`
	StartDate       time.Time `json:"start_date" validate:"required"`
	DueDate         time.Time `json:"due_date" validate:"required"`
	CourseSpaceID   uint      `json:"course_space_id" validate:"required,gt=0"`
}

// WorkUpdateRequest carries optional updates. Kind and GroupMode are accepted
// only to reject attempts to change them.
type WorkUpdateRequest struct {
	Title           *string    `json:"title" validate:"omitempty,max=255"`
	Instructions    *string    `json:"instructions" validate:"omitempty,max=20000"`
	InstructionFile *string    `json:"instruction_file" validate:"omitempty,max=512"`
	StartDate       *time.Time `json:"start_date"`
	DueDate         *time.Time `json:"due_date"`
	Kind            *string    `json:"kind"`
	GroupMode       *string    `json:"group_mode"`
}

// WorkListRequest describes query string filters for listing works.
type WorkListRequest struct {
	CourseSpaceID uint   `query:"course_space_id"`
	Kind          string `query:"kind"`
	Search        string `query:"search"`
	Sort          string `query:"sort"`
	Page          int    `query:"page"`
	PageSize      int    `query:"page_size" validate:"omitempty,max=100"`
}

// DeadlineResponse exposes the urgency classification of a due date.
type DeadlineResponse struct {
	DueDate       time.Time     `json:"due_date"`
	DaysRemaining int           `json:"days_remaining"`
	Tier          deadline.Tier `json:"tier"`
	Overdue       bool          `json:"overdue"`
}

// NewDeadlineResponse classifies due against now.
func NewDeadlineResponse(due, now time.Time) DeadlineResponse {
	classification := deadline.Classify(due, now)
	return DeadlineResponse{
		DueDate:       due,
		DaysRemaining: classification.DaysRemaining,
		Tier:          classification.Tier,
		Overdue:       classification.Overdue(),
	}
}

// WorkResponse is returned to API clients when viewing works.
type WorkResponse struct {
	ID              uint             `json:"id"`
	Title           string           `json:"title"`
	Instructions    string           `json:"instructions"`
	InstructionFile string           `json:"instruction_file,omitempty"`
	Kind            models.WorkKind  `json:"kind"`
	GroupMode       models.GroupMode `json:"group_mode"`
	StartDate       time.Time        `json:"start_date"`
	DueDate         time.Time        `json:"due_date"`
	CourseSpaceID   uint             `json:"course_space_id"`
	CourseName      string           `json:"course_name"`
	CreatedBy       uint             `json:"created_by"`
	Deadline        DeadlineResponse `json:"deadline"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

// NewWorkResponse converts a work model into its response, classifying the deadline at now.
func NewWorkResponse(work models.Work, now time.Time) WorkResponse {
	return WorkResponse{
		ID:              work.ID,
		Title:           work.Title,
		Instructions:    work.Instructions,
		InstructionFile: work.InstructionFile,
		Kind:            work.Kind,
		GroupMode:       work.GroupMode,
		StartDate:       work.StartDate,
		DueDate:         work.DueDate,
		CourseSpaceID:   work.CourseSpaceID,
		CourseName:      work.CourseSpace.Name,
		CreatedBy:       work.CreatedBy,
		Deadline:        NewDeadlineResponse(work.DueDate, now),
		CreatedAt:       work.CreatedAt,
		UpdatedAt:       work.UpdatedAt,
	}
}

// WorkListResponse wraps paginated works.
type WorkListResponse struct {
	Items      []WorkResponse `json:"items"`
	Pagination PaginationMeta `json:"pagination"`
}

// WorkProgressResponse counts how far the distributed targets of a work went.
type WorkProgressResponse struct {
	WorkID      uint            `json:"work_id"`
	Kind        models.WorkKind `json:"kind"`
	Distributed int64           `json:"distributed"`
	Submitted   int64           `json:"submitted"`
	Evaluated   int64           `json:"evaluated"`
	Late        int64           `json:"late"`
	Pending     int64           `json:"pending"`
}
