package dto

// CourseSeed describes one course space and its enrolled students.
type CourseSeed struct {
	Name       string `json:"name" validate:"required,max=255"`
	StudentIDs []uint `json:"student_ids" validate:"dive,gt=0"`
}

// CourseSeedRequest is the payload of the development seeding endpoint.
type CourseSeedRequest struct {
	Items []CourseSeed `json:"items" validate:"required,min=1,dive"`
}

// CourseSeedResponse reports what the seeding run changed.
type CourseSeedResponse struct {
	CourseSpaces int   `json:"course_spaces"`
	Enrollments  int64 `json:"enrollments"`
}
