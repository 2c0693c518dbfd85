package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/noah-isme/eduwork-api/internal/dto"
	"github.com/noah-isme/eduwork-api/internal/models"
	"github.com/noah-isme/eduwork-api/internal/observability"
	"github.com/noah-isme/eduwork-api/internal/repository"
)

// DistributionService binds works to students, individually or through groups.
type DistributionService interface {
	AssignIndividual(ctx context.Context, actor Actor, workID uint, payload dto.AssignIndividualRequest) (dto.DistributionResponse, error)
	AttachGroups(ctx context.Context, actor Actor, workID uint, payload dto.AttachGroupsRequest) (dto.DistributionResponse, error)
	RemoveAssignment(ctx context.Context, actor Actor, assignmentID uint) error
	ListAssignments(ctx context.Context, actor Actor, workID uint) ([]dto.AssignmentResponse, error)
	MyAssignments(ctx context.Context, actor Actor) ([]dto.AssignmentResponse, error)
}

type distributionService struct {
	works       repository.WorkRepository
	assignments repository.AssignmentRepository
	groups      repository.GroupRepository
	submissions repository.SubmissionRepository
	enrollments repository.EnrollmentRepository
	validator   *validator.Validate
	activity    ActivityRecorder
	logger      zerolog.Logger
	now         func() time.Time
}

// NewDistributionService constructs the assignment distributor.
func NewDistributionService(
	works repository.WorkRepository,
	assignments repository.AssignmentRepository,
	groups repository.GroupRepository,
	submissions repository.SubmissionRepository,
	enrollments repository.EnrollmentRepository,
	validate *validator.Validate,
	activity ActivityRecorder,
	logger zerolog.Logger,
) DistributionService {
	return &distributionService{
		works:       works,
		assignments: assignments,
		groups:      groups,
		submissions: submissions,
		enrollments: enrollments,
		validator:   validate,
		activity:    activity,
		logger:      logger.With().Str("component", "distribution_service").Logger(),
		now:         time.Now,
	}
}

func (s *distributionService) AssignIndividual(ctx context.Context, actor Actor, workID uint, payload dto.AssignIndividualRequest) (dto.DistributionResponse, error) {
	tracer := otel.Tracer(tracerPrefix + "distribution")
	ctx, span := tracer.Start(ctx, "distribution.assign_individual")
	span.SetAttributes(attribute.Int64("distribution.work_id", int64(workID)))
	defer span.End()

	if !actor.IsStaff() {
		return dto.DistributionResponse{}, fail(span, "distribution.assign", newError(KindNotAuthorized, "only staff can distribute works"))
	}

	work, err := s.works.GetByID(ctx, workID)
	if err != nil {
		return dto.DistributionResponse{}, fail(span, "distribution.assign", lookupError("work", err))
	}
	if work.Kind != models.WorkKindIndividual {
		return dto.DistributionResponse{}, fail(span, "distribution.assign", newError(KindWorkKindMismatch, "individual assignments require an INDIVIDUAL work"))
	}
	if err := s.validator.Struct(payload); err != nil {
		return dto.DistributionResponse{}, fail(span, "distribution.assign", err)
	}

	studentIDs := dedupe(payload.StudentIDs)
	missing, err := s.enrollments.NotEnrolled(ctx, work.CourseSpaceID, studentIDs)
	if err != nil {
		return dto.DistributionResponse{}, fail(span, "distribution.assign", fmt.Errorf("check enrollments: %w", err))
	}
	if len(missing) > 0 {
		return dto.DistributionResponse{}, fail(span, "distribution.assign", newError(KindMembershipEligibility, "student %d is not enrolled in the course space of this work", missing[0]))
	}

	assignments, created, err := s.assignments.EnsureForStudents(ctx, work.ID, studentIDs)
	if err != nil {
		return dto.DistributionResponse{}, fail(span, "distribution.assign", fmt.Errorf("create assignments: %w", err))
	}

	targets, err := s.submissionsByTarget(ctx, work.ID)
	if err != nil {
		return dto.DistributionResponse{}, fail(span, "distribution.assign", err)
	}

	responses := make([]dto.AssignmentResponse, 0, len(assignments))
	for _, assignment := range assignments {
		responses = append(responses, dto.NewAssignmentResponse(assignment, targets.assignments[assignment.ID]))
	}

	span.SetAttributes(attribute.Int64("distribution.created", created))
	observability.LifecycleOperations().WithLabelValues("distribution.assign").Inc()
	recordActivity(ctx, s.activity, s.logger, actor, "work.assigned", "work", work.ID, map[string]interface{}{
		"student_ids": studentIDs,
		"created":     created,
	})
	s.logger.Info().Uint("work_id", work.ID).Int64("created", created).Int("requested", len(studentIDs)).Msg("work assigned")

	return dto.DistributionResponse{
		WorkID:      work.ID,
		Kind:        work.Kind,
		Created:     created,
		Assignments: responses,
	}, nil
}

func (s *distributionService) AttachGroups(ctx context.Context, actor Actor, workID uint, payload dto.AttachGroupsRequest) (dto.DistributionResponse, error) {
	tracer := otel.Tracer(tracerPrefix + "distribution")
	ctx, span := tracer.Start(ctx, "distribution.attach_groups")
	span.SetAttributes(attribute.Int64("distribution.work_id", int64(workID)))
	defer span.End()

	if !actor.IsStaff() {
		return dto.DistributionResponse{}, fail(span, "distribution.attach", newError(KindNotAuthorized, "only staff can distribute works"))
	}

	work, err := s.works.GetByID(ctx, workID)
	if err != nil {
		return dto.DistributionResponse{}, fail(span, "distribution.attach", lookupError("work", err))
	}
	if work.Kind != models.WorkKindCollective {
		return dto.DistributionResponse{}, fail(span, "distribution.attach", newError(KindWorkKindMismatch, "groups can only be attached to a COLLECTIVE work"))
	}
	if err := s.validator.Struct(payload); err != nil {
		return dto.DistributionResponse{}, fail(span, "distribution.attach", err)
	}

	groupIDs := dedupe(payload.GroupIDs)
	groups, err := s.groups.ListByIDs(ctx, groupIDs)
	if err != nil {
		return dto.DistributionResponse{}, fail(span, "distribution.attach", fmt.Errorf("load groups: %w", err))
	}

	found := make(map[uint]models.Group, len(groups))
	for _, group := range groups {
		found[group.ID] = group
	}
	for _, id := range groupIDs {
		group, ok := found[id]
		if !ok {
			return dto.DistributionResponse{}, fail(span, "distribution.attach", newError(KindNotFound, "group %d not found", id))
		}
		if group.WorkID != work.ID {
			return dto.DistributionResponse{}, fail(span, "distribution.attach", newError(KindNotFound, "group %d is not part of work %d", id, work.ID))
		}
	}

	targets, err := s.submissionsByTarget(ctx, work.ID)
	if err != nil {
		return dto.DistributionResponse{}, fail(span, "distribution.attach", err)
	}

	responses := make([]dto.GroupResponse, 0, len(groupIDs))
	for _, id := range groupIDs {
		responses = append(responses, dto.NewGroupResponse(found[id], targets.groups[id]))
	}

	observability.LifecycleOperations().WithLabelValues("distribution.attach").Inc()
	s.logger.Info().Uint("work_id", work.ID).Int("groups", len(groupIDs)).Msg("groups attached")

	return dto.DistributionResponse{
		WorkID: work.ID,
		Kind:   work.Kind,
		Groups: responses,
	}, nil
}

func (s *distributionService) RemoveAssignment(ctx context.Context, actor Actor, assignmentID uint) error {
	if !actor.IsStaff() {
		return newError(KindNotAuthorized, "only staff can remove assignments")
	}

	assignment, err := s.assignments.GetByID(ctx, assignmentID)
	if err != nil {
		return lookupError("assignment", err)
	}

	if err := s.assignments.DeleteUnsubmitted(ctx, assignmentID); err != nil {
		if errors.Is(err, repository.ErrTargetSubmitted) {
			return ErrAssignmentHasSubmission
		}
		return lookupError("assignment", err)
	}

	observability.LifecycleOperations().WithLabelValues("distribution.remove").Inc()
	recordActivity(ctx, s.activity, s.logger, actor, "assignment.removed", "assignment", assignmentID, map[string]interface{}{
		"work_id":    assignment.WorkID,
		"student_id": assignment.StudentID,
	})
	s.logger.Info().Uint("assignment_id", assignmentID).Msg("assignment removed")
	return nil
}

func (s *distributionService) ListAssignments(ctx context.Context, actor Actor, workID uint) ([]dto.AssignmentResponse, error) {
	if !actor.IsStaff() {
		return nil, newError(KindNotAuthorized, "only staff can list the assignments of a work")
	}
	if _, err := s.works.GetByID(ctx, workID); err != nil {
		return nil, lookupError("work", err)
	}

	assignments, err := s.assignments.ListByWork(ctx, workID)
	if err != nil {
		return nil, fmt.Errorf("list assignments: %w", err)
	}

	targets, err := s.submissionsByTarget(ctx, workID)
	if err != nil {
		return nil, err
	}

	responses := make([]dto.AssignmentResponse, 0, len(assignments))
	for _, assignment := range assignments {
		responses = append(responses, dto.NewAssignmentResponse(assignment, targets.assignments[assignment.ID]))
	}
	return responses, nil
}

func (s *distributionService) MyAssignments(ctx context.Context, actor Actor) ([]dto.AssignmentResponse, error) {
	if !actor.IsStudent() {
		return nil, newError(KindNotAuthorized, "only students have assignments")
	}

	assignments, err := s.assignments.ListByStudent(ctx, actor.ID)
	if err != nil {
		return nil, fmt.Errorf("list assignments: %w", err)
	}

	submissions, err := s.submissions.ListForStudent(ctx, actor.ID)
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	targets := indexSubmissions(submissions)

	responses := make([]dto.AssignmentResponse, 0, len(assignments))
	for _, assignment := range assignments {
		responses = append(responses, dto.NewAssignmentResponse(assignment, targets.assignments[assignment.ID]))
	}
	return responses, nil
}

type submissionIndex struct {
	assignments map[uint]*models.Submission
	groups      map[uint]*models.Submission
}

func (s *distributionService) submissionsByTarget(ctx context.Context, workID uint) (submissionIndex, error) {
	submissions, err := s.submissions.ListByWork(ctx, workID)
	if err != nil {
		return submissionIndex{}, fmt.Errorf("list submissions: %w", err)
	}
	return indexSubmissions(submissions), nil
}

func indexSubmissions(submissions []models.Submission) submissionIndex {
	index := submissionIndex{
		assignments: make(map[uint]*models.Submission),
		groups:      make(map[uint]*models.Submission),
	}
	for i := range submissions {
		submission := &submissions[i]
		if submission.AssignmentID != nil {
			index.assignments[*submission.AssignmentID] = submission
		}
		if submission.GroupID != nil {
			index.groups[*submission.GroupID] = submission
		}
	}
	return index
}
