package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/noah-isme/eduwork-api/internal/dto"
	"github.com/noah-isme/eduwork-api/internal/events"
	"github.com/noah-isme/eduwork-api/internal/models"
	"github.com/noah-isme/eduwork-api/internal/observability"
	"github.com/noah-isme/eduwork-api/internal/repository"
)

// SubmissionPolicy holds the platform rules applied to deliveries.
type SubmissionPolicy struct {
	// AllowLate accepts submissions after the due date, flagging them late.
	AllowLate bool
}

// SubmissionService records deliveries against assignments and groups.
type SubmissionService interface {
	SubmitIndividual(ctx context.Context, actor Actor, assignmentID uint, payload dto.SubmitRequest) (dto.SubmissionResponse, error)
	SubmitGroup(ctx context.Context, actor Actor, groupID uint, payload dto.SubmitRequest) (dto.SubmissionResponse, error)
	Get(ctx context.Context, actor Actor, id uint) (dto.SubmissionResponse, error)
	ListByWork(ctx context.Context, actor Actor, workID uint) ([]dto.SubmissionResponse, error)
	Mine(ctx context.Context, actor Actor) ([]dto.SubmissionResponse, error)
}

type submissionService struct {
	works       repository.WorkRepository
	assignments repository.AssignmentRepository
	groups      repository.GroupRepository
	submissions repository.SubmissionRepository
	validator   *validator.Validate
	policy      SubmissionPolicy
	publisher   events.Publisher
	activity    ActivityRecorder
	logger      zerolog.Logger
	now         func() time.Time
}

// NewSubmissionService constructs the submission tracker.
func NewSubmissionService(
	works repository.WorkRepository,
	assignments repository.AssignmentRepository,
	groups repository.GroupRepository,
	submissions repository.SubmissionRepository,
	validate *validator.Validate,
	policy SubmissionPolicy,
	publisher events.Publisher,
	activity ActivityRecorder,
	logger zerolog.Logger,
) SubmissionService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &submissionService{
		works:       works,
		assignments: assignments,
		groups:      groups,
		submissions: submissions,
		validator:   validate,
		policy:      policy,
		publisher:   publisher,
		activity:    activity,
		logger:      logger.With().Str("component", "submission_service").Logger(),
		now:         time.Now,
	}
}

func (s *submissionService) SubmitIndividual(ctx context.Context, actor Actor, assignmentID uint, payload dto.SubmitRequest) (dto.SubmissionResponse, error) {
	tracer := otel.Tracer(tracerPrefix + "submission")
	ctx, span := tracer.Start(ctx, "submission.submit")
	span.SetAttributes(
		attribute.String("submission.target_kind", string(models.TargetIndividual)),
		attribute.Int64("submission.target_id", int64(assignmentID)),
		attribute.Int64("submission.actor_id", int64(actor.ID)),
	)
	defer span.End()

	assignment, err := s.assignments.GetByID(ctx, assignmentID)
	if err != nil {
		return dto.SubmissionResponse{}, fail(span, "submission.submit", lookupError("assignment", err))
	}
	if !actor.IsStudent() || assignment.StudentID != actor.ID {
		return dto.SubmissionResponse{}, fail(span, "submission.submit", newError(KindNotAuthorized, "only the assigned student can submit this work"))
	}

	response, err := s.submit(ctx, actor, assignment.Work, models.AssignmentTarget{AssignmentID: assignment.ID}, payload)
	if err != nil {
		return dto.SubmissionResponse{}, fail(span, "submission.submit", err)
	}
	return response, nil
}

func (s *submissionService) SubmitGroup(ctx context.Context, actor Actor, groupID uint, payload dto.SubmitRequest) (dto.SubmissionResponse, error) {
	tracer := otel.Tracer(tracerPrefix + "submission")
	ctx, span := tracer.Start(ctx, "submission.submit")
	span.SetAttributes(
		attribute.String("submission.target_kind", string(models.TargetGroup)),
		attribute.Int64("submission.target_id", int64(groupID)),
		attribute.Int64("submission.actor_id", int64(actor.ID)),
	)
	defer span.End()

	group, err := s.groups.GetByID(ctx, groupID)
	if err != nil {
		return dto.SubmissionResponse{}, fail(span, "submission.submit", lookupError("group", err))
	}
	if !actor.IsStudent() || !group.HasMember(actor.ID) {
		return dto.SubmissionResponse{}, fail(span, "submission.submit", newError(KindNotAuthorized, "only members of the group can submit for it"))
	}

	work, err := s.works.GetByID(ctx, group.WorkID)
	if err != nil {
		return dto.SubmissionResponse{}, fail(span, "submission.submit", lookupError("work", err))
	}

	response, err := s.submit(ctx, actor, work, models.GroupTarget{GroupID: group.ID}, payload)
	if err != nil {
		return dto.SubmissionResponse{}, fail(span, "submission.submit", err)
	}
	return response, nil
}

func (s *submissionService) submit(ctx context.Context, actor Actor, work models.Work, target models.Target, payload dto.SubmitRequest) (dto.SubmissionResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.SubmissionResponse{}, err
	}

	content := plainText(payload.Content)
	fileRef := strings.TrimSpace(payload.FileRef)
	if content == "" && fileRef == "" {
		return dto.SubmissionResponse{}, ErrEmptySubmission
	}

	if work.DueDate.IsZero() {
		return dto.SubmissionResponse{}, newError(KindInvalidWorkDefinition, "work has no due date yet")
	}

	now := s.now().UTC()
	late := work.IsPastDue(now)

	resubmission := false
	saved, err := s.submissions.SaveForTarget(ctx, target, func(submission *models.Submission, exists bool) error {
		if exists && submission.IsEvaluated() {
			return ErrAlreadyEvaluated
		}
		if late && !s.policy.AllowLate {
			return ErrDeadlinePassedPolicy
		}
		resubmission = exists
		submission.WorkID = work.ID
		submission.Content = content
		submission.FileRef = fileRef
		submission.SubmittedBy = actor.ID
		submission.SubmittedAt = now
		submission.Late = late
		return nil
	})
	if err != nil {
		if _, ok := KindOf(err); ok {
			return dto.SubmissionResponse{}, err
		}
		return dto.SubmissionResponse{}, fmt.Errorf("save submission: %w", err)
	}

	observability.LifecycleOperations().WithLabelValues("submission.submit").Inc()

	event := events.New(events.SubmissionSubmitted, now)
	event.ActorID = actor.ID
	event.WorkID = work.ID
	event.SubmissionID = saved.ID
	event.StudentIDs = submitterIDs(saved)
	event.Late = late
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Warn().Err(err).Uint("submission_id", saved.ID).Msg("failed to publish submission event")
	}

	recordActivity(ctx, s.activity, s.logger, actor, "submission.submitted", "submission", saved.ID, map[string]interface{}{
		"work_id":      work.ID,
		"target_kind":  string(target.Kind()),
		"target_id":    target.ID(),
		"late":         late,
		"resubmission": resubmission,
	})
	s.logger.Info().
		Uint("submission_id", saved.ID).
		Uint("work_id", work.ID).
		Str("target_kind", string(target.Kind())).
		Bool("late", late).
		Bool("resubmission", resubmission).
		Msg("submission recorded")

	return dto.NewSubmissionResponse(saved, now), nil
}

func (s *submissionService) Get(ctx context.Context, actor Actor, id uint) (dto.SubmissionResponse, error) {
	submission, err := s.submissions.GetByID(ctx, id)
	if err != nil {
		return dto.SubmissionResponse{}, lookupError("submission", err)
	}
	if !canView(actor, submission) {
		return dto.SubmissionResponse{}, newError(KindNotAuthorized, "not allowed to view this submission")
	}
	return dto.NewSubmissionResponse(submission, s.now()), nil
}

func (s *submissionService) ListByWork(ctx context.Context, actor Actor, workID uint) ([]dto.SubmissionResponse, error) {
	if !actor.IsStaff() {
		return nil, newError(KindNotAuthorized, "only staff can list the submissions of a work")
	}
	if _, err := s.works.GetByID(ctx, workID); err != nil {
		return nil, lookupError("work", err)
	}

	submissions, err := s.submissions.ListByWork(ctx, workID)
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	return dto.NewSubmissionResponseSlice(submissions, s.now()), nil
}

func (s *submissionService) Mine(ctx context.Context, actor Actor) ([]dto.SubmissionResponse, error) {
	if !actor.IsStudent() {
		return nil, newError(KindNotAuthorized, "only students have submissions")
	}

	submissions, err := s.submissions.ListForStudent(ctx, actor.ID)
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	return dto.NewSubmissionResponseSlice(submissions, s.now()), nil
}
