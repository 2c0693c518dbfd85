package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
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

// WorkService manages the definition of works.
type WorkService interface {
	Create(ctx context.Context, actor Actor, payload dto.WorkCreateRequest) (dto.WorkResponse, error)
	Get(ctx context.Context, id uint) (dto.WorkResponse, error)
	List(ctx context.Context, req dto.WorkListRequest) (dto.WorkListResponse, error)
	Update(ctx context.Context, actor Actor, id uint, payload dto.WorkUpdateRequest) (dto.WorkResponse, error)
	Delete(ctx context.Context, actor Actor, id uint) error
	Deadline(ctx context.Context, id uint) (dto.DeadlineResponse, error)
	Progress(ctx context.Context, actor Actor, id uint) (dto.WorkProgressResponse, error)
}

type workService struct {
	works       repository.WorkRepository
	groups      repository.GroupRepository
	assignments repository.AssignmentRepository
	submissions repository.SubmissionRepository
	courses     repository.EnrollmentRepository
	validator   *validator.Validate
	activity    ActivityRecorder
	logger      zerolog.Logger
	now         func() time.Time
}

// NewWorkService constructs the work service.
func NewWorkService(
	works repository.WorkRepository,
	groups repository.GroupRepository,
	assignments repository.AssignmentRepository,
	submissions repository.SubmissionRepository,
	courses repository.EnrollmentRepository,
	validate *validator.Validate,
	activity ActivityRecorder,
	logger zerolog.Logger,
) WorkService {
	return &workService{
		works:       works,
		groups:      groups,
		assignments: assignments,
		submissions: submissions,
		courses:     courses,
		validator:   validate,
		activity:    activity,
		logger:      logger.With().Str("component", "work_service").Logger(),
		now:         time.Now,
	}
}

func (s *workService) Create(ctx context.Context, actor Actor, payload dto.WorkCreateRequest) (dto.WorkResponse, error) {
	if !actor.IsStaff() {
		return dto.WorkResponse{}, newError(KindNotAuthorized, "only staff can create works")
	}
	if err := s.validator.Struct(payload); err != nil {
		return dto.WorkResponse{}, err
	}

	title, err := cleanLabel("title", payload.Title)
	if err != nil {
		return dto.WorkResponse{}, err
	}

	work := models.Work{
		Title:           title,
		Instructions:    plainText(payload.Instructions),
		InstructionFile: strings.TrimSpace(payload.InstructionFile),
		Kind:            models.ParseWorkKind(payload.Kind),
		GroupMode:       models.ParseGroupMode(payload.GroupMode),
		StartDate:       payload.StartDate.UTC(),
		DueDate:         payload.DueDate.UTC(),
		CourseSpaceID:   payload.CourseSpaceID,
		CreatedBy:       actor.ID,
	}
	if err := validateWorkDefinition(work); err != nil {
		return dto.WorkResponse{}, err
	}

	if _, err := s.courses.GetCourseSpace(ctx, payload.CourseSpaceID); err != nil {
		return dto.WorkResponse{}, lookupError("course space", err)
	}

	if err := s.works.Create(ctx, &work); err != nil {
		return dto.WorkResponse{}, fmt.Errorf("create work: %w", err)
	}

	created, err := s.works.GetByID(ctx, work.ID)
	if err != nil {
		return dto.WorkResponse{}, lookupError("work", err)
	}

	observability.LifecycleOperations().WithLabelValues("work.create").Inc()
	recordActivity(ctx, s.activity, s.logger, actor, "work.created", "work", created.ID, map[string]interface{}{
		"kind":            string(created.Kind),
		"group_mode":      string(created.GroupMode),
		"course_space_id": created.CourseSpaceID,
	})
	s.logger.Info().Uint("work_id", created.ID).Str("kind", string(created.Kind)).Msg("work created")

	return dto.NewWorkResponse(created, s.now()), nil
}

func (s *workService) Get(ctx context.Context, id uint) (dto.WorkResponse, error) {
	work, err := s.works.GetByID(ctx, id)
	if err != nil {
		return dto.WorkResponse{}, lookupError("work", err)
	}
	return dto.NewWorkResponse(work, s.now()), nil
}

func (s *workService) List(ctx context.Context, req dto.WorkListRequest) (dto.WorkListResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.WorkListResponse{}, err
	}

	filter := repository.WorkFilter{
		Search:   strings.TrimSpace(req.Search),
		Sort:     req.Sort,
		Page:     req.Page,
		PageSize: req.PageSize,
	}
	if req.CourseSpaceID > 0 {
		filter.CourseSpaceID = &req.CourseSpaceID
	}
	if strings.TrimSpace(req.Kind) != "" {
		kind := models.ParseWorkKind(req.Kind)
		if !kind.IsValid() {
			return dto.WorkListResponse{}, newError(KindInvalidWorkDefinition, "unknown work kind %q", req.Kind)
		}
		filter.Kind = &kind
	}

	works, total, err := s.works.List(ctx, filter)
	if err != nil {
		return dto.WorkListResponse{}, fmt.Errorf("list works: %w", err)
	}

	now := s.now()
	items := make([]dto.WorkResponse, 0, len(works))
	for _, work := range works {
		items = append(items, dto.NewWorkResponse(work, now))
	}

	return dto.WorkListResponse{Items: items, Pagination: paginationMeta(req.Page, req.PageSize, total)}, nil
}

func (s *workService) Update(ctx context.Context, actor Actor, id uint, payload dto.WorkUpdateRequest) (dto.WorkResponse, error) {
	if !actor.IsStaff() {
		return dto.WorkResponse{}, newError(KindNotAuthorized, "only staff can edit works")
	}
	if err := s.validator.Struct(payload); err != nil {
		return dto.WorkResponse{}, err
	}

	var changed []string
	updated, err := s.works.Mutate(ctx, id, func(work *models.Work, submitted bool) error {
		if payload.Kind != nil && models.ParseWorkKind(*payload.Kind) != work.Kind {
			return newError(KindWorkFrozen, "work kind cannot change after creation")
		}
		if payload.GroupMode != nil && models.ParseGroupMode(*payload.GroupMode) != work.GroupMode {
			return newError(KindWorkFrozen, "group mode cannot change after creation")
		}

		structural := payload.StartDate != nil || payload.DueDate != nil || payload.InstructionFile != nil
		if structural && submitted {
			return newError(KindWorkFrozen, "work already has submissions; only title and instructions can change")
		}

		if payload.Title != nil {
			title, err := cleanLabel("title", *payload.Title)
			if err != nil {
				return err
			}
			work.Title = title
			changed = append(changed, "title")
		}
		if payload.Instructions != nil {
			work.Instructions = plainText(*payload.Instructions)
			changed = append(changed, "instructions")
		}
		if payload.InstructionFile != nil {
			work.InstructionFile = strings.TrimSpace(*payload.InstructionFile)
			changed = append(changed, "instruction_file")
		}
		if payload.StartDate != nil {
			work.StartDate = payload.StartDate.UTC()
			changed = append(changed, "start_date")
		}
		if payload.DueDate != nil {
			work.DueDate = payload.DueDate.UTC()
			changed = append(changed, "due_date")
		}

		return validateWorkDefinition(*work)
	})
	if err != nil {
		if _, ok := KindOf(err); ok {
			return dto.WorkResponse{}, err
		}
		return dto.WorkResponse{}, lookupError("work", err)
	}

	observability.LifecycleOperations().WithLabelValues("work.update").Inc()
	recordActivity(ctx, s.activity, s.logger, actor, "work.updated", "work", updated.ID, map[string]interface{}{
		"fields": changed,
	})
	s.logger.Info().Uint("work_id", updated.ID).Strs("fields", changed).Msg("work updated")

	return dto.NewWorkResponse(updated, s.now()), nil
}

func (s *workService) Delete(ctx context.Context, actor Actor, id uint) error {
	if !actor.IsStaff() {
		return newError(KindNotAuthorized, "only staff can delete works")
	}

	if err := s.works.DeleteUnsubmitted(ctx, id); err != nil {
		if errors.Is(err, repository.ErrTargetSubmitted) {
			return newError(KindWorkFrozen, "work already has submissions and cannot be deleted")
		}
		return lookupError("work", err)
	}

	observability.LifecycleOperations().WithLabelValues("work.delete").Inc()
	recordActivity(ctx, s.activity, s.logger, actor, "work.deleted", "work", id, nil)
	s.logger.Info().Uint("work_id", id).Msg("work deleted")
	return nil
}

func (s *workService) Deadline(ctx context.Context, id uint) (dto.DeadlineResponse, error) {
	work, err := s.works.GetByID(ctx, id)
	if err != nil {
		return dto.DeadlineResponse{}, lookupError("work", err)
	}
	return dto.NewDeadlineResponse(work.DueDate, s.now()), nil
}

func (s *workService) Progress(ctx context.Context, actor Actor, id uint) (dto.WorkProgressResponse, error) {
	if !actor.IsStaff() {
		return dto.WorkProgressResponse{}, newError(KindNotAuthorized, "only staff can follow work progress")
	}

	tracer := otel.Tracer(tracerPrefix + "work")
	ctx, span := tracer.Start(ctx, "work.progress")
	span.SetAttributes(attribute.Int64("work.id", int64(id)))
	defer span.End()

	work, err := s.works.GetByID(ctx, id)
	if err != nil {
		return dto.WorkProgressResponse{}, fail(span, "work.progress", lookupError("work", err))
	}

	var distributed int64
	if work.IsCollective() {
		groups, err := s.groups.ListByWork(ctx, work.ID)
		if err != nil {
			return dto.WorkProgressResponse{}, fail(span, "work.progress", fmt.Errorf("list groups: %w", err))
		}
		distributed = int64(len(groups))
	} else {
		distributed, err = s.assignments.CountByWork(ctx, work.ID)
		if err != nil {
			return dto.WorkProgressResponse{}, fail(span, "work.progress", fmt.Errorf("count assignments: %w", err))
		}
	}

	counts, err := s.submissions.CountByWork(ctx, work.ID)
	if err != nil {
		return dto.WorkProgressResponse{}, fail(span, "work.progress", fmt.Errorf("count submissions: %w", err))
	}

	pending := distributed - counts.Submitted
	if pending < 0 {
		pending = 0
	}

	span.SetAttributes(
		attribute.Int64("work.distributed", distributed),
		attribute.Int64("work.submitted", counts.Submitted),
	)

	return dto.WorkProgressResponse{
		WorkID:      work.ID,
		Kind:        work.Kind,
		Distributed: distributed,
		Submitted:   counts.Submitted,
		Evaluated:   counts.Evaluated,
		Late:        counts.Late,
		Pending:     pending,
	}, nil
}

func validateWorkDefinition(work models.Work) error {
	if work.Title == "" {
		return newError(KindInvalidWorkDefinition, "work title must not be empty")
	}
	if !work.Kind.IsValid() {
		return newError(KindInvalidWorkDefinition, "work kind must be INDIVIDUAL or COLLECTIVE")
	}
	if !work.GroupMode.Compatible(work.Kind) {
		return newError(KindInvalidWorkDefinition, "group mode %s is not allowed for %s work", work.GroupMode, work.Kind)
	}
	if work.DueDate.IsZero() {
		return newError(KindInvalidWorkDefinition, "work due date is required")
	}
	if work.DueDate.Before(work.StartDate) {
		return newError(KindInvalidWorkDefinition, "due date must not be before start date")
	}
	return nil
}
