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
	"gorm.io/gorm"

	"github.com/noah-isme/eduwork-api/internal/dto"
	"github.com/noah-isme/eduwork-api/internal/models"
	"github.com/noah-isme/eduwork-api/internal/observability"
	"github.com/noah-isme/eduwork-api/internal/repository"
)

// GroupService forms and edits the groups of collective works.
type GroupService interface {
	CreateGroup(ctx context.Context, actor Actor, workID uint, payload dto.GroupCreateRequest) (dto.GroupResponse, error)
	DeleteGroup(ctx context.Context, actor Actor, groupID uint) error
	ListGroups(ctx context.Context, workID uint) ([]dto.GroupResponse, error)
	AddMember(ctx context.Context, actor Actor, groupID, studentID uint) (dto.GroupResponse, error)
	RemoveMember(ctx context.Context, actor Actor, groupID, studentID uint) (dto.GroupResponse, error)
}

type groupService struct {
	works       repository.WorkRepository
	groups      repository.GroupRepository
	submissions repository.SubmissionRepository
	enrollments repository.EnrollmentRepository
	validator   *validator.Validate
	activity    ActivityRecorder
	logger      zerolog.Logger
	now         func() time.Time
}

// NewGroupService constructs the group formation service.
func NewGroupService(
	works repository.WorkRepository,
	groups repository.GroupRepository,
	submissions repository.SubmissionRepository,
	enrollments repository.EnrollmentRepository,
	validate *validator.Validate,
	activity ActivityRecorder,
	logger zerolog.Logger,
) GroupService {
	return &groupService{
		works:       works,
		groups:      groups,
		submissions: submissions,
		enrollments: enrollments,
		validator:   validate,
		activity:    activity,
		logger:      logger.With().Str("component", "group_service").Logger(),
		now:         time.Now,
	}
}

func (s *groupService) CreateGroup(ctx context.Context, actor Actor, workID uint, payload dto.GroupCreateRequest) (dto.GroupResponse, error) {
	tracer := otel.Tracer(tracerPrefix + "group")
	ctx, span := tracer.Start(ctx, "group.create")
	span.SetAttributes(
		attribute.Int64("group.work_id", int64(workID)),
		attribute.Int64("group.actor_id", int64(actor.ID)),
	)
	defer span.End()

	work, err := s.works.GetByID(ctx, workID)
	if err != nil {
		return dto.GroupResponse{}, fail(span, "group.create", lookupError("work", err))
	}
	if err := authorizeGroupManagement(actor, work); err != nil {
		return dto.GroupResponse{}, fail(span, "group.create", err)
	}
	if err := s.validator.Struct(payload); err != nil {
		return dto.GroupResponse{}, fail(span, "group.create", err)
	}

	if !work.IsCollective() {
		return dto.GroupResponse{}, fail(span, "group.create", ErrInvalidWorkKind)
	}

	name, err := cleanLabel("group name", payload.Name)
	if err != nil {
		return dto.GroupResponse{}, fail(span, "group.create", err)
	}
	if name == "" {
		return dto.GroupResponse{}, fail(span, "group.create", newError(KindInvalidInput, "group name must not be empty"))
	}
	exists, err := s.groups.NameExists(ctx, work.ID, name)
	if err != nil {
		return dto.GroupResponse{}, fail(span, "group.create", fmt.Errorf("check group name: %w", err))
	}
	if exists {
		return dto.GroupResponse{}, fail(span, "group.create", newError(KindDuplicateGroupName, "group name %q already used for this work", name))
	}

	if len(payload.MemberIDs) == 0 {
		return dto.GroupResponse{}, fail(span, "group.create", ErrEmptyGroup)
	}
	if id, dup := firstDuplicate(payload.MemberIDs); dup {
		return dto.GroupResponse{}, fail(span, "group.create", newError(KindStudentAlreadyGrouped, "student %d is listed twice", id))
	}
	if actor.IsStudent() && !containsID(payload.MemberIDs, actor.ID) {
		return dto.GroupResponse{}, fail(span, "group.create", newError(KindNotAuthorized, "students can only form groups they belong to"))
	}

	if err := s.ensureUngrouped(ctx, work.ID, payload.MemberIDs); err != nil {
		return dto.GroupResponse{}, fail(span, "group.create", err)
	}
	if err := s.ensureEnrolled(ctx, work.CourseSpaceID, payload.MemberIDs); err != nil {
		return dto.GroupResponse{}, fail(span, "group.create", err)
	}

	group := models.Group{
		WorkID:    work.ID,
		Name:      name,
		Mode:      work.GroupMode,
		CreatedBy: actor.ID,
	}
	if err := s.groups.CreateWithMembers(ctx, &group, payload.MemberIDs); err != nil {
		return dto.GroupResponse{}, fail(span, "group.create", mapGroupWriteError(err, name))
	}

	span.SetAttributes(attribute.Int64("group.id", int64(group.ID)), attribute.Int("group.members", len(group.Members)))
	observability.LifecycleOperations().WithLabelValues("group.create").Inc()
	recordActivity(ctx, s.activity, s.logger, actor, "group.created", "group", group.ID, map[string]interface{}{
		"work_id":    work.ID,
		"name":       group.Name,
		"member_ids": group.MemberIDs(),
	})
	s.logger.Info().Uint("group_id", group.ID).Uint("work_id", work.ID).Int("members", len(group.Members)).Msg("group created")

	return dto.NewGroupResponse(group, nil), nil
}

func (s *groupService) DeleteGroup(ctx context.Context, actor Actor, groupID uint) error {
	group, work, err := s.loadGroup(ctx, groupID)
	if err != nil {
		return err
	}
	if err := authorizeGroupEdit(actor, work, group, 0); err != nil {
		return err
	}

	if err := s.groups.DeleteUnsubmitted(ctx, groupID); err != nil {
		if errors.Is(err, repository.ErrTargetSubmitted) {
			return ErrGroupHasSubmission
		}
		return lookupError("group", err)
	}

	observability.LifecycleOperations().WithLabelValues("group.delete").Inc()
	recordActivity(ctx, s.activity, s.logger, actor, "group.deleted", "group", groupID, map[string]interface{}{
		"work_id": work.ID,
		"name":    group.Name,
	})
	s.logger.Info().Uint("group_id", groupID).Msg("group deleted")
	return nil
}

func (s *groupService) ListGroups(ctx context.Context, workID uint) ([]dto.GroupResponse, error) {
	if _, err := s.works.GetByID(ctx, workID); err != nil {
		return nil, lookupError("work", err)
	}

	groups, err := s.groups.ListByWork(ctx, workID)
	if err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}

	submissions, err := s.submissions.ListByWork(ctx, workID)
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	targets := indexSubmissions(submissions)

	responses := make([]dto.GroupResponse, 0, len(groups))
	for _, group := range groups {
		responses = append(responses, dto.NewGroupResponse(group, targets.groups[group.ID]))
	}
	return responses, nil
}

func (s *groupService) AddMember(ctx context.Context, actor Actor, groupID, studentID uint) (dto.GroupResponse, error) {
	group, work, err := s.loadGroup(ctx, groupID)
	if err != nil {
		return dto.GroupResponse{}, err
	}
	if err := authorizeGroupEdit(actor, work, group, studentID); err != nil {
		return dto.GroupResponse{}, err
	}
	if studentID == 0 {
		return dto.GroupResponse{}, newError(KindInvalidInput, "student identifier is required")
	}

	if err := s.ensureUngrouped(ctx, work.ID, []uint{studentID}); err != nil {
		return dto.GroupResponse{}, err
	}
	if err := s.ensureEnrolled(ctx, work.CourseSpaceID, []uint{studentID}); err != nil {
		return dto.GroupResponse{}, err
	}

	updated, err := s.groups.AddMember(ctx, groupID, studentID)
	if err != nil {
		return dto.GroupResponse{}, mapGroupWriteError(err, group.Name)
	}

	observability.LifecycleOperations().WithLabelValues("group.add_member").Inc()
	recordActivity(ctx, s.activity, s.logger, actor, "group.member_added", "group", groupID, map[string]interface{}{
		"student_id": studentID,
	})
	s.logger.Info().Uint("group_id", groupID).Uint("student_id", studentID).Msg("group member added")

	return dto.NewGroupResponse(updated, nil), nil
}

func (s *groupService) RemoveMember(ctx context.Context, actor Actor, groupID, studentID uint) (dto.GroupResponse, error) {
	group, work, err := s.loadGroup(ctx, groupID)
	if err != nil {
		return dto.GroupResponse{}, err
	}
	if err := authorizeGroupEdit(actor, work, group, 0); err != nil {
		return dto.GroupResponse{}, err
	}

	updated, err := s.groups.RemoveMember(ctx, groupID, studentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.GroupResponse{}, newError(KindNotFound, "student %d is not a member of this group", studentID)
		}
		return dto.GroupResponse{}, mapGroupWriteError(err, group.Name)
	}

	observability.LifecycleOperations().WithLabelValues("group.remove_member").Inc()
	recordActivity(ctx, s.activity, s.logger, actor, "group.member_removed", "group", groupID, map[string]interface{}{
		"student_id": studentID,
	})
	s.logger.Info().Uint("group_id", groupID).Uint("student_id", studentID).Msg("group member removed")

	return dto.NewGroupResponse(updated, nil), nil
}

func (s *groupService) loadGroup(ctx context.Context, groupID uint) (models.Group, models.Work, error) {
	group, err := s.groups.GetByID(ctx, groupID)
	if err != nil {
		return models.Group{}, models.Work{}, lookupError("group", err)
	}
	work, err := s.works.GetByID(ctx, group.WorkID)
	if err != nil {
		return models.Group{}, models.Work{}, lookupError("work", err)
	}
	return group, work, nil
}

func (s *groupService) ensureUngrouped(ctx context.Context, workID uint, studentIDs []uint) error {
	grouped, err := s.groups.GroupedStudents(ctx, workID, studentIDs)
	if err != nil {
		return fmt.Errorf("check group memberships: %w", err)
	}
	if len(grouped) > 0 {
		return newError(KindStudentAlreadyGrouped, "student %d already belongs to a group for this work", grouped[0].StudentID)
	}
	return nil
}

func (s *groupService) ensureEnrolled(ctx context.Context, courseSpaceID uint, studentIDs []uint) error {
	missing, err := s.enrollments.NotEnrolled(ctx, courseSpaceID, studentIDs)
	if err != nil {
		return fmt.Errorf("check enrollments: %w", err)
	}
	if len(missing) > 0 {
		return newError(KindMembershipEligibility, "student %d is not enrolled in the course space of this work", missing[0])
	}
	return nil
}

// authorizeGroupManagement applies the formation mode: students form groups of
// STUDENT_DEFINED work, staff everything else.
func authorizeGroupManagement(actor Actor, work models.Work) error {
	if work.GroupMode == models.GroupModeStudentDefined {
		if actor.IsStudent() {
			return nil
		}
		return newError(KindNotAuthorized, "groups of this work are formed by students")
	}
	if actor.IsStaff() {
		return nil
	}
	return newError(KindNotAuthorized, "groups of this work are formed by staff")
}

// authorizeGroupEdit additionally limits students to groups they belong to;
// joinerID lets a student add themself to a group.
func authorizeGroupEdit(actor Actor, work models.Work, group models.Group, joinerID uint) error {
	if err := authorizeGroupManagement(actor, work); err != nil {
		return err
	}
	if actor.IsStudent() && !group.HasMember(actor.ID) && joinerID != actor.ID {
		return newError(KindNotAuthorized, "students can only edit groups they belong to")
	}
	return nil
}

func mapGroupWriteError(err error, name string) error {
	switch {
	case errors.Is(err, repository.ErrGroupNameTaken):
		return newError(KindDuplicateGroupName, "group name %q already used for this work", name)
	case errors.Is(err, repository.ErrStudentAlreadyGrouped):
		return ErrStudentAlreadyGrouped
	case errors.Is(err, repository.ErrTargetSubmitted):
		return ErrGroupHasSubmission
	case errors.Is(err, repository.ErrLastMember):
		return newError(KindEmptyGroup, "a group must keep at least one member")
	default:
		return lookupError("group", err)
	}
}

func containsID(ids []uint, id uint) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}
