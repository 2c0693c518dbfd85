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
	"github.com/noah-isme/eduwork-api/internal/events"
	"github.com/noah-isme/eduwork-api/internal/models"
	"github.com/noah-isme/eduwork-api/internal/observability"
	"github.com/noah-isme/eduwork-api/internal/repository"
)

// StatisticsInvalidator drops cached aggregates after grades change.
type StatisticsInvalidator interface {
	Invalidate(ctx context.Context) error
}

// EvaluationService grades submissions and applies director corrections.
type EvaluationService interface {
	Evaluate(ctx context.Context, actor Actor, payload dto.EvaluateRequest) (dto.EvaluationResponse, error)
	Correct(ctx context.Context, actor Actor, evaluationID uint, payload dto.CorrectRequest) (dto.EvaluationResponse, error)
	Get(ctx context.Context, actor Actor, id uint) (dto.EvaluationResponse, error)
	MyGrades(ctx context.Context, actor Actor) ([]dto.EvaluationResponse, error)
	Corrections(ctx context.Context, actor Actor, id uint) ([]dto.CorrectionResponse, error)
}

type evaluationService struct {
	evaluations repository.EvaluationRepository
	submissions repository.SubmissionRepository
	validator   *validator.Validate
	stats       StatisticsInvalidator
	publisher   events.Publisher
	activity    ActivityRecorder
	logger      zerolog.Logger
	now         func() time.Time
}

// NewEvaluationService constructs the evaluation engine.
func NewEvaluationService(
	evaluations repository.EvaluationRepository,
	submissions repository.SubmissionRepository,
	validate *validator.Validate,
	stats StatisticsInvalidator,
	publisher events.Publisher,
	activity ActivityRecorder,
	logger zerolog.Logger,
) EvaluationService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &evaluationService{
		evaluations: evaluations,
		submissions: submissions,
		validator:   validate,
		stats:       stats,
		publisher:   publisher,
		activity:    activity,
		logger:      logger.With().Str("component", "evaluation_service").Logger(),
		now:         time.Now,
	}
}

func (s *evaluationService) Evaluate(ctx context.Context, actor Actor, payload dto.EvaluateRequest) (dto.EvaluationResponse, error) {
	tracer := otel.Tracer(tracerPrefix + "evaluation")
	ctx, span := tracer.Start(ctx, "evaluation.create")
	span.SetAttributes(
		attribute.Int64("evaluation.submission_id", int64(payload.SubmissionID)),
		attribute.Int64("evaluation.actor_id", int64(actor.ID)),
	)
	defer span.End()

	if !actor.IsStaff() {
		return dto.EvaluationResponse{}, fail(span, "evaluation.create", newError(KindNotAuthorized, "only staff can evaluate submissions"))
	}
	if err := s.validator.Struct(payload); err != nil {
		return dto.EvaluationResponse{}, fail(span, "evaluation.create", err)
	}

	grade := *payload.Grade
	if !models.GradeInRange(grade) {
		return dto.EvaluationResponse{}, fail(span, "evaluation.create", ErrOutOfRange)
	}
	comment := plainText(payload.Comment)
	if comment == "" {
		return dto.EvaluationResponse{}, fail(span, "evaluation.create", ErrEmptyComment)
	}

	submission, err := s.submissions.GetByID(ctx, payload.SubmissionID)
	if err != nil {
		return dto.EvaluationResponse{}, fail(span, "evaluation.create", lookupError("submission", err))
	}
	if submission.IsEvaluated() {
		return dto.EvaluationResponse{}, fail(span, "evaluation.create", ErrAlreadyEvaluated)
	}

	now := s.now().UTC()
	evaluation := models.Evaluation{
		SubmissionID: submission.ID,
		Grade:        grade,
		Comment:      comment,
		EvaluatorID:  actor.ID,
		EvaluatedAt:  now,
	}
	if err := s.evaluations.Create(ctx, &evaluation); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return dto.EvaluationResponse{}, fail(span, "evaluation.create", ErrAlreadyEvaluated)
		}
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.EvaluationResponse{}, fail(span, "evaluation.create", lookupError("submission", err))
		}
		return dto.EvaluationResponse{}, fail(span, "evaluation.create", fmt.Errorf("create evaluation: %w", err))
	}

	span.SetAttributes(attribute.Int64("evaluation.id", int64(evaluation.ID)), attribute.Float64("evaluation.grade", grade))
	observability.LifecycleOperations().WithLabelValues("evaluation.create").Inc()

	s.afterGradeChange(ctx)
	event := events.New(events.EvaluationCreated, now)
	event.ActorID = actor.ID
	event.WorkID = submission.WorkID
	event.SubmissionID = submission.ID
	event.EvaluationID = evaluation.ID
	event.StudentIDs = submitterIDs(submission)
	event.Grade = &grade
	s.publish(ctx, event)

	recordActivity(ctx, s.activity, s.logger, actor, "evaluation.created", "evaluation", evaluation.ID, map[string]interface{}{
		"submission_id": submission.ID,
		"work_id":       submission.WorkID,
		"grade":         grade,
	})
	s.logger.Info().
		Uint("evaluation_id", evaluation.ID).
		Uint("submission_id", submission.ID).
		Float64("grade", grade).
		Msg("evaluation created")

	return dto.NewEvaluationResponse(evaluation), nil
}

func (s *evaluationService) Correct(ctx context.Context, actor Actor, evaluationID uint, payload dto.CorrectRequest) (dto.EvaluationResponse, error) {
	tracer := otel.Tracer(tracerPrefix + "evaluation")
	ctx, span := tracer.Start(ctx, "evaluation.correct")
	span.SetAttributes(
		attribute.Int64("evaluation.id", int64(evaluationID)),
		attribute.Int64("evaluation.actor_id", int64(actor.ID)),
	)
	defer span.End()

	if !actor.IsDirector() {
		return dto.EvaluationResponse{}, fail(span, "evaluation.correct", newError(KindNotAuthorized, "only a director can correct an evaluation"))
	}
	if err := s.validator.Struct(payload); err != nil {
		return dto.EvaluationResponse{}, fail(span, "evaluation.correct", err)
	}

	grade := *payload.Grade
	if !models.GradeInRange(grade) {
		return dto.EvaluationResponse{}, fail(span, "evaluation.correct", ErrOutOfRange)
	}
	reason := plainText(payload.Reason)
	if reason == "" {
		return dto.EvaluationResponse{}, fail(span, "evaluation.correct", ErrMissingReason)
	}
	comment := plainText(payload.Comment)

	now := s.now().UTC()
	var previous float64
	corrected, err := s.evaluations.ApplyCorrection(ctx, evaluationID, func(evaluation *models.Evaluation) (models.EvaluationCorrection, error) {
		newComment := comment
		if newComment == "" {
			newComment = evaluation.Comment
		}
		previous = evaluation.Grade
		record := models.EvaluationCorrection{
			PreviousGrade:   evaluation.Grade,
			PreviousComment: evaluation.Comment,
			Grade:           grade,
			Comment:         newComment,
			CorrectedBy:     actor.ID,
			Reason:          reason,
			CorrectedAt:     now,
		}
		evaluation.ApplyCorrection(grade, newComment, actor.ID, reason, now)
		return record, nil
	})
	if err != nil {
		return dto.EvaluationResponse{}, fail(span, "evaluation.correct", lookupError("evaluation", err))
	}

	span.SetAttributes(attribute.Float64("evaluation.previous_grade", previous), attribute.Float64("evaluation.grade", grade))
	observability.LifecycleOperations().WithLabelValues("evaluation.correct").Inc()

	s.afterGradeChange(ctx)
	event := events.New(events.EvaluationCorrected, now)
	event.ActorID = actor.ID
	event.SubmissionID = corrected.SubmissionID
	event.EvaluationID = corrected.ID
	event.Grade = &grade
	event.PreviousGrade = &previous
	event.Reason = reason
	if submission, err := s.submissions.GetByID(ctx, corrected.SubmissionID); err == nil {
		event.WorkID = submission.WorkID
		event.StudentIDs = submitterIDs(submission)
	} else {
		s.logger.Warn().Err(err).Uint("submission_id", corrected.SubmissionID).Msg("failed to resolve students for correction event")
	}
	s.publish(ctx, event)

	recordActivity(ctx, s.activity, s.logger, actor, "evaluation.corrected", "evaluation", corrected.ID, map[string]interface{}{
		"submission_id":  corrected.SubmissionID,
		"previous_grade": previous,
		"grade":          grade,
		"reason":         reason,
		"evaluator_id":   corrected.EvaluatorID,
	})
	s.logger.Info().
		Uint("evaluation_id", corrected.ID).
		Float64("previous_grade", previous).
		Float64("grade", grade).
		Msg("evaluation corrected")

	return dto.NewEvaluationResponse(corrected), nil
}

func (s *evaluationService) Get(ctx context.Context, actor Actor, id uint) (dto.EvaluationResponse, error) {
	evaluation, err := s.authorizedEvaluation(ctx, actor, id)
	if err != nil {
		return dto.EvaluationResponse{}, err
	}
	return dto.NewEvaluationResponse(evaluation), nil
}

func (s *evaluationService) MyGrades(ctx context.Context, actor Actor) ([]dto.EvaluationResponse, error) {
	if !actor.IsStudent() {
		return nil, newError(KindNotAuthorized, "only students have grades")
	}

	evaluations, err := s.evaluations.ListForStudent(ctx, actor.ID)
	if err != nil {
		return nil, fmt.Errorf("list grades: %w", err)
	}
	return dto.NewEvaluationResponseSlice(evaluations), nil
}

func (s *evaluationService) Corrections(ctx context.Context, actor Actor, id uint) ([]dto.CorrectionResponse, error) {
	if _, err := s.authorizedEvaluation(ctx, actor, id); err != nil {
		return nil, err
	}

	corrections, err := s.evaluations.ListCorrections(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list corrections: %w", err)
	}
	return dto.NewCorrectionResponseSlice(corrections), nil
}

func (s *evaluationService) authorizedEvaluation(ctx context.Context, actor Actor, id uint) (models.Evaluation, error) {
	evaluation, err := s.evaluations.GetByID(ctx, id)
	if err != nil {
		return models.Evaluation{}, lookupError("evaluation", err)
	}
	if actor.IsStaff() {
		return evaluation, nil
	}

	submission, err := s.submissions.GetByID(ctx, evaluation.SubmissionID)
	if err != nil {
		return models.Evaluation{}, lookupError("submission", err)
	}
	if !canView(actor, submission) {
		return models.Evaluation{}, newError(KindNotAuthorized, "not allowed to view this evaluation")
	}
	return evaluation, nil
}

func (s *evaluationService) afterGradeChange(ctx context.Context) {
	if s.stats == nil {
		return
	}
	if err := s.stats.Invalidate(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("failed to invalidate statistics cache")
	}
}

func (s *evaluationService) publish(ctx context.Context, event events.Event) {
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Warn().Err(err).Str("type", string(event.Type)).Uint("evaluation_id", event.EvaluationID).Msg("failed to publish evaluation event")
	}
}
