package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/noah-isme/eduwork-api/internal/dto"
	"github.com/noah-isme/eduwork-api/internal/grading"
	"github.com/noah-isme/eduwork-api/internal/observability"
	"github.com/noah-isme/eduwork-api/internal/repository"
)

const statisticsVersionKey = "stats:version"

// StatisticsService aggregates evaluated grades per population.
type StatisticsService interface {
	StatisticsInvalidator
	Global(ctx context.Context, actor Actor) (dto.StatisticsResponse, error)
	Courses(ctx context.Context, actor Actor) (dto.CourseStatisticsListResponse, error)
	Course(ctx context.Context, actor Actor, courseSpaceID uint) (dto.StatisticsResponse, error)
	Student(ctx context.Context, actor Actor, studentID uint) (dto.StatisticsResponse, error)
	Group(ctx context.Context, actor Actor, groupID uint) (dto.StatisticsResponse, error)
}

type statisticsService struct {
	evaluations repository.EvaluationRepository
	groups      repository.GroupRepository
	enrollments repository.EnrollmentRepository
	cache       *redis.Client
	cacheTTL    time.Duration
	logger      zerolog.Logger
	now         func() time.Time
}

// NewStatisticsService constructs the aggregator. A nil cache disables caching.
func NewStatisticsService(
	evaluations repository.EvaluationRepository,
	groups repository.GroupRepository,
	enrollments repository.EnrollmentRepository,
	cache *redis.Client,
	ttl time.Duration,
	logger zerolog.Logger,
) StatisticsService {
	return &statisticsService{
		evaluations: evaluations,
		groups:      groups,
		enrollments: enrollments,
		cache:       cache,
		cacheTTL:    ttl,
		logger:      logger.With().Str("component", "statistics_service").Logger(),
		now:         time.Now,
	}
}

func (s *statisticsService) Global(ctx context.Context, actor Actor) (dto.StatisticsResponse, error) {
	if !actor.IsStaff() {
		return dto.StatisticsResponse{}, newError(KindNotAuthorized, "only staff can read global statistics")
	}
	return s.summarize(ctx, dto.StatisticsScopeGlobal, 0, "", repository.SampleFilter{})
}

func (s *statisticsService) Courses(ctx context.Context, actor Actor) (dto.CourseStatisticsListResponse, error) {
	if !actor.IsStaff() {
		return dto.CourseStatisticsListResponse{}, newError(KindNotAuthorized, "only staff can read course statistics")
	}

	spaces, err := s.enrollments.ListCourseSpaces(ctx)
	if err != nil {
		return dto.CourseStatisticsListResponse{}, fmt.Errorf("list course spaces: %w", err)
	}

	response := dto.CourseStatisticsListResponse{
		Items:       make([]dto.StatisticsResponse, 0, len(spaces)),
		GeneratedAt: s.now().UTC(),
		CacheHit:    len(spaces) > 0,
	}
	for _, space := range spaces {
		id := space.ID
		item, err := s.summarize(ctx, dto.StatisticsScopeCourse, space.ID, space.Name, repository.SampleFilter{CourseSpaceID: &id})
		if err != nil {
			return dto.CourseStatisticsListResponse{}, err
		}
		response.CacheHit = response.CacheHit && item.CacheHit
		response.Items = append(response.Items, item)
	}
	return response, nil
}

func (s *statisticsService) Course(ctx context.Context, actor Actor, courseSpaceID uint) (dto.StatisticsResponse, error) {
	if !actor.IsStaff() {
		return dto.StatisticsResponse{}, newError(KindNotAuthorized, "only staff can read course statistics")
	}

	space, err := s.enrollments.GetCourseSpace(ctx, courseSpaceID)
	if err != nil {
		return dto.StatisticsResponse{}, lookupError("course space", err)
	}
	return s.summarize(ctx, dto.StatisticsScopeCourse, space.ID, space.Name, repository.SampleFilter{CourseSpaceID: &courseSpaceID})
}

func (s *statisticsService) Student(ctx context.Context, actor Actor, studentID uint) (dto.StatisticsResponse, error) {
	if !actor.IsStaff() && !(actor.IsStudent() && actor.ID == studentID) {
		return dto.StatisticsResponse{}, newError(KindNotAuthorized, "students can only read their own statistics")
	}
	if studentID == 0 {
		return dto.StatisticsResponse{}, newError(KindInvalidInput, "student id is required")
	}
	return s.summarize(ctx, dto.StatisticsScopeStudent, studentID, "", repository.SampleFilter{StudentID: &studentID})
}

func (s *statisticsService) Group(ctx context.Context, actor Actor, groupID uint) (dto.StatisticsResponse, error) {
	group, err := s.groups.GetByID(ctx, groupID)
	if err != nil {
		return dto.StatisticsResponse{}, lookupError("group", err)
	}
	if !actor.IsStaff() && !(actor.IsStudent() && group.HasMember(actor.ID)) {
		return dto.StatisticsResponse{}, newError(KindNotAuthorized, "only staff or group members can read group statistics")
	}
	return s.summarize(ctx, dto.StatisticsScopeGroup, group.ID, group.Name, repository.SampleFilter{GroupID: &groupID})
}

// Invalidate bumps the cache generation so every cached summary goes stale.
func (s *statisticsService) Invalidate(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	if err := s.cache.Incr(ctx, statisticsVersionKey).Err(); err != nil {
		return fmt.Errorf("bump statistics version: %w", err)
	}
	return nil
}

func (s *statisticsService) summarize(ctx context.Context, scope dto.StatisticsScope, scopeID uint, label string, filter repository.SampleFilter) (dto.StatisticsResponse, error) {
	tracer := otel.Tracer(tracerPrefix + "statistics")
	ctx, span := tracer.Start(ctx, "statistics.aggregate")
	span.SetAttributes(
		attribute.String("statistics.scope", string(scope)),
		attribute.Int64("statistics.scope_id", int64(scopeID)),
	)
	defer span.End()

	cacheKey := s.cacheKey(ctx, scope, scopeID)
	if cacheKey != "" {
		span.SetAttributes(attribute.String("statistics.cache_key", cacheKey))
		cached, err := s.cache.Get(ctx, cacheKey).Result()
		if err == nil {
			var response dto.StatisticsResponse
			if unmarshalErr := json.Unmarshal([]byte(cached), &response); unmarshalErr == nil {
				response.CacheHit = true
				span.SetAttributes(attribute.Bool("statistics.cache_hit", true))
				observability.StatisticsCacheLookups().WithLabelValues("hit").Inc()
				return response, nil
			}
		} else if err != redis.Nil {
			s.logger.Warn().Err(err).Str("key", cacheKey).Msg("failed to read statistics cache")
			span.RecordError(err)
		}
		observability.StatisticsCacheLookups().WithLabelValues("miss").Inc()
	}

	samples, err := s.evaluations.ListSamples(ctx, filter)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "list_samples_failed")
		return dto.StatisticsResponse{}, fmt.Errorf("list grade samples: %w", err)
	}

	summary := grading.Summarize(samples)
	span.SetAttributes(attribute.Int("statistics.count", summary.Count))
	response := dto.NewStatisticsResponse(scope, scopeID, label, summary, s.now().UTC())

	if cacheKey != "" {
		payload, err := json.Marshal(response)
		if err == nil {
			if err := s.cache.Set(ctx, cacheKey, payload, s.cacheTTL).Err(); err != nil {
				s.logger.Warn().Err(err).Str("key", cacheKey).Msg("failed to store statistics cache")
				span.RecordError(err)
			}
		}
	}

	return response, nil
}

// cacheKey returns an empty key when caching is off or the generation cannot be read.
func (s *statisticsService) cacheKey(ctx context.Context, scope dto.StatisticsScope, scopeID uint) string {
	if s.cache == nil {
		return ""
	}

	version, err := s.cache.Get(ctx, statisticsVersionKey).Result()
	switch {
	case err == redis.Nil:
		version = "0"
	case err != nil:
		s.logger.Warn().Err(err).Msg("failed to read statistics cache version")
		observability.StatisticsCacheLookups().WithLabelValues("error").Inc()
		return ""
	}

	return "stats:v" + version + ":" + string(scope) + ":" + strconv.FormatUint(uint64(scopeID), 10)
}
