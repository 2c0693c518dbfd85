package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/eduwork-api/internal/database"
	"github.com/noah-isme/eduwork-api/internal/dto"
	"github.com/noah-isme/eduwork-api/internal/events"
	"github.com/noah-isme/eduwork-api/internal/models"
	"github.com/noah-isme/eduwork-api/internal/repository"
)

var (
	trainer  = Actor{ID: 100, Role: models.RoleTrainer}
	director = Actor{ID: 200, Role: models.RoleDirector}
)

func student(id uint) Actor {
	return Actor{ID: id, Role: models.RoleStudent}
}

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

func ptrFloat(v float64) *float64 {
	return &v
}

func newServiceTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	return db
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(ctx context.Context, event events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) ofType(eventType events.Type) []events.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	result := make([]events.Event, 0)
	for _, event := range p.events {
		if event.Type == eventType {
			result = append(result, event)
		}
	}
	return result
}

// lifecycleEnv wires every lifecycle service over one in-memory database.
type lifecycleEnv struct {
	db           *gorm.DB
	course       models.CourseSpace
	redis        *miniredis.Miniredis
	publisher    *recordingPublisher
	activity     ActivityService
	works        WorkService
	groups       GroupService
	distribution DistributionService
	submissions  SubmissionService
	evaluations  EvaluationService
	statistics   StatisticsService
}

func newLifecycleEnv(t *testing.T, students ...uint) *lifecycleEnv {
	t.Helper()
	db := newServiceTestDB(t)

	server, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(server.Close)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	validate := validator.New(validator.WithRequiredStructEnabled())
	logger := testLogger()

	works := repository.NewWorkRepository(db)
	groups := repository.NewGroupRepository(db)
	assignments := repository.NewAssignmentRepository(db)
	submissions := repository.NewSubmissionRepository(db)
	evaluations := repository.NewEvaluationRepository(db)
	enrollments := repository.NewEnrollmentRepository(db)

	course, _, err := enrollments.UpsertCourseSpace(context.Background(), "Databases", students)
	require.NoError(t, err)

	publisher := &recordingPublisher{}
	activity := NewActivityService(repository.NewActivityLogRepository(db), logger)
	statistics := NewStatisticsService(evaluations, groups, enrollments, client, time.Minute, logger)

	return &lifecycleEnv{
		db:           db,
		course:       course,
		redis:        server,
		publisher:    publisher,
		activity:     activity,
		works:        NewWorkService(works, groups, assignments, submissions, enrollments, validate, activity, logger),
		groups:       NewGroupService(works, groups, submissions, enrollments, validate, activity, logger),
		distribution: NewDistributionService(works, assignments, groups, submissions, enrollments, validate, activity, logger),
		submissions:  NewSubmissionService(works, assignments, groups, submissions, validate, SubmissionPolicy{AllowLate: true}, publisher, activity, logger),
		evaluations:  NewEvaluationService(evaluations, submissions, validate, statistics, publisher, activity, logger),
		statistics:   statistics,
	}
}

func (e *lifecycleEnv) createWork(t *testing.T, kind, mode string, due time.Time) dto.WorkResponse {
	t.Helper()
	work, err := e.works.Create(context.Background(), trainer, dto.WorkCreateRequest{
		Title:         "Schema design",
		Instructions:  "Model the library domain",
		Kind:          kind,
		GroupMode:     mode,
		StartDate:     due.Add(-7 * 24 * time.Hour),
		DueDate:       due,
		CourseSpaceID: e.course.ID,
	})
	require.NoError(t, err)
	return work
}

func requireKind(t *testing.T, err error, kind ErrorKind) {
	t.Helper()
	require.Error(t, err)
	got, ok := KindOf(err)
	require.True(t, ok, "expected lifecycle error, got %v", err)
	require.Equal(t, kind, got, err.Error())
}
