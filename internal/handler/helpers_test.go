package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/eduwork-api/internal/database"
	"github.com/noah-isme/eduwork-api/internal/handler"
	"github.com/noah-isme/eduwork-api/internal/models"
	"github.com/noah-isme/eduwork-api/internal/repository"
	"github.com/noah-isme/eduwork-api/internal/service"
)

const (
	trainerID  uint = 100
	directorID uint = 200
)

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Meta    json.RawMessage `json:"meta"`
	Details struct {
		Kind string `json:"kind"`
	} `json:"details"`
}

func decodeResponse(t *testing.T, resp *http.Response, target interface{}) {
	t.Helper()
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(body, target), string(body))
}

// fakeIdentity stands in for the JWT middleware: the caller is read from test headers.
func fakeIdentity(c *fiber.Ctx) error {
	if raw := c.Get("X-Test-User"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return fiber.ErrBadRequest
		}
		c.Locals("user_id", uint(id))
		c.Locals("user_role", c.Get("X-Test-Role"))
	}
	return c.Next()
}

type caller struct {
	id   uint
	role string
}

var (
	asTrainer  = caller{id: trainerID, role: "trainer"}
	asDirector = caller{id: directorID, role: "director"}
)

func asStudent(id uint) caller {
	return caller{id: id, role: "student"}
}

type handlerEnv struct {
	app    *fiber.App
	db     *gorm.DB
	course models.CourseSpace
}

func newHandlerEnv(t *testing.T, students ...uint) *handlerEnv {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	server, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(server.Close)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	validate := validator.New(validator.WithRequiredStructEnabled())
	logger := zerolog.Nop()

	works := repository.NewWorkRepository(db)
	groups := repository.NewGroupRepository(db)
	assignments := repository.NewAssignmentRepository(db)
	submissions := repository.NewSubmissionRepository(db)
	evaluations := repository.NewEvaluationRepository(db)
	enrollments := repository.NewEnrollmentRepository(db)

	course, _, err := enrollments.UpsertCourseSpace(context.Background(), "Networks", students)
	require.NoError(t, err)

	activity := service.NewActivityService(repository.NewActivityLogRepository(db), logger)
	statistics := service.NewStatisticsService(evaluations, groups, enrollments, client, time.Minute, logger)
	attachments := service.NewAttachmentService(&memoryStore{}, repository.NewAttachmentRepository(db), 5, logger)

	workService := service.NewWorkService(works, groups, assignments, submissions, enrollments, validate, activity, logger)
	groupService := service.NewGroupService(works, groups, submissions, enrollments, validate, activity, logger)
	distributionService := service.NewDistributionService(works, assignments, groups, submissions, enrollments, validate, activity, logger)
	submissionService := service.NewSubmissionService(works, assignments, groups, submissions, validate, service.SubmissionPolicy{AllowLate: true}, nil, activity, logger)
	evaluationService := service.NewEvaluationService(evaluations, submissions, validate, statistics, nil, activity, logger)

	app := fiber.New()
	api := app.Group("/api/v1", fakeIdentity)

	workHandler := handler.NewWorkHandler(workService, logger)
	groupHandler := handler.NewGroupHandler(groupService, logger)
	distributionHandler := handler.NewDistributionHandler(distributionService, logger)
	submissionHandler := handler.NewSubmissionHandler(submissionService, attachments, logger)

	worksGroup := api.Group("/works")
	workHandler.Register(worksGroup)
	groupHandler.RegisterWorkRoutes(worksGroup)
	distributionHandler.RegisterWorkRoutes(worksGroup)
	submissionHandler.RegisterWorkRoutes(worksGroup)

	groupHandler.Register(api.Group("/groups"))
	distributionHandler.Register(api.Group("/assignments"))
	submissionHandler.Register(api.Group("/submissions"))
	handler.NewEvaluationHandler(evaluationService, logger).Register(api.Group("/evaluations"))
	handler.NewStatisticsHandler(statistics, logger).Register(api.Group("/statistics"))
	handler.NewActivityHandler(activity, logger).Register(api.Group("/activity"))
	handler.NewAttachmentHandler(attachments, logger).Register(api.Group("/attachments"))

	return &handlerEnv{app: app, db: db, course: course}
}

func (e *handlerEnv) do(t *testing.T, who caller, method, path string, payload interface{}) (*http.Response, envelope) {
	t.Helper()
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, "/api/v1"+path, body)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return e.send(t, who, req)
}

func (e *handlerEnv) send(t *testing.T, who caller, req *http.Request) (*http.Response, envelope) {
	t.Helper()
	if who.id != 0 {
		req.Header.Set("X-Test-User", strconv.FormatUint(uint64(who.id), 10))
		req.Header.Set("X-Test-Role", who.role)
	}

	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)

	var result envelope
	decodeResponse(t, resp, &result)
	return resp, result
}

func (e *handlerEnv) createWork(t *testing.T, kind, mode string, due time.Time) uint {
	t.Helper()
	resp, result := e.do(t, asTrainer, http.MethodPost, "/works", map[string]interface{}{
		"title":           "Routing lab",
		"instructions":    "Configure static routes",
		"kind":            kind,
		"group_mode":      mode,
		"start_date":      due.Add(-72 * time.Hour),
		"due_date":        due,
		"course_space_id": e.course.ID,
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode, result.Message)
	return dataID(t, result)
}

func dataID(t *testing.T, result envelope) uint {
	t.Helper()
	var payload struct {
		ID uint `json:"id"`
	}
	require.NoError(t, json.Unmarshal(result.Data, &payload))
	require.NotZero(t, payload.ID)
	return payload.ID
}

type memoryStore struct {
	uploads int
}

func (s *memoryStore) Upload(_ context.Context, name string, reader io.Reader) (string, error) {
	if _, err := io.Copy(io.Discard, reader); err != nil {
		return "", err
	}
	s.uploads++
	return "https://files.example.com/" + name, nil
}
