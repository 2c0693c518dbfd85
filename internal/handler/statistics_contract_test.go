package handler_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/eduwork-api/internal/dto"
	"github.com/noah-isme/eduwork-api/internal/grading"
	"github.com/noah-isme/eduwork-api/internal/handler"
	"github.com/noah-isme/eduwork-api/internal/service"
)

const statisticsSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["success", "message", "data"],
  "properties": {
    "success": {"const": true},
    "message": {"type": "string"},
    "data": {
      "type": "object",
      "required": ["scope", "count", "average", "success_rate", "distribution", "per_subject", "generated_at", "cache_hit"],
      "properties": {
        "scope": {"enum": ["global", "course", "student", "group"]},
        "count": {"type": "integer", "minimum": 0},
        "average": {"type": "number", "minimum": 0, "maximum": 20},
        "success_rate": {"type": "number", "minimum": 0, "maximum": 100},
        "distribution": {
          "type": "array",
          "items": {
            "type": "object",
            "required": ["label", "min", "max", "count"]
          }
        },
        "per_subject": {
          "type": "array",
          "items": {
            "type": "object",
            "required": ["course_space_id", "course_name", "average", "count"]
          }
        },
        "generated_at": {"type": "string", "format": "date-time"},
        "cache_hit": {"type": "boolean"}
      }
    }
  }
}`

type stubStatisticsService struct {
	service.StatisticsService
	response dto.StatisticsResponse
}

func (s stubStatisticsService) Global(context.Context, service.Actor) (dto.StatisticsResponse, error) {
	return s.response, nil
}

func TestGlobalStatisticsContract(t *testing.T) {
	compiler := jsonschema.NewCompiler()
	require.NoError(t, compiler.AddResource("statistics.schema.json", strings.NewReader(statisticsSchema)))
	schema, err := compiler.Compile("statistics.schema.json")
	require.NoError(t, err)

	summary := grading.Summarize([]grading.Sample{
		{EvaluationID: 1, Grade: 8, CourseSpaceID: 1, CourseName: "Databases"},
		{EvaluationID: 2, Grade: 15.5, CourseSpaceID: 1, CourseName: "Databases"},
	})
	stub := stubStatisticsService{response: dto.NewStatisticsResponse(dto.StatisticsScopeGlobal, 0, "", summary, time.Now().UTC())}

	app := fiber.New()
	handler.NewStatisticsHandler(stub, zerolog.Nop()).Register(app.Group("/api/v1/statistics"))

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/statistics/global", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var payload interface{}
	require.NoError(t, json.Unmarshal(body, &payload))
	require.NoError(t, schema.Validate(payload))
}
