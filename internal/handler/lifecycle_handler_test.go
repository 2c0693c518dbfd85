package handler_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/eduwork-api/internal/dto"
)

func TestCollectiveWorkOverHTTP(t *testing.T) {
	env := newHandlerEnv(t, 1, 2, 3)
	workID := env.createWork(t, "collective", "staff_defined", time.Now().Add(48*time.Hour))

	resp, result := env.do(t, asStudent(1), http.MethodPost, "/works", map[string]interface{}{"title": "Nope"})
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode)
	require.Equal(t, "NotAuthorized", result.Details.Kind)

	resp, result = env.do(t, asTrainer, http.MethodPost, fmt.Sprintf("/works/%d/groups", workID), map[string]interface{}{
		"name":       "Alpha",
		"member_ids": []uint{1, 2},
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode, result.Message)
	groupID := dataID(t, result)

	resp, result = env.do(t, asTrainer, http.MethodPost, fmt.Sprintf("/works/%d/groups", workID), map[string]interface{}{
		"name":       "Alpha",
		"member_ids": []uint{3},
	})
	require.Equal(t, fiber.StatusConflict, resp.StatusCode)
	require.Equal(t, "DuplicateGroupName", result.Details.Kind)

	resp, result = env.do(t, asTrainer, http.MethodPost, fmt.Sprintf("/works/%d/attach-groups", workID), map[string]interface{}{
		"group_ids": []uint{groupID},
	})
	require.Equal(t, fiber.StatusOK, resp.StatusCode, result.Message)

	resp, result = env.do(t, asStudent(3), http.MethodPost, fmt.Sprintf("/submissions/group/%d", groupID), map[string]interface{}{"content": "Not mine"})
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode)
	require.Equal(t, "NotAuthorized", result.Details.Kind)

	resp, result = env.do(t, asStudent(1), http.MethodPost, fmt.Sprintf("/submissions/group/%d", groupID), map[string]interface{}{"content": "Routing tables attached"})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode, result.Message)
	submissionID := dataID(t, result)

	resp, result = env.do(t, asTrainer, http.MethodPost, fmt.Sprintf("/groups/%d/members/3", groupID), nil)
	require.Equal(t, fiber.StatusConflict, resp.StatusCode)
	require.Equal(t, "GroupHasSubmission", result.Details.Kind)

	resp, result = env.do(t, asTrainer, http.MethodPost, "/evaluations", map[string]interface{}{
		"submission_id": submissionID,
		"grade":         14,
		"comment":       "Solid work",
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode, result.Message)
	evaluationID := dataID(t, result)

	resp, result = env.do(t, asTrainer, http.MethodPost, "/evaluations", map[string]interface{}{
		"submission_id": submissionID,
		"grade":         15,
		"comment":       "Again",
	})
	require.Equal(t, fiber.StatusConflict, resp.StatusCode)
	require.Equal(t, "AlreadyEvaluated", result.Details.Kind)

	resp, result = env.do(t, asStudent(2), http.MethodPost, fmt.Sprintf("/submissions/group/%d", groupID), map[string]interface{}{"content": "Late fix"})
	require.Equal(t, fiber.StatusConflict, resp.StatusCode)
	require.Equal(t, "AlreadyEvaluated", result.Details.Kind)

	correction := map[string]interface{}{"grade": 16, "reason": "Missed the bonus section"}
	resp, result = env.do(t, asTrainer, http.MethodPut, fmt.Sprintf("/evaluations/%d", evaluationID), correction)
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	resp, result = env.do(t, asDirector, http.MethodPut, fmt.Sprintf("/evaluations/%d", evaluationID), correction)
	require.Equal(t, fiber.StatusOK, resp.StatusCode, result.Message)

	resp, result = env.do(t, asStudent(2), http.MethodGet, "/evaluations/me", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var grades []dto.EvaluationResponse
	require.NoError(t, json.Unmarshal(result.Data, &grades))
	require.Len(t, grades, 1)
	require.Equal(t, 16.0, grades[0].Grade)
	require.Equal(t, "Solid work", grades[0].Comment)
	require.NotNil(t, grades[0].CorrectedBy)

	resp, result = env.do(t, asStudent(1), http.MethodGet, fmt.Sprintf("/evaluations/%d/corrections", evaluationID), nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var history []dto.CorrectionResponse
	require.NoError(t, json.Unmarshal(result.Data, &history))
	require.Len(t, history, 1)
	require.Equal(t, 14.0, history[0].PreviousGrade)

	resp, _ = env.do(t, asStudent(1), http.MethodGet, "/statistics/global", nil)
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	resp, result = env.do(t, asTrainer, http.MethodGet, "/statistics/global", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var stats dto.StatisticsResponse
	require.NoError(t, json.Unmarshal(result.Data, &stats))
	require.Equal(t, 1, stats.Count)
	require.InDelta(t, 16.0, stats.Average, 0.001)

	resp, result = env.do(t, asDirector, http.MethodGet, "/activity?entity_type=evaluation", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var entries []dto.ActivityResponse
	require.NoError(t, json.Unmarshal(result.Data, &entries))
	require.NotEmpty(t, entries)
}

func TestIndividualSubmissionWithFile(t *testing.T) {
	env := newHandlerEnv(t, 7)
	workID := env.createWork(t, "individual", "", time.Now().Add(24*time.Hour))

	resp, result := env.do(t, asTrainer, http.MethodPost, fmt.Sprintf("/works/%d/assignments", workID), map[string]interface{}{
		"student_ids": []uint{7},
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode, result.Message)
	var distribution dto.DistributionResponse
	require.NoError(t, json.Unmarshal(result.Data, &distribution))
	require.Len(t, distribution.Assignments, 1)
	assignmentID := distribution.Assignments[0].ID

	resp, result = env.do(t, asStudent(7), http.MethodGet, "/assignments/me", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var mine []dto.AssignmentResponse
	require.NoError(t, json.Unmarshal(result.Data, &mine))
	require.Len(t, mine, 1)

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	require.NoError(t, writer.WriteField("content", "Report attached"))
	part, err := writer.CreateFormFile("file", "Lab Report.pdf")
	require.NoError(t, err)
	_, err = part.Write([]byte("%PDF-1.4\n1 0 obj\n<<>>\nendobj\n"))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/api/v1/submissions/individual/%d", assignmentID), body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	resp, result = env.send(t, asStudent(7), req)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode, result.Message)

	var submission dto.SubmissionResponse
	require.NoError(t, json.Unmarshal(result.Data, &submission))
	require.Equal(t, "Report attached", submission.Content)
	require.Equal(t, "https://files.example.com/lab-report.pdf", submission.FileRef)
	require.False(t, submission.Late)

	resp, result = env.do(t, asTrainer, http.MethodGet, fmt.Sprintf("/works/%d/progress", workID), nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var progress dto.WorkProgressResponse
	require.NoError(t, json.Unmarshal(result.Data, &progress))
	require.Equal(t, int64(1), progress.Distributed)
	require.Equal(t, int64(1), progress.Submitted)

	resp, result = env.do(t, asTrainer, http.MethodDelete, fmt.Sprintf("/assignments/%d", assignmentID), nil)
	require.Equal(t, fiber.StatusConflict, resp.StatusCode)
	require.Equal(t, "AssignmentHasSubmission", result.Details.Kind)
}

func TestHandlerErrorMapping(t *testing.T) {
	env := newHandlerEnv(t, 1)

	resp, _ := env.do(t, asTrainer, http.MethodGet, "/works/abc", nil)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp, result := env.do(t, asTrainer, http.MethodGet, "/works/999", nil)
	require.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	require.Equal(t, "NotFound", result.Details.Kind)

	resp, result = env.do(t, asTrainer, http.MethodPost, "/works", map[string]interface{}{"kind": "individual"})
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "ValidationFailed", result.Details.Kind)

	workID := env.createWork(t, "individual", "", time.Now().Add(24*time.Hour))
	resp, result = env.do(t, asTrainer, http.MethodPost, fmt.Sprintf("/works/%d/groups", workID), map[string]interface{}{
		"name":       "Beta",
		"member_ids": []uint{1},
	})
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "InvalidWorkKind", result.Details.Kind)

	resp, result = env.do(t, asTrainer, http.MethodGet, fmt.Sprintf("/works/%d/deadline", workID), nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var deadline dto.DeadlineResponse
	require.NoError(t, json.Unmarshal(result.Data, &deadline))
	require.False(t, deadline.Overdue)

	resp, result = env.do(t, asTrainer, http.MethodGet, "/works?kind=individual", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var works []dto.WorkResponse
	require.NoError(t, json.Unmarshal(result.Data, &works))
	require.Len(t, works, 1)
}
