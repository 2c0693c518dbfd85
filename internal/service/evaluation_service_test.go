package service

import (
	"context"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/noah-isme/eduwork-api/internal/dto"
	"github.com/noah-isme/eduwork-api/internal/models"
	"github.com/noah-isme/eduwork-api/internal/repository"
)

// lostRaceEvaluations behaves as if another evaluator inserted first.
type lostRaceEvaluations struct {
	repository.EvaluationRepository
	calls int
}

func (r *lostRaceEvaluations) Create(ctx context.Context, evaluation *models.Evaluation) error {
	r.calls++
	return gorm.ErrDuplicatedKey
}

func TestEvaluateMapsDuplicateInsertToAlreadyEvaluated(t *testing.T) {
	env := newLifecycleEnv(t, 1)
	ctx := context.Background()

	work := env.createWork(t, "INDIVIDUAL", "", time.Now().Add(24*time.Hour))
	distribution, err := env.distribution.AssignIndividual(ctx, trainer, work.ID, dto.AssignIndividualRequest{StudentIDs: []uint{1}})
	require.NoError(t, err)
	submission, err := env.submissions.SubmitIndividual(ctx, student(1), distribution.Assignments[0].ID, dto.SubmitRequest{Content: "Answer"})
	require.NoError(t, err)

	evaluations := &lostRaceEvaluations{EvaluationRepository: repository.NewEvaluationRepository(env.db)}
	svc := NewEvaluationService(
		evaluations,
		repository.NewSubmissionRepository(env.db),
		validator.New(validator.WithRequiredStructEnabled()),
		env.statistics,
		env.publisher,
		env.activity,
		testLogger(),
	)

	_, err = svc.Evaluate(ctx, director, dto.EvaluateRequest{SubmissionID: submission.ID, Grade: ptrFloat(14), Comment: "Late second opinion"})
	requireKind(t, err, KindAlreadyEvaluated)
	require.Equal(t, 1, evaluations.calls)
}

func TestEvaluationTextStoredVerbatim(t *testing.T) {
	env := newLifecycleEnv(t, 1)
	ctx := context.Background()

	work := env.createWork(t, "INDIVIDUAL", "", time.Now().Add(24*time.Hour))
	distribution, err := env.distribution.AssignIndividual(ctx, trainer, work.ID, dto.AssignIndividualRequest{StudentIDs: []uint{1}})
	require.NoError(t, err)
	submission, err := env.submissions.SubmitIndividual(ctx, student(1), distribution.Assignments[0].ID, dto.SubmitRequest{Content: "main.c"})
	require.NoError(t, err)

	evaluation, err := env.evaluations.Evaluate(ctx, trainer, dto.EvaluateRequest{SubmissionID: submission.ID, Grade: ptrFloat(9), Comment: " use <stdio.h> & check i<n "})
	require.NoError(t, err)
	require.Equal(t, "use <stdio.h> & check i<n", evaluation.Comment)

	_, err = env.evaluations.Evaluate(ctx, director, dto.EvaluateRequest{SubmissionID: submission.ID, Grade: ptrFloat(9), Comment: "<p></p>"})
	requireKind(t, err, KindAlreadyEvaluated)

	corrected, err := env.evaluations.Correct(ctx, director, evaluation.ID, dto.CorrectRequest{Grade: ptrFloat(11), Comment: "<b>bold</b> is fine", Reason: "grade<10 was a typo"})
	require.NoError(t, err)
	require.Equal(t, "<b>bold</b> is fine", corrected.Comment)
	require.NotNil(t, corrected.CorrectionReason)
	require.Equal(t, "grade<10 was a typo", *corrected.CorrectionReason)
}
