package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/eduwork-api/internal/models"
)

func TestAssignmentRepositoryEnsureForStudentsIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	repo := NewAssignmentRepository(db)
	ctx := context.Background()

	course := seedCourse(t, db, "Maths", 1, 2, 3)
	work := seedWork(t, db, course.ID, models.WorkKindIndividual, models.GroupModeNotApplicable)

	assignments, inserted, err := repo.EnsureForStudents(ctx, work.ID, []uint{1, 2})
	require.NoError(t, err)
	require.Equal(t, int64(2), inserted)
	require.Len(t, assignments, 2)

	assignments, inserted, err = repo.EnsureForStudents(ctx, work.ID, []uint{2, 3})
	require.NoError(t, err)
	require.Equal(t, int64(1), inserted)
	require.Len(t, assignments, 2)
	require.Equal(t, uint(2), assignments[0].StudentID)
	require.Equal(t, uint(3), assignments[1].StudentID)

	total, err := repo.CountByWork(ctx, work.ID)
	require.NoError(t, err)
	require.Equal(t, int64(3), total)

	byStudent, err := repo.ListByStudent(ctx, 3)
	require.NoError(t, err)
	require.Len(t, byStudent, 1)
	require.Equal(t, work.ID, byStudent[0].Work.ID)
}

func TestAssignmentRepositoryDeleteUnsubmitted(t *testing.T) {
	db := newTestDB(t)
	repo := NewAssignmentRepository(db)
	ctx := context.Background()

	course := seedCourse(t, db, "Maths", 1, 2)
	work := seedWork(t, db, course.ID, models.WorkKindIndividual, models.GroupModeNotApplicable)

	assignments, _, err := repo.EnsureForStudents(ctx, work.ID, []uint{1, 2})
	require.NoError(t, err)

	seedSubmission(t, db, work.ID, models.AssignmentTarget{AssignmentID: assignments[0].ID}, 1)

	require.ErrorIs(t, repo.DeleteUnsubmitted(ctx, assignments[0].ID), ErrTargetSubmitted)
	require.NoError(t, repo.DeleteUnsubmitted(ctx, assignments[1].ID))

	remaining, err := repo.ListByWork(ctx, work.ID)
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	require.Equal(t, uint(1), remaining[0].StudentID)
}
