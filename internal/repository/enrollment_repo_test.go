package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEnrollmentRepositoryNotEnrolled(t *testing.T) {
	db := newTestDB(t)
	repo := NewEnrollmentRepository(db)
	ctx := context.Background()

	course := seedCourse(t, db, "Geography", 1, 3)
	seedCourse(t, db, "Algebra", 2)

	missing, err := repo.NotEnrolled(ctx, course.ID, []uint{4, 1, 2, 3})
	require.NoError(t, err)
	require.Equal(t, []uint{4, 2}, missing)

	enrolled, err := repo.IsEnrolled(ctx, course.ID, 3)
	require.NoError(t, err)
	require.True(t, enrolled)

	spaces, err := repo.ListCourseSpaces(ctx)
	require.NoError(t, err)
	require.Len(t, spaces, 2)
	require.Equal(t, "Algebra", spaces[0].Name)
}

func TestEnrollmentRepositoryUpsertCourseSpace(t *testing.T) {
	db := newTestDB(t)
	repo := NewEnrollmentRepository(db)
	ctx := context.Background()

	space, inserted, err := repo.UpsertCourseSpace(ctx, "Chemistry", []uint{1, 2})
	require.NoError(t, err)
	require.NotZero(t, space.ID)
	require.Equal(t, int64(2), inserted)

	again, inserted, err := repo.UpsertCourseSpace(ctx, "Chemistry", []uint{2, 3})
	require.NoError(t, err)
	require.Equal(t, space.ID, again.ID)
	require.Equal(t, int64(1), inserted)

	missing, err := repo.NotEnrolled(ctx, space.ID, []uint{1, 2, 3})
	require.NoError(t, err)
	require.Empty(t, missing)
}
