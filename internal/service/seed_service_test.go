package service

import (
	"context"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/eduwork-api/internal/dto"
	"github.com/noah-isme/eduwork-api/internal/repository"
)

func TestSeedServiceTokenGuard(t *testing.T) {
	db := newServiceTestDB(t)
	validate := validator.New(validator.WithRequiredStructEnabled())
	svc := NewSeedService(repository.NewEnrollmentRepository(db), validate, true, "secret", testLogger())
	payload := dto.CourseSeedRequest{Items: []dto.CourseSeed{{Name: "Physics", StudentIDs: []uint{1, 2, 2}}}}

	_, err := svc.SeedCourseSpaces(context.Background(), "wrong", payload)
	require.ErrorIs(t, err, ErrSeedUnauthorized)

	result, err := svc.SeedCourseSpaces(context.Background(), "secret", payload)
	require.NoError(t, err)
	require.Equal(t, 1, result.CourseSpaces)
	require.Equal(t, int64(2), result.Enrollments)
}

func TestSeedServiceDisabled(t *testing.T) {
	db := newServiceTestDB(t)
	validate := validator.New(validator.WithRequiredStructEnabled())
	svc := NewSeedService(repository.NewEnrollmentRepository(db), validate, false, "secret", testLogger())

	_, err := svc.SeedCourseSpaces(context.Background(), "secret", dto.CourseSeedRequest{})
	require.ErrorIs(t, err, ErrSeedDisabled)
}
