package repository

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/eduwork-api/internal/database"
	"github.com/noah-isme/eduwork-api/internal/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	return db
}

func seedCourse(t *testing.T, db *gorm.DB, name string, students ...uint) models.CourseSpace {
	t.Helper()
	course := models.CourseSpace{Name: name}
	require.NoError(t, db.Create(&course).Error)
	for _, id := range students {
		require.NoError(t, db.Create(&models.Enrollment{CourseSpaceID: course.ID, StudentID: id}).Error)
	}
	return course
}

func seedWork(t *testing.T, db *gorm.DB, courseID uint, kind models.WorkKind, mode models.GroupMode) models.Work {
	t.Helper()
	now := time.Now().UTC()
	work := models.Work{
		Title:         "Essay",
		Instructions:  "Write it",
		Kind:          kind,
		GroupMode:     mode,
		StartDate:     now.Add(-24 * time.Hour),
		DueDate:       now.Add(72 * time.Hour),
		CourseSpaceID: courseID,
		CreatedBy:     100,
	}
	require.NoError(t, db.Omit("CourseSpace").Create(&work).Error)
	return work
}

func seedSubmission(t *testing.T, db *gorm.DB, workID uint, target models.Target, by uint) models.Submission {
	t.Helper()
	submission := models.NewSubmission(workID, target)
	submission.Content = "done"
	submission.SubmittedBy = by
	submission.SubmittedAt = time.Now().UTC()
	require.NoError(t, db.Omit("Work", "Assignment", "Group", "Evaluation").Create(&submission).Error)
	return submission
}

func seedEvaluation(t *testing.T, db *gorm.DB, submissionID uint, grade float64) models.Evaluation {
	t.Helper()
	evaluation := models.Evaluation{
		SubmissionID: submissionID,
		Grade:        grade,
		Comment:      "ok",
		EvaluatorID:  100,
		EvaluatedAt:  time.Now().UTC(),
	}
	require.NoError(t, db.Omit("Corrections").Create(&evaluation).Error)
	return evaluation
}
