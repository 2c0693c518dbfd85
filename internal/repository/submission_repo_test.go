package repository

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/noah-isme/eduwork-api/internal/models"
)

func TestSubmissionRepositorySaveForTargetKeepsSingleRow(t *testing.T) {
	db := newTestDB(t)
	repo := NewSubmissionRepository(db)
	assignments := NewAssignmentRepository(db)
	ctx := context.Background()

	course := seedCourse(t, db, "History", 1)
	work := seedWork(t, db, course.ID, models.WorkKindIndividual, models.GroupModeNotApplicable)
	created, _, err := assignments.EnsureForStudents(ctx, work.ID, []uint{1})
	require.NoError(t, err)

	target := models.AssignmentTarget{AssignmentID: created[0].ID}
	first, err := repo.SaveForTarget(ctx, target, func(submission *models.Submission, exists bool) error {
		require.False(t, exists)
		submission.WorkID = work.ID
		submission.Content = "draft"
		submission.SubmittedBy = 1
		submission.SubmittedAt = time.Now().UTC()
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, models.TargetIndividual, first.TargetKind)
	require.NotNil(t, first.Assignment)
	require.True(t, first.IsSubmitter(1))

	second, err := repo.SaveForTarget(ctx, target, func(submission *models.Submission, exists bool) error {
		require.True(t, exists)
		submission.Content = "final"
		submission.SubmittedAt = time.Now().UTC()
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)
	require.Equal(t, "final", second.Content)

	var count int64
	require.NoError(t, db.Model(&models.Submission{}).Count(&count).Error)
	require.Equal(t, int64(1), count)

	rejected := errors.New("rejected")
	_, err = repo.SaveForTarget(ctx, target, func(*models.Submission, bool) error { return rejected })
	require.ErrorIs(t, err, rejected)

	stored, err := repo.GetByTarget(ctx, target)
	require.NoError(t, err)
	require.Equal(t, "final", stored.Content)
}

func TestSubmissionRepositoryConcurrentFirstSubmitsShareOneRow(t *testing.T) {
	db := newTestDB(t)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	repo := NewSubmissionRepository(db)
	assignments := NewAssignmentRepository(db)
	ctx := context.Background()

	course := seedCourse(t, db, "History", 1)
	work := seedWork(t, db, course.ID, models.WorkKindIndividual, models.GroupModeNotApplicable)
	created, _, err := assignments.EnsureForStudents(ctx, work.ID, []uint{1})
	require.NoError(t, err)
	target := models.AssignmentTarget{AssignmentID: created[0].ID}

	var wg sync.WaitGroup
	errs := make([]error, 2)
	ids := make([]uint, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			saved, err := repo.SaveForTarget(ctx, target, func(submission *models.Submission, exists bool) error {
				submission.WorkID = work.ID
				submission.Content = "attempt"
				submission.SubmittedBy = 1
				submission.SubmittedAt = time.Now().UTC()
				return nil
			})
			errs[i] = err
			ids[i] = saved.ID
		}(i)
	}
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])
	require.Equal(t, ids[0], ids[1])

	var count int64
	require.NoError(t, db.Model(&models.Submission{}).Count(&count).Error)
	require.Equal(t, int64(1), count)
}

func TestSubmissionRepositoryRetriesAfterDuplicateKey(t *testing.T) {
	db := newTestDB(t)
	repo := NewSubmissionRepository(db)
	assignments := NewAssignmentRepository(db)
	ctx := context.Background()

	course := seedCourse(t, db, "History", 1)
	work := seedWork(t, db, course.ID, models.WorkKindIndividual, models.GroupModeNotApplicable)
	created, _, err := assignments.EnsureForStudents(ctx, work.ID, []uint{1})
	require.NoError(t, err)

	fired := false
	require.NoError(t, db.Callback().Create().Before("gorm:create").Register("test:duplicate_once", func(tx *gorm.DB) {
		if _, ok := tx.Statement.Dest.(*models.Submission); ok && !fired {
			fired = true
			tx.AddError(gorm.ErrDuplicatedKey)
		}
	}))

	calls := 0
	saved, err := repo.SaveForTarget(ctx, models.AssignmentTarget{AssignmentID: created[0].ID}, func(submission *models.Submission, exists bool) error {
		calls++
		submission.WorkID = work.ID
		submission.Content = "draft"
		submission.SubmittedBy = 1
		submission.SubmittedAt = time.Now().UTC()
		return nil
	})
	require.NoError(t, err)
	require.True(t, fired)
	require.Equal(t, 2, calls)
	require.Equal(t, "draft", saved.Content)

	var count int64
	require.NoError(t, db.Model(&models.Submission{}).Count(&count).Error)
	require.Equal(t, int64(1), count)
}

func TestSubmissionRepositorySaveForTargetSeesCommittedEvaluation(t *testing.T) {
	db := newTestDB(t)
	repo := NewSubmissionRepository(db)
	assignments := NewAssignmentRepository(db)
	ctx := context.Background()

	course := seedCourse(t, db, "History", 1)
	work := seedWork(t, db, course.ID, models.WorkKindIndividual, models.GroupModeNotApplicable)
	created, _, err := assignments.EnsureForStudents(ctx, work.ID, []uint{1})
	require.NoError(t, err)
	target := models.AssignmentTarget{AssignmentID: created[0].ID}

	submission := seedSubmission(t, db, work.ID, target, 1)
	seedEvaluation(t, db, submission.ID, 14)

	evaluated := errors.New("evaluated")
	_, err = repo.SaveForTarget(ctx, target, func(current *models.Submission, exists bool) error {
		if exists && current.IsEvaluated() {
			return evaluated
		}
		current.Content = "overwritten"
		return nil
	})
	require.ErrorIs(t, err, evaluated)

	stored, err := repo.GetByTarget(ctx, target)
	require.NoError(t, err)
	require.Equal(t, "done", stored.Content)

	_, err = repo.SaveForTarget(ctx, models.AssignmentTarget{AssignmentID: 9999}, func(*models.Submission, bool) error { return nil })
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestSubmissionRepositoryListForStudentIncludesGroups(t *testing.T) {
	db := newTestDB(t)
	repo := NewSubmissionRepository(db)
	groups := NewGroupRepository(db)
	assignments := NewAssignmentRepository(db)
	ctx := context.Background()

	course := seedCourse(t, db, "History", 1, 2)
	individual := seedWork(t, db, course.ID, models.WorkKindIndividual, models.GroupModeNotApplicable)
	collective := seedWork(t, db, course.ID, models.WorkKindCollective, models.GroupModeStaffDefined)

	created, _, err := assignments.EnsureForStudents(ctx, individual.ID, []uint{1, 2})
	require.NoError(t, err)
	group := models.Group{WorkID: collective.ID, Name: "Team", Mode: collective.GroupMode, CreatedBy: 100}
	require.NoError(t, groups.CreateWithMembers(ctx, &group, []uint{1, 2}))

	mine := seedSubmission(t, db, individual.ID, models.AssignmentTarget{AssignmentID: created[0].ID}, 1)
	seedSubmission(t, db, individual.ID, models.AssignmentTarget{AssignmentID: created[1].ID}, 2)
	team := seedSubmission(t, db, collective.ID, models.GroupTarget{GroupID: group.ID}, 2)
	seedEvaluation(t, db, team.ID, 12)

	list, err := repo.ListForStudent(ctx, 1)
	require.NoError(t, err)
	require.Len(t, list, 2)

	ids := []uint{list[0].ID, list[1].ID}
	require.ElementsMatch(t, []uint{mine.ID, team.ID}, ids)
	for _, submission := range list {
		require.True(t, submission.IsSubmitter(1))
	}

	loaded, err := repo.GetByID(ctx, team.ID)
	require.NoError(t, err)
	require.True(t, loaded.IsEvaluated())
	require.Equal(t, models.SubmissionStateEvaluated, loaded.State())
	require.Equal(t, []uint{1, 2}, loaded.Group.MemberIDs())
}

func TestSubmissionRepositoryCountByWork(t *testing.T) {
	db := newTestDB(t)
	repo := NewSubmissionRepository(db)
	assignments := NewAssignmentRepository(db)
	ctx := context.Background()

	course := seedCourse(t, db, "History", 1, 2, 3)
	work := seedWork(t, db, course.ID, models.WorkKindIndividual, models.GroupModeNotApplicable)
	created, _, err := assignments.EnsureForStudents(ctx, work.ID, []uint{1, 2, 3})
	require.NoError(t, err)

	onTime := seedSubmission(t, db, work.ID, models.AssignmentTarget{AssignmentID: created[0].ID}, 1)
	late := seedSubmission(t, db, work.ID, models.AssignmentTarget{AssignmentID: created[1].ID}, 2)
	require.NoError(t, db.Model(&late).Update("late", true).Error)
	seedEvaluation(t, db, onTime.ID, 15)

	counts, err := repo.CountByWork(ctx, work.ID)
	require.NoError(t, err)
	require.Equal(t, SubmissionCounts{Submitted: 2, Evaluated: 1, Late: 1}, counts)
}
