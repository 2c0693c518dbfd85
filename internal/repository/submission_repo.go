package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/eduwork-api/internal/models"
)

// SubmissionCounts summarises the submissions of a work.
type SubmissionCounts struct {
	Submitted int64
	Evaluated int64
	Late      int64
}

// SubmissionRepository defines data operations for submissions.
type SubmissionRepository interface {
	GetByID(ctx context.Context, id uint) (models.Submission, error)
	GetByTarget(ctx context.Context, target models.Target) (models.Submission, error)
	ListByWork(ctx context.Context, workID uint) ([]models.Submission, error)
	ListForStudent(ctx context.Context, studentID uint) ([]models.Submission, error)
	// SaveForTarget locks target and its submission row, loads the evaluation,
	// lets apply fill the submission, then creates or updates the single row of
	// that target in one transaction.
	SaveForTarget(ctx context.Context, target models.Target, apply func(submission *models.Submission, exists bool) error) (models.Submission, error)
	CountByWork(ctx context.Context, workID uint) (SubmissionCounts, error)
}

type submissionRepository struct {
	db *gorm.DB
}

// NewSubmissionRepository instantiates the repository.
func NewSubmissionRepository(db *gorm.DB) SubmissionRepository {
	return &submissionRepository{db: db}
}

func (r *submissionRepository) baseQuery(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Model(&models.Submission{}).
		Preload("Work").
		Preload("Assignment").
		Preload("Group.Members", func(tx *gorm.DB) *gorm.DB {
			return tx.Order("position ASC")
		}).
		Preload("Evaluation")
}

func (r *submissionRepository) GetByID(ctx context.Context, id uint) (models.Submission, error) {
	var submission models.Submission
	if err := r.baseQuery(ctx).First(&submission, id).Error; err != nil {
		return models.Submission{}, err
	}
	return submission, nil
}

func (r *submissionRepository) GetByTarget(ctx context.Context, target models.Target) (models.Submission, error) {
	column, err := targetColumn(target)
	if err != nil {
		return models.Submission{}, err
	}

	var submission models.Submission
	if err := r.baseQuery(ctx).Where(column+" = ?", target.ID()).First(&submission).Error; err != nil {
		return models.Submission{}, err
	}
	return submission, nil
}

func (r *submissionRepository) ListByWork(ctx context.Context, workID uint) ([]models.Submission, error) {
	var submissions []models.Submission
	if err := r.baseQuery(ctx).
		Where("work_id = ?", workID).
		Order("submitted_at DESC").
		Find(&submissions).Error; err != nil {
		return nil, err
	}
	return submissions, nil
}

func (r *submissionRepository) ListForStudent(ctx context.Context, studentID uint) ([]models.Submission, error) {
	var submissions []models.Submission
	if err := r.baseQuery(ctx).
		Where(studentSubmissionsClause(r.db, studentID)).
		Order("submitted_at DESC").
		Find(&submissions).Error; err != nil {
		return nil, err
	}
	return submissions, nil
}

func (r *submissionRepository) SaveForTarget(ctx context.Context, target models.Target, apply func(submission *models.Submission, exists bool) error) (models.Submission, error) {
	column, err := targetColumn(target)
	if err != nil {
		return models.Submission{}, err
	}

	var id uint
	save := func() error {
		return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := lockTarget(tx, target); err != nil {
				return err
			}

			var submission models.Submission
			exists := true
			if err := forUpdate(tx).Where(column+" = ?", target.ID()).First(&submission).Error; err != nil {
				if !errors.Is(err, gorm.ErrRecordNotFound) {
					return err
				}
				exists = false
				submission = models.Submission{}
				submission.SetTarget(target)
			}

			// Read after the lock so an evaluation committed meanwhile is seen.
			if exists {
				var evaluations []models.Evaluation
				if err := tx.Where("submission_id = ?", submission.ID).Limit(1).Find(&evaluations).Error; err != nil {
					return err
				}
				if len(evaluations) > 0 {
					submission.Evaluation = &evaluations[0]
				}
			}

			if err := apply(&submission, exists); err != nil {
				return err
			}
			submission.SetTarget(target)

			write := tx.Omit(clause.Associations)
			if exists {
				err = write.Save(&submission).Error
			} else {
				err = write.Create(&submission).Error
			}
			if err != nil {
				return err
			}
			id = submission.ID
			return nil
		})
	}

	// A concurrent first submit on the same target loses on the unique
	// index; re-running turns it into an update of the winner's row.
	err = save()
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		err = save()
	}
	if err != nil {
		return models.Submission{}, err
	}

	return r.GetByID(ctx, id)
}

func (r *submissionRepository) CountByWork(ctx context.Context, workID uint) (SubmissionCounts, error) {
	var counts SubmissionCounts
	db := r.db.WithContext(ctx)

	if err := db.Model(&models.Submission{}).Where("work_id = ?", workID).Count(&counts.Submitted).Error; err != nil {
		return SubmissionCounts{}, err
	}
	if err := db.Model(&models.Submission{}).Where("work_id = ? AND late = ?", workID, true).Count(&counts.Late).Error; err != nil {
		return SubmissionCounts{}, err
	}
	if err := db.Model(&models.Evaluation{}).
		Joins("JOIN submissions ON submissions.id = evaluations.submission_id").
		Where("submissions.work_id = ?", workID).
		Count(&counts.Evaluated).Error; err != nil {
		return SubmissionCounts{}, err
	}

	return counts, nil
}

func targetColumn(target models.Target) (string, error) {
	switch target.(type) {
	case models.AssignmentTarget:
		return "assignment_id", nil
	case models.GroupTarget:
		return "group_id", nil
	default:
		return "", models.ErrInvalidSubmissionTarget
	}
}
