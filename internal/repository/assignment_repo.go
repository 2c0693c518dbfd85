package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/eduwork-api/internal/models"
)

// AssignmentRepository defines persistence operations for individual assignments.
type AssignmentRepository interface {
	GetByID(ctx context.Context, id uint) (models.Assignment, error)
	ListByWork(ctx context.Context, workID uint) ([]models.Assignment, error)
	ListByStudent(ctx context.Context, studentID uint) ([]models.Assignment, error)
	// EnsureForStudents inserts the missing (work, student) pairs, skipping
	// existing ones, and returns the assignments of every requested student
	// together with the number of rows actually inserted.
	EnsureForStudents(ctx context.Context, workID uint, studentIDs []uint) ([]models.Assignment, int64, error)
	// DeleteUnsubmitted removes the assignment unless a submission references it.
	DeleteUnsubmitted(ctx context.Context, id uint) error
	CountByWork(ctx context.Context, workID uint) (int64, error)
}

type assignmentRepository struct {
	db *gorm.DB
}

// NewAssignmentRepository instantiates a GORM-backed repository.
func NewAssignmentRepository(db *gorm.DB) AssignmentRepository {
	return &assignmentRepository{db: db}
}

func (r *assignmentRepository) GetByID(ctx context.Context, id uint) (models.Assignment, error) {
	var assignment models.Assignment
	if err := r.db.WithContext(ctx).Preload("Work").First(&assignment, id).Error; err != nil {
		return models.Assignment{}, err
	}
	return assignment, nil
}

func (r *assignmentRepository) ListByWork(ctx context.Context, workID uint) ([]models.Assignment, error) {
	var assignments []models.Assignment
	if err := r.db.WithContext(ctx).
		Where("work_id = ?", workID).
		Order("student_id ASC").
		Find(&assignments).Error; err != nil {
		return nil, err
	}
	return assignments, nil
}

func (r *assignmentRepository) ListByStudent(ctx context.Context, studentID uint) ([]models.Assignment, error) {
	var assignments []models.Assignment
	if err := r.db.WithContext(ctx).
		Preload("Work").
		Where("student_id = ?", studentID).
		Order("created_at DESC").
		Find(&assignments).Error; err != nil {
		return nil, err
	}
	return assignments, nil
}

func (r *assignmentRepository) EnsureForStudents(ctx context.Context, workID uint, studentIDs []uint) ([]models.Assignment, int64, error) {
	if len(studentIDs) == 0 {
		return []models.Assignment{}, 0, nil
	}

	var inserted int64
	var assignments []models.Assignment
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rows := make([]models.Assignment, 0, len(studentIDs))
		for _, studentID := range studentIDs {
			rows = append(rows, models.Assignment{WorkID: workID, StudentID: studentID})
		}

		result := tx.Omit(clause.Associations).Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "work_id"}, {Name: "student_id"}},
			DoNothing: true,
		}).Create(&rows)
		if result.Error != nil {
			return result.Error
		}
		inserted = result.RowsAffected

		return tx.Where("work_id = ? AND student_id IN ?", workID, studentIDs).
			Order("student_id ASC").
			Find(&assignments).Error
	})
	if err != nil {
		return nil, 0, err
	}

	return assignments, inserted, nil
}

func (r *assignmentRepository) DeleteUnsubmitted(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockTarget(tx, models.AssignmentTarget{AssignmentID: id}); err != nil {
			return err
		}

		var count int64
		if err := tx.Model(&models.Submission{}).Where("assignment_id = ?", id).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrTargetSubmitted
		}

		result := tx.Delete(&models.Assignment{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

func (r *assignmentRepository) CountByWork(ctx context.Context, workID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Assignment{}).Where("work_id = ?", workID).Count(&count).Error
	return count, err
}
