package repository

import (
	"context"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/eduwork-api/internal/models"
)

// WorkFilter describes pagination & search options.
type WorkFilter struct {
	CourseSpaceID *uint
	Kind          *models.WorkKind
	Search        string
	Sort          string
	Page          int
	PageSize      int
}

// WorkRepository defines persistence operations for works.
type WorkRepository interface {
	List(ctx context.Context, filter WorkFilter) ([]models.Work, int64, error)
	GetByID(ctx context.Context, id uint) (models.Work, error)
	Create(ctx context.Context, work *models.Work) error
	// Mutate loads the work and whether it already has submissions, lets
	// apply change it, and saves it in the same transaction.
	Mutate(ctx context.Context, id uint, apply func(work *models.Work, submitted bool) error) (models.Work, error)
	// DeleteUnsubmitted deletes the work and its distribution unless a submission exists.
	DeleteUnsubmitted(ctx context.Context, id uint) error
}

type workRepository struct {
	db *gorm.DB
}

// NewWorkRepository instantiates a GORM-backed repository.
func NewWorkRepository(db *gorm.DB) WorkRepository {
	return &workRepository{db: db}
}

func (r *workRepository) List(ctx context.Context, filter WorkFilter) ([]models.Work, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Work{})

	if filter.CourseSpaceID != nil {
		query = query.Where("course_space_id = ?", *filter.CourseSpaceID)
	}
	if filter.Kind != nil {
		query = query.Where("kind = ?", *filter.Kind)
	}
	if filter.Search != "" {
		pattern := "%" + strings.ToLower(strings.TrimSpace(filter.Search)) + "%"
		query = query.Where("LOWER(title) LIKE ? OR LOWER(instructions) LIKE ?", pattern, pattern)
	}

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset, limit := paginate(filter.Page, filter.PageSize)

	var works []models.Work
	if err := query.Preload("CourseSpace").
		Order(normalizeWorkSort(filter.Sort)).
		Offset(offset).
		Limit(limit).
		Find(&works).Error; err != nil {
		return nil, 0, err
	}

	return works, total, nil
}

func (r *workRepository) GetByID(ctx context.Context, id uint) (models.Work, error) {
	var work models.Work
	if err := r.db.WithContext(ctx).Preload("CourseSpace").First(&work, id).Error; err != nil {
		return models.Work{}, err
	}

	return work, nil
}

func (r *workRepository) Create(ctx context.Context, work *models.Work) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(work).Error
}

func (r *workRepository) Mutate(ctx context.Context, id uint, apply func(work *models.Work, submitted bool) error) (models.Work, error) {
	var work models.Work
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := forUpdate(tx).First(&work, id).Error; err != nil {
			return err
		}

		var submissions int64
		if err := tx.Model(&models.Submission{}).Where("work_id = ?", id).Count(&submissions).Error; err != nil {
			return err
		}

		if err := apply(&work, submissions > 0); err != nil {
			return err
		}

		return tx.Omit(clause.Associations).Save(&work).Error
	})
	if err != nil {
		return models.Work{}, err
	}

	return r.GetByID(ctx, id)
}

func (r *workRepository) DeleteUnsubmitted(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var work models.Work
		if err := forUpdate(tx).First(&work, id).Error; err != nil {
			return err
		}

		var submissions int64
		if err := tx.Model(&models.Submission{}).Where("work_id = ?", id).Count(&submissions).Error; err != nil {
			return err
		}
		if submissions > 0 {
			return ErrTargetSubmitted
		}

		if err := tx.Where("work_id = ?", id).Delete(&models.GroupMember{}).Error; err != nil {
			return err
		}
		if err := tx.Where("work_id = ?", id).Delete(&models.Group{}).Error; err != nil {
			return err
		}
		if err := tx.Where("work_id = ?", id).Delete(&models.Assignment{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Work{}, id).Error
	})
}

func normalizeWorkSort(sort string) string {
	switch strings.ToLower(strings.TrimSpace(sort)) {
	case "-due_date", "due_date:desc", "due_date.desc":
		return "due_date DESC"
	case "start_date", "start_date:asc", "start_date.asc":
		return "start_date ASC"
	case "-start_date", "start_date:desc", "start_date.desc":
		return "start_date DESC"
	case "title", "title:asc", "title.asc":
		return "title ASC"
	case "-title", "title:desc", "title.desc":
		return "title DESC"
	case "-created_at", "created_at:desc", "created_at.desc":
		return "created_at DESC"
	default:
		return "due_date ASC"
	}
}
