package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/eduwork-api/internal/models"
)

// EnrollmentRepository answers course-space membership questions.
type EnrollmentRepository interface {
	IsEnrolled(ctx context.Context, courseSpaceID, studentID uint) (bool, error)
	// NotEnrolled returns the subset of studentIDs missing from the course space, in input order.
	NotEnrolled(ctx context.Context, courseSpaceID uint, studentIDs []uint) ([]uint, error)
	ListCourseSpaces(ctx context.Context) ([]models.CourseSpace, error)
	GetCourseSpace(ctx context.Context, id uint) (models.CourseSpace, error)
	// UpsertCourseSpace finds a course space by name, creating it when absent,
	// and enrolls studentIDs. It returns the number of new enrollments.
	UpsertCourseSpace(ctx context.Context, name string, studentIDs []uint) (models.CourseSpace, int64, error)
}

type enrollmentRepository struct {
	db *gorm.DB
}

// NewEnrollmentRepository constructs the enrollment repository.
func NewEnrollmentRepository(db *gorm.DB) EnrollmentRepository {
	return &enrollmentRepository{db: db}
}

func (r *enrollmentRepository) IsEnrolled(ctx context.Context, courseSpaceID, studentID uint) (bool, error) {
	missing, err := r.NotEnrolled(ctx, courseSpaceID, []uint{studentID})
	if err != nil {
		return false, err
	}
	return len(missing) == 0, nil
}

func (r *enrollmentRepository) NotEnrolled(ctx context.Context, courseSpaceID uint, studentIDs []uint) ([]uint, error) {
	if len(studentIDs) == 0 {
		return []uint{}, nil
	}

	var enrolled []uint
	if err := r.db.WithContext(ctx).Model(&models.Enrollment{}).
		Where("course_space_id = ? AND student_id IN ?", courseSpaceID, studentIDs).
		Pluck("student_id", &enrolled).Error; err != nil {
		return nil, err
	}

	known := make(map[uint]struct{}, len(enrolled))
	for _, id := range enrolled {
		known[id] = struct{}{}
	}

	missing := make([]uint, 0)
	for _, id := range studentIDs {
		if _, ok := known[id]; !ok {
			missing = append(missing, id)
		}
	}
	return missing, nil
}

func (r *enrollmentRepository) ListCourseSpaces(ctx context.Context) ([]models.CourseSpace, error) {
	var spaces []models.CourseSpace
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&spaces).Error; err != nil {
		return nil, err
	}
	return spaces, nil
}

func (r *enrollmentRepository) GetCourseSpace(ctx context.Context, id uint) (models.CourseSpace, error) {
	var space models.CourseSpace
	if err := r.db.WithContext(ctx).First(&space, id).Error; err != nil {
		return models.CourseSpace{}, err
	}
	return space, nil
}

func (r *enrollmentRepository) UpsertCourseSpace(ctx context.Context, name string, studentIDs []uint) (models.CourseSpace, int64, error) {
	var space models.CourseSpace
	var inserted int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("name = ?", name).FirstOrCreate(&space, models.CourseSpace{Name: name}).Error; err != nil {
			return err
		}
		if len(studentIDs) == 0 {
			return nil
		}

		rows := make([]models.Enrollment, 0, len(studentIDs))
		for _, id := range studentIDs {
			rows = append(rows, models.Enrollment{CourseSpaceID: space.ID, StudentID: id})
		}
		result := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "course_space_id"}, {Name: "student_id"}},
			DoNothing: true,
		}).Create(&rows)
		if result.Error != nil {
			return result.Error
		}
		inserted = result.RowsAffected
		return nil
	})
	if err != nil {
		return models.CourseSpace{}, 0, err
	}
	return space, inserted, nil
}
