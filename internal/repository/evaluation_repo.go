package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/eduwork-api/internal/grading"
	"github.com/noah-isme/eduwork-api/internal/models"
)

// SampleFilter narrows the evaluated grades fed to aggregation.
type SampleFilter struct {
	StudentID     *uint
	GroupID       *uint
	CourseSpaceID *uint
	WorkID        *uint
}

// EvaluationRepository persists evaluations and their correction trail.
type EvaluationRepository interface {
	GetByID(ctx context.Context, id uint) (models.Evaluation, error)
	GetBySubmission(ctx context.Context, submissionID uint) (models.Evaluation, error)
	// Create locks the submission row and inserts its first evaluation. The
	// unique index on submission_id turns a concurrent second insert into
	// gorm.ErrDuplicatedKey.
	Create(ctx context.Context, evaluation *models.Evaluation) error
	// ApplyCorrection lets apply change the stored evaluation and persists it
	// along with the returned correction record in one transaction.
	ApplyCorrection(ctx context.Context, id uint, apply func(evaluation *models.Evaluation) (models.EvaluationCorrection, error)) (models.Evaluation, error)
	ListCorrections(ctx context.Context, evaluationID uint) ([]models.EvaluationCorrection, error)
	ListForStudent(ctx context.Context, studentID uint) ([]models.Evaluation, error)
	ListSamples(ctx context.Context, filter SampleFilter) ([]grading.Sample, error)
}

type evaluationRepository struct {
	db *gorm.DB
}

// NewEvaluationRepository constructs the evaluation repository.
func NewEvaluationRepository(db *gorm.DB) EvaluationRepository {
	return &evaluationRepository{db: db}
}

func (r *evaluationRepository) GetByID(ctx context.Context, id uint) (models.Evaluation, error) {
	var evaluation models.Evaluation
	if err := r.db.WithContext(ctx).First(&evaluation, id).Error; err != nil {
		return models.Evaluation{}, err
	}
	return evaluation, nil
}

func (r *evaluationRepository) GetBySubmission(ctx context.Context, submissionID uint) (models.Evaluation, error) {
	var evaluation models.Evaluation
	if err := r.db.WithContext(ctx).Where("submission_id = ?", submissionID).First(&evaluation).Error; err != nil {
		return models.Evaluation{}, err
	}
	return evaluation, nil
}

func (r *evaluationRepository) Create(ctx context.Context, evaluation *models.Evaluation) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var submission models.Submission
		if err := forUpdate(tx).Select("id").First(&submission, evaluation.SubmissionID).Error; err != nil {
			return err
		}
		return tx.Omit(clause.Associations).Create(evaluation).Error
	})
}

func (r *evaluationRepository) ApplyCorrection(ctx context.Context, id uint, apply func(evaluation *models.Evaluation) (models.EvaluationCorrection, error)) (models.Evaluation, error) {
	var evaluation models.Evaluation
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := forUpdate(tx).First(&evaluation, id).Error; err != nil {
			return err
		}

		record, err := apply(&evaluation)
		if err != nil {
			return err
		}

		if err := tx.Omit(clause.Associations).Save(&evaluation).Error; err != nil {
			return err
		}

		record.EvaluationID = evaluation.ID
		return tx.Create(&record).Error
	})
	if err != nil {
		return models.Evaluation{}, err
	}
	return evaluation, nil
}

func (r *evaluationRepository) ListCorrections(ctx context.Context, evaluationID uint) ([]models.EvaluationCorrection, error) {
	var corrections []models.EvaluationCorrection
	if err := r.db.WithContext(ctx).
		Where("evaluation_id = ?", evaluationID).
		Order("corrected_at ASC, id ASC").
		Find(&corrections).Error; err != nil {
		return nil, err
	}
	return corrections, nil
}

func (r *evaluationRepository) ListForStudent(ctx context.Context, studentID uint) ([]models.Evaluation, error) {
	var evaluations []models.Evaluation
	if err := r.db.WithContext(ctx).
		Joins("JOIN submissions ON submissions.id = evaluations.submission_id").
		Where(studentSubmissionsClause(r.db, studentID)).
		Order("evaluations.evaluated_at DESC").
		Find(&evaluations).Error; err != nil {
		return nil, err
	}
	return evaluations, nil
}

type sampleRow struct {
	EvaluationID  uint
	Grade         float64
	TargetKind    models.TargetKind
	WorkID        uint
	CourseSpaceID uint
	CourseName    string
}

func (r *evaluationRepository) ListSamples(ctx context.Context, filter SampleFilter) ([]grading.Sample, error) {
	query := r.db.WithContext(ctx).
		Table("evaluations").
		Select(`evaluations.id AS evaluation_id, evaluations.grade AS grade,
			submissions.target_kind AS target_kind, works.id AS work_id,
			works.course_space_id AS course_space_id, course_spaces.name AS course_name`).
		Joins("JOIN submissions ON submissions.id = evaluations.submission_id").
		Joins("JOIN works ON works.id = submissions.work_id").
		Joins("LEFT JOIN course_spaces ON course_spaces.id = works.course_space_id")

	if filter.StudentID != nil {
		query = query.Where(studentSubmissionsClause(r.db, *filter.StudentID))
	}
	if filter.GroupID != nil {
		query = query.Where("submissions.group_id = ?", *filter.GroupID)
	}
	if filter.CourseSpaceID != nil {
		query = query.Where("works.course_space_id = ?", *filter.CourseSpaceID)
	}
	if filter.WorkID != nil {
		query = query.Where("works.id = ?", *filter.WorkID)
	}

	var rows []sampleRow
	if err := query.Order("evaluations.id ASC").Scan(&rows).Error; err != nil {
		return nil, err
	}

	samples := make([]grading.Sample, 0, len(rows))
	for _, row := range rows {
		samples = append(samples, grading.Sample{
			EvaluationID:  row.EvaluationID,
			Grade:         row.Grade,
			Source:        row.TargetKind,
			WorkID:        row.WorkID,
			CourseSpaceID: row.CourseSpaceID,
			CourseName:    row.CourseName,
		})
	}
	return samples, nil
}

// studentSubmissionsClause matches submissions delivered by the student,
// either on their own assignment or by one of their groups.
func studentSubmissionsClause(db *gorm.DB, studentID uint) *gorm.DB {
	assignments := db.Model(&models.Assignment{}).Select("id").Where("student_id = ?", studentID)
	groups := db.Model(&models.GroupMember{}).Select("group_id").Where("student_id = ?", studentID)
	return db.Where("submissions.assignment_id IN (?)", assignments).Or("submissions.group_id IN (?)", groups)
}
