package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/eduwork-api/internal/models"
)

// GroupRepository persists groups and their memberships.
type GroupRepository interface {
	GetByID(ctx context.Context, id uint) (models.Group, error)
	ListByWork(ctx context.Context, workID uint) ([]models.Group, error)
	ListByIDs(ctx context.Context, ids []uint) ([]models.Group, error)
	NameExists(ctx context.Context, workID uint, name string) (bool, error)
	// GroupedStudents returns the memberships of the given students in any group of workID.
	GroupedStudents(ctx context.Context, workID uint, studentIDs []uint) ([]models.GroupMember, error)
	// CreateWithMembers inserts the group and its members atomically; unique
	// index violations surface as ErrGroupNameTaken or ErrStudentAlreadyGrouped.
	CreateWithMembers(ctx context.Context, group *models.Group, studentIDs []uint) error
	AddMember(ctx context.Context, groupID, studentID uint) (models.Group, error)
	RemoveMember(ctx context.Context, groupID, studentID uint) (models.Group, error)
	// DeleteUnsubmitted removes the group unless a submission references it.
	DeleteUnsubmitted(ctx context.Context, id uint) error
	HasSubmission(ctx context.Context, groupID uint) (bool, error)
}

type groupRepository struct {
	db *gorm.DB
}

// NewGroupRepository constructs the group repository.
func NewGroupRepository(db *gorm.DB) GroupRepository {
	return &groupRepository{db: db}
}

func (r *groupRepository) baseQuery(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Model(&models.Group{}).
		Preload("Members", func(tx *gorm.DB) *gorm.DB {
			return tx.Order("position ASC")
		})
}

func (r *groupRepository) GetByID(ctx context.Context, id uint) (models.Group, error) {
	var group models.Group
	if err := r.baseQuery(ctx).First(&group, id).Error; err != nil {
		return models.Group{}, err
	}
	return group, nil
}

func (r *groupRepository) ListByWork(ctx context.Context, workID uint) ([]models.Group, error) {
	var groups []models.Group
	if err := r.baseQuery(ctx).Where("work_id = ?", workID).Order("name ASC").Find(&groups).Error; err != nil {
		return nil, err
	}
	return groups, nil
}

func (r *groupRepository) ListByIDs(ctx context.Context, ids []uint) ([]models.Group, error) {
	if len(ids) == 0 {
		return []models.Group{}, nil
	}
	var groups []models.Group
	if err := r.baseQuery(ctx).Where("id IN ?", ids).Order("id ASC").Find(&groups).Error; err != nil {
		return nil, err
	}
	return groups, nil
}

func (r *groupRepository) NameExists(ctx context.Context, workID uint, name string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Group{}).
		Where("work_id = ? AND name = ?", workID, name).
		Count(&count).Error
	return count > 0, err
}

func (r *groupRepository) GroupedStudents(ctx context.Context, workID uint, studentIDs []uint) ([]models.GroupMember, error) {
	if len(studentIDs) == 0 {
		return []models.GroupMember{}, nil
	}
	var members []models.GroupMember
	err := r.db.WithContext(ctx).
		Where("work_id = ? AND student_id IN ?", workID, studentIDs).
		Order("student_id ASC").
		Find(&members).Error
	return members, err
}

func (r *groupRepository) CreateWithMembers(ctx context.Context, group *models.Group, studentIDs []uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(group).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrGroupNameTaken
			}
			return err
		}

		members := make([]models.GroupMember, 0, len(studentIDs))
		for i, studentID := range studentIDs {
			member := models.GroupMember{
				GroupID:   group.ID,
				WorkID:    group.WorkID,
				StudentID: studentID,
				Position:  i,
			}
			if err := tx.Create(&member).Error; err != nil {
				if errors.Is(err, gorm.ErrDuplicatedKey) {
					return ErrStudentAlreadyGrouped
				}
				return err
			}
			members = append(members, member)
		}

		group.Members = members
		return nil
	})
}

func (r *groupRepository) AddMember(ctx context.Context, groupID, studentID uint) (models.Group, error) {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var group models.Group
		if err := forUpdate(tx).First(&group, groupID).Error; err != nil {
			return err
		}

		if submitted, err := groupSubmitted(tx, groupID); err != nil {
			return err
		} else if submitted {
			return ErrTargetSubmitted
		}

		var position int
		if err := tx.Model(&models.GroupMember{}).
			Select("COALESCE(MAX(position), -1) + 1").
			Where("group_id = ?", groupID).
			Scan(&position).Error; err != nil {
			return err
		}

		member := models.GroupMember{GroupID: groupID, WorkID: group.WorkID, StudentID: studentID, Position: position}
		if err := tx.Create(&member).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrStudentAlreadyGrouped
			}
			return err
		}
		return nil
	})
	if err != nil {
		return models.Group{}, err
	}
	return r.GetByID(ctx, groupID)
}

func (r *groupRepository) RemoveMember(ctx context.Context, groupID, studentID uint) (models.Group, error) {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockTarget(tx, models.GroupTarget{GroupID: groupID}); err != nil {
			return err
		}
		if submitted, err := groupSubmitted(tx, groupID); err != nil {
			return err
		} else if submitted {
			return ErrTargetSubmitted
		}

		var count int64
		if err := tx.Model(&models.GroupMember{}).Where("group_id = ?", groupID).Count(&count).Error; err != nil {
			return err
		}

		result := tx.Where("group_id = ? AND student_id = ?", groupID, studentID).Delete(&models.GroupMember{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		if count <= 1 {
			return ErrLastMember
		}
		return nil
	})
	if err != nil {
		return models.Group{}, err
	}
	return r.GetByID(ctx, groupID)
}

func (r *groupRepository) DeleteUnsubmitted(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockTarget(tx, models.GroupTarget{GroupID: id}); err != nil {
			return err
		}
		if submitted, err := groupSubmitted(tx, id); err != nil {
			return err
		} else if submitted {
			return ErrTargetSubmitted
		}

		if err := tx.Where("group_id = ?", id).Delete(&models.GroupMember{}).Error; err != nil {
			return err
		}

		result := tx.Delete(&models.Group{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

func (r *groupRepository) HasSubmission(ctx context.Context, groupID uint) (bool, error) {
	return groupSubmitted(r.db.WithContext(ctx), groupID)
}

func groupSubmitted(tx *gorm.DB, groupID uint) (bool, error) {
	var count int64
	if err := tx.Model(&models.Submission{}).Where("group_id = ?", groupID).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}
