package repository

import (
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/eduwork-api/internal/models"
)

var (
	// ErrGroupNameTaken indicates the (work, name) unique index rejected a group.
	ErrGroupNameTaken = errors.New("group name already taken for this work")
	// ErrStudentAlreadyGrouped indicates the (work, student) unique index rejected a membership.
	ErrStudentAlreadyGrouped = errors.New("student already belongs to a group of this work")
	// ErrTargetSubmitted indicates an assignment or group cannot change because it was submitted.
	ErrTargetSubmitted = errors.New("target already has a submission")
	// ErrLastMember indicates removing the member would leave the group empty.
	ErrLastMember = errors.New("group must keep at least one member")
)

// forUpdate takes row locks on the selected rows until the transaction ends.
// Drivers without row locking (sqlite) drop the clause.
func forUpdate(tx *gorm.DB) *gorm.DB {
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}

// lockTarget locks the assignment or group row a submission belongs to, so
// every writer on that target (submit, membership edits, removal) runs one
// after the other.
func lockTarget(tx *gorm.DB, target models.Target) error {
	switch t := target.(type) {
	case models.AssignmentTarget:
		var assignment models.Assignment
		return forUpdate(tx).Select("id").First(&assignment, t.AssignmentID).Error
	case models.GroupTarget:
		var group models.Group
		return forUpdate(tx).Select("id").First(&group, t.GroupID).Error
	default:
		return models.ErrInvalidSubmissionTarget
	}
}

func paginate(page, pageSize int) (offset, limit int) {
	if pageSize <= 0 {
		return 0, -1
	}
	if page <= 0 {
		page = 1
	}
	return (page - 1) * pageSize, pageSize
}
