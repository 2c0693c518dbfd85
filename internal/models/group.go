package models

import "time"

// Group is a set of students collectively bound to one collective work.
type Group struct {
	ID        uint          `gorm:"primaryKey" json:"id"`
	WorkID    uint          `gorm:"not null;uniqueIndex:idx_group_work_name" json:"work_id"`
	Name      string        `gorm:"size:255;not null;uniqueIndex:idx_group_work_name" json:"name"`
	Mode      GroupMode     `gorm:"size:24;not null" json:"mode"`
	CreatedBy uint          `gorm:"not null" json:"created_by"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
	Members   []GroupMember `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"members"`
}

// TableName avoids the GROUPS keyword some SQL dialects reserve.
func (Group) TableName() string {
	return "work_groups"
}

// MemberIDs returns the member student identifiers in insertion order.
func (g Group) MemberIDs() []uint {
	ids := make([]uint, 0, len(g.Members))
	for _, member := range g.Members {
		ids = append(ids, member.StudentID)
	}
	return ids
}

// HasMember reports whether studentID belongs to the group.
func (g Group) HasMember(studentID uint) bool {
	for _, member := range g.Members {
		if member.StudentID == studentID {
			return true
		}
	}
	return false
}

// GroupMember binds a student to a group. WorkID is duplicated from the group
// so that the (work, student) unique index rejects a second group membership
// at insert time.
type GroupMember struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	GroupID   uint      `gorm:"not null;index" json:"group_id"`
	WorkID    uint      `gorm:"not null;uniqueIndex:idx_member_work_student" json:"work_id"`
	StudentID uint      `gorm:"not null;uniqueIndex:idx_member_work_student" json:"student_id"`
	Position  int       `gorm:"not null" json:"position"`
	CreatedAt time.Time `json:"created_at"`
}
