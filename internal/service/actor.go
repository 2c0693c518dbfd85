package service

import "github.com/noah-isme/eduwork-api/internal/models"

// Actor is the authenticated caller of a lifecycle operation. It is passed
// explicitly to every operation so authorization never depends on request state.
type Actor struct {
	ID   uint
	Role models.Role
}

// NewActor builds an actor from token claims.
func NewActor(id uint, role string) Actor {
	return Actor{ID: id, Role: models.ParseRole(role)}
}

// IsStaff reports whether the actor is a trainer or a director.
func (a Actor) IsStaff() bool {
	return a.ID != 0 && a.Role.IsStaff()
}

// IsDirector reports whether the actor holds correction authority.
func (a Actor) IsDirector() bool {
	return a.ID != 0 && a.Role == models.RoleDirector
}

// IsStudent reports whether the actor is a student.
func (a Actor) IsStudent() bool {
	return a.ID != 0 && a.Role == models.RoleStudent
}

func (a Actor) roleName() string {
	if a.Role == "" {
		return "unknown"
	}
	return string(a.Role)
}
