package models

import "strings"

// Role is the platform role asserted by the identity provider.
type Role string

const (
	RoleStudent  Role = "student"
	RoleTrainer  Role = "trainer"
	RoleDirector Role = "director"
)

var roleAliases = map[string]Role{
	"student":   RoleStudent,
	"etudiant":  RoleStudent,
	"trainer":   RoleTrainer,
	"teacher":   RoleTrainer,
	"formateur": RoleTrainer,
	"director":  RoleDirector,
	"directeur": RoleDirector,
	"admin":     RoleDirector,
}

// ParseRole maps a token role (case-insensitive, with legacy aliases) to a
// Role. Unknown values yield the empty role, which grants nothing.
func ParseRole(value string) Role {
	return roleAliases[strings.ToLower(strings.TrimSpace(value))]
}

// IsStaff reports whether the role may author, distribute and evaluate work.
func (r Role) IsStaff() bool {
	return r == RoleTrainer || r == RoleDirector
}
