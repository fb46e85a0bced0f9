package entity

import (
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleGuest  Role = "guest"
	RoleMember Role = "member"
	RoleCoach  Role = "coach"
	RoleAdmin  Role = "admin"
)

// IsPrivileged reports whether the role outranks plain membership.
// Privileged roles are never touched by membership-driven projection.
func (r Role) IsPrivileged() bool {
	return r == RoleCoach || r == RoleAdmin
}

type User struct {
	Id           uuid.UUID
	Email        string
	FullName     string
	PasswordHash *string
	Role         Role
	Status       string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
