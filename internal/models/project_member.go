package models

import (
	"time"

	"gorm.io/gorm"
)

// Project roles
const (
	ProjectRoleOwner  = "owner"
	ProjectRolePM     = "pm"
	ProjectRoleMember = "member"
	ProjectRoleClient = "client"
)

// ProjectMember represents a user's membership and role within a project.
type ProjectMember struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ProjectID uint      `gorm:"uniqueIndex:idx_project_user;not null" json:"project_id"`
	UserID    uint      `gorm:"uniqueIndex:idx_project_user;not null" json:"user_id"`
	User      *User     `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Role      string    `gorm:"size:20;default:member" json:"role"` // owner, pm, member, client
	JoinedAt  time.Time `json:"joined_at"`
}

func (ProjectMember) TableName() string { return "project_members" }

func (m *ProjectMember) BeforeCreate(tx *gorm.DB) error {
	if m.JoinedAt.IsZero() {
		m.JoinedAt = time.Now()
	}
	return nil
}

func IsValidProjectRole(role string) bool {
	switch role {
	case ProjectRoleOwner, ProjectRolePM, ProjectRoleMember, ProjectRoleClient:
		return true
	}
	return false
}

// ProjectRoleFor maps a global role to the role a user receives when invited.
func ProjectRoleFor(globalRole string) string {
	switch globalRole {
	case RolePM, RoleAdmin:
		return ProjectRolePM
	case RoleClient:
		return ProjectRoleClient
	default:
		return ProjectRoleMember
	}
}
