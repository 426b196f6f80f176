package models

import (
	"time"
)

// Global roles
const (
	RoleAdmin  = "admin"
	RolePM     = "PM"
	RoleMember = "member"
	RoleClient = "client"
)

// User represents an account of the service
type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:100;not null" json:"name"`
	Email     string    `gorm:"uniqueIndex;size:255;not null" json:"email"`
	Password  string    `gorm:"size:255;not null" json:"-"`         // bcrypt hash
	Role      string    `gorm:"size:20;default:member" json:"role"` // admin, PM, member, client
	Avatar    string    `gorm:"size:500" json:"avatar"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (User) TableName() string { return "users" }

// IsValidGlobalRole reports whether role is one of the global roles.
func IsValidGlobalRole(role string) bool {
	switch role {
	case RoleAdmin, RolePM, RoleMember, RoleClient:
		return true
	}
	return false
}
