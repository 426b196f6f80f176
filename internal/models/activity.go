package models

import (
	"time"

	"gorm.io/datatypes"
)

// Activity actions
const (
	ActionTaskCreated       = "task_created"
	ActionTaskUpdated       = "task_updated"
	ActionTaskMoved         = "task_moved"
	ActionTaskDeleted       = "task_deleted"
	ActionTaskAssigned      = "task_assigned"
	ActionMemberAdded       = "member_added"
	ActionMemberRemoved     = "member_removed"
	ActionMemberRoleUpdated = "member_role_updated"
	ActionProjectCreated    = "project_created"
	ActionProjectUpdated    = "project_updated"
)

// Activity is an append-only feed entry describing one mutation
type Activity struct {
	ID        uint              `gorm:"primaryKey" json:"id"`
	ProjectID uint              `gorm:"index;not null" json:"project_id"`
	UserID    uint              `gorm:"index;not null" json:"user_id"`
	User      *User             `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Action    string            `gorm:"size:50;not null" json:"action"`
	TaskID    *uint             `json:"task_id"`
	Task      *Task             `gorm:"foreignKey:TaskID" json:"task,omitempty"`
	Metadata  datatypes.JSONMap `json:"metadata"`
	CreatedAt time.Time         `gorm:"index" json:"created_at"`
}

func (Activity) TableName() string { return "activities" }

func IsValidAction(action string) bool {
	switch action {
	case ActionTaskCreated, ActionTaskUpdated, ActionTaskMoved, ActionTaskDeleted,
		ActionTaskAssigned, ActionMemberAdded, ActionMemberRemoved,
		ActionMemberRoleUpdated, ActionProjectCreated, ActionProjectUpdated:
		return true
	}
	return false
}
