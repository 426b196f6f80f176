package services

import (
	"errors"

	"github.com/collabflow/backend/internal/models"
	"github.com/collabflow/backend/pkg/response"
	"gorm.io/gorm"
)

const (
	msgProjectNotFound = "Project not found"
	msgTaskNotFound    = "Task not found"
	msgNotMember       = "Access denied. Not a project member"
	msgNotOwner        = "Access denied. Only project owner can perform this action"
)

// IsMember reports whether userID is in the project's loaded member list.
func IsMember(project *models.Project, userID uint) bool {
	return project != nil && project.HasMember(userID)
}

// IsOwner reports whether userID owns the project.
func IsOwner(project *models.Project, userID uint) bool {
	return project != nil && project.OwnerID == userID
}

// HasGlobalRole reports whether role is one of allowed.
func HasGlobalRole(role string, allowed ...string) bool {
	for _, a := range allowed {
		if role == a {
			return true
		}
	}
	return false
}

// withMembers preloads members in insertion order together with their users.
func withMembers(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Members", func(tx *gorm.DB) *gorm.DB {
			return tx.Order("project_members.id ASC")
		}).
		Preload("Members.User")
}

// loadProject returns the project with owner and members, or a 404.
func loadProject(db *gorm.DB, id uint) (*models.Project, error) {
	var project models.Project
	err := withMembers(db).Preload("Owner").First(&project, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, response.NewNotFound(msgProjectNotFound)
		}
		return nil, err
	}
	return &project, nil
}

// loadProjectForMember resolves existence before membership: 404, then 403.
func loadProjectForMember(db *gorm.DB, id, userID uint) (*models.Project, error) {
	project, err := loadProject(db, id)
	if err != nil {
		return nil, err
	}
	if !IsMember(project, userID) {
		return nil, response.NewForbidden(msgNotMember)
	}
	return project, nil
}

// loadProjectForOwner resolves existence before ownership: 404, then 403.
func loadProjectForOwner(db *gorm.DB, id, userID uint) (*models.Project, error) {
	project, err := loadProject(db, id)
	if err != nil {
		return nil, err
	}
	if !IsOwner(project, userID) {
		return nil, response.NewForbidden(msgNotOwner)
	}
	return project, nil
}

func loadTask(db *gorm.DB, id uint) (*models.Task, error) {
	var task models.Task
	if err := db.First(&task, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, response.NewNotFound(msgTaskNotFound)
		}
		return nil, err
	}
	return &task, nil
}
