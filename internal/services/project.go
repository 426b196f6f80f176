package services

import (
	"strings"
	"time"

	"github.com/collabflow/backend/internal/models"
	"github.com/collabflow/backend/internal/utils"
	"github.com/collabflow/backend/pkg/response"
	"gorm.io/gorm"
)

type ProjectService struct {
	db          *gorm.DB
	activities  *ActivityService
	broadcaster Broadcaster
}

func NewProjectService(db *gorm.DB, activities *ActivityService, broadcaster Broadcaster) *ProjectService {
	return &ProjectService{db: db, activities: activities, broadcaster: broadcaster}
}

type CreateProjectRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type UpdateProjectRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

type InviteRequest struct {
	Emails []string `json:"emails"`
}

type UpdateMemberRoleRequest struct {
	Role string `json:"role"`
}

// ProjectDetail is a project together with its board.
type ProjectDetail struct {
	Project *models.Project `json:"project"`
	Tasks   []models.Task   `json:"tasks"`
}

// InvitedUser is one resolved email of an invite.
type InvitedUser struct {
	ID    uint   `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

type InviteResult struct {
	Project        *models.Project `json:"project"`
	Invited        []InvitedUser   `json:"invited"`
	AlreadyMembers []InvitedUser   `json:"alreadyMembers"`
}

func validateProjectName(name string) (string, error) {
	return cleanText(name, true, 100, "Project name is required", "Project name cannot be more than 100 characters")
}

func validateProjectDescription(desc string) (string, error) {
	return cleanText(desc, false, 500, "", "Description cannot be more than 500 characters")
}

// List returns the projects userID belongs to, most recently updated first.
func (s *ProjectService) List(userID uint) ([]models.Project, error) {
	projects := make([]models.Project, 0)
	err := withMembers(s.db).
		Preload("Owner").
		Where("id IN (?)", s.db.Model(&models.ProjectMember{}).Select("project_id").Where("user_id = ?", userID)).
		Order("updated_at DESC").
		Order("id DESC").
		Find(&projects).Error
	if err != nil {
		return nil, err
	}
	return projects, nil
}

// Create persists a project owned by ownerID. The owner becomes its first member.
func (s *ProjectService) Create(req *CreateProjectRequest, ownerID uint) (*models.Project, error) {
	name, err := validateProjectName(req.Name)
	if err != nil {
		return nil, err
	}
	desc, err := validateProjectDescription(req.Description)
	if err != nil {
		return nil, err
	}

	project := models.Project{
		Name:        name,
		Description: desc,
		OwnerID:     ownerID,
	}
	if err := s.db.Create(&project).Error; err != nil {
		return nil, err
	}

	s.activities.Track(project.ID, ownerID, models.ActionProjectCreated, nil, map[string]interface{}{
		"projectName": project.Name,
	})

	return loadProject(s.db, project.ID)
}

// Get returns a project with its tasks. Membership required.
func (s *ProjectService) Get(id, userID uint) (*ProjectDetail, error) {
	project, err := loadProjectForMember(s.db, id, userID)
	if err != nil {
		return nil, err
	}
	tasks, err := s.tasksOf(id)
	if err != nil {
		return nil, err
	}
	return &ProjectDetail{Project: project, Tasks: tasks}, nil
}

// ListTasks returns the project's tasks newest first. Membership required.
func (s *ProjectService) ListTasks(id, userID uint) ([]models.Task, error) {
	if _, err := loadProjectForMember(s.db, id, userID); err != nil {
		return nil, err
	}
	return s.tasksOf(id)
}

func (s *ProjectService) tasksOf(projectID uint) ([]models.Task, error) {
	tasks := make([]models.Task, 0)
	err := s.db.Where("project_id = ?", projectID).
		Preload("Assignee").
		Preload("CreatedBy").
		Order("created_at DESC").
		Order("id DESC").
		Find(&tasks).Error
	return tasks, err
}

// Update changes name and description. Owner only.
func (s *ProjectService) Update(id, userID uint, req *UpdateProjectRequest) (*models.Project, error) {
	project, err := loadProjectForOwner(s.db, id, userID)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{"updated_at": time.Now()}
	changes := map[string]interface{}{}

	if req.Name != nil {
		name, err := validateProjectName(*req.Name)
		if err != nil {
			return nil, err
		}
		updates["name"] = name
		changes["name"] = map[string]interface{}{"old": project.Name, "new": name}
	}
	if req.Description != nil {
		desc, err := validateProjectDescription(*req.Description)
		if err != nil {
			return nil, err
		}
		updates["description"] = desc
		changes["description"] = map[string]interface{}{"old": project.Description, "new": desc}
	}

	if err := s.db.Model(&models.Project{}).Where("id = ?", id).Updates(updates).Error; err != nil {
		return nil, err
	}

	s.activities.Track(id, userID, models.ActionProjectUpdated, nil, map[string]interface{}{
		"changes": changes,
	})

	return loadProject(s.db, id)
}

// Delete removes the project with its tasks, activities and memberships in
// one transaction. Owner only.
func (s *ProjectService) Delete(id, userID uint) error {
	if _, err := loadProjectForOwner(s.db, id, userID); err != nil {
		return err
	}
	return s.db.Transaction(func(tx *gorm.DB) error {
		return deleteProjectCascade(tx, id)
	})
}

func deleteProjectCascade(tx *gorm.DB, projectID uint) error {
	if err := tx.Where("project_id = ?", projectID).Delete(&models.Task{}).Error; err != nil {
		return err
	}
	if err := tx.Where("project_id = ?", projectID).Delete(&models.Activity{}).Error; err != nil {
		return err
	}
	if err := tx.Where("project_id = ?", projectID).Delete(&models.ProjectMember{}).Error; err != nil {
		return err
	}
	return tx.Delete(&models.Project{}, projectID).Error
}

// Invite adds the users behind emails as members. Owner only. Unknown emails
// are skipped; existing members are reported back untouched.
func (s *ProjectService) Invite(id, userID uint, req *InviteRequest) (*InviteResult, error) {
	project, err := loadProjectForOwner(s.db, id, userID)
	if err != nil {
		return nil, err
	}

	emails := make([]string, 0, len(req.Emails))
	for _, e := range req.Emails {
		if e = utils.NormalizeEmail(e); e != "" {
			emails = append(emails, e)
		}
	}
	if len(emails) == 0 {
		return nil, response.NewBadRequest("Please provide at least one email")
	}

	var users []models.User
	if err := s.db.Where("email IN ?", emails).Order("id ASC").Find(&users).Error; err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return nil, response.NewBadRequest("No users found with provided emails")
	}

	result := &InviteResult{Invited: []InvitedUser{}, AlreadyMembers: []InvitedUser{}}
	var added []models.ProjectMember
	for _, u := range users {
		if existing := project.Member(u.ID); existing != nil {
			result.AlreadyMembers = append(result.AlreadyMembers, InvitedUser{ID: u.ID, Name: u.Name, Email: u.Email, Role: existing.Role})
			continue
		}
		role := models.ProjectRoleFor(u.Role)
		added = append(added, models.ProjectMember{ProjectID: id, UserID: u.ID, Role: role, JoinedAt: time.Now()})
		result.Invited = append(result.Invited, InvitedUser{ID: u.ID, Name: u.Name, Email: u.Email, Role: role})
	}

	if len(added) > 0 {
		err := s.db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Create(&added).Error; err != nil {
				return err
			}
			if err := models.EnsureOwnerMembership(tx, project); err != nil {
				return err
			}
			return tx.Model(&models.Project{}).Where("id = ?", id).Update("updated_at", time.Now()).Error
		})
		if err != nil {
			return nil, err
		}

		for _, m := range added {
			s.activities.Track(id, userID, models.ActionMemberAdded, nil, map[string]interface{}{
				"memberId": m.UserID,
				"role":     m.Role,
			})
		}
	}

	if result.Project, err = loadProject(s.db, id); err != nil {
		return nil, err
	}
	if len(added) > 0 {
		s.announceMembers(result.Project)
	}
	return result, nil
}

// RemoveMember drops userID from the project. Owner only.
func (s *ProjectService) RemoveMember(id, callerID, userID uint) (*models.Project, error) {
	project, err := loadProjectForOwner(s.db, id, callerID)
	if err != nil {
		return nil, err
	}
	if userID == callerID {
		return nil, response.NewBadRequest("You cannot remove yourself from the project")
	}
	if userID == project.OwnerID {
		return nil, response.NewBadRequest("Cannot remove the project owner")
	}
	member := project.Member(userID)
	if member == nil {
		return nil, response.NewNotFound("User is not a member of this project")
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&models.ProjectMember{}, member.ID).Error; err != nil {
			return err
		}
		if err := models.EnsureOwnerMembership(tx, project); err != nil {
			return err
		}
		return tx.Model(&models.Project{}).Where("id = ?", id).Update("updated_at", time.Now()).Error
	})
	if err != nil {
		return nil, err
	}

	meta := map[string]interface{}{"memberId": userID}
	if member.User != nil {
		meta["memberName"] = member.User.Name
	}
	s.activities.Track(id, callerID, models.ActionMemberRemoved, nil, meta)

	updated, err := loadProject(s.db, id)
	if err != nil {
		return nil, err
	}
	s.announceMembers(updated)
	return updated, nil
}

// UpdateMemberRole changes a member's project role. Owner only.
func (s *ProjectService) UpdateMemberRole(id, callerID, userID uint, req *UpdateMemberRoleRequest) (*models.Project, error) {
	project, err := loadProjectForOwner(s.db, id, callerID)
	if err != nil {
		return nil, err
	}
	role := strings.TrimSpace(req.Role)
	if !models.IsValidProjectRole(role) {
		return nil, response.NewBadRequest("Invalid role")
	}
	member := project.Member(userID)
	if member == nil {
		return nil, response.NewNotFound("User is not a member of this project")
	}
	if userID == project.OwnerID {
		return nil, response.NewBadRequest("Cannot change the project owner's role")
	}

	oldRole := member.Role
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.ProjectMember{}).Where("id = ?", member.ID).Update("role", role).Error; err != nil {
			return err
		}
		if err := models.EnsureOwnerMembership(tx, project); err != nil {
			return err
		}
		return tx.Model(&models.Project{}).Where("id = ?", id).Update("updated_at", time.Now()).Error
	})
	if err != nil {
		return nil, err
	}

	s.activities.Track(id, callerID, models.ActionMemberRoleUpdated, nil, map[string]interface{}{
		"memberId": userID,
		"oldRole":  oldRole,
		"newRole":  role,
	})

	updated, err := loadProject(s.db, id)
	if err != nil {
		return nil, err
	}
	s.announceMembers(updated)
	return updated, nil
}

func (s *ProjectService) announceMembers(project *models.Project) {
	s.broadcaster.Broadcast(ProjectRoom(project.ID), "members:updated", map[string]interface{}{
		"projectId": project.ID,
		"members":   project.Members,
	})
}
