package services

import (
	"strings"
	"time"

	"github.com/collabflow/backend/internal/models"
	"github.com/collabflow/backend/pkg/response"
	"gorm.io/gorm"
)

type TaskService struct {
	db          *gorm.DB
	activities  *ActivityService
	broadcaster Broadcaster
}

func NewTaskService(db *gorm.DB, activities *ActivityService, broadcaster Broadcaster) *TaskService {
	return &TaskService{db: db, activities: activities, broadcaster: broadcaster}
}

type CreateTaskRequest struct {
	ProjectID   FlexID  `json:"projectId"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Status      string  `json:"status"`
	Priority    string  `json:"priority"`
	Assignee    *FlexID `json:"assignee"`
	DueDate     *string `json:"dueDate"`
}

type MoveTaskRequest struct {
	NewStatus string `json:"newStatus"`
}

// updatableFields are the request keys that map to stored task columns.
var updatableFields = []string{"title", "description", "status", "priority", "assignee", "dueDate"}

func isUpdatableField(key string) bool {
	for _, f := range updatableFields {
		if f == key {
			return true
		}
	}
	return false
}

func validateTaskTitle(title string) (string, error) {
	return cleanText(title, true, 200, "Task title is required", "Task title cannot be more than 200 characters")
}

func validateTaskDescription(desc string) (string, error) {
	return cleanText(desc, false, 2000, "", "Description cannot be more than 2000 characters")
}

// Create adds a task to a project the creator belongs to.
func (s *TaskService) Create(req *CreateTaskRequest, creatorID uint) (*models.Task, error) {
	if req.ProjectID == 0 {
		return nil, response.NewBadRequest("Project ID is required")
	}
	project, err := loadProjectForMember(s.db, uint(req.ProjectID), creatorID)
	if err != nil {
		return nil, err
	}

	title, err := validateTaskTitle(req.Title)
	if err != nil {
		return nil, err
	}
	desc, err := validateTaskDescription(req.Description)
	if err != nil {
		return nil, err
	}

	task := models.Task{
		ProjectID:   project.ID,
		Title:       title,
		Description: desc,
		Status:      models.TaskStatusTodo,
		Priority:    models.TaskPriorityMedium,
		CreatedByID: creatorID,
	}
	if req.Status != "" {
		if !models.IsValidTaskStatus(req.Status) {
			return nil, response.NewBadRequest("Invalid status")
		}
		task.Status = req.Status
	}
	if req.Priority != "" {
		if !models.IsValidTaskPriority(req.Priority) {
			return nil, response.NewBadRequest("Invalid priority")
		}
		task.Priority = req.Priority
	}
	if req.Assignee != nil && *req.Assignee != 0 {
		assignee := uint(*req.Assignee)
		if !IsMember(project, assignee) {
			return nil, response.NewBadRequest("Assignee must be a project member")
		}
		task.AssigneeID = &assignee
	}
	if req.DueDate != nil && strings.TrimSpace(*req.DueDate) != "" {
		if task.DueDate, err = parseDueDate(*req.DueDate); err != nil {
			return nil, err
		}
	}

	if err := s.db.Create(&task).Error; err != nil {
		return nil, err
	}

	populated, err := s.populated(task.ID)
	if err != nil {
		return nil, err
	}

	room := ProjectRoom(project.ID)
	activity := s.activities.Track(project.ID, creatorID, models.ActionTaskCreated, &task.ID, map[string]interface{}{
		"taskTitle": task.Title,
	})
	s.broadcaster.Broadcast(room, "task:created", map[string]interface{}{"task": populated})
	s.announceActivity(room, activity)

	return populated, nil
}

// Update applies the keys present in fields. Keys outside the updatable set
// are not stored but appear in the activity diff and the broadcast.
func (s *TaskService) Update(id, userID uint, fields map[string]interface{}) (*models.Task, error) {
	task, err := loadTask(s.db, id)
	if err != nil {
		return nil, err
	}
	project, err := loadProjectForMember(s.db, task.ProjectID, userID)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	changes := map[string]interface{}{}

	stored := map[string]interface{}{
		"title":       task.Title,
		"description": task.Description,
		"status":      task.Status,
		"priority":    task.Priority,
		"assignee":    task.AssigneeID,
		"dueDate":     task.DueDate,
	}

	for _, key := range updatableFields {
		raw, present := fields[key]
		if !present {
			continue
		}

		column, value, err := s.parseUpdate(project, key, raw)
		if err != nil {
			return nil, err
		}
		updates[column] = value

		// Best-effort shallow diff: both sides compared in their string form.
		if formatValue(stored[key]) != formatValue(raw) {
			changes[key] = map[string]interface{}{
				"old": diffValue(stored[key]),
				"new": raw,
			}
		}
	}

	// Keys that are not stored have no previous value.
	for key, raw := range fields {
		if isUpdatableField(key) || formatValue(raw) == "" {
			continue
		}
		changes[key] = map[string]interface{}{"old": nil, "new": raw}
	}

	updates["updated_at"] = time.Now()
	if err := s.db.Model(&models.Task{}).Where("id = ?", id).Updates(updates).Error; err != nil {
		return nil, err
	}

	populated, err := s.populated(id)
	if err != nil {
		return nil, err
	}

	room := ProjectRoom(task.ProjectID)
	activity := s.activities.Track(task.ProjectID, userID, models.ActionTaskUpdated, &task.ID, map[string]interface{}{
		"taskTitle": populated.Title,
		"changes":   changes,
	})
	s.broadcaster.Broadcast(room, "task:updated", map[string]interface{}{
		"taskId":  task.ID,
		"updates": fields,
	})
	s.announceActivity(room, activity)

	return populated, nil
}

// parseUpdate validates one request key and returns the column and value to store.
func (s *TaskService) parseUpdate(project *models.Project, key string, raw interface{}) (string, interface{}, error) {
	switch key {
	case "title":
		str, _ := raw.(string)
		title, err := cleanText(str, true, 200, "Title cannot be empty", "Task title cannot be more than 200 characters")
		return "title", title, err
	case "description":
		str, _ := raw.(string)
		desc, err := validateTaskDescription(str)
		return "description", desc, err
	case "status":
		str, _ := raw.(string)
		if !models.IsValidTaskStatus(str) {
			return "", nil, response.NewBadRequest("Invalid status")
		}
		return "status", str, nil
	case "priority":
		str, _ := raw.(string)
		if !models.IsValidTaskPriority(str) {
			return "", nil, response.NewBadRequest("Invalid priority")
		}
		return "priority", str, nil
	case "assignee":
		if raw == nil || raw == "" {
			return "assignee_id", nil, nil
		}
		assignee, ok := parseID(raw)
		if !ok || !IsMember(project, assignee) {
			return "", nil, response.NewBadRequest("Assignee must be a project member")
		}
		return "assignee_id", assignee, nil
	case "dueDate":
		if raw == nil {
			return "due_date", nil, nil
		}
		str, ok := raw.(string)
		if !ok {
			return "", nil, response.NewBadRequest("Invalid date format")
		}
		if strings.TrimSpace(str) == "" {
			return "due_date", nil, nil
		}
		due, err := parseDueDate(str)
		if err != nil {
			return "", nil, err
		}
		return "due_date", *due, nil
	}
	return "", nil, response.NewBadRequest("Unknown field " + key)
}

// Delete removes a task. Only global admins and PMs may delete.
func (s *TaskService) Delete(id, userID uint, role string) error {
	if !HasGlobalRole(role, models.RoleAdmin, models.RolePM) {
		return response.NewForbidden("User role " + role + " is not authorized to access this route")
	}
	task, err := loadTask(s.db, id)
	if err != nil {
		return err
	}
	if _, err := loadProjectForMember(s.db, task.ProjectID, userID); err != nil {
		return err
	}

	if err := s.db.Delete(&models.Task{}, id).Error; err != nil {
		return err
	}

	room := ProjectRoom(task.ProjectID)
	activity := s.activities.Track(task.ProjectID, userID, models.ActionTaskDeleted, nil, map[string]interface{}{
		"taskTitle": task.Title,
	})
	s.broadcaster.Broadcast(room, "task:deleted", map[string]interface{}{"taskId": task.ID})
	s.announceActivity(room, activity)
	return nil
}

// Move changes a task's status. Moving to the current status is allowed and
// still recorded.
func (s *TaskService) Move(id, userID uint, req *MoveTaskRequest) (*models.Task, error) {
	if req.NewStatus == "" {
		return nil, response.NewBadRequest("New status is required")
	}
	if !models.IsValidTaskStatus(req.NewStatus) {
		return nil, response.NewBadRequest("Invalid status")
	}
	task, err := loadTask(s.db, id)
	if err != nil {
		return nil, err
	}
	if _, err := loadProjectForMember(s.db, task.ProjectID, userID); err != nil {
		return nil, err
	}

	oldStatus := task.Status
	err = s.db.Model(&models.Task{}).Where("id = ?", id).Updates(map[string]interface{}{
		"status":     req.NewStatus,
		"updated_at": time.Now(),
	}).Error
	if err != nil {
		return nil, err
	}

	populated, err := s.populated(id)
	if err != nil {
		return nil, err
	}

	room := ProjectRoom(task.ProjectID)
	activity := s.activities.Track(task.ProjectID, userID, models.ActionTaskMoved, &task.ID, map[string]interface{}{
		"taskTitle": task.Title,
		"oldStatus": oldStatus,
		"newStatus": req.NewStatus,
	})
	s.broadcaster.Broadcast(room, "task:moved", map[string]interface{}{
		"taskId":    task.ID,
		"oldStatus": oldStatus,
		"newStatus": req.NewStatus,
	})
	s.announceActivity(room, activity)

	return populated, nil
}

func (s *TaskService) populated(id uint) (*models.Task, error) {
	var task models.Task
	err := s.db.Preload("Assignee").
		Preload("CreatedBy").
		Preload("Project").
		First(&task, id).Error
	if err != nil {
		return nil, err
	}
	return &task, nil
}

// announceActivity is skipped when the activity could not be recorded.
func (s *TaskService) announceActivity(room string, activity *models.Activity) {
	if activity == nil {
		return
	}
	s.broadcaster.Broadcast(room, "activity:new", map[string]interface{}{"activity": activity})
}
