package handlers

import (
	"github.com/collabflow/backend/internal/middleware"
	"github.com/collabflow/backend/internal/services"
	"github.com/collabflow/backend/pkg/response"
	"github.com/gin-gonic/gin"
)

const taskNotFound = "Task not found"

type TaskHandler struct {
	taskService *services.TaskService
}

func NewTaskHandler(taskService *services.TaskService) *TaskHandler {
	return &TaskHandler{taskService: taskService}
}

// Create adds a task to a project
// POST /api/tasks
func (h *TaskHandler) Create(c *gin.Context) {
	var req services.CreateTaskRequest
	if !bindJSON(c, &req) {
		return
	}

	task, err := h.taskService.Create(&req, middleware.GetUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, task)
}

// Update applies a partial update. Only the keys present in the body change.
// PUT /api/tasks/:id
func (h *TaskHandler) Update(c *gin.Context) {
	id, ok := paramID(c, "id", taskNotFound)
	if !ok {
		return
	}

	var fields map[string]interface{}
	if !bindJSON(c, &fields) {
		return
	}

	task, err := h.taskService.Update(id, middleware.GetUserID(c), fields)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, task)
}

// Move changes a task's status
// PATCH /api/tasks/:id/move
func (h *TaskHandler) Move(c *gin.Context) {
	id, ok := paramID(c, "id", taskNotFound)
	if !ok {
		return
	}

	var req services.MoveTaskRequest
	if !bindJSON(c, &req) {
		return
	}

	task, err := h.taskService.Move(id, middleware.GetUserID(c), &req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, task)
}

// Delete removes a task
// DELETE /api/tasks/:id
func (h *TaskHandler) Delete(c *gin.Context) {
	id, ok := paramID(c, "id", taskNotFound)
	if !ok {
		return
	}

	if err := h.taskService.Delete(id, middleware.GetUserID(c), middleware.GetRole(c)); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, gin.H{})
}
