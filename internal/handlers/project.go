package handlers

import (
	"github.com/collabflow/backend/internal/middleware"
	"github.com/collabflow/backend/internal/services"
	"github.com/collabflow/backend/pkg/response"
	"github.com/gin-gonic/gin"
)

const projectNotFound = "Project not found"

type ProjectHandler struct {
	projectService *services.ProjectService
}

func NewProjectHandler(projectService *services.ProjectService) *ProjectHandler {
	return &ProjectHandler{projectService: projectService}
}

// List returns the caller's projects
// GET /api/projects
func (h *ProjectHandler) List(c *gin.Context) {
	projects, err := h.projectService.List(middleware.GetUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.List(c, projects, len(projects))
}

// Create creates a new project owned by the caller
// POST /api/projects
func (h *ProjectHandler) Create(c *gin.Context) {
	var req services.CreateProjectRequest
	if !bindJSON(c, &req) {
		return
	}

	project, err := h.projectService.Create(&req, middleware.GetUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, project)
}

// Get returns a project with its tasks
// GET /api/projects/:id
func (h *ProjectHandler) Get(c *gin.Context) {
	id, ok := paramID(c, "id", projectNotFound)
	if !ok {
		return
	}

	detail, err := h.projectService.Get(id, middleware.GetUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, detail)
}

// Update updates a project
// PUT /api/projects/:id
func (h *ProjectHandler) Update(c *gin.Context) {
	id, ok := paramID(c, "id", projectNotFound)
	if !ok {
		return
	}

	var req services.UpdateProjectRequest
	if !bindJSON(c, &req) {
		return
	}

	project, err := h.projectService.Update(id, middleware.GetUserID(c), &req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, project)
}

// Delete deletes a project with everything in it
// DELETE /api/projects/:id
func (h *ProjectHandler) Delete(c *gin.Context) {
	id, ok := paramID(c, "id", projectNotFound)
	if !ok {
		return
	}

	if err := h.projectService.Delete(id, middleware.GetUserID(c)); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, gin.H{})
}

// Invite adds registered users to a project by email
// POST /api/projects/:id/invite
func (h *ProjectHandler) Invite(c *gin.Context) {
	id, ok := paramID(c, "id", projectNotFound)
	if !ok {
		return
	}

	var req services.InviteRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.projectService.Invite(id, middleware.GetUserID(c), &req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// RemoveMember drops a member from a project
// DELETE /api/projects/:id/members/:userId
func (h *ProjectHandler) RemoveMember(c *gin.Context) {
	id, ok := paramID(c, "id", projectNotFound)
	if !ok {
		return
	}
	userID, ok := paramID(c, "userId", "User is not a member of this project")
	if !ok {
		return
	}

	project, err := h.projectService.RemoveMember(id, middleware.GetUserID(c), userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, project)
}

// UpdateMemberRole changes a member's project role
// PUT /api/projects/:id/members/:userId
func (h *ProjectHandler) UpdateMemberRole(c *gin.Context) {
	id, ok := paramID(c, "id", projectNotFound)
	if !ok {
		return
	}
	userID, ok := paramID(c, "userId", "User is not a member of this project")
	if !ok {
		return
	}

	var req services.UpdateMemberRoleRequest
	if !bindJSON(c, &req) {
		return
	}

	project, err := h.projectService.UpdateMemberRole(id, middleware.GetUserID(c), userID, &req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, project)
}

// ListTasks returns a project's tasks
// GET /api/projects/:id/tasks
func (h *ProjectHandler) ListTasks(c *gin.Context) {
	id, ok := paramID(c, "id", projectNotFound)
	if !ok {
		return
	}

	tasks, err := h.projectService.ListTasks(id, middleware.GetUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.List(c, tasks, len(tasks))
}
