package handlers

import (
	"github.com/collabflow/backend/internal/middleware"
	"github.com/collabflow/backend/internal/services"
	"github.com/collabflow/backend/pkg/response"
	"github.com/gin-gonic/gin"
)

type ActivityHandler struct {
	activityService *services.ActivityService
}

func NewActivityHandler(activityService *services.ActivityService) *ActivityHandler {
	return &ActivityHandler{activityService: activityService}
}

// ListByProject returns a page of a project's activity feed
// GET /api/activities/project/:projectId
func (h *ActivityHandler) ListByProject(c *gin.Context) {
	projectID, ok := paramID(c, "projectId", projectNotFound)
	if !ok {
		return
	}

	var req services.ActivityListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, "Invalid pagination parameters")
		return
	}

	activities, page, err := h.activityService.ListByProject(projectID, middleware.GetUserID(c), &req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Paginated(c, activities, *page)
}
