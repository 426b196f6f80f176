package services

import (
	"github.com/collabflow/backend/internal/models"
	"github.com/collabflow/backend/pkg/logger"
	"github.com/collabflow/backend/pkg/response"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	defaultActivityLimit = 20
	maxActivityLimit     = 100
)

// ActivityExporter receives every recorded activity. Export must not block.
type ActivityExporter interface {
	Export(activity *models.Activity)
}

type ActivityService struct {
	db       *gorm.DB
	exporter ActivityExporter
}

func NewActivityService(db *gorm.DB) *ActivityService {
	return &ActivityService{db: db}
}

// SetExporter attaches an optional downstream sink for recorded activities.
func (s *ActivityService) SetExporter(e ActivityExporter) {
	s.exporter = e
}

type ActivityListRequest struct {
	Skip  int `form:"skip"`
	Limit int `form:"limit"`
}

// Record appends one activity and returns it with user and task populated.
func (s *ActivityService) Record(projectID, userID uint, action string, taskID *uint, metadata map[string]interface{}) (*models.Activity, error) {
	if metadata == nil {
		metadata = map[string]interface{}{}
	}
	activity := models.Activity{
		ProjectID: projectID,
		UserID:    userID,
		Action:    action,
		TaskID:    taskID,
		Metadata:  datatypes.JSONMap(metadata),
	}
	if err := s.db.Create(&activity).Error; err != nil {
		return nil, err
	}

	if err := s.db.Preload("User").Preload("Task").First(&activity, activity.ID).Error; err != nil {
		logger.Error().Err(err).
			Uint("activity_id", activity.ID).
			Uint("project_id", projectID).
			Msg("failed to load activity relations")
	}

	if s.exporter != nil {
		s.exporter.Export(&activity)
	}
	return &activity, nil
}

// Track is Record for callers that already committed their mutation: a
// failure is logged and reported as nil.
func (s *ActivityService) Track(projectID, userID uint, action string, taskID *uint, metadata map[string]interface{}) *models.Activity {
	activity, err := s.Record(projectID, userID, action, taskID, metadata)
	if err != nil {
		logger.Error().Err(err).
			Uint("project_id", projectID).
			Uint("user_id", userID).
			Str("action", action).
			Msg("failed to record activity")
		return nil
	}
	return activity
}

// ListByProject returns the project's feed newest first. Membership required.
func (s *ActivityService) ListByProject(projectID, userID uint, req *ActivityListRequest) ([]models.Activity, *response.Pagination, error) {
	if _, err := loadProjectForMember(s.db, projectID, userID); err != nil {
		return nil, nil, err
	}

	skip, limit := normalizeWindow(req.Skip, req.Limit)

	var total int64
	if err := s.db.Model(&models.Activity{}).Where("project_id = ?", projectID).Count(&total).Error; err != nil {
		return nil, nil, err
	}

	activities := make([]models.Activity, 0)
	err := s.db.Where("project_id = ?", projectID).
		Preload("User").
		Preload("Task").
		Order("created_at DESC").
		Order("id DESC").
		Offset(skip).
		Limit(limit).
		Find(&activities).Error
	if err != nil {
		return nil, nil, err
	}

	return activities, &response.Pagination{
		Total:   total,
		Skip:    skip,
		Limit:   limit,
		HasMore: total > int64(skip+len(activities)),
	}, nil
}

func normalizeWindow(skip, limit int) (int, int) {
	if skip < 0 {
		skip = 0
	}
	if limit <= 0 {
		limit = defaultActivityLimit
	}
	if limit > maxActivityLimit {
		limit = maxActivityLimit
	}
	return skip, limit
}
