package services

import (
	"github.com/collabflow/backend/internal/models"
	"github.com/collabflow/backend/pkg/logger"
	"github.com/robfig/cron/v3"
	"gorm.io/gorm"
)

// SweepResult counts the rows removed by one sweep.
type SweepResult struct {
	Tasks      int64
	Activities int64
	Members    int64
}

// OrphanSweeper periodically removes tasks, activities and memberships whose
// project no longer exists. A sweep is idempotent.
type OrphanSweeper struct {
	db       *gorm.DB
	schedule string
	cron     *cron.Cron
}

func NewOrphanSweeper(db *gorm.DB, schedule string) *OrphanSweeper {
	return &OrphanSweeper{db: db, schedule: schedule}
}

// Start registers the sweep on its cron schedule.
func (s *OrphanSweeper) Start() error {
	s.cron = cron.New()
	if _, err := s.cron.AddFunc(s.schedule, func() {
		if _, err := s.Sweep(); err != nil {
			logger.Error().Err(err).Msg("orphan sweep failed")
		}
	}); err != nil {
		return err
	}
	s.cron.Start()
	logger.Info().Str("schedule", s.schedule).Msg("orphan sweeper started")
	return nil
}

// Stop waits for a running sweep to finish.
func (s *OrphanSweeper) Stop() {
	if s.cron == nil {
		return
	}
	<-s.cron.Stop().Done()
}

// Sweep deletes every child row that points at a missing project.
func (s *OrphanSweeper) Sweep() (*SweepResult, error) {
	projectIDs := func() *gorm.DB { return s.db.Model(&models.Project{}).Select("id") }
	result := &SweepResult{}

	tx := s.db.Where("project_id NOT IN (?)", projectIDs()).Delete(&models.Task{})
	if tx.Error != nil {
		return nil, tx.Error
	}
	result.Tasks = tx.RowsAffected

	tx = s.db.Where("project_id NOT IN (?)", projectIDs()).Delete(&models.Activity{})
	if tx.Error != nil {
		return nil, tx.Error
	}
	result.Activities = tx.RowsAffected

	tx = s.db.Where("project_id NOT IN (?)", projectIDs()).Delete(&models.ProjectMember{})
	if tx.Error != nil {
		return nil, tx.Error
	}
	result.Members = tx.RowsAffected

	if result.Tasks+result.Activities+result.Members > 0 {
		logger.Info().
			Int64("tasks", result.Tasks).
			Int64("activities", result.Activities).
			Int64("members", result.Members).
			Msg("orphaned rows removed")
	}
	return result, nil
}
