package services

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/collabflow/backend/internal/models"
	"github.com/collabflow/backend/internal/utils"
	"github.com/collabflow/backend/pkg/response"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var dbCounter int64

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:svc%d?mode=memory&cache=shared", atomic.AddInt64(&dbCounter, 1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Silent),
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	sqlDB, _ := db.DB()
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	if err := models.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

type sentEvent struct {
	Room    string
	Except  string
	Event   string
	Payload interface{}
}

// recordingBroadcaster captures every broadcast for assertions.
type recordingBroadcaster struct {
	mu     sync.Mutex
	events []sentEvent
}

func (b *recordingBroadcaster) Broadcast(room, event string, payload interface{}) {
	b.BroadcastExcept(room, "", event, payload)
}

func (b *recordingBroadcaster) BroadcastExcept(room, except, event string, payload interface{}) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, sentEvent{Room: room, Except: except, Event: event, Payload: payload})
}

func (b *recordingBroadcaster) named(event string) []sentEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []sentEvent
	for _, e := range b.events {
		if e.Event == event {
			out = append(out, e)
		}
	}
	return out
}

func (b *recordingBroadcaster) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.events)
}

type fixture struct {
	db          *gorm.DB
	broadcaster *recordingBroadcaster
	activities  *ActivityService
	projects    *ProjectService
	tasks       *TaskService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := setupTestDB(t)
	b := &recordingBroadcaster{}
	activities := NewActivityService(db)
	return &fixture{
		db:          db,
		broadcaster: b,
		activities:  activities,
		projects:    NewProjectService(db, activities, b),
		tasks:       NewTaskService(db, activities, b),
	}
}

func (f *fixture) user(t *testing.T, name, email, role string) *models.User {
	t.Helper()
	hash, _ := utils.HashPassword("secret1")
	u := models.User{Name: name, Email: email, Password: hash, Role: role}
	if err := f.db.Create(&u).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return &u
}

func (f *fixture) project(t *testing.T, owner *models.User, name string) *models.Project {
	t.Helper()
	p, err := f.projects.Create(&CreateProjectRequest{Name: name}, owner.ID)
	if err != nil {
		t.Fatalf("create project: %v", err)
	}
	return p
}

// addMember inserts a membership row directly, bypassing the invite flow.
func (f *fixture) addMember(t *testing.T, project *models.Project, user *models.User, role string) {
	t.Helper()
	m := models.ProjectMember{ProjectID: project.ID, UserID: user.ID, Role: role}
	if err := f.db.Create(&m).Error; err != nil {
		t.Fatalf("add member: %v", err)
	}
}

func (f *fixture) task(t *testing.T, project *models.Project, creator *models.User, title string) *models.Task {
	t.Helper()
	task, err := f.tasks.Create(&CreateTaskRequest{ProjectID: FlexID(project.ID), Title: title}, creator.ID)
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	return task
}

func (f *fixture) countActivities(t *testing.T, projectID uint, action string) int64 {
	t.Helper()
	var n int64
	q := f.db.Model(&models.Activity{}).Where("project_id = ?", projectID)
	if action != "" {
		q = q.Where("action = ?", action)
	}
	q.Count(&n)
	return n
}

func expectStatus(t *testing.T, err error, status int) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error with status %d, got nil", status)
	}
	if got := response.StatusOf(err); got != status {
		t.Fatalf("expected status %d, got %d (%v)", status, got, err)
	}
}
