package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/collabflow/backend/internal/models"
	"github.com/collabflow/backend/pkg/logger"
	"github.com/segmentio/kafka-go"
	"gorm.io/gorm"
)

func TestActivityListByProject_Pagination(t *testing.T) {
	f := newFixture(t)
	owner := f.user(t, "Olive", "olive@example.com", models.RoleMember)
	project := f.project(t, owner, "Board")
	for i := 0; i < 4; i++ {
		f.task(t, project, owner, "task")
	}
	// 1 project_created + 4 task_created

	tests := []struct {
		name    string
		req     ActivityListRequest
		items   int
		limit   int
		hasMore bool
	}{
		{"default window", ActivityListRequest{}, 5, defaultActivityLimit, false},
		{"first page", ActivityListRequest{Limit: 2}, 2, 2, true},
		{"last page", ActivityListRequest{Skip: 4, Limit: 2}, 1, 2, false},
		{"past the end", ActivityListRequest{Skip: 10, Limit: 2}, 0, 2, false},
		{"clamped limit", ActivityListRequest{Limit: 1000}, 5, maxActivityLimit, false},
		{"negative skip", ActivityListRequest{Skip: -3, Limit: 5}, 5, 5, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items, page, err := f.activities.ListByProject(project.ID, owner.ID, &tt.req)
			if err != nil {
				t.Fatalf("ListByProject() error = %v", err)
			}
			if len(items) != tt.items {
				t.Errorf("expected %d items, got %d", tt.items, len(items))
			}
			if page.Total != 5 || page.Limit != tt.limit || page.HasMore != tt.hasMore {
				t.Errorf("unexpected pagination %+v", *page)
			}
			if page.Skip < 0 {
				t.Errorf("skip should be normalized, got %d", page.Skip)
			}
		})
	}
}

func TestActivityListByProject_NewestFirst(t *testing.T) {
	f := newFixture(t)
	owner := f.user(t, "Olive", "olive@example.com", models.RoleMember)
	project := f.project(t, owner, "Board")
	task := f.task(t, project, owner, "Wireframes")

	items, _, err := f.activities.ListByProject(project.ID, owner.ID, &ActivityListRequest{})
	if err != nil {
		t.Fatalf("ListByProject() error = %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	if items[0].Action != models.ActionTaskCreated || items[1].Action != models.ActionProjectCreated {
		t.Errorf("unexpected order %q, %q", items[0].Action, items[1].Action)
	}
	if items[0].User == nil || items[0].User.ID != owner.ID {
		t.Error("user should be populated")
	}
	if items[0].Task == nil || items[0].Task.ID != task.ID {
		t.Error("task should be populated")
	}
}

func TestActivityListByProject_Guard(t *testing.T) {
	f := newFixture(t)
	owner := f.user(t, "Olive", "olive@example.com", models.RoleMember)
	outsider := f.user(t, "Omar", "omar@example.com", models.RoleMember)
	project := f.project(t, owner, "Board")

	_, _, err := f.activities.ListByProject(9999, owner.ID, &ActivityListRequest{})
	expectStatus(t, err, http.StatusNotFound)

	_, _, err = f.activities.ListByProject(project.ID, outsider.ID, &ActivityListRequest{})
	expectStatus(t, err, http.StatusForbidden)
}

type captureExporter struct {
	mu     sync.Mutex
	events []*models.Activity
}

func (e *captureExporter) Export(a *models.Activity) {
	e.mu.Lock()
	e.events = append(e.events, a)
	e.mu.Unlock()
}

func TestActivityRecord_Exports(t *testing.T) {
	f := newFixture(t)
	exporter := &captureExporter{}
	f.activities.SetExporter(exporter)
	owner := f.user(t, "Olive", "olive@example.com", models.RoleMember)
	f.project(t, owner, "Board")

	if len(exporter.events) != 1 || exporter.events[0].Action != models.ActionProjectCreated {
		t.Fatalf("expected the project_created activity to be exported, got %+v", exporter.events)
	}
	if exporter.events[0].User == nil {
		t.Error("exported activity should carry the user")
	}
}

type fakeWriter struct {
	mu     sync.Mutex
	msgs   []kafka.Message
	fail   bool
	block  chan struct{}
	closed bool
}

func (w *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if w.block != nil {
		<-w.block
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.fail {
		return errors.New("broker unavailable")
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.mu.Lock()
	w.closed = true
	w.mu.Unlock()
	return nil
}

func TestKafkaActivityExporter_WritesKeyedByProject(t *testing.T) {
	w := &fakeWriter{}
	e := newActivityExporter(w, 8)

	taskID := uint(9)
	e.Export(&models.Activity{ID: 1, ProjectID: 42, UserID: 3, Action: models.ActionTaskMoved, TaskID: &taskID,
		Metadata: map[string]interface{}{"newStatus": "done"}, CreatedAt: time.Now()})
	e.Export(&models.Activity{ID: 2, ProjectID: 7, UserID: 3, Action: models.ActionProjectUpdated})

	if err := e.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if !w.closed {
		t.Error("writer should be closed")
	}
	if len(w.msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(w.msgs))
	}
	if string(w.msgs[0].Key) != "42" || string(w.msgs[1].Key) != "7" {
		t.Errorf("unexpected keys %q, %q", w.msgs[0].Key, w.msgs[1].Key)
	}

	var event ActivityEvent
	if err := json.Unmarshal(w.msgs[0].Value, &event); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if event.Action != models.ActionTaskMoved || event.TaskID == nil || *event.TaskID != 9 {
		t.Errorf("unexpected event %+v", event)
	}
	if event.Metadata["newStatus"] != "done" {
		t.Errorf("unexpected metadata %v", event.Metadata)
	}
}

func TestKafkaActivityExporter_DropsWhenFull(t *testing.T) {
	w := &fakeWriter{block: make(chan struct{})}
	e := newActivityExporter(w, 1)

	// The worker holds one event in WriteMessages, the queue holds another;
	// everything else is dropped without blocking the caller.
	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			e.Export(&models.Activity{ID: uint(i + 1), ProjectID: 1})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Export blocked on a full queue")
	}

	close(w.block)
	e.Close()
	if len(w.msgs) > 2 {
		t.Errorf("expected at most 2 delivered messages, got %d", len(w.msgs))
	}
}

func TestKafkaActivityExporter_WriteFailureIsLogged(t *testing.T) {
	w := &fakeWriter{fail: true}
	e := newActivityExporter(w, 4)
	e.Export(&models.Activity{ID: 1, ProjectID: 1})
	if err := e.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	// Export after Close is a no-op.
	e.Export(&models.Activity{ID: 2, ProjectID: 1})
}

func TestActivityRecord_RelationLoadFailureLogged(t *testing.T) {
	f := newFixture(t)
	owner := f.user(t, "Olive", "olive@example.com", models.RoleMember)
	project := f.project(t, owner, "Board")

	var buf bytes.Buffer
	logger.InitWithWriter("info", &buf)
	defer logger.Init("info")

	err := f.db.Callback().Query().Before("gorm:query").Register("test:fail_activity_load", func(tx *gorm.DB) {
		if tx.Statement.Table == "activities" {
			tx.AddError(errors.New("relations unavailable"))
		}
	})
	if err != nil {
		t.Fatalf("register callback: %v", err)
	}

	activity, err := f.activities.Record(project.ID, owner.ID, models.ActionProjectUpdated, nil, nil)
	if err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if activity == nil || activity.ID == 0 {
		t.Fatalf("expected the stored activity, got %+v", activity)
	}
	if !strings.Contains(buf.String(), "failed to load activity relations") {
		t.Errorf("expected a log entry, got %q", buf.String())
	}
}
