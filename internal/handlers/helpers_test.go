package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/collabflow/backend/internal/config"
	"github.com/collabflow/backend/internal/middleware"
	"github.com/collabflow/backend/internal/models"
	"github.com/collabflow/backend/internal/services"
	"github.com/collabflow/backend/internal/utils"
	"github.com/gin-gonic/gin"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
	utils.SetJWTSecret("handler-test-secret")
}

var dbCounter int64

type testApp struct {
	db     *gorm.DB
	hub    *services.Hub
	auth   *services.AuthService
	router *gin.Engine
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	dsn := fmt.Sprintf("file:handlers%d?mode=memory&cache=shared", atomic.AddInt64(&dbCounter, 1))
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

	hub := services.NewHub(16)
	t.Cleanup(hub.Close)
	authService := services.NewAuthService(db, &config.JWTConfig{Secret: "handler-test-secret", ExpireHour: 1})
	activities := services.NewActivityService(db)
	realtime := services.NewRealtimeService(db, hub)

	authHandler := NewAuthHandler(authService)
	projectHandler := NewProjectHandler(services.NewProjectService(db, activities, hub))
	taskHandler := NewTaskHandler(services.NewTaskService(db, activities, hub))
	activityHandler := NewActivityHandler(activities)
	realtimeHandler := NewRealtimeHandler(realtime, authService, &config.RealtimeConfig{PingIntervalSecond: 5, MaxMessageBytes: 4096}, "")

	r := gin.New()
	r.GET("/health", NewHealthHandler(db, hub).CheckHealth)
	api := r.Group("/api")
	api.POST("/auth/signup", authHandler.Signup)
	api.POST("/auth/login", authHandler.Login)
	api.GET("/realtime", realtimeHandler.Connect)

	protected := api.Group("", middleware.AuthRequired(authService))
	protected.GET("/auth/me", authHandler.Me)
	protected.GET("/projects", projectHandler.List)
	protected.POST("/projects", projectHandler.Create)
	protected.GET("/projects/:id", projectHandler.Get)
	protected.PUT("/projects/:id", projectHandler.Update)
	protected.DELETE("/projects/:id", projectHandler.Delete)
	protected.POST("/projects/:id/invite", projectHandler.Invite)
	protected.DELETE("/projects/:id/members/:userId", projectHandler.RemoveMember)
	protected.PUT("/projects/:id/members/:userId", projectHandler.UpdateMemberRole)
	protected.GET("/projects/:id/tasks", projectHandler.ListTasks)
	protected.POST("/tasks", taskHandler.Create)
	protected.PUT("/tasks/:id", taskHandler.Update)
	protected.PATCH("/tasks/:id/move", taskHandler.Move)
	protected.PUT("/tasks/:id/move", taskHandler.Move)
	protected.DELETE("/tasks/:id", middleware.RolesRequired(models.RoleAdmin, models.RolePM), taskHandler.Delete)
	protected.GET("/activities/project/:projectId", activityHandler.ListByProject)

	return &testApp{db: db, hub: hub, auth: authService, router: r}
}

type envelope struct {
	Success    bool            `json:"success"`
	Data       json.RawMessage `json:"data"`
	Error      string          `json:"error"`
	Count      *int            `json:"count"`
	Pagination *struct {
		Total   int64 `json:"total"`
		Skip    int   `json:"skip"`
		Limit   int   `json:"limit"`
		HasMore bool  `json:"hasMore"`
	} `json:"pagination"`
}

func (a *testApp) do(t *testing.T, method, path, token string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)

	var env envelope
	json.Unmarshal(w.Body.Bytes(), &env)
	return w, env
}

// signup registers a user and returns its token and id.
func (a *testApp) signup(t *testing.T, name, email, role string) (string, uint) {
	t.Helper()
	w, env := a.do(t, http.MethodPost, "/api/auth/signup", "", gin.H{
		"name": name, "email": email, "password": "secret1", "role": role,
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("signup %s: status %d: %s", email, w.Code, w.Body.String())
	}
	var resp struct {
		Token string      `json:"token"`
		User  models.User `json:"user"`
	}
	json.Unmarshal(env.Data, &resp)
	return resp.Token, resp.User.ID
}

func decode(t *testing.T, raw json.RawMessage, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(raw, v); err != nil {
		t.Fatalf("decode %s: %v", raw, err)
	}
}

func expectCode(t *testing.T, w *httptest.ResponseRecorder, code int) {
	t.Helper()
	if w.Code != code {
		t.Fatalf("expected status %d, got %d: %s", code, w.Code, w.Body.String())
	}
}
