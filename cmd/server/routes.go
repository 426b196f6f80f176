package main

import (
	"github.com/collabflow/backend/internal/config"
	"github.com/collabflow/backend/internal/handlers"
	"github.com/collabflow/backend/internal/middleware"
	"github.com/collabflow/backend/internal/models"
	"github.com/collabflow/backend/pkg/logger"
	"github.com/gin-gonic/gin"
)

// registerRoutes sets up all HTTP routes on the given Gin engine.
func registerRoutes(r *gin.Engine, cfg *config.Config, svc *appServices) {
	// Middleware
	r.Use(logger.GinLogger(), logger.GinRecovery())
	r.RedirectTrailingSlash = false
	r.RedirectFixedPath = false
	r.Use(middleware.CORS(cfg.Server.ClientURL))

	// Health check
	healthHandler := handlers.NewHealthHandler(models.GetDB(), svc.hub)
	r.GET("/health", healthHandler.CheckHealth)

	authHandler := handlers.NewAuthHandler(svc.auth)
	projectHandler := handlers.NewProjectHandler(svc.projects)
	taskHandler := handlers.NewTaskHandler(svc.tasks)
	activityHandler := handlers.NewActivityHandler(svc.activities)
	realtimeHandler := handlers.NewRealtimeHandler(svc.realtime, svc.auth, &cfg.Realtime, cfg.Server.ClientURL)

	// API routes
	api := r.Group("/api", svc.limiter.Middleware(), middleware.AuditLog())
	{
		// Auth routes (public)
		auth := api.Group("/auth")
		{
			auth.POST("/signup", authHandler.Signup)
			auth.POST("/login", authHandler.Login)
		}

		// Realtime (public route with internal token validation)
		api.GET("/realtime", realtimeHandler.Connect)

		// Protected routes
		protected := api.Group("")
		protected.Use(middleware.AuthRequired(svc.auth))
		{
			protected.GET("/auth/me", authHandler.Me)

			// Projects
			protected.GET("/projects", projectHandler.List)
			protected.POST("/projects", projectHandler.Create)
			protected.GET("/projects/:id", projectHandler.Get)
			protected.PUT("/projects/:id", projectHandler.Update)
			protected.DELETE("/projects/:id", projectHandler.Delete)
			protected.POST("/projects/:id/invite", projectHandler.Invite)
			protected.DELETE("/projects/:id/members/:userId", projectHandler.RemoveMember)
			protected.PUT("/projects/:id/members/:userId", projectHandler.UpdateMemberRole)
			protected.GET("/projects/:id/tasks", projectHandler.ListTasks)

			// Tasks
			protected.POST("/tasks", taskHandler.Create)
			protected.PUT("/tasks/:id", taskHandler.Update)
			protected.PATCH("/tasks/:id/move", taskHandler.Move)
			protected.PUT("/tasks/:id/move", taskHandler.Move)
			protected.DELETE("/tasks/:id", middleware.RolesRequired(models.RoleAdmin, models.RolePM), taskHandler.Delete)

			// Activities
			protected.GET("/activities/project/:projectId", activityHandler.ListByProject)
		}
	}
}
