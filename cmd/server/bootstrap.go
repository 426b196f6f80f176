package main

import (
	"context"
	"time"

	"github.com/collabflow/backend/internal/config"
	"github.com/collabflow/backend/internal/middleware"
	"github.com/collabflow/backend/internal/models"
	"github.com/collabflow/backend/internal/services"
	"github.com/collabflow/backend/internal/utils"
	"github.com/collabflow/backend/pkg/logger"
	"github.com/redis/go-redis/v9"
)

// appServices holds all initialized services needed by the application.
type appServices struct {
	hub         *services.Hub
	limiter     *middleware.RateLimiter
	relay       *services.RedisRelay
	redisClient *redis.Client
	exporter    *services.KafkaActivityExporter
	sweeper     *services.OrphanSweeper

	auth       *services.AuthService
	activities *services.ActivityService
	projects   *services.ProjectService
	tasks      *services.TaskService
	realtime   *services.RealtimeService
}

// bootstrap initializes all application dependencies: database, services, schedulers.
func bootstrap(cfg *config.Config) *appServices {
	utils.SetJWTSecret(cfg.JWT.Secret)

	// Initialize database
	if err := models.InitDB(&cfg.Database); err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}

	// Auto migrate database
	if err := models.AutoMigrate(); err != nil {
		logger.Fatalf("Failed to migrate database: %v", err)
	}
	db := models.GetDB()

	svc := &appServices{
		hub:     services.NewHub(cfg.Realtime.SendBuffer),
		limiter: middleware.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst),
		auth:    services.NewAuthService(db, &cfg.JWT),
	}

	// Create default admin user
	if err := svc.auth.CreateAdminIfNotExists(&cfg.Admin); err != nil {
		logger.Warn().Err(err).Msg("Failed to create admin user")
	}

	if cfg.Redis.Enabled {
		svc.startRelay(&cfg.Redis)
	}

	svc.activities = services.NewActivityService(db)
	if cfg.Kafka.Enabled {
		svc.exporter = services.NewKafkaActivityExporter(&cfg.Kafka)
		svc.activities.SetExporter(svc.exporter)
		logger.Info().Strs("brokers", cfg.Kafka.Brokers).Str("topic", cfg.Kafka.Topic).Msg("Activity export enabled")
	}

	svc.projects = services.NewProjectService(db, svc.activities, svc.hub)
	svc.tasks = services.NewTaskService(db, svc.activities, svc.hub)
	svc.realtime = services.NewRealtimeService(db, svc.hub)

	if cfg.Sweeper.Enabled {
		svc.sweeper = services.NewOrphanSweeper(db, cfg.Sweeper.Schedule)
		if err := svc.sweeper.Start(); err != nil {
			logger.Warn().Err(err).Str("schedule", cfg.Sweeper.Schedule).Msg("Failed to start orphan sweeper")
			svc.sweeper = nil
		}
	}

	return svc
}

// startRelay connects to Redis and mirrors room broadcasts across instances.
// A failure leaves the hub serving local connections only.
func (s *appServices) startRelay(cfg *config.RedisConfig) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn().Err(err).Str("addr", cfg.Addr).Msg("Redis unavailable, realtime relay disabled")
		client.Close()
		return
	}

	relay := services.NewRedisRelay(client, cfg.Channel, s.hub)
	if err := relay.Start(ctx); err != nil {
		logger.Warn().Err(err).Msg("Failed to subscribe realtime relay")
		client.Close()
		return
	}

	s.hub.SetPublisher(relay)
	s.relay = relay
	s.redisClient = client
}

// shutdown gracefully stops all services.
func (s *appServices) shutdown() {
	if s.sweeper != nil {
		s.sweeper.Stop()
	}
	s.limiter.Stop()
	s.hub.Close()

	if s.relay != nil {
		if err := s.relay.Close(); err != nil {
			logger.Warn().Err(err).Msg("Failed to close realtime relay")
		}
	}
	if s.redisClient != nil {
		s.redisClient.Close()
	}
	if s.exporter != nil {
		if err := s.exporter.Close(); err != nil {
			logger.Warn().Err(err).Msg("Failed to close activity exporter")
		}
	}

	if sqlDB, err := models.GetDB().DB(); err == nil {
		sqlDB.Close()
	}
	logger.Info().Msg("All services stopped")
}
