package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/hosteldesk/hostel-api/api/swagger"
	"github.com/hosteldesk/hostel-api/internal/handler"
	"github.com/hosteldesk/hostel-api/internal/middleware"
	"github.com/hosteldesk/hostel-api/internal/models"
	"github.com/hosteldesk/hostel-api/internal/repository"
	"github.com/hosteldesk/hostel-api/internal/service"
	"github.com/hosteldesk/hostel-api/pkg/cache"
	"github.com/hosteldesk/hostel-api/pkg/config"
	"github.com/hosteldesk/hostel-api/pkg/database"
	"github.com/hosteldesk/hostel-api/pkg/logger"
	corsmiddleware "github.com/hosteldesk/hostel-api/pkg/middleware/cors"
	reqidmiddleware "github.com/hosteldesk/hostel-api/pkg/middleware/requestid"
)

// @title HostelDesk API
// @version 1.0.0
// @description Hostel room allocation and occupancy service
// @BasePath /api
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close() //nolint:errcheck

	metrics := service.NewMetricsService()

	var cacheRepo service.CacheRepository
	if cfg.Allocation.RoomCacheEnabled {
		redisClient, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, room cache disabled", zap.Error(err))
		} else {
			repo := repository.NewCacheRepository(redisClient, logr)
			defer repo.Close() //nolint:errcheck
			cacheRepo = repo
		}
	}
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Allocation.RoomCacheTTL, logr, cacheRepo != nil)

	validate := validator.New()

	enrollmentRepo := repository.NewEnrollmentRepository(db)
	roomRepo := repository.NewRoomRepository(db)
	allocationRepo := repository.NewAllocationRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	auditRepo := repository.NewAuditRepository(db)

	tokenSvc := service.NewTokenService(cfg.JWT.Secret)
	enrollmentSvc := service.NewEnrollmentService(enrollmentRepo, studentRepo, auditRepo, validate, logr)
	roomSvc := service.NewRoomService(roomRepo, cacheSvc, auditRepo, validate, logr, cfg.Allocation.DefaultRoomCapacity)
	allocationSvc := service.NewAllocationService(enrollmentRepo, roomRepo, allocationRepo, studentRepo, auditRepo, cacheSvc, metrics, logr)
	reportSvc := service.NewReportService(roomRepo, logr)

	enrollmentHandler := handler.NewEnrollmentHandler(enrollmentSvc)
	roomHandler := handler.NewRoomHandler(roomSvc)
	allocationHandler := handler.NewAllocationHandler(allocationSvc)
	reportHandler := handler.NewReportHandler(reportSvc)
	metricsHandler := handler.NewMetricsHandler(metrics)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.JWT(tokenSvc))

	staff := middleware.RBAC(models.RoleAdmin, models.RoleWarden)
	admin := middleware.RBAC(models.RoleAdmin)

	enrollments := api.Group("/enrollments")
	{
		enrollments.GET("", staff, enrollmentHandler.List)
		enrollments.POST("", enrollmentHandler.Create)
		enrollments.GET("/:id", enrollmentHandler.Get)
		enrollments.PATCH("/:id/review", admin, enrollmentHandler.Review)
	}

	rooms := api.Group("/rooms")
	{
		rooms.GET("", roomHandler.List)
		rooms.POST("", admin, roomHandler.Create)
		rooms.GET("/:id", roomHandler.Get)
		rooms.PUT("/:id", admin, roomHandler.Update)

		rooms.POST("/allocate/:enrollmentId", staff, allocationHandler.Allocate)
		rooms.POST("/auto-allocate", staff, allocationHandler.AutoAllocate)
		rooms.DELETE("/deallocate/:enrollmentId", staff, allocationHandler.Deallocate)
	}

	if cfg.Reports.Enabled {
		api.GET("/reports/occupancy", staff, reportHandler.Occupancy)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
