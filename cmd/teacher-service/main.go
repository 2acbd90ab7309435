package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/noah-isme/univ-admin-api/api/swagger"
	"github.com/noah-isme/univ-admin-api/internal/client"
	"github.com/noah-isme/univ-admin-api/internal/handler"
	"github.com/noah-isme/univ-admin-api/internal/middleware"
	"github.com/noah-isme/univ-admin-api/internal/models"
	"github.com/noah-isme/univ-admin-api/internal/repository"
	"github.com/noah-isme/univ-admin-api/internal/saga"
	"github.com/noah-isme/univ-admin-api/internal/service"
	"github.com/noah-isme/univ-admin-api/pkg/breaker"
	"github.com/noah-isme/univ-admin-api/pkg/cache"
	"github.com/noah-isme/univ-admin-api/pkg/config"
	"github.com/noah-isme/univ-admin-api/pkg/database"
	"github.com/noah-isme/univ-admin-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/univ-admin-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/univ-admin-api/pkg/middleware/requestid"
)

// @title University Administration - Teacher Service
// @version 0.1.0
// @description Teacher roster and class-subject assignments.
// @BasePath /
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
		logr.Sugar().Fatalw("failed to connect to database", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, reference cache disabled", "error", err)
		redisClient = nil
	}

	metricsService := service.NewMetricsService()
	breakers := breaker.NewRegistry(cfg.Breaker, logr)
	breakers.OnStateChange(metricsService.ObserveBreakerState)

	identityClient := client.NewIdentityClient(cfg.Services.AuthURL, cfg.Client.Timeout, breakers.Get("auth"), logr)
	academicClient := client.NewAcademicClient(cfg.Services.AcademicURL, cfg.Client.Timeout, breakers.Get("academic"), redisClient, cfg.Client.RefCacheTTL, logr)

	teacherRepo := repository.NewTeacherRepository(db)
	assignmentRepo := repository.NewAssignmentRepository(db)

	coordinator := saga.NewCoordinator(logr)
	teacherService := service.NewTeacherService(teacherRepo, identityClient, coordinator, nil, logr)
	assignmentService := service.NewAssignmentService(assignmentRepo, teacherRepo, academicClient, nil, logr)
	verifier := service.NewTokenVerifier(cfg.JWT.Secret)

	teacherHandler := handler.NewTeacherHandler(teacherService)
	assignmentHandler := handler.NewAssignmentHandler(assignmentService)
	metricsHandler := handler.NewMetricsHandler(metricsService)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsService))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Health)
	r.GET("/metrics", metricsHandler.Prometheus)
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix, middleware.JWT(verifier))
	{
		teachers := api.Group("/teachers")
		teachers.GET("", teacherHandler.List)
		teachers.GET("/:id", teacherHandler.Get)
		teachers.GET("/:id/assignments", assignmentHandler.ListByTeacher)

		admin := teachers.Group("", middleware.RequireRoles(models.RoleAdmin))
		admin.POST("", teacherHandler.Create)
		admin.PUT("/:id", teacherHandler.Update)
		admin.DELETE("/:id", teacherHandler.Delete)

		assignments := api.Group("/assignments")
		assignments.GET("/class/:id", assignmentHandler.ListByClass)

		assignAdmin := assignments.Group("", middleware.RequireRoles(models.RoleAdmin))
		assignAdmin.POST("", assignmentHandler.Assign)
		assignAdmin.DELETE("/:id", assignmentHandler.Delete)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("teacher service starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil && err != http.ErrServerClosed {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
