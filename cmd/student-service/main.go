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

// @title University Administration - Student Service
// @version 0.1.0
// @description Student roster and enrollment lifecycle.
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

	studentRepo := repository.NewStudentRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)

	coordinator := saga.NewCoordinator(logr)
	studentService := service.NewStudentService(studentRepo, identityClient, coordinator, nil, logr)
	enrollmentService := service.NewEnrollmentService(enrollmentRepo, studentRepo, academicClient, nil, logr)
	verifier := service.NewTokenVerifier(cfg.JWT.Secret)

	studentHandler := handler.NewStudentHandler(studentService)
	enrollmentHandler := handler.NewEnrollmentHandler(enrollmentService)
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
		students := api.Group("/students")
		students.GET("", studentHandler.List)
		students.GET("/:id", studentHandler.Get)
		students.GET("/:id/enrollments", enrollmentHandler.ListByStudent)
		students.GET("/:id/enrollments/terminated", enrollmentHandler.GetTerminated)

		admin := students.Group("", middleware.RequireRoles(models.RoleAdmin))
		admin.POST("", studentHandler.Create)
		admin.PUT("/:id", studentHandler.Update)
		admin.DELETE("/:id", studentHandler.Delete)

		enrollments := api.Group("/enrollments")
		enrollments.GET("", enrollmentHandler.List)
		enrollments.GET("/:id", enrollmentHandler.Get)
		enrollments.GET("/class/:id", enrollmentHandler.ListByClass)

		enrollAdmin := enrollments.Group("", middleware.RequireRoles(models.RoleAdmin))
		enrollAdmin.POST("", enrollmentHandler.Enroll)
		enrollAdmin.POST("/:id/terminate", enrollmentHandler.Terminate)
		enrollAdmin.PATCH("/:id/state", enrollmentHandler.ChangeState)
	}

	// Peer services resolve student references and class rosters here.
	internal := r.Group("/internal")
	internal.GET("/students/:id", studentHandler.InternalGet)
	internal.GET("/students/matricule/:matricule", studentHandler.InternalGetByMatricule)
	internal.GET("/classes/:id/students", enrollmentHandler.InternalRoster)

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("student service starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil && err != http.ErrServerClosed {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
