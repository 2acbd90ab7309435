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
	"github.com/noah-isme/univ-admin-api/internal/service"
	"github.com/noah-isme/univ-admin-api/pkg/breaker"
	"github.com/noah-isme/univ-admin-api/pkg/cache"
	"github.com/noah-isme/univ-admin-api/pkg/config"
	"github.com/noah-isme/univ-admin-api/pkg/database"
	"github.com/noah-isme/univ-admin-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/univ-admin-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/univ-admin-api/pkg/middleware/requestid"
)

// @title University Administration - Grade Service
// @version 0.1.0
// @description Evaluations, grades and bulk grade import.
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

	academicClient := client.NewAcademicClient(cfg.Services.AcademicURL, cfg.Client.Timeout, breakers.Get("academic"), redisClient, cfg.Client.RefCacheTTL, logr)
	studentClient := client.NewStudentClient(cfg.Services.StudentURL, cfg.Client.Timeout, breakers.Get("student"), logr)

	evaluationRepo := repository.NewEvaluationRepository(db)
	gradeRepo := repository.NewGradeRepository(db)

	evaluationService := service.NewEvaluationService(evaluationRepo, academicClient, nil, logr)
	gradeService := service.NewGradeService(gradeRepo, evaluationRepo, studentClient, nil, logr)
	verifier := service.NewTokenVerifier(cfg.JWT.Secret)

	evaluationHandler := handler.NewEvaluationHandler(evaluationService)
	gradeHandler := handler.NewGradeHandler(gradeService)
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
		evaluations := api.Group("/evaluations")
		evaluations.GET("", evaluationHandler.List)
		evaluations.GET("/:id", evaluationHandler.Get)
		evaluations.GET("/:id/grades", gradeHandler.ListByEvaluation)
		evaluations.GET("/:id/grades/export/csv", gradeHandler.ExportCSV)
		evaluations.GET("/:id/grades/export/pdf", gradeHandler.ExportPDF)

		staff := evaluations.Group("", middleware.RequireRoles(models.RoleAdmin, models.RoleTeacher))
		staff.POST("", evaluationHandler.Create)
		staff.DELETE("/:id", evaluationHandler.Delete)
		staff.POST("/:id/grades", gradeHandler.Record)
		staff.POST("/:id/grades/import", gradeHandler.Import)

		grades := api.Group("/grades")
		grades.GET("/student/:id", gradeHandler.ListByStudent)
		grades.GET("/:id", gradeHandler.Get)
		grades.DELETE("/:id", middleware.RequireRoles(models.RoleAdmin, models.RoleTeacher), gradeHandler.Delete)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("grade service starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil && err != http.ErrServerClosed {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
