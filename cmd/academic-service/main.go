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
	"github.com/noah-isme/univ-admin-api/pkg/config"
	"github.com/noah-isme/univ-admin-api/pkg/database"
	"github.com/noah-isme/univ-admin-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/univ-admin-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/univ-admin-api/pkg/middleware/requestid"
)

// @title University Administration - Academic Service
// @version 0.1.0
// @description Classes, subjects and class rosters.
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

	metricsService := service.NewMetricsService()
	breakers := breaker.NewRegistry(cfg.Breaker, logr)
	breakers.OnStateChange(metricsService.ObserveBreakerState)

	studentClient := client.NewStudentClient(cfg.Services.StudentURL, cfg.Client.Timeout, breakers.Get("student"), logr)

	classRepo := repository.NewClassRepository(db)
	subjectRepo := repository.NewSubjectRepository(db)

	classService := service.NewClassService(classRepo, studentClient, nil, logr)
	subjectService := service.NewSubjectService(subjectRepo, nil, logr)
	verifier := service.NewTokenVerifier(cfg.JWT.Secret)

	classHandler := handler.NewClassHandler(classService)
	subjectHandler := handler.NewSubjectHandler(subjectService)
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
		classes := api.Group("/classes")
		classes.GET("", classHandler.List)
		classes.GET("/:id", classHandler.Get)
		classes.GET("/:id/students", classHandler.ListStudents)

		classAdmin := classes.Group("", middleware.RequireRoles(models.RoleAdmin))
		classAdmin.POST("", classHandler.Create)
		classAdmin.PUT("/:id", classHandler.Update)
		classAdmin.DELETE("/:id", classHandler.Delete)

		subjects := api.Group("/subjects")
		subjects.GET("", subjectHandler.List)
		subjects.GET("/:id", subjectHandler.Get)
		subjects.GET("/code/:code", subjectHandler.GetByCode)

		subjectAdmin := subjects.Group("", middleware.RequireRoles(models.RoleAdmin))
		subjectAdmin.POST("", subjectHandler.Create)
		subjectAdmin.PUT("/:id", subjectHandler.Update)
		subjectAdmin.DELETE("/:id", subjectHandler.Delete)
	}

	// Peer services resolve class and subject references here.
	internal := r.Group("/internal")
	internal.GET("/classes/:id", classHandler.InternalGet)
	internal.GET("/classes/:id/exists", classHandler.InternalExists)
	internal.GET("/subjects/:id", subjectHandler.InternalGet)

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("academic service starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil && err != http.ErrServerClosed {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
