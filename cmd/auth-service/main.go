package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/noah-isme/univ-admin-api/api/swagger"
	"github.com/noah-isme/univ-admin-api/internal/handler"
	"github.com/noah-isme/univ-admin-api/internal/middleware"
	"github.com/noah-isme/univ-admin-api/internal/models"
	"github.com/noah-isme/univ-admin-api/internal/repository"
	"github.com/noah-isme/univ-admin-api/internal/service"
	"github.com/noah-isme/univ-admin-api/pkg/config"
	"github.com/noah-isme/univ-admin-api/pkg/database"
	"github.com/noah-isme/univ-admin-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/univ-admin-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/univ-admin-api/pkg/middleware/requestid"
)

// @title University Administration - Auth Service
// @version 0.1.0
// @description Authentication, identity provisioning and user administration.
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

	userRepo := repository.NewUserRepository(db)
	authService := service.NewAuthService(userRepo, nil, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "univ-admin",
	})
	metricsService := service.NewMetricsService()

	authHandler := handler.NewAuthHandler(authService)
	userHandler := handler.NewUserHandler(authService)
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

	api := r.Group(cfg.APIPrefix)
	{
		auth := api.Group("/auth")
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.Refresh)
		auth.POST("/logout", middleware.JWT(authService), authHandler.Logout)
		auth.GET("/me", middleware.JWT(authService), authHandler.Me)

		users := api.Group("/users", middleware.JWT(authService))
		users.GET("/:id", middleware.RBAC(string(models.RoleAdmin), middleware.SelfSubject), userHandler.Get)

		usersAdmin := users.Group("", middleware.RequireRoles(models.RoleAdmin))
		usersAdmin.GET("", userHandler.List)
		usersAdmin.POST("", userHandler.Create)
	}

	// Peer services provision and compensate identities here.
	internal := r.Group("/internal")
	internal.POST("/users", userHandler.InternalCreate)
	internal.DELETE("/users/:username", userHandler.InternalDelete)

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("auth service starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil && err != http.ErrServerClosed {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
