package main

import (
	"fmt"
	"log"
	"net/http"
	"net/http/httputil"
	"net/url"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/univ-admin-api/api/swagger"
	"github.com/noah-isme/univ-admin-api/pkg/config"
	"github.com/noah-isme/univ-admin-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/univ-admin-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/univ-admin-api/pkg/middleware/requestid"
)

// @title University Administration API Gateway
// @version 0.1.0
// @description Single entry point routing to the administration services.
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

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/ready", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	routes := map[string]string{
		"/auth":        cfg.Services.AuthURL,
		"/users":       cfg.Services.AuthURL,
		"/students":    cfg.Services.StudentURL,
		"/enrollments": cfg.Services.StudentURL,
		"/teachers":    cfg.Services.TeacherURL,
		"/assignments": cfg.Services.TeacherURL,
		"/classes":     cfg.Services.AcademicURL,
		"/subjects":    cfg.Services.AcademicURL,
		"/evaluations": cfg.Services.GradeURL,
		"/grades":      cfg.Services.GradeURL,
	}
	for prefix, target := range routes {
		proxy, err := newProxy(target, logr)
		if err != nil {
			logr.Sugar().Fatalw("invalid upstream url", "prefix", prefix, "target", target, "error", err)
		}
		r.Any(cfg.APIPrefix+prefix, gin.WrapH(proxy))
		r.Any(cfg.APIPrefix+prefix+"/*any", gin.WrapH(proxy))
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("gateway starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil && err != http.ErrServerClosed {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}

// newProxy builds a reverse proxy forwarding the request path unchanged to
// the upstream. Upstream failures answer 502.
func newProxy(target string, logr *zap.Logger) (*httputil.ReverseProxy, error) {
	upstream, err := url.Parse(target)
	if err != nil {
		return nil, err
	}
	proxy := httputil.NewSingleHostReverseProxy(upstream)
	proxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		logr.Warn("upstream unreachable", zap.String("target", target), zap.String("path", r.URL.Path), zap.Error(err))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadGateway)
		fmt.Fprint(w, `{"error":{"code":"BAD_GATEWAY","message":"upstream service unreachable"}}`)
	}
	return proxy, nil
}
