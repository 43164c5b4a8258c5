package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/heritage-api/api/swagger"
	"github.com/noah-isme/heritage-api/internal/handler"
	"github.com/noah-isme/heritage-api/internal/middleware"
	"github.com/noah-isme/heritage-api/internal/models"
	"github.com/noah-isme/heritage-api/internal/repository"
	"github.com/noah-isme/heritage-api/internal/router"
	"github.com/noah-isme/heritage-api/internal/service"
	"github.com/noah-isme/heritage-api/pkg/cache"
	"github.com/noah-isme/heritage-api/pkg/config"
	"github.com/noah-isme/heritage-api/pkg/database"
	"github.com/noah-isme/heritage-api/pkg/identity"
	"github.com/noah-isme/heritage-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/heritage-api/pkg/middleware/cors"
	"github.com/noah-isme/heritage-api/pkg/middleware/ratelimit"
	reqidmiddleware "github.com/noah-isme/heritage-api/pkg/middleware/requestid"
)

// @title Heritage Site Management API
// @version 1.0.0
// @description Sites, incidents, conservation, approvals, footfall and the national dashboard.
// @BasePath /api
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Migrations.AutoMigrate {
		if err := database.RunMigrations(cfg.Database, cfg.Migrations.Path, logr); err != nil {
			logr.Fatal("migrations failed", zap.Error(err))
		}
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, caching disabled", zap.Error(err))
	}

	verifier, err := identity.NewTokenVerifier(ctx, identity.TokenConfig{
		JWKSURL: cfg.Clerk.JWKSURL,
		Issuer:  cfg.Clerk.Issuer,
		Verify:  cfg.Clerk.VerifyTokens,
	})
	if err != nil {
		logr.Fatal("failed to initialise token verifier", zap.Error(err))
	}
	if !cfg.Clerk.VerifyTokens {
		logr.Warn("token signature verification disabled")
	}
	webhooks, err := identity.NewWebhookVerifier(cfg.Clerk.WebhookSecret, cfg.Clerk.WebhookTolerance)
	if err != nil {
		logr.Fatal("invalid webhook secret", zap.Error(err))
	}

	validate := validator.New()
	metrics := service.NewMetricsService()

	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	defer cacheRepo.Close() //nolint:errcheck
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Dashboard.CacheTTL, logr, cfg.Dashboard.CacheEnabled && redisClient != nil)

	siteRepo := repository.NewSiteRepository(db)
	incidentRepo := repository.NewIncidentRepository(db)
	conservationRepo := repository.NewConservationRepository(db)
	approvalRepo := repository.NewApprovalRepository(db)
	footfallRepo := repository.NewFootfallRepository(db)
	userRepo := repository.NewUserRepository(db)
	dashboardRepo := repository.NewDashboardRepository(db)

	siteSvc := service.NewSiteService(siteRepo, cacheSvc, validate, logr)
	incidentSvc := service.NewIncidentService(incidentRepo, siteRepo, cacheSvc, validate, logr)
	conservationSvc := service.NewConservationService(conservationRepo, siteRepo, cacheSvc, validate, logr)
	approvalSvc := service.NewApprovalService(approvalRepo, service.SubjectResolvers{
		models.SubjectIncident:     service.IncidentSubject(incidentRepo, incidentSvc),
		models.SubjectConservation: service.ConservationSubject(conservationRepo, conservationSvc),
	}, cacheSvc, validate, logr)
	footfallSvc := service.NewFootfallService(footfallRepo, siteRepo, cacheSvc, validate, logr)
	userSvc := service.NewUserService(userRepo, validate, logr)
	authSvc := service.NewAuthService(verifier, userRepo, metrics, logr)
	dashboardSvc := service.NewDashboardService(service.DashboardServiceParams{
		Repo:    dashboardRepo,
		Cache:   cacheSvc,
		Metrics: metrics,
		Logger:  logr,
		Config:  service.DashboardServiceConfig{CacheTTL: cfg.Dashboard.CacheTTL},
	})
	exportSvc := service.NewExportService(dashboardSvc, logr)

	var cachePinger handler.Pinger
	if redisClient != nil {
		cachePinger = cacheRepo
	}
	metricsHandler := handler.NewMetricsHandler(metrics, db, cachePinger)

	limiter := ratelimit.New(cfg.RateLimit.Window, cfg.RateLimit.Max)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics, "/metrics", "/health", "/ready"))
	r.Use(middleware.WithResponseMeta())

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix, limiter.Middleware())
	router.Register(api, authSvc, router.Table(router.Handlers{
		Sites:        handler.NewSiteHandler(siteSvc),
		Incidents:    handler.NewIncidentHandler(incidentSvc),
		Conservation: handler.NewConservationHandler(conservationSvc),
		Approvals:    handler.NewApprovalHandler(approvalSvc),
		Footfall:     handler.NewFootfallHandler(footfallSvc),
		Users:        handler.NewUserHandler(userSvc, webhooks, metrics, logr),
		Dashboard:    handler.NewDashboardHandler(dashboardSvc, exportSvc),
		Metrics:      metricsHandler,
	}))

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env, "cache", cacheSvc.Enabled())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}
