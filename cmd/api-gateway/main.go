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

	_ "github.com/kitahub/kita-api/api/swagger"
	"github.com/kitahub/kita-api/internal/handler"
	"github.com/kitahub/kita-api/internal/middleware"
	"github.com/kitahub/kita-api/internal/models"
	"github.com/kitahub/kita-api/internal/repository"
	"github.com/kitahub/kita-api/internal/scheduler"
	"github.com/kitahub/kita-api/internal/service"
	"github.com/kitahub/kita-api/pkg/cache"
	"github.com/kitahub/kita-api/pkg/config"
	"github.com/kitahub/kita-api/pkg/database"
	"github.com/kitahub/kita-api/pkg/logger"
	corsmiddleware "github.com/kitahub/kita-api/pkg/middleware/cors"
	reqidmiddleware "github.com/kitahub/kita-api/pkg/middleware/requestid"
)

// @title Kita API
// @version 1.0.0
// @description Personal-data lifecycle service for the kita platform
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

	// Redis carries the compliance report cache and the cross-instance purge
	// lock. Both degrade gracefully, so a missing Redis only logs a warning.
	var cacheRepo *repository.CacheRepository
	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, running without report cache and purge lock", zap.Error(err))
	} else {
		defer redisClient.Close()
		cacheRepo = repository.NewCacheRepository(redisClient)
	}

	auditRepo := repository.NewAuditRepository(db)
	lifecycleRepo := repository.NewLifecycleRepository(db, auditRepo)
	requestRepo := repository.NewDeletionRequestRepository(db, auditRepo)
	exportRepo := repository.NewPrivacyExportRepository(db)
	backupRepo := repository.NewBackupRepository(db)

	policy := service.NewPolicy()
	metricsSvc := service.NewMetricsService()
	retentionSvc := service.NewRetentionService(lifecycleRepo, cfg.GDPR.RetentionOverrides, logr)
	auditSvc := service.NewAuditService(auditRepo, logr)
	gdprSvc := service.NewGDPRService(lifecycleRepo, policy, metricsSvc, logr)
	requestSvc := service.NewDeletionRequestService(requestRepo, lifecycleRepo, gdprSvc, policy, validator.New(), logr)
	exportSvc := service.NewPrivacyExportService(exportRepo, auditRepo, policy, logr)
	backupSvc := service.NewBackupService(backupRepo, auditRepo, policy, logr, cfg.GDPR.BackupMaxAge)

	var purgeSvc *service.PurgeService
	var complianceSvc *service.ComplianceService
	if cacheRepo != nil {
		purgeSvc = service.NewPurgeService(lifecycleRepo, auditRepo, retentionSvc, cacheRepo, policy, metricsSvc, logr, cfg.GDPR.PurgeBatchSize, cfg.GDPR.PurgeLockTTL)
		complianceSvc = service.NewComplianceService(auditRepo, lifecycleRepo, retentionSvc, cacheRepo, policy, metricsSvc, logr, cfg.GDPR.ComplianceCacheTTL)
		gdprSvc.SetReportCache(cacheRepo)
		purgeSvc.SetReportCache(cacheRepo)
	} else {
		purgeSvc = service.NewPurgeService(lifecycleRepo, auditRepo, retentionSvc, nil, policy, metricsSvc, logr, cfg.GDPR.PurgeBatchSize, cfg.GDPR.PurgeLockTTL)
		complianceSvc = service.NewComplianceService(auditRepo, lifecycleRepo, retentionSvc, nil, policy, metricsSvc, logr, cfg.GDPR.ComplianceCacheTTL)
	}

	purgeScheduler := scheduler.NewPurgeScheduler(purgeSvc, backupSvc, logr)
	if err := purgeScheduler.Start(cfg.GDPR.PurgeSchedule); err != nil {
		logr.Sugar().Fatalw("failed to start purge scheduler", "error", err)
	}
	defer purgeScheduler.Stop()

	gdprHandler := handler.NewGDPRHandler(gdprSvc, retentionSvc, auditSvc, purgeSvc)
	requestHandler := handler.NewDeletionRequestHandler(requestSvc)
	exportHandler := handler.NewExportHandler(exportSvc)
	complianceHandler := handler.NewComplianceHandler(complianceSvc)
	backupHandler := handler.NewBackupHandler(backupSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	verifier := middleware.NewTokenVerifier(cfg.JWT.Secret)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	gdpr := r.Group(cfg.APIPrefix+"/gdpr", middleware.JWT(verifier))

	// Self-service surface. Fine-grained checks (own data only, pending
	// request visibility) live in the services.
	gdpr.POST("/request-delete/:userId", requestHandler.Create)
	gdpr.GET("/requests", requestHandler.List)
	gdpr.GET("/requests/:id", requestHandler.Get)
	gdpr.GET("/export/:userId", exportHandler.Export)
	gdpr.GET("/retention-periods", gdprHandler.RetentionPeriods)
	gdpr.POST("/complaints", gdprHandler.Complaint)

	admin := gdpr.Group("", middleware.RequireRoles(models.RoleAdmin, models.RoleSuperAdmin))
	admin.POST("/soft-delete/:entity/:id", gdprHandler.SoftDelete)
	admin.GET("/pending-deletions", gdprHandler.PendingDeletions)
	admin.GET("/audit-logs", gdprHandler.AuditLogs)
	admin.POST("/requests/:id/approve", requestHandler.Approve)
	admin.POST("/requests/:id/reject", requestHandler.Reject)
	admin.GET("/compliance-report", complianceHandler.Report)
	admin.GET("/anomaly-detection", complianceHandler.Anomalies)
	admin.GET("/recommendations", complianceHandler.Recommendations)
	admin.GET("/compliance-score", complianceHandler.Score)

	super := gdpr.Group("", middleware.RequireRoles(models.RoleSuperAdmin))
	super.POST("/cleanup", gdprHandler.Cleanup)
	super.POST("/verify-backup", backupHandler.Verify)

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
