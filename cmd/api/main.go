package main

import (
	"fmt"
	"log"

	_ "github.com/noah-isme/ctp-admin-api/api/swagger"
	"github.com/noah-isme/ctp-admin-api/internal/handler"
	"github.com/noah-isme/ctp-admin-api/internal/models"
	"github.com/noah-isme/ctp-admin-api/internal/repository"
	"github.com/noah-isme/ctp-admin-api/internal/service"
	"github.com/noah-isme/ctp-admin-api/pkg/cache"
	"github.com/noah-isme/ctp-admin-api/pkg/config"
	"github.com/noah-isme/ctp-admin-api/pkg/database"
	"github.com/noah-isme/ctp-admin-api/pkg/logger"
)

// @title CTP Admin API
// @version 1.0.0
// @description Competency training program administration
// @BasePath /api/v1
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
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		// Permission lookups degrade to database reads without Redis.
		logr.Sugar().Warnw("redis unavailable, permission cache disabled", "error", err)
		redisClient = nil
	}

	labels := models.StatusLabels{
		TrainingRequest: cfg.Labels.TrainingRequest,
		VPA:             cfg.Labels.VPA,
		VSR:             cfg.Labels.VSR,
	}

	sequenceRepo := repository.NewSequenceRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	activityRepo := repository.NewActivityLogRepository(db)
	requestRepo := repository.NewTrainingRequestRepository(db)
	batchRepo := repository.NewTrainingBatchRepository(db)
	vpaRepo := repository.NewVPARepository(db)
	vsrRepo := repository.NewVSRRepository(db)
	roleRepo := repository.NewRoleRepository(db)
	userRepo := repository.NewUserRepository(db)

	authService := service.NewAuthService(userRepo, activityRepo, nil, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             cfg.JWT.Issuer,
	})
	permissionService := service.NewPermissionService(roleRepo, cacheRepo, cfg.Perms.CacheTTL, logr)

	services := handler.Services{
		Auth:        authService,
		Permissions: permissionService,
		Requests:    service.NewTrainingRequestService(requestRepo, sequenceRepo, nil, logr, labels),
		Batches:     service.NewTrainingBatchService(batchRepo, nil, logr, labels),
		Approvals:   service.NewApprovalService(vpaRepo, vsrRepo, requestRepo, sequenceRepo, nil, logr),
		Roles:       service.NewRoleService(roleRepo, permissionService, nil, logr),
		Users:       service.NewUserService(userRepo, nil, logr),
		Activity:    service.NewActivityLogService(activityRepo, logr),
		Metrics:     service.NewMetricsService(),
	}

	r := handler.NewRouter(cfg, logr, db, services, activityRepo)

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
