package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/ctp-admin-api/internal/middleware"
	"github.com/noah-isme/ctp-admin-api/internal/models"
	"github.com/noah-isme/ctp-admin-api/internal/repository"
	"github.com/noah-isme/ctp-admin-api/internal/service"
	"github.com/noah-isme/ctp-admin-api/pkg/config"
	"github.com/noah-isme/ctp-admin-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/ctp-admin-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/ctp-admin-api/pkg/middleware/requestid"
)

// Services bundles the wired service layer for route registration.
type Services struct {
	Auth        *service.AuthService
	Permissions *service.PermissionService
	Requests    *service.TrainingRequestService
	Batches     *service.TrainingBatchService
	Approvals   *service.ApprovalService
	Roles       *service.RoleService
	Users       *service.UserService
	Activity    *service.ActivityLogService
	Metrics     *service.MetricsService
}

// NewRouter assembles the gin engine: global middleware, health probes,
// metrics, docs and the permission-guarded API groups.
func NewRouter(cfg *config.Config, logr *zap.Logger, db *sqlx.DB, services Services, activityRepo *repository.ActivityLogRepository) *gin.Engine {
	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(services.Metrics))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/ready", func(c *gin.Context) {
		if db != nil {
			if err := db.PingContext(c.Request.Context()); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", gin.WrapH(services.Metrics.Handler()))
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	authHandler := NewAuthHandler(services.Auth)
	auth := api.Group("/auth")
	auth.POST("/login", authHandler.Login)
	auth.POST("/refresh", authHandler.Refresh)
	authed := auth.Group("")
	authed.Use(middleware.JWT(services.Auth))
	authed.POST("/logout", authHandler.Logout)
	authed.POST("/change-password", authHandler.ChangePassword)
	authed.GET("/me", authHandler.Me)

	secured := api.Group("")
	secured.Use(middleware.JWT(services.Auth))

	perm := func(module, action string) gin.HandlerFunc {
		return middleware.Permission(services.Permissions, module, action)
	}
	audit := func(module, action string) gin.HandlerFunc {
		return middleware.Audit(activityRepo, module, action)
	}

	batchHandler := NewTrainingBatchHandler(services.Batches)
	batches := secured.Group("/training-batches")
	batches.GET("", perm(models.ModuleTrainingBatch, models.ActionList), batchHandler.List)
	batches.GET("/available-learners", perm(models.ModuleTrainingBatch, models.ActionList), batchHandler.AvailableLearners)
	batches.GET("/:id", perm(models.ModuleTrainingBatch, models.ActionList), batchHandler.Get)
	batches.GET("/:id/export", perm(models.ModuleTrainingBatch, models.ActionList), batchHandler.ExportRoster)
	batches.POST("", perm(models.ModuleTrainingBatch, models.ActionAdd), audit(models.ModuleTrainingBatch, models.ActionAdd), batchHandler.Create)
	batches.PATCH("/:id", perm(models.ModuleTrainingBatch, models.ActionEdit), audit(models.ModuleTrainingBatch, models.ActionEdit), batchHandler.Update)
	batches.DELETE("/:id", perm(models.ModuleTrainingBatch, models.ActionDelete), audit(models.ModuleTrainingBatch, models.ActionDelete), batchHandler.Delete)
	batches.PATCH("/:id/attendance", perm(models.ModuleTrainingBatch, models.ActionEdit), audit(models.ModuleTrainingBatch, models.ActionEdit), batchHandler.SetAttendance)
	batches.PATCH("/:id/homework", perm(models.ModuleTrainingBatch, models.ActionEdit), audit(models.ModuleTrainingBatch, models.ActionEdit), batchHandler.SetHomework)
	batches.POST("/:id/learners/:learnerId/drop-off", perm(models.ModuleTrainingBatch, models.ActionEdit), audit(models.ModuleTrainingBatch, models.ActionEdit), batchHandler.DropOff)
	batches.POST("/:id/learners/:learnerId/remove", perm(models.ModuleTrainingBatch, models.ActionEdit), audit(models.ModuleTrainingBatch, models.ActionEdit), batchHandler.RemoveLearner)

	requestHandler := NewTrainingRequestHandler(services.Requests)
	requests := secured.Group("/training-requests")
	requests.GET("", perm(models.ModuleTrainingRequest, models.ActionList), requestHandler.List)
	requests.GET("/:id", perm(models.ModuleTrainingRequest, models.ActionList), requestHandler.Get)
	requests.POST("", perm(models.ModuleTrainingRequest, models.ActionAdd), audit(models.ModuleTrainingRequest, models.ActionAdd), requestHandler.Create)
	requests.PATCH("/:id/status", perm(models.ModuleTrainingRequest, models.ActionEdit), audit(models.ModuleTrainingRequest, models.ActionEdit), requestHandler.UpdateStatus)
	requests.POST("/:id/hold", perm(models.ModuleTrainingRequest, models.ActionEdit), audit(models.ModuleTrainingRequest, models.ActionEdit), requestHandler.Hold)
	requests.POST("/:id/resume", perm(models.ModuleTrainingRequest, models.ActionEdit), audit(models.ModuleTrainingRequest, models.ActionEdit), requestHandler.Resume)
	requests.POST("/:id/follow-up", perm(models.ModuleTrainingRequest, models.ActionEdit), audit(models.ModuleTrainingRequest, models.ActionEdit), requestHandler.FollowUp)

	approvalHandler := NewApprovalHandler(services.Approvals)
	vpa := secured.Group("/validation-project-approvals")
	vpa.GET("", perm(models.ModuleVPA, models.ActionList), approvalHandler.ListVPA)
	vpa.GET("/:id", perm(models.ModuleVPA, models.ActionList), approvalHandler.GetVPA)
	vpa.POST("", perm(models.ModuleVPA, models.ActionAdd), audit(models.ModuleVPA, models.ActionAdd), approvalHandler.CreateVPA)
	vpa.PATCH("/:id/status", perm(models.ModuleVPA, models.ActionEdit), audit(models.ModuleVPA, models.ActionEdit), approvalHandler.UpdateVPAStatus)

	vsr := secured.Group("/validation-schedule-requests")
	vsr.GET("", perm(models.ModuleVSR, models.ActionList), approvalHandler.ListVSR)
	vsr.GET("/:id", perm(models.ModuleVSR, models.ActionList), approvalHandler.GetVSR)
	vsr.POST("", perm(models.ModuleVSR, models.ActionAdd), audit(models.ModuleVSR, models.ActionAdd), approvalHandler.CreateVSR)
	vsr.PATCH("/:id/status", perm(models.ModuleVSR, models.ActionEdit), audit(models.ModuleVSR, models.ActionEdit), approvalHandler.UpdateVSRStatus)

	roleHandler := NewRoleHandler(services.Roles)
	roles := secured.Group("/roles")
	roles.GET("", perm(models.ModuleRole, models.ActionList), roleHandler.List)
	roles.GET("/:id", perm(models.ModuleRole, models.ActionList), roleHandler.Get)
	roles.POST("", perm(models.ModuleRole, models.ActionAdd), audit(models.ModuleRole, models.ActionAdd), roleHandler.Create)
	roles.PUT("/:id", perm(models.ModuleRole, models.ActionEdit), audit(models.ModuleRole, models.ActionEdit), roleHandler.Update)
	roles.DELETE("/:id", perm(models.ModuleRole, models.ActionDelete), audit(models.ModuleRole, models.ActionDelete), roleHandler.Delete)

	userHandler := NewUserHandler(services.Users)
	users := secured.Group("/users")
	users.GET("", perm(models.ModuleUser, models.ActionList), userHandler.List)
	users.GET("/:id", perm(models.ModuleUser, models.ActionList), userHandler.Get)
	users.POST("", perm(models.ModuleUser, models.ActionAdd), audit(models.ModuleUser, models.ActionAdd), userHandler.Create)
	users.PUT("/:id", perm(models.ModuleUser, models.ActionEdit), audit(models.ModuleUser, models.ActionEdit), userHandler.Update)
	users.DELETE("/:id", perm(models.ModuleUser, models.ActionDelete), audit(models.ModuleUser, models.ActionDelete), userHandler.Delete)

	activityHandler := NewActivityLogHandler(services.Activity)
	secured.GET("/activity-logs", perm(models.ModuleActivityLog, models.ActionList), activityHandler.List)

	return r
}
