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

	_ "github.com/studybridge/studybridge-api/api/swagger"
	"github.com/studybridge/studybridge-api/internal/genai"
	"github.com/studybridge/studybridge-api/internal/handler"
	"github.com/studybridge/studybridge-api/internal/middleware"
	"github.com/studybridge/studybridge-api/internal/models"
	"github.com/studybridge/studybridge-api/internal/repository"
	"github.com/studybridge/studybridge-api/internal/service"
	"github.com/studybridge/studybridge-api/pkg/cache"
	"github.com/studybridge/studybridge-api/pkg/config"
	"github.com/studybridge/studybridge-api/pkg/database"
	"github.com/studybridge/studybridge-api/pkg/jobs"
	"github.com/studybridge/studybridge-api/pkg/logger"
	corsmiddleware "github.com/studybridge/studybridge-api/pkg/middleware/cors"
	reqidmiddleware "github.com/studybridge/studybridge-api/pkg/middleware/requestid"
	"github.com/studybridge/studybridge-api/pkg/storage"
)

// @title StudyBridge API
// @version 1.0.0
// @description Directory and CRM platform for overseas education consultancies
// @BasePath /api/v1
// @schemes http https

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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to database", "error", err)
	}
	defer db.Close() //nolint:errcheck

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, caching disabled", "error", err)
		redisClient = nil
	}

	validate := validator.New()
	metrics := service.NewMetricsService()

	// Repositories.
	userRepo := repository.NewUserRepository(db)
	agencyRepo := repository.NewAgencyRepository(db)
	reviewRepo := repository.NewReviewRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	blogRepo := repository.NewBlogRepository(db)
	buddyRepo := repository.NewBuddyRepository(db)
	chatRepo := repository.NewChatRepository(db)
	exportRepo := repository.NewExportRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	// Services.
	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "studybridge-api",
	})
	userSvc := service.NewUserService(userRepo, validate, logr)
	listingSvc := service.NewListingService(agencyRepo, cacheRepo, cfg.Listing.CacheTTL, metrics, logr)
	trustSvc := service.NewTrustScoreService(agencyRepo, reviewRepo, metrics, logr)
	agencySvc := service.NewAgencyService(agencyRepo, trustSvc, listingSvc, validate, logr)
	reviewSvc := service.NewReviewService(reviewRepo, agencyRepo, trustSvc, listingSvc, validate, logr)
	courseSvc := service.NewCourseService(courseRepo, validate, logr)
	blogSvc := service.NewBlogService(blogRepo, validate, logr)
	buddySvc := service.NewBuddyService(buddyRepo, validate, logr)
	importSvc := service.NewImportService(courseRepo, agencyRepo, cacheRepo, metrics, logr)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))

	metricsHandler := handler.NewMetricsHandler(metrics)
	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Health)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	adminOnly := middleware.RequireRoles(models.RoleSuperAdmin, models.RoleAdmin)
	staff := middleware.RequireRoles(models.RoleSuperAdmin, models.RoleAdmin, models.RoleAgencyOwner)

	// Auth.
	authHandler := handler.NewAuthHandler(authSvc)
	auth := api.Group("/auth")
	auth.POST("/login", authHandler.Login)
	auth.POST("/refresh", authHandler.Refresh)
	auth.POST("/logout", middleware.JWT(authSvc), authHandler.Logout)
	auth.POST("/change-password", middleware.JWT(authSvc), authHandler.ChangePassword)
	auth.GET("/me", middleware.JWT(authSvc), authHandler.Me)

	// Admin user management.
	userHandler := handler.NewUserHandler(userSvc)
	users := api.Group("/users", middleware.JWT(authSvc), adminOnly)
	users.GET("", userHandler.List)
	users.GET("/:id", userHandler.Get)
	users.POST("", userHandler.Create)
	users.PUT("/:id", userHandler.Update)
	users.DELETE("/:id", userHandler.Delete)

	// Public directory.
	listingHandler := handler.NewListingHandler(listingSvc)
	api.GET("/listings", listingHandler.List)

	// Agencies.
	agencyHandler := handler.NewAgencyHandler(agencySvc)
	reviewHandler := handler.NewReviewHandler(reviewSvc)
	agencies := api.Group("/agencies")
	agencies.GET("", agencyHandler.List)
	agencies.GET("/:id", agencyHandler.Get)
	agencies.GET("/slug/:slug", agencyHandler.GetBySlug)
	agencies.GET("/:id/reviews", reviewHandler.ListApproved)
	agencies.POST("", middleware.JWT(authSvc), staff, agencyHandler.Create)
	agencies.PUT("/:id", middleware.JWT(authSvc), staff, agencyHandler.Update)
	agencies.PATCH("/:id/status", middleware.JWT(authSvc), adminOnly, agencyHandler.UpdateStatus)
	agencies.PATCH("/:id/verify", middleware.JWT(authSvc), adminOnly,
		middleware.Audit(userRepo, models.AuditActionVerifyAgency, "agencies"), agencyHandler.SetVerified)
	agencies.DELETE("/:id", middleware.JWT(authSvc), adminOnly, agencyHandler.Delete)
	agencies.POST("/:id/services", middleware.JWT(authSvc), staff, agencyHandler.AddService)
	agencies.DELETE("/:id/services/:serviceId", middleware.JWT(authSvc), staff, agencyHandler.RemoveService)
	agencies.POST("/:id/photos", middleware.JWT(authSvc), staff, agencyHandler.AddPhoto)
	agencies.DELETE("/:id/photos/:photoId", middleware.JWT(authSvc), staff, agencyHandler.RemovePhoto)

	// Reviews.
	reviews := api.Group("/reviews")
	reviews.POST("", middleware.OptionalJWT(authSvc), reviewHandler.Submit)
	reviews.GET("", middleware.JWT(authSvc), adminOnly, reviewHandler.List)
	reviews.PATCH("/:id/status", middleware.JWT(authSvc), adminOnly,
		middleware.Audit(userRepo, models.AuditActionModerateReview, "reviews"), reviewHandler.Moderate)
	reviews.DELETE("/:id", middleware.JWT(authSvc), adminOnly, reviewHandler.Delete)
	reviews.GET("/:id/responses", reviewHandler.ListResponses)
	reviews.POST("/:id/responses", middleware.JWT(authSvc), staff, reviewHandler.Respond)

	// Courses.
	courseHandler := handler.NewCourseHandler(courseSvc)
	courses := api.Group("/courses")
	courses.GET("", courseHandler.List)
	courses.GET("/:id", courseHandler.Get)
	courses.POST("", middleware.JWT(authSvc), adminOnly, courseHandler.Create)
	courses.DELETE("/:id", middleware.JWT(authSvc), adminOnly, courseHandler.Delete)

	// Blog.
	blogHandler := handler.NewBlogHandler(blogSvc)
	blog := api.Group("/blog")
	blog.GET("", middleware.OptionalJWT(authSvc), blogHandler.List)
	blog.GET("/:slug", middleware.OptionalJWT(authSvc), blogHandler.GetBySlug)
	blog.POST("", middleware.JWT(authSvc), adminOnly, blogHandler.Create)
	blog.PUT("/posts/:id", middleware.JWT(authSvc), adminOnly, blogHandler.Update)
	blog.DELETE("/posts/:id", middleware.JWT(authSvc), adminOnly, blogHandler.Delete)

	// Study buddies.
	buddyHandler := handler.NewBuddyHandler(buddySvc)
	buddies := api.Group("/buddies")
	buddies.GET("", buddyHandler.Search)
	buddies.POST("", buddyHandler.Register)
	buddies.DELETE("/:id", middleware.JWT(authSvc), adminOnly, buddyHandler.Remove)
	buddies.GET("/form-fields", buddyHandler.FormFields)
	buddies.PUT("/form-fields", middleware.JWT(authSvc), adminOnly, buddyHandler.SaveFormField)
	buddies.DELETE("/form-fields/:id", middleware.JWT(authSvc), adminOnly, buddyHandler.DeleteFormField)

	// Bulk imports.
	importHandler := handler.NewImportHandler(importSvc, cfg.Imports.MaxFileSizeBytes)
	imports := api.Group("/imports", middleware.JWT(authSvc), adminOnly,
		middleware.Audit(userRepo, models.AuditActionBulkImport, "imports"))
	imports.POST("/courses", importHandler.ImportCourses)
	imports.POST("/agencies", importHandler.ImportAgencies)

	// Chat assistant.
	if cfg.Chat.Enabled {
		completer := genai.NewClient(genai.Config{
			APIKey:       cfg.Chat.AnthropicAPIKey,
			Model:        cfg.Chat.Model,
			MaxRetries:   cfg.Chat.MaxRetries,
			RetryBackoff: cfg.Chat.RetryBackoff,
		}, logr)
		chatSvc := service.NewChatService(chatRepo, completer, cacheRepo, metrics, validate, logr)
		chatHandler := handler.NewChatHandler(chatSvc, cacheRepo)
		chat := api.Group("/chat", middleware.OptionalJWT(authSvc))
		chat.POST("/sessions", chatHandler.StartSession)
		chat.GET("/sessions/:id/messages", chatHandler.History)
		chat.POST("/sessions/:id/messages", chatHandler.SendMessage)
		chat.GET("/sessions/:id/stream", chatHandler.Stream)
	}

	// Directory exports.
	var exportQueue *jobs.Queue
	if cfg.Exports.Enabled {
		fileStore, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
		if err != nil {
			logr.Sugar().Fatalw("failed to init export storage", "error", err)
		}
		signer := storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL)

		var exportSvc *service.ExportService
		exportQueue = jobs.NewQueue("exports", func(ctx context.Context, job jobs.Job) error {
			return exportSvc.Handle(ctx, job)
		}, jobs.QueueConfig{
			Workers:    cfg.Exports.WorkerConcurrency,
			MaxRetries: cfg.Exports.WorkerRetries,
			Logger:     logr,
		})
		exportSvc = service.NewExportService(exportRepo, agencyRepo, exportQueue, fileStore, signer, metrics, service.ExportConfig{
			APIPrefix:       cfg.APIPrefix,
			ResultTTL:       cfg.Exports.SignedURLTTL,
			CleanupInterval: cfg.Exports.CleanupInterval,
			MaxRetries:      cfg.Exports.WorkerRetries,
		}, logr)

		exportQueue.Start(ctx)
		exportSvc.RecoverPendingJobs(ctx)
		exportSvc.StartCleanup(ctx)

		exportHandler := handler.NewExportHandler(exportSvc)
		exports := api.Group("/exports", middleware.JWT(authSvc), staff)
		exports.POST("", exportHandler.Create)
		exports.GET("/:id", exportHandler.Status)
		api.GET("/export/:token", exportHandler.Download)
	}

	// System metrics snapshot for the admin dashboard.
	api.GET("/system/metrics", middleware.JWT(authSvc), adminOnly, metricsHandler.System)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: r,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Warnw("graceful shutdown failed", "error", err)
	}
	if exportQueue != nil {
		exportQueue.Stop()
	}
	if err := cacheRepo.Close(); err != nil {
		logr.Sugar().Warnw("failed to close redis", "error", err)
	}
}
