package main

import (
	"feature_catalogue_app_go/config"
	"feature_catalogue_app_go/db"
	"feature_catalogue_app_go/handlers"
	"feature_catalogue_app_go/logger"
	"feature_catalogue_app_go/middleware"
	"feature_catalogue_app_go/models"
	"feature_catalogue_app_go/services"
	"log"
	"strconv"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
)

func main() {
	// Load configuration
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	if err := logger.Init(cfg.Environment, cfg.LogLevel, cfg.LogFile); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	// Initialize database
	if err := db.Initialize(db.Options{
		Path:        cfg.DBPath,
		Environment: cfg.Environment,
		TursoURL:    cfg.TursoDatabaseURL,
		TursoToken:  cfg.TursoAuthToken,
	}); err != nil {
		logger.L().Fatalw("failed to initialize database", "error", err)
	}
	defer db.Close()

	// Run migrations
	if err := db.AutoMigrate(
		&models.Feature{},
		&models.Assessment{},
		&models.AssessmentResponse{},
		&models.LegacyFeatureSet{},
		&models.AuditLog{},
	); err != nil {
		logger.L().Fatalw("failed to run migrations", "error", err)
	}

	if _, err := services.LoadComponentDescriptions(); err != nil {
		logger.L().Warnw("component descriptions unavailable", "error", err)
	}
	services.InitializeArchive(cfg)

	// Create Echo instance
	e := echo.New()
	e.HideBanner = true

	// Middleware
	e.Use(middleware.RequestLogger())
	e.Use(echomiddleware.Recover())
	e.Use(middleware.SecurityHeaders())
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins: cfg.AllowedOrigins,
	}))
	e.Use(echomiddleware.BodyLimit(strconv.FormatInt(cfg.UploadMaxBytes+(1<<20), 10) + "B"))

	// Make config available to handlers
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Set("config", cfg)
			return next(c)
		}
	})

	// Public catalogue routes
	api := e.Group("/api")
	{
		api.GET("/components", handlers.ListComponentsHandler)
		api.GET("/components/:code", handlers.GetComponentHandler)
		api.GET("/features", handlers.ListFeaturesHandler)
		api.GET("/features/compare", handlers.CompareFeaturesHandler)
		api.GET("/features/:id", handlers.GetFeatureHandler)
		api.GET("/stats", handlers.CatalogueStatsHandler)
	}

	// Assessment routes (no authentication, identified by id or code)
	assessments := api.Group("/assessments")
	{
		assessments.POST("", handlers.StartAssessmentHandler)
		assessments.GET("/resume", handlers.ResumeAssessmentHandler)
		assessments.POST("/resume", handlers.ResumeAssessmentHandler)
		assessments.GET("/:id/components/:code", handlers.GetWalkthroughHandler)
		assessments.POST("/:id/components/:code", handlers.SaveWalkthroughHandler)
		assessments.GET("/:id/summary", handlers.GetAssessmentSummaryHandler)
		assessments.GET("/:id/report", handlers.GetAssessmentReportHandler)
		assessments.GET("/:id/export", handlers.ExportAssessmentHandler)
	}

	// Admin routes (basic auth + audit actor)
	guard := middleware.NewLoginGuard(middleware.DefaultLockoutConfig)
	admin := e.Group("/admin")
	admin.Use(middleware.RequireAdmin(cfg, guard))
	admin.Use(middleware.AuditContext())
	{
		// Components
		admin.POST("/components", handlers.CreateComponentHandler)
		admin.PUT("/components/:code", handlers.UpdateComponentHandler)
		admin.DELETE("/components/:code", handlers.DeleteComponentHandler)

		// Feature groups
		admin.GET("/components/:code/groups", handlers.ListFeatureGroupsHandler)
		admin.POST("/components/:code/groups", handlers.CreateFeatureGroupHandler)
		admin.PUT("/components/:code/groups/:group", handlers.UpdateFeatureGroupHandler)
		admin.DELETE("/components/:code/groups/:group", handlers.DeleteFeatureGroupHandler)

		// Identifier previews
		admin.GET("/api/next-group-code/:code", handlers.NextGroupCodeHandler)
		admin.GET("/api/next-feature-id/:code/:group", handlers.NextFeatureIDHandler)

		// Features
		admin.POST("/features", handlers.CreateFeatureHandler)
		admin.PUT("/features/:id", handlers.UpdateFeatureHandler)
		admin.DELETE("/features/:id", handlers.DeleteFeatureHandler)

		// Bulk upload and replacement
		admin.GET("/bulk-upload/template", handlers.GetUploadTemplateHandler)
		admin.POST("/bulk-upload", handlers.BulkUploadHandler)
		admin.GET("/replace-features/preview", handlers.ReplacePreviewHandler)
		admin.POST("/replace-features", handlers.ReplaceFeaturesHandler)

		// Audit log
		admin.GET("/audit-log", handlers.GetAuditLogHandler)
		admin.POST("/audit-log/:id/revert-edit", handlers.RevertEditHandler)
		admin.POST("/audit-log/:id/revert-delete", handlers.RevertDeleteHandler)

		// Legacy generations
		admin.GET("/legacy-features", handlers.ListLegacySetsHandler)
		admin.GET("/legacy-features/:id", handlers.GetLegacySetHandler)
		admin.GET("/legacy-features/:id/export", handlers.ExportLegacySetHandler)
		admin.GET("/legacy-features/:id/archive", handlers.DownloadLegacyArchiveHandler)
		admin.GET("/legacy-assessments/:id", handlers.GetLegacyAssessmentHandler)

		// Assessments
		admin.GET("/assessments", handlers.ListAssessmentsHandler)
		admin.DELETE("/assessments/:id", handlers.DeleteAssessmentHandler)
	}

	// Start server
	logger.L().Infow("server starting", "port", cfg.ServerPort, "environment", cfg.Environment)
	if err := e.Start(":" + cfg.ServerPort); err != nil {
		logger.L().Fatalw("failed to start server", "error", err)
	}
}
