package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"alfredoptarigan/cv-editor/internal/config"
	"alfredoptarigan/cv-editor/internal/handlers"
	"alfredoptarigan/cv-editor/internal/logger"
	"alfredoptarigan/cv-editor/internal/repositories"
	"alfredoptarigan/cv-editor/internal/resume"
	"alfredoptarigan/cv-editor/internal/services"
)

func main() {
	envFile := pflag.String("env-file", ".env", "path of the .env file to load")
	catalogPath := pflag.String("catalog", "", "YAML template catalog (overrides CATALOG_PATH)")
	pflag.Parse()

	// Load configuration
	cfg, err := config.Load(*envFile)
	if err != nil {
		logger.Fatal().Err(err).Msg("❌ Failed to load config")
	}
	logger.Init(logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	logger.Info().Str("env", cfg.Server.Env).Msg("✅ Config loaded successfully")

	// Template catalog
	catalog := resume.DefaultCatalog()
	if *catalogPath != "" {
		cfg.Catalog.Path = *catalogPath
	}
	if cfg.Catalog.Path != "" {
		catalog, err = resume.LoadCatalogFile(cfg.Catalog.Path)
		if err != nil {
			logger.Fatal().Err(err).Str("path", cfg.Catalog.Path).Msg("❌ Failed to load template catalog")
		}
	}
	logger.Info().Strs("sections", catalog.Sections()).Msg("✅ Template catalog loaded")

	// Initializes repositories
	wsRepo := repositories.NewWorkspaceRepository(cfg.Workspace.TTL)
	logger.Info().Dur("ttl", cfg.Workspace.TTL).Msg("✅ Repositories initialized successfully")

	// Initialize services
	fileService := services.NewFileService(cfg.Upload.MaxFileSize, services.NewPDFInspector(2))
	cvAPI := services.NewCVAPIService(cfg.CVAPI.BaseURL, cfg.CVAPI.Timeout, cfg.CVAPI.DebugModeHeader())
	editorService := services.NewEditorService(wsRepo, catalog)
	workflowService := services.NewWorkflowService(wsRepo, cvAPI, catalog, services.PollConfig{
		Interval:    cfg.Poll.Interval,
		MaxAttempts: cfg.Poll.MaxAttempts,
		Timeout:     cfg.Poll.Timeout,
	}, cfg.Upload.Concurrency)
	logger.Info().Str("cvapi", cfg.CVAPI.BaseURL).Msg("✅ Services initialized successfully")

	// Start janitor
	ctx := context.Background()
	janitor := services.NewJanitor(wsRepo, time.Minute)
	janitor.Start(ctx)

	app := handlers.NewApp(handlers.AppConfig{
		SessionCookie: cfg.Server.SessionCookie,
		SessionTTL:    cfg.Workspace.TTL,
		BodyLimit:     int(cfg.Upload.MaxFileSize) * cfg.Upload.Concurrency * 2,
		RefreshAfter:  int(cfg.Poll.Interval.Seconds()),
		AccessLog:     true,
	}, handlers.Dependencies{
		WorkspaceRepo: wsRepo,
		FileService:   fileService,
		Editor:        editorService,
		Workflow:      workflowService,
	})
	logger.Info().Msg("✅ Handlers initialized")

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		logger.Info().Msg("🛑 Shutting down server...")
		janitor.Stop()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.CVAPI.Timeout+5*time.Second)
		defer cancel()
		if err := workflowService.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("❌ Upload runs did not stop in time")
		}
		if err := app.Shutdown(); err != nil {
			logger.Error().Err(err).Msg("❌ Server forced to shutdown")
		}
	}()

	// Start server
	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	logger.Info().Str("addr", addr).Msg("🚀 Server starting")
	logger.Info().Msgf("📖 Open http://localhost%s", addr)

	if err := app.Listen(addr); err != nil {
		logger.Fatal().Err(err).Msg("❌ Failed to start server")
	}
}
