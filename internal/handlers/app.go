package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/session"
	"github.com/gofiber/template/html/v2"

	"alfredoptarigan/cv-editor/internal/logger"
	"alfredoptarigan/cv-editor/internal/repositories"
	"alfredoptarigan/cv-editor/internal/services"
	"alfredoptarigan/cv-editor/internal/views"
)

type AppConfig struct {
	SessionCookie string
	SessionTTL    time.Duration
	BodyLimit     int
	// RefreshAfter is how often, in seconds, the upload view reloads while busy.
	RefreshAfter int
	AccessLog    bool
}

type Dependencies struct {
	WorkspaceRepo repositories.WorkspaceRepository
	FileService   services.FileService
	Editor        services.EditorService
	Workflow      services.WorkflowService
}

// NewApp builds the fiber application with the HTML views and the JSON API.
func NewApp(cfg AppConfig, deps Dependencies) *fiber.App {
	engine := html.NewFileSystem(http.FS(views.FS), ".html")

	bodyLimit := cfg.BodyLimit
	if bodyLimit <= 0 {
		bodyLimit = fiber.DefaultBodyLimit
	}

	app := fiber.New(fiber.Config{
		AppName:      "CV Editor",
		Views:        engine,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		BodyLimit:    bodyLimit,
		ErrorHandler: customErrorHandler,
	})

	// Middleware
	app.Use(recover.New())
	if cfg.AccessLog {
		app.Use(fiberlogger.New(fiberlogger.Config{
			Format:     "[${time}] ${status} - ${latency} ${method} ${path}\n",
			TimeFormat: "2006-01-02 15:04:05",
		}))
	}

	cookie := cfg.SessionCookie
	if cookie == "" {
		cookie = "cv_session"
	}
	store := session.New(session.Config{
		Expiration:     cfg.SessionTTL,
		KeyLookup:      "cookie:" + cookie,
		CookieHTTPOnly: true,
		CookieSameSite: "Lax",
	})

	resolver := NewWorkspaceResolver(store, deps.WorkspaceRepo)
	uploadHandler := NewUploadHandler(resolver, deps.FileService, deps.Editor, deps.Workflow)
	statusHandler := NewStatusHandler(resolver)
	editorHandler := NewEditorHandler(resolver, deps.Editor)
	cvHandler := NewCVHandler(resolver, deps.Editor, deps.Workflow)
	pageHandler := NewPageHandler(resolver, uploadHandler, deps.Editor, deps.Workflow, cfg.RefreshAfter)

	// Pages
	app.Get("/", pageHandler.HandleLanding)
	app.Get("/file-dropper", pageHandler.HandleUploadPage)
	app.Post("/file-dropper", pageHandler.HandleUploadForm)
	app.Get("/text-editor", pageHandler.HandleEditorPage)
	app.Post("/text-editor", pageHandler.HandleEditorForm)

	// Routes
	api := app.Group("/api/v1", cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,PATCH,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept, X-Api-Key, X-Workspace-ID",
	}))

	// Health check
	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":     "healthy",
			"workspaces": deps.WorkspaceRepo.Count(),
			"time":       time.Now(),
		})
	})

	api.Post("/upload", uploadHandler.HandleUpload)
	api.Get("/status", statusHandler.HandleGetStatus)
	api.Get("/document", editorHandler.HandleGetDocument)
	api.Patch("/document/field", editorHandler.HandleSetField)
	api.Post("/document/entries", editorHandler.HandleAppendEntry)
	api.Put("/options", editorHandler.HandleSetOptions)
	api.Post("/cv", cvHandler.HandleCreateCV)
	api.Get("/catalog", editorHandler.HandleGetCatalog)

	return app
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := statusFor(err)

	message := err.Error()
	if code >= fiber.StatusInternalServerError {
		logger.Error().Err(err).Str("path", c.Path()).Msg("❌ Request failed")
		message = "Internal server error"
	}

	if strings.HasPrefix(c.Path(), "/api/") {
		return c.Status(code).JSON(fiber.Map{
			"error": message,
			"code":  code,
		})
	}

	return c.Status(code).Render("error", fiber.Map{
		"Title":      "Error",
		"ShowNavbar": true,
		"Message":    message,
	}, layoutMain)
}
