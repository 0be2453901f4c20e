// Command cvctl runs the upload, edit and CV creation flow from a terminal.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/pflag"

	"alfredoptarigan/cv-editor/internal/config"
	"alfredoptarigan/cv-editor/internal/logger"
	"alfredoptarigan/cv-editor/internal/models"
	"alfredoptarigan/cv-editor/internal/repositories"
	"alfredoptarigan/cv-editor/internal/resume"
	"alfredoptarigan/cv-editor/internal/services"
)

type options struct {
	envFile   string
	key       string
	language  string
	anonymize bool
	out       string
	edit      string
	sets      []string
	noCreate  bool
}

func main() {
	var opts options
	pflag.StringVar(&opts.envFile, "env-file", ".env", "path of the .env file to load")
	pflag.StringVarP(&opts.key, "key", "k", os.Getenv("CV_API_KEY"), "API key for the CV service (default $CV_API_KEY)")
	pflag.StringVarP(&opts.language, "language", "l", models.DefaultLanguage, "language of the generated CV (en, de, fr)")
	pflag.BoolVar(&opts.anonymize, "anonymize", false, "anonymize the generated CV")
	pflag.StringVarP(&opts.out, "out", "o", "", "write the extracted document as JSON to this file")
	pflag.StringVar(&opts.edit, "edit", "", "replace the extracted document with this JSON file before creation")
	pflag.StringArrayVar(&opts.sets, "set", nil, "edit one field, as path=value (repeatable)")
	pflag.BoolVar(&opts.noCreate, "no-create", false, "stop after extraction")
	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: cvctl [flags] file.pdf...\n\n")
		pflag.PrintDefaults()
	}
	pflag.Parse()

	if pflag.NArg() == 0 {
		pflag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load(opts.envFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "cvctl: %v\n", err)
		os.Exit(1)
	}
	logger.Init(logger.Config{Level: cfg.Log.Level, Format: "pretty", Output: os.Stderr})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	link, err := run(ctx, cfg, opts, pflag.Args())
	if err != nil {
		logger.Error().Err(err).Msg("❌ cvctl failed")
		os.Exit(1)
	}
	if link != "" {
		fmt.Println(link)
	}
}

func run(ctx context.Context, cfg *config.Config, opts options, paths []string) (string, error) {
	catalog := resume.DefaultCatalog()
	if cfg.Catalog.Path != "" {
		c, err := resume.LoadCatalogFile(cfg.Catalog.Path)
		if err != nil {
			return "", err
		}
		catalog = c
	}

	fileService := services.NewFileService(cfg.Upload.MaxFileSize, services.NewPDFInspector(2))
	files := make([]*services.UploadFile, 0, len(paths))
	for _, path := range paths {
		file, err := fileService.ReadFile(path)
		if err != nil {
			return "", err
		}
		logger.Info().Str("file", file.Name).Int("pages", file.Info.PageCount).Msg("📄 PDF ready")
		if !file.Info.HasText {
			logger.Warn().Str("file", file.Name).Msg("⚠️  No text layer found; extraction may be poor")
		}
		files = append(files, file)
	}

	wsRepo := repositories.NewWorkspaceRepository(0)
	cvAPI := services.NewCVAPIService(cfg.CVAPI.BaseURL, cfg.CVAPI.Timeout, cfg.CVAPI.DebugModeHeader())
	editor := services.NewEditorService(wsRepo, catalog)
	workflow := services.NewWorkflowService(wsRepo, cvAPI, catalog, services.PollConfig{
		Interval:    cfg.Poll.Interval,
		MaxAttempts: cfg.Poll.MaxAttempts,
		Timeout:     cfg.Poll.Timeout,
	}, cfg.Upload.Concurrency)
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.CVAPI.Timeout)
		defer cancel()
		_ = workflow.Shutdown(shutdownCtx)
	}()

	ws := models.NewWorkspace(time.Now())
	if err := wsRepo.Create(ws); err != nil {
		return "", err
	}
	if _, err := editor.SetOptions(ws.ID, services.Options{Language: &opts.language, Anonymize: &opts.anonymize}); err != nil {
		return "", err
	}

	if err := workflow.StartUpload(ws.ID, models.NewCredential(opts.key), files); err != nil {
		return "", err
	}

	ws, err := waitForDocument(ctx, wsRepo, ws.ID, cfg.Poll.Interval)
	if err != nil {
		return "", err
	}

	if opts.edit != "" {
		data, err := os.ReadFile(opts.edit)
		if err != nil {
			return "", fmt.Errorf("failed to read edited document: %w", err)
		}
		doc, err := resume.Decode(data)
		if err != nil {
			return "", fmt.Errorf("failed to parse edited document: %w", err)
		}
		if _, err := editor.ReplaceDocument(ws.ID, doc); err != nil {
			return "", err
		}
	}

	// --set edits apply on top of --edit
	for _, set := range opts.sets {
		path, value, ok := strings.Cut(set, "=")
		if !ok {
			return "", fmt.Errorf("invalid --set %q, expected path=value", set)
		}
		if _, err := editor.SetField(ws.ID, path, value); err != nil {
			return "", fmt.Errorf("failed to apply --set %q: %w", set, err)
		}
	}

	if opts.out != "" {
		doc, err := editor.Document(ws.ID)
		if err != nil {
			return "", err
		}
		data, err := doc.MarshalJSON()
		if err != nil {
			return "", fmt.Errorf("failed to encode document: %w", err)
		}
		if err := os.WriteFile(opts.out, data, 0o644); err != nil {
			return "", fmt.Errorf("failed to write document: %w", err)
		}
		logger.Info().Str("path", opts.out).Msg("💾 Document written")
	}

	if opts.noCreate {
		return "", nil
	}

	link, err := workflow.CreateCV(ctx, ws.ID)
	if err != nil {
		return "", fmt.Errorf("%s: %w", models.MessageCreateError, err)
	}
	return link, nil
}

// waitForDocument watches the workspace until the background run settles.
func waitForDocument(ctx context.Context, wsRepo repositories.WorkspaceRepository, id uuid.UUID, interval time.Duration) (*models.Workspace, error) {
	tick := interval / 5
	if tick < 100*time.Millisecond {
		tick = 100 * time.Millisecond
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	lastMessage := ""
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
			ws, err := wsRepo.FindByID(id)
			if err != nil {
				return nil, err
			}
			if ws.Message != lastMessage {
				logger.Info().Str("phase", string(ws.Phase)).Msg(ws.Message)
				lastMessage = ws.Message
			}
			if ws.Busy {
				continue
			}
			if !ws.HasDocument() {
				return nil, fmt.Errorf("%s (%s)", ws.Message, ws.LastError)
			}
			return ws, nil
		}
	}
}
