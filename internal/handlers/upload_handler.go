package handlers

import (
	"fmt"
	"mime/multipart"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"alfredoptarigan/cv-editor/internal/logger"
	"alfredoptarigan/cv-editor/internal/models"
	"alfredoptarigan/cv-editor/internal/services"
)

const uploadField = "file"

type UploadHandler struct {
	resolver    *WorkspaceResolver
	fileService services.FileService
	editor      services.EditorService
	workflow    services.WorkflowService
}

func NewUploadHandler(
	resolver *WorkspaceResolver,
	fileService services.FileService,
	editor services.EditorService,
	workflow services.WorkflowService,
) *UploadHandler {
	return &UploadHandler{
		resolver:    resolver,
		fileService: fileService,
		editor:      editor,
		workflow:    workflow,
	}
}

// HandleUpload handles POST /api/v1/upload
func (h *UploadHandler) HandleUpload(c *fiber.Ctx) error {
	form, err := c.MultipartForm()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "failed to parse multipart form",
		})
	}

	ws, err := h.resolver.FindOrCreate(c)
	if err != nil {
		return errorJSON(c, err, models.MessageUploadError)
	}

	key := c.Get(services.HeaderAPIKey)
	if key == "" {
		key = firstValue(form, "api_key")
	}

	files, err := h.start(ws, form, models.NewCredential(key))
	if err != nil {
		return errorJSON(c, err, models.MessageUploadError)
	}

	return c.Status(fiber.StatusAccepted).JSON(models.UploadResponse{
		WorkspaceID: ws.ID.String(),
		Files:       files,
		Status:      string(models.PhaseUploading),
		Message:     models.MessageUploading,
	})
}

// start validates the uploaded files, starts the background run and then
// stores the chosen options. It returns the accepted file names.
func (h *UploadHandler) start(ws *models.Workspace, form *multipart.Form, cred models.Credential) ([]string, error) {
	headers := form.File[uploadField]
	if len(headers) == 0 {
		return nil, services.ErrNoFiles
	}

	files := make([]*services.UploadFile, 0, len(headers))
	names := make([]string, 0, len(headers))
	for _, header := range headers {
		file, err := h.fileService.ReadUpload(header)
		if err != nil {
			return nil, err
		}
		logger.Debug().
			Str("file", file.Name).
			Int("pages", file.Info.PageCount).
			Bool("has_text", file.Info.HasText).
			Msg("📄 PDF accepted")
		files = append(files, file)
		names = append(names, file.Name)
	}

	opts, err := optionsFromForm(form)
	if err != nil {
		return nil, err
	}
	if opts.Language != nil && !models.IsSupportedLanguage(*opts.Language) {
		return nil, fmt.Errorf("%w: %q", services.ErrUnsupportedLanguage, *opts.Language)
	}

	// a rejected upload leaves the workspace options alone
	if err := h.workflow.StartUpload(ws.ID, cred, files); err != nil {
		return nil, err
	}
	if _, err := h.editor.SetOptions(ws.ID, opts); err != nil {
		return nil, err
	}
	return names, nil
}

func optionsFromForm(form *multipart.Form) (services.Options, error) {
	var opts services.Options
	if lang := firstValue(form, "language"); lang != "" {
		opts.Language = &lang
	}
	if raw := firstValue(form, "anonymize"); raw != "" {
		anonymize, err := parseCheckbox(raw)
		if err != nil {
			return opts, fiber.NewError(fiber.StatusBadRequest, "anonymize must be a boolean")
		}
		opts.Anonymize = &anonymize
	}
	return opts, nil
}

// parseCheckbox accepts the values browsers and API clients send for a flag.
func parseCheckbox(raw string) (bool, error) {
	if raw == "on" {
		return true, nil
	}
	return strconv.ParseBool(raw)
}

func firstValue(form *multipart.Form, key string) string {
	if values := form.Value[key]; len(values) > 0 {
		return values[0]
	}
	return ""
}
