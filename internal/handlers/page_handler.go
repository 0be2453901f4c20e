package handlers

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"

	"alfredoptarigan/cv-editor/internal/logger"
	"alfredoptarigan/cv-editor/internal/models"
	"alfredoptarigan/cv-editor/internal/resume"
	"alfredoptarigan/cv-editor/internal/services"
)

const (
	layoutMain = "layouts/main"

	// inputPrefix marks posted editor inputs; the rest of the name is the
	// field path.
	inputPrefix = "f:"
	addPrefix   = "add:"

	MessageInvalidFile = "Please upload PDF files only."
	MessageBusy        = "Please wait for the current step to finish."
	MessageMissingKey  = "Please enter your API key."
	MessageInvalidEdit = "That change could not be applied."
)

// PageHandler serves the HTML views: landing, upload and editor.
type PageHandler struct {
	resolver     *WorkspaceResolver
	upload       *UploadHandler
	editor       services.EditorService
	workflow     services.WorkflowService
	refreshAfter int
}

func NewPageHandler(
	resolver *WorkspaceResolver,
	upload *UploadHandler,
	editor services.EditorService,
	workflow services.WorkflowService,
	refreshAfter int,
) *PageHandler {
	if refreshAfter <= 0 {
		refreshAfter = 5
	}
	return &PageHandler{
		resolver:     resolver,
		upload:       upload,
		editor:       editor,
		workflow:     workflow,
		refreshAfter: refreshAfter,
	}
}

// HandleLanding handles GET /
func (h *PageHandler) HandleLanding(c *fiber.Ctx) error {
	return c.Render("landing", fiber.Map{
		"Title":      "CV Editor",
		"ShowNavbar": true,
	}, layoutMain)
}

// HandleUploadPage handles GET /file-dropper
func (h *PageHandler) HandleUploadPage(c *fiber.Ctx) error {
	ws, err := h.resolver.FindOrCreate(c)
	if err != nil {
		return err
	}

	// a finished run moves on to the editor
	if c.Query("wait") != "" && !ws.Busy && ws.Phase == models.PhaseEditing && ws.HasDocument() {
		return c.Redirect("/text-editor", fiber.StatusSeeOther)
	}

	refresh := ""
	if ws.Busy {
		refresh = fmt.Sprintf("%d;url=/file-dropper?wait=1", h.refreshAfter)
	}

	return c.Render("upload", fiber.Map{
		"Title":      "Upload your CV",
		"ShowNavbar": false,
		"Refresh":    refresh,
		"Workspace":  models.NewStatusResponse(ws),
		"HasKey":     !ws.Credential.IsEmpty(),
		"Languages":  models.Languages,
		"Flash":      h.resolver.TakeFlash(c),
	}, layoutMain)
}

// HandleUploadForm handles POST /file-dropper
func (h *PageHandler) HandleUploadForm(c *fiber.Ctx) error {
	ws, err := h.resolver.FindOrCreate(c)
	if err != nil {
		return err
	}

	form, err := c.MultipartForm()
	if err != nil {
		return h.flashRedirect(c, "/file-dropper", MessageInvalidFile)
	}

	if _, err := h.upload.start(ws, form, models.NewCredential(firstValue(form, "api_key"))); err != nil {
		logger.Warn().Err(err).Str("workspace_id", ws.ID.String()).Msg("⚠️  Upload rejected")
		return h.flashRedirect(c, "/file-dropper", uploadFlash(err))
	}

	return c.Redirect("/file-dropper?wait=1", fiber.StatusSeeOther)
}

func uploadFlash(err error) string {
	switch {
	case errors.Is(err, services.ErrWorkspaceBusy):
		return MessageBusy
	case errors.Is(err, services.ErrMissingCredential):
		return MessageMissingKey
	case errors.Is(err, services.ErrInvalidFile), errors.Is(err, services.ErrNoFiles):
		return MessageInvalidFile
	default:
		return models.MessageUploadError
	}
}

// HandleEditorPage handles GET /text-editor
func (h *PageHandler) HandleEditorPage(c *fiber.Ctx) error {
	ws, err := h.resolver.Find(c)
	if err != nil || !ws.HasDocument() {
		return c.Redirect("/file-dropper", fiber.StatusSeeOther)
	}

	return c.Render("editor", fiber.Map{
		"Title":      "Edit your CV",
		"ShowNavbar": true,
		"Workspace":  models.NewStatusResponse(ws),
		"Items":      resume.Form(ws.Document, h.editor.Catalog()),
		"Languages":  models.Languages,
		"Flash":      h.resolver.TakeFlash(c),
	}, layoutMain)
}

// HandleEditorForm handles POST /text-editor. The action field selects
// between saving, adding an entry and creating the CV; every action saves
// the posted inputs first.
func (h *PageHandler) HandleEditorForm(c *fiber.Ctx) error {
	ws, err := h.resolver.Find(c)
	if err != nil {
		return c.Redirect("/file-dropper", fiber.StatusSeeOther)
	}

	values := make(map[string]string)
	c.Request().PostArgs().VisitAll(func(key, value []byte) {
		if name, ok := strings.CutPrefix(string(key), inputPrefix); ok {
			values[name] = string(value)
		}
	})

	if _, err := h.editor.ApplyForm(ws.ID, values); err != nil {
		return h.editFailed(c, ws, err)
	}

	opts, err := editorOptions(c)
	if err != nil {
		return h.editFailed(c, ws, err)
	}
	if _, err := h.editor.SetOptions(ws.ID, opts); err != nil {
		return h.editFailed(c, ws, err)
	}

	action := c.FormValue("action")
	switch {
	case strings.HasPrefix(action, addPrefix):
		if _, err := h.editor.AppendEntry(ws.ID, strings.TrimPrefix(action, addPrefix)); err != nil {
			return h.editFailed(c, ws, err)
		}
	case action == "submit":
		if _, err := h.workflow.CreateCV(c.UserContext(), ws.ID); err != nil {
			logger.Warn().Err(err).Str("workspace_id", ws.ID.String()).Msg("⚠️  CV creation failed")
			// the workspace message tells the user; the document stays for a retry
			return c.Redirect("/text-editor", fiber.StatusSeeOther)
		}
		return c.Redirect("/file-dropper", fiber.StatusSeeOther)
	}

	return c.Redirect("/text-editor", fiber.StatusSeeOther)
}

func editorOptions(c *fiber.Ctx) (services.Options, error) {
	var opts services.Options
	if lang := c.FormValue("language"); lang != "" {
		opts.Language = &lang
	}
	// an unchecked box is not posted at all
	anonymize := false
	if raw := c.FormValue("anonymize"); raw != "" {
		v, err := parseCheckbox(raw)
		if err != nil {
			return opts, fiber.NewError(fiber.StatusBadRequest, "anonymize must be a boolean")
		}
		anonymize = v
	}
	opts.Anonymize = &anonymize
	return opts, nil
}

func (h *PageHandler) editFailed(c *fiber.Ctx, ws *models.Workspace, err error) error {
	logger.Warn().Err(err).Str("workspace_id", ws.ID.String()).Msg("⚠️  Edit rejected")

	message := MessageInvalidEdit
	switch {
	case errors.Is(err, services.ErrWorkspaceBusy):
		message = MessageBusy
	case errors.Is(err, services.ErrNoDocument):
		return c.Redirect("/file-dropper", fiber.StatusSeeOther)
	}
	return h.flashRedirect(c, "/text-editor", message)
}

func (h *PageHandler) flashRedirect(c *fiber.Ctx, location, message string) error {
	if err := h.resolver.Flash(c, message); err != nil {
		return err
	}
	return c.Redirect(location, fiber.StatusSeeOther)
}
