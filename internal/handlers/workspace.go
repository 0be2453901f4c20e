package handlers

import (
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"
	"github.com/google/uuid"

	"alfredoptarigan/cv-editor/internal/models"
	"alfredoptarigan/cv-editor/internal/repositories"
	"alfredoptarigan/cv-editor/internal/resume"
	"alfredoptarigan/cv-editor/internal/services"
)

const (
	HeaderWorkspaceID = "X-Workspace-ID"

	sessionWorkspaceKey = "workspace_id"
	sessionFlashKey     = "flash"
)

// WorkspaceResolver finds the workspace of the current visitor: from the
// X-Workspace-ID header for API clients, otherwise from the session cookie.
type WorkspaceResolver struct {
	store  *session.Store
	wsRepo repositories.WorkspaceRepository
}

func NewWorkspaceResolver(store *session.Store, wsRepo repositories.WorkspaceRepository) *WorkspaceResolver {
	return &WorkspaceResolver{
		store:  store,
		wsRepo: wsRepo,
	}
}

// Find returns the visitor's workspace or repositories.ErrWorkspaceNotFound.
func (r *WorkspaceResolver) Find(c *fiber.Ctx) (*models.Workspace, error) {
	if header := c.Get(HeaderWorkspaceID); header != "" {
		id, err := uuid.Parse(header)
		if err != nil {
			return nil, fiber.NewError(fiber.StatusBadRequest, "Invalid workspace ID format")
		}
		return r.wsRepo.FindByID(id)
	}

	sess, err := r.store.Get(c)
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	raw, ok := sess.Get(sessionWorkspaceKey).(string)
	if !ok {
		return nil, repositories.ErrWorkspaceNotFound
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, repositories.ErrWorkspaceNotFound
	}
	return r.wsRepo.FindByID(id)
}

// FindOrCreate returns the visitor's workspace, starting a new one bound to
// the session when there is none.
func (r *WorkspaceResolver) FindOrCreate(c *fiber.Ctx) (*models.Workspace, error) {
	ws, err := r.Find(c)
	if err == nil {
		return ws, nil
	}
	if !errors.Is(err, repositories.ErrWorkspaceNotFound) || c.Get(HeaderWorkspaceID) != "" {
		return nil, err
	}

	ws = models.NewWorkspace(time.Now())
	if err := r.wsRepo.Create(ws); err != nil {
		return nil, err
	}

	sess, err := r.store.Get(c)
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	sess.Set(sessionWorkspaceKey, ws.ID.String())
	if err := sess.Save(); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}
	return ws, nil
}

// Flash stores a one-off message shown on the next page render.
func (r *WorkspaceResolver) Flash(c *fiber.Ctx, message string) error {
	sess, err := r.store.Get(c)
	if err != nil {
		return fmt.Errorf("failed to load session: %w", err)
	}
	sess.Set(sessionFlashKey, message)
	return sess.Save()
}

// TakeFlash returns and clears the pending flash message.
func (r *WorkspaceResolver) TakeFlash(c *fiber.Ctx) string {
	sess, err := r.store.Get(c)
	if err != nil {
		return ""
	}
	message, _ := sess.Get(sessionFlashKey).(string)
	if message == "" {
		return ""
	}
	sess.Delete(sessionFlashKey)
	_ = sess.Save()
	return message
}

// statusFor maps service errors to HTTP status codes.
func statusFor(err error) int {
	var fe *fiber.Error
	switch {
	case errors.As(err, &fe):
		return fe.Code
	case errors.Is(err, repositories.ErrWorkspaceNotFound),
		errors.Is(err, services.ErrNoDocument):
		return fiber.StatusNotFound
	case errors.Is(err, services.ErrWorkspaceBusy):
		return fiber.StatusConflict
	case errors.Is(err, resume.ErrInvalidPath),
		errors.Is(err, resume.ErrNotLeaf),
		errors.Is(err, resume.ErrNoTemplate),
		errors.Is(err, resume.ErrNotRecord),
		errors.Is(err, services.ErrInvalidFile),
		errors.Is(err, services.ErrNoFiles),
		errors.Is(err, services.ErrMissingCredential),
		errors.Is(err, services.ErrUnsupportedLanguage):
		return fiber.StatusBadRequest
	case errors.Is(err, services.ErrTransport),
		errors.Is(err, services.ErrMalformedResponse),
		errors.Is(err, services.ErrProcessingFailed):
		return fiber.StatusBadGateway
	default:
		return fiber.StatusInternalServerError
	}
}

// errorJSON writes the API error body. Upstream and internal failures are
// reported with a fixed message only.
func errorJSON(c *fiber.Ctx, err error, upstreamMessage string) error {
	code := statusFor(err)
	message := err.Error()
	switch {
	case code == fiber.StatusBadGateway:
		message = upstreamMessage
	case code >= fiber.StatusInternalServerError:
		message = "Internal server error"
	}
	return c.Status(code).JSON(fiber.Map{
		"error": message,
		"code":  code,
	})
}
