package handlers

import (
	"github.com/gofiber/fiber/v2"

	"alfredoptarigan/cv-editor/internal/models"
	"alfredoptarigan/cv-editor/internal/services"
)

type CVHandler struct {
	resolver *WorkspaceResolver
	editor   services.EditorService
	workflow services.WorkflowService
}

func NewCVHandler(
	resolver *WorkspaceResolver,
	editor services.EditorService,
	workflow services.WorkflowService,
) *CVHandler {
	return &CVHandler{
		resolver: resolver,
		editor:   editor,
		workflow: workflow,
	}
}

// HandleCreateCV handles POST /api/v1/cv
func (h *CVHandler) HandleCreateCV(c *fiber.Ctx) error {
	var req models.OptionsRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid request payload",
			})
		}
	}

	ws, err := h.resolver.Find(c)
	if err != nil {
		return errorJSON(c, err, models.MessageCreateError)
	}

	if req.Language != nil || req.Anonymize != nil {
		if _, err := h.editor.SetOptions(ws.ID, services.Options{
			Language:  req.Language,
			Anonymize: req.Anonymize,
		}); err != nil {
			return errorJSON(c, err, models.MessageCreateError)
		}
	}

	link, err := h.workflow.CreateCV(c.UserContext(), ws.ID)
	if err != nil {
		return errorJSON(c, err, models.MessageCreateError)
	}

	return c.Status(fiber.StatusCreated).JSON(models.CreateCVResponse{
		Resume:  link,
		Message: models.MessageCVReady,
	})
}
