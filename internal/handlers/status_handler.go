package handlers

import (
	"github.com/gofiber/fiber/v2"

	"alfredoptarigan/cv-editor/internal/models"
)

type StatusHandler struct {
	resolver *WorkspaceResolver
}

func NewStatusHandler(resolver *WorkspaceResolver) *StatusHandler {
	return &StatusHandler{
		resolver: resolver,
	}
}

// HandleGetStatus handles GET /api/v1/status
func (h *StatusHandler) HandleGetStatus(c *fiber.Ctx) error {
	ws, err := h.resolver.Find(c)
	if err != nil {
		return c.Status(statusFor(err)).JSON(fiber.Map{
			"error": "Workspace not found",
		})
	}

	return c.JSON(models.NewStatusResponse(ws))
}
