package handlers

import (
	"github.com/gofiber/fiber/v2"

	"alfredoptarigan/cv-editor/internal/models"
	"alfredoptarigan/cv-editor/internal/services"
)

type EditorHandler struct {
	resolver *WorkspaceResolver
	editor   services.EditorService
}

func NewEditorHandler(resolver *WorkspaceResolver, editor services.EditorService) *EditorHandler {
	return &EditorHandler{
		resolver: resolver,
		editor:   editor,
	}
}

// HandleGetDocument handles GET /api/v1/document
func (h *EditorHandler) HandleGetDocument(c *fiber.Ctx) error {
	ws, err := h.resolver.Find(c)
	if err != nil {
		return errorJSON(c, err, "")
	}

	doc, err := h.editor.Document(ws.ID)
	if err != nil {
		return errorJSON(c, err, "")
	}
	return c.JSON(doc)
}

// HandleSetField handles PATCH /api/v1/document/field
func (h *EditorHandler) HandleSetField(c *fiber.Ctx) error {
	var req models.FieldEditRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request payload",
		})
	}
	if req.Path == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "path is required",
		})
	}

	ws, err := h.resolver.Find(c)
	if err != nil {
		return errorJSON(c, err, "")
	}

	doc, err := h.editor.SetField(ws.ID, req.Path, req.Value)
	if err != nil {
		return errorJSON(c, err, "")
	}
	return c.JSON(doc)
}

// HandleAppendEntry handles POST /api/v1/document/entries
func (h *EditorHandler) HandleAppendEntry(c *fiber.Ctx) error {
	var req models.AppendEntryRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request payload",
		})
	}
	if req.Path == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "path is required",
		})
	}

	ws, err := h.resolver.Find(c)
	if err != nil {
		return errorJSON(c, err, "")
	}

	doc, err := h.editor.AppendEntry(ws.ID, req.Path)
	if err != nil {
		return errorJSON(c, err, "")
	}
	return c.Status(fiber.StatusCreated).JSON(doc)
}

// HandleSetOptions handles PUT /api/v1/options
func (h *EditorHandler) HandleSetOptions(c *fiber.Ctx) error {
	var req models.OptionsRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request payload",
		})
	}

	ws, err := h.resolver.Find(c)
	if err != nil {
		return errorJSON(c, err, "")
	}

	ws, err = h.editor.SetOptions(ws.ID, services.Options{
		Language:  req.Language,
		Anonymize: req.Anonymize,
	})
	if err != nil {
		return errorJSON(c, err, "")
	}
	return c.JSON(models.NewStatusResponse(ws))
}

// HandleGetCatalog handles GET /api/v1/catalog
func (h *EditorHandler) HandleGetCatalog(c *fiber.Ctx) error {
	return c.JSON(h.editor.Catalog())
}
