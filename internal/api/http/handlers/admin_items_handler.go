package handlers

import (
	"fmt"
	"path/filepath"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/worklist-service/internal/api/dto"
	"github.com/spec-kit/worklist-service/internal/export"
	"github.com/spec-kit/worklist-service/internal/service"
	apperrors "github.com/spec-kit/worklist-service/pkg/util/errorutil"
)

// AdminItemsHandler serves the admin dashboard endpoints.
type AdminItemsHandler struct {
	items *service.WorkItemService
}

// NewAdminItemsHandler constructs handler.
func NewAdminItemsHandler(items *service.WorkItemService) *AdminItemsHandler {
	return &AdminItemsHandler{items: items}
}

// List GET /admin/items.
func (h *AdminItemsHandler) List(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	items, err := h.items.ListItems(c.UserContext(), actor, service.ListFilter{
		Status: c.Query("status"),
		Sort:   c.Query("sort"),
		Limit:  parseInt(c.Query("limit"), 0),
		Offset: parseInt(c.Query("offset"), 0),
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewWorkItemSummaries(items)})
}

// Get GET /admin/items/:id.
func (h *AdminItemsHandler) Get(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	view, err := h.items.GetItem(c.UserContext(), actor, id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewWorkItemResponse(view.Item, view.CanEdit)})
}

// Edit PUT /admin/items/:id.
func (h *AdminItemsHandler) Edit(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	form := readItemForm(c)
	captions, err := form.existingCaptions()
	if err != nil {
		return err
	}
	photos, closeFiles, err := form.uploads()
	if err != nil {
		return err
	}
	defer closeFiles()

	item, err := h.items.EditItem(c.UserContext(), actor, id, service.EditInput{
		ItemNumber: form.value("item_number"),
		Content:    form.content(),
		Captions:   captions,
		Photos:     photos,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewWorkItemResponse(item, false)})
}

// Assign POST /admin/items/:id/assign.
func (h *AdminItemsHandler) Assign(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	var req dto.AssignRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	item, err := h.items.Assign(c.UserContext(), actor, id, service.AssignInput{
		Status:        req.Status,
		Assignee:      req.AssignedTo,
		RevisionNotes: req.RevisionNotes,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewWorkItemSummary(item)})
}

// UpdateStatus POST /admin/items/:id/status.
func (h *AdminItemsHandler) UpdateStatus(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	var req dto.StatusRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	item, err := h.items.UpdateStatus(c.UserContext(), actor, id, req.Status)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewWorkItemSummary(item)})
}

// SaveNotes PUT /admin/items/:id/notes.
func (h *AdminItemsHandler) SaveNotes(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	var req dto.AdminNotesRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	item, err := h.items.SaveAdminNotes(c.UserContext(), actor, id, req.AdminNotes)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{
		"admin_notes":            item.AdminNotes,
		"admin_notes_updated_at": item.AdminNotesUpdatedAt,
	}})
}

// Delete DELETE /admin/items/:id.
func (h *AdminItemsHandler) Delete(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	if err := h.items.DeleteItem(c.UserContext(), actor, id); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Photo GET /admin/items/:id/photos/:photoID.
func (h *AdminItemsHandler) Photo(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	photoID, err := parseID(c, "photoID")
	if err != nil {
		return err
	}
	path, photo, err := h.items.PhotoPath(c.UserContext(), actor, id, photoID)
	if err != nil {
		return err
	}
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("inline; filename=%q", filepath.Base(photo.Filename)))
	return c.SendFile(path)
}

// DeletePhoto DELETE /admin/items/:id/photos/:photoID.
func (h *AdminItemsHandler) DeletePhoto(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	photoID, err := parseID(c, "photoID")
	if err != nil {
		return err
	}
	if err := h.items.DeletePhoto(c.UserContext(), actor, id, photoID); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Export GET /admin/items/:id/export.
func (h *AdminItemsHandler) Export(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	doc, err := h.items.ExportItem(c.UserContext(), actor, id)
	if err != nil {
		return err
	}
	return sendDocument(c, doc)
}

// ExportBatch POST /admin/exports.
func (h *AdminItemsHandler) ExportBatch(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	var req dto.BatchExportRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	doc, err := h.items.ExportBatch(c.UserContext(), actor, req.IDs)
	if err != nil {
		return err
	}
	return sendDocument(c, doc)
}

func sendDocument(c *fiber.Ctx, doc *export.Document) error {
	c.Set(fiber.HeaderContentType, doc.ContentType)
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", doc.Filename))
	return c.Send(doc.Content)
}
