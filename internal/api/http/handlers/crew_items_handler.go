package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/worklist-service/internal/api/dto"
	"github.com/spec-kit/worklist-service/internal/service"
)

// CrewItemsHandler serves the crew side of the work list.
type CrewItemsHandler struct {
	items *service.WorkItemService
}

// NewCrewItemsHandler constructs handler.
func NewCrewItemsHandler(items *service.WorkItemService) *CrewItemsHandler {
	return &CrewItemsHandler{items: items}
}

// NextNumber GET /crew/items/next-number.
func (h *CrewItemsHandler) NextNumber(c *fiber.Ctx) error {
	next, err := h.items.NextDraftNumber(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NextNumberResponse{ItemNumber: next}})
}

// FormOptions GET /crew/items/form-options.
func (h *CrewItemsHandler) FormOptions(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	opts, err := h.items.FormOptions(c.UserContext(), actor)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.FormOptionsResponse{
		NextItemNumber: opts.NextItemNumber,
		MaxPhotos:      opts.MaxPhotos,
		YardItems:      opts.YardItems,
		DraftItems:     opts.DraftItems,
		Assigned:       dto.NewWorkItemSummaries(opts.Assigned),
	}})
}

// Submit POST /crew/items.
func (h *CrewItemsHandler) Submit(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	form := readItemForm(c)
	photos, closeFiles, err := form.uploads()
	if err != nil {
		return err
	}
	defer closeFiles()

	res, err := h.items.Submit(c.UserContext(), actor, service.SubmitInput{
		ItemNumber: form.value("item_number"),
		Content:    form.content(),
		Photos:     photos,
	})
	if err != nil {
		return err
	}
	status := fiber.StatusOK
	if res.Created {
		status = fiber.StatusCreated
	}
	return c.Status(status).JSON(fiber.Map{
		"data":    dto.NewWorkItemResponse(res.Item, h.items.CanEdit(res.Item, actor)),
		"created": res.Created,
	})
}

// ListAssigned GET /crew/items/assigned.
func (h *CrewItemsHandler) ListAssigned(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	items, err := h.items.ListAssigned(c.UserContext(), actor)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewWorkItemSummaries(items)})
}

// ListApproved GET /crew/items/approved.
func (h *CrewItemsHandler) ListApproved(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	items, err := h.items.ListApproved(c.UserContext(), actor)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewWorkItemSummaries(items)})
}

// Get GET /crew/items/:id.
func (h *CrewItemsHandler) Get(c *fiber.Ctx) error {
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

// Resolve PUT /crew/items/:id.
func (h *CrewItemsHandler) Resolve(c *fiber.Ctx) error {
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

	item, err := h.items.ResolveRevision(c.UserContext(), actor, id, service.ResolveInput{
		Description: form.value("description"),
		Detail:      form.value("detail"),
		References:  form.value("references"),
		Captions:    captions,
		Photos:      photos,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewWorkItemResponse(item, h.items.CanEdit(item, actor))})
}

// DeletePhoto DELETE /crew/items/:id/photos/:photoID.
func (h *CrewItemsHandler) DeletePhoto(c *fiber.Ctx) error {
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
