package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/marketplace-bot/internal/api/dto"
	"github.com/spec-kit/marketplace-bot/internal/domain"
	"github.com/spec-kit/marketplace-bot/internal/service"
)

// ModerationHandler exposes the moderation queue to administrators.
type ModerationHandler struct {
	service *service.ListingService
}

// NewModerationHandler constructs handler.
func NewModerationHandler(listingService *service.ListingService) *ModerationHandler {
	return &ModerationHandler{service: listingService}
}

// Pending GET /moderation/pending.
func (h *ModerationHandler) Pending(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	items, err := h.service.Pending(c.UserContext(), p.ID())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewListingList(items)})
}

// Details GET /moderation/listings/:id.
func (h *ModerationHandler) Details(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	listing, owner, err := h.service.Details(c.UserContext(), id, p.ID())
	if err != nil {
		return err
	}
	resp := dto.ListingDetailResponse{ListingResponse: dto.NewListingResponse(listing)}
	if owner != nil {
		u := dto.NewUserResponse(owner)
		resp.Owner = &u
	}
	return c.JSON(fiber.Map{"data": resp})
}

// Approve POST /moderation/listings/:id/approve.
func (h *ModerationHandler) Approve(c *fiber.Ctx) error {
	return h.decide(c, h.service.Approve)
}

// Reject POST /moderation/listings/:id/reject.
func (h *ModerationHandler) Reject(c *fiber.Ctx) error {
	return h.decide(c, h.service.Reject)
}

// History GET /moderation/listings/:id/history.
func (h *ModerationHandler) History(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	entries, err := h.service.History(c.UserContext(), id, p.ID())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewModerationHistory(entries)})
}

type decision func(ctx context.Context, listingID, actorID int64) (*domain.Listing, error)

func (h *ModerationHandler) decide(c *fiber.Ctx, fn decision) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	listing, err := fn(c.UserContext(), id, p.ID())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewListingResponse(listing)})
}
