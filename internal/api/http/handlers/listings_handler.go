package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/marketplace-bot/internal/api/dto"
	"github.com/spec-kit/marketplace-bot/internal/domain"
	"github.com/spec-kit/marketplace-bot/internal/service"
)

// ListingsHandler serves the public catalog and the caller's own listings.
type ListingsHandler struct {
	service *service.ListingService
}

// NewListingsHandler constructs handler.
func NewListingsHandler(listingService *service.ListingService) *ListingsHandler {
	return &ListingsHandler{service: listingService}
}

// Catalog GET /listings?category=.
func (h *ListingsHandler) Catalog(c *fiber.Ctx) error {
	var category *domain.Category
	if raw := c.Query("category"); raw != "" {
		cat := domain.Category(raw)
		category = &cat
	}
	items, err := h.service.Catalog(c.UserContext(), category)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewListingList(items)})
}

// Get GET /listings/:id.
func (h *ListingsHandler) Get(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	listing, err := h.service.Get(c.UserContext(), id, p.ID())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewListingResponse(listing)})
}

// Mine GET /me/listings.
func (h *ListingsHandler) Mine(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	items, err := h.service.OwnedBy(c.UserContext(), p.ID())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewListingList(items)})
}
