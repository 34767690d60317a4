package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/marketplace-bot/internal/api/dto"
	"github.com/spec-kit/marketplace-bot/internal/service"
)

// AdminHandler exposes role management and statistics.
type AdminHandler struct {
	service *service.ListingService
}

// NewAdminHandler constructs handler.
func NewAdminHandler(listingService *service.ListingService) *AdminHandler {
	return &AdminHandler{service: listingService}
}

// Promote POST /admin/users/:id/promote. Promoting an existing admin succeeds with promoted=false.
func (h *AdminHandler) Promote(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	target, err := idParam(c, "id")
	if err != nil {
		return err
	}
	promoted, err := h.service.PromoteAdmin(c.UserContext(), target, p.ID())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.PromoteResponse{UserID: target, Promoted: promoted}})
}

// Stats GET /admin/stats.
func (h *AdminHandler) Stats(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	stats, err := h.service.Stats(c.UserContext(), p.ID())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewStatsResponse(stats)})
}
