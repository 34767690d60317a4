package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/marketplace-bot/internal/auth"
	apperrors "github.com/spec-kit/marketplace-bot/pkg/util/errorutil"
)

func idParam(c *fiber.Ctx, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Params(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.NewValidationError("invalid "+name, map[string]any{"param": name})
	}
	return id, nil
}

func principal(c *fiber.Ctx) (*auth.Principal, error) {
	p, ok := auth.PrincipalFromContext(c)
	if !ok || p.User == nil {
		return nil, apperrors.NewUnauthorized("user required")
	}
	return p, nil
}
