package handlers

import (
	"context"
	"crypto/subtle"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/marketplace-bot/internal/chat"
	apperrors "github.com/spec-kit/marketplace-bot/pkg/util/errorutil"
)

// SecretHeader carries the shared secret on inbound chat webhooks.
const SecretHeader = "X-Chat-Secret"

// EventRouter processes one inbound chat event.
type EventRouter interface {
	Handle(ctx context.Context, event chat.InboundEvent) error
}

// ChatHandler accepts inbound events from the chat transport.
type ChatHandler struct {
	router EventRouter
	secret string
}

// NewChatHandler constructs handler. An empty secret disables the header check.
func NewChatHandler(router EventRouter, secret string) *ChatHandler {
	return &ChatHandler{router: router, secret: secret}
}

// Events POST /chat/events.
func (h *ChatHandler) Events(c *fiber.Ctx) error {
	if h.secret != "" && subtle.ConstantTimeCompare([]byte(c.Get(SecretHeader)), []byte(h.secret)) != 1 {
		return apperrors.NewUnauthorized("invalid chat secret")
	}

	var event chat.InboundEvent
	if err := c.BodyParser(&event); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := h.router.Handle(c.UserContext(), event); err != nil {
		return err
	}
	return c.Status(http.StatusAccepted).JSON(fiber.Map{"data": fiber.Map{"accepted": true}})
}
