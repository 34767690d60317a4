package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/spec-kit/marketplace-bot/internal/api/http/handlers"
	"github.com/spec-kit/marketplace-bot/internal/auth"
	apperrors "github.com/spec-kit/marketplace-bot/pkg/util/errorutil"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Users          *handlers.UsersHandler
	Listings       *handlers.ListingsHandler
	Moderation     *handlers.ModerationHandler
	Admin          *handlers.AdminHandler
	Chat           *handlers.ChatHandler
	AuthMiddleware *auth.AuthMiddleware

	// Gatherer backs GET /metrics; nil leaves the route unregistered.
	Gatherer prometheus.Gatherer

	// ChatRatePerMinute caps inbound webhook calls per client IP; zero disables the limiter.
	ChatRatePerMinute int
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Gatherer != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{})))
	}

	chatHandlers := []fiber.Handler{}
	if cfg.ChatRatePerMinute > 0 {
		chatHandlers = append(chatHandlers, limiter.New(limiter.Config{
			Max:        cfg.ChatRatePerMinute,
			Expiration: time.Minute,
			LimitReached: func(*fiber.Ctx) error {
				return apperrors.NewDomainError("RATE_LIMITED", "too many requests", fiber.StatusTooManyRequests, nil)
			},
		}))
	}
	app.Post("/chat/events", append(chatHandlers, cfg.Chat.Events)...)

	requireUser := []fiber.Handler{cfg.AuthMiddleware.Handle, auth.RequireAuthenticated()}
	requireAdmin := append(requireUser[:len(requireUser):len(requireUser)], auth.RequireAdmin())

	me := app.Group("/me", requireUser...)
	me.Get("", cfg.Users.Me)
	me.Get("/listings", cfg.Listings.Mine)

	listings := app.Group("/listings", requireUser...)
	listings.Get("", cfg.Listings.Catalog)
	listings.Get("/:id", cfg.Listings.Get)

	moderation := app.Group("/moderation", requireAdmin...)
	moderation.Get("/pending", cfg.Moderation.Pending)
	moderation.Get("/listings/:id", cfg.Moderation.Details)
	moderation.Get("/listings/:id/history", cfg.Moderation.History)
	moderation.Post("/listings/:id/approve", cfg.Moderation.Approve)
	moderation.Post("/listings/:id/reject", cfg.Moderation.Reject)

	admin := app.Group("/admin", requireAdmin...)
	admin.Post("/users/:id/promote", cfg.Admin.Promote)
	admin.Get("/stats", cfg.Admin.Stats)
}
