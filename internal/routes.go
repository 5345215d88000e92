package internal

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/karloscodes/cartridge"
	cartridgemiddleware "github.com/karloscodes/cartridge/middleware"

	"sitepulse/internal/abuse"
	"sitepulse/internal/chstore"
	"sitepulse/internal/config"
	"sitepulse/internal/http"
	"sitepulse/internal/http/middleware"
)

// publicCORSConfig is the CORS configuration shared by all dashboard
// query endpoints, which are called cross-origin from embedded widgets.
var publicCORSConfig = &cors.Config{
	AllowOrigins: "*",
	AllowMethods: "POST,GET,OPTIONS",
	AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-API-Key",
}

// MountAppRoutes mounts all application routes using cartridge's route API
func MountAppRoutes(srv *cartridge.Server, store *chstore.Store, tracker *abuse.Tracker) {
	cfg := config.GetConfig()

	// Rate limiting would interfere with tests, so it only applies in
	// production.
	conditionalRateLimiter := func(limiter fiber.Handler) fiber.Handler {
		return func(c *fiber.Ctx) error {
			if cfg.IsProduction() {
				return limiter(c)
			}
			return c.Next()
		}
	}

	// Dashboard queries are heavier than event ingestion; 120/min per IP
	// still covers an aggressively auto-refreshing dashboard.
	queryRateLimiter := conditionalRateLimiter(cartridgemiddleware.RateLimiter(
		cartridgemiddleware.WithMax(120),
		cartridgemiddleware.WithDuration(time.Minute),
	))

	db := srv.GetDBManager().GetConnection()
	logger := srv.GetLogger()

	// Every analytics endpoint goes through the site access check.
	queryAPIConfig := &cartridge.RouteConfig{
		EnableCORS: true,
		CustomMiddleware: []fiber.Handler{
			queryRateLimiter,
			middleware.SiteAccess(db, tracker, logger),
		},
		CORSConfig: publicCORSConfig,
	}

	analytics := http.NewAnalyticsHandler(store)
	sessions := http.NewSessionsHandler(store)
	funnel := http.NewFunnelHandler(store)
	health := http.NewHealthHandler(store)

	// === HEALTH ===
	srv.Get("/_health", health.HealthIndexAction)
	srv.Head("/_health", health.HealthIndexAction)

	// === ANALYTICS API ROUTES ===
	srv.Get("/api/v1/overview-bucketed/:site", analytics.OverviewBucketedAction, queryAPIConfig)
	srv.Get("/api/v1/overview/:site", analytics.OverviewAction, queryAPIConfig)
	srv.Get("/api/v1/single-col/:site", analytics.SingleColAction, queryAPIConfig)
	srv.Get("/api/v1/live-user-count/:site", analytics.LiveUserCountAction, queryAPIConfig)

	srv.Get("/api/v1/sessions/:site", sessions.SessionsAction, queryAPIConfig)
	srv.Get("/api/v1/session/:sessionId/:site", sessions.SessionDetailAction, queryAPIConfig)
	srv.Get("/api/v1/users/:site", sessions.UsersAction, queryAPIConfig)
	srv.Get("/api/v1/user/:userId/sessions/:site", sessions.UserSessionsAction, queryAPIConfig)
	srv.Get("/api/v1/user/session-count/:site", sessions.UserSessionCountAction, queryAPIConfig)

	srv.Post("/api/v1/funnel/:site", funnel.FunnelAction, queryAPIConfig)
	srv.Get("/api/v1/retention/:site", funnel.RetentionAction, queryAPIConfig)

	// CORS preflight for the one POST endpoint
	srv.Options("/api/v1/funnel/:site", func(ctx *cartridge.Context) error {
		return ctx.SendStatus(fiber.StatusNoContent)
	}, queryAPIConfig)

	// === SITE REGISTRY (admin) ===
	srv.Post("/api/v1/sites", http.SitesCreateAction)
	srv.Get("/api/v1/sites", http.SitesListAction)
	srv.Post("/api/v1/sites/:site/delete", http.SitesDeleteAction)
}
