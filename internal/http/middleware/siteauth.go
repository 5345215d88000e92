package middleware

import (
	"errors"
	"log/slog"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"sitepulse/internal/abuse"
	"sitepulse/internal/query"
	"sitepulse/internal/sites"
)

// SiteIDKey is the locals key under which the validated site id is stored.
const SiteIDKey = "site_id"

// SiteAccess validates the :site route parameter and the caller's API
// key before any analytics handler runs. Public sites pass without a
// key. The resolved site id is stored in locals for the handlers, and
// each granted request feeds the multi-site abuse tracker.
func SiteAccess(db *gorm.DB, tracker *abuse.Tracker, logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		siteParam := c.Params("site")
		id64, err := strconv.ParseUint(siteParam, 10, 32)
		if err != nil || id64 == 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid site id",
			})
		}
		siteID := uint32(id64)

		if err := sites.HasAccess(db, siteID, apiKeyFrom(c)); err != nil {
			var unauthorized *query.UnauthorizedError
			if errors.As(err, &unauthorized) {
				return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
					"error": "access denied",
				})
			}
			logger.Error("Site access check failed",
				slog.Uint64("site_id", uint64(siteID)),
				slog.Any("error", err))
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "internal error",
			})
		}

		// A tracker failure must not take down the query path.
		if err := tracker.Observe(c.IP(), siteID); err != nil {
			logger.Warn("Failed to record IP observation",
				slog.String("ip", c.IP()),
				slog.Any("error", err))
		}

		c.Locals(SiteIDKey, siteID)
		return c.Next()
	}
}

// apiKeyFrom extracts the API key from the Authorization bearer header,
// falling back to X-API-Key.
func apiKeyFrom(c *fiber.Ctx) string {
	authHeader := c.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}
	return c.Get("X-API-Key")
}
