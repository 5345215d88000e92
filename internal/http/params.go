// Package http contains the HTTP handlers of the analytics API.
package http

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/karloscodes/cartridge"

	"sitepulse/internal/http/middleware"
	"sitepulse/internal/query"
)

// siteID returns the site id validated by the SiteAccess middleware.
func siteID(ctx *cartridge.Context) uint32 {
	id, _ := ctx.Ctx.Locals(middleware.SiteIDKey).(uint32)
	return id
}

// rawTimeParams collects the time-related query parameters as sent.
func rawTimeParams(ctx *cartridge.Context) query.RawTimeParams {
	return query.RawTimeParams{
		StartDate:        ctx.Ctx.Query("startDate"),
		EndDate:          ctx.Ctx.Query("endDate"),
		Timezone:         ctx.Ctx.Query("timezone"),
		PastMinutes:      ctx.Ctx.Query("pastMinutes"),
		PastMinutesStart: ctx.Ctx.Query("pastMinutesStart"),
		PastMinutesEnd:   ctx.Ctx.Query("pastMinutesEnd"),
	}
}

// timezoneOf returns the timezone the window was requested in, which the
// bucketed queries also use for truncation. Rolling-minutes windows
// truncate in the caller's zone just like date ranges.
func timezoneOf(ts query.TimeSpec) string {
	if ts.Timezone != "" {
		return ts.Timezone
	}
	return "UTC"
}

// queryError maps compiler and store errors onto HTTP status codes.
// Invalid parameters are the caller's fault; everything else is logged
// and reported without detail, so compiled statements never leak.
func queryError(ctx *cartridge.Context, err error) error {
	var invalid *query.InvalidParameterError
	if errors.As(err, &invalid) {
		return ctx.Ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": invalid.Error(),
		})
	}

	var unauthorized *query.UnauthorizedError
	if errors.As(err, &unauthorized) {
		return ctx.Ctx.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "access denied",
		})
	}

	ctx.Logger.Error("Analytics query failed", slog.Any("error", err))
	return ctx.Ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error": "internal error",
	})
}
