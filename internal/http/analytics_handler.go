package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/karloscodes/cartridge"

	"sitepulse/internal/chstore"
	"sitepulse/internal/query"
)

// AnalyticsHandler serves the aggregate endpoints backed by the
// columnar store.
type AnalyticsHandler struct {
	store *chstore.Store
}

func NewAnalyticsHandler(store *chstore.Store) *AnalyticsHandler {
	return &AnalyticsHandler{store: store}
}

// OverviewBucketedAction returns the bucketed overview time series for
// a site: sessions, pageviews, users, bounce rate and session duration
// per bucket, gap-filled and ordered by time.
func (h *AnalyticsHandler) OverviewBucketedAction(ctx *cartridge.Context) error {
	ts, err := query.ParseTimeSpec(rawTimeParams(ctx))
	if err != nil {
		return queryError(ctx, err)
	}
	bucket, err := query.ParseBucket(ctx.Ctx.Query("bucket"))
	if err != nil {
		return queryError(ctx, err)
	}
	filters, err := query.ParseFilters(ctx.Ctx.Query("filters"))
	if err != nil {
		return queryError(ctx, err)
	}

	sql := query.OverviewBucketedSQL(ts, bucket, filters, timezoneOf(ts))
	rows, err := h.store.Select(ctx.Ctx.Context(), sql, query.OverviewBucketedArgs(siteID(ctx))...)
	if err != nil {
		return queryError(ctx, err)
	}

	return ctx.Ctx.JSON(fiber.Map{"data": rows})
}

// OverviewAction returns the non-bucketed overview totals for a site.
func (h *AnalyticsHandler) OverviewAction(ctx *cartridge.Context) error {
	ts, err := query.ParseTimeSpec(rawTimeParams(ctx))
	if err != nil {
		return queryError(ctx, err)
	}
	filters, err := query.ParseFilters(ctx.Ctx.Query("filters"))
	if err != nil {
		return queryError(ctx, err)
	}

	site := siteID(ctx)
	row, err := h.store.SelectOne(ctx.Ctx.Context(), query.OverviewSQL(ts, filters), site, site)
	if err != nil {
		return queryError(ctx, err)
	}
	if row == nil {
		row = query.ResultRow{}
	}

	return ctx.Ctx.JSON(fiber.Map{"data": row})
}

// SingleColAction returns a one-dimension breakdown, e.g. top pages or
// top countries, with display names resolved for a few parameters.
func (h *AnalyticsHandler) SingleColAction(ctx *cartridge.Context) error {
	parameter := ctx.Ctx.Query("parameter")
	ts, err := query.ParseTimeSpec(rawTimeParams(ctx))
	if err != nil {
		return queryError(ctx, err)
	}
	filters, err := query.ParseFilters(ctx.Ctx.Query("filters"))
	if err != nil {
		return queryError(ctx, err)
	}
	limit := ctx.Ctx.QueryInt("limit", 100)
	if limit <= 0 || limit > 1000 {
		limit = 100
	}

	sql, err := query.SingleColSQL(parameter, ts, filters, limit)
	if err != nil {
		return queryError(ctx, err)
	}
	rows, err := h.store.Select(ctx.Ctx.Context(), sql, siteID(ctx))
	if err != nil {
		return queryError(ctx, err)
	}

	return ctx.Ctx.JSON(fiber.Map{"data": enrichBreakdown(parameter, rows)})
}

// LiveUserCountAction returns the number of distinct users seen in the
// trailing minutes window, five minutes by default.
func (h *AnalyticsHandler) LiveUserCountAction(ctx *cartridge.Context) error {
	minutes := ctx.Ctx.QueryInt("pastMinutes", 5)
	if minutes <= 0 {
		minutes = 5
	}

	count, err := h.store.Count(ctx.Ctx.Context(), query.LiveUserCountSQL(minutes), siteID(ctx))
	if err != nil {
		return queryError(ctx, err)
	}

	return ctx.Ctx.JSON(fiber.Map{"count": count})
}
