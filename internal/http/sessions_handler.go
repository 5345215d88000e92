package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/karloscodes/cartridge"

	"sitepulse/internal/chstore"
	"sitepulse/internal/query"
)

// SessionsHandler serves the session and user list endpoints.
type SessionsHandler struct {
	store *chstore.Store
}

func NewSessionsHandler(store *chstore.Store) *SessionsHandler {
	return &SessionsHandler{store: store}
}

// SessionsAction lists reconstructed sessions, newest first, one fixed
// page at a time. There is no total count; a full page means more may
// follow.
func (h *SessionsHandler) SessionsAction(ctx *cartridge.Context) error {
	return h.listSessions(ctx, "")
}

// UserSessionsAction lists one user's sessions with the same shape and
// pagination as the site-wide list.
func (h *SessionsHandler) UserSessionsAction(ctx *cartridge.Context) error {
	userID := ctx.Ctx.Params("userId")
	if userID == "" {
		return ctx.Ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "userId is required",
		})
	}
	return h.listSessions(ctx, userID)
}

func (h *SessionsHandler) listSessions(ctx *cartridge.Context, userID string) error {
	ts, err := query.ParseTimeSpec(rawTimeParams(ctx))
	if err != nil {
		return queryError(ctx, err)
	}
	filters, err := query.ParseFilters(ctx.Ctx.Query("filters"))
	if err != nil {
		return queryError(ctx, err)
	}
	page, err := query.ParsePagination(ctx.Ctx.Query("page"), "")
	if err != nil {
		return queryError(ctx, err)
	}

	sql := query.SessionListSQL(query.SessionListOptions{
		TimeSpec: ts,
		Filters:  filters,
		UserID:   userID,
		Page:     page,
	})
	rows, err := h.store.Select(ctx.Ctx.Context(), sql, query.SessionListArgs(siteID(ctx), userID)...)
	if err != nil {
		return queryError(ctx, err)
	}
	for _, row := range rows {
		if code, ok := row["country"].(string); ok {
			row["country_name"] = countryName(code)
		}
	}

	return ctx.Ctx.JSON(fiber.Map{"data": rows})
}

// SessionDetailAction returns one session's summary row plus an
// offset-paged slice of its events in timestamp order.
func (h *SessionsHandler) SessionDetailAction(ctx *cartridge.Context) error {
	sessionID := ctx.Ctx.Params("sessionId")
	if sessionID == "" {
		return ctx.Ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "sessionId is required",
		})
	}

	ts, err := query.ParseTimeSpec(rawTimeParams(ctx))
	if err != nil {
		return queryError(ctx, err)
	}
	limit := ctx.Ctx.QueryInt("limit", 100)
	if limit <= 0 || limit > query.MaxPageSize {
		limit = query.MaxPageSize
	}
	offset := ctx.Ctx.QueryInt("offset", 0)
	if offset < 0 {
		offset = 0
	}

	site := siteID(ctx)
	session, err := h.store.SelectOne(ctx.Ctx.Context(), query.SessionDetailSQL(), site, sessionID)
	if err != nil {
		return queryError(ctx, err)
	}
	if session == nil {
		return ctx.Ctx.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "session not found",
		})
	}
	if code, ok := session["country"].(string); ok {
		session["country_name"] = countryName(code)
	}

	events, err := h.store.Select(ctx.Ctx.Context(),
		query.SessionPageviewsSQL(ts, limit, offset), site, sessionID)
	if err != nil {
		return queryError(ctx, err)
	}
	total, err := h.store.Count(ctx.Ctx.Context(),
		query.SessionPageviewCountSQL(ts), site, sessionID)
	if err != nil {
		return queryError(ctx, err)
	}

	return ctx.Ctx.JSON(fiber.Map{
		"data": fiber.Map{
			"session": session,
			"events":  events,
			"pagination": fiber.Map{
				"total":   total,
				"limit":   limit,
				"offset":  offset,
				"hasMore": int64(offset+limit) < total,
			},
		},
	})
}

// UsersAction lists per-user rollups with an allow-listed sort and a
// total count for classic page controls.
func (h *SessionsHandler) UsersAction(ctx *cartridge.Context) error {
	ts, err := query.ParseTimeSpec(rawTimeParams(ctx))
	if err != nil {
		return queryError(ctx, err)
	}
	filters, err := query.ParseFilters(ctx.Ctx.Query("filters"))
	if err != nil {
		return queryError(ctx, err)
	}
	page, err := query.ParsePagination(ctx.Ctx.Query("page"), ctx.Ctx.Query("pageSize"))
	if err != nil {
		return queryError(ctx, err)
	}
	sort, err := query.ParseSort(ctx.Ctx.Query("sortBy"), ctx.Ctx.Query("sortOrder"), query.UserSortColumns)
	if err != nil {
		return queryError(ctx, err)
	}

	site := siteID(ctx)
	rows, err := h.store.Select(ctx.Ctx.Context(), query.UserListSQL(query.UserListOptions{
		TimeSpec: ts,
		Filters:  filters,
		Sort:     sort,
		Page:     page,
	}), site)
	if err != nil {
		return queryError(ctx, err)
	}
	for _, row := range rows {
		if code, ok := row["country"].(string); ok {
			row["country_name"] = countryName(code)
		}
	}

	total, err := h.store.Count(ctx.Ctx.Context(), query.UserCountSQL(ts, filters), site)
	if err != nil {
		return queryError(ctx, err)
	}

	return ctx.Ctx.JSON(fiber.Map{
		"data":       rows,
		"totalCount": total,
		"page":       page.Page,
		"pageSize":   page.PageSize,
	})
}

// UserSessionCountAction returns one user's session count per calendar
// day in the requested timezone.
func (h *SessionsHandler) UserSessionCountAction(ctx *cartridge.Context) error {
	userID := ctx.Ctx.Query("userId")
	if userID == "" {
		return ctx.Ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "userId is required",
		})
	}
	timezone := ctx.Ctx.Query("timezone", "UTC")
	if _, err := query.ParseTimeSpec(query.RawTimeParams{Timezone: timezone}); err != nil {
		return queryError(ctx, err)
	}

	rows, err := h.store.Select(ctx.Ctx.Context(),
		query.UserSessionCountSQL(timezone), siteID(ctx), userID)
	if err != nil {
		return queryError(ctx, err)
	}

	return ctx.Ctx.JSON(fiber.Map{"data": rows})
}
