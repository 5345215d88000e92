package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/karloscodes/cartridge"

	"sitepulse/internal/chstore"
	"sitepulse/internal/query"
)

// FunnelHandler serves the funnel and retention endpoints.
type FunnelHandler struct {
	store *chstore.Store
}

func NewFunnelHandler(store *chstore.Store) *FunnelHandler {
	return &FunnelHandler{store: store}
}

// FunnelRequest is the POST body of the funnel endpoint. Steps are
// ordered; the window bounds how long a user has to complete them.
type FunnelRequest struct {
	Steps       []query.FunnelStep `json:"steps"`
	WindowHours int                `json:"windowHours"`
	StartDate   string             `json:"startDate"`
	EndDate     string             `json:"endDate"`
	Timezone    string             `json:"timezone"`
	PastMinutes string             `json:"pastMinutes"`
	Filters     string             `json:"filters"`
}

// FunnelStepResult is one step's cumulative numbers in the response.
type FunnelStepResult struct {
	StepName       string  `json:"step_name"`
	Visitors       int64   `json:"visitors"`
	ConversionRate float64 `json:"conversion_rate"`
	DropoffRate    float64 `json:"dropoff_rate"`
}

// FunnelAction computes how many users completed each step of an
// ordered funnel within the window.
func (h *FunnelHandler) FunnelAction(ctx *cartridge.Context) error {
	var req FunnelRequest
	if err := ctx.Ctx.BodyParser(&req); err != nil {
		return ctx.Ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}

	if err := query.ValidateFunnelSteps(req.Steps); err != nil {
		return queryError(ctx, err)
	}
	ts, err := query.ParseTimeSpec(query.RawTimeParams{
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
		Timezone:    req.Timezone,
		PastMinutes: req.PastMinutes,
	})
	if err != nil {
		return queryError(ctx, err)
	}
	filters, err := query.ParseFilters(req.Filters)
	if err != nil {
		return queryError(ctx, err)
	}

	sql := query.FunnelSQL(req.Steps, ts, filters, req.WindowHours)
	rows, err := h.store.Select(ctx.Ctx.Context(), sql, siteID(ctx))
	if err != nil {
		return queryError(ctx, err)
	}

	totals := query.FunnelStepCounts(rows, len(req.Steps))
	results := make([]FunnelStepResult, len(req.Steps))
	for i, step := range req.Steps {
		name := step.Name
		if name == "" {
			name = step.Value
		}
		results[i] = FunnelStepResult{StepName: name, Visitors: totals[i]}
		if totals[0] > 0 {
			results[i].ConversionRate = float64(totals[i]) / float64(totals[0]) * 100
		}
		if i > 0 && totals[i-1] > 0 {
			results[i].DropoffRate = float64(totals[i-1]-totals[i]) / float64(totals[i-1]) * 100
		}
	}

	return ctx.Ctx.JSON(fiber.Map{"data": results})
}

// RetentionAction returns the weekly cohort retention matrix: for each
// cohort week, how many of its users were active N weeks later.
func (h *FunnelHandler) RetentionAction(ctx *cartridge.Context) error {
	maxWeeks := ctx.Ctx.QueryInt("maxWeeks", 12)
	if maxWeeks <= 0 || maxWeeks > 52 {
		maxWeeks = 12
	}

	rows, err := h.store.Select(ctx.Ctx.Context(), query.RetentionSQL(maxWeeks), siteID(ctx))
	if err != nil {
		return queryError(ctx, err)
	}

	return ctx.Ctx.JSON(fiber.Map{"data": rows})
}
