package http

import (
	"time"

	"log/slog"

	"github.com/karloscodes/cartridge"

	"sitepulse/internal/chstore"
)

// HealthStatus represents the health check response
type HealthStatus struct {
	Status          string    `json:"status"`
	Timestamp       time.Time `json:"timestamp"`
	DBStatus        string    `json:"db_status"`
	AnalyticsStatus string    `json:"analytics_status"`
}

// HealthHandler reports service health including both stores.
type HealthHandler struct {
	store *chstore.Store
}

func NewHealthHandler(store *chstore.Store) *HealthHandler {
	return &HealthHandler{store: store}
}

// HealthIndexAction handles the health check endpoint
func (h *HealthHandler) HealthIndexAction(ctx *cartridge.Context) error {
	dbStatus := "ok"

	// Check metadata database connectivity
	db := ctx.DBManager.GetConnection()
	if db == nil {
		dbStatus = "error"
		ctx.Logger.Error("Database connection unavailable")
	} else {
		sqlDB, err := db.DB()
		if err != nil {
			dbStatus = "error"
			ctx.Logger.Error("Database connection error", slog.Any("error", err))
		} else if err := sqlDB.Ping(); err != nil {
			dbStatus = "error"
			ctx.Logger.Error("Database ping failed", slog.Any("error", err))
		}
	}

	analyticsStatus := "ok"
	if err := h.store.Ping(ctx.Ctx.Context()); err != nil {
		analyticsStatus = "error"
		ctx.Logger.Error("Analytics store ping failed", slog.Any("error", err))
	}

	health := HealthStatus{
		Status:          "ok",
		Timestamp:       time.Now(),
		DBStatus:        dbStatus,
		AnalyticsStatus: analyticsStatus,
	}

	if dbStatus != "ok" || analyticsStatus != "ok" {
		health.Status = "degraded"
	}

	return ctx.JSON(health)
}
