package http

import (
	"crypto/subtle"
	"log/slog"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/karloscodes/cartridge"
	"gorm.io/gorm"

	"sitepulse/internal/config"
	"sitepulse/internal/sites"
)

// CreateSiteRequest is the POST body for registering a site.
type CreateSiteRequest struct {
	Domain string `json:"domain"`
	Public bool   `json:"public"`
}

// SitesCreateAction registers a new site and returns its API key. The
// key is shown exactly once; only its hash is stored.
func SitesCreateAction(ctx *cartridge.Context) error {
	if err := requireAdminKey(ctx); err != nil {
		return err
	}

	var req CreateSiteRequest
	if err := ctx.Ctx.BodyParser(&req); err != nil {
		return ctx.Ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}
	req.Domain = strings.TrimSpace(strings.ToLower(req.Domain))
	if req.Domain == "" {
		return ctx.Ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "domain is required",
		})
	}

	site, apiKey, err := sites.CreateSite(ctx.DBManager.GetConnection(), req.Domain, req.Public)
	if err != nil {
		ctx.Logger.Error("Failed to create site", slog.Any("error", err))
		return ctx.Ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to create site",
		})
	}

	ctx.Logger.Info("Site created",
		slog.Uint64("site_id", uint64(site.ID)),
		slog.String("domain", site.Domain))

	return ctx.Ctx.Status(fiber.StatusCreated).JSON(fiber.Map{
		"data":    site,
		"api_key": apiKey,
	})
}

// SitesListAction lists all registered sites.
func SitesListAction(ctx *cartridge.Context) error {
	if err := requireAdminKey(ctx); err != nil {
		return err
	}

	all, err := sites.GetAllSites(ctx.DBManager.GetConnection())
	if err != nil {
		ctx.Logger.Error("Failed to list sites", slog.Any("error", err))
		return ctx.Ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to list sites",
		})
	}

	return ctx.Ctx.JSON(fiber.Map{"data": all})
}

// SitesDeleteAction removes a site from the registry.
func SitesDeleteAction(ctx *cartridge.Context) error {
	if err := requireAdminKey(ctx); err != nil {
		return err
	}

	id64, err := strconv.ParseUint(ctx.Ctx.Params("site"), 10, 32)
	if err != nil || id64 == 0 {
		return ctx.Ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid site id",
		})
	}

	if err := sites.DeleteSite(ctx.DBManager.GetConnection(), uint32(id64)); err != nil {
		if err == gorm.ErrRecordNotFound {
			return ctx.Ctx.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "site not found",
			})
		}
		ctx.Logger.Error("Failed to delete site", slog.Any("error", err))
		return ctx.Ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to delete site",
		})
	}

	return ctx.Ctx.SendStatus(fiber.StatusNoContent)
}

// requireAdminKey guards the registry endpoints with the deploy-time
// private key, compared in constant time.
func requireAdminKey(ctx *cartridge.Context) error {
	cfg := config.GetConfig()
	provided := strings.TrimPrefix(ctx.Ctx.Get("Authorization"), "Bearer ")
	if cfg.PrivateKey == "" ||
		subtle.ConstantTimeCompare([]byte(provided), []byte(cfg.PrivateKey)) != 1 {
		return ctx.Ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "unauthorized",
		})
	}
	return nil
}
