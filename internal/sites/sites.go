// Package sites manages the registry of tracked sites and API key access checks.
package sites

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"sitepulse/internal/query"
)

// SiteNotFoundError represents an error when a site is not found
type SiteNotFoundError struct {
	SiteID uint32
}

func (e *SiteNotFoundError) Error() string {
	return fmt.Sprintf("site not found: %d", e.SiteID)
}

// Site represents a tracked site in the metadata store
type Site struct {
	ID         uint32    `gorm:"primaryKey;autoIncrement" json:"id"`
	Domain     string    `gorm:"unique;not null" json:"domain"`
	Public     bool      `gorm:"default:false" json:"public"` // Public dashboards skip the API key check
	APIKeyHash string    `gorm:"not null" json:"-"`
	CreatedAt  time.Time `json:"created_at"`
}

// CreateSite registers a new site and returns the plaintext API key.
// The key is only recoverable at creation time; the registry stores a
// bcrypt hash.
func CreateSite(db *gorm.DB, domain string, public bool) (*Site, string, error) {
	key, err := generateAPIKey()
	if err != nil {
		return nil, "", fmt.Errorf("failed to generate API key: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(key), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", fmt.Errorf("failed to hash API key: %w", err)
	}

	site := &Site{
		Domain:     domain,
		Public:     public,
		APIKeyHash: string(hash),
		CreatedAt:  time.Now().UTC(),
	}
	if err := db.Create(site).Error; err != nil {
		return nil, "", fmt.Errorf("failed to create site: %w", err)
	}

	return site, key, nil
}

// GetSiteByID retrieves a site by its ID
func GetSiteByID(db *gorm.DB, id uint32) (*Site, error) {
	var site Site
	if err := db.First(&site, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &SiteNotFoundError{SiteID: id}
		}
		return nil, fmt.Errorf("unexpected error querying site: %w", err)
	}
	return &site, nil
}

// GetSiteByDomain retrieves a site by its domain
func GetSiteByDomain(db *gorm.DB, domain string) (*Site, error) {
	var site Site
	if err := db.Where("domain = ?", domain).First(&site).Error; err != nil {
		return nil, err
	}
	return &site, nil
}

// GetAllSites retrieves all registered sites
func GetAllSites(db *gorm.DB) ([]Site, error) {
	var all []Site
	if err := db.Find(&all).Error; err != nil {
		return nil, fmt.Errorf("failed to get sites: %w", err)
	}
	return all, nil
}

// DeleteSite deletes a site by its ID
func DeleteSite(db *gorm.DB, id uint32) error {
	result := db.Delete(&Site{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// HasAccess checks whether the given API key may query the site. Public
// sites are readable without a key. Unknown sites and bad keys both come
// back as UnauthorizedError so callers cannot probe which site IDs exist.
func HasAccess(db *gorm.DB, siteID uint32, apiKey string) error {
	site, err := GetSiteByID(db, siteID)
	if err != nil {
		var notFound *SiteNotFoundError
		if errors.As(err, &notFound) {
			return &query.UnauthorizedError{SiteID: siteID}
		}
		return err
	}

	if site.Public {
		return nil
	}

	if apiKey == "" {
		return &query.UnauthorizedError{SiteID: siteID}
	}

	if bcrypt.CompareHashAndPassword([]byte(site.APIKeyHash), []byte(apiKey)) != nil {
		return &query.UnauthorizedError{SiteID: siteID}
	}

	return nil
}

func generateAPIKey() (string, error) {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return "sp_" + hex.EncodeToString(buf), nil
}
