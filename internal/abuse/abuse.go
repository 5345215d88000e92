// Package abuse tracks IPs that report events for multiple sites in a
// short window, which usually means a spoofed or misconfigured tracker.
package abuse

import (
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// IPObservation records the last time an IP was seen for a given site.
type IPObservation struct {
	ID       uint      `gorm:"primaryKey;autoIncrement"`
	IP       string    `gorm:"not null;uniqueIndex:idx_ip_site"`
	SiteID   uint32    `gorm:"not null;uniqueIndex:idx_ip_site"`
	LastSeen time.Time `gorm:"not null;index"`
}

// Tracker flags IPs observed across more than one site inside the window.
type Tracker struct {
	db     *gorm.DB
	logger *slog.Logger
	window time.Duration
}

// NewTracker creates a tracker with the given observation window.
func NewTracker(db *gorm.DB, logger *slog.Logger, window time.Duration) *Tracker {
	return &Tracker{
		db:     db,
		logger: logger,
		window: window,
	}
}

// Observe records that ip was seen reporting for siteID, refreshing the
// timestamp when the pair already exists.
func (t *Tracker) Observe(ip string, siteID uint32) error {
	obs := IPObservation{
		IP:       ip,
		SiteID:   siteID,
		LastSeen: time.Now().UTC(),
	}

	err := t.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "ip"}, {Name: "site_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"last_seen"}),
	}).Create(&obs).Error
	if err != nil {
		return fmt.Errorf("failed to record IP observation: %w", err)
	}
	return nil
}

// Flagged reports whether ip has been seen for more than one site within
// the window.
func (t *Tracker) Flagged(ip string) (bool, error) {
	cutoff := time.Now().UTC().Add(-t.window)

	var count int64
	err := t.db.Model(&IPObservation{}).
		Where("ip = ? AND last_seen >= ?", ip, cutoff).
		Distinct("site_id").
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to count IP observations: %w", err)
	}

	return count > 1, nil
}

// FlaggedIPs returns every IP currently seen for more than one site.
func (t *Tracker) FlaggedIPs() ([]string, error) {
	cutoff := time.Now().UTC().Add(-t.window)

	var ips []string
	err := t.db.Model(&IPObservation{}).
		Where("last_seen >= ?", cutoff).
		Group("ip").
		Having("COUNT(DISTINCT site_id) > 1").
		Pluck("ip", &ips).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list flagged IPs: %w", err)
	}
	return ips, nil
}

// Sweep evicts observations older than the window and returns how many
// rows were removed.
func (t *Tracker) Sweep() (int64, error) {
	cutoff := time.Now().UTC().Add(-t.window)

	result := t.db.Where("last_seen < ?", cutoff).Delete(&IPObservation{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to sweep IP observations: %w", result.Error)
	}

	if result.RowsAffected > 0 {
		t.logger.Debug("Swept stale IP observations",
			slog.Int64("removed", result.RowsAffected))
	}
	return result.RowsAffected, nil
}
