package abuse_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sitepulse/internal/abuse"
	"sitepulse/internal/testsupport"
)

func TestTrackerFlagging(t *testing.T) {
	dbManager, logger := testsupport.SetupTestDBManager(t)
	db := dbManager.GetConnection()
	testsupport.CleanAllTables(db)

	tracker := abuse.NewTracker(db, logger, 24*time.Hour)

	t.Run("Single site is not flagged", func(t *testing.T) {
		require.NoError(t, tracker.Observe("203.0.113.1", 1))

		flagged, err := tracker.Flagged("203.0.113.1")
		require.NoError(t, err)
		assert.False(t, flagged)
	})

	t.Run("Second site flags the IP", func(t *testing.T) {
		require.NoError(t, tracker.Observe("203.0.113.1", 2))

		flagged, err := tracker.Flagged("203.0.113.1")
		require.NoError(t, err)
		assert.True(t, flagged)
	})

	t.Run("Repeat observations for one site do not flag", func(t *testing.T) {
		for i := 0; i < 5; i++ {
			require.NoError(t, tracker.Observe("203.0.113.2", 1))
		}

		flagged, err := tracker.Flagged("203.0.113.2")
		require.NoError(t, err)
		assert.False(t, flagged)
	})

	t.Run("Unknown IP is not flagged", func(t *testing.T) {
		flagged, err := tracker.Flagged("203.0.113.99")
		require.NoError(t, err)
		assert.False(t, flagged)
	})

	t.Run("FlaggedIPs lists only multi-site IPs", func(t *testing.T) {
		ips, err := tracker.FlaggedIPs()
		require.NoError(t, err)
		assert.Equal(t, []string{"203.0.113.1"}, ips)
	})
}

func TestTrackerWindow(t *testing.T) {
	dbManager, logger := testsupport.SetupTestDBManager(t)
	db := dbManager.GetConnection()
	testsupport.CleanAllTables(db)

	tracker := abuse.NewTracker(db, logger, 24*time.Hour)

	require.NoError(t, tracker.Observe("203.0.113.5", 1))
	require.NoError(t, tracker.Observe("203.0.113.5", 2))

	// Age the second observation out of the window.
	stale := time.Now().UTC().Add(-25 * time.Hour)
	require.NoError(t, db.Model(&abuse.IPObservation{}).
		Where("ip = ? AND site_id = ?", "203.0.113.5", 2).
		Update("last_seen", stale).Error)

	flagged, err := tracker.Flagged("203.0.113.5")
	require.NoError(t, err)
	assert.False(t, flagged)

	t.Run("Sweep evicts stale observations", func(t *testing.T) {
		removed, err := tracker.Sweep()
		require.NoError(t, err)
		assert.Equal(t, int64(1), removed)

		var count int64
		require.NoError(t, db.Model(&abuse.IPObservation{}).Count(&count).Error)
		assert.Equal(t, int64(1), count)
	})

	t.Run("Sweep with nothing stale removes nothing", func(t *testing.T) {
		removed, err := tracker.Sweep()
		require.NoError(t, err)
		assert.Zero(t, removed)
	})
}

func TestObserveRefreshesTimestamp(t *testing.T) {
	dbManager, logger := testsupport.SetupTestDBManager(t)
	db := dbManager.GetConnection()
	testsupport.CleanAllTables(db)

	tracker := abuse.NewTracker(db, logger, 24*time.Hour)

	require.NoError(t, tracker.Observe("203.0.113.7", 1))

	stale := time.Now().UTC().Add(-23 * time.Hour)
	require.NoError(t, db.Model(&abuse.IPObservation{}).
		Where("ip = ?", "203.0.113.7").
		Update("last_seen", stale).Error)

	require.NoError(t, tracker.Observe("203.0.113.7", 1))

	var obs abuse.IPObservation
	require.NoError(t, db.Where("ip = ?", "203.0.113.7").First(&obs).Error)
	assert.True(t, obs.LastSeen.After(stale.Add(time.Hour)))

	var count int64
	require.NoError(t, db.Model(&abuse.IPObservation{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}
