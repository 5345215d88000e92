package sites_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sitepulse/internal/query"
	"sitepulse/internal/sites"
	"sitepulse/internal/testsupport"
)

func TestCreateSite(t *testing.T) {
	dbManager, _ := testsupport.SetupTestDBManager(t)
	db := dbManager.GetConnection()
	testsupport.CleanAllTables(db)

	site, apiKey, err := sites.CreateSite(db, "example.com", false)
	require.NoError(t, err)

	assert.NotZero(t, site.ID)
	assert.Equal(t, "example.com", site.Domain)
	assert.False(t, site.Public)

	// The plaintext key is only returned once and never stored.
	assert.NotEmpty(t, apiKey)
	assert.NotEqual(t, apiKey, site.APIKeyHash)
	assert.NotContains(t, site.APIKeyHash, apiKey)

	t.Run("Duplicate domain is rejected", func(t *testing.T) {
		_, _, err := sites.CreateSite(db, "example.com", false)
		assert.Error(t, err)
	})
}

func TestGetSiteByID(t *testing.T) {
	dbManager, _ := testsupport.SetupTestDBManager(t)
	db := dbManager.GetConnection()
	testsupport.CleanAllTables(db)

	created := testsupport.CreateTestSite(t, db, "example.com", "key-1", false)

	t.Run("Existing site", func(t *testing.T) {
		site, err := sites.GetSiteByID(db, created.ID)
		require.NoError(t, err)
		assert.Equal(t, "example.com", site.Domain)
	})

	t.Run("Unknown site", func(t *testing.T) {
		_, err := sites.GetSiteByID(db, 9999)

		var notFound *sites.SiteNotFoundError
		require.ErrorAs(t, err, &notFound)
		assert.Equal(t, uint32(9999), notFound.SiteID)
	})
}

func TestHasAccess(t *testing.T) {
	dbManager, _ := testsupport.SetupTestDBManager(t)
	db := dbManager.GetConnection()
	testsupport.CleanAllTables(db)

	private := testsupport.CreateTestSite(t, db, "private.example.com", "secret-key", false)
	public := testsupport.CreateTestSite(t, db, "public.example.com", "unused-key", true)

	t.Run("Correct key passes", func(t *testing.T) {
		assert.NoError(t, sites.HasAccess(db, private.ID, "secret-key"))
	})

	t.Run("Wrong key is denied", func(t *testing.T) {
		err := sites.HasAccess(db, private.ID, "wrong-key")

		var unauthorized *query.UnauthorizedError
		require.ErrorAs(t, err, &unauthorized)
		assert.Equal(t, private.ID, unauthorized.SiteID)
	})

	t.Run("Missing key is denied", func(t *testing.T) {
		var unauthorized *query.UnauthorizedError
		assert.ErrorAs(t, sites.HasAccess(db, private.ID, ""), &unauthorized)
	})

	t.Run("Public site needs no key", func(t *testing.T) {
		assert.NoError(t, sites.HasAccess(db, public.ID, ""))
	})

	t.Run("Unknown site is denied, not distinguished", func(t *testing.T) {
		var unauthorized *query.UnauthorizedError
		assert.ErrorAs(t, sites.HasAccess(db, 9999, "secret-key"), &unauthorized)
	})
}

func TestDeleteSite(t *testing.T) {
	dbManager, _ := testsupport.SetupTestDBManager(t)
	db := dbManager.GetConnection()
	testsupport.CleanAllTables(db)

	site := testsupport.CreateTestSite(t, db, "example.com", "key", false)

	require.NoError(t, sites.DeleteSite(db, site.ID))

	_, err := sites.GetSiteByID(db, site.ID)
	assert.Error(t, err)

	assert.Error(t, sites.DeleteSite(db, site.ID))
}
