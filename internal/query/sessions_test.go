package query_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"sitepulse/internal/query"
)

func TestSessionListSQL(t *testing.T) {
	base := query.SessionListOptions{
		TimeSpec: dateSpec("2026-08-01", "2026-08-15"),
		Page:     query.Pagination{Page: 1, PageSize: 100},
	}

	t.Run("One row per session, newest first", func(t *testing.T) {
		sql := query.SessionListSQL(base)

		assert.Contains(t, sql, "GROUP BY session_id")
		assert.Contains(t, sql, "ORDER BY session_start DESC")
		assert.Contains(t, sql, "LIMIT 100 OFFSET 0")
		assert.Contains(t, sql, "argMin(pathname, (timestamp, event_id)) AS entry_page")
		assert.Contains(t, sql, "argMax(pathname, (timestamp, event_id)) AS exit_page")
		assert.Contains(t, sql, "countIf(type = 'pageview') AS pageviews")
	})

	t.Run("Page offset", func(t *testing.T) {
		opts := base
		opts.Page = query.Pagination{Page: 3, PageSize: 100}
		assert.Contains(t, query.SessionListSQL(opts), "LIMIT 100 OFFSET 200")
	})

	t.Run("User scope adds a placeholder", func(t *testing.T) {
		sql := query.SessionListSQL(base)
		assert.NotContains(t, sql, "user_id = ?")
		assert.Equal(t, []interface{}{uint32(1)}, query.SessionListArgs(1, ""))

		opts := base
		opts.UserID = "u-123"
		sql = query.SessionListSQL(opts)
		assert.Contains(t, sql, "AND user_id = ?")
		assert.Equal(t, []interface{}{uint32(1), "u-123"}, query.SessionListArgs(1, "u-123"))
	})

	t.Run("UTM attributes come from the parameters map", func(t *testing.T) {
		sql := query.SessionListSQL(base)
		assert.Contains(t, sql, "any(url_parameters['utm_source']) AS utm_source")
		assert.Contains(t, sql, "any(url_parameters['utm_content']) AS utm_content")
	})
}

func TestSessionDetailSQL(t *testing.T) {
	sql := query.SessionDetailSQL()

	assert.Contains(t, sql, "WHERE site_id = ? AND session_id = ?")
	assert.Contains(t, sql, "any(screen_width) AS screen_width")
	assert.Contains(t, sql, "GROUP BY session_id")
}

func TestSessionPageviewsSQL(t *testing.T) {
	sql := query.SessionPageviewsSQL(query.TimeSpec{}, 50, 100)

	// Event order within a session must be stable across requests.
	assert.Contains(t, sql, "ORDER BY timestamp ASC, event_id ASC")
	assert.Contains(t, sql, "LIMIT 50 OFFSET 100")

	count := query.SessionPageviewCountSQL(query.TimeSpec{})
	assert.Contains(t, count, "COUNT(*) AS total")
	assert.Contains(t, count, "WHERE site_id = ? AND session_id = ?")
}

func TestUserListSQL(t *testing.T) {
	opts := query.UserListOptions{
		TimeSpec: dateSpec("2026-08-01", "2026-08-15"),
		Sort:     query.SortSpec{Column: "pageviews", Descending: false},
		Page:     query.Pagination{Page: 2, PageSize: 50},
	}
	sql := query.UserListSQL(opts)

	assert.Contains(t, sql, "GROUP BY user_id")
	assert.Contains(t, sql, "ORDER BY pageviews ASC")
	assert.Contains(t, sql, "LIMIT 50 OFFSET 50")
	assert.Contains(t, sql, "COUNT(DISTINCT session_id) AS sessions")

	count := query.UserCountSQL(opts.TimeSpec, nil)
	assert.Contains(t, count, "COUNT(DISTINCT user_id) AS total")
}

func TestUserSessionCountSQL(t *testing.T) {
	sql := query.UserSessionCountSQL("Europe/Berlin")

	assert.Contains(t, sql, "toDate(toTimeZone(MIN(timestamp), 'Europe/Berlin')) AS date")
	assert.Contains(t, sql, "GROUP BY session_id")
	assert.Contains(t, sql, "GROUP BY date")
	assert.True(t, strings.HasSuffix(strings.TrimSpace(sql), "ORDER BY date ASC"))

	// The timezone travels as an escaped literal.
	hostile := query.UserSessionCountSQL("UTC'); DROP TABLE events; --")
	assert.Contains(t, hostile, `'UTC\'); DROP TABLE events; --'`)
}
