package query_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"sitepulse/internal/query"
)

func TestRetentionSQL(t *testing.T) {
	t.Run("builds weekly cohort matrix", func(t *testing.T) {
		sql := query.RetentionSQL(8)

		assert.Contains(t, sql, "toStartOfWeek(timestamp) AS active_week")
		assert.Contains(t, sql, "MIN(toStartOfWeek(timestamp)) OVER (PARTITION BY user_id) AS cohort_week")
		assert.Contains(t, sql, "intDiv(toUInt32(active_week - cohort_week), 604800) AS week_number")
		assert.Contains(t, sql, "timestamp > now() - INTERVAL 8 WEEK")
		assert.Contains(t, sql, "HAVING week_number < 8")
		assert.True(t, strings.HasSuffix(sql, "ORDER BY cohort_week ASC, week_number ASC"))
		assert.Equal(t, 1, strings.Count(sql, "site_id = ?"))
	})

	t.Run("non-positive horizon falls back to twelve weeks", func(t *testing.T) {
		for _, weeks := range []int{0, -3} {
			sql := query.RetentionSQL(weeks)
			assert.Contains(t, sql, "INTERVAL 12 WEEK")
			assert.Contains(t, sql, "HAVING week_number < 12")
		}
	})
}
