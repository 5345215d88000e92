package query

import "fmt"

// RetentionSQL assembles the weekly cohort retention matrix: users are
// grouped by the week of their first event, and each row counts how
// many of a cohort were active N weeks later. cohort_week and
// active_week are UTC week starts; the caller computes percentages
// against week 0.
func RetentionSQL(maxWeeks int) string {
	if maxWeeks <= 0 {
		maxWeeks = 12
	}
	return fmt.Sprintf(`
SELECT
    cohort_week,
    intDiv(toUInt32(active_week - cohort_week), 604800) AS week_number,
    COUNT(DISTINCT user_id) AS users
FROM
(
    SELECT
        user_id,
        toStartOfWeek(timestamp) AS active_week,
        MIN(toStartOfWeek(timestamp)) OVER (PARTITION BY user_id) AS cohort_week
    FROM events
    WHERE site_id = ?
        AND type = 'pageview'
        AND timestamp > now() - INTERVAL %d WEEK
)
GROUP BY cohort_week, week_number
HAVING week_number < %d
ORDER BY cohort_week ASC, week_number ASC`, maxWeeks, maxWeeks)
}
