package query

import (
	"fmt"
	"strings"
)

// OverviewBucketedSQL assembles the canonical overview time series: two
// independently bucketed sub-aggregations joined by bucket time.
//
// Session boundaries (first/last event, page count) must be computed
// once per session before bucketing, otherwise a session spanning
// several buckets would be double-counted; pageview counts need no
// session grouping and are aggregated directly. That is why the two
// sides are separate subqueries joined with a FULL JOIN: a bucket
// present on only one side still appears, with the other side's columns
// at their defaults. Each side is gap-filled independently and the
// joined result is ordered by time ascending, which callers rely on.
//
// The site identifier binds as a query argument; everything else is
// composed from validated, escaped fragments.
func OverviewBucketedSQL(ts TimeSpec, bucket Bucket, filters []FilterPredicate, timezone string) string {
	filterStmt := CompileFilters(filters)
	timeStmt := TimeFragment(ts)
	fillStmt := FillFragment(ts, bucket)
	tz := EscapeLiteral(timezone)
	trunc := bucket.TruncFn()

	return fmt.Sprintf(`
SELECT
    session_stats.time AS time,
    session_stats.sessions AS sessions,
    session_stats.pages_per_session AS pages_per_session,
    session_stats.bounce_rate * 100 AS bounce_rate,
    session_stats.session_duration AS session_duration,
    page_stats.pageviews AS pageviews,
    page_stats.users AS users
FROM
(
    SELECT
        toDateTime(%s(toTimeZone(start_time, %s))) AS time,
        COUNT() AS sessions,
        AVG(pages_in_session) AS pages_per_session,
        sumIf(1, pages_in_session = 1) / COUNT() AS bounce_rate,
        AVG(end_time - start_time) AS session_duration
    FROM
    (
        SELECT
            session_id,
            MIN(timestamp) AS start_time,
            MAX(timestamp) AS end_time,
            COUNT(*) AS pages_in_session
        FROM events
        WHERE site_id = ?
            %s
            %s
            AND type = 'pageview'
        GROUP BY session_id
    )
    GROUP BY time ORDER BY time %s
) AS session_stats
FULL JOIN
(
    SELECT
        toDateTime(%s(toTimeZone(timestamp, %s))) AS time,
        COUNT(*) AS pageviews,
        COUNT(DISTINCT user_id) AS users
    FROM events
    WHERE site_id = ?
        %s
        %s
        AND type = 'pageview'
    GROUP BY time ORDER BY time %s
) AS page_stats
USING time
ORDER BY time`,
		trunc, tz,
		filterStmt, timeStmt, fillStmt,
		trunc, tz,
		filterStmt, timeStmt, fillStmt)
}

// OverviewBucketedArgs returns the bound arguments matching
// OverviewBucketedSQL's placeholders: the site id once per join side.
func OverviewBucketedArgs(siteID uint32) []interface{} {
	return []interface{}{siteID, siteID}
}

// OverviewSQL assembles the non-bucketed overview totals over the whole
// window: one row of session-level and pageview-level aggregates.
func OverviewSQL(ts TimeSpec, filters []FilterPredicate) string {
	filterStmt := CompileFilters(filters)
	timeStmt := TimeFragment(ts)

	return fmt.Sprintf(`
SELECT
    session_stats.sessions AS sessions,
    session_stats.pages_per_session AS pages_per_session,
    session_stats.bounce_rate * 100 AS bounce_rate,
    session_stats.session_duration AS session_duration,
    page_stats.pageviews AS pageviews,
    page_stats.users AS users
FROM
(
    SELECT
        COUNT() AS sessions,
        AVG(pages_in_session) AS pages_per_session,
        sumIf(1, pages_in_session = 1) / COUNT() AS bounce_rate,
        AVG(end_time - start_time) AS session_duration
    FROM
    (
        SELECT
            session_id,
            MIN(timestamp) AS start_time,
            MAX(timestamp) AS end_time,
            COUNT(*) AS pages_in_session
        FROM events
        WHERE site_id = ?
            %s
            %s
            AND type = 'pageview'
        GROUP BY session_id
    )
) AS session_stats
CROSS JOIN
(
    SELECT
        COUNT(*) AS pageviews,
        COUNT(DISTINCT user_id) AS users
    FROM events
    WHERE site_id = ?
        %s
        %s
        AND type = 'pageview'
) AS page_stats`,
		filterStmt, timeStmt,
		filterStmt, timeStmt)
}

// SingleColSQL assembles a one-dimension breakdown: distinct users and
// pageviews per value of an allow-listed (possibly virtual) parameter,
// ordered by users descending. entry_page and exit_page group on the
// per-session derived pathname instead of a flat expression.
func SingleColSQL(parameter string, ts TimeSpec, filters []FilterPredicate, limit int) (string, error) {
	if !validFilterParameter(parameter) {
		return "", invalidParam("parameter", "unknown breakdown parameter %q", parameter)
	}
	filterStmt := CompileFilters(filters)
	timeStmt := TimeFragment(ts)

	if parameter == "entry_page" || parameter == "exit_page" {
		aggFn := "argMin"
		if parameter == "exit_page" {
			aggFn = "argMax"
		}
		return fmt.Sprintf(`
SELECT
    value,
    COUNT(DISTINCT user_id) AS users,
    SUM(pages_in_session) AS pageviews
FROM
(
    SELECT
        session_id,
        any(user_id) AS user_id,
        %s(pathname, (timestamp, event_id)) AS value,
        COUNT(*) AS pages_in_session
    FROM events
    WHERE site_id = ?
        %s
        %s
        AND type = 'pageview'
    GROUP BY session_id
)
GROUP BY value
ORDER BY users DESC
LIMIT %d`, aggFn, filterStmt, timeStmt, limit), nil
	}

	return fmt.Sprintf(`
SELECT
    %s AS value,
    COUNT(DISTINCT user_id) AS users,
    COUNT(*) AS pageviews
FROM events
WHERE site_id = ?
    %s
    %s
    AND type = 'pageview'
GROUP BY value
ORDER BY users DESC
LIMIT %d`, columnExpr(parameter), filterStmt, timeStmt, limit), nil
}

// LiveUserCountSQL counts distinct users seen in the rolling past
// minutes window.
func LiveUserCountSQL(pastMinutes int) string {
	ts := TimeSpec{PastMinutes: pastMinutes}
	return strings.TrimSpace(fmt.Sprintf(
		"SELECT COUNT(DISTINCT user_id) AS count FROM events WHERE site_id = ? %s",
		TimeFragment(ts)))
}
