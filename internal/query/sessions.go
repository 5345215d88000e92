package query

import "fmt"

// Entry and exit pages are the pathname at the session's minimum and
// maximum event timestamp. When several events share that timestamp the
// store's argMin/argMax pick is implementation-defined, so every use
// here keys on the (timestamp, event_id) tuple: the lowest event id
// wins at the entry boundary, the highest at the exit boundary.
const (
	entryPageExpr = "argMin(pathname, (timestamp, event_id))"
	exitPageExpr  = "argMax(pathname, (timestamp, event_id))"
)

// SessionListOptions parameterize the session list query.
type SessionListOptions struct {
	TimeSpec TimeSpec
	Filters  []FilterPredicate
	UserID   string // scope to one user when non-empty
	Page     Pagination
}

// SessionListSQL assembles the session list: one row per reconstructed
// session, newest first, one fixed-size page at a time. The endpoint
// returns no total count; a full page signals that more may follow.
// Arguments bind in order: site id, then the user id when scoped.
func SessionListSQL(opts SessionListOptions) string {
	filterStmt := CompileFilters(opts.Filters)
	timeStmt := TimeFragment(opts.TimeSpec)

	userClause := ""
	if opts.UserID != "" {
		userClause = "AND user_id = ?"
	}

	return fmt.Sprintf(`
SELECT
    session_id,
    any(user_id) AS user_id,
    any(country) AS country,
    any(region) AS region,
    any(city) AS city,
    any(language) AS language,
    any(device_type) AS device_type,
    any(browser) AS browser,
    any(operating_system) AS operating_system,
    any(domainWithoutWWW(referrer)) AS referrer,
    any(channel) AS channel,
    any(url_parameters['utm_source']) AS utm_source,
    any(url_parameters['utm_medium']) AS utm_medium,
    any(url_parameters['utm_campaign']) AS utm_campaign,
    any(url_parameters['utm_term']) AS utm_term,
    any(url_parameters['utm_content']) AS utm_content,
    MIN(timestamp) AS session_start,
    MAX(timestamp) AS session_end,
    MAX(timestamp) - MIN(timestamp) AS session_duration,
    %s AS entry_page,
    %s AS exit_page,
    countIf(type = 'pageview') AS pageviews,
    countIf(type != 'pageview') AS events
FROM events
WHERE site_id = ?
    %s
    %s
    %s
GROUP BY session_id
ORDER BY session_start DESC
LIMIT %d OFFSET %d`,
		entryPageExpr, exitPageExpr,
		userClause, filterStmt, timeStmt,
		opts.Page.PageSize, opts.Page.Offset())
}

// SessionListArgs returns the bound arguments matching SessionListSQL.
// The site id always travels as a bound argument, never as composed
// text.
func SessionListArgs(siteID uint32, userID string) []interface{} {
	if userID != "" {
		return []interface{}{siteID, userID}
	}
	return []interface{}{siteID}
}

// SessionDetailSQL assembles the single-session summary row.
func SessionDetailSQL() string {
	return fmt.Sprintf(`
SELECT
    session_id,
    any(user_id) AS user_id,
    any(country) AS country,
    any(region) AS region,
    any(language) AS language,
    any(device_type) AS device_type,
    any(browser) AS browser,
    any(browser_version) AS browser_version,
    any(operating_system) AS operating_system,
    any(operating_system_version) AS operating_system_version,
    any(screen_width) AS screen_width,
    any(screen_height) AS screen_height,
    any(domainWithoutWWW(referrer)) AS referrer,
    MIN(timestamp) AS session_start,
    MAX(timestamp) AS session_end,
    countIf(type = 'pageview') AS pageviews,
    %s AS entry_page,
    %s AS exit_page
FROM events
WHERE site_id = ? AND session_id = ?
GROUP BY session_id`, entryPageExpr, exitPageExpr)
}

// SessionPageviewsSQL pages through a session's events in timestamp
// order. Used with SessionPageviewCountSQL for offset pagination with a
// server-computed hasMore.
func SessionPageviewsSQL(ts TimeSpec, limit, offset int) string {
	return fmt.Sprintf(`
SELECT
    timestamp,
    pathname,
    hostname,
    querystring,
    page_title,
    referrer,
    type,
    event_name,
    properties
FROM events
WHERE site_id = ? AND session_id = ?
    %s
ORDER BY timestamp ASC, event_id ASC
LIMIT %d OFFSET %d`, TimeFragment(ts), limit, offset)
}

// SessionPageviewCountSQL counts a session's events so hasMore can be
// computed as offset+limit < total.
func SessionPageviewCountSQL(ts TimeSpec) string {
	return fmt.Sprintf(`
SELECT COUNT(*) AS total
FROM events
WHERE site_id = ? AND session_id = ?
    %s`, TimeFragment(ts))
}

// UserSortColumns is the allow-list for the user list's sortBy.
var UserSortColumns = []string{"last_seen", "first_seen", "pageviews", "sessions", "events"}

// UserListOptions parameterize the user list query.
type UserListOptions struct {
	TimeSpec TimeSpec
	Filters  []FilterPredicate
	Sort     SortSpec
	Page     Pagination
}

// UserListSQL assembles the per-user rollup, sorted by an allow-listed
// column. Paired with UserCountSQL for the totalCount pagination mode.
func UserListSQL(opts UserListOptions) string {
	return fmt.Sprintf(`
SELECT
    user_id,
    any(country) AS country,
    any(region) AS region,
    any(city) AS city,
    any(language) AS language,
    any(browser) AS browser,
    any(operating_system) AS operating_system,
    any(device_type) AS device_type,
    countIf(type = 'pageview') AS pageviews,
    countIf(type != 'pageview') AS events,
    COUNT(DISTINCT session_id) AS sessions,
    MAX(timestamp) AS last_seen,
    MIN(timestamp) AS first_seen
FROM events
WHERE site_id = ?
    %s
    %s
GROUP BY user_id
ORDER BY %s %s
LIMIT %d OFFSET %d`,
		CompileFilters(opts.Filters), TimeFragment(opts.TimeSpec),
		opts.Sort.Column, opts.Sort.Direction(),
		opts.Page.PageSize, opts.Page.Offset())
}

// UserCountSQL counts the distinct users matching the same window and
// filters as UserListSQL.
func UserCountSQL(ts TimeSpec, filters []FilterPredicate) string {
	return fmt.Sprintf(`
SELECT COUNT(DISTINCT user_id) AS total
FROM events
WHERE site_id = ?
    %s
    %s`, CompileFilters(filters), TimeFragment(ts))
}

// UserSessionCountSQL buckets one user's sessions per calendar day in
// the caller's timezone.
func UserSessionCountSQL(timezone string) string {
	tz := EscapeLiteral(timezone)
	return fmt.Sprintf(`
SELECT date, COUNT(*) AS sessions
FROM
(
    SELECT session_id, toDate(toTimeZone(MIN(timestamp), %s)) AS date
    FROM events
    WHERE site_id = ? AND user_id = ?
    GROUP BY session_id
)
GROUP BY date
ORDER BY date ASC`, tz)
}
