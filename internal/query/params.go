// Package query is the analytics query compiler: it validates request
// parameters, compiles filter predicates and time windows into SQL
// fragments for the columnar store, assembles full statements and
// normalizes the stringly-typed result rows coming back.
package query

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// FilterType is the comparison operator of a filter predicate.
type FilterType string

const (
	FilterEquals      FilterType = "equals"
	FilterNotEquals   FilterType = "not_equals"
	FilterContains    FilterType = "contains"
	FilterNotContains FilterType = "not_contains"
)

// FilterPredicate is one entry of the serialized filter list sent by the
// dashboard. Value is an ordered, non-empty list; multiple values are
// OR-combined at compile time.
type FilterPredicate struct {
	Parameter string     `json:"parameter"`
	Type      FilterType `json:"type"`
	Value     []string   `json:"value"`
}

// MinutesRange is the rolling "from start minutes ago to end minutes
// ago" window. Start is further in the past than End.
type MinutesRange struct {
	Start int
	End   int
}

// DateRange is an explicit calendar range in the caller's timezone. An
// empty StartDate and EndDate means "all time".
type DateRange struct {
	StartDate string
	EndDate   string
	Timezone  string
}

// TimeSpec is the tagged union of the supported time specifications.
// Exactly one variant is populated; ParseTimeSpec enforces that.
// Timezone is the caller's validated IANA zone (UTC when omitted) and
// applies to bucket truncation for every variant, not just date ranges.
type TimeSpec struct {
	Date             *DateRange
	PastMinutes      int
	PastMinutesRange *MinutesRange
	Timezone         string
}

// IsAllTime reports whether the time window is unbounded.
func (ts TimeSpec) IsAllTime() bool {
	return ts.PastMinutes == 0 && ts.PastMinutesRange == nil &&
		(ts.Date == nil || (ts.Date.StartDate == "" && ts.Date.EndDate == ""))
}

// RawTimeParams are the time-related query parameters as they arrive on
// the wire, before validation.
type RawTimeParams struct {
	StartDate        string
	EndDate          string
	Timezone         string
	PastMinutes      string
	PastMinutesStart string
	PastMinutesEnd   string
}

const dateLayout = "2006-01-02"

// ParseTimeSpec validates the raw time parameters and returns the single
// TimeSpec variant they describe. Mixing variants is a caller error: the
// conflict is reported on the highest-precedence variant present
// (minutes-range > rolling minutes > date).
func ParseTimeSpec(raw RawTimeParams) (TimeSpec, error) {
	hasDate := raw.StartDate != "" || raw.EndDate != ""
	hasMinutes := raw.PastMinutes != ""
	hasMinutesRange := raw.PastMinutesStart != "" || raw.PastMinutesEnd != ""

	// The timezone applies to every variant: rolling windows still
	// truncate their buckets in the caller's zone.
	tz := raw.Timezone
	if tz == "" {
		tz = "UTC"
	}
	if _, err := time.LoadLocation(tz); err != nil {
		return TimeSpec{}, invalidParam("timezone", "unknown timezone %q", tz)
	}

	switch {
	case hasMinutesRange && (hasMinutes || hasDate):
		return TimeSpec{}, invalidParam("pastMinutesStart", "cannot be combined with other time parameters")
	case hasMinutes && hasDate:
		return TimeSpec{}, invalidParam("pastMinutes", "cannot be combined with startDate/endDate")
	}

	if hasMinutesRange {
		if raw.PastMinutesStart == "" || raw.PastMinutesEnd == "" {
			return TimeSpec{}, invalidParam("pastMinutesStart", "both pastMinutesStart and pastMinutesEnd are required")
		}
		start, err := parsePositiveInt("pastMinutesStart", raw.PastMinutesStart)
		if err != nil {
			return TimeSpec{}, err
		}
		end, err := parseNonNegativeInt("pastMinutesEnd", raw.PastMinutesEnd)
		if err != nil {
			return TimeSpec{}, err
		}
		if start <= end {
			return TimeSpec{}, invalidParam("pastMinutesStart", "must be greater than pastMinutesEnd")
		}
		return TimeSpec{PastMinutesRange: &MinutesRange{Start: start, End: end}, Timezone: tz}, nil
	}

	if hasMinutes {
		minutes, err := parsePositiveInt("pastMinutes", raw.PastMinutes)
		if err != nil {
			return TimeSpec{}, err
		}
		return TimeSpec{PastMinutes: minutes, Timezone: tz}, nil
	}

	if raw.StartDate != "" {
		if _, err := time.Parse(dateLayout, raw.StartDate); err != nil {
			return TimeSpec{}, invalidParam("startDate", "must be YYYY-MM-DD")
		}
	}
	if raw.EndDate != "" {
		if _, err := time.Parse(dateLayout, raw.EndDate); err != nil {
			return TimeSpec{}, invalidParam("endDate", "must be YYYY-MM-DD")
		}
	}
	return TimeSpec{Date: &DateRange{StartDate: raw.StartDate, EndDate: raw.EndDate, Timezone: tz}, Timezone: tz}, nil
}

// directColumns is the fixed enumeration of event columns a filter may
// target. Parameter names are only ever compared against this list;
// they are never escaped into SQL as data.
var directColumns = map[string]struct{}{
	"pathname":                 {},
	"hostname":                 {},
	"querystring":              {},
	"page_title":               {},
	"event_name":               {},
	"channel":                  {},
	"browser":                  {},
	"browser_version":          {},
	"operating_system":         {},
	"operating_system_version": {},
	"language":                 {},
	"country":                  {},
	"region":                   {},
	"city":                     {},
	"device_type":              {},
}

// virtualParams resolve to derived expressions instead of plain columns.
var virtualParams = map[string]struct{}{
	"referrer":   {},
	"entry_page": {},
	"exit_page":  {},
	"dimensions": {},
}

const urlParamPrefix = "url_param:"

// validFilterParameter reports whether a parameter name is allow-listed.
// utm_* and url_param:<name> are prefix families; the suffix only has to
// be a safe map key.
func validFilterParameter(parameter string) bool {
	if _, ok := directColumns[parameter]; ok {
		return true
	}
	if _, ok := virtualParams[parameter]; ok {
		return true
	}
	if strings.HasPrefix(parameter, "utm_") {
		return validMapKey(strings.TrimPrefix(parameter, "utm_"))
	}
	if strings.HasPrefix(parameter, urlParamPrefix) {
		return validMapKey(strings.TrimPrefix(parameter, urlParamPrefix))
	}
	return false
}

// validMapKey restricts url_parameters map keys to characters that can
// never terminate a quoted SQL string.
func validMapKey(key string) bool {
	if key == "" {
		return false
	}
	for _, r := range key {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		case r == '_' || r == '-':
		default:
			return false
		}
	}
	return true
}

var validFilterTypes = map[FilterType]struct{}{
	FilterEquals:      {},
	FilterNotEquals:   {},
	FilterContains:    {},
	FilterNotContains: {},
}

// ParseFilters decodes and validates the serialized predicate list. An
// empty input yields no predicates; order is preserved.
func ParseFilters(serialized string) ([]FilterPredicate, error) {
	if serialized == "" {
		return nil, nil
	}
	var filters []FilterPredicate
	if err := json.Unmarshal([]byte(serialized), &filters); err != nil {
		return nil, invalidParam("filters", "not a valid filter list: %v", err)
	}
	for _, f := range filters {
		if !validFilterParameter(f.Parameter) {
			return nil, invalidParam("filters", "unknown filter parameter %q", f.Parameter)
		}
		if _, ok := validFilterTypes[f.Type]; !ok {
			return nil, invalidParam("filters", "unknown filter type %q", f.Type)
		}
		if len(f.Value) == 0 {
			return nil, invalidParam("filters", "filter on %q has no values", f.Parameter)
		}
	}
	return filters, nil
}

// MaxPageSize is the fixed ceiling for every paginated list endpoint.
const MaxPageSize = 100

// Pagination is a validated page request. Page numbers are 1-based.
type Pagination struct {
	Page     int
	PageSize int
}

// Offset returns the row offset for the page.
func (p Pagination) Offset() int {
	return (p.Page - 1) * p.PageSize
}

// ParsePagination validates page/pageSize strings, applying the defaults
// and the ceiling. Empty strings mean "first page, full page size".
func ParsePagination(pageStr, pageSizeStr string) (Pagination, error) {
	p := Pagination{Page: 1, PageSize: MaxPageSize}
	if pageStr != "" {
		page, err := parsePositiveInt("page", pageStr)
		if err != nil {
			return Pagination{}, err
		}
		p.Page = page
	}
	if pageSizeStr != "" {
		size, err := parsePositiveInt("pageSize", pageSizeStr)
		if err != nil {
			return Pagination{}, err
		}
		if size > MaxPageSize {
			size = MaxPageSize
		}
		p.PageSize = size
	}
	return p, nil
}

// SortSpec is a validated ORDER BY choice. Column comes from a
// per-endpoint allow-list, never from the request verbatim.
type SortSpec struct {
	Column     string
	Descending bool
}

// ParseSort validates sortBy against the endpoint's allowed columns and
// sortOrder against asc/desc. Empty inputs fall back to the first
// allowed column, descending.
func ParseSort(sortBy, sortOrder string, allowed []string) (SortSpec, error) {
	spec := SortSpec{Column: allowed[0], Descending: true}
	if sortBy != "" {
		found := false
		for _, col := range allowed {
			if col == sortBy {
				found = true
				break
			}
		}
		if !found {
			return SortSpec{}, invalidParam("sortBy", "unsupported sort column %q", sortBy)
		}
		spec.Column = sortBy
	}
	switch sortOrder {
	case "", "desc":
		spec.Descending = true
	case "asc":
		spec.Descending = false
	default:
		return SortSpec{}, invalidParam("sortOrder", "must be asc or desc")
	}
	return spec, nil
}

// Direction returns the SQL keyword for the sort order.
func (s SortSpec) Direction() string {
	if s.Descending {
		return "DESC"
	}
	return "ASC"
}

func parsePositiveInt(param, value string) (int, error) {
	n, err := strconv.Atoi(value)
	if err != nil || n <= 0 {
		return 0, invalidParam(param, "must be a positive integer")
	}
	return n, nil
}

func parseNonNegativeInt(param, value string) (int, error) {
	n, err := strconv.Atoi(value)
	if err != nil || n < 0 {
		return 0, invalidParam(param, "must be a non-negative integer")
	}
	return n, nil
}
