package query

import (
	"fmt"
	"strings"
)

func operatorFor(t FilterType) string {
	switch t {
	case FilterEquals:
		return "="
	case FilterNotEquals:
		return "!="
	case FilterContains:
		return "LIKE"
	case FilterNotContains:
		return "NOT LIKE"
	}
	return "="
}

// columnExpr resolves an allow-listed parameter name to the column
// expression it filters on. Virtual parameters map to derived
// expressions; utm_* and url_param:<name> read the per-event
// url_parameters map. entry_page and exit_page are not handled here:
// they need a session-scoped subquery and are special-cased by Compile.
func columnExpr(parameter string) string {
	if strings.HasPrefix(parameter, urlParamPrefix) {
		return fmt.Sprintf("url_parameters['%s']", strings.TrimPrefix(parameter, urlParamPrefix))
	}
	if strings.HasPrefix(parameter, "utm_") {
		return fmt.Sprintf("url_parameters['%s']", parameter)
	}
	switch parameter {
	case "referrer":
		return "domainWithoutWWW(referrer)"
	case "dimensions":
		return "concat(toString(screen_width), 'x', toString(screen_height))"
	}
	return parameter
}

// CompileFilters turns a validated predicate list into a SQL boolean
// fragment starting with "AND" (empty when the list is empty). Values
// within one predicate are OR-combined in parentheses; predicates are
// AND-combined in the order given.
func CompileFilters(filters []FilterPredicate) string {
	if len(filters) == 0 {
		return ""
	}
	parts := make([]string, 0, len(filters))
	for _, f := range filters {
		switch f.Parameter {
		case "entry_page":
			parts = append(parts, sessionPageClause(f, "argMin", "entry_pathname"))
		case "exit_page":
			parts = append(parts, sessionPageClause(f, "argMax", "exit_pathname"))
		default:
			parts = append(parts, flatClause(f))
		}
	}
	return "AND " + strings.Join(parts, " AND ")
}

// flatClause renders the generic column-operator-value shape.
func flatClause(f FilterPredicate) string {
	expr := columnExpr(f.Parameter)
	comparisons := make([]string, len(f.Value))
	for i, v := range f.Value {
		comparisons[i] = fmt.Sprintf("%s %s %s", expr, operatorFor(f.Type), likeValue(f.Type, v))
	}
	if len(comparisons) == 1 {
		return comparisons[0]
	}
	return "(" + strings.Join(comparisons, " OR ") + ")"
}

// sessionPageClause renders the entry/exit page shape: the pathname at
// the session's minimum or maximum event timestamp is a per-session
// derived value, so the predicate becomes a membership test against a
// session-grouped subquery rather than a flat column comparison. Ties
// on equal timestamps resolve deterministically by event_id.
func sessionPageClause(f FilterPredicate, aggFn, alias string) string {
	comparisons := make([]string, len(f.Value))
	for i, v := range f.Value {
		comparisons[i] = fmt.Sprintf("%s %s %s", alias, operatorFor(f.Type), likeValue(f.Type, v))
	}
	condition := comparisons[0]
	if len(comparisons) > 1 {
		condition = "(" + strings.Join(comparisons, " OR ") + ")"
	}
	return fmt.Sprintf(
		"session_id IN (SELECT session_id FROM"+
			" (SELECT session_id, %s(pathname, (timestamp, event_id)) AS %s FROM events GROUP BY session_id)"+
			" WHERE %s)",
		aggFn, alias, condition)
}

// likeValue escapes a filter value, wrapping it in wildcards for the
// contains operators.
func likeValue(t FilterType, value string) string {
	if t == FilterContains || t == FilterNotContains {
		return EscapeLiteral("%" + value + "%")
	}
	return EscapeLiteral(value)
}
