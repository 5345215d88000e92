package query

import (
	"fmt"
	"strings"
	"sync"

	"go.elara.ws/pcre"
)

// FunnelStep is one stage of a funnel: either a page step matched by
// pathname (with * and ** wildcards) or an event step matched by name.
type FunnelStep struct {
	Type  string `json:"type"`  // "page" or "event"
	Value string `json:"value"` // path pattern or event name
	Name  string `json:"name"`  // display label, optional
}

// ValidateFunnelSteps checks the step list shape and compiles every
// page pattern once through the regex engine, so a pattern the store
// would reject never leaves this process.
func ValidateFunnelSteps(steps []FunnelStep) error {
	if len(steps) < 2 {
		return invalidParam("steps", "a funnel needs at least two steps")
	}
	for i, s := range steps {
		switch s.Type {
		case "page":
			if _, err := compiledPattern(PatternToRegex(s.Value)); err != nil {
				return invalidParam("steps", "step %d has an invalid path pattern: %v", i+1, err)
			}
		case "event":
			if s.Value == "" {
				return invalidParam("steps", "step %d has an empty event name", i+1)
			}
		default:
			return invalidParam("steps", "step %d has unknown type %q", i+1, s.Type)
		}
	}
	return nil
}

// PatternToRegex converts a path wildcard pattern to an anchored regex:
// * matches one path segment (no slash), ** matches across segments.
func PatternToRegex(pattern string) string {
	var b strings.Builder
	b.WriteByte('^')
	runes := []rune(pattern)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch r {
		case '*':
			if i+1 < len(runes) && runes[i+1] == '*' {
				b.WriteString(".*")
				i++
			} else {
				b.WriteString("[^/]+")
			}
		case '.', '+', '?', '^', '$', '{', '}', '(', ')', '|', '[', ']', '\\':
			b.WriteByte('\\')
			b.WriteRune(r)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('$')
	return b.String()
}

// patternCache holds compiled wildcard regexes process-wide; funnel
// definitions repeat heavily across dashboard refreshes.
var patternCache = struct {
	sync.RWMutex
	compiled map[string]*pcre.Regexp
}{compiled: make(map[string]*pcre.Regexp)}

func compiledPattern(regex string) (*pcre.Regexp, error) {
	patternCache.RLock()
	re, ok := patternCache.compiled[regex]
	patternCache.RUnlock()
	if ok {
		return re, nil
	}
	re, err := pcre.Compile(regex)
	if err != nil {
		return nil, err
	}
	patternCache.Lock()
	patternCache.compiled[regex] = re
	patternCache.Unlock()
	return re, nil
}

// stepCondition renders the boolean expression matching one step.
func stepCondition(s FunnelStep) string {
	if s.Type == "event" {
		return fmt.Sprintf("(type != 'pageview' AND event_name = %s)", EscapeLiteral(s.Value))
	}
	if strings.ContainsRune(s.Value, '*') {
		return fmt.Sprintf("(type = 'pageview' AND match(pathname, %s))", EscapeLiteral(PatternToRegex(s.Value)))
	}
	return fmt.Sprintf("(type = 'pageview' AND pathname = %s)", EscapeLiteral(s.Value))
}

// FunnelSQL assembles the funnel query: windowFunnel computes, per
// user, the deepest step reached in order inside the window, and the
// outer aggregate counts users at each depth. Callers turn the
// per-depth counts into cumulative step totals.
func FunnelSQL(steps []FunnelStep, ts TimeSpec, filters []FilterPredicate, windowHours int) string {
	if windowHours <= 0 {
		windowHours = 24
	}
	conditions := make([]string, len(steps))
	for i, s := range steps {
		conditions[i] = stepCondition(s)
	}
	return fmt.Sprintf(`
SELECT level, COUNT(*) AS users
FROM
(
    SELECT
        user_id,
        windowFunnel(%d)(timestamp, %s) AS level
    FROM events
    WHERE site_id = ?
        %s
        %s
    GROUP BY user_id
)
WHERE level > 0
GROUP BY level
ORDER BY level ASC`,
		windowHours*3600, strings.Join(conditions, ", "),
		CompileFilters(filters), TimeFragment(ts))
}

// FunnelStepCounts folds the per-depth user counts coming back from
// FunnelSQL into cumulative per-step totals: a user whose deepest level
// is 3 has completed steps 1, 2 and 3.
func FunnelStepCounts(rows []ResultRow, stepCount int) []int64 {
	totals := make([]int64, stepCount)
	for _, row := range rows {
		level, ok := asInt64(row["level"])
		if !ok || level < 1 || level > int64(stepCount) {
			continue
		}
		users, ok := asInt64(row["users"])
		if !ok {
			continue
		}
		for i := int64(0); i < level; i++ {
			totals[i] += users
		}
	}
	return totals
}

func asInt64(v interface{}) (int64, bool) {
	switch n := v.(type) {
	case float64:
		return int64(n), true
	case int64:
		return n, true
	case uint64:
		return int64(n), true
	case uint8:
		return int64(n), true
	case int32:
		return int64(n), true
	case uint32:
		return int64(n), true
	default:
		return 0, false
	}
}
