package query_test

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sitepulse/internal/query"
)

func TestParseBucket(t *testing.T) {
	t.Run("Empty defaults to day", func(t *testing.T) {
		b, err := query.ParseBucket("")
		require.NoError(t, err)
		assert.Equal(t, query.BucketDay, b)
	})

	t.Run("Every listed bucket parses", func(t *testing.T) {
		for _, b := range query.Buckets() {
			parsed, err := query.ParseBucket(string(b))
			require.NoError(t, err, string(b))
			assert.Equal(t, b, parsed)
		}
	})

	t.Run("Unknown bucket is rejected", func(t *testing.T) {
		_, err := query.ParseBucket("fortnight")

		var invalid *query.InvalidParameterError
		assert.ErrorAs(t, err, &invalid)
	})
}

// Truncation function and fill step must stay in lockstep per bucket;
// a mismatch would silently produce misaligned series.
func TestBucketSpecConsistency(t *testing.T) {
	expected := map[query.Bucket][2]string{
		query.BucketMinute:         {"toStartOfMinute", "1 MINUTE"},
		query.BucketFiveMinutes:    {"toStartOfFiveMinutes", "5 MINUTE"},
		query.BucketTenMinutes:     {"toStartOfTenMinutes", "10 MINUTE"},
		query.BucketFifteenMinutes: {"toStartOfFifteenMinutes", "15 MINUTE"},
		query.BucketHour:           {"toStartOfHour", "1 HOUR"},
		query.BucketDay:            {"toStartOfDay", "1 DAY"},
		query.BucketWeek:           {"toStartOfWeek", "7 DAY"},
		query.BucketMonth:          {"toStartOfMonth", "1 MONTH"},
		query.BucketYear:           {"toStartOfYear", "1 YEAR"},
	}

	require.Len(t, query.Buckets(), len(expected))
	for _, b := range query.Buckets() {
		spec, ok := expected[b]
		require.True(t, ok, string(b))
		assert.Equal(t, spec[0], b.TruncFn(), string(b))
		assert.Equal(t, spec[1], b.Interval(), string(b))
	}
}

func TestTimeFragment(t *testing.T) {
	t.Run("All time yields no bound", func(t *testing.T) {
		assert.Empty(t, query.TimeFragment(query.TimeSpec{}))
		assert.Empty(t, query.TimeFragment(query.TimeSpec{
			Date: &query.DateRange{Timezone: "UTC"},
		}))
	})

	t.Run("Rolling minutes", func(t *testing.T) {
		fragment := query.TimeFragment(query.TimeSpec{PastMinutes: 30})
		assert.Equal(t, "AND timestamp > now() - INTERVAL 30 MINUTE", fragment)
	})

	t.Run("Minutes range is half open", func(t *testing.T) {
		fragment := query.TimeFragment(query.TimeSpec{
			PastMinutesRange: &query.MinutesRange{Start: 60, End: 30},
		})
		assert.Equal(t,
			"AND timestamp > now() - INTERVAL 60 MINUTE AND timestamp <= now() - INTERVAL 30 MINUTE",
			fragment)
	})

	t.Run("Date range uses caller timezone day boundaries", func(t *testing.T) {
		fragment := query.TimeFragment(query.TimeSpec{
			Date: &query.DateRange{
				StartDate: "2026-08-01",
				EndDate:   "2026-08-15",
				Timezone:  "Europe/Berlin",
			},
		})

		assert.Contains(t, fragment,
			"timestamp >= toTimeZone(toStartOfDay(toDateTime('2026-08-01', 'Europe/Berlin')), 'UTC')")
		// A range ending today is truncated at now() instead of a
		// future midnight.
		assert.Contains(t, fragment,
			"if(toDate('2026-08-15') = toDate(now(), 'Europe/Berlin'), now(),")
		assert.Contains(t, fragment, "+ INTERVAL 1 DAY, 'UTC'))")
	})

	t.Run("Date values are escaped", func(t *testing.T) {
		fragment := query.TimeFragment(query.TimeSpec{
			Date: &query.DateRange{StartDate: "20'26", EndDate: "20'27", Timezone: "UTC"},
		})
		assert.NotContains(t, fragment, "'20'26'")
		assert.Contains(t, fragment, `'20\'26'`)
	})
}

func TestFillFragment(t *testing.T) {
	t.Run("All time never fills", func(t *testing.T) {
		assert.Empty(t, query.FillFragment(query.TimeSpec{}, query.BucketDay))
	})

	t.Run("Rolling minutes fill up to now", func(t *testing.T) {
		fragment := query.FillFragment(query.TimeSpec{PastMinutes: 120}, query.BucketHour)
		assert.Equal(t,
			"WITH FILL FROM now() - INTERVAL 120 MINUTE TO now() STEP INTERVAL 1 HOUR",
			fragment)
	})

	t.Run("Minutes range fills between both bounds", func(t *testing.T) {
		fragment := query.FillFragment(query.TimeSpec{
			PastMinutesRange: &query.MinutesRange{Start: 120, End: 60},
		}, query.BucketFiveMinutes)
		assert.Equal(t,
			"WITH FILL FROM now() - INTERVAL 120 MINUTE TO now() - INTERVAL 60 MINUTE STEP INTERVAL 5 MINUTE",
			fragment)
	})

	t.Run("Date range fill bounds match the bucket truncation", func(t *testing.T) {
		ts := query.TimeSpec{
			Date: &query.DateRange{
				StartDate: "2026-08-01",
				EndDate:   "2026-08-15",
				Timezone:  "UTC",
			},
		}

		for _, b := range query.Buckets() {
			fragment := query.FillFragment(ts, b)
			assert.Contains(t, fragment,
				fmt.Sprintf("FROM toTimeZone(toDateTime(%s(toDateTime('2026-08-01', 'UTC'))), 'UTC')", b.TruncFn()),
				string(b))
			assert.True(t, strings.HasSuffix(fragment, "STEP INTERVAL "+b.Interval()), string(b))
		}
	})
}
