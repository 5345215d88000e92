package http

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sitepulse/internal/query"
)

func Test_timezoneOf(t *testing.T) {
	t.Run("date range", func(t *testing.T) {
		ts, err := query.ParseTimeSpec(query.RawTimeParams{
			StartDate: "2026-08-01",
			EndDate:   "2026-08-15",
			Timezone:  "America/New_York",
		})
		require.NoError(t, err)
		assert.Equal(t, "America/New_York", timezoneOf(ts))
	})

	t.Run("rolling minutes truncate in the caller's zone", func(t *testing.T) {
		ts, err := query.ParseTimeSpec(query.RawTimeParams{
			PastMinutes: "1440",
			Timezone:    "Europe/Berlin",
		})
		require.NoError(t, err)
		assert.Equal(t, "Europe/Berlin", timezoneOf(ts))

		sql := query.OverviewBucketedSQL(ts, query.BucketDay, nil, timezoneOf(ts))
		assert.Contains(t, sql, "'Europe/Berlin'")
		assert.False(t, strings.Contains(sql, "'UTC'"))
	})

	t.Run("zero value defaults to UTC", func(t *testing.T) {
		assert.Equal(t, "UTC", timezoneOf(query.TimeSpec{}))
	})
}

func Test_countryName(t *testing.T) {
	tests := []struct {
		name     string
		code     string
		expected string
	}{
		{name: "Alpha-2 code", code: "DE", expected: "Germany"},
		{name: "Lowercase code", code: "us", expected: "United States"},
		{name: "Empty code", code: "", expected: "Unknown"},
		{name: "Unresolvable code falls back uppercased", code: "zz", expected: "ZZ"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, countryName(tt.code))
		})
	}
}

func Test_osDisplayName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{input: "ios", expected: "iOS"},
		{input: "iPhone OS", expected: "iOS"},
		{input: "ipados", expected: "iPadOS"},
		{input: "mac os x", expected: "macOS"},
		{input: "darwin", expected: "macOS"},
		{input: "windows", expected: "Windows"},
		{input: "linux", expected: "Linux"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, osDisplayName(tt.input))
		})
	}
}

func Test_enrichBreakdown(t *testing.T) {
	t.Run("Country rows get a display label", func(t *testing.T) {
		rows := enrichBreakdown("country", []query.ResultRow{
			{"value": "DE", "users": float64(10)},
			{"value": "FR", "users": float64(5)},
		})

		assert.Equal(t, "Germany", rows[0]["label"])
		assert.Equal(t, "France", rows[1]["label"])
	})

	t.Run("Device rows are title-cased", func(t *testing.T) {
		rows := enrichBreakdown("device_type", []query.ResultRow{
			{"value": "desktop"},
		})
		assert.Equal(t, "Desktop", rows[0]["label"])
	})

	t.Run("Other parameters stay untouched", func(t *testing.T) {
		rows := enrichBreakdown("pathname", []query.ResultRow{
			{"value": "/pricing"},
		})
		_, hasLabel := rows[0]["label"]
		assert.False(t, hasLabel)
	})

	t.Run("Non-string values are skipped", func(t *testing.T) {
		rows := enrichBreakdown("country", []query.ResultRow{
			{"value": float64(42)},
		})
		_, hasLabel := rows[0]["label"]
		assert.False(t, hasLabel)
	})
}
