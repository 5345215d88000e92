package query_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"sitepulse/internal/query"
)

func TestNormalizeValue(t *testing.T) {
	t.Run("Numeric strings become numbers", func(t *testing.T) {
		assert.Equal(t, float64(42), query.NormalizeValue("42"))
		assert.Equal(t, 3.14, query.NormalizeValue("3.14"))
		assert.Equal(t, float64(-7), query.NormalizeValue("-7"))
		assert.Equal(t, 1e6, query.NormalizeValue("1e6"))
	})

	t.Run("Non-numeric strings pass through", func(t *testing.T) {
		assert.Equal(t, "/pricing", query.NormalizeValue("/pricing"))
		assert.Equal(t, "", query.NormalizeValue(""))
		assert.Equal(t, "42abc", query.NormalizeValue("42abc"))
	})

	t.Run("Non-finite parses stay strings", func(t *testing.T) {
		assert.Equal(t, "NaN", query.NormalizeValue("NaN"))
		assert.Equal(t, "Inf", query.NormalizeValue("Inf"))
		assert.Equal(t, "-Inf", query.NormalizeValue("-Inf"))
	})

	t.Run("Native numerics widen to float64", func(t *testing.T) {
		assert.Equal(t, float64(7), query.NormalizeValue(uint64(7)))
		assert.Equal(t, float64(7), query.NormalizeValue(int32(7)))
		assert.Equal(t, float64(7), query.NormalizeValue(uint8(7)))
		assert.Equal(t, 7.5, query.NormalizeValue(float32(7.5)))
		assert.Equal(t, 7.5, query.NormalizeValue(7.5))
	})

	t.Run("Timestamps pass through untouched", func(t *testing.T) {
		now := time.Now()
		assert.Equal(t, now, query.NormalizeValue(now))
	})
}

func TestNormalizeRows(t *testing.T) {
	t.Run("Coercion is column agnostic", func(t *testing.T) {
		rows := []query.ResultRow{
			{
				"pathname":  "/pricing",
				"pageviews": "1024",
				"users":     uint64(256),
				"zip_code":  "94107",
			},
		}

		normalized := query.NormalizeRows(rows)

		// A string column holding only digits is coerced too; callers
		// depend on that uniformity.
		assert.Equal(t, "/pricing", normalized[0]["pathname"])
		assert.Equal(t, float64(1024), normalized[0]["pageviews"])
		assert.Equal(t, float64(256), normalized[0]["users"])
		assert.Equal(t, float64(94107), normalized[0]["zip_code"])
	})

	t.Run("Rows are normalized in place", func(t *testing.T) {
		rows := []query.ResultRow{{"count": "3"}}
		query.NormalizeRows(rows)
		assert.Equal(t, float64(3), rows[0]["count"])
	})

	t.Run("Empty input is fine", func(t *testing.T) {
		assert.Empty(t, query.NormalizeRows(nil))
	})
}
