package query

import (
	"math"
	"strconv"
	"time"
)

// ResultRow is one row of a store result: column name to value, with no
// native numeric typing guaranteed by the wire format.
type ResultRow map[string]interface{}

// NormalizeRows applies NormalizeValue to every cell of every row, in
// place, and returns the slice for chaining. The pass is deliberately
// column-agnostic: a string column that happens to hold only digits is
// coerced too. That quirk is part of the response contract.
func NormalizeRows(rows []ResultRow) []ResultRow {
	for _, row := range rows {
		for key, value := range row {
			row[key] = NormalizeValue(value)
		}
	}
	return rows
}

// NormalizeValue coerces a scalar cell to float64 when it is non-empty
// and parses fully as a finite number. Native numeric types are widened
// to float64 so the response is uniform regardless of how the store
// typed the column. Anything else passes through unchanged.
func NormalizeValue(value interface{}) interface{} {
	switch v := value.(type) {
	case string:
		if v == "" {
			return v
		}
		n, err := strconv.ParseFloat(v, 64)
		if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
			return v
		}
		return n
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int8:
		return float64(v)
	case int16:
		return float64(v)
	case int32:
		return float64(v)
	case int64:
		return float64(v)
	case uint:
		return float64(v)
	case uint8:
		return float64(v)
	case uint16:
		return float64(v)
	case uint32:
		return float64(v)
	case uint64:
		return float64(v)
	case time.Time:
		return v
	default:
		return v
	}
}
