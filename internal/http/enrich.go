package http

import (
	"strings"

	"github.com/pariz/gountries"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"sitepulse/internal/query"
)

var countryLookup = gountries.New()

// enrichBreakdown adds a display label to breakdown rows for the
// parameters where the stored value is a code or lowercased token.
func enrichBreakdown(parameter string, rows []query.ResultRow) []query.ResultRow {
	switch parameter {
	case "country":
		for _, row := range rows {
			if code, ok := row["value"].(string); ok {
				row["label"] = countryName(code)
			}
		}
	case "device_type", "browser":
		caser := cases.Title(language.AmericanEnglish)
		for _, row := range rows {
			if value, ok := row["value"].(string); ok && value != "" {
				row["label"] = caser.String(value)
			}
		}
	case "operating_system":
		for _, row := range rows {
			if value, ok := row["value"].(string); ok && value != "" {
				row["label"] = osDisplayName(value)
			}
		}
	}
	return rows
}

// countryName resolves an ISO alpha code to its common English name,
// falling back to the uppercased code.
func countryName(code string) string {
	if code == "" {
		return "Unknown"
	}
	country, err := countryLookup.FindCountryByAlpha(code)
	if err != nil {
		return strings.ToUpper(code)
	}
	return country.Name.Common
}

// osDisplayName fixes the vendor capitalizations title-casing gets wrong.
func osDisplayName(name string) string {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "ios", "iphone os":
		return "iOS"
	case "ipados":
		return "iPadOS"
	case "macos", "mac os", "mac os x", "darwin":
		return "macOS"
	default:
		return cases.Title(language.AmericanEnglish).String(name)
	}
}
