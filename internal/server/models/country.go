package models

import (
	"fmt"
	"strings"

	"github.com/dmitrijs2005/tradeportal/internal/common"
	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

var regionNamer = display.English.Regions()

// CountryName returns the English name for an ISO 3166 alpha-2 code, or ""
// when the code is empty or unknown.
func CountryName(code string) string {
	if code == "" {
		return ""
	}
	r, err := language.ParseRegion(code)
	if err != nil {
		return ""
	}
	return regionNamer.Name(r)
}

// NormalizeCountry upper-cases and validates a two-letter country code.
func NormalizeCountry(code string) (string, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if len(code) != 2 {
		return "", fmt.Errorf("%w: country code %q must have two letters", common.ErrorValidation, code)
	}
	r, err := language.ParseRegion(code)
	if err != nil || !r.IsCountry() {
		return "", fmt.Errorf("%w: unknown country code %q", common.ErrorValidation, code)
	}
	return code, nil
}
