// Package currency maps a coarse visitor signal (timezone, country code or locale)
// to the currency the visitor's valuation is displayed in.
package currency

import (
	"strings"

	"golang.org/x/text/language"

	"github.com/xovato/agency-backend/pkg/model"
)

// DefaultRegion is used when a signal matches no known region.
const DefaultRegion = "US"

var table = map[string]model.CurrencyConfig{
	"PK": {Code: "PKR", Rate: 278.5, Locale: "ur-PK"},
	"IN": {Code: "INR", Rate: 83.5, Locale: "en-IN"},
	"AE": {Code: "AED", Rate: 3.67, Locale: "ar-AE"},
	"SA": {Code: "SAR", Rate: 3.75, Locale: "ar-SA"},
	"GB": {Code: "GBP", Rate: 0.79, Locale: "en-GB"},
	"EU": {Code: "EUR", Rate: 0.92, Locale: "de-DE"},
	"CA": {Code: "CAD", Rate: 1.36, Locale: "en-CA"},
	"AU": {Code: "AUD", Rate: 1.52, Locale: "en-AU"},
	"US": model.DefaultCurrency,
}

// Timezone substrings, checked in order.
var zoneRules = []struct {
	substr string
	region string
}{
	{"Karachi", "PK"},
	{"Calcutta", "IN"},
	{"Kolkata", "IN"},
	{"Dubai", "AE"},
	{"Riyadh", "SA"},
	{"London", "GB"},
	{"Berlin", "EU"},
	{"Paris", "EU"},
	{"Toronto", "CA"},
	{"Sydney", "AU"},
}

var eurozone = map[string]bool{
	"AT": true, "BE": true, "CY": true, "DE": true, "EE": true, "ES": true, "FI": true,
	"FR": true, "GR": true, "HR": true, "IE": true, "IT": true, "LT": true, "LU": true,
	"LV": true, "MT": true, "NL": true, "PT": true, "SI": true, "SK": true,
}

// Resolve returns the currency config for signal; unknown signals yield USD.
func Resolve(signal string) model.CurrencyConfig {
	return table[Region(signal)]
}

// Lookup returns the config registered for a region key.
func Lookup(region string) (model.CurrencyConfig, bool) {
	cfg, ok := table[strings.ToUpper(region)]
	return cfg, ok
}

// Region detects the region key ("PK", "EU", ...) carried by signal.
// Accepted signals: IANA timezone ("Asia/Karachi"), ISO 3166 country code ("pk"),
// or a BCP-47 locale with a region subtag ("en-GB").
func Region(signal string) string {
	s := strings.TrimSpace(signal)
	if s == "" {
		return DefaultRegion
	}

	if strings.Contains(s, "/") {
		for _, r := range zoneRules {
			if strings.Contains(s, r.substr) {
				return r.region
			}
		}
		return DefaultRegion
	}

	if len(s) == 2 {
		return fromCountry(strings.ToUpper(s))
	}

	tag, err := language.Parse(s)
	if err != nil {
		return DefaultRegion
	}
	region, conf := tag.Region()
	if conf != language.Exact {
		return DefaultRegion
	}
	return fromCountry(region.String())
}

func fromCountry(cc string) string {
	if eurozone[cc] {
		return "EU"
	}
	if _, ok := table[cc]; ok {
		return cc
	}
	return DefaultRegion
}
