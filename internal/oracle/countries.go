package oracle

import (
	"fmt"
	"strings"
)

// DefaultCountry is used when no country is detected or the detected one is excluded.
const DefaultCountry = "US"

// excluded regions are served as DefaultCountry.
var excluded = map[string]bool{"IL": true}

var countryNames = map[string]string{
	// North America
	"US": "United States", "CA": "Canada", "MX": "Mexico",

	// Europe
	"GB": "United Kingdom", "DE": "Germany", "FR": "France", "IT": "Italy", "ES": "Spain",
	"NL": "Netherlands", "SE": "Sweden", "NO": "Norway", "DK": "Denmark", "FI": "Finland",
	"CH": "Switzerland", "BE": "Belgium", "AT": "Austria", "PL": "Poland", "PT": "Portugal",
	"GR": "Greece", "IE": "Ireland", "CZ": "Czech Republic", "RO": "Romania", "HU": "Hungary",

	// Asia
	"PK": "Pakistan", "IN": "India", "CN": "China", "JP": "Japan", "KR": "South Korea",
	"ID": "Indonesia", "MY": "Malaysia", "SG": "Singapore", "TH": "Thailand", "VN": "Vietnam",
	"PH": "Philippines", "BD": "Bangladesh", "LK": "Sri Lanka", "NP": "Nepal",

	// Middle East
	"AE": "United Arab Emirates", "SA": "Saudi Arabia", "TR": "Turkey", "EG": "Egypt",
	"QA": "Qatar", "KW": "Kuwait", "OM": "Oman", "BH": "Bahrain", "JO": "Jordan", "LB": "Lebanon",

	// South America
	"BR": "Brazil", "AR": "Argentina", "CL": "Chile", "CO": "Colombia", "PE": "Peru",

	// Oceania
	"AU": "Australia", "NZ": "New Zealand",

	// Africa
	"ZA": "South Africa", "NG": "Nigeria", "KE": "Kenya", "GH": "Ghana", "MA": "Morocco",
}

// NormalizeCountry upper-cases code and replaces empty or excluded codes with DefaultCountry.
func NormalizeCountry(code string) string {
	cc := strings.ToUpper(strings.TrimSpace(code))
	if cc == "" || excluded[cc] {
		return DefaultCountry
	}
	return cc
}

// CountryName returns the display name for code, "United States" when unknown.
func CountryName(code string) string {
	if name, ok := countryNames[NormalizeCountry(code)]; ok {
		return name
	}
	return countryNames[DefaultCountry]
}

// LocalizedQuery composes the market search sent to the oracle.
func LocalizedQuery(q, countryCode string) string {
	return fmt.Sprintf("average cost %s development in %s 2025", q, CountryName(countryCode))
}
