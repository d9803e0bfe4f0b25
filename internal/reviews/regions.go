package reviews

import (
	"math"
	"strings"
)

// Region groups the countries shown together on the globe.
type Region struct {
	Label     string   `json:"label"`
	Countries []string `json:"countries"`
}

var regions = []Region{
	{Label: "Asia", Countries: []string{"PK", "IN", "BD", "JP", "SG"}},
	{Label: "Middle East", Countries: []string{"AE", "SA", "QA", "KW", "OM"}},
	{Label: "Europe", Countries: []string{"GB", "DE", "FR", "NL", "ES", "IT"}},
	{Label: "North America", Countries: []string{"US", "CA", "MX"}},
	{Label: "Africa", Countries: []string{"NG", "KE", "ZA", "EG", "MA"}},
	{Label: "Oceania", Countries: []string{"AU", "NZ"}},
}

// Regions returns the globe regions in rotation order.
func Regions() []Region {
	out := make([]Region, len(regions))
	for i, r := range regions {
		out[i] = Region{Label: r.Label, Countries: append([]string(nil), r.Countries...)}
	}
	return out
}

// RegionForCountry returns the index of the region containing code, or 0.
func RegionForCountry(code string) int {
	c := strings.ToUpper(strings.TrimSpace(code))
	for i, r := range regions {
		for _, rc := range r.Countries {
			if rc == c {
				return i
			}
		}
	}
	return 0
}

// RegionAt maps a scroll progress in [0,1] to a region index.
func RegionAt(progress float64) int {
	if math.IsNaN(progress) {
		progress = 0
	}
	p := math.Min(1, math.Max(0, progress))
	idx := int(math.Floor(p * float64(len(regions))))
	return min(len(regions)-1, max(0, idx))
}

// CountryFor picks the country whose reviews represent region idx: the visitor's
// own country when it belongs to the region, else the region's first country.
func CountryFor(idx int, visitorCountry string) string {
	r := regions[((idx%len(regions))+len(regions))%len(regions)]
	c := strings.ToUpper(strings.TrimSpace(visitorCountry))
	for _, rc := range r.Countries {
		if rc == c {
			return c
		}
	}
	return r.Countries[0]
}
